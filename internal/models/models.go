// package models defines the data model for the gateway service
package models

import (
	"time"
)

// TokenBundle is the access/refresh token pair owned by one session.
//
// ExpiresAt is always recorded earlier than the upstream-reported expiry
// so a token is never used right at the edge of its lifetime.
type TokenBundle struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Handshake holds the transient OAuth login state between the initial
// redirect and the provider callback.
//
// Created at login initiation and consumed exactly once at callback;
// the state value must match byte-for-byte or the exchange is rejected.
type Handshake struct {
	Verifier  string    `json:"code_verifier"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the durable per-visitor record. The token bundle and
// handshake are optional: a session exists before login completes.
type Session struct {
	ID        string       `json:"id"`
	Account   string       `json:"account,omitempty"`
	Bundle    *TokenBundle `json:"bundle,omitempty"`
	Handshake *Handshake   `json:"handshake,omitempty"`
	ExpiresAt time.Time    `json:"expires_at"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewSession creates a session with the given ID that expires after ttl.
func NewSession(id string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Expired reports whether the session's own expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Image is an image resource attached to a playlist or profile.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Playlist is the normalized playlist entity stored in the cache and
// returned to API consumers. Normalization happens once, when an
// upstream response is written; reads return it untouched.
type Playlist struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Owner          string  `json:"owner"`
	TrackCount     int     `json:"track_count"`
	Images         []Image `json:"images"`
	Public         bool    `json:"public"`
	Collaborative  bool    `json:"collaborative"`
	FollowersTotal int     `json:"followers_total"`
}

// Track is a normalized playlist entry used by track listings and the
// export formats. Features is only populated when an export asks for
// audio-feature enrichment.
type Track struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Artists    []string       `json:"artists"`
	Album      string         `json:"album"`
	DurationMS int            `json:"duration_ms"`
	AddedAt    string         `json:"added_at"`
	URL        string         `json:"spotify_url"`
	URI        string         `json:"spotify_uri"`
	Features   *AudioFeatures `json:"audio_features,omitempty"`
}

// AudioFeatures is the per-track audio analysis summary.
type AudioFeatures struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Key              int     `json:"key"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	TimeSignature    int     `json:"time_signature"`
}

// PlaylistExport pairs a playlist with its full track listing.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}
