// package spotify is the typed Spotify Web API client.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package spotify

import "github.com/desertthunder/spindle/internal/models"

type followers struct {
	Total int `json:"total"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// User represents a Spotify user profile.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Country     string    `json:"country"`
	Product     string    `json:"product"` // premium, free, etc.
	Followers   followers `json:"followers"`
	Images      []Image   `json:"images"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Artist represents a Spotify artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Album represents a Spotify album.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []Artist `json:"artists"`
	ReleaseDate string   `json:"release_date"`
	TotalTracks int      `json:"total_tracks"`
	Images      []Image  `json:"images"`
	URI         string   `json:"uri"`
}

// Track represents a Spotify track.
type Track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Artists      []Artist     `json:"artists"`
	Album        Album        `json:"album"`
	DurationMS   int          `json:"duration_ms"`
	Explicit     bool         `json:"explicit"`
	ExternalURLs externalURLs `json:"external_urls"`
	URI          string       `json:"uri"`
}

// Owner identifies who owns a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracks struct {
	Total int `json:"total"`
}

// Playlist represents a Spotify playlist object.
type Playlist struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Owner         Owner          `json:"owner"`
	Public        bool           `json:"public"`
	Collaborative bool           `json:"collaborative"`
	Followers     followers      `json:"followers"`
	Tracks        playlistTracks `json:"tracks"`
	Images        []Image        `json:"images"`
	URI           string         `json:"uri"`
}

// PlaylistTrack represents a track within a playlist context.
type PlaylistTrack struct {
	AddedAt string `json:"added_at"`
	Track   Track  `json:"track"`
}

// PaginatedPlaylists represents a paginated response of playlists.
type PaginatedPlaylists struct {
	Items    []Playlist `json:"items"`
	Total    int        `json:"total"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
}

// PaginatedTracks represents a paginated response of playlist tracks.
type PaginatedTracks struct {
	Items    []PlaylistTrack `json:"items"`
	Total    int             `json:"total"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
}

// AudioFeatures is the audio analysis summary for a single track.
type AudioFeatures struct {
	ID               string  `json:"id"`
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

// audioFeaturesEnvelope wraps the batch audio-features endpoint.
// Entries are null for tracks the API has no analysis for.
type audioFeaturesEnvelope struct {
	AudioFeatures []*AudioFeatures `json:"audio_features"`
}

// featuredPlaylists wraps the browse endpoint's envelope.
type featuredPlaylists struct {
	Message   string             `json:"message"`
	Playlists PaginatedPlaylists `json:"playlists"`
}

// normalizePlaylist converts an API playlist into the stored form.
func normalizePlaylist(p Playlist) models.Playlist {
	images := make([]models.Image, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, models.Image{URL: img.URL, Height: img.Height, Width: img.Width})
	}

	owner := p.Owner.DisplayName
	if owner == "" {
		owner = p.Owner.ID
	}

	return models.Playlist{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Owner:          owner,
		TrackCount:     p.Tracks.Total,
		Images:         images,
		Public:         p.Public,
		Collaborative:  p.Collaborative,
		FollowersTotal: p.Followers.Total,
	}
}

// normalizeFeatures converts an API analysis object into the stored form.
func normalizeFeatures(f *AudioFeatures) *models.AudioFeatures {
	return &models.AudioFeatures{
		Danceability:     f.Danceability,
		Energy:           f.Energy,
		Key:              f.Key,
		Loudness:         f.Loudness,
		Mode:             f.Mode,
		Speechiness:      f.Speechiness,
		Acousticness:     f.Acousticness,
		Instrumentalness: f.Instrumentalness,
		Liveness:         f.Liveness,
		Valence:          f.Valence,
		Tempo:            f.Tempo,
		TimeSignature:    f.TimeSignature,
	}
}

// normalizeTrack converts a playlist entry into the stored form.
func normalizeTrack(item PlaylistTrack) models.Track {
	artists := make([]string, 0, len(item.Track.Artists))
	for _, a := range item.Track.Artists {
		artists = append(artists, a.Name)
	}

	return models.Track{
		ID:         item.Track.ID,
		Title:      item.Track.Name,
		Artists:    artists,
		Album:      item.Track.Album.Name,
		DurationMS: item.Track.DurationMS,
		AddedAt:    item.AddedAt,
		URL:        item.Track.ExternalURLs.Spotify,
		URI:        item.Track.URI,
	}
}
