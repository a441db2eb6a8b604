package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/spindle/internal/gateway"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	AuthURL  = "https://accounts.spotify.com/authorize"
	TokenURL = "https://accounts.spotify.com/api/token"
	BaseURL  = "https://api.spotify.com/v1"
)

// Scopes are the OAuth scopes the service requests at login. The
// modify scopes are needed for playlist creation.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
}

var (
	playlistURLPattern = regexp.MustCompile(`open\.spotify\.com/playlist/([A-Za-z0-9]+)`)
	playlistURIPattern = regexp.MustCompile(`^spotify:playlist:([A-Za-z0-9]+)$`)
	playlistIDPattern  = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)
)

// NewOAuthConfig builds the authorization-code config from the
// service credentials.
func NewOAuthConfig(conf shared.SpotifyConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		RedirectURL:  conf.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthURL,
			TokenURL: TokenURL,
		},
	}
}

// NewAppConfig builds the client-credentials config used for
// app-scoped calls that need no user session.
func NewAppConfig(conf shared.SpotifyConfig) *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		TokenURL:     TokenURL,
	}
}

// ExtractPlaylistID pulls the playlist ID out of a share URL, a
// spotify: URI, or a bare ID.
func ExtractPlaylistID(input string) (string, error) {
	if m := playlistURLPattern.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}
	if m := playlistURIPattern.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}
	if playlistIDPattern.MatchString(input) {
		return input, nil
	}
	return "", fmt.Errorf("%w: not a playlist URL, URI, or ID: %q", shared.ErrInvalidInput, input)
}

// Doer is the slice of the gateway the client issues calls through.
type Doer interface {
	Request(ctx context.Context, method, path string, sess *models.Session, body []byte) (*gateway.Response, error)
}

// Client wraps the gateway with typed Spotify API calls.
//
// Every method returns normalized entities; raw API shapes never leave
// this package.
type Client struct {
	gw Doer
}

// NewClient creates a [Client] over the given gateway.
func NewClient(gw Doer) *Client {
	return &Client{gw: gw}
}

func (c *Client) get(ctx context.Context, path string, sess *models.Session, result any) error {
	resp, err := c.gw.Request(ctx, "GET", path, sess, nil)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body, result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}

func (c *Client) post(ctx context.Context, path string, sess *models.Session, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request for %s: %w", path, err)
	}

	resp, err := c.gw.Request(ctx, "POST", path, sess, body)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body, result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}

// Me retrieves the authenticated user's profile.
func (c *Client) Me(ctx context.Context, sess *models.Session) (*User, error) {
	var user User
	if err := c.get(ctx, "/me", sess, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FeaturedPlaylists retrieves the featured playlist set using the
// app-scoped credential.
func (c *Client) FeaturedPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var all []models.Playlist
	limit := 50
	offset := 0

	for {
		path := fmt.Sprintf("/browse/featured-playlists?limit=%d&offset=%d", limit, offset)

		var response featuredPlaylists
		if err := c.get(ctx, path, nil, &response); err != nil {
			return nil, err
		}

		for _, p := range response.Playlists.Items {
			all = append(all, normalizePlaylist(p))
		}

		if response.Playlists.Next == nil {
			break
		}
		offset += limit
	}

	return all, nil
}

// CurrentUserPlaylists retrieves every playlist the session's user
// follows or owns.
func (c *Client) CurrentUserPlaylists(ctx context.Context, sess *models.Session) ([]models.Playlist, error) {
	var all []models.Playlist
	limit := 50
	offset := 0

	for {
		path := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

		var response PaginatedPlaylists
		if err := c.get(ctx, path, sess, &response); err != nil {
			return nil, err
		}

		for _, p := range response.Items {
			all = append(all, normalizePlaylist(p))
		}

		if response.Next == nil {
			break
		}
		offset += limit
	}

	return all, nil
}

// OwnedPlaylists retrieves the subset of the user's playlists the
// given account owns.
func (c *Client) OwnedPlaylists(ctx context.Context, sess *models.Session, account string) ([]models.Playlist, error) {
	var owned []models.Playlist
	limit := 50
	offset := 0

	for {
		path := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

		var response PaginatedPlaylists
		if err := c.get(ctx, path, sess, &response); err != nil {
			return nil, err
		}

		for _, p := range response.Items {
			if p.Owner.ID != account {
				continue
			}
			owned = append(owned, normalizePlaylist(p))
		}

		if response.Next == nil {
			break
		}
		offset += limit
	}

	return owned, nil
}

// Playlist retrieves a single playlist by ID.
func (c *Client) Playlist(ctx context.Context, sess *models.Session, playlistID string) (*models.Playlist, error) {
	var p Playlist
	if err := c.get(ctx, fmt.Sprintf("/playlists/%s", playlistID), sess, &p); err != nil {
		return nil, err
	}

	normalized := normalizePlaylist(p)
	return &normalized, nil
}

// PlaylistTracks retrieves the full track listing for a playlist,
// following pagination to the end.
func (c *Client) PlaylistTracks(ctx context.Context, sess *models.Session, playlistID string) ([]models.Track, error) {
	var all []models.Track
	limit := 100
	offset := 0

	for {
		path := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, limit, offset)

		var response PaginatedTracks
		if err := c.get(ctx, path, sess, &response); err != nil {
			return nil, err
		}

		for _, item := range response.Items {
			if item.Track.ID == "" {
				// Local files and removed tracks come through with
				// no usable track object.
				continue
			}
			all = append(all, normalizeTrack(item))
		}

		if response.Next == nil {
			break
		}
		offset += limit
	}

	return all, nil
}

// ExportPlaylist retrieves a playlist along with its complete track
// listing.
func (c *Client) ExportPlaylist(ctx context.Context, sess *models.Session, playlistID string) (*models.PlaylistExport, error) {
	playlist, err := c.Playlist(ctx, sess, playlistID)
	if err != nil {
		return nil, err
	}

	tracks, err := c.PlaylistTracks(ctx, sess, playlistID)
	if err != nil {
		return nil, err
	}

	return &models.PlaylistExport{
		Playlist: *playlist,
		Tracks:   tracks,
	}, nil
}

// CreatePlaylist creates an empty playlist for the given account. The
// session must carry a token granted the playlist-modify scopes.
func (c *Client) CreatePlaylist(ctx context.Context, sess *models.Session, account, name, description string, public bool) (*models.Playlist, error) {
	if account == "" {
		return nil, fmt.Errorf("%w: account", shared.ErrMissingArgument)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	payload := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var p Playlist
	if err := c.post(ctx, fmt.Sprintf("/users/%s/playlists", account), sess, payload, &p); err != nil {
		return nil, err
	}

	normalized := normalizePlaylist(p)
	return &normalized, nil
}

// featureBatchSize is the upstream limit on IDs per audio-features call.
const featureBatchSize = 100

// AttachAudioFeatures fetches the audio analysis summary for the given
// tracks and fills in their Features fields in place. Tracks the API
// has no analysis for are left untouched.
func (c *Client) AttachAudioFeatures(ctx context.Context, sess *models.Session, tracks []models.Track) error {
	byID := make(map[string][]*models.Track, len(tracks))
	ids := make([]string, 0, len(tracks))
	for i := range tracks {
		id := tracks[i].ID
		if id == "" {
			continue
		}
		if _, seen := byID[id]; !seen {
			ids = append(ids, id)
		}
		byID[id] = append(byID[id], &tracks[i])
	}

	for start := 0; start < len(ids); start += featureBatchSize {
		end := min(start+featureBatchSize, len(ids))
		path := fmt.Sprintf("/audio-features?ids=%s", strings.Join(ids[start:end], ","))

		var response audioFeaturesEnvelope
		if err := c.get(ctx, path, sess, &response); err != nil {
			return err
		}

		for _, f := range response.AudioFeatures {
			if f == nil {
				continue
			}
			for _, track := range byID[f.ID] {
				track.Features = normalizeFeatures(f)
			}
		}
	}

	return nil
}
