package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"flagrate-rgb/internal/config"
	"flagrate-rgb/internal/model"
	"golang.org/x/oauth2"
)

var ErrNoSpotifyCredentials = errors.New("spotify client id, secret and refresh token are required")

var spotifyScopes = []string{"user-read-currently-playing", "user-read-playback-state"}

// PlaybackSource reports the current track, or nil when nothing is playing.
type PlaybackSource interface {
	CurrentPlayback(ctx context.Context) (*model.Playback, error)
}

type SpotifyClient struct {
	baseURL string
	http    *http.Client
}

func NewSpotifyClient(cfg config.Config) (*SpotifyClient, error) {
	if strings.TrimSpace(cfg.SpotifyClientID) == "" ||
		strings.TrimSpace(cfg.SpotifyClientSecret) == "" ||
		strings.TrimSpace(cfg.SpotifyRefreshToken) == "" {
		return nil, ErrNoSpotifyCredentials
	}
	oc := &oauth2.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RedirectURL:  cfg.SpotifyRedirectURI,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.spotify.com/authorize",
			TokenURL: cfg.SpotifyTokenURL,
		},
	}
	base := &http.Client{Timeout: cfg.HTTPTimeout()}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := oc.Client(ctx, &oauth2.Token{RefreshToken: cfg.SpotifyRefreshToken})
	client.Timeout = cfg.HTTPTimeout()
	return NewSpotifyClientWithHTTP(cfg.SpotifyAPIBaseURL, client), nil
}

func NewSpotifyClientWithHTTP(baseURL string, c *http.Client) *SpotifyClient {
	return &SpotifyClient{baseURL: strings.TrimRight(baseURL, "/"), http: c}
}

type spotifyCurrentlyPlaying struct {
	IsPlaying bool   `json:"is_playing"`
	Type      string `json:"currently_playing_type"`
	Item      *struct {
		Name    string `json:"name"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
		Album *struct {
			ID     string             `json:"id"`
			Name   string             `json:"name"`
			Images []model.CoverImage `json:"images"`
		} `json:"album"`
	} `json:"item"`
}

func (c *SpotifyClient) CurrentPlayback(ctx context.Context) (*model.Playback, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/me/player/currently-playing", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("spotify status=%d", resp.StatusCode)
	}

	var out spotifyCurrentlyPlaying
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("spotify decode: %w", err)
	}
	return out.playback(), nil
}

// playback returns nil for anything without album art: no item, podcast
// episodes or ads. A paused track still counts as the current one.
func (p spotifyCurrentlyPlaying) playback() *model.Playback {
	if p.Item == nil || p.Item.Album == nil {
		return nil
	}
	if p.Type != "" && p.Type != "track" {
		return nil
	}
	if p.Item.Album.ID == "" || len(p.Item.Album.Images) == 0 {
		return nil
	}
	artist := ""
	if len(p.Item.Artists) > 0 {
		artist = p.Item.Artists[0].Name
	}
	return &model.Playback{
		Track:     p.Item.Name,
		Artist:    artist,
		AlbumName: p.Item.Album.Name,
		AlbumID:   p.Item.Album.ID,
		Images:    p.Item.Album.Images,
	}
}
