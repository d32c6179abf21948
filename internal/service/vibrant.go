package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"flagrate-rgb/internal/colour"
)

var ErrNoVibrantURL = errors.New("vibrant api url not configured")

// SwatchSource returns named swatches ("vibrant", "muted", ...) for a cover.
type SwatchSource interface {
	Swatches(ctx context.Context, imageURL string) (map[string]colour.Color, error)
}

type VibrantClient struct {
	baseURL string
	http    *http.Client
}

func NewVibrantClient(baseURL string, timeout time.Duration) *VibrantClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &VibrantClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Swatches asks the service about a Spotify cover by its image id, which is
// the last path segment of the cover URL.
func (c *VibrantClient) Swatches(ctx context.Context, imageURL string) (map[string]colour.Color, error) {
	if strings.TrimSpace(c.baseURL) == "" {
		return nil, ErrNoVibrantURL
	}
	id := imageID(imageURL)
	if id == "" {
		return nil, fmt.Errorf("no image id in %q", imageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?icon_id="+url.QueryEscape(id), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("vibrant status=%d", resp.StatusCode)
	}

	var raw map[string][]int
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	out := make(map[string]colour.Color, len(raw))
	for name, rgb := range raw {
		if len(rgb) != 3 {
			return nil, fmt.Errorf("swatch %q: want 3 channels, got %d", name, len(rgb))
		}
		sw, err := colour.New(rgb[0], rgb[1], rgb[2])
		if err != nil {
			return nil, fmt.Errorf("swatch %q: %w", name, err)
		}
		out[name] = sw
	}
	return out, nil
}

func imageID(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}
	id := path.Base(u.Path)
	if id == "/" || id == "." {
		return ""
	}
	return id
}
