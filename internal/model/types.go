package model

import (
	"fmt"
	"time"

	"flagrate-rgb/internal/colour"
)

type ExtractStrategy string

const (
	ExtractLocal  ExtractStrategy = "local"
	ExtractSwatch ExtractStrategy = "swatch"
)

type LEDStrategy string

const (
	LEDHue LEDStrategy = "hue"
	LEDRGB LEDStrategy = "rgb"
)

// WhiteCode is the strip's reserved white preset.
const WhiteCode = 12

type CoverImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Playback is what the streaming service reports for the current track.
// AlbumID is the change-detection key; titles can be non-ASCII or repeat.
type Playback struct {
	Track     string       `json:"track"`
	Artist    string       `json:"artist"`
	AlbumName string       `json:"album_name"`
	AlbumID   string       `json:"album_id"`
	Images    []CoverImage `json:"images"`
}

// ThumbnailURL returns the smallest cover variant. Sizes of zero are treated
// as unknown and only used when nothing else is available.
func (p Playback) ThumbnailURL() string {
	best := -1
	for i, img := range p.Images {
		if img.URL == "" {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		cur := p.Images[best]
		if img.Width > 0 && (cur.Width == 0 || img.Width < cur.Width) {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return p.Images[best].URL
}

type PaletteEntry struct {
	Color     colour.Color `json:"color"`
	Grayscale bool         `json:"grayscale"`
}

type LEDMatch struct {
	Code  int          `json:"code"`
	Color colour.Color `json:"color"`
}

type Status struct {
	Playing   bool         `json:"playing"`
	Playback  *Playback    `json:"playback,omitempty"`
	Extracted colour.Color `json:"extracted"`
	LED       LEDMatch     `json:"led"`
	Command   string       `json:"command"`
	UpdatedAt int64        `json:"updated_at_unix_ms"`
}

// MenuLines mirrors the tray menu: track line and album line while playing.
func (s Status) MenuLines() []string {
	if !s.Playing || s.Playback == nil {
		return []string{"⏸️ No playback"}
	}
	return []string{
		fmt.Sprintf("🎧 %s - %s", s.Playback.Artist, s.Playback.Track),
		fmt.Sprintf("📀 %s", s.Playback.AlbumName),
	}
}

type HardwareCommand struct {
	DeviceID  string `json:"device_id"`
	Command   string `json:"command"`
	Code      int    `json:"code"`
	CreatedAt int64  `json:"created_at_unix_ms"`
}

type StoredState struct {
	LatestStatus      *Status   `json:"latest_status,omitempty"`
	LastUpdatedUnixMS int64     `json:"last_updated_unix_ms"`
	CreatedAt         time.Time `json:"created_at"`
}

type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	CreatedAt int64       `json:"created_at_unix_ms"`
}

// HueBucket binds a hue in degrees to a strip command code.
type HueBucket struct {
	Hue  int `json:"hue" yaml:"hue"`
	Code int `json:"code" yaml:"code"`
}

// RGBBucket binds a literal strip colour to a command code.
type RGBBucket struct {
	Color colour.Color `json:"color"`
	Code  int          `json:"code"`
}
