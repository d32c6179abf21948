package model

import "testing"

func TestThumbnailURLPicksSmallest(t *testing.T) {
	p := Playback{Images: []CoverImage{
		{URL: "https://i.scdn.co/image/large", Width: 640, Height: 640},
		{URL: "https://i.scdn.co/image/medium", Width: 300, Height: 300},
		{URL: "https://i.scdn.co/image/small", Width: 64, Height: 64},
	}}
	if got := p.ThumbnailURL(); got != "https://i.scdn.co/image/small" {
		t.Fatalf("unexpected thumbnail: %s", got)
	}
}

func TestThumbnailURLUnknownSizes(t *testing.T) {
	p := Playback{Images: []CoverImage{
		{URL: ""},
		{URL: "https://example.com/a"},
		{URL: "https://example.com/b", Width: 300},
	}}
	if got := p.ThumbnailURL(); got != "https://example.com/b" {
		t.Fatalf("unexpected thumbnail: %s", got)
	}
	if got := (Playback{}).ThumbnailURL(); got != "" {
		t.Fatalf("expected empty thumbnail, got %s", got)
	}
}

func TestMenuLines(t *testing.T) {
	idle := Status{}
	if lines := idle.MenuLines(); len(lines) != 1 || lines[0] != "⏸️ No playback" {
		t.Fatalf("unexpected idle lines: %v", lines)
	}
	playing := Status{Playing: true, Playback: &Playback{Track: "Song", Artist: "Band", AlbumName: "Record"}}
	lines := playing.MenuLines()
	if len(lines) != 2 || lines[0] != "🎧 Band - Song" || lines[1] != "📀 Record" {
		t.Fatalf("unexpected playing lines: %v", lines)
	}
}
