package service

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync"
	"testing"

	"flagrate-rgb/internal/colour"
	"flagrate-rgb/internal/model"
	"flagrate-rgb/internal/storage"
)

type scriptedPlayback struct {
	mu    sync.Mutex
	steps []*model.Playback
	err   error
}

func (p *scriptedPlayback) CurrentPlayback(context.Context) (*model.Playback, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	if len(p.steps) == 0 {
		return nil, nil
	}
	pb := p.steps[0]
	p.steps = p.steps[1:]
	return pb, nil
}

type countingImages struct {
	loads int
	err   error
}

func (i *countingImages) Load(context.Context, string) (image.Image, error) {
	i.loads++
	if i.err != nil {
		return nil, i.err
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

type recordingSink struct {
	sent []string
	err  error
}

func (s *recordingSink) Send(_ context.Context, cmd string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, cmd)
	return nil
}

type recordingPublisher struct {
	events []model.Event
}

func (p *recordingPublisher) BroadcastEvent(evt model.Event) {
	p.events = append(p.events, evt)
}

type fakeSwatches struct {
	swatches map[string]colour.Color
	err      error
}

func (f fakeSwatches) Swatches(context.Context, string) (map[string]colour.Color, error) {
	return f.swatches, f.err
}

func playbackOf(album, track string) *model.Playback {
	return &model.Playback{
		Track:     track,
		Artist:    "artist",
		AlbumName: "album " + album,
		AlbumID:   album,
		Images:    []model.CoverImage{{URL: "https://i.scdn.co/image/" + album, Width: 64}},
	}
}

func newTestSync(t *testing.T, pb PlaybackSource, palette []colour.Color) (*SyncService, *countingImages, *recordingSink, *recordingPublisher) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	images := &countingImages{}
	sink := &recordingSink{}
	pub := &recordingPublisher{}
	svc := NewSyncService(SyncDeps{
		Playback:  pb,
		Images:    images,
		Extractor: NewExtractor(staticQuantizer{colors: palette}, DefaultExtractorParams()),
		Mapper:    NewHueMapper(DefaultHueTable()),
		Sinks:     []CommandSink{sink},
		Store:     store,
		Publisher: pub,
	})
	return svc, images, sink, pub
}

func tickN(t *testing.T, s *SyncService, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := s.Tick(context.Background()); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
}

func TestSyncSendsOnlyOnAlbumChange(t *testing.T) {
	pb := &scriptedPlayback{steps: []*model.Playback{
		playbackOf("a", "one"),
		playbackOf("a", "one"),
		playbackOf("a", "two"),
		playbackOf("b", "three"),
	}}
	svc, images, sink, pub := newTestSync(t, pb, []colour.Color{{R: 220, G: 20, B: 20}})

	tickN(t, svc, 4)

	if len(sink.sent) != 2 || sink.sent[0] != "4." || sink.sent[1] != "4." {
		t.Fatalf("unexpected commands: %v", sink.sent)
	}
	if images.loads != 2 {
		t.Fatalf("expected 2 cover loads, got %d", images.loads)
	}
	// album a, track change within a, album b; the repeat tick is silent.
	if len(pub.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(pub.events))
	}
	st := svc.Status()
	if !st.Playing || st.Playback.Track != "three" || st.LED.Code != 4 || st.Command != "4." {
		t.Fatalf("unexpected status: %+v", st)
	}
	if pub.events[1].Type != EventStatusUpdated {
		t.Fatalf("unexpected event type %q", pub.events[1].Type)
	}
	if got := pub.events[1].Payload.(model.Status); got.LED.Code != 4 || got.Playback.Track != "two" {
		t.Fatalf("track refresh lost the LED match: %+v", got)
	}
}

func TestSyncNoPlaybackPublishedOnce(t *testing.T) {
	pb := &scriptedPlayback{steps: []*model.Playback{playbackOf("a", "one"), nil, nil, playbackOf("a", "one")}}
	svc, _, sink, pub := newTestSync(t, pb, []colour.Color{{R: 20, G: 200, B: 20}})

	tickN(t, svc, 4)

	if len(sink.sent) != 1 || sink.sent[0] != "9." {
		t.Fatalf("unexpected commands: %v", sink.sent)
	}
	if len(pub.events) != 3 {
		t.Fatalf("expected play, pause, resume events, got %d", len(pub.events))
	}
	if paused := pub.events[1].Payload.(model.Status); paused.Playing {
		t.Fatal("second event should be no playback")
	}
	resumed := svc.Status()
	if !resumed.Playing || resumed.LED.Code != 9 {
		t.Fatalf("resume lost the LED match: %+v", resumed)
	}
}

func TestSyncGrayscaleCoverSendsWhite(t *testing.T) {
	pb := &scriptedPlayback{steps: []*model.Playback{playbackOf("bw", "one")}}
	svc, _, sink, _ := newTestSync(t, pb, []colour.Color{{R: 10, G: 10, B: 10}, {R: 128, G: 128, B: 128}})

	tickN(t, svc, 1)

	if len(sink.sent) != 1 || sink.sent[0] != "12." {
		t.Fatalf("expected white command, got %v", sink.sent)
	}
	if svc.Status().LED.Color != colour.White {
		t.Fatalf("unexpected LED colour: %v", svc.Status().LED.Color)
	}
}

func TestSyncErrorsSkipTick(t *testing.T) {
	t.Run("playback error", func(t *testing.T) {
		svc, _, sink, _ := newTestSync(t, &scriptedPlayback{err: errors.New("429")}, nil)
		if err := svc.Tick(context.Background()); err == nil {
			t.Fatal("expected error")
		}
		if len(sink.sent) != 0 {
			t.Fatal("nothing should be sent")
		}
	})

	t.Run("decode error retries next tick", func(t *testing.T) {
		pb := &scriptedPlayback{steps: []*model.Playback{playbackOf("a", "one"), playbackOf("a", "one")}}
		svc, images, sink, _ := newTestSync(t, pb, []colour.Color{{R: 220, G: 20, B: 20}})
		images.err = ErrDecode
		if err := svc.Tick(context.Background()); !errors.Is(err, ErrDecode) {
			t.Fatalf("expected ErrDecode, got %v", err)
		}
		images.err = nil
		tickN(t, svc, 1)
		if len(sink.sent) != 1 {
			t.Fatalf("expected retry to send, got %v", sink.sent)
		}
	})

	t.Run("sink error retries next tick", func(t *testing.T) {
		pb := &scriptedPlayback{steps: []*model.Playback{playbackOf("a", "one"), playbackOf("a", "one")}}
		svc, _, sink, _ := newTestSync(t, pb, []colour.Color{{R: 220, G: 20, B: 20}})
		sink.err = errors.New("port gone")
		if err := svc.Tick(context.Background()); err == nil {
			t.Fatal("expected sink error")
		}
		sink.err = nil
		tickN(t, svc, 1)
		if len(sink.sent) != 1 {
			t.Fatalf("expected resend, got %v", sink.sent)
		}
	})
}

func TestSyncSwatchStrategy(t *testing.T) {
	tests := []struct {
		name     string
		swatches SwatchSource
		want     string
	}{
		{
			name:     "best swatch",
			swatches: fakeSwatches{swatches: map[string]colour.Color{"vibrant": {R: 20, G: 200, B: 20}, "muted": {R: 120, G: 120, B: 120}}},
			want:     "9.",
		},
		{
			name:     "service down",
			swatches: fakeSwatches{err: errors.New("timeout")},
			want:     "12.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			svc := NewSyncService(SyncDeps{
				Playback:  &scriptedPlayback{steps: []*model.Playback{playbackOf("a", "one")}},
				Images:    &countingImages{},
				Extractor: NewExtractor(staticQuantizer{colors: []colour.Color{{R: 30, G: 180, B: 40}}}, DefaultExtractorParams()),
				Swatches:  tt.swatches,
				Strategy:  model.ExtractSwatch,
				Mapper:    NewHueMapper(DefaultHueTable()),
				Sinks:     []CommandSink{sink},
			})
			tickN(t, svc, 1)
			if len(sink.sent) != 1 || sink.sent[0] != tt.want {
				t.Fatalf("got %v, want %s", sink.sent, tt.want)
			}
		})
	}
}

func TestSyncUsesAlbumCache(t *testing.T) {
	cache, err := storage.OpenAlbumCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer cache.Close()

	newSvc := func(mapper LEDMapper, images ImageSource, sink CommandSink) *SyncService {
		return NewSyncService(SyncDeps{
			Playback:  &scriptedPlayback{steps: []*model.Playback{playbackOf("alb", "one")}},
			Images:    images,
			Extractor: NewExtractor(staticQuantizer{colors: []colour.Color{{R: 20, G: 60, B: 200}}}, DefaultExtractorParams()),
			Mapper:    mapper,
			Sinks:     []CommandSink{sink},
			Cache:     cache,
		})
	}

	firstImages, firstSink := &countingImages{}, &recordingSink{}
	tickN(t, newSvc(NewHueMapper(nil), firstImages, firstSink), 1)
	if firstImages.loads != 1 || len(firstSink.sent) != 1 || firstSink.sent[0] != "15." {
		t.Fatalf("first run: loads=%d sent=%v", firstImages.loads, firstSink.sent)
	}

	// A different mapper on the same cache must re-map the cached colour.
	rgb := NewRGBMapper([]model.RGBBucket{
		{Color: colour.Color{R: 255}, Code: 1},
		{Color: colour.Color{B: 255}, Code: 2},
	})
	images, sink := &countingImages{}, &recordingSink{}
	tickN(t, newSvc(rgb, images, sink), 1)
	if images.loads != 0 {
		t.Fatalf("cache hit should skip download, got %d loads", images.loads)
	}
	if len(sink.sent) != 1 || sink.sent[0] != "2." {
		t.Fatalf("expected code from the active table, got %v", sink.sent)
	}
}

func TestSyncCacheMissesAfterThresholdChange(t *testing.T) {
	cache, err := storage.OpenAlbumCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer cache.Close()

	run := func(params ExtractorParams) *countingImages {
		images := &countingImages{}
		svc := NewSyncService(SyncDeps{
			Playback:  &scriptedPlayback{steps: []*model.Playback{playbackOf("alb", "one")}},
			Images:    images,
			Extractor: NewExtractor(staticQuantizer{colors: []colour.Color{{R: 220, G: 20, B: 20}}}, params),
			Mapper:    NewHueMapper(nil),
			Sinks:     []CommandSink{&recordingSink{}},
			Cache:     cache,
		})
		tickN(t, svc, 1)
		return images
	}

	run(DefaultExtractorParams())
	tuned := DefaultExtractorParams()
	tuned.Vibrancy.MinSaturation = 40
	if images := run(tuned); images.loads != 1 {
		t.Fatalf("new settings should re-extract, got %d loads", images.loads)
	}
	if images := run(tuned); images.loads != 0 {
		t.Fatalf("same settings should hit the cache, got %d loads", images.loads)
	}
}

func TestSyncRunStopsOnCancel(t *testing.T) {
	svc, _, _, _ := newTestSync(t, &scriptedPlayback{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
}
