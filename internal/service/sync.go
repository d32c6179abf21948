package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"flagrate-rgb/internal/colour"
	"flagrate-rgb/internal/model"
	"flagrate-rgb/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const EventStatusUpdated = "status.updated"

// CommandSink receives encoded strip commands ("4.").
type CommandSink interface {
	Send(ctx context.Context, command string) error
}

// ImageSource loads a cover by URL or path.
type ImageSource interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// EventPublisher is satisfied by ws.Hub.
type EventPublisher interface {
	BroadcastEvent(evt model.Event)
}

// SyncDeps wires a SyncService. Store, Cache, Publisher and Swatches may be
// nil; Swatches is only consulted for the swatch strategy.
type SyncDeps struct {
	Playback  PlaybackSource
	Images    ImageSource
	Extractor *Extractor
	Swatches  SwatchSource
	Strategy  model.ExtractStrategy
	Mapper    LEDMapper
	Sinks     []CommandSink
	Store     *storage.Store
	Cache     *storage.AlbumCache
	Publisher EventPublisher
	Interval  time.Duration
}

// SyncService polls playback and keeps the strip in step with the cover of
// the album currently playing.
type SyncService struct {
	deps SyncDeps

	mu        sync.RWMutex
	status    model.Status
	applied   model.Status // last status that changed the strip
	lastAlbum string
	idle      bool
}

func NewSyncService(deps SyncDeps) *SyncService {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	if deps.Strategy == "" {
		deps.Strategy = model.ExtractLocal
	}
	s := &SyncService{deps: deps}
	// The album key is not restored: opening the port resets the board, so
	// the first tick after a restart must resend the command.
	if deps.Store != nil {
		if st := deps.Store.GetStatus(); st != nil {
			s.status = *st
		}
	}
	return s
}

// Status returns the most recently published status.
func (s *SyncService) Status() model.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Run ticks until ctx is cancelled. Tick errors are logged and the next tick
// tries again.
func (s *SyncService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()
	log.Info().Dur("interval", s.deps.Interval).Str("strategy", string(s.deps.Strategy)).Msg("Sync loop started")
	if s.deps.Cache != nil {
		if n, err := s.deps.Cache.Prune(s.cacheVariant()); err != nil {
			log.Warn().Err(err).Msg("Album cache prune failed")
		} else if n > 0 {
			log.Info().Int64("rows", n).Msg("Dropped album cache rows from other extraction settings")
		}
	}
	for {
		if err := s.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("Sync tick failed")
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("Sync loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one poll, extraction and dispatch cycle.
func (s *SyncService) Tick(ctx context.Context) error {
	cycle := uuid.NewString()
	pb, err := s.deps.Playback.CurrentPlayback(ctx)
	if err != nil {
		return err
	}

	if pb == nil {
		if s.isIdle() {
			return nil
		}
		st := model.Status{Playing: false, UpdatedAt: time.Now().UnixMilli()}
		log.Info().Str("cycle", cycle).Msg("No playback")
		return s.publish(st, true)
	}

	if pb.AlbumID == s.lastAlbumID() {
		prev := s.Status()
		st := s.appliedStatus()
		st.Playing = true
		st.Playback = pb
		st.UpdatedAt = time.Now().UnixMilli()
		if prev.Playing && prev.Playback != nil && prev.Playback.Track == pb.Track {
			s.setStatus(st, false)
			return nil
		}
		return s.publish(st, false)
	}

	extracted, led, err := s.resolve(ctx, cycle, pb)
	if err != nil {
		return err
	}
	cmd := EncodeCommand(led.Code)
	log.Info().
		Str("cycle", cycle).
		Str("album", pb.AlbumName).
		Str("album_id", pb.AlbumID).
		Str("extracted", extracted.Hex()).
		Int("code", led.Code).
		Msg("Album changed")

	var sendErr error
	for _, sink := range s.deps.Sinks {
		if err := sink.Send(ctx, cmd); err != nil {
			sendErr = errors.Join(sendErr, err)
		}
	}
	if sendErr != nil {
		return sendErr
	}

	st := model.Status{
		Playing:   true,
		Playback:  pb,
		Extracted: extracted,
		LED:       led,
		Command:   cmd,
		UpdatedAt: time.Now().UnixMilli(),
	}
	s.mu.Lock()
	s.lastAlbum = pb.AlbumID
	s.applied = st
	s.mu.Unlock()
	return s.publish(st, false)
}

func (s *SyncService) resolve(ctx context.Context, cycle string, pb *model.Playback) (colour.Color, model.LEDMatch, error) {
	extracted, err := s.extracted(ctx, cycle, pb)
	if err != nil {
		return colour.Color{}, model.LEDMatch{}, err
	}
	return extracted, ResolveLED(s.deps.Mapper, extracted), nil
}

// extracted returns the cover colour of pb's album, from the cache when the
// album was already extracted under the current settings.
func (s *SyncService) extracted(ctx context.Context, cycle string, pb *model.Playback) (colour.Color, error) {
	variant := s.cacheVariant()
	if s.deps.Cache != nil {
		entry, ok, err := s.deps.Cache.Get(pb.AlbumID, variant)
		if err != nil {
			log.Warn().Err(err).Str("cycle", cycle).Msg("Album cache lookup failed")
		} else if ok {
			log.Debug().Str("cycle", cycle).Str("album_id", pb.AlbumID).Msg("Album cache hit")
			return entry.Extracted, nil
		}
	}

	ref := pb.ThumbnailURL()
	img, err := s.deps.Images.Load(ctx, ref)
	if err != nil {
		return colour.Color{}, err
	}
	extracted, err := s.extract(ctx, cycle, img, ref)
	if err != nil {
		return colour.Color{}, err
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Put(storage.AlbumEntry{AlbumID: pb.AlbumID, Variant: variant, Extracted: extracted}); err != nil {
			log.Warn().Err(err).Str("cycle", cycle).Msg("Album cache store failed")
		}
	}
	return extracted, nil
}

// cacheVariant identifies the extraction settings, so a cached colour is only
// reused while the strategy and thresholds that produced it are unchanged.
func (s *SyncService) cacheVariant() string {
	p := s.deps.Extractor.Params()
	return fmt.Sprintf("%s/n%d/g%g,%g/v%d,%d,%d", s.deps.Strategy, p.PaletteSize,
		p.Grayscale.Tolerance, p.Grayscale.Threshold,
		p.Vibrancy.MinLightness, p.Vibrancy.MaxLightness, p.Vibrancy.MinSaturation)
}

func (s *SyncService) extract(ctx context.Context, cycle string, img image.Image, ref string) (colour.Color, error) {
	if s.deps.Strategy != model.ExtractSwatch || s.deps.Swatches == nil {
		return s.deps.Extractor.ExtractMainColor(img)
	}
	sw, err := s.deps.Swatches.Swatches(ctx, ref)
	if err != nil {
		log.Warn().Err(err).Str("cycle", cycle).Msg("Swatch service unavailable, using white")
		return colour.White, nil
	}
	return s.deps.Extractor.ExtractWithSwatches(img, sw)
}

func (s *SyncService) publish(st model.Status, idle bool) error {
	s.setStatus(st, idle)
	if s.deps.Publisher != nil {
		s.deps.Publisher.BroadcastEvent(model.Event{Type: EventStatusUpdated, Payload: st})
	}
	if s.deps.Store != nil {
		return s.deps.Store.SetStatus(st)
	}
	return nil
}

func (s *SyncService) setStatus(st model.Status, idle bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
	s.idle = idle
}

func (s *SyncService) isIdle() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idle
}

func (s *SyncService) appliedStatus() model.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied
}

func (s *SyncService) lastAlbumID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAlbum
}
