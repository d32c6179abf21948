package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"flagrate-rgb/internal/api"
	"flagrate-rgb/internal/device"
	"flagrate-rgb/internal/model"
	"flagrate-rgb/internal/service"
	"flagrate-rgb/internal/storage"
	"flagrate-rgb/internal/ws"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	runSerialPort string
	runListenAddr string
	runNoHTTP     bool

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Follow playback and drive the strip",
		RunE:  runSync,
	}
)

func init() {
	runCmd.Flags().StringVar(&runSerialPort, "port", "", "serial port of the strip controller (overrides SERIAL_PORT)")
	runCmd.Flags().StringVar(&runListenAddr, "listen", "", "HTTP listen address (overrides LISTEN_ADDR)")
	runCmd.Flags().BoolVar(&runNoHTTP, "no-http", false, "do not serve the status API")
}

func runSync(cmd *cobra.Command, _ []string) error {
	if runSerialPort != "" {
		cfg.SerialPort = runSerialPort
	}
	if runListenAddr != "" {
		cfg.ListenAddr = runListenAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(cfg.DataPath)
	if err != nil {
		return err
	}

	var cache *storage.AlbumCache
	if cfg.CachePath != "" {
		cache, err = storage.OpenAlbumCache(cfg.CachePath)
		if err != nil {
			return err
		}
		defer cache.Close()
	}

	spotify, err := service.NewSpotifyClient(cfg)
	if err != nil {
		return err
	}

	hub := ws.NewHub()
	go hub.Run(ctx)
	hardwareHub := ws.NewHardwareHub()

	sinks := []service.CommandSink{hardwareHub}
	if cfg.SerialPort != "" {
		arduino, err := device.Open(cfg.SerialPort, cfg.SerialBaud,
			time.Duration(cfg.SerialSettleMS)*time.Millisecond,
			device.WithCommandInterval(time.Duration(cfg.CommandIntervalMS)*time.Millisecond))
		if err != nil {
			return err
		}
		defer arduino.Close()
		sinks = append(sinks, arduino)
	} else {
		log.Warn().Msg("No serial port configured, commands go to network devices only")
	}

	var swatches service.SwatchSource
	if cfg.ExtractStrategy == model.ExtractSwatch {
		swatches = service.NewVibrantClient(cfg.VibrantAPIURL, cfg.HTTPTimeout())
	}

	extractor, mapper := pipeline(cfg)
	syncSvc := service.NewSyncService(service.SyncDeps{
		Playback:  spotify,
		Images:    service.NewImageLoader(cfg.HTTPTimeout()),
		Extractor: extractor,
		Swatches:  swatches,
		Strategy:  cfg.ExtractStrategy,
		Mapper:    mapper,
		Sinks:     sinks,
		Store:     store,
		Cache:     cache,
		Publisher: hub,
		Interval:  cfg.PollInterval(),
	})

	var srv *http.Server
	if !runNoHTTP {
		srv = &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           api.NewRouter(cfg, hub, hardwareHub, syncSvc, extractor, mapper),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.ListenAddr).Msg("Status API listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Status API failed")
				stop()
			}
		}()
	}

	err = syncSvc.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error during shutdown")
		}
	}
	return err
}
