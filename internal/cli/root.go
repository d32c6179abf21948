// Package cli provides the command-line interface for flagrate.
package cli

import (
	"fmt"
	"os"
	"time"

	"flagrate-rgb/internal/config"
	"flagrate-rgb/internal/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfg config.Config

	logLevel string
	logJSON  bool

	rootCmd = &cobra.Command{
		Use:   "flagrate",
		Short: "Paint an LED strip with the colour of the album you are playing",
		Long: `flagrate watches Spotify playback, picks the dominant colour of the current
album cover and drives an LED strip controller to the closest preset.

Commands are written to an Arduino on a serial port and pushed to network
controllers connected over WebSocket.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			level := cfg.LogLevel
			if cmd.Flags().Changed("log-level") {
				level = logLevel
			}
			setupLogging(level, logJSON || cfg.LogJSON)
			return nil
		},
	}
)

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit JSON logs")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(sendCmd)
}

func setupLogging(level string, useJSON bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// pipeline builds the extractor and mapper from the tuning in c.
func pipeline(c config.Config) (*service.Extractor, service.LEDMapper) {
	extractor := service.NewExtractor(service.NewKmeansQuantizer(), service.ExtractorParams{
		PaletteSize: c.Tuning.PaletteSize,
		Grayscale:   c.Tuning.Grayscale,
		Vibrancy:    c.Tuning.Vibrancy,
	})
	mapper := service.NewLEDMapper(c.LEDStrategy, c.Tuning.HueTable, c.Tuning.RGBTable)
	return extractor, mapper
}
