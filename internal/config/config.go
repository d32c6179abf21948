package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"flagrate-rgb/internal/model"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr          string
	DataPath            string
	CachePath           string
	SerialPort          string
	SerialBaud          int
	SerialSettleMS      int
	CommandIntervalMS   int
	PollIntervalMS      int
	HTTPTimeoutSec      int
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURI  string
	SpotifyRefreshToken string
	SpotifyAPIBaseURL   string
	SpotifyTokenURL     string
	VibrantAPIURL       string
	ExtractStrategy     model.ExtractStrategy
	LEDStrategy         model.LEDStrategy
	LogLevel            string
	LogJSON             bool
	TuningPath          string
	MaxUploadSizeBytes  int64
	Tuning              Tuning
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:          getEnv("LISTEN_ADDR", ":8080"),
		DataPath:            getEnv("DATA_PATH", "./data/state.json"),
		CachePath:           os.Getenv("CACHE_PATH"),
		SerialPort:          os.Getenv("SERIAL_PORT"),
		SerialBaud:          getEnvInt("SERIAL_BAUD", 9600),
		SerialSettleMS:      getEnvInt("SERIAL_SETTLE_MS", 2000),
		CommandIntervalMS:   getEnvInt("COMMAND_INTERVAL_MS", 250),
		PollIntervalMS:      getEnvInt("POLL_INTERVAL_MS", 1000),
		HTTPTimeoutSec:      getEnvInt("HTTP_TIMEOUT_SEC", 10),
		SpotifyClientID:     getEnv("SPOTIFY_CLIENT_ID", os.Getenv("CLIENT_ID")),
		SpotifyClientSecret: getEnv("SPOTIFY_CLIENT_SECRET", os.Getenv("CLIENT_SECRET")),
		SpotifyRedirectURI:  getEnv("SPOTIFY_REDIRECT_URI", "http://localhost:50000/"),
		SpotifyRefreshToken: os.Getenv("SPOTIFY_REFRESH_TOKEN"),
		SpotifyAPIBaseURL:   strings.TrimRight(getEnv("SPOTIFY_API_BASE_URL", "https://api.spotify.com"), "/"),
		SpotifyTokenURL:     getEnv("SPOTIFY_TOKEN_URL", "https://accounts.spotify.com/api/token"),
		VibrantAPIURL:       getEnv("VIBRANT_API_URL", "https://flagrate-vibrant-api.vercel.app"),
		ExtractStrategy:     model.ExtractStrategy(getEnv("EXTRACT_STRATEGY", string(model.ExtractLocal))),
		LEDStrategy:         model.LEDStrategy(getEnv("LED_STRATEGY", string(model.LEDHue))),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogJSON:             getEnvBool("LOG_JSON", false),
		TuningPath:          os.Getenv("TUNING_PATH"),
		MaxUploadSizeBytes:  getEnvInt64("MAX_UPLOAD_SIZE_BYTES", 8*1024*1024),
		Tuning:              DefaultTuning(),
	}

	if cfg.TuningPath != "" {
		t, err := LoadTuning(cfg.TuningPath)
		if err != nil {
			return Config{}, err
		}
		cfg.Tuning = t
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.SerialBaud <= 0 {
		return errors.New("serial baud must be > 0")
	}
	if c.SerialSettleMS < 0 {
		return errors.New("serial settle ms must be >= 0")
	}
	if c.CommandIntervalMS < 0 {
		return errors.New("command interval ms must be >= 0")
	}
	if c.PollIntervalMS <= 0 {
		return errors.New("poll interval ms must be > 0")
	}
	if c.HTTPTimeoutSec <= 0 {
		return errors.New("http timeout sec must be > 0")
	}
	switch c.ExtractStrategy {
	case model.ExtractLocal, model.ExtractSwatch:
	default:
		return errors.New("extract strategy must be local or swatch")
	}
	switch c.LEDStrategy {
	case model.LEDHue, model.LEDRGB:
	default:
		return errors.New("led strategy must be hue or rgb")
	}
	return c.Tuning.Validate()
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
