package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	// Optional metadata persistence. The pipeline runs without it.
	DatabaseURL string

	StorageBasePath string
	StorageBaseURL  string

	GeoIPDBPath string

	VisionAPIKey  string
	VisionModel   string
	VisionBaseURL string
	VisionTimeout time.Duration

	SynthAPIKey     string
	SynthBaseURL    string
	SynthTimeout    time.Duration
	SynthMaxRetries int
	SynthRetryDelay time.Duration

	TransformBaseURL string

	CommerceBaseURL string
	CommerceAPIKey  string

	// Square edge length of the preprocessed working image, in pixels.
	CharmSize int

	AllowedOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StorageBasePath:  getEnv("STORAGE_BASE_PATH", "./data/assets"),
		StorageBaseURL:   getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		VisionAPIKey:     os.Getenv("VISION_API_KEY"),
		VisionModel:      getEnv("VISION_MODEL", "gpt-4o-mini"),
		VisionBaseURL:    getEnv("VISION_BASE_URL", "https://api.openai.com/v1"),
		VisionTimeout:    time.Second * time.Duration(getEnvInt("VISION_TIMEOUT_SECONDS", 15)),
		SynthAPIKey:      os.Getenv("SYNTH_API_KEY"),
		SynthBaseURL:     getEnv("SYNTH_BASE_URL", "https://api.segmind.com/v1"),
		SynthTimeout:     time.Second * time.Duration(getEnvInt("SYNTH_TIMEOUT_SECONDS", 90)),
		SynthMaxRetries:  getEnvInt("SYNTH_MAX_RETRIES", 1),
		SynthRetryDelay:  time.Millisecond * time.Duration(getEnvInt("SYNTH_RETRY_DELAY_MS", 1000)),
		TransformBaseURL: getEnv("TRANSFORM_BASE_URL", "https://res.cloudinary.com/charmforge/image/fetch"),
		CommerceBaseURL:  os.Getenv("COMMERCE_BASE_URL"),
		CommerceAPIKey:   os.Getenv("COMMERCE_API_KEY"),
		CharmSize:        getEnvInt("CHARM_SIZE", 1024),
		AllowedOrigins:   splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.SynthAPIKey == "" {
		return nil, fmt.Errorf("SYNTH_API_KEY is required")
	}

	if cfg.CharmSize <= 0 {
		return nil, fmt.Errorf("CHARM_SIZE must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
