package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds runtime settings. Every field can be overridden through a
// PRAYER_ prefixed environment variable, e.g. PRAYER_OUTPUT_DIR.
type Config struct {
	ConfigFile string `envconfig:"CONFIG_FILE" default:"config.json"`
	TokenFile  string `envconfig:"TOKEN_FILE" default:"auth_token.json"`
	// TokenBucket stores the token cache in GCS instead of TokenFile.
	TokenBucket string `envconfig:"TOKEN_BUCKET"`

	APIBaseURL      string        `envconfig:"API_BASE_URL" default:"https://mobileappapi.awqaf.gov.ae/APIS/v2"`
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
	HTTPMaxAttempts int           `envconfig:"HTTP_MAX_ATTEMPTS" default:"3"`
	RunTimeout      time.Duration `envconfig:"RUN_TIMEOUT" default:"2m"`
	TokenSkew       time.Duration `envconfig:"TOKEN_SKEW" default:"5m"`

	CacheDir string        `envconfig:"CACHE_DIR" default:".cache"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"24h"`

	OutputDir string `envconfig:"OUTPUT_DIR" default:"."`
	Timezone  string `envconfig:"TIMEZONE" default:"Asia/Dubai"`

	AdhanDurations map[string]int `envconfig:"ADHAN_DURATIONS" default:"fajr:25,zuhr:20,asr:20,maghrib:5,isha:20"`
	PrayerDuration int            `envconfig:"PRAYER_DURATION" default:"10"`
	AdhanColor     string         `envconfig:"ADHAN_COLOR" default:"#008000"`
	PrayerColor    string         `envconfig:"PRAYER_COLOR" default:"#ba1e55"`

	PublishBucket       string `envconfig:"PUBLISH_BUCKET"`
	PublishDir          string `envconfig:"PUBLISH_DIR"`
	FirestoreProject    string `envconfig:"FIRESTORE_PROJECT"`
	FirestoreCollection string `envconfig:"FIRESTORE_COLLECTION" default:"prayer_days"`

	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads an optional .env file and then the PRAYER_ environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not read .env file")
	}

	var cfg Config
	if err := envconfig.Process("PRAYER", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("config_file", cfg.ConfigFile).
		Str("token_file", cfg.TokenFile).
		Bool("token_in_gcs", cfg.TokenBucket != "").
		Str("api", cfg.APIBaseURL).
		Str("output_dir", cfg.OutputDir).
		Str("timezone", cfg.Timezone).
		Msg("configuration loaded")

	return &cfg, nil
}

// Validate checks values envconfig cannot check on its own.
func (c *Config) Validate() error {
	if c.HTTPMaxAttempts < 1 {
		return fmt.Errorf("PRAYER_HTTP_MAX_ATTEMPTS must be at least 1, got %d", c.HTTPMaxAttempts)
	}
	if c.PrayerDuration <= 0 {
		return fmt.Errorf("PRAYER_PRAYER_DURATION must be positive, got %d", c.PrayerDuration)
	}
	for name, minutes := range c.AdhanDurations {
		if minutes <= 0 {
			return fmt.Errorf("adhan duration for %s must be positive, got %d", name, minutes)
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return nil
}
