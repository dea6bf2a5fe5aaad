// Package config loads and validates the archiver settings from the environment,
// optionally seeded from a .env file.
package config

import (
	stderrs "errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	errs "github.com/leo-automation/leo-ring/errors"
)

const (
	BackendOneDrive = "onedrive"
	BackendGDrive   = "gdrive"
)

type Config struct {
	StorageBackend       string `env:"STORAGE_BACKEND" validate:"oneof=onedrive gdrive"`
	GraphClientID        string `env:"MS_GRAPH_CLIENT_ID" validate:"required_if=StorageBackend onedrive"`
	GraphClientSecret    string `env:"MS_GRAPH_CLIENT_SECRET" validate:"required_if=StorageBackend onedrive"`
	OneDriveRefreshToken string `env:"ONEDRIVE_REFRESH_TOKEN" validate:"required_if=StorageBackend onedrive"`
	OneDriveScope        string `env:"ONEDRIVE_SCOPE"`

	RingToken string `env:"RING_TOKEN" validate:"required"`
	RingAgent string `env:"RING_AGENT"`
	Prefix    string `env:"RING_FILE_PREFIX" validate:"startswith=/"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID" validate:"required_if=StorageBackend gdrive,required_with=GoogleSheetURL"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET" validate:"required_if=StorageBackend gdrive,required_with=GoogleSheetURL"`
	GoogleRefreshToken string `env:"GOOGLE_REFRESH_TOKEN" validate:"required_if=StorageBackend gdrive,required_with=GoogleSheetURL"`
	GoogleSheetURL     string `env:"GOOGLE_SHEET_URL" validate:"omitempty,url"`
	GoogleSheetRange   string `env:"GOOGLE_SHEET_RANGE"`

	HistoryHours     int           `env:"HISTORY_HOURS" validate:"gt=0"`
	RetryAttempts    int           `env:"RETRY_ATTEMPTS" validate:"gte=1"`
	RetryDelay       time.Duration `env:"RETRY_DELAY"`
	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT"`
	ScheduleInterval time.Duration `env:"SCHEDULE_INTERVAL"`
	Listen           string        `env:"LISTEN"`
}

var defaults = map[string]any{
	"STORAGE_BACKEND":    BackendOneDrive,
	"ONEDRIVE_SCOPE":     "Files.ReadWrite.All offline_access",
	"RING_AGENT":         "N/A",
	"RING_FILE_PREFIX":   "/Ring",
	"GOOGLE_SHEET_RANGE": "Log!A1:G",
	"HISTORY_HOURS":      25,
	"RETRY_ATTEMPTS":     10,
	"RETRY_DELAY":        "5s",
	"HTTP_TIMEOUT":       "60s",
	"SCHEDULE_INTERVAL":  "1h",
	"LISTEN":             ":8080",
}

// Load reads the settings. If envfile is set it must exist, otherwise a .env file in
// the working directory is used if present. Values already in the environment take
// precedence over the file.
func Load(envfile string) (*Config, error) {
	if err := LoadEnv(envfile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	c := Config{
		StorageBackend:       strings.ToLower(v.GetString("STORAGE_BACKEND")),
		GraphClientID:        v.GetString("MS_GRAPH_CLIENT_ID"),
		GraphClientSecret:    v.GetString("MS_GRAPH_CLIENT_SECRET"),
		OneDriveRefreshToken: v.GetString("ONEDRIVE_REFRESH_TOKEN"),
		OneDriveScope:        v.GetString("ONEDRIVE_SCOPE"),
		RingToken:            v.GetString("RING_TOKEN"),
		RingAgent:            v.GetString("RING_AGENT"),
		Prefix:               normalisePrefix(v.GetString("RING_FILE_PREFIX")),
		GoogleClientID:       v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRefreshToken:   v.GetString("GOOGLE_REFRESH_TOKEN"),
		GoogleSheetURL:       v.GetString("GOOGLE_SHEET_URL"),
		GoogleSheetRange:     v.GetString("GOOGLE_SHEET_RANGE"),
		HistoryHours:         v.GetInt("HISTORY_HOURS"),
		RetryAttempts:        v.GetInt("RETRY_ATTEMPTS"),
		RetryDelay:           v.GetDuration("RETRY_DELAY"),
		HTTPTimeout:          v.GetDuration("HTTP_TIMEOUT"),
		ScheduleInterval:     v.GetDuration("SCHEDULE_INTERVAL"),
		Listen:               v.GetString("LISTEN"),
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// LoadEnv seeds the environment from envfile (which must exist) or from an optional
// .env file in the working directory.
func LoadEnv(envfile string) error {
	if envfile != "" {
		if err := godotenv.Load(envfile); err != nil {
			return errs.Wrap(errs.KindConfiguration, err, "unable to load %v", envfile)
		}

		return nil
	}

	_ = godotenv.Load()

	return nil
}

// Validate checks the required settings once, reporting every missing or invalid key.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})

	problems := []string{}

	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if !stderrs.As(err, &ve) {
			return errs.Wrap(errs.KindConfiguration, err, "invalid configuration")
		}

		for _, fe := range ve {
			switch fe.Tag() {
			case "required", "required_if", "required_with":
				problems = append(problems, fmt.Sprintf("%v not set", fe.Field()))
			default:
				problems = append(problems, fmt.Sprintf("%v invalid ('%v' fails '%v')", fe.Field(), fe.Value(), fe.Tag()))
			}
		}
	}

	if c.RetryDelay < 0 {
		problems = append(problems, "RETRY_DELAY must not be negative")
	}

	if c.HTTPTimeout <= 0 {
		problems = append(problems, "HTTP_TIMEOUT must be positive")
	}

	if c.ScheduleInterval <= 0 {
		problems = append(problems, "SCHEDULE_INTERVAL must be positive")
	}

	if len(problems) > 0 {
		return errs.New(errs.KindConfiguration, "invalid configuration: %v", strings.Join(problems, ", "))
	}

	return nil
}

// History is the lookback window as a duration.
func (c *Config) History() time.Duration {
	return time.Duration(c.HistoryHours) * time.Hour
}

func normalisePrefix(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}

	return "/" + strings.Trim(p, "/")
}
