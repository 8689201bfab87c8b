package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds every runtime setting for a grading run.
type Config struct {
	Env string

	Canvas  CanvasConfig
	Grading GradingConfig
	HTTP    HTTPConfig
	Log     LogConfig
}

// CanvasConfig identifies the remote Canvas instance and course.
type CanvasConfig struct {
	BaseURL  string `validate:"required"`
	Token    string `validate:"required"`
	CourseID string `validate:"required"`
}

// GradingConfig controls the eligibility window and grading behaviour.
type GradingConfig struct {
	GraceDays                 int `validate:"gte=0"`
	WindowDays                int `validate:"gte=0"`
	AssignmentGroupID         string
	DryRun                    bool
	Timezone                  string `validate:"required"`
	EnforceThursday5PM        bool
	RequireCompleteIncomplete bool
}

// HTTPConfig tunes the API client.
type HTTPConfig struct {
	Timeout     time.Duration
	MaxAttempts int `validate:"gte=1"`
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Canvas = CanvasConfig{
		BaseURL:  strings.TrimRight(strings.TrimSpace(v.GetString("CANVAS_BASE_URL")), "/"),
		Token:    strings.TrimSpace(v.GetString("CANVAS_TOKEN")),
		CourseID: strings.TrimSpace(v.GetString("COURSE_ID")),
	}

	cfg.Grading = GradingConfig{
		GraceDays:                 v.GetInt("GRACE_DAYS"),
		WindowDays:                v.GetInt("WINDOW_DAYS"),
		AssignmentGroupID:         v.GetString("ASSIGNMENT_GROUP_ID"),
		DryRun:                    parseBool(v.GetString("DRY_RUN"), true),
		Timezone:                  v.GetString("TIMEZONE"),
		EnforceThursday5PM:        parseBool(v.GetString("ENFORCE_THURSDAY_5PM"), false),
		RequireCompleteIncomplete: parseBool(v.GetString("REQUIRE_COMPLETE_INCOMPLETE"), true),
	}

	cfg.HTTP = HTTPConfig{
		Timeout:     parseDuration(v.GetString("HTTP_TIMEOUT"), 30*time.Second),
		MaxAttempts: v.GetInt("HTTP_MAX_ATTEMPTS"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	if missing := missingRequired(cfg); len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func missingRequired(cfg *Config) []string {
	var missing []string
	if cfg.Canvas.BaseURL == "" {
		missing = append(missing, "CANVAS_BASE_URL")
	}
	if cfg.Canvas.Token == "" {
		missing = append(missing, "CANVAS_TOKEN")
	}
	if cfg.Canvas.CourseID == "" {
		missing = append(missing, "COURSE_ID")
	}
	return missing
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("CANVAS_BASE_URL", "")
	v.SetDefault("CANVAS_TOKEN", "")
	v.SetDefault("COURSE_ID", "")

	v.SetDefault("GRACE_DAYS", 1)
	v.SetDefault("WINDOW_DAYS", 7)
	v.SetDefault("ASSIGNMENT_GROUP_ID", "")
	v.SetDefault("DRY_RUN", true)
	v.SetDefault("TIMEZONE", "America/Denver")
	v.SetDefault("ENFORCE_THURSDAY_5PM", false)
	v.SetDefault("REQUIRE_COMPLETE_INCOMPLETE", true)

	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("HTTP_MAX_ATTEMPTS", 8)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// parseBool accepts the common truthy spellings (1, true, yes, y, on);
// any other non-empty value reads as false, and an unset value keeps the
// fallback.
func parseBool(raw string, fallback bool) bool {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
