package config

import (
	"strings"

	"goabtest/domain/experiment"
	"goabtest/internal/dataset"
	"goabtest/internal/errors"
	"goabtest/internal/logging"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig            `mapstructure:"server"`
	Database DatabaseConfig          `mapstructure:"database"`
	Log      logging.Config          `mapstructure:"log"`
	Defaults experiment.ParameterSet `mapstructure:"defaults"`
	Planning PlanningConfig          `mapstructure:"planning"`
	Dataset  dataset.Schema          `mapstructure:"dataset"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `mapstructure:"port"`
	GinMode string `mapstructure:"gin_mode"`
}

// DatabaseConfig holds database connection settings. An empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.URL) != ""
}

// PlanningConfig holds planning defaults
type PlanningConfig struct {
	DailyTraffic float64 `mapstructure:"daily_traffic"`
	Workers      int     `mapstructure:"workers"`
}

// env maps config keys to their environment variables
var env = map[string]string{
	"server.port":             "PORT",
	"server.gin_mode":         "GIN_MODE",
	"database.url":            "DATABASE_URL",
	"log.level":               "LOG_LEVEL",
	"log.format":              "LOG_FORMAT",
	"defaults.alpha":          "DEFAULT_ALPHA",
	"defaults.power":          "DEFAULT_POWER",
	"defaults.mde":            "DEFAULT_MDE",
	"defaults.baseline_rate":  "DEFAULT_BASELINE_RATE",
	"planning.daily_traffic":  "DAILY_TRAFFIC",
	"planning.workers":        "PLANNING_WORKERS",
	"dataset.group_column":    "DATASET_GROUP_COLUMN",
	"dataset.outcome_column":  "DATASET_OUTCOME_COLUMN",
	"dataset.date_column":     "DATASET_DATE_COLUMN",
	"dataset.control_value":   "DATASET_CONTROL_VALUE",
	"dataset.treatment_value": "DATASET_TREATMENT_VALUE",
}

func setDefaults(v *viper.Viper) {
	params := experiment.DefaultParameterSet()
	schema := dataset.DefaultSchema()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.gin_mode", "debug")
	v.SetDefault("database.url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("defaults.alpha", params.Alpha)
	v.SetDefault("defaults.power", params.Power)
	v.SetDefault("defaults.mde", params.MDE)
	v.SetDefault("defaults.baseline_rate", params.BaselineRate)
	v.SetDefault("planning.daily_traffic", 1000.0)
	v.SetDefault("planning.workers", 4)
	v.SetDefault("dataset.group_column", schema.GroupColumn)
	v.SetDefault("dataset.outcome_column", schema.OutcomeColumn)
	v.SetDefault("dataset.date_column", schema.DateColumn)
	v.SetDefault("dataset.control_value", schema.ControlValue)
	v.SetDefault("dataset.treatment_value", schema.TreatmentValue)
}

// Load reads configuration from an optional YAML file and environment variables and validates it
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "failed to bind %s", name))
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "failed to read config file"))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "failed to parse config"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return &cfg, nil
}

// Validate checks the server, planning and experiment defaults
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if c.Planning.Workers <= 0 {
		return errors.ConfigInvalid("planning workers must be positive")
	}
	if c.Planning.DailyTraffic < 0 {
		return errors.ConfigInvalid("planning daily traffic cannot be negative")
	}
	if fields := c.Defaults.Validate(); len(fields) > 0 {
		return errors.WithCode(errors.CodeConfigInvalid, errors.Invalid(fields))
	}
	if c.Dataset.GroupColumn == "" || c.Dataset.OutcomeColumn == "" {
		return errors.ConfigInvalid("dataset group and outcome columns are required")
	}
	if c.Dataset.ControlValue == c.Dataset.TreatmentValue {
		return errors.ConfigInvalid("dataset control and treatment values must differ")
	}
	return nil
}
