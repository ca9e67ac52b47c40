package configs

import (
	"fmt"
	"strings"

	"edge-log-analytics/internal/models"
	"edge-log-analytics/internal/shared/validators"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "ANALYZER"

// FlagKeys maps command line flag names to the config keys they override.
var FlagKeys = map[string]string{
	"input":  "input.path",
	"output": "output.root_dir",
	"split":  "aggregation.window",
	"format": "output.format",
	"shards": "aggregation.shards",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("input.path", "")
	v.SetDefault("input.ignore_substrings", []string{"/healthcheck", "/prometheus"})
	v.SetDefault("output.root_dir", "./")
	v.SetDefault("output.format", "csv")
	v.SetDefault("aggregation.levels", []int{1, 2, 3, 4, 5, 6, 7})
	v.SetDefault("aggregation.window", "P1D")
	v.SetDefault("aggregation.shards", 1)
	v.SetDefault("classifier.ios_marker", "iOS")
	v.SetDefault("classifier.android_marker", "Android")
	v.SetDefault("classifier.web_marker", "livescore.com")
	v.SetDefault("classifier.os_fallback", false)
	v.SetDefault("status.port", 0)
	v.SetDefault("status.read_header_timeout", 5)
	v.SetDefault("status.write_timeout", 10)
	v.SetDefault("status.idle_timeout", 60)
	v.SetDefault("metrics.textfile_path", "")
}

// LoadConfig builds the configuration from defaults, the optional YAML file at configPath,
// ANALYZER_* environment variables and the changed flags of flags, in increasing priority.
// Both configPath and flags may be empty.
var LoadConfig = func(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", configPath, err)
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %q: %w", name, err)
			}
		}
	}

	// Unmarshal into Config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	validate, err := validators.New(map[string]validators.StringRule{
		"window": func(value string) bool {
			_, err := models.ParseWindowDuration(value)
			return err == nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build validator: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		var validationErrors []string
		if ve, ok := err.(validators.ValidationErrors); ok {
			for _, e := range ve {
				validationErrors = append(validationErrors, formatValidationError(e))
			}
		}
		return nil, fmt.Errorf("config validation failed: %s", strings.Join(validationErrors, ", "))
	}

	return &cfg, nil
}

// formatValidationError formats a single validation error into a readable string.
func formatValidationError(e validators.FieldError) string {
	field := e.Field()
	tag := e.Tag()

	// Build field path (e.g., "aggregation.window")
	if e.StructNamespace() != "" {
		// Extract nested field path (e.g., "Config.Aggregation.Window" -> "aggregation.window")
		parts := strings.Split(e.StructNamespace(), ".")
		if len(parts) >= 2 {
			// Skip "Config" prefix, convert to lowercase with dots
			fieldPath := strings.ToLower(strings.Join(parts[1:], "."))
			field = fieldPath
		}
	}

	var msg string
	switch tag {
	case "required":
		msg = fmt.Sprintf("%s (required)", field)
	case "min", "max", "oneof", "gt", "lt":
		msg = fmt.Sprintf("%s (%s=%s)", field, tag, e.Param())
	default:
		msg = fmt.Sprintf("%s (%s)", field, tag)
	}

	return msg
}
