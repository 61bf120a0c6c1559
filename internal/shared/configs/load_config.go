package configs

import (
	"fmt"
	"strings"

	"telemetry-engine/internal/shared/validators"

	"github.com/spf13/viper"
)

// LoadConfig reads the YAML config file and validates it against the struct
// tags. Declared as a var so tests can substitute it.
var LoadConfig = func(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validators.New().Struct(&cfg); err != nil {
		var details []string
		if ve, ok := err.(validators.ValidationErrors); ok {
			for _, e := range ve {
				details = append(details, formatValidationError(e))
			}
		}
		return nil, fmt.Errorf("config validation failed: %s", strings.Join(details, ", "))
	}

	return &cfg, nil
}

// formatValidationError renders one field error as "path (constraint)",
// with the path in config-file casing (tenant.default_id, not
// Config.Tenant.DefaultID).
func formatValidationError(e validators.FieldError) string {
	field := e.Field()
	if ns := e.StructNamespace(); ns != "" {
		parts := strings.Split(ns, ".")
		if len(parts) >= 2 {
			field = strings.ToLower(strings.Join(parts[1:], "."))
		}
	}

	switch tag := e.Tag(); tag {
	case "required":
		return fmt.Sprintf("%s (required)", field)
	case "min", "max", "oneof":
		return fmt.Sprintf("%s (%s=%s)", field, tag, e.Param())
	default:
		return fmt.Sprintf("%s (%s)", field, tag)
	}
}
