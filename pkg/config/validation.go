package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/stashbox/stashd/pkg/storage"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation via
// struct tags, with additional custom validation for rules that cannot be
// expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// The privilege string must round-trip through the storage enum; the
	// oneof tag and this parse must never disagree.
	if _, err := storage.ParsePrivilege(cfg.Access.Privilege); err != nil {
		return fmt.Errorf("access.privilege: %w", err)
	}

	// A persistent session store needs somewhere to persist
	if cfg.Sessions.Type == "badger" {
		path, _ := cfg.Sessions.Badger["db_path"].(string)
		if path == "" {
			return fmt.Errorf("sessions.badger: db_path is required when sessions.type is \"badger\"")
		}
	}

	// The metrics server needs a usable port when enabled
	if cfg.Metrics.Enabled && cfg.Metrics.Port <= 0 {
		return fmt.Errorf("metrics.port: must be positive when metrics are enabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
