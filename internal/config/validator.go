package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers Helios-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	// duration: validates time.ParseDuration syntax ("10s", "1m30s")
	if err := v.RegisterValidation("duration", validateDuration); err != nil {
		return fmt.Errorf("failed to register duration validator: %w", err)
	}
	return nil
}

// validateDuration validates a Go duration string.
func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// Validate validates the Config using struct tags and cross-field rules.
// Returns an error with actionable messages if validation fails.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	// The rules path must name a file: a path ending in "/" is rejected;
	// any other path is accepted.
	if strings.HasSuffix(c.Rules.Path, "/") {
		return errors.New("rules.path: must be a file, not a directory")
	}

	return nil
}

// formatValidationErrors converts validator errors into readable messages.
func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(strings.ReplaceAll(fe.Namespace(), "Config.", ""))
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s: required", field))
		case "required_if":
			msgs = append(msgs, fmt.Sprintf("%s: required when %s", field, strings.ToLower(fe.Param())))
		case "hostname_port":
			msgs = append(msgs, fmt.Sprintf("%s: must be host:port", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s: must be one of [%s]", field, fe.Param()))
		case "duration":
			msgs = append(msgs, fmt.Sprintf("%s: must be a positive duration (e.g. \"10s\")", field))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s: must be greater than %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %s validation", field, fe.Tag()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
