package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator is a wrapper around go-playground/validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance with the relay rules registered.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterStructValidation(validateRelay, RelayConfig{})

	return &Validator{validate: v}
}

// Validate validates a struct using validation tags
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return formatValidationError(err)
	}

	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	messages := make([]string, 0, len(verrs))
	for _, e := range verrs {
		messages = append(messages, fmt.Sprintf(
			"field '%s' failed validation: %s (value: '%v')",
			e.Namespace(),
			e.Tag(),
			e.Value(),
		))
	}

	return fmt.Errorf("validation failed:\n  %s", strings.Join(messages, "\n  "))
}

// validateRelay requires the connection setting each driver dials with.
func validateRelay(sl validator.StructLevel) {
	r, ok := sl.Current().Interface().(RelayConfig)
	if !ok {
		return
	}

	switch r.Driver {
	case RelayNATS, RelayRabbitMQ:
		if r.URL == "" {
			sl.ReportError(r.URL, "URL", "url", "required_for_driver", r.Driver)
		}
	case RelayKafka:
		if len(r.Brokers) == 0 {
			sl.ReportError(r.Brokers, "Brokers", "brokers", "required_for_driver", r.Driver)
		}
	}
}

// ValidateConfig validates the entire configuration
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
