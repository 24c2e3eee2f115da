package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate reports fields by their koanf key, so messages name the same
// path an operator writes in YAML or APP_ env vars.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}

		return name
	})

	return v
}()

// Validate checks the loaded configuration. Neither binary starts with an
// invalid one.
func (c *Config) Validate() error {
	problems := []string{}

	var fieldErrs validator.ValidationErrors
	if err := validate.Struct(c); err != nil {
		if !errors.As(err, &fieldErrs) {
			return err
		}

		for _, fe := range fieldErrs {
			problems = append(problems, describe(fe))
		}
	}

	if len(problems) == 0 && c.Sync.Interval < c.Client.Timeout {
		problems = append(problems, fmt.Sprintf("sync.interval (%s) must not be shorter than client.timeout (%s)",
			c.Sync.Interval, c.Client.Timeout))
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(problems, "\n  "))
	}

	return nil
}

var tagMessages = map[string]string{
	"required":        "is required",
	"required_if":     "is required when %s",
	"required_unless": "is required unless %s",
	"required_with":   "is required when %s is set",
	"min":             "must be at least %s",
	"max":             "must be at most %s",
	"oneof":           "must be one of: %s",
	"url":             "must be a valid URL",
}

func describe(fe validator.FieldError) string {
	field := keyPath(fe.Namespace())

	msg, ok := tagMessages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}

	if strings.Contains(msg, "%s") {
		msg = fmt.Sprintf(msg, strings.ToLower(fe.Param()))
	}

	return field + " " + msg
}

// keyPath drops the root struct from a validator namespace:
// "Config.remote.base_url" becomes "remote.base_url".
func keyPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}

	return rest
}
