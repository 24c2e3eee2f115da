package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jsamuelsen/quote-sync/internal/domain"
)

var (
	// ErrValidation wraps every request that binds but breaks a rule.
	ErrValidation = errors.New("validation failed")

	// ErrBinding wraps a body or query that could not be decoded.
	ErrBinding = errors.New("binding failed")
)

// requestRules are the custom tags used by the request DTOs.
var requestRules = map[string]validator.Func{
	// notempty rejects whitespace-only text and category values.
	"notempty": func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	},
	"policy": func(fl validator.FieldLevel) bool {
		_, err := domain.ParsePolicy(fl.Field().String())
		return err == nil
	},
	// choice also accepts "server" as an alias of "remote".
	"choice": func(fl validator.FieldLevel) bool {
		_, err := domain.ParseChoice(fl.Field().String())
		return err == nil
	},
}

// requestValidator reports fields by their JSON name.
var requestValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	for tag, fn := range requestRules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("registering %s rule: %v", tag, err))
		}
	}

	return v
})

// Validatable is implemented by requests with rules beyond struct tags.
type Validatable interface {
	Validate() error
}

// Validate checks struct tags only.
func Validate(v any) error {
	if err := requestValidator().Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// ValidateAll checks struct tags, then the request's own Validate method.
func ValidateAll(v any) error {
	if err := Validate(v); err != nil {
		return err
	}

	if custom, ok := v.(Validatable); ok {
		if err := custom.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	return nil
}

// BindAndValidate decodes the JSON body into v and validates it.
func BindAndValidate(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return ValidateAll(v)
}

// BindQueryAndValidate decodes query parameters into v and validates it.
func BindQueryAndValidate(c *gin.Context, v any) error {
	if err := c.ShouldBindQuery(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return ValidateAll(v)
}

// IsValidationError reports whether err carries struct tag failures.
func IsValidationError(err error) bool {
	var fieldErrs validator.ValidationErrors
	return errors.As(err, &fieldErrs)
}

// ValidationErrors maps each failing field to a message for the error body.
// It is empty when err carries no struct tag failures.
func ValidationErrors(err error) map[string]string {
	out := map[string]string{}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return out
	}

	for _, fe := range fieldErrs {
		out[fe.Field()] = fieldMessage(fe)
	}

	return out
}

func fieldMessage(fe validator.FieldError) string {
	p := fe.Param()

	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "notempty":
		return "must not be empty"
	case "policy":
		return "must be server_wins or manual"
	case "choice":
		return "must be remote or local"
	case "gte":
		return "must be greater than or equal to " + p
	case "lte":
		return "must be less than or equal to " + p
	case "oneof":
		return "must be one of: " + p
	case "min", "max":
		bound := "at least "
		if fe.Tag() == "max" {
			bound = "at most "
		}

		if fe.Kind() == reflect.String {
			return "must be " + bound + p + " characters"
		}

		return "must be " + bound + p
	default:
		return "failed validation: " + fe.Tag()
	}
}
