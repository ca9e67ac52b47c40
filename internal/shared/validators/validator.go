package validators

import (
	"github.com/go-playground/validator/v10"
)

// Validate is a type alias for validator.Validate.
type Validate = validator.Validate

// ValidationErrors is a type alias for validator.ValidationErrors.
type ValidationErrors = validator.ValidationErrors

// FieldError is a type alias for validator.FieldError.
type FieldError = validator.FieldError

// StringRule reports whether a string field value is acceptable.
type StringRule func(value string) bool

// New creates a new validator instance with the given string rules registered as tags.
func New(rules map[string]StringRule) (*Validate, error) {
	v := validator.New()
	for tag, rule := range rules {
		rule := rule
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return rule(fl.Field().String())
		})
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}
