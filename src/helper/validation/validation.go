package validation

import (
	"errors"
	"fmt"
	"strings"

	"cineasts/src/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct valida a struct pelas tags `validate` e devolve um erro que
// casa com domain.ErrValidation.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateVar valida um único valor, ex: ValidateVar("stars", 6, "min=1,max=5").
func ValidateVar(field string, value interface{}, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			return fmt.Errorf("%w: %s", domain.ErrValidation, formatFieldError(field, validationErrors[0]))
		}
		return fmt.Errorf("%w: %s: %v", domain.ErrValidation, field, err)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			messages = append(messages, formatFieldError(e.Field(), e))
		}
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(messages, "; "))
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

func formatFieldError(field string, e validator.FieldError) string {
	field = strings.ToLower(field)

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "dive":
		return fmt.Sprintf("%s contains invalid values", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
