package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes a single failed validation rule.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates all failures from one validation pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// ToValidationErrors converts validator/v10 errors into our error shape.
func ToValidationErrors(err error) ValidationErrors {
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return ValidationErrors{{
			Field:   "",
			Message: err.Error(),
			Rule:    "struct",
		}}
	}

	errs := make(ValidationErrors, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		errs = append(errs, ValidationError{
			Field:   strings.ToLower(fieldErr.Field()),
			Message: messageForTag(fieldErr),
			Value:   fieldErr.Value(),
			Rule:    fieldErr.Tag(),
		})
	}

	return errs
}

func messageForTag(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fieldErr.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fieldErr.Param())
	case "unit_code":
		return "must be a valid unit code (e.g. CS101)"
	case "question_type":
		return "must be one of: multiple_choice, short_answer, list_based"
	case "difficulty_level":
		return "must be one of: easy, medium, hard"
	case "assessment_duration":
		return "must be between 5 and 300 minutes"
	case "marks_range":
		return "must be between 1 and 100"
	default:
		return fmt.Sprintf("failed rule %s", fieldErr.Tag())
	}
}

// Validator is the single entry point for request and business validation.
type Validator struct {
	business *BusinessValidator
}

func New() *Validator {
	return &Validator{
		business: NewBusinessValidator(),
	}
}

// Validate runs struct tag validation and returns nil when the value passes.
func (v *Validator) Validate(s interface{}) error {
	if errs := v.business.Validate(s); errs.HasErrors() {
		return errs
	}
	return nil
}

// GetBusinessValidator exposes rule-level validation for services.
func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}
