package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate       *validator.Validate
	emoteNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

func init() {
	validate = validator.New()

	// Custom validation for emote names (letters, digits, underscores)
	validate.RegisterValidation("emotename", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		if len(name) < 1 || len(name) > 32 {
			return false
		}
		return emoteNameRegex.MatchString(name)
	})
}

// Validate validates a struct using the validator
func Validate(s any) error {
	return validate.Struct(s)
}

// FormatValidationErrors formats validation errors for API response
func FormatValidationErrors(err error) map[string]string {
	errors := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			field := strings.ToLower(e.Field())
			switch e.Tag() {
			case "required":
				errors[field] = "This field is required"
			case "gt":
				errors[field] = "Value must be positive"
			case "min":
				errors[field] = "Value is too short"
			case "max":
				errors[field] = "Value is too long"
			case "emotename":
				errors[field] = "Emote name must be 1-32 characters of letters, numbers, or underscores"
			default:
				errors[field] = "Invalid value"
			}
		}
	}

	return errors
}
