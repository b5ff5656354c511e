package middleware

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yigit/campuskizuna/internal/app/models/dto"
)

// HandleValidationError builds an error detail listing each failing field
func HandleValidationError(err error) *dto.ErrorDetail {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return dto.NewErrorDetail(dto.ErrorCodeBadRequest, "Invalid request format").WithDetails(err.Error())
	}

	collected := dto.NewValidationErrors()
	for _, fe := range fieldErrs {
		collected.AddError(jsonFieldName(fe.Field()), formatValidationError(fe))
	}
	detail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed").WithDetails(collected.Errors)
	if len(collected.Errors) == 1 {
		detail = detail.WithField(collected.Errors[0].Field)
	}
	return detail
}

// jsonFieldName lowercases the first rune so StudentID reports as studentID
func jsonFieldName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(e validator.FieldError) string {
	field := jsonFieldName(e.Field())
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + e.Param()
	case "max":
		return field + " must be at most " + e.Param()
	case "oneof":
		return field + " must be one of: " + e.Param()
	case "url":
		return field + " must be a valid URL"
	case "datetime":
		return field + " must be a date in the form " + e.Param()
	case "uucms":
		return field + " must be an uppercase UUCMS number"
	case "phone":
		return field + " must be a phone number"
	case "slot_start":
		return field + " must be a whole hour between 09:00 and 15:00"
	case "subject_code":
		return field + " must look like CS101"
	default:
		return field + " validation failed: " + e.Tag()
	}
}
