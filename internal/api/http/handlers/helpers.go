package handlers

import (
	validation "github.com/go-ozzo/ozzo-validation"

	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// validationError flattens ozzo field errors into the VALIDATION_FAILED
// details map.
func validationError(err error) error {
	if fieldErrs, ok := err.(validation.Errors); ok {
		details := make(map[string]any, len(fieldErrs))
		for field, fieldErr := range fieldErrs {
			details[field] = fieldErr.Error()
		}
		return apperrors.NewValidationError("validation failed", details)
	}
	return apperrors.NewValidationError(err.Error(), nil)
}
