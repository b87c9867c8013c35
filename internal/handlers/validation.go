package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// formatValidationError turns validator failures into one user-facing
// message, joining per-field messages the way the API has always phrased
// them.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "Invalid request body."
	}

	msgs := make([]string, len(ve))
	for i, fe := range ve {
		switch fe.Tag() {
		case "required":
			msgs[i] = fmt.Sprintf("%s is required", fe.Field())
		case "email":
			msgs[i] = fmt.Sprintf("%s must be a valid email address", fe.Field())
		case "min":
			msgs[i] = fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
		case "max":
			msgs[i] = fmt.Sprintf("%s cannot exceed %s characters", fe.Field(), fe.Param())
		case "len":
			msgs[i] = fmt.Sprintf("%s must be exactly %s characters long", fe.Field(), fe.Param())
		case "numeric":
			msgs[i] = fmt.Sprintf("%s must be numeric", fe.Field())
		default:
			msgs[i] = fmt.Sprintf("validation failed on field '%s' for tag '%s'", fe.Field(), fe.Tag())
		}
	}
	return strings.Join(msgs, ", ")
}
