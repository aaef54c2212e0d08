package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Invalid writes a 400 describing the first failed validation rule in err.
func Invalid(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		BadRequest(w, "Invalid request")
		return
	}
	fe := verrs[0]
	JSON(w, http.StatusBadRequest, ErrorBody{
		Error:   "VALIDATION_FAILED",
		Message: describe(fe),
		Field:   lowerFirst(fe.Field()),
	})
}

func describe(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
