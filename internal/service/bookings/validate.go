package bookings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"roombook/backend/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(e), strings.Join(msgs, "; "))
}

// validateInput runs the struct tags of in and reports failures as an
// InvalidRequest error wrapping FieldErrors.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewError(domain.KindInvalidRequest, "invalid request", err)
	}

	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Error()
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("%s is required", fe.Field())
		case "max":
			msg = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		case "oneof":
			msg = fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
		}
		out = append(out, FieldError{Field: fe.Namespace(), Message: msg})
	}
	return domain.NewError(domain.KindInvalidRequest, "invalid request", out)
}
