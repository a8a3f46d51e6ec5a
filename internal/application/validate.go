package application

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/stagelink/immersion/internal/domain/domainerr"
)

var inputValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateInput checks a command against its struct tags and reports every
// violated field at once, not just the first.
func ValidateInput(cmd any) error {
	err := inputValidator.Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	violations := make([]domainerr.FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		violations = append(violations, domainerr.FieldViolation{
			Field: fe.Field(),
			Rule:  fe.Tag(),
		})
	}
	return domainerr.NewValidation(violations...)
}
