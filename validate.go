package guesswhat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// MissingFieldsMessage is reported when a top level field of a game is absent.
	MissingFieldsMessage = "thumbnailUrl, title, description, tags and questions are all required"

	// InvalidQuestionMessage is reported when a question lacks text or answers.
	InvalidQuestionMessage = "every question needs question text and a non-empty answer list"
)

// ValidationError is a client error found before any side effect happens.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		panic(err)
	}

	return v
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Validate checks a create or update payload. It returns a *ValidationError
// carrying a single message, or nil. minQuestions below one is treated as one.
func Validate(p *GamePayload, minQuestions int) error {
	if p == nil {
		return &ValidationError{Message: MissingFieldsMessage}
	}

	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate game: %w", err)
		}

		// Top level problems win over per-question ones.
		msg := InvalidQuestionMessage
		for _, fe := range fieldErrs {
			if !strings.Contains(fe.Namespace(), "[") {
				msg = MissingFieldsMessage
				break
			}
		}

		return &ValidationError{Message: msg}
	}

	if len(p.Questions) < minQuestions {
		return &ValidationError{Message: fmt.Sprintf("at least %d questions are required", minQuestions)}
	}

	return nil
}
