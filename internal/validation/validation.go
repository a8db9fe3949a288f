package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/coalharbourgroup/PM-email-vcs/internal/errors"
	"github.com/coalharbourgroup/PM-email-vcs/internal/models"
)

// Validator provides validation methods
type Validator struct {
	validate *validator.Validate
}

// New creates a new validator instance
func New() *Validator {
	return &Validator{validate: validator.New()}
}

// Struct validates the tags of any struct
func (v *Validator) Struct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return describe(err)
	}
	return nil
}

// ValidatePushEvent checks the decoded push payload
func (v *Validator) ValidatePushEvent(event *models.PushEvent) *errors.AppError {
	if event == nil {
		return errors.InvalidRequest("Request body is required")
	}
	if err := v.Struct(event); err != nil {
		return errors.InvalidRequest("Invalid push event: " + err.Error())
	}
	return nil
}

// ValidateMessage checks an outbound email before dispatch
func (v *Validator) ValidateMessage(msg models.Message) error {
	return v.Struct(msg)
}

// describe flattens validator errors into one readable error
func describe(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("'%s' failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(parts, ", "))
}
