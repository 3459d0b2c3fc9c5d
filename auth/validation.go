package auth

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// LoginRequest is the body of POST /user/login.
type LoginRequest struct {
	UserName       string `json:"userName" validate:"required,max=50"`
	Email          string `json:"email,omitempty"`
	Password       string `json:"password" validate:"required,max=50"`
	RememberMe     bool   `json:"rememberMe"`
	RememberMeDays int    `json:"rememberMeDays"`
}

// NewLoginRequest builds the request the TV app sends: remembered for a year.
func NewLoginRequest(userName, password string) LoginRequest {
	return LoginRequest{
		UserName:       strings.TrimSpace(userName),
		Password:       password,
		RememberMe:     true,
		RememberMeDays: 365,
	}
}

// ForgotPasswordRequest is the body of POST /user/send-email-to-reset-password. The server looks
// up the address, so Email is always sent empty.
type ForgotPasswordRequest struct {
	UserName string `json:"userName" validate:"required"`
	Email    string `json:"email"`
}

var fieldLabels = map[string]string{
	"UserName": "Username",
	"Password": "Password",
}

// Validator checks form input before it reaches the API.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) ValidateLogin(req LoginRequest) error {
	return v.check(req)
}

func (v *Validator) ValidateForgotPassword(req ForgotPasswordRequest) error {
	return v.check(req)
}

func (v *Validator) check(req any) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "[Validator.check] validate.Struct")
	}

	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		verr.Fields = append(verr.Fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "max":
		return fmt.Sprintf("%s must be less than %s characters", label, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", label)
}
