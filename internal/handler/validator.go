package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/apperr"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo.Validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates the request body validator
func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate returns the first failing field as a validation error
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0].Field()
		field = strings.ToLower(field[:1]) + field[1:]
		return apperr.Validation(field, fmt.Sprintf("invalid %s", field))
	}
	return apperr.Validation("", err.Error())
}

// bindAndValidate decodes a JSON body into req and validates it
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validation("", "invalid request body")
	}
	return c.Validate(req)
}
