package utils

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// RegisterBindingValidations installs the domain tags on gin's binding
// engine. Must run before the first request is bound.
func RegisterBindingValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("scope", validateScope)
		v.RegisterValidation("repeat_type", validateRepeatType)
	}
}

// DescribeValidationErrors turns a binding failure into per-field errors.
// Returns nil when err did not come from struct validation.
func DescribeValidationErrors(err error) []ValidationError {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return nil
	}

	var out []ValidationError
	for _, fe := range fieldErrors {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Value:   fmt.Sprintf("%v", fe.Value()),
			Message: validationMessage(fe),
		})
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "scope":
		return "Scope must be one of: all, self"
	case "repeat_type":
		return "Repeat type must be one of: none, daily, weekly, monthly"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func validateScope(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "all", "self":
		return true
	}
	return false
}

func validateRepeatType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "none", "daily", "weekly", "monthly":
		return true
	}
	return false
}
