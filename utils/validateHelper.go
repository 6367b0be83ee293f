package utils

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the `validate` tags of input and converts failures into a *ValidationError.
func ValidateStruct(input any) error {
	if err := validate.Struct(input); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return &ValidationError{Message: invalid.Error()}
		}
		return &ValidationError{Message: "invalid input", Fields: ProcessValidationErrors(err)}
	}
	return nil
}
