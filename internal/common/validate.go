package common

import (
	"errors"

	validator "github.com/go-playground/validator/v10"
)

// ValidationDetails flattens validator errors into a field -> constraint map
// suitable for the error envelope's details field.
func ValidationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
