// Package validator wraps go-playground/validator behind a single entry
// point so struct tag validation failures surface as classified errors.
package validator

import (
	"github.com/go-playground/validator/v10"

	ierr "github.com/gridcost/gridcost/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRequest validates struct tags on the given value.
func ValidateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		return ierr.WithError(err).
			WithHint("One or more fields failed validation").
			Mark(ierr.ErrValidation)
	}
	return nil
}
