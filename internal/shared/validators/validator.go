package validators

import (
	"github.com/go-playground/validator/v10"
)

// Aliases so callers depend on this package instead of importing the
// validator module directly.
type (
	Validate         = validator.Validate
	ValidationErrors = validator.ValidationErrors
	FieldError       = validator.FieldError
)

// New returns a validator instance with the default tag set, which covers
// everything the config schema uses (required, min, max, uuid).
func New() *Validate {
	return validator.New()
}
