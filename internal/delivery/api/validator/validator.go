// Package validator adapts go-playground/validator to echo.Validator.
package validator

import (
	"reflect"
	"strings"

	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/errors"

	playground "github.com/go-playground/validator/v10"
)

// Validator validates request structs through their `validate` tags.
type Validator struct {
	validate *playground.Validate
}

// New returns a validator that reports fields by their JSON names.
func New() *Validator {
	v := playground.New(playground.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return &Validator{validate: v}
}

// Validate implements echo.Validator. Field errors become ErrValidationFailed naming the
// offending fields.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	fieldErrs, ok := errors.AsType[playground.ValidationErrors](err)
	if !ok {
		return errors.WithStack(err)
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field()+":"+fe.Tag())
	}

	return domainerrors.ErrValidationFailed.WithDetails(strings.Join(fields, ","))
}
