package api

import (
	"github.com/go-playground/validator/v10"
)

type requestValidator struct {
	v *validator.Validate
}

func NewValidator() *requestValidator {
	return &requestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (r *requestValidator) Validate(i any) error {
	return r.v.Struct(i)
}
