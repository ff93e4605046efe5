// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validate is the shared validator instance used across all modules.
// It carries the custom rules registered below.
var Validate = newValidate()

// FieldError is the response-friendly shape of one failed rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("hhmm", validateHHMM)
	_ = v.RegisterValidation("weekday", validateWeekday)
	return v
}

// Describe flattens validation errors into FieldErrors. Other errors yield nil.
func Describe(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Namespace(), Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// validateHHMM accepts 24h wall-clock times such as "09:00" or "23:59".
func validateHHMM(fl validator.FieldLevel) bool {
	_, err := time.Parse("15:04", fl.Field().String())
	return err == nil && len(fl.Field().String()) == 5
}

func validateWeekday(fl validator.FieldLevel) bool {
	switch strings.ToLower(fl.Field().String()) {
	case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		return true
	}
	return false
}
