package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/academic-core-api/internal/models"
)

// NewValidator returns a validator with the domain tags registered:
// letter_grade, assessment_type and attendance_status.
func NewValidator() *validator.Validate {
	v := validator.New()
	RegisterValidations(v)
	return v
}

// RegisterValidations adds the domain tags to v.
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation("letter_grade", func(fl validator.FieldLevel) bool {
		_, ok := NormalizeLetter(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("assessment_type", func(fl validator.FieldLevel) bool {
		return models.AssessmentType(strings.ToUpper(fl.Field().String())).Valid()
	})
	_ = v.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(strings.ToUpper(fl.Field().String())).Valid()
	})
}

// validateStruct runs v over req and folds field failures into one Validation error.
func validateStruct(v *validator.Validate, req interface{}) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return validationError(err.Error())
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return validationError(strings.Join(parts, "; "))
}
