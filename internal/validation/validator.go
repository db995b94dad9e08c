package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/models"
	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Validator checks request payloads against their struct tags
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance. Field names in errors
// use the json tag so they match the request body.
func NewValidator() *Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: validate}
}

// ValidateCar validates a car create payload
func (v *Validator) ValidateCar(input *models.CarInput) []ValidationError {
	errs := v.check(input)
	if strings.TrimSpace(input.Brand) == "" && !hasField(errs, "brand") {
		errs = append(errs, ValidationError{Field: "brand", Message: "brand is required"})
	}
	if strings.TrimSpace(input.Model) == "" && !hasField(errs, "model") {
		errs = append(errs, ValidationError{Field: "model", Message: "model is required"})
	}
	return errs
}

// ValidateCarUpdate validates a partial car update
func (v *Validator) ValidateCarUpdate(update *models.CarUpdate) []ValidationError {
	return v.check(update)
}

// ValidateSeller validates a seller payload
func (v *Validator) ValidateSeller(input *models.SellerInput) []ValidationError {
	return v.check(input)
}

// ValidateSettings validates a full settings replacement
func (v *Validator) ValidateSettings(settings *models.SiteSettings) []ValidationError {
	return v.check(settings)
}

// ValidateLogin validates login credentials are present
func (v *Validator) ValidateLogin(req *models.LoginRequest) []ValidationError {
	return v.check(req)
}

// ValidatePasswordChange validates a change-password request
func (v *Validator) ValidatePasswordChange(req *models.ChangePasswordRequest) []ValidationError {
	return v.check(req)
}

func (v *Validator) check(s interface{}) []ValidationError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: "", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe),
			Message: message(fe),
			Value:   displayValue(fe),
		})
	}
	return out
}

// AsError folds validation errors into one ErrInvalidInput, or nil when there are none
func AsError(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Message)
	}
	return apperrors.WithMessage(apperrors.ErrInvalidInput, "%s", strings.Join(parts, "; "))
}

// fieldPath drops the top-level struct name: "CarInput.images[0]" -> "images[0]"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s accepts at most %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("invalid %s, must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return fmt.Sprintf("invalid %s format", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hexcolor":
		return fmt.Sprintf("%s must be a hex color such as #DC2626", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func displayValue(fe validator.FieldError) interface{} {
	if fe.Tag() == "required" {
		return nil
	}
	switch fe.Kind() {
	case reflect.Slice, reflect.Map, reflect.Struct:
		return nil
	}
	return fe.Value()
}

func hasField(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}
