package core

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	Validator  *validator.Validate
	Translator ut.Translator

	// custom validation tags
	notBlankTag = "notblank"
	requiredTag = "required"
	dateTag     = "datetime"
)

// Instantiate the validator for use.
func init() {
	Validator = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validator, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validator.RegisterValidation(notBlankTag, notBlankValidation)
	registerCustomValidationsTranslations(notBlankTag, requiredTag, dateTag)
}

// registerCustomValidationsTranslations registers error messages for custom validations.
// a validator.RegisterTranslationsFunc is required for registering the Translator,
// but it has already been registered as the default translation.
// so a noop func is passed to bypass this requirement.
func registerCustomValidationsTranslations(tags ...string) {
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = Validator.RegisterTranslation(tag, Translator, registerFn, translateCustomValidationErrs)
	}
}

func translateCustomValidationErrs(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag, requiredTag:
		return fieldLabel(fe.Field()) + " is required"
	case dateTag:
		return fieldLabel(fe.Field()) + " must be a date (YYYY-MM-DD)"
	default:
		return ""
	}
}

// fieldLabel turns a json field name into a label, eg. "dueDate" -> "Due date".
func fieldLabel(field string) string {
	if field == "" {
		return "This field"
	}
	var b strings.Builder
	for i, r := range field {
		switch {
		case i == 0:
			b.WriteString(strings.ToUpper(string(r)))
		case r >= 'A' && r <= 'Z':
			b.WriteByte(' ')
			b.WriteString(strings.ToLower(string(r)))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate runs struct validation on v and converts failures into a KindValidation *Error
// carrying one FieldError per offending field.
func Validate(v interface{}) error {
	err := Validator.Struct(v)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return errors.Wrap(err, "validating")
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		flds = append(flds, FieldError{Field: fe.Field(), Error: fe.Translate(Translator)})
	}
	return NewValidationError("", flds...)
}

// Custom Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}
