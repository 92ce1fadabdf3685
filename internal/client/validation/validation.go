// Package validation checks form input before it is sent to the API and
// reports problems in the same shape as the server's field errors.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/schooldesk/internal/client/client"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const notBlankTag = "notblank"

// Errors is a failed validation. It lists every offending field.
type Errors []client.FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, f := range e {
		parts = append(parts, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldErrors returns the field errors carried by err, whether they came
// from local validation or from the server.
func FieldErrors(err error) []client.FieldError {
	var ve Errors
	if errors.As(err, &ve) {
		return ve
	}
	return client.FieldErrors(err)
}

type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds a validator with English messages and JSON field names.
func New() *Validator {
	v := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, notBlank)

	val := &Validator{validate: v, translator: trans}
	val.override(notBlankTag, "{0} is required")
	val.override("eqfield", "Passwords do not match")
	val.override("nefield", "{0} must differ from the current password")
	return val
}

// override replaces the message for tag. {0} is the field name.
func (v *Validator) override(tag, text string) {
	register := func(t ut.Translator) error {
		return t.Add(tag, text, true)
	}
	translate := func(t ut.Translator, fe validator.FieldError) string {
		msg, err := t.T(tag, fe.Field())
		if err != nil {
			return fe.Error()
		}
		return msg
	}
	_ = v.validate.RegisterTranslation(tag, v.translator, register, translate)
}

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

// Struct validates s and returns Errors, or nil when s is valid.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, client.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: fe.Translate(v.translator),
		})
	}
	return out
}

// fieldPath drops the struct type name from a namespace such as
// "StudentInput.name.firstName".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
