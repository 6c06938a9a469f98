// Package validation checks request structs against their `validate` tags
// and reports failures as localized, field-level messages.
//
// Field display names come from the `label` struct tag and fall back to the
// Go field name. Messages are rendered in Brazilian Portuguese.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/pt_BR"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	ptbr "github.com/go-playground/validator/v10/translations/pt_BR"

	pkgerrors "user-service/pkg/errors"
)

const locale = "pt_BR"

// Messages overriding the stock pt_BR translations.
const (
	MsgEmpty = "O campo {0} não pode ser vazio."
	MsgEmail = "Informe um email valido."
)

// Validator validates structs and translates failures.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New builds a Validator with the pt_BR translations and the custom
// messages registered.
func New() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		return fld.Name
	})

	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		return nil, fmt.Errorf("register notblank: %w", err)
	}

	loc := pt_BR.New()
	uni := ut.New(loc, loc)
	trans, ok := uni.GetTranslator(locale)
	if !ok {
		return nil, fmt.Errorf("translator %q not found", locale)
	}

	if err := ptbr.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, fmt.Errorf("register %s translations: %w", locale, err)
	}

	overrides := map[string]string{
		"required": MsgEmpty,
		"notblank": MsgEmpty,
		"email":    MsgEmail,
	}
	for tag, text := range overrides {
		if err := v.RegisterTranslation(tag, trans, register(tag, text), translate(tag)); err != nil {
			return nil, fmt.Errorf("register %s translation: %w", tag, err)
		}
	}

	return &Validator{validate: v, trans: trans}, nil
}

// MustNew is like New but panics on error. The translation tables are
// static, so a failure here is a programming error.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

func register(tag, text string) validator.RegisterTranslationsFunc {
	return func(t ut.Translator) error {
		return t.Add(tag, text, true)
	}
}

func translate(tag string) validator.TranslationFunc {
	return func(t ut.Translator, fe validator.FieldError) string {
		msg, err := t.T(tag, fe.Field())
		if err != nil {
			return fe.Error()
		}
		return msg
	}
}

// Struct validates s. It returns nil, a *errors.ValidationError with one
// entry per failing field, or the validator's own error when s is not a
// struct.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &pkgerrors.ValidationError{Fields: make([]pkgerrors.FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, pkgerrors.FieldError{
			Field:   strings.ToLower(fe.StructField()),
			Message: fe.Translate(v.trans),
		})
	}
	return out
}
