package ingest

// validator.go decides which mapped products enter the catalog.
//
// The rules live as struct tags on catalog.Product (required id, name and
// category, price > 0, at least one image) and are checked with
// go-playground/validator. A failed check excludes the product; it never
// stops the ingestion run.

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ValidationError is a single failed rule.
type ValidationError struct {
	Field   string // JSON field name
	Value   string // offending value
	Message string // human-readable explanation
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors lists every rule a product failed.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the names of the failing fields.
func (e ValidationErrors) Fields() []string {
	out := make([]string, len(e))
	for i, ve := range e {
		out[i] = ve.Field
	}
	return out
}

// Validator checks products against the catalog's admission rules. It is
// safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a Validator.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Compare money as a number.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	// Report JSON names so messages match the API.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Validate returns nil for an admissible product and ValidationErrors
// otherwise.
func (v *Validator) Validate(p catalog.Product) error {
	err := v.validate.Struct(p)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Value:   fmt.Sprint(fe.Value()),
			Message: ruleMessage(fe),
		})
	}
	return out
}

// Valid reports whether p passes Validate.
func (v *Validator) Valid(p catalog.Product) bool {
	return v.Validate(p) == nil
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field is empty"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			return "needs at least " + fe.Param() + " entry"
		}
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
