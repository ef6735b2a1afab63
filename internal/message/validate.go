package message

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes a single schema violation in a validation response.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// Validator checks inbound payloads against the message schema.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a validator with the msisdn and utcts rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("msisdn", func(fl validator.FieldLevel) bool {
		return MSISDNPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("utcts", func(fl validator.FieldLevel) bool {
		return TimestampPattern.MatchString(fl.Field().String())
	})

	// Report field names as they appear on the wire.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Validate returns the list of schema violations, or nil if the payload is valid.
func (v *Validator) Validate(in *Inbound) []FieldError {
	err := v.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Loc: []string{"body"}, Msg: "Invalid payload", Type: "value_error"}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Loc:  []string{"body", fe.Field()},
			Msg:  messageFor(fe),
			Type: typeFor(fe),
		})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Field required"
	case "msisdn":
		return "String should match pattern '" + MSISDNPattern.String() + "'"
	case "utcts":
		return "String should match pattern '" + TimestampPattern.String() + "'"
	case "max":
		return "String should have at most " + fe.Param() + " characters"
	default:
		return "Invalid value"
	}
}

func typeFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "missing"
	case "msisdn", "utcts":
		return "string_pattern_mismatch"
	case "max":
		return "string_too_long"
	default:
		return "value_error"
	}
}
