package validation

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-userforms/pkg/model"
)

// Errors maps field names to the message of their first failing check. Only
// failing fields are present.
type Errors map[string]string

// Clone returns a copy of the map; it never returns nil.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for key, value := range e {
		out[key] = value
	}
	return out
}

// Option configures a Validator.
type Option func(*Validator)

// WithMessages overrides the built-in error texts.
func WithMessages(messages Messages) Option {
	return func(v *Validator) {
		v.messages = messages.withDefaults()
	}
}

// Validator evaluates rules with a given message catalogue. It holds no other
// state and is safe for concurrent use.
type Validator struct {
	messages Messages
}

// New returns a Validator using DefaultMessages unless overridden.
func New(options ...Option) *Validator {
	v := &Validator{messages: DefaultMessages()}
	for _, opt := range options {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

var defaultValidator = New()

// ValidateField checks value against rule with the default catalogue.
func ValidateField(value string, rule *model.ValidationRule) string {
	return defaultValidator.ValidateField(value, rule)
}

// ValidateForm checks every field with the default catalogue.
func ValidateForm(values map[string]string, fields []model.Field) Errors {
	return defaultValidator.ValidateForm(values, fields)
}

// HasErrors reports whether errs holds at least one failing field.
func HasErrors(errs Errors) bool {
	return len(errs) > 0
}

// ValidateField returns the message for the first failing check, or "" when
// value passes. Checks run in a fixed order and stop at the first failure:
// required, the empty-value shortcut, then pattern, minLength, maxLength, min,
// max and finally the custom check. A nil rule always passes.
func (v *Validator) ValidateField(value string, rule *model.ValidationRule) string {
	if rule == nil {
		return ""
	}
	empty := strings.TrimSpace(value) == ""
	if empty {
		if rule.Required {
			return v.messages.Required()
		}
		return ""
	}

	for _, c := range rule.Ordered() {
		if msg := v.check(value, c); msg != "" {
			return msg
		}
	}
	return ""
}

func (v *Validator) check(value string, c model.Constraint) string {
	switch c.Kind {
	case model.RulePattern:
		if c.Regexp != nil && !c.Regexp.MatchString(value) {
			return v.messages.InvalidFormat()
		}
	case model.RuleMinLength:
		if utf8.RuneCountInString(value) < c.Length {
			return v.messages.MinLength(c.Length)
		}
	case model.RuleMaxLength:
		if utf8.RuneCountInString(value) > c.Length {
			return v.messages.MaxLength(c.Length)
		}
	case model.RuleMin:
		n, ok := parseNumber(value)
		if !ok {
			return v.messages.InvalidNumber()
		}
		if n < c.Bound {
			return v.messages.Min(c.Bound)
		}
	case model.RuleMax:
		n, ok := parseNumber(value)
		if !ok {
			return v.messages.InvalidNumber()
		}
		if n > c.Bound {
			return v.messages.Max(c.Bound)
		}
	case model.RuleCustom:
		if c.Custom != nil {
			return c.Custom(value)
		}
	}
	return ""
}

// ValidateForm runs ValidateField for every field in schema order. Values
// missing from the map are treated as empty.
func (v *Validator) ValidateForm(values map[string]string, fields []model.Field) Errors {
	errs := make(Errors)
	for _, field := range fields {
		if msg := v.ValidateField(values[field.Name], field.Validation); msg != "" {
			errs[field.Name] = msg
		}
	}
	return errs
}

// parseNumber accepts plain decimal literals with an optional exponent.
// Hex, digit separators, NaN and infinities are rejected.
func parseNumber(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" || strings.IndexFunc(value, notDecimalRune) >= 0 {
		return 0, false
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func notDecimalRune(r rune) bool {
	return !strings.ContainsRune("0123456789+-.eE", r)
}
