package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// FieldType is the closed set of input kinds a schema field can declare. The
// type picks the control a renderer draws; it never adds validation on its
// own.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypeTel      FieldType = "tel"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
)

var fieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeEmail,
	FieldTypeTel,
	FieldTypeNumber,
	FieldTypeDate,
	FieldTypeTextarea,
	FieldTypeSelect,
}

// FieldTypes lists every supported field type in declaration order.
func FieldTypes() []FieldType {
	return append([]FieldType(nil), fieldTypes...)
}

// Valid reports whether t belongs to the supported set.
func (t FieldType) Valid() bool {
	for _, candidate := range fieldTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// RuleKind identifies a constraint inside a ValidationRule. Kinds double as
// the canonical evaluation order: constraints always run in the order listed
// here, whatever order they were declared in.
type RuleKind string

const (
	RulePattern   RuleKind = "pattern"
	RuleMinLength RuleKind = "minLength"
	RuleMaxLength RuleKind = "maxLength"
	RuleMin       RuleKind = "min"
	RuleMax       RuleKind = "max"
	RuleCustom    RuleKind = "custom"
)

var ruleRank = map[RuleKind]int{
	RulePattern:   0,
	RuleMinLength: 1,
	RuleMaxLength: 2,
	RuleMin:       3,
	RuleMax:       4,
	RuleCustom:    5,
}

// CustomFunc is a caller supplied check. It returns the error message for an
// invalid value, or "" when the value passes.
type CustomFunc func(value string) string

// Constraint is one tagged entry of a ValidationRule. Only the parameter that
// matches Kind is meaningful.
type Constraint struct {
	Kind RuleKind

	// Expr keeps the pattern source as declared; Regexp is the anchored,
	// compiled form used for full matches.
	Expr   string
	Regexp *regexp.Regexp

	// Length is the bound for minLength/maxLength, counted in characters.
	Length int
	// Bound is the numeric limit for min/max.
	Bound float64

	// Name is the registry key a custom check was resolved from, if any.
	Name   string
	Custom CustomFunc
}

// CompilePattern builds a pattern constraint. The expression must match the
// whole value, so it is anchored when compiled.
func CompilePattern(expr string) (Constraint, error) {
	if strings.TrimSpace(expr) == "" {
		return Constraint{}, fmt.Errorf("model: pattern is empty")
	}
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return Constraint{}, fmt.Errorf("model: compile pattern %q: %w", expr, err)
	}
	return Constraint{Kind: RulePattern, Expr: expr, Regexp: re}, nil
}

// Pattern is CompilePattern for schemas declared in code. It panics on an
// invalid expression.
func Pattern(expr string) Constraint {
	c, err := CompilePattern(expr)
	if err != nil {
		panic(err)
	}
	return c
}

func MinLength(n int) Constraint { return Constraint{Kind: RuleMinLength, Length: n} }

func MaxLength(n int) Constraint { return Constraint{Kind: RuleMaxLength, Length: n} }

func Min(bound float64) Constraint { return Constraint{Kind: RuleMin, Bound: bound} }

func Max(bound float64) Constraint { return Constraint{Kind: RuleMax, Bound: bound} }

// Custom wraps fn as the last check of a rule. name may be empty for checks
// declared inline.
func Custom(name string, fn CustomFunc) Constraint {
	return Constraint{Kind: RuleCustom, Name: name, Custom: fn}
}

// ValidationRule is the rule set attached to a field: a required flag plus at
// most one constraint per kind.
type ValidationRule struct {
	Required    bool
	Constraints []Constraint
}

// Required returns a rule marking the field as mandatory.
func Required(constraints ...Constraint) *ValidationRule {
	return newRule(true, constraints)
}

// Optional returns a rule whose constraints only apply to non-empty values.
func Optional(constraints ...Constraint) *ValidationRule {
	return newRule(false, constraints)
}

func newRule(required bool, constraints []Constraint) *ValidationRule {
	rule := &ValidationRule{Required: required}
	rule.Constraints = append(rule.Constraints, constraints...)
	rule.sort()
	return rule
}

// Lookup returns the constraint of the given kind.
func (r *ValidationRule) Lookup(kind RuleKind) (Constraint, bool) {
	if r == nil {
		return Constraint{}, false
	}
	for _, c := range r.Constraints {
		if c.Kind == kind {
			return c, true
		}
	}
	return Constraint{}, false
}

// Ordered returns the constraints in evaluation order.
func (r *ValidationRule) Ordered() []Constraint {
	if r == nil || len(r.Constraints) == 0 {
		return nil
	}
	out := append([]Constraint(nil), r.Constraints...)
	sort.SliceStable(out, func(i, j int) bool {
		return ruleRank[out[i].Kind] < ruleRank[out[j].Kind]
	})
	return out
}

func (r *ValidationRule) sort() {
	r.Constraints = r.Ordered()
}

func (r *ValidationRule) clone() *ValidationRule {
	if r == nil {
		return nil
	}
	return newRule(r.Required, r.Constraints)
}

// Option is one (value, label) entry of a select field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Field describes one input slot of a form. It is plain data: renderers read
// it to pick a control and the validation engine reads Validation.
type Field struct {
	Name         string
	Label        string
	Type         FieldType
	Placeholder  string
	Validation   *ValidationRule
	Options      []Option
	DefaultValue string
	// LayoutHint is passed through to renderers untouched.
	LayoutHint string
}

// Required reports whether the field carries a required rule.
func (f Field) Required() bool {
	return f.Validation != nil && f.Validation.Required
}

// OptionLabel resolves the label shown for a select value.
func (f Field) OptionLabel(value string) (string, bool) {
	for _, opt := range f.Options {
		if opt.Value == value {
			return opt.Label, true
		}
	}
	return "", false
}

func (f Field) clone() Field {
	out := f
	out.Validation = f.Validation.clone()
	if len(f.Options) > 0 {
		out.Options = append([]Option(nil), f.Options...)
	}
	return out
}

// Record is an entity managed through a schema: a system assigned ID plus one
// string value per schema field. It serialises as a flat JSON object.
type Record struct {
	ID     string
	Values map[string]string
}

// Get returns the value stored for name.
func (r Record) Get(name string) string {
	return r.Values[name]
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	return Record{ID: r.ID, Values: CloneValues(r.Values)}
}

// MarshalJSON flattens the record into {"id": ..., "<field>": ...}.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]string, len(r.Values)+1)
	for key, value := range r.Values {
		flat[key] = value
	}
	flat["id"] = r.ID
	return json.Marshal(flat)
}

// UnmarshalJSON reads a flat object. Non-string scalars are kept in their
// textual form so numeric ids from third-party APIs survive.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("model: decode record: %w", err)
	}
	values := make(map[string]string, len(raw))
	id := ""
	for key, msg := range raw {
		text, err := scalarText(msg)
		if err != nil {
			return fmt.Errorf("model: decode record field %q: %w", key, err)
		}
		if key == "id" {
			id = text
			continue
		}
		values[key] = text
	}
	r.ID = id
	r.Values = values
	return nil
}

func scalarText(msg json.RawMessage) (string, error) {
	var value any
	if err := json.Unmarshal(msg, &value); err != nil {
		return "", err
	}
	switch typed := value.(type) {
	case nil:
		return "", nil
	case string:
		return typed, nil
	case float64, bool:
		return strings.TrimSpace(string(msg)), nil
	default:
		return "", fmt.Errorf("expected a scalar, got %T", value)
	}
}

// CloneValues copies a value map. A nil map stays nil.
func CloneValues(values map[string]string) map[string]string {
	if values == nil {
		return nil
	}
	out := make(map[string]string, len(values))
	for key, value := range values {
		out[key] = value
	}
	return out
}
