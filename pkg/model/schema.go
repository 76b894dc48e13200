package model

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

var (
	errFieldNameMissing = errors.New("field name is required")
	errSchemaEmpty      = errors.New("schema declares no fields")
)

// Schema is the ordered, immutable list of fields describing one entity's
// editable shape. Build it once at startup and share it; accessors hand out
// copies so no consumer can mutate it.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema checks fields and returns the schema, or every problem found
// joined into one error.
func NewSchema(fields ...Field) (*Schema, error) {
	if err := Check(fields); err != nil {
		return nil, err
	}
	s := &Schema{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for idx, field := range fields {
		s.fields[idx] = field.clone()
		s.index[field.Name] = idx
	}
	return s, nil
}

// MustSchema panics when the schema is malformed. A broken schema is a
// programmer error, so schemas declared in code use this at init time.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(fmt.Errorf("model: malformed schema: %w", err))
	}
	return s
}

// Check reports every structural problem in fields: empty or duplicate names,
// unknown types, select fields without options and rules with repeated kinds.
func Check(fields []Field) error {
	if len(fields) == 0 {
		return errSchemaEmpty
	}
	var err error
	seen := make(map[string]struct{}, len(fields))
	for idx, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			err = multierr.Append(err, fmt.Errorf("field #%d: %w", idx, errFieldNameMissing))
			continue
		}
		if name != field.Name {
			err = multierr.Append(err, fmt.Errorf("field %q: name has surrounding whitespace", field.Name))
		}
		if name == "id" {
			err = multierr.Append(err, fmt.Errorf("field %q: name is reserved for the record identifier", name))
		}
		if _, dup := seen[name]; dup {
			err = multierr.Append(err, fmt.Errorf("field %q: duplicate name", name))
		}
		seen[name] = struct{}{}
		if !field.Type.Valid() {
			err = multierr.Append(err, fmt.Errorf("field %q: unknown type %q", name, field.Type))
		}
		if field.Type == FieldTypeSelect {
			err = multierr.Append(err, checkOptions(name, field.Options))
		}
		err = multierr.Append(err, checkRule(name, field.Validation))
	}
	return err
}

func checkOptions(name string, options []Option) error {
	if len(options) == 0 {
		return fmt.Errorf("field %q: select requires options", name)
	}
	var err error
	seen := make(map[string]struct{}, len(options))
	labels := make(map[string]struct{}, len(options))
	for _, opt := range options {
		if _, dup := seen[opt.Value]; dup {
			err = multierr.Append(err, fmt.Errorf("field %q: duplicate option value %q", name, opt.Value))
		}
		seen[opt.Value] = struct{}{}
		// Prompts list labels, so two equal labels cannot be told apart.
		if _, dup := labels[opt.Label]; dup {
			err = multierr.Append(err, fmt.Errorf("field %q: duplicate option label %q", name, opt.Label))
		}
		labels[opt.Label] = struct{}{}
	}
	return err
}

func checkRule(name string, rule *ValidationRule) error {
	if rule == nil {
		return nil
	}
	var err error
	seen := make(map[RuleKind]struct{}, len(rule.Constraints))
	for _, c := range rule.Constraints {
		if _, known := ruleRank[c.Kind]; !known {
			err = multierr.Append(err, fmt.Errorf("field %q: unknown rule %q", name, c.Kind))
			continue
		}
		if _, dup := seen[c.Kind]; dup {
			err = multierr.Append(err, fmt.Errorf("field %q: rule %q declared twice", name, c.Kind))
		}
		seen[c.Kind] = struct{}{}
		switch c.Kind {
		case RulePattern:
			if c.Regexp == nil {
				err = multierr.Append(err, fmt.Errorf("field %q: pattern is not compiled", name))
			}
		case RuleMinLength, RuleMaxLength:
			if c.Length < 0 {
				err = multierr.Append(err, fmt.Errorf("field %q: %s must not be negative", name, c.Kind))
			}
		case RuleCustom:
			if c.Custom == nil {
				err = multierr.Append(err, fmt.Errorf("field %q: custom rule has no function", name))
			}
		}
	}
	minLen, hasMin := rule.Lookup(RuleMinLength)
	maxLen, hasMax := rule.Lookup(RuleMaxLength)
	if hasMin && hasMax && minLen.Length > maxLen.Length {
		err = multierr.Append(err, fmt.Errorf("field %q: minLength %d exceeds maxLength %d", name, minLen.Length, maxLen.Length))
	}
	return err
}

// Fields returns the fields in display order.
func (s *Schema) Fields() []Field {
	if s == nil {
		return nil
	}
	out := make([]Field, len(s.fields))
	for idx, field := range s.fields {
		out[idx] = field.clone()
	}
	return out
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fields)
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	idx, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[idx].clone(), true
}

// Has reports whether name is declared by the schema.
func (s *Schema) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[name]
	return ok
}

// Names lists field names in display order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.fields))
	for idx, field := range s.fields {
		names[idx] = field.Name
	}
	return names
}

// EmptyRecord maps every field to its default value, or "" without one. It
// seeds create-mode form sessions.
func (s *Schema) EmptyRecord() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(s.fields))
	for _, field := range s.fields {
		out[field.Name] = field.DefaultValue
	}
	return out
}

// Project keeps the keys of values the schema declares, filling missing
// fields with "". The record identifier and unknown keys are dropped.
func (s *Schema) Project(values map[string]string) map[string]string {
	if s == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(s.fields))
	for _, field := range s.fields {
		out[field.Name] = values[field.Name]
	}
	return out
}

// Subset keeps only the keys of values the schema declares, without filling
// gaps. Partial update payloads go through here.
func (s *Schema) Subset(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for key, value := range values {
		if s.Has(key) {
			out[key] = value
		}
	}
	return out
}
