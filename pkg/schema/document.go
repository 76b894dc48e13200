package schema

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/goliatone/go-userforms/pkg/model"
)

// Document is the serialisable form of a schema, shared by the YAML/JSON
// loader, the `schema` command and the API's /schema endpoint.
type Document struct {
	Fields []FieldDocument `json:"fields" yaml:"fields"`
}

// FieldDocument describes one field. Layout carries the renderer's layout
// hint (a CSS grid column in the bundled schema).
type FieldDocument struct {
	Name         string         `json:"name" yaml:"name"`
	Label        string         `json:"label" yaml:"label"`
	Type         string         `json:"type" yaml:"type"`
	Placeholder  string         `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	DefaultValue string         `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Layout       string         `json:"layout,omitempty" yaml:"layout,omitempty"`
	Options      []model.Option `json:"options,omitempty" yaml:"options,omitempty"`
	Validation   *RuleDocument  `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// RuleDocument mirrors model.ValidationRule with optional members so unset
// and zero stay distinct.
type RuleDocument struct {
	Required  bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MinLength *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Custom    string   `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// Describe converts a schema back into its document form. Custom checks that
// were not resolved from a registry name cannot be written out and are left
// empty.
func Describe(s *model.Schema) Document {
	fields := s.Fields()
	doc := Document{Fields: make([]FieldDocument, 0, len(fields))}
	for _, field := range fields {
		entry := FieldDocument{
			Name:         field.Name,
			Label:        field.Label,
			Type:         string(field.Type),
			Placeholder:  field.Placeholder,
			DefaultValue: field.DefaultValue,
			Layout:       field.LayoutHint,
			Options:      append([]model.Option(nil), field.Options...),
		}
		if field.Validation != nil {
			entry.Validation = describeRule(field.Validation)
		}
		doc.Fields = append(doc.Fields, entry)
	}
	return doc
}

func describeRule(rule *model.ValidationRule) *RuleDocument {
	out := &RuleDocument{Required: rule.Required}
	for _, c := range rule.Ordered() {
		switch c.Kind {
		case model.RulePattern:
			out.Pattern = c.Expr
		case model.RuleMinLength:
			n := c.Length
			out.MinLength = &n
		case model.RuleMaxLength:
			n := c.Length
			out.MaxLength = &n
		case model.RuleMin:
			b := c.Bound
			out.Min = &b
		case model.RuleMax:
			b := c.Bound
			out.Max = &b
		case model.RuleCustom:
			out.Custom = c.Name
		}
	}
	return out
}

// build turns a parsed document into fields, collecting every problem rather
// than stopping at the first.
func (d Document) build(src Source, reg *Registry) ([]model.Field, error) {
	var errs error
	fields := make([]model.Field, 0, len(d.Fields))
	for idx, entry := range d.Fields {
		field, err := entry.toField(reg)
		if err != nil {
			name := strings.TrimSpace(entry.Name)
			if name == "" {
				name = fmt.Sprintf("#%d", idx)
			}
			errs = multierr.Append(errs, fmt.Errorf("schema: %s: field %s: %w", describe(src), name, err))
			continue
		}
		fields = append(fields, field)
	}
	return fields, errs
}

func (f FieldDocument) toField(reg *Registry) (model.Field, error) {
	field := model.Field{
		Name:         strings.TrimSpace(f.Name),
		Label:        f.Label,
		Type:         model.FieldType(strings.ToLower(strings.TrimSpace(f.Type))),
		Placeholder:  f.Placeholder,
		DefaultValue: f.DefaultValue,
		LayoutHint:   f.Layout,
		Options:      append([]model.Option(nil), f.Options...),
	}
	if field.Type == "" {
		field.Type = model.FieldTypeText
	}
	if field.Label == "" {
		field.Label = field.Name
	}
	if f.Validation == nil {
		return field, nil
	}
	rule, err := f.Validation.toRule(reg)
	if err != nil {
		return model.Field{}, err
	}
	field.Validation = rule
	return field, nil
}

func (r RuleDocument) toRule(reg *Registry) (*model.ValidationRule, error) {
	var (
		constraints []model.Constraint
		errs        error
	)
	if r.Pattern != "" {
		c, err := model.CompilePattern(r.Pattern)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			constraints = append(constraints, c)
		}
	}
	if r.MinLength != nil {
		constraints = append(constraints, model.MinLength(*r.MinLength))
	}
	if r.MaxLength != nil {
		constraints = append(constraints, model.MaxLength(*r.MaxLength))
	}
	if r.Min != nil {
		constraints = append(constraints, model.Min(*r.Min))
	}
	if r.Max != nil {
		constraints = append(constraints, model.Max(*r.Max))
	}
	if name := strings.TrimSpace(r.Custom); name != "" {
		c, err := reg.constraint(name)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			constraints = append(constraints, c)
		}
	}
	if errs != nil {
		return nil, errs
	}
	if r.Required {
		return model.Required(constraints...), nil
	}
	return model.Optional(constraints...), nil
}
