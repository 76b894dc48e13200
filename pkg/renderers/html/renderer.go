// Package html renders form sessions as HTML fragments using pongo2
// templates. Errors are shown only for fields the user has touched, matching
// the terminal renderer.
package html

import (
	"context"
	"embed"
	"errors"
	"io"
	"io/fs"
	"strconv"

	"github.com/goliatone/go-userforms/pkg/form"
	"github.com/goliatone/go-userforms/pkg/model"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

const formTemplate = "form"

// TemplatesFS returns the bundled templates.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// RenderOptions describes the surrounding form element.
type RenderOptions struct {
	Action    string
	Method    string
	Title     string
	CancelURL string
	// SubmitLabel overrides "Create <Entity>" / "Update <Entity>".
	SubmitLabel string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithEngine replaces the template engine, for example one loading templates
// from a theme directory.
func WithEngine(engine *Engine) Option {
	return func(r *Renderer) {
		if engine != nil {
			r.engine = engine
		}
	}
}

// WithEntity names the record kind used in titles and button labels.
func WithEntity(name string) Option {
	return func(r *Renderer) {
		if name != "" {
			r.entity = name
		}
	}
}

// Renderer produces a <form> fragment for a form.Controller.
type Renderer struct {
	engine *Engine
	entity string
}

// New returns a renderer backed by the bundled templates unless an engine is
// supplied.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{entity: "User"}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.engine == nil {
		engine, err := NewEngine(WithTemplatesFS(TemplatesFS()))
		if err != nil {
			return nil, err
		}
		r.engine = engine
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "html"
}

// ContentType reports the media type of Render output.
func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render writes the form for c to the optional writers and returns it.
func (r *Renderer) Render(ctx context.Context, c *form.Controller, opts RenderOptions, out ...io.Writer) (string, error) {
	if ctx == nil {
		return "", errors.New("html: context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c == nil {
		return "", errors.New("html: form controller is nil")
	}
	return r.engine.RenderTemplate(formTemplate, r.view(c, opts), out...)
}

func (r *Renderer) view(c *form.Controller, opts RenderOptions) map[string]any {
	editMode := c.EditMode()
	if opts.Method == "" {
		opts.Method = "post"
	}
	if opts.Title == "" {
		if editMode {
			opts.Title = "Edit " + r.entity
		} else {
			opts.Title = "Create New " + r.entity
		}
	}
	if opts.SubmitLabel == "" {
		if editMode {
			opts.SubmitLabel = "Update " + r.entity
		} else {
			opts.SubmitLabel = "Create " + r.entity
		}
	}

	schemaFields := c.Schema().Fields()
	fields := make([]map[string]any, 0, len(schemaFields))
	for _, field := range schemaFields {
		fields = append(fields, fieldView(field, c.Value(field.Name), c.VisibleError(field.Name)))
	}

	return map[string]any{
		"form": map[string]any{
			"method":      opts.Method,
			"action":      opts.Action,
			"title":       opts.Title,
			"cancelUrl":   opts.CancelURL,
			"submitLabel": opts.SubmitLabel,
			"editMode":    editMode,
			"recordId":    c.RecordID(),
			"submitting":  c.Lifecycle() == form.Submitting,
		},
		"fields": fields,
	}
}

func fieldView(field model.Field, value, errMsg string) map[string]any {
	control := "input"
	switch field.Type {
	case model.FieldTypeTextarea:
		control = "textarea"
	case model.FieldTypeSelect:
		control = "select"
	}

	options := make([]map[string]any, 0, len(field.Options))
	for _, opt := range field.Options {
		options = append(options, map[string]any{
			"value":    opt.Value,
			"label":    opt.Label,
			"selected": opt.Value == value,
		})
	}

	view := map[string]any{
		"id":          "field-" + field.Name,
		"name":        field.Name,
		"label":       field.Label,
		"type":        string(field.Type),
		"control":     control,
		"value":       value,
		"placeholder": field.Placeholder,
		"required":    field.Required(),
		"layout":      field.LayoutHint,
		"error":       errMsg,
		"options":     options,
		"pattern":     "",
		"minLength":   "",
		"maxLength":   "",
		"min":         "",
		"max":         "",
	}
	for _, c := range field.Validation.Ordered() {
		switch c.Kind {
		case model.RulePattern:
			view["pattern"] = c.Expr
		case model.RuleMinLength:
			view["minLength"] = strconv.Itoa(c.Length)
		case model.RuleMaxLength:
			view["maxLength"] = strconv.Itoa(c.Length)
		case model.RuleMin:
			view["min"] = strconv.FormatFloat(c.Bound, 'f', -1, 64)
		case model.RuleMax:
			view["max"] = strconv.FormatFloat(c.Bound, 'f', -1, 64)
		}
	}
	return view
}
