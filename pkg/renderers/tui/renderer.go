// Package tui renders form sessions as terminal prompts. Each schema field is
// asked in order with the control its type calls for, and answers flow back
// into the session through SetValue and TouchField.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-userforms/pkg/form"
	"github.com/goliatone/go-userforms/pkg/model"
	"github.com/goliatone/go-userforms/pkg/validation"
)

const noneOption = "(none)"

// Renderer drives a form.Controller through a PromptDriver.
type Renderer struct {
	driver      PromptDriver
	theme       Theme
	maxAttempts int
	inline      bool
	validator   *validation.Validator
}

// New constructs a TUI renderer with defaults (survey driver on stdout, no
// attempt limit).
func New(options ...Option) *Renderer {
	r := &Renderer{
		theme:     DefaultTheme(),
		validator: validation.New(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// Fill prompts for the named fields, or every field when names is empty, in
// schema order. Each answer is stored and the field marked as touched.
func (r *Renderer) Fill(ctx context.Context, c *form.Controller, names ...string) error {
	if ctx == nil {
		return errors.New("tui: context is required")
	}
	if c == nil {
		return errors.New("tui: form controller is nil")
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}
	for _, field := range c.Schema().Fields() {
		if len(wanted) > 0 && !wanted[field.Name] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if msg := c.VisibleError(field.Name); msg != "" {
			if err := r.driver.Info(ctx, r.theme.ErrorPrefix+displayLabel(field)+": "+msg); err != nil {
				return err
			}
		}
		value, err := r.promptField(ctx, field, c.Value(field.Name))
		if err != nil {
			return err
		}
		c.SetValue(field.Name, value)
		c.TouchField(field.Name)
	}
	return nil
}

// Run fills the form and submits it, re-prompting only the fields that fail
// validation until the submission succeeds. Store failures end the run and
// are returned so the caller can report them; the session keeps its values
// for a retry.
func (r *Renderer) Run(ctx context.Context, c *form.Controller) (form.Result, error) {
	var pending []string
	for attempt := 1; ; attempt++ {
		if err := r.Fill(ctx, c, pending...); err != nil {
			return form.Result{}, err
		}
		res, err := c.Submit(ctx)
		if err != nil {
			return form.Result{}, err
		}
		if res.Valid() {
			return res, nil
		}
		if r.maxAttempts > 0 && attempt >= r.maxAttempts {
			return res, ErrTooManyAttempts
		}
		pending = invalidFields(c.Schema(), res.Errors)
		summary := fmt.Sprintf("%d field(s) need attention", len(pending))
		if err := r.driver.Info(ctx, r.theme.InfoPrefix+summary); err != nil {
			return form.Result{}, err
		}
	}
}

// Confirm asks a yes/no question through the driver.
func (r *Renderer) Confirm(ctx context.Context, message string) (bool, error) {
	return r.driver.Confirm(ctx, ConfirmConfig{Message: message})
}

// Info prints msg through the driver.
func (r *Renderer) Info(ctx context.Context, msg string) error {
	return r.driver.Info(ctx, msg)
}

func (r *Renderer) promptField(ctx context.Context, field model.Field, current string) (string, error) {
	label := displayLabel(field)
	if field.Required() {
		label += r.theme.RequiredMarker
	}
	help := displayHelp(field)

	switch field.Type {
	case model.FieldTypeSelect:
		return r.promptSelect(ctx, field, label, help, current)
	case model.FieldTypeTextarea:
		return r.driver.TextArea(ctx, TextAreaConfig{
			Message: label,
			Default: current,
			Help:    help,
		})
	default:
		cfg := InputConfig{
			Message: label,
			Default: current,
			Help:    help,
		}
		if r.inline && field.Validation != nil {
			rule := field.Validation
			cfg.Validator = func(value string) error {
				if msg := r.validator.ValidateField(value, rule); msg != "" {
					return errors.New(msg)
				}
				return nil
			}
		}
		return r.driver.Input(ctx, cfg)
	}
}

func (r *Renderer) promptSelect(ctx context.Context, field model.Field, label, help, current string) (string, error) {
	options := make([]string, 0, len(field.Options)+1)
	values := make([]string, 0, len(field.Options)+1)
	if !field.Required() {
		options = append(options, noneOption)
		values = append(values, "")
	}
	for _, opt := range field.Options {
		options = append(options, opt.Label)
		values = append(values, opt.Value)
	}
	defaultIdx := indexOf(values, current)

	for {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      label,
			Options:      options,
			DefaultIndex: defaultIdx,
			Help:         help,
		})
		if err != nil {
			return "", err
		}
		if idx >= 0 && idx < len(values) {
			return values[idx], nil
		}
		if err := r.driver.Info(ctx, fmt.Sprintf("%sInvalid %s selection", r.theme.ErrorPrefix, field.Name)); err != nil {
			return "", err
		}
	}
}

func invalidFields(s *model.Schema, errs validation.Errors) []string {
	var out []string
	for _, name := range s.Names() {
		if _, ok := errs[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func displayLabel(field model.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func displayHelp(field model.Field) string {
	if field.Placeholder != "" {
		return field.Placeholder
	}
	if field.Type == model.FieldTypeDate {
		return "YYYY-MM-DD"
	}
	return ""
}
