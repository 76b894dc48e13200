package tui

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-userforms/pkg/form"
	"github.com/goliatone/go-userforms/pkg/model"
	"github.com/goliatone/go-userforms/pkg/store"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	confirm      []bool
	textAreas    []string
	infoMessages []string
	asked        []string
	inputDefault []string
	selectOpts   [][]string
	inputPos     int
	selectPos    int
	confirmPos   int
	textPos      int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.asked = append(s.asked, cfg.Message)
	s.inputDefault = append(s.inputDefault, cfg.Default)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	if cfg.Validator != nil {
		if err := cfg.Validator(val); err != nil {
			s.infoMessages = append(s.infoMessages, err.Error())
			return s.Input(context.Background(), cfg)
		}
	}
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.asked = append(s.asked, cfg.Message)
	s.selectOpts = append(s.selectOpts, cfg.Options)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	s.asked = append(s.asked, cfg.Message)
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func profileSchema() *model.Schema {
	return model.MustSchema(
		model.Field{Name: "name", Label: "Name", Type: model.FieldTypeText, Validation: model.Required(model.MinLength(2))},
		model.Field{Name: "role", Label: "Role", Type: model.FieldTypeSelect, Validation: model.Required(), Options: []model.Option{
			{Value: "user", Label: "User"},
			{Value: "admin", Label: "Administrator"},
		}},
		model.Field{Name: "team", Label: "Team", Type: model.FieldTypeSelect, Options: []model.Option{{Value: "core", Label: "Core"}}},
		model.Field{Name: "bio", Label: "Bio", Type: model.FieldTypeTextarea},
	)
}

func TestFill_PromptsByFieldType(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"Ann"},
		selectIdx: []int{1, 0},
		textAreas: []string{"hello\nworld"},
	}
	c := form.New(profileSchema(), store.NewMemoryStore())
	r := New(WithPromptDriver(driver))

	if err := r.Fill(context.Background(), c); err != nil {
		t.Fatalf("fill: %v", err)
	}

	want := map[string]string{"name": "Ann", "role": "admin", "team": "", "bio": "hello\nworld"}
	if diff := cmp.Diff(want, c.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Name *", "Role *", "Team", "Bio"}, driver.asked); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}
	wantOpts := [][]string{{"User", "Administrator"}, {"(none)", "Core"}}
	if diff := cmp.Diff(wantOpts, driver.selectOpts); diff != "" {
		t.Fatalf("select options mismatch (-want +got):\n%s", diff)
	}
	for _, name := range []string{"name", "role", "team", "bio"} {
		if !c.Touched(name) {
			t.Fatalf("%q should be touched after prompting", name)
		}
	}
}

func TestRun_RepromptsOnlyInvalidFields(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"A", "Ann"},
		selectIdx: []int{0, 1},
		textAreas: []string{""},
	}
	mem := store.NewMemoryStore(store.WithIDGenerator(func() string { return "42" }))
	c := form.New(profileSchema(), mem)
	r := New(WithPromptDriver(driver))

	res, err := r.Run(context.Background(), c)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Record == nil || res.Record.ID != "42" {
		t.Fatalf("expected stored record, got %+v", res.Record)
	}
	if diff := cmp.Diff([]string{"Name *", "Role *", "Team", "Bio", "Name *"}, driver.asked); diff != "" {
		t.Fatalf("prompt sequence mismatch (-want +got):\n%s", diff)
	}
	if got := driver.inputDefault[1]; got != "A" {
		t.Fatalf("re-prompt should default to the previous answer, got %q", got)
	}
	wantInfo := []string{"1 field(s) need attention", "✗ Name: Minimum 2 characters required"}
	if diff := cmp.Diff(wantInfo, driver.infoMessages); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
	if got := c.Lifecycle(); got != form.Succeeded {
		t.Fatalf("lifecycle = %s", got)
	}
}

func TestRun_EditPrefillsAndPropagatesStoreErrors(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"Bob"},
		selectIdx: []int{0, 0},
		textAreas: []string{"bio"},
	}
	c := form.New(profileSchema(), store.NewMemoryStore())
	c.Initialize(&model.Record{ID: "missing", Values: map[string]string{"name": "Robert", "role": "user"}})
	r := New(WithPromptDriver(driver))

	_, err := r.Run(context.Background(), c)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := driver.inputDefault[0]; got != "Robert" {
		t.Fatalf("edit prompt should default to the stored value, got %q", got)
	}
	if got := c.Value("name"); got != "Bob" {
		t.Fatalf("values must survive a store failure, got %q", got)
	}
}

func TestRun_MaxAttempts(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"A", "B"},
		selectIdx: []int{0, 0},
		textAreas: []string{""},
	}
	c := form.New(profileSchema(), store.NewMemoryStore())
	r := New(WithPromptDriver(driver), WithMaxAttempts(2))

	res, err := r.Run(context.Background(), c)
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
	if res.Valid() {
		t.Fatalf("result should carry the remaining errors")
	}
}

func TestFill_InlineValidationRetriesPrompt(t *testing.T) {
	driver := &stubDriver{inputs: []string{"A", "Al"}}
	schema := model.MustSchema(model.Field{Name: "name", Label: "Name", Type: model.FieldTypeText, Validation: model.Required(model.MinLength(2))})
	c := form.New(schema, store.NewMemoryStore())
	r := New(WithPromptDriver(driver), WithInlineValidation())

	if err := r.Fill(context.Background(), c); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if got := c.Value("name"); got != "Al" {
		t.Fatalf("value = %q", got)
	}
	if diff := cmp.Diff([]string{"Minimum 2 characters required"}, driver.infoMessages); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestFill_AbortStopsPrompting(t *testing.T) {
	driver := &abortingDriver{stubDriver: stubDriver{}}
	c := form.New(profileSchema(), store.NewMemoryStore())
	r := New(WithPromptDriver(driver))

	if err := r.Fill(context.Background(), c); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if c.Touched("name") {
		t.Fatalf("aborted prompt must not touch the field")
	}
}

type abortingDriver struct {
	stubDriver
}

func (d *abortingDriver) Input(context.Context, InputConfig) (string, error) {
	return "", ErrAborted
}

func TestConfirm(t *testing.T) {
	driver := &stubDriver{confirm: []bool{true}}
	r := New(WithPromptDriver(driver))
	ok, err := r.Confirm(context.Background(), "Delete?")
	if err != nil || !ok {
		t.Fatalf("confirm = %v, %v", ok, err)
	}
}
