// Package console is the page level collaborator of the userforms CLI. It
// lists records, opens create and edit sessions through a prompter and
// reports every outcome through a Notifier.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-userforms/internal/logging"
	"github.com/goliatone/go-userforms/pkg/form"
	"github.com/goliatone/go-userforms/pkg/model"
	"github.com/goliatone/go-userforms/pkg/renderers/tui"
	"github.com/goliatone/go-userforms/pkg/store"
)

// Prompter drives a form session to completion. *tui.Renderer implements it.
type Prompter interface {
	Run(ctx context.Context, c *form.Controller) (form.Result, error)
	Confirm(ctx context.Context, message string) (bool, error)
}

// Option configures an App.
type Option func(*App)

func WithPrompter(p Prompter) Option {
	return func(a *App) {
		if p != nil {
			a.prompter = p
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(a *App) {
		if n != nil {
			a.notifier = n
		}
	}
}

// WithOutput sets where tables are written (default stdout).
func WithOutput(out io.Writer) Option {
	return func(a *App) {
		if out != nil {
			a.out = out
		}
	}
}

// WithMode labels the data source in the stats line, e.g. "Mock".
func WithMode(mode string) Option {
	return func(a *App) {
		a.mode = mode
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithFormOptions are applied to every session the app opens.
func WithFormOptions(options ...form.Option) Option {
	return func(a *App) {
		a.formOptions = append(a.formOptions, options...)
	}
}

// App lists, creates, edits and deletes records of one schema.
type App struct {
	store       store.Store
	schema      *model.Schema
	prompter    Prompter
	notifier    Notifier
	out         io.Writer
	mode        string
	logger      logrus.FieldLogger
	formOptions []form.Option
}

// New wires an App. The prompter defaults to a survey backed tui.Renderer.
func New(st store.Store, s *model.Schema, options ...Option) (*App, error) {
	if st == nil {
		return nil, errors.New("console: store is required")
	}
	if s == nil {
		return nil, errors.New("console: schema is required")
	}
	a := &App{
		store:  st,
		schema: s,
		out:    os.Stdout,
		mode:   "Mock",
		logger: logging.Discard(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}
	if a.prompter == nil {
		a.prompter = tui.New()
	}
	if a.notifier == nil {
		a.notifier = NewWriterNotifier(a.out, a.logger)
	}
	return a, nil
}

// Refresh loads every record and prints the table and the stats line.
func (a *App) Refresh(ctx context.Context) ([]model.Record, error) {
	records, err := a.store.List(ctx)
	if err != nil {
		a.logger.WithError(err).Error("load users")
		a.notifier.Notify(LevelError, "Failed to load users. Please try again.")
		return nil, fmt.Errorf("console: list: %w", err)
	}
	if err := a.writeTable(records); err != nil {
		return records, err
	}
	return records, nil
}

// Create opens an empty session and submits it.
func (a *App) Create(ctx context.Context) (*model.Record, error) {
	return a.runSession(ctx, nil, "User created successfully!", "Failed to create user. Please try again.")
}

// Edit opens a session prefilled with the record identified by id.
func (a *App) Edit(ctx context.Context, id string) (*model.Record, error) {
	existing, err := a.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.runSession(ctx, existing, "User updated successfully!", "Failed to update user. Please try again.")
}

// Delete removes the record identified by id after confirmation. It reports
// whether the record was deleted.
func (a *App) Delete(ctx context.Context, id string) (bool, error) {
	existing, err := a.find(ctx, id)
	if err != nil {
		return false, err
	}
	ok, err := a.prompter.Confirm(ctx, fmt.Sprintf("Are you sure you want to delete %s?", a.displayName(*existing)))
	if err != nil {
		if errors.Is(err, tui.ErrAborted) {
			return false, nil
		}
		return false, err
	}
	if !ok {
		a.notifier.Notify(LevelInfo, "Delete cancelled")
		return false, nil
	}
	if err := a.store.Delete(ctx, id); err != nil {
		a.logger.WithError(err).WithField("id", id).Error("delete user")
		a.notifier.Notify(LevelError, "Failed to delete user. Please try again.")
		return false, fmt.Errorf("console: delete %q: %w", id, err)
	}
	a.notifier.Notify(LevelSuccess, "User deleted successfully!")
	return true, nil
}

// runSession runs the prompter until the submission succeeds, the user
// declines a retry after a store failure, or the prompt is aborted. A nil
// record with a nil error means the user cancelled.
func (a *App) runSession(ctx context.Context, existing *model.Record, success, failure string) (*model.Record, error) {
	c := form.New(a.schema, a.store, a.formOptions...)
	defer c.Close()
	c.Initialize(existing)

	for {
		res, err := a.prompter.Run(ctx, c)
		switch {
		case errors.Is(err, tui.ErrAborted):
			a.notifier.Notify(LevelInfo, "Cancelled")
			return nil, nil
		case err == nil && res.Valid():
			a.notifier.Notify(LevelSuccess, success)
			return res.Record, nil
		case err == nil:
			return nil, fmt.Errorf("console: %d field(s) still invalid", len(res.Errors))
		}

		a.logger.WithError(err).Error("submit user")
		a.notifier.Notify(LevelError, failure)
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, tui.ErrTooManyAttempts) || ctx.Err() != nil {
			return nil, err
		}
		retry, confirmErr := a.prompter.Confirm(ctx, "Try again?")
		if confirmErr != nil || !retry {
			return nil, err
		}
	}
}

func (a *App) find(ctx context.Context, id string) (*model.Record, error) {
	records, err := a.store.List(ctx)
	if err != nil {
		a.notifier.Notify(LevelError, "Failed to load users. Please try again.")
		return nil, fmt.Errorf("console: list: %w", err)
	}
	for idx := range records {
		if records[idx].ID == id {
			return &records[idx], nil
		}
	}
	a.notifier.Notify(LevelError, fmt.Sprintf("User %s not found", id))
	return nil, fmt.Errorf("console: %w: %q", store.ErrNotFound, id)
}

func (a *App) writeTable(records []model.Record) error {
	fields := a.schema.Fields()

	if len(records) == 0 {
		fmt.Fprintln(a.out, "No users yet")
		fmt.Fprintln(a.out, `Run "userforms create" to add your first user`)
	} else {
		tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		header := []string{"ID"}
		for _, field := range fields {
			header = append(header, strings.ToUpper(field.Label))
		}
		fmt.Fprintln(tw, strings.Join(header, "\t"))
		for _, rec := range records {
			row := []string{rec.ID}
			for _, field := range fields {
				row = append(row, a.cell(field, rec.Get(field.Name)))
			}
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("console: write table: %w", err)
		}
	}

	_, err := fmt.Fprintf(a.out, "\nTotal Users: %d  Status: Active  API Mode: %s\n", len(records), a.mode)
	return err
}

// cell shows option labels for selects and flattens multi-line text.
func (a *App) cell(field model.Field, value string) string {
	if label, ok := field.OptionLabel(value); ok {
		return label
	}
	if value == "" {
		return "-"
	}
	return strings.Join(strings.Fields(value), " ")
}

// displayName joins the values of the first two text fields ("John Wick" for
// the users schema), falling back to the id.
func (a *App) displayName(rec model.Record) string {
	var parts []string
	for _, field := range a.schema.Fields() {
		if field.Type != model.FieldTypeText {
			continue
		}
		if v := strings.TrimSpace(rec.Get(field.Name)); v != "" {
			parts = append(parts, v)
		}
		if len(parts) == 2 {
			break
		}
	}
	if len(parts) == 0 {
		return "user " + rec.ID
	}
	return strings.Join(parts, " ")
}
