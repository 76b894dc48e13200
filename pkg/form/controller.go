// Package form owns the runtime state of one open form session: the values
// being edited, which fields the user has touched, the current validation
// errors and the submit lifecycle.
package form

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-userforms/pkg/model"
	"github.com/goliatone/go-userforms/pkg/validation"
)

var (
	// ErrSubmitInProgress is returned when Submit is called while a previous
	// submission has not finished. No store call is made.
	ErrSubmitInProgress = errors.New("form: submit already in progress")
	// ErrCompleted is returned by Submit once the session has succeeded.
	ErrCompleted = errors.New("form: session already completed")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("form: session closed")
)

// Submitter persists a validated payload. Every store.Store satisfies it.
type Submitter interface {
	Create(ctx context.Context, payload map[string]string) (model.Record, error)
	Update(ctx context.Context, id string, payload map[string]string) (model.Record, error)
}

// Lifecycle is the submit progress of a session.
type Lifecycle int

const (
	Idle Lifecycle = iota
	Submitting
	Succeeded
	Failed
)

func (l Lifecycle) String() string {
	switch l {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("lifecycle(%d)", int(l))
	}
}

// Result describes a finished Submit. A validation failure carries Errors and
// no Record; a successful submission carries the stored Record.
type Result struct {
	Record *model.Record
	Errors validation.Errors
}

// Valid reports whether the submission passed validation.
func (r Result) Valid() bool {
	return !validation.HasErrors(r.Errors)
}

// Option customises a Controller.
type Option func(*Controller)

// WithValidateOnBlur makes TouchField re-validate the touched field.
func WithValidateOnBlur() Option {
	return func(c *Controller) {
		c.validateOnBlur = true
	}
}

// WithValidator replaces the default message catalogue.
func WithValidator(v *validation.Validator) Option {
	return func(c *Controller) {
		if v != nil {
			c.validator = v
		}
	}
}

// WithLogger attaches a logger; submissions are logged at debug level and
// store failures at warn level.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller is one form session. It is safe for concurrent use; the store
// call made by Submit runs without holding the session lock.
type Controller struct {
	schema    *model.Schema
	submitter Submitter
	validator *validation.Validator
	logger    logrus.FieldLogger

	validateOnBlur bool

	mu         sync.Mutex
	values     map[string]string
	seed       map[string]string
	touched    mapset.Set[string]
	errors     validation.Errors
	lifecycle  Lifecycle
	recordID   string
	editMode   bool
	closed     bool
	generation uint64
}

// New creates a controller for schema, seeded with the schema's empty record.
// It panics when schema or submitter is nil.
func New(schema *model.Schema, submitter Submitter, options ...Option) *Controller {
	if schema == nil {
		panic("form: schema is required")
	}
	if submitter == nil {
		panic("form: submitter is required")
	}
	c := &Controller{
		schema:    schema,
		submitter: submitter,
		validator: validation.New(),
		logger:    discardLogger(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	c.Initialize(nil)
	return c
}

// Initialize resets the session. A non-nil record switches the session into
// edit mode and seeds values from the record's schema fields; otherwise the
// session creates a new record starting from the schema defaults.
func (c *Controller) Initialize(existing *model.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing != nil {
		c.values = c.schema.Project(existing.Values)
		c.recordID = existing.ID
		c.editMode = true
	} else {
		c.values = c.schema.EmptyRecord()
		c.recordID = ""
		c.editMode = false
	}
	c.seed = model.CloneValues(c.values)
	c.touched = mapset.NewThreadUnsafeSet[string]()
	c.errors = validation.Errors{}
	c.lifecycle = Idle
	c.closed = false
	c.generation++
}

// SetValue stores value for name and drops any error recorded for it. The
// field is not re-validated until the next blur or submit. Names outside the
// schema are ignored.
func (c *Controller) SetValue(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.schema.Has(name) {
		return
	}
	c.values[name] = value
	delete(c.errors, name)
}

// TouchField marks name as interacted with.
func (c *Controller) TouchField(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	field, ok := c.schema.Field(name)
	if !ok {
		return
	}
	c.touched.Add(name)
	if !c.validateOnBlur {
		return
	}
	if msg := c.validator.ValidateField(c.values[name], field.Validation); msg != "" {
		c.errors[name] = msg
	} else {
		delete(c.errors, name)
	}
}

// Submit validates the session and, when every field passes, creates or
// updates the record through the submitter. Validation failures are reported
// in the Result with a nil error. Store failures are returned wrapped and
// leave values and errors unchanged so the caller can retry.
func (c *Controller) Submit(ctx context.Context) (Result, error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return Result{}, ErrClosed
	case c.lifecycle == Submitting:
		c.mu.Unlock()
		return Result{}, ErrSubmitInProgress
	case c.lifecycle == Succeeded:
		c.mu.Unlock()
		return Result{}, ErrCompleted
	}

	for _, name := range c.schema.Names() {
		c.touched.Add(name)
	}
	c.errors = c.validator.ValidateForm(c.values, c.schema.Fields())
	if validation.HasErrors(c.errors) {
		c.lifecycle = Idle
		errs := c.errors.Clone()
		c.mu.Unlock()
		c.logger.WithField("invalid", len(errs)).Debug("form: submit rejected by validation")
		return Result{Errors: errs}, nil
	}

	c.lifecycle = Submitting
	payload := c.schema.Project(c.values)
	editMode, id, gen := c.editMode, c.recordID, c.generation
	c.mu.Unlock()

	logger := c.logger.WithFields(logrus.Fields{"edit": editMode, "id": id})
	logger.Debug("form: submitting")

	var (
		rec model.Record
		err error
	)
	if editMode {
		rec, err = c.submitter.Update(ctx, id, payload)
	} else {
		rec, err = c.submitter.Create(ctx, payload)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.generation != gen {
		logger.Debug("form: discarding result for a closed session")
		return Result{}, ErrClosed
	}
	if err != nil {
		c.lifecycle = Failed
		logger.WithError(err).Warn("form: submit failed")
		if editMode {
			return Result{}, fmt.Errorf("form: update %q: %w", id, err)
		}
		return Result{}, fmt.Errorf("form: create: %w", err)
	}
	c.lifecycle = Succeeded
	if rec.ID != "" {
		c.recordID = rec.ID
	}
	out := rec.Clone()
	return Result{Record: &out, Errors: validation.Errors{}}, nil
}

// Close ends the session. A submission still in flight completes against the
// store but its result is discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.generation++
}

// Schema returns the schema the session edits.
func (c *Controller) Schema() *model.Schema {
	return c.schema
}

// Values returns a copy of the current values.
func (c *Controller) Values() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CloneValues(c.values)
}

// Value returns the current value of name.
func (c *Controller) Value(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[name]
}

// Errors returns a copy of the current errors.
func (c *Controller) Errors() validation.Errors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors.Clone()
}

// Error returns the recorded error for name regardless of touched state.
func (c *Controller) Error(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors[name]
}

func (c *Controller) Touched(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched.Contains(name)
}

// VisibleError returns the error a renderer should display for name: the
// recorded error, but only once the field has been touched.
func (c *Controller) VisibleError(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.touched.Contains(name) {
		return ""
	}
	return c.errors[name]
}

func (c *Controller) Lifecycle() Lifecycle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lifecycle
}

// EditMode reports whether Submit updates an existing record.
func (c *Controller) EditMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editMode
}

// RecordID is the id being edited, or the id assigned after a successful
// create.
func (c *Controller) RecordID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordID
}

// Dirty reports whether any value differs from what the session started with.
func (c *Controller) Dirty() bool {
	return len(c.DirtyFields()) > 0
}

// DirtyFields lists, in schema order, the fields whose value differs from the
// initial value.
func (c *Controller) DirtyFields() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, name := range c.schema.Names() {
		if c.values[name] != c.seed[name] {
			out = append(out, name)
		}
	}
	return out
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
