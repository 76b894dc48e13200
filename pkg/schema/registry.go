package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/goliatone/go-userforms/pkg/model"
)

// Built-in custom validator names.
const (
	ValidatorNoLeadingWhitespace = "noLeadingWhitespace"
	ValidatorDigitsOnly          = "digitsOnly"
	ValidatorNotFutureDate       = "notFutureDate"
)

// DateLayout is the wire format of date fields.
const DateLayout = "2006-01-02"

// Registry maps names used in schema documents (`custom: digitsOnly`) to the
// checks they stand for. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]model.CustomFunc
	now   func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock overrides time.Now for date based validators.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry constructs a registry with the built-in validators registered.
func NewRegistry(options ...RegistryOption) *Registry {
	reg := &Registry{
		funcs: make(map[string]model.CustomFunc),
		now:   time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(reg)
		}
	}
	reg.registerBuiltins()
	return reg
}

// Register adds fn under name. Names are case sensitive; registering an
// existing name is an error.
func (r *Registry) Register(name string, fn model.CustomFunc) error {
	if r == nil {
		return fmt.Errorf("schema: registry is nil")
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("schema: custom validator name is empty")
	}
	if fn == nil {
		return fmt.Errorf("schema: custom validator %q has no function", trimmed)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[trimmed]; exists {
		return fmt.Errorf("schema: custom validator %q already registered", trimmed)
	}
	r.funcs[trimmed] = fn
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(name string, fn model.CustomFunc) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the validator registered under name.
func (r *Registry) Lookup(name string) (model.CustomFunc, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[strings.TrimSpace(name)]
	return fn, ok
}

// Names lists registered validators sorted alphabetically.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// constraint resolves name into a custom constraint carrying the name so it
// can be written back out.
func (r *Registry) constraint(name string) (model.Constraint, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return model.Constraint{}, fmt.Errorf("unknown custom validator %q", name)
	}
	return model.Custom(strings.TrimSpace(name), fn), nil
}

func (r *Registry) registerBuiltins() {
	r.funcs[ValidatorNoLeadingWhitespace] = func(value string) string {
		if value != "" && unicode.IsSpace([]rune(value)[0]) {
			return "Must not start with a space"
		}
		return ""
	}
	r.funcs[ValidatorDigitsOnly] = func(value string) string {
		for _, ch := range value {
			if ch < '0' || ch > '9' {
				return "Only digits are allowed"
			}
		}
		return ""
	}
	now := r.now
	r.funcs[ValidatorNotFutureDate] = func(value string) string {
		day, err := time.Parse(DateLayout, strings.TrimSpace(value))
		if err != nil {
			return "Must be a date (YYYY-MM-DD)"
		}
		current := now()
		today := time.Date(current.Year(), current.Month(), current.Day(), 0, 0, 0, 0, time.UTC)
		if day.After(today) {
			return "Date cannot be in the future"
		}
		return ""
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process wide registry used when loaders are not
// given one explicitly.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
