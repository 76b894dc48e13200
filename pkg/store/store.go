// Package store implements the data access collaborator behind the form
// console: an injected in-memory store for demos and tests, a JSON-over-HTTP
// client for a remote API, and a SQLite store for the reference server.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-userforms/pkg/model"
)

// ErrNotFound is returned when an update or delete targets an unknown id.
var ErrNotFound = errors.New("store: record not found")

// Store is the contract the form controller and console depend on. Every
// operation may block and may fail; implementations are safe for concurrent
// use.
type Store interface {
	List(ctx context.Context) ([]model.Record, error)
	// Create stores payload under a newly generated id and returns the record.
	Create(ctx context.Context, payload map[string]string) (model.Record, error)
	// Update merges payload into the record identified by id.
	Update(ctx context.Context, id string, payload map[string]string) (model.Record, error)
	Delete(ctx context.Context, id string) error
}

// StatusError reports a transport level failure from a remote store.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store: %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("store: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

func notFound(id string) error {
	return fmt.Errorf("%w: %q", ErrNotFound, id)
}

func withoutID(payload map[string]string) map[string]string {
	out := make(map[string]string, len(payload))
	for key, value := range payload {
		if key == "id" {
			continue
		}
		out[key] = value
	}
	return out
}
