// Package api is the reference users API the HTTP store talks to. Besides the
// /users collection it publishes the form schema, an OpenAPI document and
// server rendered form fragments.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-userforms/internal/logging"
	"github.com/goliatone/go-userforms/pkg/model"
	htmlform "github.com/goliatone/go-userforms/pkg/renderers/html"
	"github.com/goliatone/go-userforms/pkg/schema"
	"github.com/goliatone/go-userforms/pkg/store"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFormRenderer replaces the HTML renderer behind /forms.
func WithFormRenderer(r *htmlform.Renderer) Option {
	return func(s *Server) {
		if r != nil {
			s.forms = r
		}
	}
}

// WithOpenAPI customises the generated OpenAPI document.
func WithOpenAPI(opts schema.OpenAPIOptions) Option {
	return func(s *Server) {
		s.openapi = opts
	}
}

// Server serves the users collection backed by a store.Store.
type Server struct {
	store   store.Store
	schema  *model.Schema
	forms   *htmlform.Renderer
	policy  *bluemonday.Policy
	logger  logrus.FieldLogger
	openapi schema.OpenAPIOptions
}

// New wires a server for st and s.
func New(st store.Store, s *model.Schema, options ...Option) (*Server, error) {
	if st == nil {
		return nil, errors.New("api: store is required")
	}
	if s == nil {
		return nil, errors.New("api: schema is required")
	}
	srv := &Server{
		store:  st,
		schema: s,
		policy: bluemonday.StrictPolicy(),
		logger: logging.Discard(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(srv)
		}
	}
	if srv.forms == nil {
		forms, err := htmlform.New()
		if err != nil {
			return nil, fmt.Errorf("api: form renderer: %w", err)
		}
		srv.forms = forms
	}
	return srv, nil
}

// Routes returns the router with middleware applied.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", s.listUsers)
		r.Post("/", s.createUser)
		r.Put("/{id}", s.updateUser)
		r.Delete("/{id}", s.deleteUser)
	})

	r.Get("/schema", s.describeSchema)
	r.Get("/openapi.json", s.openAPI)

	r.Route("/forms/users", func(r chi.Router) {
		r.Get("/new", s.newUserForm)
		r.Get("/{id}/edit", s.editUserForm)
	})
	return r
}

// Run serves handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, logger logrus.FieldLogger) error {
	if logger == nil {
		logger = logging.Discard()
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", addr).Info("starting server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	return nil
}
