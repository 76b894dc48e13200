package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-userforms/pkg/form"
	"github.com/goliatone/go-userforms/pkg/model"
	htmlform "github.com/goliatone/go-userforms/pkg/renderers/html"
	"github.com/goliatone/go-userforms/pkg/schema"
)

func (s *Server) describeSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, schema.Describe(s.schema))
}

func (s *Server) openAPI(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, schema.ToOpenAPI(s.schema, s.openapi))
}

func (s *Server) newUserForm(w http.ResponseWriter, r *http.Request) {
	c := form.New(s.schema, s.store)
	defer c.Close()
	s.renderForm(w, r, c, htmlform.RenderOptions{Action: "/users", Method: "post", CancelURL: "/users"})
}

func (s *Server) editUserForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	records, err := s.store.List(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	var existing *model.Record
	for idx := range records {
		if records[idx].ID == id {
			existing = &records[idx]
			break
		}
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "user "+id+" not found")
		return
	}

	c := form.New(s.schema, s.store)
	defer c.Close()
	c.Initialize(existing)
	s.renderForm(w, r, c, htmlform.RenderOptions{Action: "/users/" + id, Method: "put", CancelURL: "/users"})
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, c *form.Controller, opts htmlform.RenderOptions) {
	out, err := s.forms.Render(r.Context(), c, opts)
	if err != nil {
		s.logger.WithError(err).Error("render form")
		writeError(w, http.StatusInternalServerError, "RENDER_ERROR", "failed to render form")
		return
	}
	w.Header().Set("Content-Type", s.forms.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}
