package api

import (
	"encoding/json"
	"html"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-userforms/pkg/model"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	if records == nil {
		records = []model.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.decodePayload(w, r)
	if !ok {
		return
	}
	rec, err := s.store.Create(r.Context(), s.schema.Project(payload))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// updateUser merges a partial payload into an existing record.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	payload, ok := s.decodePayload(w, r)
	if !ok {
		return
	}
	rec, err := s.store.Update(r.Context(), id, payload)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodePayload reads a flat JSON object, strips markup from every value and
// drops keys the schema does not declare. Rule checks belong to the form
// session on the client; the server only normalises.
func (s *Server) decodePayload(w http.ResponseWriter, r *http.Request) (map[string]string, bool) {
	defer r.Body.Close()

	var rec model.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body: "+err.Error())
		return nil, false
	}
	return s.sanitize(s.schema.Subset(rec.Values)), true
}

// sanitize removes HTML from values. bluemonday escapes the text it keeps,
// so entities are decoded back to plain text.
func (s *Server) sanitize(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for key, value := range values {
		out[key] = html.UnescapeString(s.policy.Sanitize(value))
	}
	return out
}
