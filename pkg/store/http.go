package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-userforms/pkg/model"
)

// DefaultBaseURL is where the HTTP store looks for the API when no base URL
// is configured.
const DefaultBaseURL = "http://localhost:3001"

// HTTPOption configures an HTTPStore.
type HTTPOption func(*HTTPStore)

// WithHTTPClient overrides http.DefaultClient.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPStore) {
		if client != nil {
			s.client = client
		}
	}
}

// WithResource changes the collection path (default "users").
func WithResource(resource string) HTTPOption {
	return func(s *HTTPStore) {
		if trimmed := strings.Trim(strings.TrimSpace(resource), "/"); trimmed != "" {
			s.resource = trimmed
		}
	}
}

// WithResultsPath reads the list response from a dotted path (for example
// "data" for {"data": [...]}) instead of the top-level array.
func WithResultsPath(path string) HTTPOption {
	return func(s *HTTPStore) {
		s.resultsPath = strings.TrimSpace(path)
	}
}

// HTTPStore talks JSON to a REST collection: GET/POST on {base}/{resource}
// and PUT/DELETE on {base}/{resource}/{id}.
type HTTPStore struct {
	base        *url.URL
	resource    string
	resultsPath string
	client      *http.Client
}

var _ Store = (*HTTPStore)(nil)

// NewHTTPStore validates baseURL and returns a client for it.
func NewHTTPStore(baseURL string, options ...HTTPOption) (*HTTPStore, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("store: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("store: base url %q must be http or https", raw)
	}
	s := &HTTPStore{
		base:     base,
		resource: "users",
		client:   http.DefaultClient,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *HTTPStore) List(ctx context.Context) ([]model.Record, error) {
	body, err := s.do(ctx, "list", http.MethodGet, s.collectionURL(), nil)
	if err != nil {
		return nil, err
	}
	if s.resultsPath != "" {
		result := gjson.GetBytes(body, s.resultsPath)
		if !result.Exists() {
			return nil, fmt.Errorf("store: list: results path %q missing from response", s.resultsPath)
		}
		body = []byte(result.Raw)
	}
	var records []model.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("store: list: decode: %w", err)
	}
	return records, nil
}

func (s *HTTPStore) Create(ctx context.Context, payload map[string]string) (model.Record, error) {
	return s.write(ctx, "create", http.MethodPost, s.collectionURL(), payload)
}

func (s *HTTPStore) Update(ctx context.Context, id string, payload map[string]string) (model.Record, error) {
	return s.write(ctx, "update", http.MethodPut, s.itemURL(id), payload)
}

func (s *HTTPStore) Delete(ctx context.Context, id string) error {
	_, err := s.do(ctx, "delete", http.MethodDelete, s.itemURL(id), nil)
	if isStatus(err, http.StatusNotFound) {
		return notFound(id)
	}
	return err
}

func (s *HTTPStore) write(ctx context.Context, op, method, target string, payload map[string]string) (model.Record, error) {
	encoded, err := json.Marshal(withoutID(payload))
	if err != nil {
		return model.Record{}, fmt.Errorf("store: %s: encode: %w", op, err)
	}
	body, err := s.do(ctx, op, method, target, encoded)
	if err != nil {
		if op == "update" && isStatus(err, http.StatusNotFound) {
			return model.Record{}, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return model.Record{}, err
	}
	var rec model.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return model.Record{}, fmt.Errorf("store: %s: decode: %w", op, err)
	}
	return rec, nil
}

func (s *HTTPStore) do(ctx context.Context, op, method, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("store: %s: request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store: %s: do request: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("store: %s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

func (s *HTTPStore) collectionURL() string {
	return s.base.JoinPath(s.resource).String()
}

func (s *HTTPStore) itemURL(id string) string {
	return s.base.JoinPath(s.resource, id).String()
}

// errorMessage pulls a human readable message out of common error bodies:
// {"error": "..."}, {"message": "..."} or {"error": {"message": "..."}}.
func errorMessage(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	for _, path := range []string{"error.message", "error", "message"} {
		result := gjson.GetBytes(body, path)
		if result.Exists() && result.Type == gjson.String {
			return result.String()
		}
	}
	return ""
}

func isStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}
