package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-userforms/internal/logging"
	"github.com/goliatone/go-userforms/pkg/model"
	"github.com/goliatone/go-userforms/pkg/schema"
	"github.com/goliatone/go-userforms/pkg/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	ids := 0
	mem := store.NewMemoryStore(
		store.WithRecords(store.SeedUsers()...),
		store.WithIDGenerator(func() string {
			ids++
			return "new-" + strconv.Itoa(ids)
		}),
	)
	srv, err := New(mem, schema.Users())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, mem
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, schema.Users())
	assert.Error(t, err)
	_, err = New(store.NewMemoryStore(), nil)
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decodeBody[map[string]string](t, resp))
}

func TestListUsers(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doJSON(t, http.MethodGet, ts.URL+"/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	records := decodeBody[[]model.Record](t, resp)
	require.Len(t, records, 3)
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "John", records[0].Get("firstName"))
}

func TestCreateUser_SanitizesAndProjects(t *testing.T) {
	ts, mem := newTestServer(t)
	resp := doJSON(t, http.MethodPost, ts.URL+"/users", map[string]string{
		"id":          "ignored",
		"firstName":   "<b>Ann</b>",
		"lastName":    "O'Brien",
		"email":       "ann@example.com",
		"phoneNumber": "5550100123",
		"nickname":    "dropped",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	rec := decodeBody[model.Record](t, resp)
	assert.Equal(t, "new-1", rec.ID)
	assert.Equal(t, map[string]string{
		"firstName":   "Ann",
		"lastName":    "O'Brien",
		"email":       "ann@example.com",
		"phoneNumber": "5550100123",
	}, rec.Values)

	all, err := mem.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCreateUser_LeavesRuleChecksToTheForm(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, ts.URL+"/users", map[string]string{
		"firstName": "A",
		"email":     "not-an-email",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	rec := decodeBody[model.Record](t, resp)
	assert.Equal(t, map[string]string{
		"firstName":   "A",
		"lastName":    "",
		"email":       "not-an-email",
		"phoneNumber": "",
	}, rec.Values)
}

func TestCreateUser_BadJSON(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/users", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateUser_PartialMerge(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPut, ts.URL+"/users/2", map[string]string{"lastName": "Joseph"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rec := decodeBody[model.Record](t, resp)
	assert.Equal(t, "2", rec.ID)
	assert.Equal(t, "Navin", rec.Get("firstName"))
	assert.Equal(t, "Joseph", rec.Get("lastName"))
}

func TestUpdateAndDelete_NotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPut, ts.URL+"/users/404", map[string]string{"lastName": "Nobody"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeBody[errorBody](t, resp).Code)

	// Values that would fail the form rules do not mask a missing record.
	resp = doJSON(t, http.MethodPut, ts.URL+"/users/404", map[string]string{"phoneNumber": "12ab"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/users/404", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteUser(t *testing.T) {
	ts, mem := newTestServer(t)
	resp := doJSON(t, http.MethodDelete, ts.URL+"/users/1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	all, err := mem.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2", all[0].ID)
}

func TestSchemaEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doJSON(t, http.MethodGet, ts.URL+"/schema", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := decodeBody[schema.Document](t, resp)
	require.Len(t, doc.Fields, 4)
	assert.Equal(t, "firstName", doc.Fields[0].Name)
	require.NotNil(t, doc.Fields[0].Validation)
	assert.True(t, doc.Fields[0].Validation.Required)
}

func TestOpenAPIEndpoint_RoundTrips(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doJSON(t, http.MethodGet, ts.URL+"/openapi.json", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	imported, err := schema.FromOpenAPI(context.Background(), buf.Bytes(), "createUser")
	require.NoError(t, err)
	assert.Equal(t, schema.Users().Names(), imported.Names())
}

func TestFormEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, ts.URL+"/forms/users/new", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), `data-mode="create"`)

	resp = doJSON(t, http.MethodGet, ts.URL+"/forms/users/3/edit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	buf.Reset()
	_, _ = buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), `data-record-id="3"`)
	assert.Contains(t, buf.String(), `value="Suraj"`)

	resp = doJSON(t, http.MethodGet, ts.URL+"/forms/users/99/edit", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecoverer(t *testing.T) {
	h := recoverer(logging.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
