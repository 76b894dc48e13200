package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-userforms/pkg/form"
	"github.com/goliatone/go-userforms/pkg/model"
	"github.com/goliatone/go-userforms/pkg/renderers/tui"
	"github.com/goliatone/go-userforms/pkg/schema"
	"github.com/goliatone/go-userforms/pkg/store"
)

type note struct {
	Level   Level
	Message string
}

type recordingNotifier struct {
	notes []note
}

func (n *recordingNotifier) Notify(level Level, message string) {
	n.notes = append(n.notes, note{Level: level, Message: message})
}

// scriptedPrompter applies one value map per Run call and submits.
type scriptedPrompter struct {
	answers  []map[string]string
	confirms []bool
	runErr   error
	runs     int
	asked    []string
	seen     []map[string]string
}

func (p *scriptedPrompter) Run(ctx context.Context, c *form.Controller) (form.Result, error) {
	p.seen = append(p.seen, c.Values())
	if p.runErr != nil {
		return form.Result{}, p.runErr
	}
	if p.runs < len(p.answers) {
		for name, value := range p.answers[p.runs] {
			c.SetValue(name, value)
		}
	}
	p.runs++
	return c.Submit(ctx)
}

func (p *scriptedPrompter) Confirm(_ context.Context, message string) (bool, error) {
	p.asked = append(p.asked, message)
	if len(p.confirms) == 0 {
		return false, nil
	}
	answer := p.confirms[0]
	p.confirms = p.confirms[1:]
	return answer, nil
}

// flakyStore fails the first n writes.
type flakyStore struct {
	*store.MemoryStore
	failures int
}

func (s *flakyStore) Create(ctx context.Context, payload map[string]string) (model.Record, error) {
	if s.failures > 0 {
		s.failures--
		return model.Record{}, &store.StatusError{Op: "create", StatusCode: 503}
	}
	return s.MemoryStore.Create(ctx, payload)
}

type failingList struct {
	*store.MemoryStore
}

func (failingList) List(context.Context) ([]model.Record, error) {
	return nil, errors.New("connection refused")
}

var validUser = map[string]string{
	"firstName":   "Ada",
	"lastName":    "Lovelace",
	"email":       "ada@example.com",
	"phoneNumber": "5550100123",
}

func newApp(t *testing.T, st store.Store, p Prompter) (*App, *recordingNotifier, *bytes.Buffer) {
	t.Helper()
	notes := &recordingNotifier{}
	var out bytes.Buffer
	app, err := New(st, schema.Users(), WithPrompter(p), WithNotifier(notes), WithOutput(&out))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app, notes, &out
}

func seeded() *store.MemoryStore {
	return store.NewMemoryStore(store.WithRecords(store.SeedUsers()...), store.WithIDGenerator(func() string { return "4" }))
}

func TestRefresh_WritesTableAndStats(t *testing.T) {
	app, _, out := newApp(t, seeded(), &scriptedPrompter{})

	records, err := app.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d", len(records))
	}
	text := out.String()
	for _, want := range []string{"ID", "FIRST NAME", "EMAIL ADDRESS", "john.wick@example.com", "Total Users: 3", "API Mode: Mock"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q\n%s", want, text)
		}
	}
	if strings.Index(text, "John") > strings.Index(text, "Navin") {
		t.Fatalf("rows should keep store order\n%s", text)
	}
}

func TestRefresh_Empty(t *testing.T) {
	app, _, out := newApp(t, store.NewMemoryStore(), &scriptedPrompter{})
	if _, err := app.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !strings.Contains(out.String(), "No users yet") || !strings.Contains(out.String(), "Total Users: 0") {
		t.Fatalf("unexpected output\n%s", out.String())
	}
}

func TestRefresh_StoreFailureNotifies(t *testing.T) {
	app, notes, _ := newApp(t, failingList{store.NewMemoryStore()}, &scriptedPrompter{})
	if _, err := app.Refresh(context.Background()); err == nil {
		t.Fatalf("expected an error")
	}
	want := []note{{LevelError, "Failed to load users. Please try again."}}
	if diff := cmp.Diff(want, notes.notes); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_Success(t *testing.T) {
	mem := seeded()
	app, notes, _ := newApp(t, mem, &scriptedPrompter{answers: []map[string]string{validUser}})

	rec, err := app.Create(context.Background())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec == nil || rec.ID != "4" {
		t.Fatalf("record = %+v", rec)
	}
	if diff := cmp.Diff(validUser, rec.Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	want := []note{{LevelSuccess, "User created successfully!"}}
	if diff := cmp.Diff(want, notes.notes); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_RetryAfterStoreFailureKeepsValues(t *testing.T) {
	flaky := &flakyStore{MemoryStore: seeded(), failures: 1}
	prompter := &scriptedPrompter{answers: []map[string]string{validUser}, confirms: []bool{true}}
	app, notes, _ := newApp(t, flaky, prompter)

	rec, err := app.Create(context.Background())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec == nil {
		t.Fatalf("expected a record after retry")
	}
	if diff := cmp.Diff(validUser, prompter.seen[1]); diff != "" {
		t.Fatalf("retry should see the previous values (-want +got):\n%s", diff)
	}
	want := []note{
		{LevelError, "Failed to create user. Please try again."},
		{LevelSuccess, "User created successfully!"},
	}
	if diff := cmp.Diff(want, notes.notes); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_DeclinedRetryReturnsError(t *testing.T) {
	flaky := &flakyStore{MemoryStore: seeded(), failures: 1}
	app, _, _ := newApp(t, flaky, &scriptedPrompter{answers: []map[string]string{validUser}})

	_, err := app.Create(context.Background())
	var statusErr *store.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 503 {
		t.Fatalf("expected the store error, got %v", err)
	}
}

func TestCreate_Aborted(t *testing.T) {
	app, notes, _ := newApp(t, seeded(), &scriptedPrompter{runErr: tui.ErrAborted})
	rec, err := app.Create(context.Background())
	if err != nil || rec != nil {
		t.Fatalf("abort should be silent, got %v, %v", rec, err)
	}
	if diff := cmp.Diff([]note{{LevelInfo, "Cancelled"}}, notes.notes); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestEdit_PrefillsAndUpdates(t *testing.T) {
	mem := seeded()
	prompter := &scriptedPrompter{answers: []map[string]string{{"lastName": "Joseph"}}}
	app, notes, _ := newApp(t, mem, prompter)

	rec, err := app.Edit(context.Background(), "2")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got := prompter.seen[0]["firstName"]; got != "Navin" {
		t.Fatalf("edit session should be prefilled, got %q", got)
	}
	if rec.ID != "2" || rec.Get("lastName") != "Joseph" || rec.Get("firstName") != "Navin" {
		t.Fatalf("record = %+v", rec)
	}
	if diff := cmp.Diff([]note{{LevelSuccess, "User updated successfully!"}}, notes.notes); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestEdit_UnknownID(t *testing.T) {
	app, notes, _ := newApp(t, seeded(), &scriptedPrompter{})
	if _, err := app.Edit(context.Background(), "99"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if diff := cmp.Diff([]note{{LevelError, "User 99 not found"}}, notes.notes); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestDelete_Confirmed(t *testing.T) {
	mem := seeded()
	prompter := &scriptedPrompter{confirms: []bool{true}}
	app, notes, _ := newApp(t, mem, prompter)

	deleted, err := app.Delete(context.Background(), "1")
	if err != nil || !deleted {
		t.Fatalf("delete = %v, %v", deleted, err)
	}
	if diff := cmp.Diff([]string{"Are you sure you want to delete John Wick?"}, prompter.asked); diff != "" {
		t.Fatalf("confirm mismatch (-want +got):\n%s", diff)
	}
	records, _ := mem.List(context.Background())
	if len(records) != 2 {
		t.Fatalf("records = %d", len(records))
	}
	if diff := cmp.Diff([]note{{LevelSuccess, "User deleted successfully!"}}, notes.notes); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestDelete_Declined(t *testing.T) {
	mem := seeded()
	app, _, _ := newApp(t, mem, &scriptedPrompter{confirms: []bool{false}})

	deleted, err := app.Delete(context.Background(), "1")
	if err != nil || deleted {
		t.Fatalf("delete = %v, %v", deleted, err)
	}
	records, _ := mem.List(context.Background())
	if len(records) != 3 {
		t.Fatalf("records = %d", len(records))
	}
}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf, nil)
	n.Notify(LevelSuccess, "saved")
	n.Notify(LevelError, "failed")
	n.Notify(LevelInfo, "note")
	if want := "✔ saved\n✗ failed\nℹ note\n"; buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}
