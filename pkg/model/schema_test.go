package model_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-userforms/pkg/model"
)

func sampleSchema(t *testing.T) *model.Schema {
	t.Helper()
	s, err := model.NewSchema(
		model.Field{Name: "firstName", Label: "First Name", Type: model.FieldTypeText, Validation: model.Required(model.MinLength(2))},
		model.Field{Name: "role", Label: "Role", Type: model.FieldTypeSelect, DefaultValue: "member", Options: []model.Option{
			{Value: "admin", Label: "Administrator"},
			{Value: "member", Label: "Member"},
		}},
		model.Field{Name: "bio", Label: "Bio", Type: model.FieldTypeTextarea},
	)
	if err != nil {
		t.Fatalf("new schema: %v", err)
	}
	return s
}

func TestSchema_NamesKeepDeclarationOrder(t *testing.T) {
	s := sampleSchema(t)
	want := []string{"firstName", "role", "bio"}
	if diff := cmp.Diff(want, s.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestSchema_EmptyRecordUsesDefaults(t *testing.T) {
	s := sampleSchema(t)
	want := map[string]string{"firstName": "", "role": "member", "bio": ""}
	if diff := cmp.Diff(want, s.EmptyRecord()); diff != "" {
		t.Fatalf("empty record mismatch (-want +got):\n%s", diff)
	}
}

func TestSchema_FieldsReturnsCopies(t *testing.T) {
	s := sampleSchema(t)
	fields := s.Fields()
	fields[0].Name = "mutated"
	fields[1].Options[0].Label = "mutated"

	if got := s.Names()[0]; got != "firstName" {
		t.Fatalf("schema mutated through Fields(): %q", got)
	}
	role, _ := s.Field("role")
	if role.Options[0].Label != "Administrator" {
		t.Fatalf("option mutated through Fields(): %q", role.Options[0].Label)
	}
}

func TestSchema_ProjectDropsIdentifierAndUnknownKeys(t *testing.T) {
	s := sampleSchema(t)
	got := s.Project(map[string]string{"id": "7", "firstName": "Ann", "extra": "x"})
	want := map[string]string{"firstName": "Ann", "role": "", "bio": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("project mismatch (-want +got):\n%s", diff)
	}

	subset := s.Subset(map[string]string{"id": "7", "bio": "hi"})
	if diff := cmp.Diff(map[string]string{"bio": "hi"}, subset); diff != "" {
		t.Fatalf("subset mismatch (-want +got):\n%s", diff)
	}
}

func TestNewSchema_ReportsEveryProblem(t *testing.T) {
	_, err := model.NewSchema(
		model.Field{Name: "email", Type: model.FieldTypeEmail},
		model.Field{Name: "email", Type: model.FieldTypeText},
		model.Field{Name: "country", Type: model.FieldTypeSelect},
		model.Field{Name: "age", Type: "slider"},
		model.Field{Name: "nick", Type: model.FieldTypeText, Validation: model.Optional(model.MinLength(5), model.MaxLength(2))},
	)
	if err == nil {
		t.Fatalf("expected schema error")
	}
	msg := err.Error()
	for _, fragment := range []string{
		`field "email": duplicate name`,
		`field "country": select requires options`,
		`field "age": unknown type "slider"`,
		`field "nick": minLength 5 exceeds maxLength 2`,
	} {
		if !strings.Contains(msg, fragment) {
			t.Errorf("error %q missing %q", msg, fragment)
		}
	}
}

func TestNewSchema_RejectsAmbiguousOptions(t *testing.T) {
	_, err := model.NewSchema(model.Field{
		Name: "tier",
		Type: model.FieldTypeSelect,
		Options: []model.Option{
			{Value: "gold", Label: "Premium"},
			{Value: "platinum", Label: "Premium"},
			{Value: "gold", Label: "Gold"},
		},
	})
	if err == nil {
		t.Fatalf("expected schema error")
	}
	for _, fragment := range []string{
		`field "tier": duplicate option label "Premium"`,
		`field "tier": duplicate option value "gold"`,
	} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error %q missing %q", err.Error(), fragment)
		}
	}
}

func TestMustSchema_PanicsOnMalformedSchema(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	model.MustSchema(model.Field{Name: "id", Type: model.FieldTypeText})
}

func TestValidationRule_OrderedFollowsCanonicalKinds(t *testing.T) {
	rule := model.Optional(model.Max(10), model.Pattern(`\d+`), model.MinLength(1))
	var kinds []model.RuleKind
	for _, c := range rule.Ordered() {
		kinds = append(kinds, c.Kind)
	}
	want := []model.RuleKind{model.RulePattern, model.RuleMinLength, model.RuleMax}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestCompilePattern_AnchorsExpression(t *testing.T) {
	c, err := model.CompilePattern(`[a-z]+`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c.Regexp.MatchString("abc123") {
		t.Fatalf("pattern should require a full match")
	}
	if !c.Regexp.MatchString("abc") {
		t.Fatalf("pattern should match abc")
	}
	if _, err := model.CompilePattern(`(`); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestRecord_JSONIsFlat(t *testing.T) {
	rec := model.Record{ID: "1", Values: map[string]string{"firstName": "John"}}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"firstName":"John","id":"1"}` {
		t.Fatalf("unexpected json %s", data)
	}

	var decoded model.Record
	if err := json.Unmarshal([]byte(`{"id": 42, "firstName": "Ann", "age": 30, "note": null}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := model.Record{ID: "42", Values: map[string]string{"firstName": "Ann", "age": "30", "note": ""}}
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}
