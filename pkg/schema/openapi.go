package schema

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/multierr"

	"github.com/goliatone/go-userforms/pkg/model"
)

// Extensions written on every exported property so a document round-trips
// without losing presentation details.
const (
	ExtensionOrder       = "x-order"
	ExtensionFieldType   = "x-field-type"
	ExtensionLayoutHint  = "x-layout-hint"
	ExtensionPlaceholder = "x-placeholder"
	ExtensionOptions     = "x-options"
	ExtensionCustom      = "x-custom-validator"
	// ExtensionMinLength mirrors minLength. The OpenAPI model cannot tell an
	// explicit zero from an absent keyword.
	ExtensionMinLength = "x-min-length"
)

// OpenAPIOptions names the exported resource.
type OpenAPIOptions struct {
	Title    string
	Version  string
	Resource string // collection path segment, default "users"
	Entity   string // component name, default "User"
}

func (o OpenAPIOptions) withDefaults() OpenAPIOptions {
	if o.Title == "" {
		o.Title = "User Management API"
	}
	if o.Version == "" {
		o.Version = "1.0.0"
	}
	o.Resource = strings.Trim(o.Resource, "/")
	if o.Resource == "" {
		o.Resource = "users"
	}
	if o.Entity == "" {
		o.Entity = "User"
	}
	return o
}

// Operation ids used by ToOpenAPI.
func operationIDs(entity string) (list, create, update, remove string) {
	return "list" + entity + "s", "create" + entity, "update" + entity, "delete" + entity
}

// ToOpenAPI documents the CRUD surface of s: list and create on /{resource},
// update and delete on /{resource}/{id}. Write operations take the
// "{Entity}Input" component, which carries every field and its rules.
func ToOpenAPI(s *model.Schema, opts OpenAPIOptions) *openapi3.T {
	opts = opts.withDefaults()
	listID, createID, updateID, deleteID := operationIDs(opts.Entity)

	input := inputSchema(s)
	record := openapi3.NewObjectSchema()
	record.AllOf = openapi3.SchemaRefs{
		{Ref: "#/components/schemas/" + opts.Entity + "Input", Value: input},
		{Value: openapi3.NewObjectSchema().
			WithProperty("id", openapi3.NewStringSchema()).
			WithRequired([]string{"id"})},
	}

	inputRef := &openapi3.SchemaRef{Ref: "#/components/schemas/" + opts.Entity + "Input", Value: input}
	recordRef := &openapi3.SchemaRef{Ref: "#/components/schemas/" + opts.Entity, Value: record}
	errorSchema := openapi3.NewObjectSchema().WithProperty("error", openapi3.NewStringSchema())
	errorRef := &openapi3.SchemaRef{Ref: "#/components/schemas/Error", Value: errorSchema}

	jsonResponse := func(description string, ref *openapi3.SchemaRef) *openapi3.ResponseRef {
		return &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(description).WithJSONSchemaRef(ref)}
	}
	notFound := jsonResponse("Record not found", errorRef)
	idParam := &openapi3.ParameterRef{Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema())}
	body := &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(inputRef)}

	collection := "/" + opts.Resource
	item := collection + "/{id}"

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: opts.Title, Version: opts.Version},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				opts.Entity + "Input": {Value: input},
				opts.Entity:           {Value: record},
				"Error":               {Value: errorSchema},
			},
		},
	}
	doc.Paths.Set(collection, &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: listID,
			Summary:     "List " + opts.Resource,
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(200, jsonResponse("All records", &openapi3.SchemaRef{Value: openapi3.NewArraySchema().WithItems(record)})),
			),
		},
		Post: &openapi3.Operation{
			OperationID: createID,
			Summary:     "Create a " + strings.ToLower(opts.Entity),
			RequestBody: body,
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(201, jsonResponse("Created record", recordRef)),
				openapi3.WithStatus(400, jsonResponse("Invalid payload", errorRef)),
			),
		},
	})
	doc.Paths.Set(item, &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParam},
		Put: &openapi3.Operation{
			OperationID: updateID,
			Summary:     "Update a " + strings.ToLower(opts.Entity),
			RequestBody: body,
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(200, jsonResponse("Updated record", recordRef)),
				openapi3.WithStatus(400, jsonResponse("Invalid payload", errorRef)),
				openapi3.WithStatus(404, notFound),
			),
		},
		Delete: &openapi3.Operation{
			OperationID: deleteID,
			Summary:     "Delete a " + strings.ToLower(opts.Entity),
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(204, &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Deleted")}),
				openapi3.WithStatus(404, notFound),
			),
		},
	})
	return doc
}

func inputSchema(s *model.Schema) *openapi3.Schema {
	out := openapi3.NewObjectSchema()
	var required []string
	for idx, field := range s.Fields() {
		out.WithProperty(field.Name, propertySchema(field, idx))
		if field.Required() {
			required = append(required, field.Name)
		}
	}
	if len(required) > 0 {
		out.WithRequired(required)
	}
	return out
}

func propertySchema(field model.Field, order int) *openapi3.Schema {
	var prop *openapi3.Schema
	switch field.Type {
	case model.FieldTypeNumber:
		prop = openapi3.NewFloat64Schema()
	case model.FieldTypeEmail:
		prop = openapi3.NewStringSchema().WithFormat("email")
	case model.FieldTypeDate:
		prop = openapi3.NewStringSchema().WithFormat("date")
	default:
		prop = openapi3.NewStringSchema()
	}
	prop.Title = field.Label
	if field.DefaultValue != "" {
		prop.Default = field.DefaultValue
		if field.Type == model.FieldTypeNumber {
			if n, err := strconv.ParseFloat(field.DefaultValue, 64); err == nil {
				prop.Default = n
			}
		}
	}
	prop.Extensions = map[string]any{
		ExtensionOrder:     order,
		ExtensionFieldType: string(field.Type),
	}
	if field.LayoutHint != "" {
		prop.Extensions[ExtensionLayoutHint] = field.LayoutHint
	}
	if field.Placeholder != "" {
		prop.Extensions[ExtensionPlaceholder] = field.Placeholder
	}
	if len(field.Options) > 0 {
		enum := make([]any, len(field.Options))
		options := make([]any, len(field.Options))
		for idx, opt := range field.Options {
			enum[idx] = opt.Value
			options[idx] = map[string]any{"value": opt.Value, "label": opt.Label}
		}
		prop.Enum = enum
		prop.Extensions[ExtensionOptions] = options
	}

	for _, c := range field.Validation.Ordered() {
		switch c.Kind {
		case model.RulePattern:
			prop.Pattern = c.Expr
		case model.RuleMinLength:
			prop.MinLength = uint64(c.Length)
			prop.Extensions[ExtensionMinLength] = c.Length
		case model.RuleMaxLength:
			n := uint64(c.Length)
			prop.MaxLength = &n
		case model.RuleMin:
			b := c.Bound
			prop.Min = &b
		case model.RuleMax:
			b := c.Bound
			prop.Max = &b
		case model.RuleCustom:
			if c.Name != "" {
				prop.Extensions[ExtensionCustom] = c.Name
			}
		}
	}
	return prop
}

// FromOpenAPI loads an OpenAPI document and derives a schema from the JSON
// request body of operationID. Field order follows x-order, then name.
func FromOpenAPI(ctx context.Context, raw []byte, operationID string, options ...Option) (*model.Schema, error) {
	if len(raw) == 0 {
		return nil, errors.New("schema: openapi: document is empty")
	}
	cfg := newLoadOptions(options)

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("schema: openapi: load document: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation(), openapi3.DisableSchemaDefaultsValidation()); err != nil {
		return nil, fmt.Errorf("schema: openapi: validate: %w", err)
	}

	op := findOperation(doc, operationID)
	if op == nil {
		return nil, fmt.Errorf("schema: openapi: operation %q not found", operationID)
	}
	body := requestSchema(op)
	if body == nil || len(body.Properties) == 0 {
		return nil, fmt.Errorf("schema: openapi: operation %q has no JSON object request body", operationID)
	}

	required := make(map[string]bool, len(body.Required))
	for _, name := range body.Required {
		required[name] = true
	}

	type ordered struct {
		field model.Field
		order int
	}
	var (
		entries []ordered
		errs    error
	)
	for name, ref := range body.Properties {
		if name == "id" || ref == nil || ref.Value == nil {
			continue
		}
		field, err := fieldFromProperty(name, ref.Value, required[name], cfg.registry)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("field %s: %w", name, err))
			continue
		}
		entries = append(entries, ordered{field: field, order: extensionInt(ref.Value.Extensions, ExtensionOrder)})
	}
	if errs != nil {
		return nil, fmt.Errorf("schema: openapi: %w", errs)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].order != entries[j].order {
			return entries[i].order < entries[j].order
		}
		return entries[i].field.Name < entries[j].field.Name
	})

	fields := make([]model.Field, len(entries))
	for idx, entry := range entries {
		fields[idx] = entry.field
	}
	s, err := model.NewSchema(fields...)
	if err != nil {
		return nil, fmt.Errorf("schema: openapi: %w", err)
	}
	return s, nil
}

func findOperation(doc *openapi3.T, operationID string) *openapi3.Operation {
	if doc.Paths == nil {
		return nil
	}
	for _, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			if op != nil && op.OperationID == operationID {
				return op
			}
		}
	}
	return nil
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	media := op.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil {
		return nil
	}
	return media.Schema.Value
}

func fieldFromProperty(name string, prop *openapi3.Schema, required bool, reg *Registry) (model.Field, error) {
	field := model.Field{
		Name:        name,
		Label:       prop.Title,
		Type:        propertyType(prop),
		LayoutHint:  extensionString(prop.Extensions, ExtensionLayoutHint),
		Placeholder: extensionString(prop.Extensions, ExtensionPlaceholder),
	}
	if field.Label == "" {
		field.Label = name
	}
	switch def := prop.Default.(type) {
	case string:
		field.DefaultValue = def
	case float64:
		field.DefaultValue = strconv.FormatFloat(def, 'f', -1, 64)
	}
	field.Options = propertyOptions(prop)

	var constraints []model.Constraint
	if prop.Pattern != "" {
		c, err := model.CompilePattern(prop.Pattern)
		if err != nil {
			return model.Field{}, err
		}
		constraints = append(constraints, c)
	}
	if prop.MinLength > 0 {
		constraints = append(constraints, model.MinLength(int(prop.MinLength)))
	} else if n := extensionInt(prop.Extensions, ExtensionMinLength); n != math.MaxInt {
		constraints = append(constraints, model.MinLength(n))
	}
	if prop.MaxLength != nil {
		constraints = append(constraints, model.MaxLength(int(*prop.MaxLength)))
	}
	if prop.Min != nil {
		constraints = append(constraints, model.Min(*prop.Min))
	}
	if prop.Max != nil {
		constraints = append(constraints, model.Max(*prop.Max))
	}
	if custom := extensionString(prop.Extensions, ExtensionCustom); custom != "" {
		c, err := reg.constraint(custom)
		if err != nil {
			return model.Field{}, err
		}
		constraints = append(constraints, c)
	}
	switch {
	case required:
		field.Validation = model.Required(constraints...)
	case len(constraints) > 0:
		field.Validation = model.Optional(constraints...)
	}
	return field, nil
}

func propertyType(prop *openapi3.Schema) model.FieldType {
	if declared := model.FieldType(extensionString(prop.Extensions, ExtensionFieldType)); declared.Valid() {
		return declared
	}
	switch {
	case prop.Type != nil && (prop.Type.Is("number") || prop.Type.Is("integer")):
		return model.FieldTypeNumber
	case len(prop.Enum) > 0:
		return model.FieldTypeSelect
	case prop.Format == "email":
		return model.FieldTypeEmail
	case prop.Format == "date":
		return model.FieldTypeDate
	default:
		return model.FieldTypeText
	}
}

func propertyOptions(prop *openapi3.Schema) []model.Option {
	if raw, ok := prop.Extensions[ExtensionOptions].([]any); ok && len(raw) > 0 {
		out := make([]model.Option, 0, len(raw))
		for _, entry := range raw {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			value := fmt.Sprint(m["value"])
			label, _ := m["label"].(string)
			if label == "" {
				label = value
			}
			out = append(out, model.Option{Value: value, Label: label})
		}
		if len(out) > 0 {
			return out
		}
	}
	if len(prop.Enum) == 0 {
		return nil
	}
	out := make([]model.Option, len(prop.Enum))
	for idx, value := range prop.Enum {
		text := fmt.Sprint(value)
		out[idx] = model.Option{Value: text, Label: text}
	}
	return out
}

func extensionString(ext map[string]any, key string) string {
	value, _ := ext[key].(string)
	return strings.TrimSpace(value)
}

func extensionInt(ext map[string]any, key string) int {
	switch value := ext[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		if math.IsNaN(value) {
			return math.MaxInt
		}
		return int(value)
	case string:
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return math.MaxInt
}
