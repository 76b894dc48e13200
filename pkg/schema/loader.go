// Package schema loads form schemas from YAML or JSON documents, resolves
// named custom validators and converts schemas to and from OpenAPI.
package schema

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-userforms/pkg/model"
)

// Option configures schema loading.
type Option func(*loadOptions)

type loadOptions struct {
	registry *Registry
}

// WithCustomValidators resolves `custom:` rule names against reg instead of
// DefaultRegistry.
func WithCustomValidators(reg *Registry) Option {
	return func(o *loadOptions) {
		if reg != nil {
			o.registry = reg
		}
	}
}

func newLoadOptions(options []Option) loadOptions {
	cfg := loadOptions{registry: DefaultRegistry()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Parse decodes a JSON or YAML document and returns the checked schema. Every
// problem in the document is reported, joined into one error.
func Parse(data []byte, src Source, options ...Option) (*model.Schema, error) {
	cfg := newLoadOptions(options)
	doc, err := parseDocument(data, src)
	if err != nil {
		return nil, err
	}
	fields, err := doc.build(src, cfg.registry)
	if err != nil {
		return nil, err
	}
	s, err := model.NewSchema(fields...)
	if err != nil {
		return nil, fmt.Errorf("schema: %s: %w", describe(src), err)
	}
	return s, nil
}

// LoadFS reads path from fsys and parses it.
func LoadFS(fsys fs.FS, path string, options ...Option) (*model.Schema, error) {
	if fsys == nil {
		return nil, fmt.Errorf("schema: filesystem is nil")
	}
	if !isSchemaFile(path) {
		return nil, fmt.Errorf("schema: %s: expected a .json, .yaml or .yml file", path)
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return Parse(data, SourceFromFS(path), options...)
}

// LoadFile reads a schema document from disk.
func LoadFile(path string, options ...Option) (*model.Schema, error) {
	if !isSchemaFile(path) {
		return nil, fmt.Errorf("schema: %s: expected a .json, .yaml or .yml file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return Parse(data, SourceFromFile(path), options...)
}

// Load returns the schema at path, or the bundled user schema when path is
// empty.
func Load(path string, options ...Option) (*model.Schema, error) {
	if strings.TrimSpace(path) == "" {
		if len(options) == 0 {
			return Users(), nil
		}
		return LoadFS(EmbeddedFS(), usersSchemaFile, options...)
	}
	return LoadFile(path, options...)
}

// MarshalYAML writes s as a YAML document that Parse accepts.
func MarshalYAML(s *model.Schema) ([]byte, error) {
	out, err := yaml.Marshal(Describe(s))
	if err != nil {
		return nil, fmt.Errorf("schema: encode yaml: %w", err)
	}
	return out, nil
}

func parseDocument(data []byte, src Source) (Document, error) {
	var doc Document
	if len(strings.TrimSpace(string(data))) == 0 {
		return Document{}, fmt.Errorf("schema: %s is empty", describe(src))
	}

	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("schema: parse %s: invalid JSON or YAML: %w", describe(src), err)
	}
	return doc, nil
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
