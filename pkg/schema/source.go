package schema

import (
	"fmt"
	"path/filepath"
)

// Source identifies where a schema document originated so load errors can
// name the file, fs.FS entry or bundled asset that failed.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile     SourceKind = "file"
	SourceKindFS       SourceKind = "fs"
	SourceKindEmbedded SourceKind = "embedded"
	SourceKindInline   SourceKind = "inline"
)

type source struct {
	kind     SourceKind
	location string
}

func (s source) Kind() SourceKind {
	return s.kind
}

func (s source) Location() string {
	return s.location
}

func (s source) String() string {
	return fmt.Sprintf("%s:%s", s.kind, s.location)
}

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return source{kind: SourceKindFile, location: filepath.Clean(path)}
}

// SourceFromFS returns a Source identifying a resource inside an fs.FS.
func SourceFromFS(name string) Source {
	return source{kind: SourceKindFS, location: name}
}

// SourceInline labels documents supplied as bytes, such as request bodies or
// test fixtures.
func SourceInline(name string) Source {
	if name == "" {
		name = "<inline>"
	}
	return source{kind: SourceKindInline, location: name}
}

func sourceEmbedded(name string) Source {
	return source{kind: SourceKindEmbedded, location: name}
}

func describe(src Source) string {
	if src == nil {
		return "<unknown>"
	}
	return src.Location()
}
