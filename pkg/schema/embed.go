package schema

import (
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/goliatone/go-userforms/pkg/model"
)

//go:embed schemas/*.yaml
var embeddedSchemas embed.FS

const usersSchemaFile = "users.yaml"

// EmbeddedFS returns the bundled schema documents.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedSchemas, "schemas")
	if err != nil {
		// The embed directive guarantees the subpath exists.
		panic(err)
	}
	return sub
}

var (
	usersOnce   sync.Once
	usersSchema *model.Schema
)

// Users returns the bundled user schema (first name, last name, email and
// phone number). It is parsed once; a malformed bundled document panics on
// first use.
func Users() *model.Schema {
	usersOnce.Do(func() {
		data, err := fs.ReadFile(EmbeddedFS(), usersSchemaFile)
		if err != nil {
			panic(fmt.Errorf("schema: read bundled users schema: %w", err))
		}
		s, err := Parse(data, sourceEmbedded(usersSchemaFile))
		if err != nil {
			panic(fmt.Errorf("schema: bundled users schema: %w", err))
		}
		usersSchema = s
	})
	return usersSchema
}
