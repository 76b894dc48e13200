package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-userforms/pkg/form"
	"github.com/goliatone/go-userforms/pkg/model"
	htmlform "github.com/goliatone/go-userforms/pkg/renderers/html"
	"github.com/goliatone/go-userforms/pkg/schema"
)

var (
	schemaFormat   string
	fromOpenAPI    string
	operationID    string
	renderRecordID string
	renderAction   string
	outputPath     string
	templatesDir   string
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the active form schema as yaml, json or openapi",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSchema(commandContext(cmd))
		if err != nil {
			return err
		}

		var out []byte
		switch strings.ToLower(schemaFormat) {
		case "yaml", "yml":
			out, err = schema.MarshalYAML(s)
		case "json":
			out, err = json.MarshalIndent(schema.Describe(s), "", "  ")
		case "openapi":
			out, err = json.MarshalIndent(schema.ToOpenAPI(s, schema.OpenAPIOptions{}), "", "  ")
		default:
			return fmt.Errorf("unknown format %q (want yaml, json or openapi)", schemaFormat)
		}
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), out)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the HTML form for a new or existing user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		s, err := resolveSchema(ctx)
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}

		c := form.New(s, st)
		defer c.Close()
		opts := htmlform.RenderOptions{Action: renderAction, Method: "post"}
		if renderRecordID != "" {
			records, err := st.List(ctx)
			if err != nil {
				return err
			}
			found := false
			for idx := range records {
				if records[idx].ID == renderRecordID {
					c.Initialize(&records[idx])
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("user %q not found", renderRecordID)
			}
			opts.Method = "put"
		}

		var engineOpts []htmlform.EngineOption
		if templatesDir != "" {
			engineOpts = append(engineOpts, htmlform.WithBaseDir(templatesDir))
		}
		engineOpts = append(engineOpts, htmlform.WithTemplatesFS(htmlform.TemplatesFS()))
		engine, err := htmlform.NewEngine(engineOpts...)
		if err != nil {
			return err
		}
		renderer, err := htmlform.New(htmlform.WithEngine(engine))
		if err != nil {
			return err
		}
		out, err := renderer.Render(ctx, c, opts)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), []byte(out))
	},
}

func init() {
	for _, cmd := range []*cobra.Command{schemaCmd, renderCmd} {
		cmd.Flags().StringVar(&fromOpenAPI, "from-openapi", "", "derive the schema from an OpenAPI document instead of --schema")
		cmd.Flags().StringVar(&operationID, "operation", "createUser", "operation whose request body defines the fields (with --from-openapi)")
		cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (stdout if empty)")
	}
	schemaCmd.Flags().StringVar(&schemaFormat, "format", "yaml", "output format: yaml, json or openapi")
	renderCmd.Flags().StringVar(&renderRecordID, "id", "", "render the edit form for this user")
	renderCmd.Flags().StringVar(&renderAction, "action", "/users", "form action URL")
	renderCmd.Flags().StringVar(&templatesDir, "templates", "", "directory with template overrides (form.html)")
	rootCmd.AddCommand(schemaCmd, renderCmd)
}

func resolveSchema(ctx context.Context) (*model.Schema, error) {
	if fromOpenAPI == "" {
		return loadSchema()
	}
	raw, err := os.ReadFile(fromOpenAPI)
	if err != nil {
		return nil, fmt.Errorf("read openapi document: %w", err)
	}
	return schema.FromOpenAPI(ctx, raw, operationID)
}

func writeOutput(stdout io.Writer, data []byte) error {
	if outputPath == "" {
		_, err := stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logger.WithField("path", outputPath).Info("output written")
	return nil
}
