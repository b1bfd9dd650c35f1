package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"stencil/internal/errors"
	"stencil/internal/ops"
)

// maxStdinBytes bounds how much template/request input the CLI will read.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "stencil",
		Usage:   "Template-driven document generation engine",
		Version: Version,
		Commands: []*cli.Command{
			parseCmd(env),
			templatesCmd(env),
			consolidateCmd(env),
			generateCmd(env),
			fetchCmd(env),
			historyCmd(env),
			evaluateCmd(env),
			editCmd(env),
			revertCmd(env),
			exportCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// parseCmd creates the parse command.
func parseCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "parse",
		Usage: "Register a template and extract its fields (reads body from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Unique template name"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Template format: text or markdown"},
		},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("template body must be piped via stdin"))
			}
			body, err := readStdin(maxStdinBytes)
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			output, err := ops.ParseTemplate(c.Context, env, ops.ParseTemplateInput{
				Name:   c.String("name"),
				Format: c.String("format"),
				Body:   body,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// templatesCmd creates the templates command.
func templatesCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "templates",
		Usage: "List registered templates",
		Action: func(c *cli.Context) error {
			output, err := ops.ListTemplates(c.Context, env, ops.ListTemplatesInput{})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// consolidateCmd creates the consolidate command.
func consolidateCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "consolidate",
		Usage:     "Merge the fields of several templates into one minimal list",
		ArgsUsage: "<template-id>...",
		Action: func(c *cli.Context) error {
			output, err := ops.Consolidate(c.Context, env, ops.ConsolidateInput{
				TemplateIDs: c.Args().Slice(),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// generateCmd creates the generate command.
func generateCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate documents (batch JSON via stdin, or --template with --value flags)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "Template id for a single request"},
			&cli.StringSliceFlag{Name: "value", Aliases: []string{"V"}, Usage: "Field value as key=value (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			var requests []ops.GenerateRequest

			if stdinHasData() {
				raw, err := readStdin(maxStdinBytes)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				if err := json.Unmarshal([]byte(raw), &requests); err != nil {
					return outputError(errors.NewInvalidRequest("invalid batch JSON: " + err.Error()))
				}
			} else {
				templateID := c.String("template")
				if templateID == "" {
					return outputError(errors.NewInvalidRequest("either pipe a JSON batch via stdin or pass --template"))
				}
				values, err := parseKeyValues(c.StringSlice("value"))
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				requests = []ops.GenerateRequest{{TemplateID: templateID, Values: values}}
			}

			output, err := ops.GenerateBatch(c.Context, env, ops.GenerateBatchInput{Requests: requests})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a document by id",
		ArgsUsage: "<document-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "content", Usage: "Include the rendered output"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("document id is required"))
			}
			output, err := ops.Fetch(c.Context, env, ops.FetchInput{
				DocumentID:     c.Args().First(),
				IncludeContent: c.Bool("content"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show a lineage's version history and edit ledger",
		ArgsUsage: "[document-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "lineage", Aliases: []string{"l"}, Usage: "Lineage id (instead of a document id)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.HistoryInput{
				LineageID: c.String("lineage"),
			}
			if c.NArg() > 0 {
				input.DocumentID = c.Args().First()
			}
			output, err := ops.History(c.Context, env, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// evaluateCmd creates the evaluate command.
func evaluateCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "evaluate",
		Usage:     "Price an edit without applying it",
		ArgsUsage: "<document-id>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "value", Aliases: []string{"V"}, Usage: "Replacement field as key=value (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("document id is required"))
			}
			newValues, err := replacementSnapshot(c, env)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.EvaluateEdit(c.Context, env, ops.EvaluateEditInput{
				DocumentID: c.Args().First(),
				NewValues:  newValues,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// editCmd creates the edit command.
func editCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Apply an edit; past the free quota a fee is charged and a new version forks",
		ArgsUsage: "<document-id>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "value", Aliases: []string{"V"}, Usage: "Replacement field as key=value (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("document id is required"))
			}
			newValues, err := replacementSnapshot(c, env)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.ApplyEdit(c.Context, env, ops.ApplyEditInput{
				DocumentID: c.Args().First(),
				NewValues:  newValues,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// revertCmd creates the revert command.
func revertCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "revert",
		Usage:     "Undo the most recent edit, refunding any fee",
		ArgsUsage: "<document-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("document id is required"))
			}
			output, err := ops.RevertEdit(c.Context, env, ops.RevertEditInput{
				DocumentID: c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a completed document as a paginated PDF",
		ArgsUsage: "<document-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output path (default: ~/.stencil/exports/<id>.pdf)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("document id is required"))
			}
			output, err := ops.Export(c.Context, env, ops.ExportInput{
				DocumentID: c.Args().First(),
				OutPath:    c.String("out"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := err.(*errors.Error); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads stdin up to maxBytes.
func readStdin(maxBytes int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("input exceeds %d bytes", maxBytes)
	}
	return string(data), nil
}

// replacementSnapshot builds the full replacement field snapshot for an edit:
// the document's current fields with the --value overrides applied. The ops
// layer diffs complete snapshots, so bare overrides would read as removals.
func replacementSnapshot(c *cli.Context, env *ops.Env) (map[string]string, error) {
	overrides, err := parseKeyValues(c.StringSlice("value"))
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	if len(overrides) == 0 {
		return nil, errors.NewInvalidRequest("at least one --value key=value is required")
	}

	current, err := ops.Fetch(c.Context, env, ops.FetchInput{DocumentID: c.Args().First()})
	if err != nil {
		return nil, err
	}

	snapshot := make(map[string]string, len(current.Document.Fields)+len(overrides))
	for k, v := range current.Document.Fields {
		snapshot[k] = v
	}
	for k, v := range overrides {
		snapshot[k] = v
	}
	return snapshot, nil
}

// parseKeyValues splits repeated key=value flags into a map.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid value %q, expected key=value", p)
		}
		values[key] = value
	}
	return values, nil
}
