package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/viewcache/internal/fixture"
	"github.com/roach88/viewcache/internal/viewcache"
)

// HashOutput describes the view a query decomposes into.
type HashOutput struct {
	ViewID    string           `json:"view_id"`
	Variables []string         `json:"variables"`
	Eligible  bool             `json:"eligible"`
	Reason    string           `json:"reason,omitempty"`
	View      fixture.QueryDoc `json:"-"`
}

// RenderText implements TextPayload.
func (o HashOutput) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "view: %s\n", o.ViewID)
	for _, v := range o.Variables {
		fmt.Fprintf(w, "variable: %s\n", v)
	}
	if o.Eligible {
		fmt.Fprintln(w, "eligible: yes")
	} else {
		fmt.Fprintf(w, "eligible: no (%s)\n", o.Reason)
	}

	view, err := yaml.Marshal(o.View)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "---")
	_, err = w.Write(view)
	return err
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <query.yaml>",
		Short: "Print the cache view a query maps to",
		Long: `Decompose a query document into its variable-free view query and print
the view's content hash, the variable filters removed from it and whether
the query is served from the cache under the configured schema.

Queries that differ only in their bindings share one view hash.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(rootOpts, args[0], cmd)
		},
	}
}

func runHash(opts *RootOptions, path string, cmd *cobra.Command) error {
	printer := opts.printer(cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		return inputError(printer, "cannot load query", fmt.Errorf("failed to read query file: %w", err))
	}
	doc, err := fixture.DecodeQueryDoc(data)
	if err != nil {
		return inputError(printer, "cannot load query", err)
	}
	q, err := doc.Query()
	if err != nil {
		return inputError(printer, "cannot load query", err)
	}

	model, err := loadModel(opts.SchemaPath)
	if err != nil {
		return printer.Fail(ExitCommandError, ErrCodeSchema, "cannot load schema", err)
	}

	views, variables := viewcache.Decompose(q)
	id, err := viewcache.ViewQueryToID(views[0])
	if err != nil {
		return printer.Fail(ExitFailure, ErrCodeInvalidInput, "cannot hash view", err)
	}

	out := HashOutput{
		ViewID:    string(id),
		Variables: make([]string, len(variables)),
		Reason:    viewcache.Eligibility(q, model),
		View:      fixture.NewQueryDoc(views[0]),
	}
	out.Eligible = out.Reason == ""
	for i, v := range variables {
		out.Variables[i] = v.String()
	}
	return printer.Print(out)
}
