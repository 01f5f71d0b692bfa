package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/viewcache/internal/fixture"
	"github.com/roach88/viewcache/internal/ir"
	"github.com/roach88/viewcache/internal/query"
	"github.com/roach88/viewcache/internal/schema"
	"github.com/roach88/viewcache/internal/viewcache"
)

// Query evaluation paths.
const (
	PathCache = "cache"
	PathScan  = "scan"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	Vars []string
}

// QueryOutput is the result of the query command.
type QueryOutput struct {
	Path    string      `json:"path"`
	Reason  string      `json:"reason,omitempty"`
	ViewID  string      `json:"view_id,omitempty"`
	Count   int         `json:"count"`
	Results []ir.Entity `json:"results"`
}

// RenderText implements TextPayload.
func (o QueryOutput) RenderText(w io.Writer) error {
	switch o.Path {
	case PathCache:
		fmt.Fprintf(w, "path: cache (view %s)\n", o.ViewID)
	default:
		fmt.Fprintf(w, "path: scan (%s)\n", o.Reason)
	}
	for _, e := range o.Results {
		attrs, err := ir.MarshalIRValue(e.Attributes)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s\n", e.ID, attrs)
	}
	_, err := fmt.Fprintf(w, "%d result(s)\n", o.Count)
	return err
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query <query.yaml>",
		Short: "Evaluate a query document against the store",
		Long: `Evaluate a YAML query document.

With a schema, a query holding exactly one variable range filter over a
single-valued attribute is answered from a cached view ordered by that
attribute. Every other query is evaluated by a full scan. Bindings given
with --var override the document's vars.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "variable binding name=value (repeatable)")

	return cmd
}

func runQuery(rootOpts *RootOptions, opts *QueryOptions, path string, cmd *cobra.Command) error {
	printer := rootOpts.printer(cmd)
	logger := rootOpts.logger()
	ctx := cmd.Context()

	q, err := loadBoundQuery(path, opts.Vars)
	if err != nil {
		return inputError(printer, "cannot load query", err)
	}

	model, err := loadModel(rootOpts.SchemaPath)
	if err != nil {
		return printer.Fail(ExitCommandError, ErrCodeSchema, "cannot load schema", err)
	}

	st, err := openStore(rootOpts)
	if err != nil {
		return printer.Fail(ExitCommandError, ErrCodeStore, "cannot open store", err)
	}
	defer st.Close()

	var out QueryOutput
	if reason := viewcache.Eligibility(q, model); reason != "" {
		printer.Notef("full scan: %s", reason)
		rs, err := st.Fetch(ctx, q)
		if err != nil {
			return printer.Fail(ExitFailure, ErrCodeResolve, "query failed", err)
		}
		out = QueryOutput{Path: PathScan, Reason: reason, Results: project(rs.Results, q.Select)}
	} else {
		views, _ := viewcache.Decompose(q)
		id, err := viewcache.ViewQueryToID(views[0])
		if err != nil {
			return printer.Fail(ExitFailure, ErrCodeResolve, "cannot hash view", err)
		}
		printer.Notef("cached view %s", id)

		reg := prometheus.NewRegistry()
		vs := viewcache.NewViewStore(st,
			viewcache.WithLogger(logger),
			viewcache.WithMetrics(viewcache.NewMetrics(reg)))
		defer vs.Close()
		rs, err := viewcache.NewResolver(vs).ResolveFromCache(ctx, q)
		if err != nil {
			return printer.Fail(ExitFailure, ErrCodeResolve, "query failed", err)
		}
		if err := printer.PrintMetrics(reg); err != nil {
			logger.Warn("cannot report metrics", "error", err)
		}
		out = QueryOutput{Path: PathCache, ViewID: string(id), Results: rs.Results}
	}

	if out.Results == nil {
		out.Results = []ir.Entity{}
	}
	out.Count = len(out.Results)
	logger.Debug("query evaluated", "path", out.Path, "results", out.Count)
	return printer.Print(out)
}

// loadBoundQuery reads a query document, applies bindings and validates.
func loadBoundQuery(path string, bindings []string) (query.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return query.Query{}, fmt.Errorf("failed to read query file: %w", err)
	}
	doc, err := fixture.DecodeQueryDoc(data)
	if err != nil {
		return query.Query{}, err
	}
	q, err := doc.Query()
	if err != nil {
		return query.Query{}, err
	}

	for _, b := range bindings {
		name, value, err := fixture.ParseVar(b)
		if err != nil {
			return query.Query{}, err
		}
		if q.Vars == nil {
			q.Vars = make(map[string]ir.IRValue)
		}
		q.Vars[name] = value
	}

	if err := query.Validate(q).Err(); err != nil {
		return query.Query{}, fmt.Errorf("invalid query: %w", err)
	}
	return q, nil
}

// loadModel compiles the schema at path. An empty path yields no model.
func loadModel(path string) (*schema.Model, error) {
	if path == "" {
		return nil, nil
	}
	return schema.Load(path)
}

func project(entities []ir.Entity, paths []string) []ir.Entity {
	out := make([]ir.Entity, len(entities))
	for i, e := range entities {
		out[i] = e.Project(paths)
	}
	return out
}
