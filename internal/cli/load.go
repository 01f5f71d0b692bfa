package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/viewcache/internal/fixture"
	"github.com/roach88/viewcache/internal/store"
)

// LoadOutput reports a fixture load.
type LoadOutput struct {
	Inserted int   `json:"inserted"`
	LastSeq  int64 `json:"last_seq"`
}

// RenderText implements TextPayload.
func (o LoadOutput) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "✓ Loaded %d entities (seq %d)\n", o.Inserted, o.LastSeq)
	return err
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <fixture.yaml>",
		Short: "Insert a YAML entity fixture into the store",
		Long: `Insert every record of a YAML fixture into the triple store.

Collections are loaded in name order and records in file order. Records
without an id get a generated one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args[0], cmd)
		},
	}
}

func runLoad(opts *RootOptions, path string, cmd *cobra.Command) error {
	printer := opts.printer(cmd)
	logger := opts.logger()

	f, err := fixture.LoadFixture(path)
	if err != nil {
		return inputError(printer, "cannot load fixture", err)
	}

	st, err := openStore(opts)
	if err != nil {
		return printer.Fail(ExitCommandError, ErrCodeStore, "cannot open store", err)
	}
	defer st.Close()

	n, err := f.Apply(cmd.Context(), st)
	if err != nil {
		return printer.Fail(ExitFailure, ErrCodeStore, fmt.Sprintf("load stopped after %d entities", n), err)
	}

	logger.Info("fixture loaded", "path", path, "entities", n, "seq", st.LastSeq())
	return printer.Print(LoadOutput{Inserted: n, LastSeq: st.LastSeq()})
}

func openStore(opts *RootOptions) (*store.Store, error) {
	return store.Open(opts.DBPath,
		store.WithLogger(opts.logger()),
		store.WithPushdown(opts.Pushdown))
}

// inputError reports a file that could not be read or parsed.
func inputError(printer *Printer, message string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return printer.Fail(ExitCommandError, ErrCodeNotFound, message, err)
	}
	return printer.Fail(ExitFailure, ErrCodeInvalidInput, message, err)
}
