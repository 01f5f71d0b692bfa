package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/viewcache/internal/config"
	"github.com/roach88/viewcache/internal/logging"
)

// RootOptions holds the resolved global configuration for all commands.
type RootOptions struct {
	config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = config.ValidFormats

// NewRootCommand creates the root command for the viewcache CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Config: config.Default()}

	cmd := &cobra.Command{
		Use:   "viewcache",
		Short: "Variable-aware query view cache",
		Long: `viewcache answers parameterized queries over a SQLite triple store.

Queries with a single variable range filter are served from a cached,
sorted view shared by every binding; the rest fall back to a full scan.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return &CommandError{Status: ExitCommandError, Code: ErrCodeConfig, Message: "invalid configuration", Err: err}
			}
			opts.Config = cfg
			opts.Logger = logging.New(logging.Options{
				Verbose: cfg.Verbose,
				JSON:    cfg.Format == "json",
				Writer:  cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewHashCommand(opts))

	return cmd
}

func (o *RootOptions) printer(cmd *cobra.Command) *Printer {
	return &Printer{
		Format:  o.Format,
		Out:     cmd.OutOrStdout(),
		Diag:    cmd.ErrOrStderr(),
		Verbose: o.Verbose,
	}
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return logging.Discard()
	}
	return o.Logger
}
