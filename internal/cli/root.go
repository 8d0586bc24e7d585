// Package cli is the administrative command line of the sales importer.
package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"sales_import/internal/app"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	open Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Opener builds the application a command runs against.
type Opener func(ctx context.Context) (*app.App, error)

// ErrVolatileBackend is returned when the admin tool is pointed at the
// in-memory backend, whose state ends with the command.
var ErrVolatileBackend = errors.New("memory backend does not persist between commands; set STORE_BACKEND=sqlite or postgres")

// RequireDurable rejects backends that lose their state when the process exits.
func RequireDurable(backend string) error {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "memory":
		return ErrVolatileBackend
	}
	return nil
}

func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "sales-admin",
		Short: "Administer store/seller assignments and sales imports",
		Long: `Administrative commands for the sales importer.

Stores hold at most two sellers and lock themselves when the second one is
assigned; lock, unlock and reassign manage that lifecycle. Sales files are
ingested with global tax id deduplication.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewLockCommand(opts))
	cmd.AddCommand(NewUnlockCommand(opts))
	cmd.AddCommand(NewAssignCommand(opts))
	cmd.AddCommand(NewUnassignCommand(opts))
	cmd.AddCommand(NewReassignCommand(opts))
	cmd.AddCommand(NewBulkAssignCommand(opts))
	cmd.AddCommand(NewRepairCommand(opts))
	cmd.AddCommand(NewListMappingsCommand(opts))
	cmd.AddCommand(NewExportMappingsCommand(opts))
	cmd.AddCommand(NewImportMappingsCommand(opts))
	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewDuplicatesSummaryCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// withApp opens the application, runs fn and closes it again.
func (o *RootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, out *OutputFormatter) error) error {
	out := o.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := o.open(ctx)
	if err != nil {
		_ = out.Error(ErrCodeStorage, "setup: "+err.Error(), nil)
		return WrapExitError(ExitCommandError, "setup failed", err)
	}
	defer a.Close()
	out.VerboseLog("backend=%s policy=%s", a.Backend, a.Engine.Policy())

	return fn(ctx, a, out)
}
