package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sales_import/internal/app"
	"sales_import/internal/models"
)

type storeResult struct {
	StoreID   string `json:"codigo_loja"`
	Finalized bool   `json:"finalized"`
}

func NewLockCommand(opts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "lock <store>",
		Short: "Finalize a store so its sellers cannot change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := a.Assignments.Lock(ctx, args[0], yes); err != nil {
					return out.Fail("lock "+args[0], confirmHint(err), nil)
				}
				return out.Success(storeResult{StoreID: args[0], Finalized: true}, fmt.Sprintf("store %s locked", args[0]))
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the operation")
	return cmd
}

func NewUnlockCommand(opts *RootOptions) *cobra.Command {
	var yes, force bool
	cmd := &cobra.Command{
		Use:   "unlock <store>",
		Short: "Reopen a finalized store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := a.Assignments.Unlock(ctx, args[0], yes || force); err != nil {
					return out.Fail("unlock "+args[0], confirmHint(err), nil)
				}
				return out.Success(storeResult{StoreID: args[0], Finalized: false}, fmt.Sprintf("store %s unlocked", args[0]))
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the operation")
	cmd.Flags().BoolVar(&force, "force", false, "same as --yes")
	return cmd
}

func NewAssignCommand(opts *RootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "assign <store> <seller>",
		Short: "Assign a seller to a store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := a.Engine.Assign(ctx, args[0], args[1], force); err != nil {
					return out.Fail("assign", err, nil)
				}
				return out.Success(models.Assignment{StoreID: args[0], SellerID: args[1]},
					fmt.Sprintf("seller %s assigned to store %s", args[1], args[0]))
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "assign even if the store is finalized")
	return cmd
}

func NewUnassignCommand(opts *RootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "unassign <store> <seller>",
		Short: "Remove a seller from a store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := a.Engine.Unassign(ctx, args[0], args[1], force); err != nil {
					return out.Fail("unassign", err, nil)
				}
				return out.Success(models.Assignment{StoreID: args[0], SellerID: args[1]},
					fmt.Sprintf("seller %s removed from store %s", args[1], args[0]))
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "remove even if the store is finalized")
	return cmd
}

func NewReassignCommand(opts *RootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "reassign <store> <old_seller> <new_seller>",
		Short: "Replace one seller of a store with another",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := a.Assignments.Reassign(ctx, args[0], args[1], args[2], force); err != nil {
					return out.Fail("reassign", err, nil)
				}
				return out.Success(map[string]string{"codigo_loja": args[0], "old": args[1], "new": args[2]},
					fmt.Sprintf("store %s: %s replaced by %s", args[0], args[1], args[2]))
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reassign even if the store is finalized")
	return cmd
}

func NewBulkAssignCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-assign <seller> <store>...",
		Short: "Assign one seller to many stores",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				res, err := a.Assignments.BulkAssign(ctx, args[0], args[1:])
				if err != nil {
					return out.Fail("bulk-assign", err, res)
				}
				if len(res.Failures) > 0 {
					var b strings.Builder
					fmt.Fprintf(&b, "assigned %d of %d stores", res.Assigned, len(args)-1)
					for _, f := range res.Failures {
						fmt.Fprintf(&b, "\n  %s: %s", f.StoreID, f.Reason)
					}
					_ = out.Error(ErrCodePartialFailure, b.String(), res)
					return NewExitError(ExitFailure, "bulk-assign had failures")
				}
				return out.Success(res, fmt.Sprintf("assigned %d stores to seller %s", res.Assigned, args[0]))
			})
		},
	}
}

func NewRepairCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repair-finalized",
		Short: "Finalize open stores that already have two sellers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				fixed, err := a.Assignments.RepairFinalized(ctx)
				if err != nil {
					return out.Fail("repair-finalized", err, fixed)
				}
				if fixed == nil {
					fixed = []string{}
				}
				text := "nothing to repair"
				if len(fixed) > 0 {
					text = "finalized: " + strings.Join(fixed, ", ")
				}
				return out.Success(map[string][]string{"finalized": fixed}, text)
			})
		},
	}
}

func confirmHint(err error) error {
	if errors.Is(err, models.ErrNotConfirmed) {
		return fmt.Errorf("%w (pass --yes)", err)
	}
	return err
}
