package cli

import (
	"bytes"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sales_import/internal/app"
	"sales_import/internal/services/dedup"
)

func NewDuplicatesSummaryCommand(opts *RootOptions) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "duplicates-summary",
		Short: "Summarize rejected duplicate tax ids per day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				entries, err := a.Audit.ReadAll(ctx)
				if err != nil {
					return out.Fail("duplicates-summary", err, nil)
				}
				days := dedup.Summarize(entries)
				if days == nil {
					days = []dedup.DaySummary{}
				}

				var buf bytes.Buffer
				if err := dedup.WriteSummaryCSV(&buf, days); err != nil {
					return out.Fail("duplicates-summary", err, nil)
				}
				if target == "" {
					return out.Success(days, buf.String())
				}
				loc, err := a.Writer.Write(ctx, target, "text/csv", buf.Bytes())
				if err != nil {
					return out.Fail("duplicates-summary", err, nil)
				}
				return out.Success(map[string]any{"path": loc, "days": days},
					fmt.Sprintf("%d days written to %s", len(days), loc))
			})
		},
	}
	cmd.Flags().StringVarP(&target, "out", "o", "", "output path or s3:// url (default stdout)")
	return cmd
}
