package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sales_import/internal/app"
	"sales_import/internal/models"
)

func NewListMappingsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list-mappings [store]",
		Short: "List store/seller pairs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := ""
			if len(args) == 1 {
				store = args[0]
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				pairs, err := a.Assignments.ListMappings(ctx, store)
				if err != nil {
					return out.Fail("list-mappings", err, nil)
				}
				if pairs == nil {
					pairs = []models.Assignment{}
				}
				var b strings.Builder
				for i, p := range pairs {
					if i > 0 {
						b.WriteByte('\n')
					}
					fmt.Fprintf(&b, "%s\t%s", p.StoreID, p.SellerID)
				}
				if len(pairs) == 0 {
					b.WriteString("no mappings")
				}
				return out.Success(pairs, b.String())
			})
		},
	}
}

func NewExportMappingsCommand(opts *RootOptions) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "export-mappings",
		Short: "Write every pair to a CSV or XLSX file",
		Long: `Write every store/seller pair to a CSV or XLSX file.

The format follows the extension of --out; an s3://bucket/key target is
uploaded to object storage.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				loc, err := a.Assignments.ExportTo(ctx, target)
				if err != nil {
					return out.Fail("export-mappings", err, nil)
				}
				return out.Success(map[string]string{"path": loc}, "mappings written to "+loc)
			})
		},
	}
	cmd.Flags().StringVarP(&target, "out", "o", "mapeamento_lojas_vendedores.csv", "output path or s3:// url")
	return cmd
}

func NewImportMappingsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-mappings <file>",
		Short: "Assign every pair listed in a CSV or XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				res, err := a.Assignments.ImportFrom(ctx, args[0])
				if err != nil {
					return out.Fail("import-mappings", err, res)
				}
				text := fmt.Sprintf("assigned %d pairs, %d refused", res.Assigned, len(res.Failures))
				for _, f := range res.Failures {
					text += fmt.Sprintf("\n  %s/%s: %s", f.StoreID, f.SellerID, f.Reason)
				}
				return out.Success(res, text)
			})
		},
	}
}
