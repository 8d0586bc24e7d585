package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sales_import/internal/app"
	"sales_import/internal/services/importer"
)

type ingestResult struct {
	File        string           `json:"file"`
	Format      string           `json:"format"`
	Rows        int              `json:"rows"`
	SHA256      string           `json:"sha256"`
	Summary     importer.Summary `json:"summary"`
	ReportFiles []string         `json:"report_files,omitempty"`
}

func NewIngestCommand(opts *RootOptions) *cobra.Command {
	var batch int
	var runID string
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Import a CSV or XLSX sales file",
		Long: `Import a CSV or XLSX sales file from a local path, s3:// url or http(s) url.

Rows are corrected, validated and inserted chunk by chunk. Repeated tax ids are
rejected and written to the duplicate audit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				res, err := a.Importer.Import(ctx, importer.Request{FilePath: args[0], BatchSize: batch, ImportRecordID: runID})
				s := res.Report.Summary
				r := ingestResult{
					File: args[0], Format: res.Format, Rows: res.RowsRead, SHA256: res.SHA256,
					Summary: s, ReportFiles: res.ReportFiles,
				}
				if err != nil {
					return out.Fail("ingest", err, r)
				}
				text := fmt.Sprintf("run %s: %d records, %d inserted, %d duplicates, %d rejected, %d chunks, success %.1f%%",
					s.RunID, s.Records, s.Inserted, s.RejectedDuplicate, s.RejectedOther, s.Chunks, s.SuccessRate)
				for _, f := range res.ReportFiles {
					text += "\n  report: " + f
				}
				return out.Success(r, text)
			})
		},
	}
	cmd.Flags().IntVar(&batch, "batch-size", 0, "rows per read batch (default CHUNK_SIZE)")
	cmd.Flags().StringVar(&runID, "run-id", "", "import run id (default a new uuid)")
	return cmd
}
