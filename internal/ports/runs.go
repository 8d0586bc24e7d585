package ports

import (
	"context"

	"sales_import/internal/models"
)

// RunRecorder keeps the status of import runs and the rows each run refused.
type RunRecorder interface {
	StartRun(ctx context.Context, run models.ImportRun) (string, error)
	FinishRun(ctx context.Context, runID, status string, counts models.RunCounts, errMsg string) error
	RecordRejection(ctx context.Context, runID string, row map[string]string, status, reason string) error
}
