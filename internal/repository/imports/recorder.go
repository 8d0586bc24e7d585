package imports

import (
	"context"
	"log"

	mg "sales_import/internal/config/connections/mongo"
	"sales_import/internal/models"
)

// Recorder stores run state in import_records and refused rows in
// import_record_items.
type Recorder struct {
	m *mg.Mongo
}

func NewRecorder(m *mg.Mongo) *Recorder {
	return &Recorder{m: m}
}

func (r *Recorder) StartRun(ctx context.Context, run models.ImportRun) (string, error) {
	if err := UpsertImportRecord(ctx, r.m, run); err != nil {
		return "", err
	}
	log.Printf("[IMP][MONGO] run=%s status=%s", run.ID, models.RunStatusProcessing)
	return run.ID, nil
}

func (r *Recorder) FinishRun(ctx context.Context, runID, status string, counts models.RunCounts, errMsg string) error {
	if err := UpdateImportRecordStatus(ctx, r.m, runID, status, counts, errMsg); err != nil {
		return err
	}
	log.Printf("[IMP][MONGO] run=%s status=%s records=%d inserted=%d", runID, status, counts.Records, counts.Inserted)
	return nil
}

func (r *Recorder) RecordRejection(ctx context.Context, runID string, row map[string]string, status, reason string) error {
	_, err := InsertItem(ctx, r.m, SaleItem(runID, row, status, reason))
	return err
}
