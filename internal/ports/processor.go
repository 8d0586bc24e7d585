package ports

import "context"

type ctxKey string

// CtxRunID carries the ingestion run id through a batch pipeline.
const CtxRunID ctxKey = "run_id"

// Processor consumes rows in batches as a reader streams them.
type Processor interface {
	ProcessBatch(ctx context.Context, batch []map[string]string) error
}

func RunID(ctx context.Context) string {
	if v, ok := ctx.Value(CtxRunID).(string); ok {
		return v
	}
	return ""
}
