package importer

import (
	"context"
	"errors"
	"sync"
	"time"

	"sales_import/internal/metrics"
	"sales_import/internal/models"
	"sales_import/internal/services/dedup"
	"sales_import/internal/services/reconcile"
)

type Totals struct {
	Records              int            `json:"records"`
	Inserted             int            `json:"inserted"`
	RejectedDuplicate    int            `json:"rejected_duplicate"`
	RejectedOther        int            `json:"rejected_other"`
	WithValidationErrors int            `json:"with_validation_errors"`
	Chunks               int            `json:"chunks"`
	Histogram            map[string]int `json:"histogram"`
}

func (t *Totals) add(o Totals) {
	t.Records += o.Records
	t.Inserted += o.Inserted
	t.RejectedDuplicate += o.RejectedDuplicate
	t.RejectedOther += o.RejectedOther
	t.WithValidationErrors += o.WithValidationErrors
	t.Chunks += o.Chunks
	if t.Histogram == nil {
		t.Histogram = map[string]int{}
	}
	for k, v := range o.Histogram {
		t.Histogram[k] += v
	}
}

type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Totals
	SuccessRate         float64          `json:"success_rate"`
	ValidationErrorRate float64          `json:"validation_error_rate"`
	Reconcile           reconcile.Result `json:"reconcile"`
	Aborted             bool             `json:"aborted"`
	Error               string           `json:"error,omitempty"`
}

func (s Summary) Counts() models.RunCounts {
	return models.RunCounts{
		Records:           s.Records,
		Inserted:          s.Inserted,
		RejectedDuplicate: s.RejectedDuplicate,
		RejectedOther:     s.RejectedOther,
		Chunks:            s.Chunks,
	}
}

type Report struct {
	Summary Summary        `json:"summary"`
	Sample  []SampleRecord `json:"-"`
}

// Run accumulates the outcome of one ingestion. It is a ports.Processor, so
// a streamed file feeds it batch by batch; each batch is reconciled and then
// processed in chunks.
type Run struct {
	ing     *Ingestor
	id      string
	started time.Time

	mu     sync.Mutex
	totals Totals
	recon  reconcile.Result
	sample *ring
}

func (r *Run) ID() string { return r.id }

func (r *Run) ProcessBatch(ctx context.Context, batch []map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.reconcile(ctx, batch); err != nil {
		return err
	}
	for _, chunk := range split(batch, r.ing.cfg.ChunkSize) {
		if err := r.processChunk(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (r *Run) reconcile(ctx context.Context, rows []map[string]string) error {
	res, err := r.ing.reconciler.Reconcile(ctx, rows)
	r.mu.Lock()
	r.recon.Add(res)
	r.mu.Unlock()
	return err
}

// processChunk checks for cancellation only before it starts. Once started,
// a chunk runs to its last record.
func (r *Run) processChunk(ctx context.Context, chunk []map[string]string) error {
	if err := ctx.Err(); err != nil {
		r.ing.log.Printf("[IMP][WARN] run=%s stopping before next chunk: %v", r.id, err)
		return err
	}
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	local := Totals{Histogram: map[string]int{}}
	samples := make([]SampleRecord, 0, len(chunk))

	var fatal error
	for _, row := range chunk {
		sale := r.ing.corrector.Correct(row)
		sale.Errors = r.ing.corrector.Validate(row)

		outcome, err := r.ing.guard.Insert(ctx, sale)
		if errors.Is(err, models.ErrStorageUnavailable) {
			fatal = err
			break
		}

		local.Records++
		for _, tag := range sale.Errors {
			local.Histogram[tag]++
		}
		if len(sale.Errors) > 0 {
			local.WithValidationErrors++
		}
		metrics.ObserveTags(sale.Errors)

		reason := ""
		if err != nil {
			reason = err.Error()
		}
		switch outcome {
		case dedup.Inserted:
			local.Inserted++
		case dedup.RejectedDuplicate:
			local.RejectedDuplicate++
			if err != nil {
				r.ing.log.Printf("[IMP][WARN] run=%s cpf=%s: %v", r.id, sale.TaxID, err)
			}
		default:
			local.RejectedOther++
			r.ing.recordRejection(ctx, r.id, row, reason)
		}
		samples = append(samples, SampleRecord{Sale: sale, Outcome: outcome.String(), Reason: reason})
	}
	if fatal == nil {
		local.Chunks = 1
		metrics.ChunksProcessed.Inc()
		metrics.ChunkDuration.Observe(time.Since(start).Seconds())
	}

	r.mu.Lock()
	r.totals.add(local)
	for _, s := range samples {
		r.sample.add(s)
	}
	chunkNo := r.totals.Chunks
	r.mu.Unlock()

	if fatal != nil {
		r.ing.log.Printf("[IMP][ERR] run=%s chunk aborted after %d records: %v", r.id, local.Records, fatal)
		return fatal
	}
	r.ing.log.Printf("[IMP] run=%s chunk #%d size=%d inserted=%d duplicates=%d rejected=%d took=%s",
		r.id, chunkNo, len(chunk), local.Inserted, local.RejectedDuplicate, local.RejectedOther, time.Since(start))
	return nil
}

// Report snapshots the run. A non-nil err marks the run as aborted.
func (r *Run) Report(err error) Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	totals := r.totals
	totals.Histogram = make(map[string]int, len(r.totals.Histogram))
	for k, v := range r.totals.Histogram {
		totals.Histogram[k] = v
	}

	s := Summary{
		RunID:      r.id,
		StartedAt:  r.started,
		FinishedAt: r.ing.now(),
		Totals:     totals,
		Reconcile:  r.recon,
	}
	if totals.Records > 0 {
		s.SuccessRate = percent(totals.Inserted, totals.Records)
		s.ValidationErrorRate = percent(totals.WithValidationErrors, totals.Records)
	}
	if err != nil {
		s.Aborted = true
		s.Error = err.Error()
	}
	return Report{Summary: s, Sample: r.sample.items()}
}

func percent(n, total int) float64 {
	return float64(n) * 100 / float64(total)
}

func split(rows []map[string]string, size int) [][]map[string]string {
	if size <= 0 {
		size = len(rows)
	}
	var out [][]map[string]string
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}
