package importer

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sales_import/internal/models"
	"sales_import/internal/ports"
	"sales_import/internal/services/correction"
	"sales_import/internal/services/dedup"
	"sales_import/internal/services/reconcile"
)

const (
	DefaultChunkSize  = 500
	DefaultSampleSize = 1000
)

type Config struct {
	ChunkSize  int
	SampleSize int
	Workers    int
}

type Inserter interface {
	Insert(ctx context.Context, sale models.Sale) (dedup.Outcome, error)
}

type Ingestor struct {
	reconciler *reconcile.Reconciler
	guard      Inserter
	corrector  correction.Corrector
	runs       ports.RunRecorder
	cfg        Config
	log        *log.Logger
	now        func() time.Time
}

func NewIngestor(rec *reconcile.Reconciler, guard Inserter, runs ports.RunRecorder, cfg Config, logger *log.Logger) *Ingestor {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.SampleSize == 0 {
		cfg.SampleSize = DefaultSampleSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Ingestor{
		reconciler: rec,
		guard:      guard,
		corrector:  correction.New(),
		runs:       runs,
		cfg:        cfg,
		log:        logger,
		now:        time.Now,
	}
}

func (in *Ingestor) ChunkSize() int { return in.cfg.ChunkSize }

// NewRun starts an empty run; an empty id gets a fresh uuid.
func (in *Ingestor) NewRun(runID string) *Run {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Run{
		ing:     in,
		id:      runID,
		started: in.now(),
		sample:  newRing(in.cfg.SampleSize),
	}
}

// Ingest reconciles the whole batch, then processes it chunk by chunk, in
// parallel when Workers > 1. The report is returned even when a storage
// failure aborts the run.
func (in *Ingestor) Ingest(ctx context.Context, rows []map[string]string) (Report, error) {
	run := in.NewRun(ports.RunID(ctx))
	ctx = context.WithValue(ctx, ports.CtxRunID, run.id)
	in.log.Printf("[IMP][START] run=%s rows=%d chunk_size=%d workers=%d", run.id, len(rows), in.cfg.ChunkSize, in.cfg.Workers)

	if err := run.reconcile(ctx, rows); err != nil {
		in.log.Printf("[IMP][ERR] run=%s reconcile: %v", run.id, err)
		return run.Report(err), err
	}

	chunks := split(rows, in.cfg.ChunkSize)

	var err error
	if in.cfg.Workers == 1 {
		for _, chunk := range chunks {
			if err = run.processChunk(ctx, chunk); err != nil {
				break
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(in.cfg.Workers)
		for _, chunk := range chunks {
			g.Go(func() error {
				return run.processChunk(gctx, chunk)
			})
		}
		err = g.Wait()
	}

	rep := run.Report(err)
	in.logDone(rep)
	return rep, err
}

func (in *Ingestor) logDone(rep Report) {
	s := rep.Summary
	in.log.Printf("[IMP][DONE] run=%s records=%d inserted=%d duplicates=%d rejected=%d chunks=%d success=%.1f%% aborted=%t",
		s.RunID, s.Records, s.Inserted, s.RejectedDuplicate, s.RejectedOther, s.Chunks, s.SuccessRate, s.Aborted)
}

func (in *Ingestor) recordRejection(ctx context.Context, runID string, row map[string]string, reason string) {
	if in.runs == nil {
		return
	}
	if err := in.runs.RecordRejection(ctx, runID, row, "rejected", reason); err != nil {
		payload, _ := json.Marshal(row)
		in.log.Printf("[IMP][MONGO][ERR] run=%s reject log failed: %v payload=%s", runID, err, payload)
	}
}
