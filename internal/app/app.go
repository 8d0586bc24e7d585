// Package app assembles the constraint engine, the ingestion pipeline and the
// admin services from a loaded config.
package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"sales_import/internal/adapters/auditsink"
	"sales_import/internal/adapters/cache"
	"sales_import/internal/adapters/opener"
	"sales_import/internal/config"
	"sales_import/internal/ports"
	"sales_import/internal/repository"
	"sales_import/internal/repository/imports"
	"sales_import/internal/services/assignments"
	"sales_import/internal/services/constraints"
	"sales_import/internal/services/dedup"
	"sales_import/internal/services/importer"
	"sales_import/internal/services/reconcile"
)

type App struct {
	Config  *config.Config
	Backend string

	Engine      *constraints.Engine
	Guard       *dedup.Guard
	Ingestor    *importer.Ingestor
	Importer    *importer.Service
	Assignments *assignments.Manager

	Opener *opener.CompoundOpener
	Writer *opener.CompoundWriter
	Audit  ports.AuditReader
	Runs   ports.RunRecorder
	HTTP   *http.Client

	closers []func()
}

// New opens the constraint store and builds every service on top of it.
// Mongo, S3, redis and Kafka are used only when cfg has them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	policy, err := constraints.ParsePolicy(cfg.SellerPolicy)
	if err != nil {
		return nil, err
	}

	res, err := repository.NewStore(ctx, repository.FactoryConfig{
		Backend:    cfg.StoreBackend,
		SQLitePath: cfg.SQLitePath,
		Postgres:   cfg.Settings.Postgres,
	})
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Backend: res.Backend, HTTP: &http.Client{Timeout: 5 * time.Minute}}
	if c, ok := res.Store.(interface{ Close() error }); ok {
		a.closers = append(a.closers, func() { _ = c.Close() })
	}
	if res.Postgres != nil {
		cfg.Postgres = res.Postgres
	}
	log.Printf("[APP] store backend=%s policy=%s", res.Backend, policy)

	var c ports.Cache = cache.NewMemory()
	if cfg.Redis != nil {
		c = cache.NewRedis(cfg.Redis.Client, cfg.CacheTTL)
		log.Printf("[APP] store cache=redis ttl=%s", cfg.CacheTTL)
	}

	a.Engine = constraints.NewEngine(res.Store, constraints.Options{
		Policy: policy,
		Cache:  c,
	})

	// openers / writers
	var s3Op *opener.S3Opener
	var s3W *opener.S3Writer
	bucket := ""
	if cfg.S3 != nil {
		s3Op = opener.NewS3Opener(cfg.S3.Client)
		s3W = opener.NewS3Writer(cfg.S3.Client)
		bucket = cfg.S3.Bucket
	}
	a.Opener = opener.NewCompoundOpener(opener.NewHTTPOpener(a.HTTP), s3Op, opener.NewLocalOpener(), bucket)
	a.Writer = opener.NewCompoundWriter(s3W)

	// duplicate audit
	file := auditsink.NewFile(cfg.DuplicateLog, cfg.DuplicateCSV)
	sinks := []auditsink.Named{{Name: "file", Sink: file}}
	a.Audit = file
	if cfg.Mongo != nil {
		ms := auditsink.NewMongo(cfg.Mongo)
		sinks = append(sinks, auditsink.Named{Name: "mongo", Sink: ms})
		a.Audit = ms
	}
	if len(cfg.KafkaBrokers) > 0 {
		ks, err := auditsink.NewKafka(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, ks.Close)
		sinks = append(sinks, auditsink.Named{Name: "kafka", Sink: ks})
		log.Printf("[APP] kafka audit topic=%s brokers=%v", cfg.KafkaAuditTopic, cfg.KafkaBrokers)
	}

	// run records
	if cfg.Mongo != nil {
		a.Runs = imports.NewRecorder(cfg.Mongo)
	}

	a.Guard = dedup.NewGuard(a.Engine, auditsink.NewMulti(sinks...), nil)
	a.Ingestor = importer.NewIngestor(
		reconcile.New(a.Engine, nil),
		a.Guard,
		a.Runs,
		importer.Config{ChunkSize: cfg.ChunkSize, SampleSize: cfg.SampleSize, Workers: cfg.Workers},
		nil,
	)
	a.Importer = importer.NewService(a.Opener, a.Ingestor, a.Runs, a.Writer, cfg.ReportsDir)
	a.Assignments = assignments.NewManager(a.Engine, a.Opener, a.Writer, nil)

	return a, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
