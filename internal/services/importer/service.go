package importer

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"sales_import/internal/models"
	"sales_import/internal/ports"
)

type Request struct {
	FilePath       string
	BatchSize      int
	ImportRecordID string
}

type Result struct {
	Source      string
	FilePath    string
	Format      string
	RowsRead    int
	SHA256      string
	ContentType string
	Bucket      string
	Key         string
	SizeBytes   int64
	Report      Report
	ReportFiles []string
}

type Service struct {
	Opener     ports.FileOpener
	Ingestor   *Ingestor
	Runs       ports.RunRecorder
	Writer     ports.FileWriter
	ReportsDir string
}

func NewService(opener ports.FileOpener, ing *Ingestor, runs ports.RunRecorder, writer ports.FileWriter, reportsDir string) *Service {
	return &Service{Opener: opener, Ingestor: ing, Runs: runs, Writer: writer, ReportsDir: reportsDir}
}

// Import streams a CSV or XLSX file through one run. Every read batch is
// reconciled and then inserted chunk by chunk; rows committed before a
// failure stay committed and the partial report is still returned.
func (s *Service) Import(ctx context.Context, req Request) (Result, error) {
	t0 := time.Now()
	run := s.Ingestor.NewRun(req.ImportRecordID)
	ctx = context.WithValue(ctx, ports.CtxRunID, run.ID())
	log.Printf("[IMP][START] path=%q batch_size=%d import_record_id=%q", req.FilePath, req.BatchSize, run.ID())

	rc, meta, err := s.Opener.Open(ctx, req.FilePath)
	if err != nil {
		log.Printf("[IMP][ERR] open: %v", err)
		s.finishRun(ctx, run.ID(), run.Report(err).Summary)
		return Result{FilePath: req.FilePath}, err
	}
	defer rc.Close()

	s.startRun(ctx, models.ImportRun{
		ID:        run.ID(),
		Source:    meta.Source,
		Path:      req.FilePath,
		Bucket:    meta.Bucket,
		Key:       meta.Key,
		SizeBytes: meta.Size,
		StartedAt: t0,
	})

	hasher := sha256.New()
	br := bufio.NewReader(io.TeeReader(rc, hasher))

	format := detectFormat(req.FilePath, meta.ContentType)
	if format == "" {
		format = sniffFormat(br)
	}
	log.Printf("[IMP] source=%s content_type=%q size=%d detected_format=%s", meta.Source, meta.ContentType, meta.Size, format)

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = s.Ingestor.ChunkSize()
	}

	var total int
	src, readErr := openRows(format, br)
	if readErr == nil {
		total, readErr = stream(ctx, strings.ToUpper(format), src, run, batchSize)
		src.Close()
	}
	if readErr != nil {
		log.Printf("[IMP][ERR] read pipeline: %v", readErr)
	}

	rep := run.Report(readErr)
	s.Ingestor.logDone(rep)

	res := Result{
		Source:      meta.Source,
		FilePath:    req.FilePath,
		Format:      format,
		RowsRead:    total,
		SHA256:      hex.EncodeToString(hasher.Sum(nil)),
		ContentType: meta.ContentType,
		Bucket:      meta.Bucket,
		Key:         meta.Key,
		SizeBytes:   meta.Size,
		Report:      rep,
	}

	if s.Writer != nil && s.ReportsDir != "" {
		files, err := SaveReports(ctx, s.Writer, s.ReportsDir, rep)
		if err != nil {
			log.Printf("[IMP][REPORT][ERR] %v", err)
		}
		res.ReportFiles = files
	}
	s.finishRun(ctx, run.ID(), rep.Summary)

	log.Printf("[IMP][DONE] fmt=%s rows=%d sha256=%s duration=%s", format, total, res.SHA256, time.Since(t0))
	return res, readErr
}

func (s *Service) startRun(ctx context.Context, run models.ImportRun) {
	if s.Runs == nil {
		return
	}
	if _, err := s.Runs.StartRun(ctx, run); err != nil {
		log.Printf("[IMP][MONGO][ERR] start run %s: %v", run.ID, err)
	}
}

func (s *Service) finishRun(ctx context.Context, runID string, sum Summary) {
	if s.Runs == nil {
		return
	}
	status := models.RunStatusDone
	if sum.Aborted {
		status = models.RunStatusFailed
	}
	// the run context may already be cancelled
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.Runs.FinishRun(fctx, runID, status, sum.Counts(), sum.Error); err != nil {
		log.Printf("[IMP][MONGO][ERR] finish run %s: %v", runID, err)
	}
}

var zipMagic = []byte("PK\x03\x04")

func sniffFormat(br *bufio.Reader) string {
	head, _ := br.Peek(len(zipMagic))
	if bytes.Equal(head, zipMagic) {
		return "xlsx"
	}
	return "csv"
}

func detectFormat(filePath, contentType string) string {
	p := filePath
	if u, err := url.Parse(filePath); err == nil && u != nil && u.Path != "" {
		p = u.Path
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	switch ext {
	case "xlsx":
		return "xlsx"
	case "csv":
		return "csv"
	}
	med, _, _ := mime.ParseMediaType(contentType)
	switch med {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return "xlsx"
	case "text/csv", "application/csv", "text/plain":
		return "csv"
	}
	return ""
}
