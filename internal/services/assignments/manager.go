// Package assignments holds the administrative operations on store/seller
// pairs: lock and unlock, reassign, bulk assign and mapping export/import.
package assignments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"sales_import/internal/metrics"
	"sales_import/internal/models"
	"sales_import/internal/ports"
	"sales_import/internal/services/constraints"
)

type StoreFailure struct {
	StoreID  string `json:"codigo_loja"`
	SellerID string `json:"codigo_vendedor,omitempty"`
	Reason   string `json:"reason"`
	Err      error  `json:"-"`
}

type BulkResult struct {
	Assigned int            `json:"assigned"`
	Failures []StoreFailure `json:"failures"`
}

type Manager struct {
	engine *constraints.Engine
	opener ports.FileOpener
	writer ports.FileWriter
	log    *log.Logger
}

func NewManager(engine *constraints.Engine, opener ports.FileOpener, writer ports.FileWriter, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{engine: engine, opener: opener, writer: writer, log: logger}
}

func (m *Manager) Lock(ctx context.Context, storeID string, confirmed bool) error {
	return m.setFinalized(ctx, "lock", storeID, true, confirmed)
}

func (m *Manager) Unlock(ctx context.Context, storeID string, confirmed bool) error {
	return m.setFinalized(ctx, "unlock", storeID, false, confirmed)
}

func (m *Manager) setFinalized(ctx context.Context, op, storeID string, finalized, confirmed bool) error {
	if !confirmed {
		return models.ErrNotConfirmed
	}
	err := m.engine.SetFinalized(ctx, storeID, finalized)
	metrics.ObserveAssignment(op, err)
	if err != nil {
		m.log.Printf("[ADMIN][%s][ERR] store=%s: %v", strings.ToUpper(op), storeID, err)
		return err
	}
	m.log.Printf("[ADMIN][%s] store=%s finalized=%t", strings.ToUpper(op), storeID, finalized)
	return nil
}

func (m *Manager) Reassign(ctx context.Context, storeID, oldSellerID, newSellerID string, force bool) error {
	err := m.engine.Reassign(ctx, storeID, oldSellerID, newSellerID, force)
	metrics.ObserveAssignment("reassign", err)
	if err != nil {
		m.log.Printf("[ADMIN][REASSIGN][ERR] store=%s %s->%s: %v", storeID, oldSellerID, newSellerID, err)
		return err
	}
	m.log.Printf("[ADMIN][REASSIGN] store=%s %s->%s force=%t", storeID, oldSellerID, newSellerID, force)
	return nil
}

// BulkAssign assigns sellerID to every store, creating missing stores named
// after their id. Per-store refusals are collected; an unknown seller or a
// storage failure stops the call.
func (m *Manager) BulkAssign(ctx context.Context, sellerID string, storeIDs []string) (BulkResult, error) {
	res := BulkResult{Failures: []StoreFailure{}}

	if _, ok, err := m.engine.GetSeller(ctx, sellerID); err != nil {
		return res, err
	} else if !ok {
		return res, fmt.Errorf("%w: %s", models.ErrUnknownSeller, sellerID)
	}

	for _, storeID := range storeIDs {
		storeID = strings.TrimSpace(storeID)
		if storeID == "" {
			continue
		}
		if err := m.ensureStore(ctx, storeID); err != nil {
			return res, err
		}
		err := m.engine.Assign(ctx, storeID, sellerID, false)
		metrics.ObserveAssignment("bulk_assign", err)
		switch {
		case err == nil:
			res.Assigned++
		case errors.Is(err, models.ErrStorageUnavailable):
			return res, err
		default:
			res.Failures = append(res.Failures, StoreFailure{StoreID: storeID, SellerID: sellerID, Reason: err.Error(), Err: err})
		}
	}

	m.log.Printf("[ADMIN][BULK] seller=%s stores=%d assigned=%d failures=%d",
		sellerID, len(storeIDs), res.Assigned, len(res.Failures))
	return res, nil
}

func (m *Manager) ensureStore(ctx context.Context, storeID string) error {
	_, ok, err := m.engine.GetStore(ctx, storeID)
	if err != nil || ok {
		return err
	}
	return m.engine.CreateStore(ctx, storeID, storeID)
}

func (m *Manager) ensureSeller(ctx context.Context, sellerID string) error {
	_, ok, err := m.engine.GetSeller(ctx, sellerID)
	if err != nil || ok {
		return err
	}
	return m.engine.CreateSeller(ctx, sellerID, sellerID)
}

// ExportMappings returns every current pair.
func (m *Manager) ExportMappings(ctx context.Context) ([]models.Assignment, error) {
	return m.engine.ListAssignments(ctx, "")
}

// ListMappings returns the pairs of storeID, or all pairs when it is empty.
func (m *Manager) ListMappings(ctx context.Context, storeID string) ([]models.Assignment, error) {
	return m.engine.ListAssignments(ctx, strings.TrimSpace(storeID))
}

// ImportMappings assigns each pair, creating unknown stores and sellers
// named after their ids. Refused pairs are reported, not fatal.
func (m *Manager) ImportMappings(ctx context.Context, pairs []models.Assignment) (BulkResult, error) {
	res := BulkResult{Failures: []StoreFailure{}}
	for _, p := range pairs {
		if err := m.ensureStore(ctx, p.StoreID); err != nil {
			return res, err
		}
		if err := m.ensureSeller(ctx, p.SellerID); err != nil {
			return res, err
		}
		err := m.engine.Assign(ctx, p.StoreID, p.SellerID, false)
		metrics.ObserveAssignment("import", err)
		switch {
		case err == nil:
			res.Assigned++
		case errors.Is(err, models.ErrStorageUnavailable):
			return res, err
		default:
			res.Failures = append(res.Failures, StoreFailure{StoreID: p.StoreID, SellerID: p.SellerID, Reason: err.Error(), Err: err})
		}
	}
	m.log.Printf("[ADMIN][IMPORT] pairs=%d assigned=%d failures=%d", len(pairs), res.Assigned, len(res.Failures))
	return res, nil
}

func (m *Manager) RepairFinalized(ctx context.Context) ([]string, error) {
	fixed, err := m.engine.RepairFinalized(ctx)
	if err != nil {
		return fixed, err
	}
	m.log.Printf("[ADMIN][REPAIR] finalized=%d stores=%v", len(fixed), fixed)
	return fixed, nil
}

// WriteMappings encodes every pair in the given format.
func (m *Manager) WriteMappings(ctx context.Context, w io.Writer, format string) error {
	pairs, err := m.ExportMappings(ctx)
	if err != nil {
		return err
	}
	if format == FormatXLSX {
		return EncodeXLSX(w, pairs)
	}
	return EncodeCSV(w, pairs)
}

// ExportTo writes the mappings file to a local path or s3://bucket/key and
// returns its final location.
func (m *Manager) ExportTo(ctx context.Context, target string) (string, error) {
	if m.writer == nil {
		return "", errors.New("no file writer configured")
	}
	format := FormatFor(target)
	var buf bytes.Buffer
	if err := m.WriteMappings(ctx, &buf, format); err != nil {
		return "", err
	}
	loc, err := m.writer.Write(ctx, target, ContentType(format), buf.Bytes())
	if err != nil {
		return "", err
	}
	m.log.Printf("[ADMIN][EXPORT] target=%s format=%s bytes=%d", loc, format, buf.Len())
	return loc, nil
}

// ImportFrom reads a mappings file through the opener and imports it.
func (m *Manager) ImportFrom(ctx context.Context, source string) (BulkResult, error) {
	if m.opener == nil {
		return BulkResult{}, errors.New("no file opener configured")
	}
	rc, _, err := m.opener.Open(ctx, source)
	if err != nil {
		return BulkResult{}, err
	}
	defer rc.Close()

	var pairs []models.Assignment
	if FormatFor(source) == FormatXLSX {
		pairs, err = DecodeXLSX(rc)
	} else {
		pairs, err = DecodeCSV(rc)
	}
	if err != nil {
		return BulkResult{}, fmt.Errorf("decode mappings: %w", err)
	}
	return m.ImportMappings(ctx, pairs)
}
