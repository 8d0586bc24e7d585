package auditsink

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sales_import/internal/models"
)

var csvHeader = []string{"timestamp", "cpf", "codigo_loja", "codigo_vendedor"}

// File appends each entry as one JSON line and as one CSV row. Either path
// may be empty to skip that form.
type File struct {
	mu       sync.Mutex
	jsonPath string
	csvPath  string
}

func NewFile(jsonPath, csvPath string) *File {
	return &File{jsonPath: jsonPath, csvPath: csvPath}
}

func (f *File) Append(_ context.Context, e models.DuplicateAuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.jsonPath != "" {
		line, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err := appendTo(f.jsonPath, func(w io.Writer, _ bool) error {
			_, err := w.Write(append(line, '\n'))
			return err
		}); err != nil {
			return fmt.Errorf("duplicate log: %w", err)
		}
	}

	if f.csvPath != "" {
		if err := appendTo(f.csvPath, func(w io.Writer, empty bool) error {
			cw := csv.NewWriter(w)
			if empty {
				if err := cw.Write(csvHeader); err != nil {
					return err
				}
			}
			if err := cw.Write([]string{
				e.Timestamp.UTC().Format(time.RFC3339),
				e.TaxID,
				e.StoreID,
				e.SellerID,
			}); err != nil {
				return err
			}
			cw.Flush()
			return cw.Error()
		}); err != nil {
			return fmt.Errorf("duplicate csv: %w", err)
		}
	}
	return nil
}

// ReadAll prefers the JSON lines file and falls back to the CSV file.
// A missing file reads as no entries.
func (f *File) ReadAll(_ context.Context) ([]models.DuplicateAuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.jsonPath != "" {
		fh, err := os.Open(f.jsonPath)
		if err == nil {
			defer fh.Close()
			return ReadJSONL(fh)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if f.csvPath != "" {
		fh, err := os.Open(f.csvPath)
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		defer fh.Close()
		return ReadCSV(fh)
	}
	return nil, nil
}

func ReadJSONL(r io.Reader) ([]models.DuplicateAuditEntry, error) {
	var out []models.DuplicateAuditEntry
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e models.DuplicateAuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

func ReadCSV(r io.Reader) ([]models.DuplicateAuditEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	col := func(rec []string, name string) string {
		if i, ok := idx[name]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}

	var out []models.DuplicateAuditEntry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		e := models.DuplicateAuditEntry{
			TaxID:    col(rec, "cpf"),
			StoreID:  col(rec, "codigo_loja"),
			SellerID: col(rec, "codigo_vendedor"),
		}
		if ts := col(rec, "timestamp"); ts != "" {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				e.Timestamp = t
			} else if t, err := time.Parse("2006-01-02T15:04:05", ts); err == nil {
				e.Timestamp = t
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func appendTo(path string, write func(w io.Writer, empty bool) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	fh, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	st, err := fh.Stat()
	if err != nil {
		fh.Close()
		return err
	}
	if err := write(fh, st.Size() == 0); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
