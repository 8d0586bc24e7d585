package importer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"sales_import/internal/ports"
)

// rowSource yields the header once and then the raw cells of each data row.
// Next returns io.EOF after the last row.
type rowSource interface {
	Header() []string
	Next() ([]string, error)
	Close() error
}

func openRows(format string, br *bufio.Reader) (rowSource, error) {
	if format == "xlsx" {
		return newXLSXSource(br)
	}
	return newCSVSource(br)
}

type csvSource struct {
	r      *csv.Reader
	header []string
}

func newCSVSource(br *bufio.Reader) (*csvSource, error) {
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.Comma = sniffDelimiter(br)

	header, err := r.Read()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	log.Printf("[IMP][CSV] delimiter=%q header=%v", r.Comma, header)
	return &csvSource{r: r, header: header}, nil
}

func (c *csvSource) Header() []string        { return c.header }
func (c *csvSource) Next() ([]string, error) { return c.r.Read() }
func (c *csvSource) Close() error            { return nil }

// Exports from the store system are ';' separated, hand-made files usually
// use ','. The header line decides.
func sniffDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	if bytes.Count(head, []byte{';'}) > bytes.Count(head, []byte{','}) {
		return ';'
	}
	return ','
}

type xlsxSource struct {
	f      *excelize.File
	rows   *excelize.Rows
	header []string
}

func newXLSXSource(r io.Reader) (*xlsxSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, errors.New("xlsx has no sheets")
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, err
	}

	src := &xlsxSource{f: f, rows: rows}
	if rows.Next() {
		if src.header, err = rows.Columns(); err != nil {
			src.Close()
			return nil, err
		}
	} else if err := rows.Error(); err != nil {
		src.Close()
		return nil, err
	}
	log.Printf("[IMP][XLSX] sheet=%q header=%v", sheets[0], src.header)
	return src, nil
}

func (x *xlsxSource) Header() []string { return x.header }

func (x *xlsxSource) Next() ([]string, error) {
	if !x.rows.Next() {
		if err := x.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return x.rows.Columns()
}

func (x *xlsxSource) Close() error {
	x.rows.Close()
	return x.f.Close()
}

// stream hands rows to proc in batches of batchSize. Rows that fail to
// parse are logged and skipped. It returns the number of rows handed over.
func stream(ctx context.Context, tag string, src rowSource, proc ports.Processor, batchSize int) (int, error) {
	start := time.Now()
	header := src.Header()
	if len(header) == 0 {
		return 0, nil
	}

	batch := make([]map[string]string, 0, batchSize)
	total, batches := 0, 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		log.Printf("[IMP][%s] send batch #%d size=%d total_so_far=%d", tag, batches+1, len(batch), total)
		if err := proc.ProcessBatch(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batches++
		batch = make([]map[string]string, 0, batchSize)
		return nil
	}

	for {
		cells, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				log.Printf("[IMP][%s][WARN] skip row: %v", tag, err)
				continue
			}
			return total, err
		}
		batch = append(batch, toMap(header, cells))
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	log.Printf("[IMP][%s][DONE] total_rows=%d batches=%d duration=%s", tag, total, batches, time.Since(start))
	return total, nil
}

func toMap(header []string, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, key := range header {
		val := ""
		if i < len(row) {
			val = row[i]
		}
		m[strings.TrimSpace(strings.TrimPrefix(key, "\ufeff"))] = strings.TrimSpace(val)
	}
	return m
}
