package dedup

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"sales_import/internal/models"
)

const topN = 5

type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type DaySummary struct {
	Date      string  `json:"date"`
	Total     int     `json:"total_duplicates"`
	TopTaxIDs []Count `json:"top_cpfs"`
	TopStores []Count `json:"top_lojas"`
}

var summaryHeader = []string{"date", "total_duplicates", "top_cpfs", "top_lojas"}

// Summarize groups audit entries by UTC day, oldest day first.
func Summarize(entries []models.DuplicateAuditEntry) []DaySummary {
	type bucket struct {
		total  int
		taxIDs map[string]int
		stores map[string]int
	}
	days := make(map[string]*bucket)

	for _, e := range entries {
		date := "unknown"
		if !e.Timestamp.IsZero() {
			date = e.Timestamp.UTC().Format("2006-01-02")
		}
		b, ok := days[date]
		if !ok {
			b = &bucket{taxIDs: map[string]int{}, stores: map[string]int{}}
			days[date] = b
		}
		b.total++
		if e.TaxID != "" {
			b.taxIDs[e.TaxID]++
		}
		if e.StoreID != "" {
			b.stores[e.StoreID]++
		}
	}

	out := make([]DaySummary, 0, len(days))
	for date, b := range days {
		out = append(out, DaySummary{
			Date:      date,
			Total:     b.total,
			TopTaxIDs: top(b.taxIDs, topN),
			TopStores: top(b.stores, topN),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func top(counts map[string]int, n int) []Count {
	out := make([]Count, 0, len(counts))
	for k, c := range counts {
		out = append(out, Count{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func joinCounts(cs []Count) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = fmt.Sprintf("%s:%d", c.Key, c.Count)
	}
	return strings.Join(parts, ";")
}

func WriteSummaryCSV(w io.Writer, days []DaySummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}
	for _, d := range days {
		if err := cw.Write([]string{
			d.Date,
			strconv.Itoa(d.Total),
			joinCounts(d.TopTaxIDs),
			joinCounts(d.TopStores),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
