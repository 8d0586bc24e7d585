package importer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"sales_import/internal/models"
)

func rec(i int) SampleRecord {
	return SampleRecord{Sale: models.Sale{TaxID: fmt.Sprint(i)}}
}

func taxIDs(items []SampleRecord) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Sale.TaxID
	}
	return out
}

func TestRing_KeepsTrailingRecords(t *testing.T) {
	r := newRing(3)
	for i := 1; i <= 2; i++ {
		r.add(rec(i))
	}
	assert.Equal(t, []string{"1", "2"}, taxIDs(r.items()))

	for i := 3; i <= 7; i++ {
		r.add(rec(i))
	}
	assert.Equal(t, []string{"5", "6", "7"}, taxIDs(r.items()))
}

func TestRing_ZeroCapacityKeepsNothing(t *testing.T) {
	r := newRing(0)
	r.add(rec(1))
	assert.Empty(t, r.items())
}

func TestSplit(t *testing.T) {
	rows := make([]map[string]string, 7)
	chunks := split(rows, 3)
	assert.Len(t, chunks, 3)
	assert.Len(t, chunks[2], 1)
	assert.Empty(t, split(nil, 3))
}
