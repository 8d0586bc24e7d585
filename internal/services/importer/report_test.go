package importer

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales_import/internal/models"
)

func TestWriteSummaryCSV(t *testing.T) {
	s := Summary{
		RunID:      "r1",
		FinishedAt: time.Date(2025, 9, 25, 14, 5, 0, 0, time.UTC),
		Totals: Totals{
			Records:              4,
			Inserted:             3,
			RejectedDuplicate:    1,
			WithValidationErrors: 2,
			Chunks:               1,
			Histogram:            map[string]int{"invalid_phone": 2, "invalid_birth_date": 1},
		},
		SuccessRate: 75,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryCSV(&buf, s))
	assert.Equal(t,
		"run_id,total_processado,registros_inseridos,duplicados,erros_insercao,registros_com_erros_validacao,"+
			"taxa_sucesso,total_chunks_processados,data_processamento,erro_invalid_birth_date,erro_invalid_phone\n"+
			"r1,4,3,1,0,2,75.0%,1,25/09/2025 14:05:00,1,2\n",
		buf.String())
}

func TestWriteSampleCSV(t *testing.T) {
	sale := models.Sale{
		TaxID:        "11111111111",
		CustomerID:   7,
		CustomerName: "Ana",
		Phone:        "11987654321",
		StoreID:      "L001",
		SellerID:     "V001",
		Quantity:     2,
		UnitAmount:   19.9,
		SaleDate:     time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		PurchaseDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Errors:       []string{"invalid_birth_date"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSampleCSV(&buf, []SampleRecord{{Sale: sale, Outcome: "inserted"}}))
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "7,Ana,,11111111111,11987654321,,,2,19.90,15/01/2025,15/01/2025,,L001,V001,inserted,,invalid_birth_date",
		string(lines[1]))
}

func TestJoinDir(t *testing.T) {
	assert.Equal(t, "s3://bucket/reports/a.csv", joinDir("s3://bucket/reports/", "a.csv"))
	assert.Equal(t, "data/reports/a.csv", joinDir("data/reports", "a.csv"))
}
