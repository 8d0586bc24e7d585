package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"sales_import/internal/models"
	"sales_import/internal/ports"
)

const (
	summaryPrefix = "resumo_qualidade_"
	samplePrefix  = "vendas_corrigido_"
	stampLayout   = "20060102_150405"
	dateLayout    = "02/01/2006"
)

var sampleHeader = []string{
	models.ColCustomerID, models.ColCustomerName, models.ColBirthDate, models.ColTaxID, models.ColPhone,
	models.ColProductCode, models.ColProductName, models.ColQuantity, models.ColUnitAmount,
	models.ColSaleDate, models.ColPurchaseDate, models.ColPaymentMethod,
	models.ColStoreID, models.ColSellerID, "resultado", "motivo", "erros",
}

// WriteSummaryCSV writes the summary as a single wide row with one erro_<tag>
// column per validation tag.
func WriteSummaryCSV(w io.Writer, s Summary) error {
	tags := make([]string, 0, len(s.Histogram))
	for t := range s.Histogram {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	header := []string{
		"run_id", "total_processado", "registros_inseridos", "duplicados", "erros_insercao",
		"registros_com_erros_validacao", "taxa_sucesso", "total_chunks_processados", "data_processamento",
	}
	row := []string{
		s.RunID,
		strconv.Itoa(s.Records),
		strconv.Itoa(s.Inserted),
		strconv.Itoa(s.RejectedDuplicate),
		strconv.Itoa(s.RejectedOther),
		strconv.Itoa(s.WithValidationErrors),
		fmt.Sprintf("%.1f%%", s.SuccessRate),
		strconv.Itoa(s.Chunks),
		s.FinishedAt.Format("02/01/2006 15:04:05"),
	}
	for _, t := range tags {
		header = append(header, "erro_"+t)
		row = append(row, strconv.Itoa(s.Histogram[t]))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func WriteSampleCSV(w io.Writer, sample []SampleRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sampleHeader); err != nil {
		return err
	}
	for _, rec := range sample {
		s := rec.Sale
		if err := cw.Write([]string{
			strconv.FormatInt(s.CustomerID, 10),
			s.CustomerName,
			formatDate(s.BirthDate),
			s.TaxID,
			s.Phone,
			s.ProductCode,
			s.ProductName,
			strconv.Itoa(s.Quantity),
			strconv.FormatFloat(s.UnitAmount, 'f', 2, 64),
			formatDate(s.SaleDate),
			formatDate(s.PurchaseDate),
			s.PaymentMethod,
			s.StoreID,
			s.SellerID,
			rec.Outcome,
			rec.Reason,
			strings.Join(s.Errors, ", "),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// SaveReports writes the summary and, when non-empty, the sample under dir
// (a local directory or s3://bucket/prefix) and returns their locations.
func SaveReports(ctx context.Context, w ports.FileWriter, dir string, rep Report) ([]string, error) {
	stamp := rep.Summary.FinishedAt.Format(stampLayout)
	var out []string

	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, rep.Summary); err != nil {
		return nil, err
	}
	loc, err := w.Write(ctx, joinDir(dir, summaryPrefix+stamp+".csv"), "text/csv", buf.Bytes())
	if err != nil {
		return nil, err
	}
	out = append(out, loc)

	if len(rep.Sample) == 0 {
		return out, nil
	}
	buf.Reset()
	if err := WriteSampleCSV(&buf, rep.Sample); err != nil {
		return out, err
	}
	loc, err = w.Write(ctx, joinDir(dir, samplePrefix+stamp+".csv"), "text/csv", buf.Bytes())
	if err != nil {
		return out, err
	}
	return append(out, loc), nil
}

func joinDir(dir, name string) string {
	if strings.HasPrefix(dir, "s3://") {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}
	return filepath.Join(dir, name)
}
