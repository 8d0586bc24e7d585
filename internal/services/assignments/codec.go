package assignments

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"sales_import/internal/models"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var mappingHeader = []string{models.ColStoreID, models.ColSellerID}

// FormatFor picks the mapping file format from the path extension; anything
// other than .xlsx is CSV.
func FormatFor(filePath string) string {
	if strings.EqualFold(path.Ext(filePath), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

func ContentType(format string) string {
	if format == FormatXLSX {
		return ContentTypeXLSX
	}
	return ContentTypeCSV
}

func sortPairs(pairs []models.Assignment) []models.Assignment {
	out := append([]models.Assignment(nil), pairs...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].StoreID != out[j].StoreID {
			return out[i].StoreID < out[j].StoreID
		}
		return out[i].SellerID < out[j].SellerID
	})
	return out
}

func EncodeCSV(w io.Writer, pairs []models.Assignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(mappingHeader); err != nil {
		return err
	}
	for _, p := range sortPairs(pairs) {
		if err := cw.Write([]string{p.StoreID, p.SellerID}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func DecodeCSV(r io.Reader) ([]models.Assignment, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return pairsFromRows(rows)
}

func EncodeXLSX(w io.Writer, pairs []models.Assignment) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]any{mappingHeader[0], mappingHeader[1]}); err != nil {
		return err
	}
	for i, p := range sortPairs(pairs) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &[]any{p.StoreID, p.SellerID}); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func DecodeXLSX(r io.Reader) ([]models.Assignment, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return pairsFromRows(rows)
}

func pairsFromRows(rows [][]string) ([]models.Assignment, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	storeCol, sellerCol := -1, -1
	for i, h := range rows[0] {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case models.ColStoreID:
			storeCol = i
		case models.ColSellerID:
			sellerCol = i
		}
	}
	if storeCol < 0 || sellerCol < 0 {
		return nil, fmt.Errorf("mapping header must contain %s and %s", models.ColStoreID, models.ColSellerID)
	}

	var out []models.Assignment
	for _, rec := range rows[1:] {
		if storeCol >= len(rec) || sellerCol >= len(rec) {
			continue
		}
		store := strings.TrimSpace(rec[storeCol])
		seller := strings.TrimSpace(rec[sellerCol])
		if store == "" || seller == "" {
			continue
		}
		out = append(out, models.Assignment{StoreID: store, SellerID: seller})
	}
	return out, nil
}
