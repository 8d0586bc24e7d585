// Package correction normalizes one raw sales row and tags what was malformed.
// Nothing here does I/O.
package correction

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"sales_import/internal/models"
)

const (
	TaxIDDigits    = 11
	MinPhoneDigits = 10
	MaxPhoneDigits = 11

	DateLayout = "02/01/2006"
)

// DefaultBirthDate replaces birth dates that cannot be parsed.
var DefaultBirthDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

var nonDigits = regexp.MustCompile(`\D+`)

var dateLayouts = []string{
	DateLayout,
	"2006-01-02",
	"02.01.2006",
	"02-01-2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	time.RFC3339,
}

type Corrector struct {
	Now func() time.Time
}

func New() Corrector {
	return Corrector{Now: time.Now}
}

func (c Corrector) today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return truncateDay(now())
}

// Correct maps a raw row onto a Sale, substituting safe values for anything
// that cannot be used as is.
func (c Corrector) Correct(row map[string]string) models.Sale {
	today := c.today()

	sale := models.Sale{
		TaxID:         NormalizeTaxID(row[models.ColTaxID]),
		CustomerID:    parseInt64(row[models.ColCustomerID]),
		CustomerName:  strings.TrimSpace(row[models.ColCustomerName]),
		Phone:         NormalizePhone(row[models.ColPhone]),
		StoreID:       strings.TrimSpace(row[models.ColStoreID]),
		SellerID:      strings.TrimSpace(row[models.ColSellerID]),
		ProductCode:   strings.TrimSpace(row[models.ColProductCode]),
		ProductName:   strings.TrimSpace(row[models.ColProductName]),
		Quantity:      parseQuantity(row[models.ColQuantity]),
		UnitAmount:    parseAmount(row[models.ColUnitAmount]),
		PaymentMethod: strings.TrimSpace(row[models.ColPaymentMethod]),
	}

	if t, ok := ParseDate(row[models.ColBirthDate]); ok {
		sale.BirthDate = t
	} else {
		sale.BirthDate = DefaultBirthDate
	}

	purchase, ok := ParseDate(purchaseRaw(row))
	if !ok || purchase.After(today) {
		purchase = today
	}
	sale.PurchaseDate = purchase

	if t, ok := ParseDate(row[models.ColSaleDate]); ok {
		sale.SaleDate = t
	} else {
		sale.SaleDate = purchase
	}

	return sale
}

// NormalizeTaxID keeps the digits and forces them to exactly TaxIDDigits,
// left-padding with zeros or truncating.
func NormalizeTaxID(s string) string {
	return fitDigits(digits(s), TaxIDDigits, TaxIDDigits)
}

// NormalizePhone keeps the digits, pads to MinPhoneDigits and truncates to
// MaxPhoneDigits.
func NormalizePhone(s string) string {
	return fitDigits(digits(s), MinPhoneDigits, MaxPhoneDigits)
}

func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return truncateDay(t), true
		}
	}
	return time.Time{}, false
}

func purchaseRaw(row map[string]string) string {
	if v := strings.TrimSpace(row[models.ColPurchaseDate]); v != "" {
		return v
	}
	return row[models.ColSaleDate]
}

func digits(s string) string {
	return nonDigits.ReplaceAllString(strings.TrimSpace(s), "")
}

func fitDigits(d string, min, max int) string {
	if len(d) < min {
		d = strings.Repeat("0", min-len(d)) + d
	}
	if len(d) > max {
		d = d[:max]
	}
	return d
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseInt64(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseQuantity(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		if f, ferr := strconv.ParseFloat(normalizeAmount(s), 64); ferr == nil && f > 0 {
			return int(f)
		}
		return 1
	}
	if v <= 0 {
		return 1
	}
	return v
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(normalizeAmount(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func normalizeAmount(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "0"
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimPrefix(s, "R$")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return s
}
