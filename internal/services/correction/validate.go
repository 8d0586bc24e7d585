package correction

import (
	"strconv"
	"strings"

	"sales_import/internal/models"
)

// Validation tags. They feed the error histogram and never block insertion.
const (
	TagInvalidTaxID        = "invalid_tax_id"
	TagInvalidPhone        = "invalid_phone"
	TagInvalidBirthDate    = "invalid_birth_date"
	TagInvalidPurchaseDate = "invalid_purchase_date"
	TagFuturePurchaseDate  = "future_purchase_date"
	TagInvalidQuantity     = "invalid_quantity"
)

// Validate reports which fields of the raw row needed a correction.
func (c Corrector) Validate(row map[string]string) []string {
	var tags []string

	if d := digits(row[models.ColTaxID]); len(d) != TaxIDDigits {
		tags = append(tags, TagInvalidTaxID)
	}

	if d := digits(row[models.ColPhone]); len(d) < MinPhoneDigits || len(d) > MaxPhoneDigits {
		tags = append(tags, TagInvalidPhone)
	}

	if _, ok := ParseDate(row[models.ColBirthDate]); !ok {
		tags = append(tags, TagInvalidBirthDate)
	}

	if t, ok := ParseDate(purchaseRaw(row)); !ok {
		tags = append(tags, TagInvalidPurchaseDate)
	} else if t.After(c.today()) {
		tags = append(tags, TagFuturePurchaseDate)
	}

	if q := strings.TrimSpace(row[models.ColQuantity]); q != "" {
		if v, err := strconv.Atoi(q); err != nil || v <= 0 {
			tags = append(tags, TagInvalidQuantity)
		}
	}

	return tags
}
