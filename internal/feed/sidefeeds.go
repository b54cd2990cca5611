package feed

import (
	"strings"

	"github.com/rotisserie/eris"
)

// QuantityRecord is one line of the quantity-on-hand file ("stock,qty").
type QuantityRecord struct {
	StockNumber string
	Quantity    int
}

// ParseQuantityLine decodes a quantity line. Header lines are skipped.
func ParseQuantityLine(line string) (QuantityRecord, error) {
	parts := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(parts) < 2 {
		return QuantityRecord{}, eris.Wrapf(ErrMalformedRecord, "feed: quantity line has %d fields", len(parts))
	}
	stock := trimQuotes(parts[0])
	if stock == "" {
		return QuantityRecord{}, eris.Wrap(ErrMalformedRecord, "feed: quantity line missing stock number")
	}
	qty := trimQuotes(parts[1])
	if strings.EqualFold(stock, "stock") || strings.EqualFold(stock, "stock#") {
		return QuantityRecord{}, eris.Wrap(ErrSkipped, "feed: quantity header")
	}
	return QuantityRecord{StockNumber: stock, Quantity: parseIntOr(qty, 0)}, nil
}

// DeletedRecord is one line of the deleted-items file
// ("stock;description;DELETED").
type DeletedRecord struct {
	StockNumber string
	Description string
}

// ParseDeletedLine decodes a deleted-items line. Lines whose status column
// is not DELETED are skipped.
func ParseDeletedLine(line, delimiter string) (DeletedRecord, error) {
	if delimiter == "" {
		delimiter = ";"
	}
	parts := strings.Split(strings.TrimRight(line, "\r\n"), delimiter)
	if len(parts) < 3 {
		return DeletedRecord{}, eris.Wrapf(ErrMalformedRecord, "feed: deleted line has %d fields", len(parts))
	}
	stock := trimQuotes(parts[0])
	if stock == "" {
		return DeletedRecord{}, eris.Wrap(ErrMalformedRecord, "feed: deleted line missing stock number")
	}
	if !strings.EqualFold(trimQuotes(parts[2]), "DELETED") {
		return DeletedRecord{}, eris.Wrapf(ErrSkipped, "feed: %s status %q", stock, parts[2])
	}
	return DeletedRecord{StockNumber: stock, Description: sanitizeUTF8(trimQuotes(parts[1]))}, nil
}
