package models

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Column limits of the lots, lot_entries and dispatches tables
const (
	MaxCodeLength = 100 // lot numbers, challan numbers, dispatch status
	MaxNameLength = 255 // party, quality, shade, process, karigar

	// NUMERIC(12, 3)
	MeasureScale = 3
	MaxRoll      = math.MaxInt32
)

var maxMeasure = decimal.New(1, 12-MeasureScale)

// CheckLength rejects values longer than max characters
func CheckLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters", max)}
	}
	return nil
}

// CheckMeasure accepts nil or a non-negative value that fits NUMERIC(12, 3)
// without rounding
func CheckMeasure(field string, d *decimal.Decimal) error {
	switch {
	case d == nil:
		return nil
	case d.IsNegative():
		return &ValidationError{Field: field, Message: "cannot be negative"}
	case !d.Equal(d.Truncate(MeasureScale)):
		return &ValidationError{Field: field, Message: fmt.Sprintf("must have at most %d decimal places", MeasureScale)}
	case d.GreaterThanOrEqual(maxMeasure):
		return &ValidationError{Field: field, Message: "must be less than " + maxMeasure.String()}
	}
	return nil
}

// CheckRoll accepts nil or a non-negative roll count that fits INTEGER
func CheckRoll(field string, n *int) error {
	switch {
	case n == nil:
		return nil
	case *n < 0:
		return &ValidationError{Field: field, Message: "cannot be negative"}
	case *n > MaxRoll:
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d", MaxRoll)}
	}
	return nil
}

// DuplicateLotError is returned when a lot number is reused for the same
// party, quality, shade and process
func DuplicateLotError(lot *Lot) error {
	return &ValidationError{
		Field:   "lot_number",
		Message: fmt.Sprintf("%s already exists for this party, quality, shade and process", lot.LotNumber),
	}
}

// SameIdentity reports whether a and b share lot number, party, quality,
// shade and process
func SameIdentity(a, b *Lot) bool {
	return a.LotNumber == b.LotNumber && a.PartyName == b.PartyName && a.Quality == b.Quality &&
		a.Shade == b.Shade && a.ProcessType == b.ProcessType
}
