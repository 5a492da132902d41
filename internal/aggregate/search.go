package aggregate

import (
	"strings"

	"textile-backend/internal/models"
)

// MatchLot reports whether query occurs, ignoring case, in the lot's party,
// lot number, quality challan or any entry challan. Empty query matches.
func MatchLot(l *models.Lot, query string) bool {
	q := normalize(query)
	if q == "" {
		return true
	}
	if contains(l.PartyName, q) || contains(l.LotNumber, q) || contains(l.QualityChallanNumber, q) {
		return true
	}
	for _, e := range l.Entries {
		if contains(e.ChallanNumber, q) {
			return true
		}
	}
	return false
}

// MatchDispatch is MatchLot for dispatch records
func MatchDispatch(d *models.Dispatch, query string) bool {
	q := normalize(query)
	if q == "" {
		return true
	}
	return contains(d.Party, q) || contains(d.LotNumber, q) || contains(d.QualityChallanNumber, q)
}

// Filter keeps the items accepted by match, preserving order
func Filter[T any](items []T, query string, match func(T, string) bool) []T {
	if normalize(query) == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if match(it, query) {
			out = append(out, it)
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func contains(field, q string) bool {
	return strings.Contains(strings.ToLower(field), q)
}
