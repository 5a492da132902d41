package aggregate

import (
	"strings"

	"textile-backend/internal/models"
)

// Key is a structured grouping key. String is for display only.
type Key interface {
	comparable
	String() string
}

// HeatKey groups lots on the heat-set views
type HeatKey struct {
	Party     string
	LotNumber string
	Shade     string
	Process   string
	Status    string
	Quality   string
}

func (k HeatKey) String() string {
	return join(k.Party, k.LotNumber, k.Shade, k.Process, k.Status, k.Quality)
}

// HeatKeyOf builds the heat key of a lot
func HeatKeyOf(l *models.Lot) HeatKey {
	return HeatKey{
		Party:     l.PartyName,
		LotNumber: l.LotNumber,
		Shade:     l.Shade,
		Process:   l.ProcessType,
		Status:    string(l.Status),
		Quality:   l.Quality,
	}
}

// ProcessKey groups lots on the process views
type ProcessKey struct {
	Party                string
	QualityChallanNumber string
}

func (k ProcessKey) String() string {
	return join(k.Party, k.QualityChallanNumber)
}

func ProcessKeyOf(l *models.Lot) ProcessKey {
	return ProcessKey{Party: l.PartyName, QualityChallanNumber: l.QualityChallanNumber}
}

// GreyKey groups lots on the grey preview
type GreyKey struct {
	LotNumber string
	Party     string
	Quality   string
	Shade     string
	Process   string
}

func (k GreyKey) String() string {
	return join(k.LotNumber, k.Party, k.Quality, k.Shade, k.Process)
}

func GreyKeyOf(l *models.Lot) GreyKey {
	return GreyKey{
		LotNumber: l.LotNumber,
		Party:     l.PartyName,
		Quality:   l.Quality,
		Shade:     l.Shade,
		Process:   l.ProcessType,
	}
}

// DispatchKey groups dispatch records
type DispatchKey struct {
	Party     string
	LotNumber string
}

func (k DispatchKey) String() string {
	return join(k.Party, k.LotNumber)
}

func DispatchKeyOf(d *models.Dispatch) DispatchKey {
	return DispatchKey{Party: d.Party, LotNumber: d.LotNumber}
}

// join is display-only; keys compare on their fields, never on this string
func join(parts ...string) string {
	return strings.Join(parts, "-")
}
