package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lot is a batch of cloth tracked through the grey -> process -> heat -> finish workflow
type Lot struct {
	ID                   uuid.UUID  `json:"id"`
	LotNumber            string     `json:"lot_number"`
	PartyName            string     `json:"party_name"`
	Quality              string     `json:"quality"`
	Shade                string     `json:"shade"`
	ProcessType          string     `json:"process_type"`
	QualityChallanNumber string     `json:"quality_challan_number"`
	Status               Stage      `json:"status"`
	Entries              []*Entry   `json:"entries"`
	CreatedAt            time.Time  `json:"created_at"`
	SubmittedAt          *time.Time `json:"submitted_at,omitempty"` // entered process
	HeatSetAt            *time.Time `json:"heat_set_at,omitempty"`  // entered heat
	FinishedAt           *time.Time `json:"finished_at,omitempty"`  // entered finish
	ModifiedAt           time.Time  `json:"modified_at"`
}

// StageTime returns when the lot entered the given stage, nil if it never did
func (l *Lot) StageTime(s Stage) *time.Time {
	switch s {
	case StageGrey:
		t := l.CreatedAt
		return &t
	case StageProcess:
		return l.SubmittedAt
	case StageHeat:
		return l.HeatSetAt
	case StageFinish:
		return l.FinishedAt
	}
	return nil
}

// SetStageTime stamps the entry time of stage s
func (l *Lot) SetStageTime(s Stage, t time.Time) {
	switch s {
	case StageProcess:
		l.SubmittedAt = &t
	case StageHeat:
		l.HeatSetAt = &t
	case StageFinish:
		l.FinishedAt = &t
	}
}

// Entry is one challan-numbered delivery recorded against a lot
type Entry struct {
	ID            uuid.UUID        `json:"id"`
	LotID         uuid.UUID        `json:"lot_id"`
	Position      int              `json:"position"`
	ChallanNumber string           `json:"challan_number"`
	Kg            *decimal.Decimal `json:"kg"`
	Meter         *decimal.Decimal `json:"meter"`
	Roll          *int             `json:"roll"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// HasMeasurement reports whether at least one of kg, meter or roll is set
func (e *Entry) HasMeasurement() bool {
	return e.Kg != nil || e.Meter != nil || e.Roll != nil
}

// LotFilter narrows lot listings. Zero value lists every lot.
type LotFilter struct {
	Status         Stage  // exact current status
	CompletedStage Stage  // lots whose status is strictly after this stage
	Query          string // case-insensitive party / challan / lot number search
}

// CreateLotRequest represents the request body for creating a lot
type CreateLotRequest struct {
	LotNumber            string `json:"lot_number"`
	PartyName            string `json:"party_name"`
	Quality              string `json:"quality"`
	Shade                string `json:"shade"`
	ProcessType          string `json:"process_type"`
	QualityChallanNumber string `json:"quality_challan_number"`
}

// UpdateLotRequest carries partial lot changes; nil fields are left untouched
type UpdateLotRequest struct {
	LotNumber            *string `json:"lot_number,omitempty"`
	PartyName            *string `json:"party_name,omitempty"`
	Quality              *string `json:"quality,omitempty"`
	Shade                *string `json:"shade,omitempty"`
	ProcessType          *string `json:"process_type,omitempty"`
	QualityChallanNumber *string `json:"quality_challan_number,omitempty"`
}

// Apply copies the set fields onto lot
func (r *UpdateLotRequest) Apply(lot *Lot) {
	if r.LotNumber != nil {
		lot.LotNumber = *r.LotNumber
	}
	if r.PartyName != nil {
		lot.PartyName = *r.PartyName
	}
	if r.Quality != nil {
		lot.Quality = *r.Quality
	}
	if r.Shade != nil {
		lot.Shade = *r.Shade
	}
	if r.ProcessType != nil {
		lot.ProcessType = *r.ProcessType
	}
	if r.QualityChallanNumber != nil {
		lot.QualityChallanNumber = *r.QualityChallanNumber
	}
}

// AppendEntryRequest represents the request body for adding an entry to a lot
type AppendEntryRequest struct {
	ChallanNumber string           `json:"challan_number"`
	Kg            *decimal.Decimal `json:"kg"`
	Meter         *decimal.Decimal `json:"meter"`
	Roll          *int             `json:"roll"`
}

// UpdateEntryRequest carries partial entry changes; nil fields are left
// untouched. Clear names measurements ("kg", "meter", "roll") to reset to absent.
type UpdateEntryRequest struct {
	ChallanNumber *string          `json:"challan_number,omitempty"`
	Kg            *decimal.Decimal `json:"kg,omitempty"`
	Meter         *decimal.Decimal `json:"meter,omitempty"`
	Roll          *int             `json:"roll,omitempty"`
	Clear         []string         `json:"clear,omitempty"`
}

// Apply copies the set fields onto entry, then applies Clear
func (r *UpdateEntryRequest) Apply(e *Entry) error {
	if r.ChallanNumber != nil {
		e.ChallanNumber = *r.ChallanNumber
	}
	if r.Kg != nil {
		e.Kg = r.Kg
	}
	if r.Meter != nil {
		e.Meter = r.Meter
	}
	if r.Roll != nil {
		e.Roll = r.Roll
	}
	for _, field := range r.Clear {
		switch field {
		case "kg":
			e.Kg = nil
		case "meter":
			e.Meter = nil
		case "roll":
			e.Roll = nil
		default:
			return &ValidationError{Field: "clear", Message: "unknown measurement " + field}
		}
	}
	return nil
}

// AdvanceRequest moves a lot to the given stage
type AdvanceRequest struct {
	Status string `json:"status"`
}

// StatusRequest is the mark-complete body used by the stage pages: {"lotId": "...", "status": "complete"}
type StatusRequest struct {
	LotID  string `json:"lotId"`
	Status string `json:"status"`
}

// StatusComplete asks for the successor of the lot's current stage
const StatusComplete = "complete"
