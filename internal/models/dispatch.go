package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Dispatch is an outgoing shipment record. Party and LotNumber are free
// text; nothing ties them to an existing lot.
type Dispatch struct {
	ID                   uuid.UUID        `json:"id"`
	Party                string           `json:"party"`
	LotNumber            string           `json:"lot_number"`
	Quality              string           `json:"quality"`
	Shade                string           `json:"shade"`
	Process              string           `json:"process"`
	Status               string           `json:"status"`
	QualityChallanNumber string           `json:"quality_challan_number"`
	KarigarName          string           `json:"karigar_name"`
	Kg                   *decimal.Decimal `json:"kg"`
	Meter                *decimal.Decimal `json:"meter"`
	Roll                 *int             `json:"roll"`
	DispatchDate         time.Time        `json:"dispatch_date"`
	CreatedAt            time.Time        `json:"created_at"`
	ModifiedAt           time.Time        `json:"modified_at"`
}

// DispatchRequest is used for both create and full update
type DispatchRequest struct {
	Party                string           `json:"party"`
	LotNumber            string           `json:"lot_number"`
	Quality              string           `json:"quality"`
	Shade                string           `json:"shade"`
	Process              string           `json:"process"`
	Status               string           `json:"status"`
	QualityChallanNumber string           `json:"quality_challan_number"`
	KarigarName          string           `json:"karigar_name"`
	Kg                   *decimal.Decimal `json:"kg"`
	Meter                *decimal.Decimal `json:"meter"`
	Roll                 *int             `json:"roll"`
	DispatchDate         *time.Time       `json:"dispatch_date"`
}

// Apply copies the request onto d. A missing dispatch date keeps d's date.
func (r *DispatchRequest) Apply(d *Dispatch) {
	d.Party = r.Party
	d.LotNumber = r.LotNumber
	d.Quality = r.Quality
	d.Shade = r.Shade
	d.Process = r.Process
	d.Status = r.Status
	d.QualityChallanNumber = r.QualityChallanNumber
	d.KarigarName = r.KarigarName
	d.Kg = r.Kg
	d.Meter = r.Meter
	d.Roll = r.Roll
	if r.DispatchDate != nil {
		d.DispatchDate = *r.DispatchDate
	}
}
