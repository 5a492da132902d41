package aggregate

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"textile-backend/internal/models"
	"textile-backend/internal/timeutil"
)

// missing is written in place of empty cells, as the exported sheets always did
const missing = "N/A"

// LotColumns names the ReportRow.Values cells in order. The first
// LotGroupWidth columns describe the lot, the rest the entry.
var LotColumns = []string{
	"date", "party", "lotNumber", "quality", "shade", "process", "status",
	"challanNumber", "kg", "meter", "roll",
}

const LotGroupWidth = 7

// ReportRow is one entry of one lot with the lot's attributes repeated
type ReportRow struct {
	GroupIndex    int              `json:"group_index"`
	Group         string           `json:"group"`
	LotID         string           `json:"lot_id"`
	Date          string           `json:"date"`
	Party         string           `json:"party"`
	LotNumber     string           `json:"lot_number"`
	Quality       string           `json:"quality"`
	Shade         string           `json:"shade"`
	Process       string           `json:"process"`
	Status        string           `json:"status"`
	ChallanNumber string           `json:"challan_number"`
	Kg            *decimal.Decimal `json:"kg"`
	Meter         *decimal.Decimal `json:"meter"`
	Roll          *int             `json:"roll"`
}

func (r ReportRow) GroupOrdinal() int  { return r.GroupIndex }
func (r ReportRow) GroupLabel() string { return r.Group }

// Values returns the cells in LotColumns order
func (r ReportRow) Values() []string {
	return []string{
		cell(r.Date), cell(r.Party), cell(r.LotNumber), cell(r.Quality), cell(r.Shade),
		cell(r.Process), cell(r.Status), cell(r.ChallanNumber),
		decimalCell(r.Kg), decimalCell(r.Meter), intCell(r.Roll),
	}
}

// FlattenLots emits one row per (lot, entry) in group order then entry order.
// The date column is the time each lot entered dateStage, falling back to its
// creation time.
func FlattenLots[K Key](groups []Group[K, *models.Lot], dateStage models.Stage) []ReportRow {
	var rows []ReportRow
	for gi, g := range groups {
		label := g.Key.String()
		for _, l := range g.Items {
			date := lotDate(l, dateStage)
			for _, e := range l.Entries {
				rows = append(rows, ReportRow{
					GroupIndex:    gi,
					Group:         label,
					LotID:         l.ID.String(),
					Date:          date,
					Party:         l.PartyName,
					LotNumber:     l.LotNumber,
					Quality:       l.Quality,
					Shade:         l.Shade,
					Process:       l.ProcessType,
					Status:        string(l.Status),
					ChallanNumber: e.ChallanNumber,
					Kg:            e.Kg,
					Meter:         e.Meter,
					Roll:          e.Roll,
				})
			}
		}
	}
	return rows
}

func lotDate(l *models.Lot, stage models.Stage) string {
	if t := l.StageTime(stage); t != nil {
		return timeutil.FormatReport(*t)
	}
	return timeutil.FormatReport(l.CreatedAt)
}

// DispatchColumns names the DispatchRow.Values cells in order
var DispatchColumns = []string{
	"Dispatch_Date", "lotNumber", "party", "quality", "shade", "process", "status",
	"ChallanNumber", "karigar", "kg", "meter", "roll",
}

const DispatchGroupWidth = 7

// DispatchRow is the flat form of a dispatch record
type DispatchRow struct {
	GroupIndex    int              `json:"group_index"`
	Group         string           `json:"group"`
	DispatchID    string           `json:"dispatch_id"`
	DispatchDate  string           `json:"dispatch_date"`
	LotNumber     string           `json:"lot_number"`
	Party         string           `json:"party"`
	Quality       string           `json:"quality"`
	Shade         string           `json:"shade"`
	Process       string           `json:"process"`
	Status        string           `json:"status"`
	ChallanNumber string           `json:"challan_number"`
	Karigar       string           `json:"karigar"`
	Kg            *decimal.Decimal `json:"kg"`
	Meter         *decimal.Decimal `json:"meter"`
	Roll          *int             `json:"roll"`
}

func (r DispatchRow) GroupOrdinal() int  { return r.GroupIndex }
func (r DispatchRow) GroupLabel() string { return r.Group }

// Values returns the cells in DispatchColumns order
func (r DispatchRow) Values() []string {
	return []string{
		cell(r.DispatchDate), cell(r.LotNumber), cell(r.Party), cell(r.Quality), cell(r.Shade),
		cell(r.Process), cell(r.Status), cell(r.ChallanNumber), cell(r.Karigar),
		decimalCell(r.Kg), decimalCell(r.Meter), intCell(r.Roll),
	}
}

// FlattenDispatches emits one row per record in group order
func FlattenDispatches[K Key](groups []Group[K, *models.Dispatch]) []DispatchRow {
	var rows []DispatchRow
	for gi, g := range groups {
		label := g.Key.String()
		for _, d := range g.Items {
			rows = append(rows, DispatchRow{
				GroupIndex:    gi,
				Group:         label,
				DispatchID:    d.ID.String(),
				DispatchDate:  formatDate(d.DispatchDate),
				LotNumber:     d.LotNumber,
				Party:         d.Party,
				Quality:       d.Quality,
				Shade:         d.Shade,
				Process:       d.Process,
				Status:        d.Status,
				ChallanNumber: d.QualityChallanNumber,
				Karigar:       d.KarigarName,
				Kg:            d.Kg,
				Meter:         d.Meter,
				Roll:          d.Roll,
			})
		}
	}
	return rows
}

func formatDate(t time.Time) string {
	return timeutil.FormatReport(t)
}

func cell(s string) string {
	if s == "" {
		return missing
	}
	return s
}

func decimalCell(d *decimal.Decimal) string {
	if d == nil {
		return missing
	}
	return d.String()
}

func intCell(n *int) string {
	if n == nil {
		return missing
	}
	return strconv.Itoa(*n)
}
