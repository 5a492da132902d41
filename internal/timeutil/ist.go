package timeutil

import (
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30)
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback: create fixed zone if Asia/Kolkata not available
		IST = time.FixedZone("IST", 5*60*60+30*60) // UTC+5:30
	}
}

// ReportLayout is how timestamps appear in report rows
const ReportLayout = "Jan 2, 2006, 3:04 PM"

// FormatReport renders t in IST as "Jan 5, 2024, 3:04 PM". Zero time renders empty.
func FormatReport(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(IST).Format(ReportLayout)
}
