package aggregate_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"textile-backend/internal/aggregate"
	"textile-backend/internal/models"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intp(n int) *int { return &n }

func lot(party, number, shade, process string, status models.Stage, quality string, challans ...string) *models.Lot {
	l := &models.Lot{
		ID:          uuid.New(),
		PartyName:   party,
		LotNumber:   number,
		Shade:       shade,
		ProcessType: process,
		Status:      status,
		Quality:     quality,
		CreatedAt:   time.Date(2024, 1, 5, 9, 34, 0, 0, time.UTC),
	}
	for i, c := range challans {
		l.Entries = append(l.Entries, &models.Entry{ID: uuid.New(), LotID: l.ID, Position: i, ChallanNumber: c, Kg: dec("10.5")})
	}
	return l
}

func sample() []*models.Lot {
	return []*models.Lot{
		lot("Acme", "L1", "Red", "Dye", models.StageHeat, "Q1", "C1", "C2"),
		lot("Bolt", "L2", "Blue", "Dye", models.StageHeat, "Q2", "C3"),
		lot("Acme", "L1", "Red", "Dye", models.StageHeat, "Q1", "C4"),
		lot("Acme", "L3", "Red", "Print", models.StageFinish, "Q1"),
	}
}

func TestHeatScenario(t *testing.T) {
	l := lot("Acme", "L1", "Red", "Dye", models.StageHeat, "Q1", "C1", "C2")
	groups := aggregate.GroupBy([]*models.Lot{l}, aggregate.HeatKeyOf)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if got := groups[0].Key.String(); got != "Acme-L1-Red-Dye-heat-Q1" {
		t.Fatalf("unexpected key %q", got)
	}
	rows := aggregate.FlattenLots(groups, models.StageHeat)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for i, r := range rows {
		if r.Party != "Acme" || r.LotNumber != "L1" || r.Quality != "Q1" || r.Status != "heat" {
			t.Fatalf("row %d lost lot attributes: %+v", i, r)
		}
		if r.Date != "Jan 5, 2024, 3:04 PM" {
			t.Fatalf("row %d date %q", i, r.Date)
		}
	}
	if rows[0].ChallanNumber != "C1" || rows[1].ChallanNumber != "C2" {
		t.Fatalf("entry order not preserved")
	}
}

func TestGroupByPartition(t *testing.T) {
	lots := sample()
	groups := aggregate.GroupBy(lots, aggregate.HeatKeyOf)

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	seen := make(map[*models.Lot]int)
	for _, g := range groups {
		for _, l := range g.Items {
			seen[l]++
			if aggregate.HeatKeyOf(l) != g.Key {
				t.Fatalf("lot %s filed under wrong key %v", l.LotNumber, g.Key)
			}
		}
	}
	for _, l := range lots {
		if seen[l] != 1 {
			t.Fatalf("lot %s appears %d times", l.LotNumber, seen[l])
		}
	}

	// first-seen order and stable members
	if groups[0].Key.LotNumber != "L1" || groups[1].Key.LotNumber != "L2" || groups[2].Key.LotNumber != "L3" {
		t.Fatalf("unexpected group order %v", groups)
	}
	if groups[0].Items[0] != lots[0] || groups[0].Items[1] != lots[2] {
		t.Fatal("member order not stable")
	}
}

func TestKeysCompareOnFields(t *testing.T) {
	// these render the same string but are different keys
	a := aggregate.ProcessKey{Party: "A-B", QualityChallanNumber: "C"}
	b := aggregate.ProcessKey{Party: "A", QualityChallanNumber: "B-C"}
	if a.String() != b.String() {
		t.Fatalf("expected identical labels")
	}
	groups := aggregate.GroupBy([]aggregate.ProcessKey{a, b}, func(k aggregate.ProcessKey) aggregate.ProcessKey { return k })
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
}

func TestLotTableSeparatesCollidingLabels(t *testing.T) {
	a := lot("A-B", "L1", "Red", "Dye", models.StageHeat, "Q1", "C1")
	a.QualityChallanNumber = "C"
	b := lot("A", "L2", "Blue", "Dye", models.StageHeat, "Q2", "C2")
	b.QualityChallanNumber = "B-C"

	groups := aggregate.GroupBy([]*models.Lot{a, b}, aggregate.ProcessKeyOf)
	if len(groups) != 2 || groups[0].Key.String() != groups[1].Key.String() {
		t.Fatalf("expected 2 groups sharing a label, got %d", len(groups))
	}

	table := aggregate.LotTable(aggregate.FlattenLots(groups, models.StageProcess))
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	for i, party := range []string{"A-B", "A"} {
		r := table.Rows[i]
		if !r.Lead || r.Span != 1 {
			t.Fatalf("row %d should lead its own group: %+v", i, r)
		}
		if r.Cells[1] != party {
			t.Fatalf("row %d rendered under party %q, want %q", i, r.Cells[1], party)
		}
	}

	ds := []*models.Dispatch{
		{ID: uuid.New(), Party: "A-B", LotNumber: "C"},
		{ID: uuid.New(), Party: "A", LotNumber: "B-C"},
	}
	dt := aggregate.DispatchTable(aggregate.FlattenDispatches(aggregate.GroupBy(ds, aggregate.DispatchKeyOf)))
	if !dt.Rows[0].Lead || !dt.Rows[1].Lead {
		t.Fatalf("dispatch groups merged: %+v", dt.Rows)
	}
}

func TestFlattenRowCount(t *testing.T) {
	lots := sample()
	want := 0
	for _, l := range lots {
		want += len(l.Entries)
	}
	for name, rows := range map[string]int{
		"heat":    len(aggregate.FlattenLots(aggregate.GroupBy(lots, aggregate.HeatKeyOf), models.StageHeat)),
		"process": len(aggregate.FlattenLots(aggregate.GroupBy(lots, aggregate.ProcessKeyOf), models.StageProcess)),
		"grey":    len(aggregate.FlattenLots(aggregate.GroupBy(lots, aggregate.GreyKeyOf), models.StageGrey)),
	} {
		if rows != want {
			t.Errorf("%s: expected %d rows, got %d", name, want, rows)
		}
	}
}

func TestIdempotent(t *testing.T) {
	lots := sample()
	run := func() []aggregate.ReportRow {
		return aggregate.FlattenLots(aggregate.GroupBy(lots, aggregate.HeatKeyOf), models.StageHeat)
	}
	if !reflect.DeepEqual(run(), run()) {
		t.Fatal("flatten is not deterministic")
	}
}

func TestMatchLot(t *testing.T) {
	l := lot("Acme Textiles", "LOT-77", "Red", "Dye", models.StageGrey, "Q1", "CH-900")
	l.QualityChallanNumber = "QC-12"
	cases := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"  ", true},
		{"acme", true},
		{"TEXTILES", true},
		{"lot-77", true},
		{"qc-1", true},
		{"ch-9", true},
		{"red", false},
		{"zzz", false},
	}
	for _, tc := range cases {
		if got := aggregate.MatchLot(l, tc.query); got != tc.want {
			t.Errorf("MatchLot(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}

	filtered := aggregate.Filter(sample(), "bolt", aggregate.MatchLot)
	if len(filtered) != 1 || filtered[0].PartyName != "Bolt" {
		t.Fatalf("unexpected filter result %v", filtered)
	}
}

func TestMatchDispatch(t *testing.T) {
	d := &models.Dispatch{Party: "Acme", LotNumber: "L9", QualityChallanNumber: "QC-3", KarigarName: "Ravi"}
	for q, want := range map[string]bool{"ACME": true, "l9": true, "qc-3": true, "ravi": false, "": true} {
		if got := aggregate.MatchDispatch(d, q); got != want {
			t.Errorf("MatchDispatch(%q) = %v, want %v", q, got, want)
		}
	}
}

func TestLotTableSpans(t *testing.T) {
	lots := sample()
	rows := aggregate.FlattenLots(aggregate.GroupBy(lots, aggregate.HeatKeyOf), models.StageHeat)
	table := aggregate.LotTable(rows)

	if len(table.Rows) != len(rows) {
		t.Fatalf("expected %d table rows, got %d", len(rows), len(table.Rows))
	}
	if len(table.GroupColumns) != aggregate.LotGroupWidth {
		t.Fatalf("unexpected group columns %v", table.GroupColumns)
	}

	// L1 group: 3 entries across two lots, L2 group: 1 entry
	lead := table.Rows[0]
	if !lead.Lead || lead.Span != 3 || len(lead.Cells) != len(aggregate.LotColumns) {
		t.Fatalf("bad lead row %+v", lead)
	}
	for _, r := range table.Rows[1:3] {
		if r.Lead || r.Span != 0 || len(r.Cells) != len(table.DetailColumns) {
			t.Fatalf("bad detail row %+v", r)
		}
	}
	if !table.Rows[3].Lead || table.Rows[3].Span != 1 {
		t.Fatalf("second group lead row wrong %+v", table.Rows[3])
	}

	spans := 0
	for _, r := range table.Rows {
		spans += r.Span
	}
	if spans != len(rows) {
		t.Fatalf("spans cover %d rows, want %d", spans, len(rows))
	}
}

func TestDispatchRows(t *testing.T) {
	date := time.Date(2024, 2, 1, 6, 30, 0, 0, time.UTC)
	ds := []*models.Dispatch{
		{ID: uuid.New(), Party: "Acme", LotNumber: "L1", KarigarName: "Ravi", Kg: dec("5"), Roll: intp(3), DispatchDate: date},
		{ID: uuid.New(), Party: "Bolt", LotNumber: "L2", DispatchDate: date},
		{ID: uuid.New(), Party: "Acme", LotNumber: "L1", DispatchDate: date},
	}
	groups := aggregate.GroupBy(ds, aggregate.DispatchKeyOf)
	rows := aggregate.FlattenDispatches(groups)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Group != "Acme-L1" || rows[1].Group != "Acme-L1" || rows[2].Group != "Bolt-L2" {
		t.Fatalf("unexpected grouping %v", rows)
	}

	values := rows[0].Values()
	want := []string{"Feb 1, 2024, 12:00 PM", "L1", "Acme", "N/A", "N/A", "N/A", "N/A", "N/A", "Ravi", "5", "N/A", "3"}
	if !reflect.DeepEqual(values, want) {
		t.Fatalf("values\n got %v\nwant %v", values, want)
	}

	table := aggregate.DispatchTable(rows)
	if table.Rows[0].Span != 2 || !table.Rows[2].Lead {
		t.Fatalf("unexpected dispatch layout %+v", table.Rows)
	}
}
