package aggregate

// Row is a flattened report row that can be laid out as a grouped table.
// GroupOrdinal identifies the group; labels of distinct keys may collide.
type Row interface {
	GroupOrdinal() int
	GroupLabel() string
	Values() []string
}

// Table is the display form of a grouped report. Lead rows carry the group
// cells followed by the detail cells and span every row of their group;
// the other rows carry detail cells only.
type Table struct {
	GroupColumns  []string   `json:"group_columns"`
	DetailColumns []string   `json:"detail_columns"`
	Rows          []TableRow `json:"rows"`
}

type TableRow struct {
	Group string   `json:"group"`
	Lead  bool     `json:"lead"`
	Span  int      `json:"span,omitempty"`
	Cells []string `json:"cells"`
}

// Layout applies the repetition rule to rows. Rows of one group must be
// contiguous, which FlattenLots and FlattenDispatches guarantee.
func Layout[R Row](columns []string, groupWidth int, rows []R) Table {
	t := Table{
		GroupColumns:  columns[:groupWidth],
		DetailColumns: columns[groupWidth:],
		Rows:          make([]TableRow, 0, len(rows)),
	}

	lead := -1
	for i, r := range rows {
		label := r.GroupLabel()
		values := r.Values()
		if i == 0 || r.GroupOrdinal() != rows[i-1].GroupOrdinal() {
			lead = len(t.Rows)
			t.Rows = append(t.Rows, TableRow{Group: label, Lead: true, Span: 1, Cells: values})
			continue
		}
		t.Rows[lead].Span++
		t.Rows = append(t.Rows, TableRow{Group: label, Cells: values[groupWidth:]})
	}
	return t
}

// LotTable lays out flattened lot rows
func LotTable(rows []ReportRow) Table {
	return Layout(LotColumns, LotGroupWidth, rows)
}

// DispatchTable lays out flattened dispatch rows
func DispatchTable(rows []DispatchRow) Table {
	return Layout(DispatchColumns, DispatchGroupWidth, rows)
}
