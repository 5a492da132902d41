package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"textile-backend/internal/aggregate"
	"textile-backend/internal/cache"
	"textile-backend/internal/models"
	"textile-backend/internal/repositories"
)

// Report views
const (
	ViewGrey     = "grey"
	ViewProcess  = "process"
	ViewHeat     = "heat"
	ViewDispatch = "dispatch"
)

var ReportViews = []string{ViewGrey, ViewProcess, ViewHeat, ViewDispatch}

// Report is a grouped, flattened projection of lots or dispatch records
type Report struct {
	View    string          `json:"view"`
	Query   string          `json:"query,omitempty"`
	Total   int             `json:"total"`
	Groups  []ReportGroup   `json:"groups"`
	Columns []string        `json:"columns"`
	Rows    [][]string      `json:"rows"`
	Table   aggregate.Table `json:"table"`
}

type ReportGroup struct {
	Key        any                `json:"key"`
	Label      string             `json:"label"`
	Lots       []*models.Lot      `json:"lots,omitempty"`
	Dispatches []*models.Dispatch `json:"dispatches,omitempty"`
}

// ReportService builds the stage and dispatch views. It only reads.
type ReportService struct {
	Lots       repositories.LotStore
	Dispatches repositories.DispatchStore
	CacheTTL   time.Duration
}

func NewReportService(lots repositories.LotStore, dispatches repositories.DispatchStore, ttl time.Duration) *ReportService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReportService{Lots: lots, Dispatches: dispatches, CacheTTL: ttl}
}

// LotReport returns the named view narrowed by query. Results are served
// from Redis when present.
func (s *ReportService) LotReport(ctx context.Context, view, query string) (*Report, error) {
	key := cache.ReportKey(view, query)
	if data, ok := cache.GetCached(ctx, key); ok {
		var r Report
		if err := json.Unmarshal(data, &r); err == nil {
			return &r, nil
		}
	}

	r, err := s.build(ctx, view, query)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(r); err == nil {
		cache.SetCached(ctx, key, data, s.CacheTTL)
	} else {
		log.Printf("[Reports] Failed to encode %s report: %v", view, err)
	}
	return r, nil
}

// RegisterPreWarm registers every unfiltered view for startup pre-warming
func (s *ReportService) RegisterPreWarm() {
	for _, view := range ReportViews {
		view := view
		cache.RegisterPreWarm(cache.ReportKey(view, ""), func(ctx context.Context) ([]byte, error) {
			r, err := s.build(ctx, view, "")
			if err != nil {
				return nil, err
			}
			return json.Marshal(r)
		})
	}
}

func (s *ReportService) build(ctx context.Context, view, query string) (*Report, error) {
	switch view {
	case ViewGrey:
		lots, err := s.Lots.ListLots(ctx, models.LotFilter{Status: models.StageGrey, Query: query})
		if err != nil {
			return nil, err
		}
		return lotReport(view, query, lots, aggregate.GreyKeyOf, models.StageGrey), nil

	case ViewProcess:
		lots, err := s.Lots.ListLots(ctx, models.LotFilter{CompletedStage: models.StageProcess, Query: query})
		if err != nil {
			return nil, err
		}
		return lotReport(view, query, lots, aggregate.ProcessKeyOf, models.StageProcess), nil

	case ViewHeat:
		lots, err := s.Lots.ListLots(ctx, models.LotFilter{CompletedStage: models.StageHeat, Query: query})
		if err != nil {
			return nil, err
		}
		return lotReport(view, query, lots, aggregate.HeatKeyOf, models.StageHeat), nil

	case ViewDispatch:
		records, err := s.Dispatches.ListDispatches(ctx, query)
		if err != nil {
			return nil, err
		}
		return dispatchReport(query, records), nil
	}
	return nil, &models.NotFoundError{Resource: "report view", ID: view}
}

func lotReport[K aggregate.Key](view, query string, lots []*models.Lot, key func(*models.Lot) K, dateStage models.Stage) *Report {
	groups := aggregate.GroupBy(lots, key)
	rows := aggregate.FlattenLots(groups, dateStage)

	r := &Report{
		View:    view,
		Query:   query,
		Total:   len(lots),
		Groups:  make([]ReportGroup, 0, len(groups)),
		Columns: aggregate.LotColumns,
		Rows:    make([][]string, 0, len(rows)),
		Table:   aggregate.LotTable(rows),
	}
	for _, g := range groups {
		r.Groups = append(r.Groups, ReportGroup{Key: g.Key, Label: g.Key.String(), Lots: g.Items})
	}
	for _, row := range rows {
		r.Rows = append(r.Rows, row.Values())
	}
	return r
}

func dispatchReport(query string, records []*models.Dispatch) *Report {
	groups := aggregate.GroupBy(records, aggregate.DispatchKeyOf)
	rows := aggregate.FlattenDispatches(groups)

	r := &Report{
		View:    ViewDispatch,
		Query:   query,
		Total:   len(records),
		Groups:  make([]ReportGroup, 0, len(groups)),
		Columns: aggregate.DispatchColumns,
		Rows:    make([][]string, 0, len(rows)),
		Table:   aggregate.DispatchTable(rows),
	}
	for _, g := range groups {
		r.Groups = append(r.Groups, ReportGroup{Key: g.Key, Label: g.Key.String(), Dispatches: g.Items})
	}
	for _, row := range rows {
		r.Rows = append(r.Rows, row.Values())
	}
	return r
}
