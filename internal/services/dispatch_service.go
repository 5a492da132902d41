package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"textile-backend/internal/aggregate"
	"textile-backend/internal/cache"
	"textile-backend/internal/metrics"
	"textile-backend/internal/models"
	"textile-backend/internal/repositories"
)

type DispatchService struct {
	Store repositories.DispatchStore
	Lots  repositories.LotStore

	now func() time.Time
}

func NewDispatchService(store repositories.DispatchStore, lots repositories.LotStore) *DispatchService {
	return &DispatchService{Store: store, Lots: lots, now: clock}
}

// DispatchGroup is one party+lot bucket of the ledger. Matched reports
// whether a lot with the same party and lot number exists.
type DispatchGroup struct {
	Key     aggregate.DispatchKey `json:"key"`
	Label   string                `json:"label"`
	Matched bool                  `json:"matched"`
	Records []*models.Dispatch    `json:"records"`
}

func (s *DispatchService) Create(ctx context.Context, req *models.DispatchRequest) (*models.Dispatch, error) {
	now := s.now()
	d := &models.Dispatch{ID: uuid.New(), DispatchDate: now, CreatedAt: now, ModifiedAt: now}
	req.Apply(d)
	if err := validateDispatch(d); err != nil {
		return nil, err
	}

	if err := s.Store.CreateDispatch(ctx, d); err != nil {
		return nil, err
	}
	metrics.DispatchRecordsTotal.WithLabelValues("create").Inc()
	cache.InvalidateReportCaches(ctx)
	return d, nil
}

func (s *DispatchService) Get(ctx context.Context, id uuid.UUID) (*models.Dispatch, error) {
	return s.Store.GetDispatch(ctx, id)
}

func (s *DispatchService) List(ctx context.Context, query string) ([]*models.Dispatch, error) {
	out, err := s.Store.ListDispatches(ctx, query)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*models.Dispatch{}
	}
	return out, nil
}

func (s *DispatchService) Update(ctx context.Context, id uuid.UUID, req *models.DispatchRequest) (*models.Dispatch, error) {
	d, err := s.Store.GetDispatch(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(d)
	if err := validateDispatch(d); err != nil {
		return nil, err
	}
	d.ModifiedAt = s.now()

	if err := s.Store.UpdateDispatch(ctx, d); err != nil {
		return nil, err
	}
	metrics.DispatchRecordsTotal.WithLabelValues("update").Inc()
	cache.InvalidateReportCaches(ctx)
	return d, nil
}

func (s *DispatchService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Store.DeleteDispatch(ctx, id); err != nil {
		return err
	}
	metrics.DispatchRecordsTotal.WithLabelValues("delete").Inc()
	cache.InvalidateReportCaches(ctx)
	return nil
}

// Reconcile groups the ledger by party+lot and flags groups with no
// matching lot. Nothing is rejected; stray groups are only reported.
func (s *DispatchService) Reconcile(ctx context.Context, query string) ([]DispatchGroup, error) {
	records, err := s.Store.ListDispatches(ctx, query)
	if err != nil {
		return nil, err
	}
	lots, err := s.Lots.ListLots(ctx, models.LotFilter{})
	if err != nil {
		return nil, err
	}

	known := make(map[aggregate.DispatchKey]bool, len(lots))
	for _, l := range lots {
		known[aggregate.DispatchKey{Party: l.PartyName, LotNumber: l.LotNumber}] = true
	}

	groups := aggregate.GroupBy(records, aggregate.DispatchKeyOf)
	out := make([]DispatchGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, DispatchGroup{
			Key:     g.Key,
			Label:   g.Key.String(),
			Matched: known[g.Key],
			Records: g.Items,
		})
	}
	return out, nil
}

func validateDispatch(d *models.Dispatch) error {
	d.Party = strings.TrimSpace(d.Party)
	d.LotNumber = strings.TrimSpace(d.LotNumber)
	switch {
	case d.Party == "":
		return &models.ValidationError{Field: "party", Message: "is required"}
	case d.LotNumber == "":
		return &models.ValidationError{Field: "lot_number", Message: "is required"}
	}
	return firstError(
		models.CheckLength("party", d.Party, models.MaxNameLength),
		models.CheckLength("lot_number", d.LotNumber, models.MaxCodeLength),
		models.CheckLength("quality", d.Quality, models.MaxNameLength),
		models.CheckLength("shade", d.Shade, models.MaxNameLength),
		models.CheckLength("process", d.Process, models.MaxNameLength),
		models.CheckLength("status", d.Status, models.MaxCodeLength),
		models.CheckLength("quality_challan_number", d.QualityChallanNumber, models.MaxCodeLength),
		models.CheckLength("karigar_name", d.KarigarName, models.MaxNameLength),
		models.CheckMeasure("kg", d.Kg),
		models.CheckMeasure("meter", d.Meter),
		models.CheckRoll("roll", d.Roll),
	)
}
