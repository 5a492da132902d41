package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"textile-backend/internal/cache"
	"textile-backend/internal/metrics"
	"textile-backend/internal/models"
	"textile-backend/internal/repositories"
	"textile-backend/internal/workflow"
)

// EventPublisher receives lot change notifications
type EventPublisher interface {
	Publish(event models.LotEvent)
}

type LotService struct {
	Store  repositories.LotStore
	Events EventPublisher

	// now is swapped in tests
	now func() time.Time
}

func NewLotService(store repositories.LotStore, events EventPublisher) *LotService {
	return &LotService{Store: store, Events: events, now: clock}
}

// clock returns UTC at the precision Postgres keeps
func clock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (s *LotService) CreateLot(ctx context.Context, req *models.CreateLotRequest) (*models.Lot, error) {
	now := s.now()
	lot := &models.Lot{
		ID:                   uuid.New(),
		LotNumber:            strings.TrimSpace(req.LotNumber),
		PartyName:            strings.TrimSpace(req.PartyName),
		Quality:              strings.TrimSpace(req.Quality),
		Shade:                strings.TrimSpace(req.Shade),
		ProcessType:          strings.TrimSpace(req.ProcessType),
		QualityChallanNumber: strings.TrimSpace(req.QualityChallanNumber),
		Status:               models.StageGrey,
		Entries:              []*models.Entry{},
		CreatedAt:            now,
		ModifiedAt:           now,
	}
	if err := validateLot(lot); err != nil {
		return nil, err
	}

	if err := s.Store.CreateLot(ctx, lot); err != nil {
		return nil, err
	}
	log.Printf("[Lots] Created lot %s (%s) for %s", lot.LotNumber, lot.ID, lot.PartyName)

	cache.InvalidateReportCaches(ctx)
	s.publish(models.LotEvent{Type: models.EventLotCreated, LotID: lot.ID, LotNumber: lot.LotNumber, To: lot.Status, At: now})
	return lot, nil
}

func (s *LotService) GetLot(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	return s.Store.GetLot(ctx, id)
}

func (s *LotService) ListLots(ctx context.Context, filter models.LotFilter) ([]*models.Lot, error) {
	lots, err := s.Store.ListLots(ctx, filter)
	if err != nil {
		return nil, err
	}
	if lots == nil {
		lots = []*models.Lot{}
	}
	return lots, nil
}

// UpdateLot edits descriptive fields. Status only moves through Advance.
func (s *LotService) UpdateLot(ctx context.Context, id uuid.UUID, req *models.UpdateLotRequest) (*models.Lot, error) {
	lot, err := s.Store.UpdateLot(ctx, id, func(lot *models.Lot) error {
		req.Apply(lot)
		trimLot(lot)
		if err := validateLot(lot); err != nil {
			return err
		}
		lot.ModifiedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateReportCaches(ctx)
	return lot, nil
}

// DeleteLot removes a lot together with all of its entries
func (s *LotService) DeleteLot(ctx context.Context, id uuid.UUID) error {
	if err := s.Store.DeleteLot(ctx, id); err != nil {
		return err
	}
	log.Printf("[Lots] Deleted lot %s", id)

	cache.InvalidateReportCaches(ctx)
	s.publish(models.LotEvent{Type: models.EventLotDeleted, LotID: id, At: s.now()})
	return nil
}

// AppendEntry adds an entry at the end of the lot. Finished lots reject it.
func (s *LotService) AppendEntry(ctx context.Context, lotID uuid.UUID, req *models.AppendEntryRequest) (*models.Entry, error) {
	entry := &models.Entry{
		ID:            uuid.New(),
		ChallanNumber: strings.TrimSpace(req.ChallanNumber),
		Kg:            req.Kg,
		Meter:         req.Meter,
		Roll:          req.Roll,
	}
	if err := validateEntry(entry); err != nil {
		return nil, err
	}

	lot, e, err := s.Store.AppendEntry(ctx, lotID, func(lot *models.Lot) (*models.Entry, error) {
		if err := workflow.CheckAppend(lot); err != nil {
			return nil, err
		}
		now := s.now()
		entry.CreatedAt, entry.UpdatedAt = now, now
		lot.ModifiedAt = now
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	metrics.LotEntriesAppendedTotal.Inc()

	cache.InvalidateReportCaches(ctx)
	s.publish(models.LotEvent{Type: models.EventEntryAppended, LotID: lot.ID, LotNumber: lot.LotNumber, At: e.CreatedAt})
	return e, nil
}

// UpdateEntry edits an entry found by its own id
func (s *LotService) UpdateEntry(ctx context.Context, entryID uuid.UUID, req *models.UpdateEntryRequest) (*models.Entry, error) {
	_, e, err := s.Store.UpdateEntry(ctx, entryID, func(lot *models.Lot, e *models.Entry) error {
		if err := req.Apply(e); err != nil {
			return err
		}
		e.ChallanNumber = strings.TrimSpace(e.ChallanNumber)
		if err := validateEntry(e); err != nil {
			return err
		}
		now := s.now()
		e.UpdatedAt = now
		lot.ModifiedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateReportCaches(ctx)
	return e, nil
}

// DeleteEntry removes an entry. A lot that has left grey keeps at least one.
func (s *LotService) DeleteEntry(ctx context.Context, entryID uuid.UUID) error {
	_, err := s.Store.DeleteEntry(ctx, entryID, func(lot *models.Lot, _ *models.Entry) error {
		if err := workflow.CheckRemoveEntry(lot); err != nil {
			return err
		}
		lot.ModifiedAt = s.now()
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidateReportCaches(ctx)
	return nil
}

// Advance moves the lot to target, which must be the next stage
func (s *LotService) Advance(ctx context.Context, lotID uuid.UUID, target models.Stage) (*models.Lot, error) {
	return s.transition(ctx, lotID, func(lot *models.Lot, now time.Time) (workflow.Transition, error) {
		return workflow.Advance(lot, target, now)
	})
}

// Complete moves the lot to the stage after its current one
func (s *LotService) Complete(ctx context.Context, lotID uuid.UUID) (*models.Lot, error) {
	return s.transition(ctx, lotID, workflow.Complete)
}

// SetStatus handles the {lotId, status} form: "complete" completes the
// current stage, a stage name advances to it
func (s *LotService) SetStatus(ctx context.Context, req *models.StatusRequest) (*models.Lot, error) {
	id, err := uuid.Parse(strings.TrimSpace(req.LotID))
	if err != nil {
		return nil, &models.ValidationError{Field: "lotId", Message: "must be a valid id"}
	}
	if strings.EqualFold(strings.TrimSpace(req.Status), models.StatusComplete) {
		return s.Complete(ctx, id)
	}
	target, ok := models.ParseStage(req.Status)
	if !ok {
		return nil, &models.ValidationError{Field: "status", Message: "must be complete or one of grey, process, heat, finish"}
	}
	return s.Advance(ctx, id, target)
}

func (s *LotService) transition(ctx context.Context, lotID uuid.UUID, apply func(*models.Lot, time.Time) (workflow.Transition, error)) (*models.Lot, error) {
	var tr workflow.Transition
	lot, err := s.Store.UpdateLot(ctx, lotID, func(lot *models.Lot) error {
		var err error
		tr, err = apply(lot, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.LotTransitionsTotal.WithLabelValues(string(tr.From), string(tr.To)).Inc()
	log.Printf("[Lots] Lot %s moved %s -> %s", lot.LotNumber, tr.From, tr.To)

	cache.InvalidateReportCaches(ctx)
	s.publish(models.LotEvent{
		Type:      models.EventLotTransition,
		LotID:     lot.ID,
		LotNumber: lot.LotNumber,
		From:      tr.From,
		To:        tr.To,
		At:        tr.At,
	})
	return lot, nil
}

func (s *LotService) publish(ev models.LotEvent) {
	if s.Events != nil {
		s.Events.Publish(ev)
	}
}

func trimLot(lot *models.Lot) {
	lot.LotNumber = strings.TrimSpace(lot.LotNumber)
	lot.PartyName = strings.TrimSpace(lot.PartyName)
	lot.Quality = strings.TrimSpace(lot.Quality)
	lot.Shade = strings.TrimSpace(lot.Shade)
	lot.ProcessType = strings.TrimSpace(lot.ProcessType)
	lot.QualityChallanNumber = strings.TrimSpace(lot.QualityChallanNumber)
}

func validateLot(lot *models.Lot) error {
	switch {
	case lot.LotNumber == "":
		return &models.ValidationError{Field: "lot_number", Message: "is required"}
	case lot.PartyName == "":
		return &models.ValidationError{Field: "party_name", Message: "is required"}
	case lot.Quality == "":
		return &models.ValidationError{Field: "quality", Message: "is required"}
	}
	return firstError(
		models.CheckLength("lot_number", lot.LotNumber, models.MaxCodeLength),
		models.CheckLength("party_name", lot.PartyName, models.MaxNameLength),
		models.CheckLength("quality", lot.Quality, models.MaxNameLength),
		models.CheckLength("shade", lot.Shade, models.MaxNameLength),
		models.CheckLength("process_type", lot.ProcessType, models.MaxNameLength),
		models.CheckLength("quality_challan_number", lot.QualityChallanNumber, models.MaxCodeLength),
	)
}

func validateEntry(e *models.Entry) error {
	if e.ChallanNumber == "" {
		return &models.ValidationError{Field: "challan_number", Message: "is required"}
	}
	if !e.HasMeasurement() {
		return &models.ValidationError{Field: "kg", Message: "one of kg, meter or roll is required"}
	}
	return firstError(
		models.CheckLength("challan_number", e.ChallanNumber, models.MaxCodeLength),
		models.CheckMeasure("kg", e.Kg),
		models.CheckMeasure("meter", e.Meter),
		models.CheckRoll("roll", e.Roll),
	)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
