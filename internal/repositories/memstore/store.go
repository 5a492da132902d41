// Package memstore is an in-memory implementation of the lot and dispatch
// stores. It mirrors the Postgres repositories closely enough to back
// service and handler tests.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"textile-backend/internal/aggregate"
	"textile-backend/internal/models"
	"textile-backend/internal/repositories"
	"textile-backend/internal/workflow"
)

// Store holds lots and dispatch records in process memory
type Store struct {
	mu         sync.Mutex
	lots       map[uuid.UUID]*models.Lot
	entryLot   map[uuid.UUID]uuid.UUID
	dispatches map[uuid.UUID]*models.Dispatch
}

var (
	_ repositories.LotStore      = (*Store)(nil)
	_ repositories.DispatchStore = (*Store)(nil)
)

func New() *Store {
	return &Store{
		lots:       make(map[uuid.UUID]*models.Lot),
		entryLot:   make(map[uuid.UUID]uuid.UUID),
		dispatches: make(map[uuid.UUID]*models.Dispatch),
	}
}

func (s *Store) CreateLot(_ context.Context, lot *models.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identityTaken(lot) {
		return models.DuplicateLotError(lot)
	}
	c := cloneLot(lot)
	for _, e := range c.Entries {
		s.entryLot[e.ID] = c.ID
	}
	s.lots[c.ID] = c
	return nil
}

func (s *Store) GetLot(_ context.Context, id uuid.UUID) (*models.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "lot", ID: id.String()}
	}
	return cloneLot(lot), nil
}

func (s *Store) ListLots(_ context.Context, f models.LotFilter) ([]*models.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Lot
	for _, lot := range s.lots {
		if workflow.Matches(lot, f) && aggregate.MatchLot(lot, f.Query) {
			out = append(out, cloneLot(lot))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ModifiedAt.Equal(out[j].ModifiedAt) {
			return out[i].ModifiedAt.After(out[j].ModifiedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateLot(_ context.Context, id uuid.UUID, fn func(lot *models.Lot) error) (*models.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, err := s.working(id)
	if err != nil {
		return nil, err
	}
	if err := fn(lot); err != nil {
		return nil, err
	}
	if s.identityTaken(lot) {
		return nil, models.DuplicateLotError(lot)
	}
	s.lots[id] = lot
	return cloneLot(lot), nil
}

// identityTaken mirrors the lots_identity_key unique index
func (s *Store) identityTaken(lot *models.Lot) bool {
	for id, other := range s.lots {
		if id != lot.ID && models.SameIdentity(lot, other) {
			return true
		}
	}
	return false
}

func (s *Store) DeleteLot(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[id]
	if !ok {
		return &models.NotFoundError{Resource: "lot", ID: id.String()}
	}
	for _, e := range lot.Entries {
		delete(s.entryLot, e.ID)
	}
	delete(s.lots, id)
	return nil
}

func (s *Store) AppendEntry(_ context.Context, lotID uuid.UUID, fn func(lot *models.Lot) (*models.Entry, error)) (*models.Lot, *models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, err := s.working(lotID)
	if err != nil {
		return nil, nil, err
	}
	e, err := fn(lot)
	if err != nil {
		return nil, nil, err
	}
	e.LotID = lot.ID
	e.Position = repositories.NextPosition(lot)
	lot.Entries = append(lot.Entries, e)

	s.lots[lotID] = lot
	s.entryLot[e.ID] = lotID
	out := cloneLot(lot)
	return out, out.Entries[len(out.Entries)-1], nil
}

func (s *Store) UpdateEntry(_ context.Context, entryID uuid.UUID, fn func(lot *models.Lot, e *models.Entry) error) (*models.Lot, *models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, i, err := s.workingEntry(entryID)
	if err != nil {
		return nil, nil, err
	}
	if err := fn(lot, lot.Entries[i]); err != nil {
		return nil, nil, err
	}
	s.lots[lot.ID] = lot
	out := cloneLot(lot)
	return out, out.Entries[i], nil
}

func (s *Store) DeleteEntry(_ context.Context, entryID uuid.UUID, fn func(lot *models.Lot, e *models.Entry) error) (*models.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, i, err := s.workingEntry(entryID)
	if err != nil {
		return nil, err
	}
	if err := fn(lot, lot.Entries[i]); err != nil {
		return nil, err
	}
	lot.Entries = append(lot.Entries[:i], lot.Entries[i+1:]...)
	s.lots[lot.ID] = lot
	delete(s.entryLot, entryID)
	return cloneLot(lot), nil
}

// working returns a private copy of the lot; it replaces the stored one
// only when the mutation succeeds
func (s *Store) working(id uuid.UUID) (*models.Lot, error) {
	lot, ok := s.lots[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "lot", ID: id.String()}
	}
	return cloneLot(lot), nil
}

func (s *Store) workingEntry(entryID uuid.UUID) (*models.Lot, int, error) {
	lotID, ok := s.entryLot[entryID]
	if !ok {
		return nil, -1, &models.NotFoundError{Resource: "entry", ID: entryID.String()}
	}
	lot, err := s.working(lotID)
	if err != nil {
		return nil, -1, err
	}
	i := repositories.EntryIndex(lot, entryID)
	if i < 0 {
		return nil, -1, &models.NotFoundError{Resource: "entry", ID: entryID.String()}
	}
	return lot, i, nil
}

func (s *Store) CreateDispatch(_ context.Context, d *models.Dispatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *d
	s.dispatches[d.ID] = &c
	return nil
}

func (s *Store) GetDispatch(_ context.Context, id uuid.UUID) (*models.Dispatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dispatches[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "dispatch", ID: id.String()}
	}
	c := *d
	return &c, nil
}

func (s *Store) ListDispatches(_ context.Context, query string) ([]*models.Dispatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Dispatch
	for _, d := range s.dispatches {
		if aggregate.MatchDispatch(d, query) {
			c := *d
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DispatchDate.Equal(out[j].DispatchDate) {
			return out[i].DispatchDate.After(out[j].DispatchDate)
		}
		return out[i].ModifiedAt.After(out[j].ModifiedAt)
	})
	return out, nil
}

func (s *Store) UpdateDispatch(_ context.Context, d *models.Dispatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dispatches[d.ID]; !ok {
		return &models.NotFoundError{Resource: "dispatch", ID: d.ID.String()}
	}
	c := *d
	s.dispatches[d.ID] = &c
	return nil
}

func (s *Store) DeleteDispatch(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dispatches[id]; !ok {
		return &models.NotFoundError{Resource: "dispatch", ID: id.String()}
	}
	delete(s.dispatches, id)
	return nil
}

// EntryCount returns the number of stored entries across all lots
func (s *Store) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entryLot)
}

func cloneLot(l *models.Lot) *models.Lot {
	c := *l
	c.Entries = make([]*models.Entry, len(l.Entries))
	for i, e := range l.Entries {
		ec := *e
		c.Entries[i] = &ec
	}
	return &c
}
