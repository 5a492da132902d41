package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"textile-backend/internal/models"
	"textile-backend/internal/repositories/memstore"
	"textile-backend/internal/services"
)

type recorder struct {
	mu     sync.Mutex
	events []models.LotEvent
}

func (r *recorder) Publish(ev models.LotEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ofType(t string) []models.LotEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.LotEvent
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// tick returns a clock that advances one second per call
func tick() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newLotService(t *testing.T) (*services.LotService, *memstore.Store, *recorder) {
	t.Helper()
	store := memstore.New()
	rec := &recorder{}
	svc := services.NewLotService(store, rec)
	svc.SetClock(tick())
	return svc, store, rec
}

func kg(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func createLot(t *testing.T, svc *services.LotService, number string, challans ...string) *models.Lot {
	t.Helper()
	ctx := context.Background()
	lot, err := svc.CreateLot(ctx, &models.CreateLotRequest{
		LotNumber:   number,
		PartyName:   "Acme",
		Quality:     "Q1",
		Shade:       "Red",
		ProcessType: "Dye",
	})
	if err != nil {
		t.Fatalf("create lot: %v", err)
	}
	for _, c := range challans {
		if _, err := svc.AppendEntry(ctx, lot.ID, &models.AppendEntryRequest{ChallanNumber: c, Kg: kg("12.5")}); err != nil {
			t.Fatalf("append %s: %v", c, err)
		}
	}
	return lot
}

func TestCreateLotValidation(t *testing.T) {
	svc, _, _ := newLotService(t)
	cases := []struct {
		name  string
		req   models.CreateLotRequest
		field string
	}{
		{"no lot number", models.CreateLotRequest{PartyName: "Acme", Quality: "Q1"}, "lot_number"},
		{"blank party", models.CreateLotRequest{LotNumber: "L1", PartyName: "  ", Quality: "Q1"}, "party_name"},
		{"no quality", models.CreateLotRequest{LotNumber: "L1", PartyName: "Acme"}, "quality"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateLot(context.Background(), &tc.req)
			var ve *models.ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}

	lot, err := svc.CreateLot(context.Background(), &models.CreateLotRequest{LotNumber: " L1 ", PartyName: "Acme", Quality: "Q1"})
	if err != nil {
		t.Fatal(err)
	}
	if lot.Status != models.StageGrey || len(lot.Entries) != 0 || lot.LotNumber != "L1" {
		t.Fatalf("unexpected new lot %+v", lot)
	}
}

func TestAppendEntryValidation(t *testing.T) {
	svc, _, _ := newLotService(t)
	lot := createLot(t, svc, "L1")
	ctx := context.Background()
	roll := -1
	bad := []models.AppendEntryRequest{
		{Kg: kg("1")},
		{ChallanNumber: "C1"},
		{ChallanNumber: "C1", Kg: kg("-2")},
		{ChallanNumber: "C1", Roll: &roll},
	}
	for i, req := range bad {
		if _, err := svc.AppendEntry(ctx, lot.ID, &req); !errors.Is(err, models.ErrValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
	if _, err := svc.AppendEntry(ctx, uuid.New(), &models.AppendEntryRequest{ChallanNumber: "C1", Kg: kg("1")}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown lot: expected not found, got %v", err)
	}

	// challan numbers may repeat
	for i := 0; i < 2; i++ {
		if _, err := svc.AppendEntry(ctx, lot.ID, &models.AppendEntryRequest{ChallanNumber: "C1", Kg: kg("1")}); err != nil {
			t.Fatalf("duplicate challan rejected: %v", err)
		}
	}
}

func TestLifecycle(t *testing.T) {
	svc, _, rec := newLotService(t)
	ctx := context.Background()
	lot := createLot(t, svc, "L1", "C1", "C2")

	got, err := svc.Advance(ctx, lot.ID, models.StageProcess)
	if err != nil {
		t.Fatalf("grey -> process: %v", err)
	}
	if got.SubmittedAt == nil {
		t.Fatal("submittedAt not stamped")
	}

	_, err = svc.Advance(ctx, lot.ID, models.StageFinish)
	var ite *models.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("process -> finish: expected InvalidTransitionError, got %v", err)
	}

	stored, _ := svc.GetLot(ctx, lot.ID)
	if stored.Status != models.StageProcess {
		t.Fatalf("rejected transition persisted: %s", stored.Status)
	}

	got, err = svc.Complete(ctx, lot.ID)
	if err != nil || got.Status != models.StageHeat || got.HeatSetAt == nil {
		t.Fatalf("complete to heat: %v %+v", err, got)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("transition changed entries: %d", len(got.Entries))
	}

	transitions := rec.ofType(models.EventLotTransition)
	if len(transitions) != 2 || transitions[1].From != models.StageProcess || transitions[1].To != models.StageHeat {
		t.Fatalf("unexpected transition events %+v", transitions)
	}
}

func TestAdvanceEmptyGreyLot(t *testing.T) {
	svc, _, _ := newLotService(t)
	lot := createLot(t, svc, "L1")
	if _, err := svc.Advance(context.Background(), lot.ID, models.StageProcess); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestFinishedLotIsClosed(t *testing.T) {
	svc, _, _ := newLotService(t)
	ctx := context.Background()
	lot := createLot(t, svc, "L1", "C1")
	for i := 0; i < 3; i++ {
		if _, err := svc.Complete(ctx, lot.ID); err != nil {
			t.Fatalf("complete %d: %v", i, err)
		}
	}

	_, err := svc.AppendEntry(ctx, lot.ID, &models.AppendEntryRequest{ChallanNumber: "C9", Kg: kg("1")})
	if !errors.Is(err, models.ErrLotClosed) {
		t.Fatalf("expected ErrLotClosed, got %v", err)
	}
	if _, err := svc.Complete(ctx, lot.ID); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("complete past finish: expected invalid transition, got %v", err)
	}
}

func TestDeleteLastEntry(t *testing.T) {
	svc, _, _ := newLotService(t)
	ctx := context.Background()

	grey := createLot(t, svc, "G1", "C1")
	greyStored, _ := svc.GetLot(ctx, grey.ID)
	if err := svc.DeleteEntry(ctx, greyStored.Entries[0].ID); err != nil {
		t.Fatalf("grey lot may drop its last entry: %v", err)
	}

	lot := createLot(t, svc, "L1", "C1", "C2")
	if _, err := svc.Advance(ctx, lot.ID, models.StageProcess); err != nil {
		t.Fatal(err)
	}
	stored, _ := svc.GetLot(ctx, lot.ID)
	if err := svc.DeleteEntry(ctx, stored.Entries[0].ID); err != nil {
		t.Fatalf("delete first of two: %v", err)
	}
	if err := svc.DeleteEntry(ctx, stored.Entries[1].ID); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("delete last entry past grey: expected validation error, got %v", err)
	}
	if err := svc.DeleteEntry(ctx, uuid.New()); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown entry: expected not found, got %v", err)
	}
}

func TestUpdateEntryByID(t *testing.T) {
	svc, _, _ := newLotService(t)
	ctx := context.Background()
	lot := createLot(t, svc, "L1", "C1")
	stored, _ := svc.GetLot(ctx, lot.ID)
	before := stored.ModifiedAt

	challan := "C1-A"
	meter := kg("40")
	e, err := svc.UpdateEntry(ctx, stored.Entries[0].ID, &models.UpdateEntryRequest{ChallanNumber: &challan, Meter: meter})
	if err != nil {
		t.Fatal(err)
	}
	if e.ChallanNumber != "C1-A" || e.Meter == nil || !e.Meter.Equal(*meter) || e.Kg == nil {
		t.Fatalf("unexpected entry %+v", e)
	}

	after, _ := svc.GetLot(ctx, lot.ID)
	if !after.ModifiedAt.After(before) {
		t.Fatal("entry update did not bump lot modifiedAt")
	}

	empty := ""
	if _, err := svc.UpdateEntry(ctx, e.ID, &models.UpdateEntryRequest{ChallanNumber: &empty}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	again, _ := svc.GetLot(ctx, lot.ID)
	if again.Entries[0].ChallanNumber != "C1-A" {
		t.Fatal("failed update was persisted")
	}
}

func TestUpdateLotKeepsStatus(t *testing.T) {
	svc, _, _ := newLotService(t)
	ctx := context.Background()
	lot := createLot(t, svc, "L1", "C1")

	shade := "Blue"
	got, err := svc.UpdateLot(ctx, lot.ID, &models.UpdateLotRequest{Shade: &shade})
	if err != nil {
		t.Fatal(err)
	}
	if got.Shade != "Blue" || got.Status != models.StageGrey || len(got.Entries) != 1 {
		t.Fatalf("unexpected lot %+v", got)
	}

	blank := " "
	if _, err := svc.UpdateLot(ctx, lot.ID, &models.UpdateLotRequest{PartyName: &blank}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.UpdateLot(ctx, uuid.New(), &models.UpdateLotRequest{Shade: &shade}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteLotCascades(t *testing.T) {
	svc, store, _ := newLotService(t)
	ctx := context.Background()
	lot := createLot(t, svc, "L1", "C1", "C2")
	keep := createLot(t, svc, "L2", "C3")
	stored, _ := svc.GetLot(ctx, lot.ID)

	if err := svc.DeleteLot(ctx, lot.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetLot(ctx, lot.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	for _, e := range stored.Entries {
		if err := svc.DeleteEntry(ctx, e.ID); !errors.Is(err, models.ErrNotFound) {
			t.Fatalf("entry %s survived its lot: %v", e.ID, err)
		}
	}
	if store.EntryCount() != 1 {
		t.Fatalf("expected only the other lot's entry, have %d", store.EntryCount())
	}
	if _, err := svc.GetLot(ctx, keep.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteLot(ctx, lot.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}
}

func TestSetStatus(t *testing.T) {
	svc, _, _ := newLotService(t)
	ctx := context.Background()
	lot := createLot(t, svc, "L1", "C1")

	got, err := svc.SetStatus(ctx, &models.StatusRequest{LotID: lot.ID.String(), Status: "complete"})
	if err != nil || got.Status != models.StageProcess {
		t.Fatalf("complete: %v %+v", err, got)
	}
	got, err = svc.SetStatus(ctx, &models.StatusRequest{LotID: lot.ID.String(), Status: "Heat"})
	if err != nil || got.Status != models.StageHeat {
		t.Fatalf("advance by name: %v %+v", err, got)
	}
	if _, err := svc.SetStatus(ctx, &models.StatusRequest{LotID: "nope", Status: "complete"}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("bad id: expected validation error, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, &models.StatusRequest{LotID: lot.ID.String(), Status: "dyed"}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("bad status: expected validation error, got %v", err)
	}
}

func TestListLots(t *testing.T) {
	svc, _, _ := newLotService(t)
	ctx := context.Background()
	a := createLot(t, svc, "L1", "C1")
	b := createLot(t, svc, "L2", "C2")
	c := createLot(t, svc, "L3", "C3")
	if _, err := svc.Complete(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Complete(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Complete(ctx, c.ID); err != nil {
		t.Fatal(err)
	}

	all, _ := svc.ListLots(ctx, models.LotFilter{})
	if len(all) != 3 || all[0].ID != c.ID || all[1].ID != b.ID || all[2].ID != a.ID {
		t.Fatalf("expected most recently modified first")
	}

	grey, _ := svc.ListLots(ctx, models.LotFilter{Status: models.StageGrey})
	if len(grey) != 1 || grey[0].ID != a.ID {
		t.Fatalf("unexpected grey lots %v", grey)
	}

	done, _ := svc.ListLots(ctx, models.LotFilter{CompletedStage: models.StageGrey})
	if len(done) != 2 {
		t.Fatalf("expected 2 lots past grey, got %d", len(done))
	}

	found, _ := svc.ListLots(ctx, models.LotFilter{Query: "c3"})
	if len(found) != 1 || found[0].ID != c.ID {
		t.Fatalf("search by entry challan failed: %v", found)
	}

	none, err := svc.ListLots(ctx, models.LotFilter{CompletedStage: models.StageFinish})
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil list, got %v %v", none, err)
	}
}

func TestConcurrentAppends(t *testing.T) {
	svc, _, _ := newLotService(t)
	ctx := context.Background()
	lot := createLot(t, svc, "L1")

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AppendEntry(ctx, lot.ID, &models.AppendEntryRequest{ChallanNumber: "C", Kg: kg("1")})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	stored, _ := svc.GetLot(ctx, lot.ID)
	if len(stored.Entries) != n {
		t.Fatalf("expected %d entries, got %d", n, len(stored.Entries))
	}
	for i, e := range stored.Entries {
		if e.Position != i {
			t.Fatalf("entry %d has position %d", i, e.Position)
		}
	}
}

func TestAppendsRaceWithTransitions(t *testing.T) {
	svc, _, _ := newLotService(t)
	ctx := context.Background()
	lot := createLot(t, svc, "L1", "C0")

	const appends = 40
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		appended []uuid.UUID
		closed   int
	)
	start := make(chan struct{})
	for i := 0; i < appends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			e, err := svc.AppendEntry(ctx, lot.ID, &models.AppendEntryRequest{ChallanNumber: "C", Kg: kg("1")})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				appended = append(appended, e.ID)
			case errors.Is(err, models.ErrLotClosed):
				closed++
			default:
				t.Errorf("unexpected append error: %v", err)
			}
		}()
	}
	transitions := make(chan error, 3)
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < 3; i++ {
			_, err := svc.Complete(ctx, lot.ID)
			transitions <- err
		}
	}()
	close(start)
	wg.Wait()
	close(transitions)

	for err := range transitions {
		if err != nil {
			t.Fatalf("transition failed: %v", err)
		}
	}

	stored, err := svc.GetLot(ctx, lot.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.StageFinish {
		t.Fatalf("expected finish, got %s", stored.Status)
	}
	if len(appended)+closed != appends {
		t.Fatalf("%d appends unaccounted for", appends-len(appended)-closed)
	}
	if len(stored.Entries) != 1+len(appended) {
		t.Fatalf("expected %d entries, got %d", 1+len(appended), len(stored.Entries))
	}
	present := make(map[uuid.UUID]bool, len(stored.Entries))
	for i, e := range stored.Entries {
		present[e.ID] = true
		if e.Position != i {
			t.Fatalf("entry %d has position %d", i, e.Position)
		}
	}
	for _, id := range appended {
		if !present[id] {
			t.Fatalf("successful append %s was lost", id)
		}
	}

	if _, err := svc.AppendEntry(ctx, lot.ID, &models.AppendEntryRequest{ChallanNumber: "late", Kg: kg("1")}); !errors.Is(err, models.ErrLotClosed) {
		t.Fatalf("append after finish: expected ErrLotClosed, got %v", err)
	}
	after, _ := svc.GetLot(ctx, lot.ID)
	if len(after.Entries) != len(stored.Entries) {
		t.Fatal("rejected append left an entry behind")
	}
}
