package workflow_test

import (
	"errors"
	"testing"
	"time"

	"textile-backend/internal/models"
	"textile-backend/internal/workflow"
)

func newLot(status models.Stage, entries int) *models.Lot {
	lot := &models.Lot{LotNumber: "L1", PartyName: "Acme", Quality: "Q1", Status: status}
	for i := 0; i < entries; i++ {
		lot.Entries = append(lot.Entries, &models.Entry{Position: i, ChallanNumber: "C1"})
	}
	return lot
}

func TestAdvanceStrict(t *testing.T) {
	now := time.Date(2024, 1, 5, 9, 34, 0, 0, time.UTC)
	lot := newLot(models.StageGrey, 1)

	tr, err := workflow.Advance(lot, models.StageProcess, now)
	if err != nil {
		t.Fatalf("grey -> process: %v", err)
	}
	if tr.From != models.StageGrey || tr.To != models.StageProcess {
		t.Fatalf("unexpected transition %+v", tr)
	}
	if lot.SubmittedAt == nil || !lot.SubmittedAt.Equal(now) {
		t.Fatalf("submittedAt not stamped: %v", lot.SubmittedAt)
	}
	if !lot.ModifiedAt.Equal(now) {
		t.Fatalf("modifiedAt not bumped")
	}

	_, err = workflow.Advance(lot, models.StageFinish, now)
	var ite *models.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("process -> finish: expected InvalidTransitionError, got %v", err)
	}
	if ite.From != models.StageProcess || ite.To != models.StageFinish {
		t.Fatalf("unexpected error fields %+v", ite)
	}
	if lot.Status != models.StageProcess {
		t.Fatalf("status changed on rejected transition: %s", lot.Status)
	}
}

func TestAdvanceRejects(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name   string
		lot    *models.Lot
		target models.Stage
		want   error
	}{
		{"empty grey", newLot(models.StageGrey, 0), models.StageProcess, models.ErrInvalidTransition},
		{"backwards", newLot(models.StageHeat, 2), models.StageProcess, models.ErrInvalidTransition},
		{"same stage", newLot(models.StageHeat, 2), models.StageHeat, models.ErrInvalidTransition},
		{"past finish", newLot(models.StageFinish, 1), models.StageFinish, models.ErrInvalidTransition},
		{"skip", newLot(models.StageGrey, 1), models.StageHeat, models.ErrInvalidTransition},
		{"unknown", newLot(models.StageGrey, 1), models.Stage("dyed"), models.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.lot.Status
			_, err := workflow.Advance(tc.lot, tc.target, now)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.lot.Status != before {
				t.Fatalf("status changed to %s", tc.lot.Status)
			}
		})
	}
}

func TestCompleteWalksWholeWorkflow(t *testing.T) {
	lot := newLot(models.StageGrey, 2)
	now := time.Now()
	for _, want := range []models.Stage{models.StageProcess, models.StageHeat, models.StageFinish} {
		tr, err := workflow.Complete(lot, now)
		if err != nil {
			t.Fatalf("complete to %s: %v", want, err)
		}
		if tr.To != want || lot.Status != want {
			t.Fatalf("expected %s, got %s", want, lot.Status)
		}
		if lot.StageTime(want) == nil {
			t.Fatalf("%s timestamp not stamped", want)
		}
	}
	if len(lot.Entries) != 2 {
		t.Fatalf("transitions touched entries")
	}
	if _, err := workflow.Complete(lot, now); !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("complete at finish: expected invalid transition, got %v", err)
	}
}

func TestStatusNeverDecreases(t *testing.T) {
	lot := newLot(models.StageGrey, 1)
	now := time.Now()
	prev := lot.Status.Index()
	for _, target := range []models.Stage{
		models.StageHeat, models.StageProcess, models.StageGrey, models.StageHeat,
		models.StageProcess, models.StageFinish, models.StageFinish, models.StageHeat,
	} {
		workflow.Advance(lot, target, now)
		if lot.Status.Index() < prev {
			t.Fatalf("status went backwards to %s", lot.Status)
		}
		prev = lot.Status.Index()
	}
	if lot.Status != models.StageFinish {
		t.Fatalf("expected finish, got %s", lot.Status)
	}
}

func TestEntryGuards(t *testing.T) {
	if err := workflow.CheckAppend(newLot(models.StageHeat, 1)); err != nil {
		t.Fatalf("append on heat: %v", err)
	}
	if err := workflow.CheckAppend(newLot(models.StageFinish, 1)); !errors.Is(err, models.ErrLotClosed) {
		t.Fatalf("append on finish: expected ErrLotClosed, got %v", err)
	}
	if err := workflow.CheckRemoveEntry(newLot(models.StageGrey, 1)); err != nil {
		t.Fatalf("remove last grey entry: %v", err)
	}
	if err := workflow.CheckRemoveEntry(newLot(models.StageProcess, 1)); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("remove last process entry: expected validation error, got %v", err)
	}
	if err := workflow.CheckRemoveEntry(newLot(models.StageProcess, 2)); err != nil {
		t.Fatalf("remove one of two entries: %v", err)
	}
}

func TestCompleted(t *testing.T) {
	lot := newLot(models.StageHeat, 1)
	if !workflow.Completed(lot, models.StageGrey) || !workflow.Completed(lot, models.StageProcess) {
		t.Fatal("heat lot should have completed grey and process")
	}
	if workflow.Completed(lot, models.StageHeat) {
		t.Fatal("heat lot has not completed heat")
	}
	if !workflow.Matches(lot, models.LotFilter{Status: models.StageHeat, CompletedStage: models.StageProcess}) {
		t.Fatal("filter should match")
	}
	if workflow.Matches(lot, models.LotFilter{Status: models.StageGrey}) {
		t.Fatal("status filter should not match")
	}
}
