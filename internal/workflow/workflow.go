// Package workflow holds the lot stage rules: grey -> process -> heat -> finish,
// one step at a time, never backwards.
package workflow

import (
	"time"

	"textile-backend/internal/models"
)

// Transition describes a status change applied to a lot
type Transition struct {
	From models.Stage
	To   models.Stage
	At   time.Time
}

// Advance moves lot to target. Target must be the immediate successor of the
// current status, and a lot may not leave grey without entries.
// Entries are never touched.
func Advance(lot *models.Lot, target models.Stage, now time.Time) (Transition, error) {
	from := lot.Status
	if !target.Valid() {
		return Transition{}, &models.ValidationError{Field: "status", Message: "unknown stage " + string(target)}
	}

	next, ok := from.Next()
	if !ok {
		return Transition{}, &models.InvalidTransitionError{From: from, To: target, Reason: "lot is already finished"}
	}
	if target != next {
		reason := "stages must be completed in order"
		if target.Index() <= from.Index() {
			reason = "status cannot move backwards"
		}
		return Transition{}, &models.InvalidTransitionError{From: from, To: target, Reason: reason}
	}
	if from == models.StageGrey && len(lot.Entries) == 0 {
		return Transition{}, &models.InvalidTransitionError{From: from, To: target, Reason: "lot has no entries"}
	}

	lot.Status = target
	lot.SetStageTime(target, now)
	lot.ModifiedAt = now
	return Transition{From: from, To: target, At: now}, nil
}

// Complete advances lot to the successor of its current status
func Complete(lot *models.Lot, now time.Time) (Transition, error) {
	next, ok := lot.Status.Next()
	if !ok {
		return Transition{}, &models.InvalidTransitionError{From: lot.Status, Reason: "lot is already finished"}
	}
	return Advance(lot, next, now)
}

// CheckAppend rejects new entries on finished lots
func CheckAppend(lot *models.Lot) error {
	if lot.Status == models.StageFinish {
		return models.ErrLotClosed
	}
	return nil
}

// CheckRemoveEntry keeps a lot that has left grey from dropping to zero entries
func CheckRemoveEntry(lot *models.Lot) error {
	if lot.Status != models.StageGrey && len(lot.Entries) <= 1 {
		return &models.ValidationError{
			Field:   "entries",
			Message: "a lot past grey must keep at least one entry",
		}
	}
	return nil
}

// Completed reports whether lot has finished stage, i.e. its status is strictly after it
func Completed(lot *models.Lot, stage models.Stage) bool {
	return lot.Status.After(stage)
}

// Matches applies the status part of a lot filter
func Matches(lot *models.Lot, f models.LotFilter) bool {
	if f.Status != "" && lot.Status != f.Status {
		return false
	}
	if f.CompletedStage != "" && !Completed(lot, f.CompletedStage) {
		return false
	}
	return true
}
