package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types pushed to live subscribers
const (
	EventLotCreated    = "lot.created"
	EventLotDeleted    = "lot.deleted"
	EventLotTransition = "lot.transition"
	EventEntryAppended = "entry.appended"
)

// LotEvent is a change notification for the /ws feed
type LotEvent struct {
	Type      string    `json:"type"`
	LotID     uuid.UUID `json:"lot_id"`
	LotNumber string    `json:"lot_number,omitempty"`
	From      Stage     `json:"from,omitempty"`
	To        Stage     `json:"to,omitempty"`
	At        time.Time `json:"at"`
}
