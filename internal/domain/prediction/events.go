package prediction

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventRequested = "prediction.requested"
	EventCompleted = "prediction.completed"
)

// RequestedEvent asks a worker to run a stored pending prediction.
type RequestedEvent struct {
	EventID       string    `json:"event_id"`
	PredictionID  uuid.UUID `json:"prediction_id"`
	Reactants     []string  `json:"reactants"`
	MaxCandidates int       `json:"max_candidates,omitempty"`
	Unit          string    `json:"unit,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewRequestedEvent builds the event for r. An empty unit means the
// service default.
func NewRequestedEvent(r *Record, maxCandidates int, unit string) *RequestedEvent {
	return &RequestedEvent{
		EventID:       uuid.NewString(),
		PredictionID:  r.ID,
		Reactants:     r.Reactants,
		MaxCandidates: maxCandidates,
		Unit:          unit,
		OccurredAt:    time.Now().UTC(),
	}
}

// CompletedEvent announces a terminal record.
type CompletedEvent struct {
	EventID      string    `json:"event_id"`
	PredictionID uuid.UUID `json:"prediction_id"`
	Status       Status    `json:"status"`
	Reaction     string    `json:"reaction,omitempty"`
	DeltaG       *float64  `json:"delta_g,omitempty"`
	Unit         string    `json:"unit,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewCompletedEvent builds the event for r.
func NewCompletedEvent(r *Record) *CompletedEvent {
	return &CompletedEvent{
		EventID:      uuid.NewString(),
		PredictionID: r.ID,
		Status:       r.Status,
		Reaction:     r.Reaction,
		DeltaG:       r.DeltaG,
		Unit:         r.Unit,
		ErrorCode:    r.ErrorCode,
		OccurredAt:   time.Now().UTC(),
	}
}
