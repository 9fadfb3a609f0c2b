// Package prediction holds the history record of a reaction prediction and
// the events published about it.
package prediction

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/alchemist/pkg/errors"
)

// Status is the lifecycle state of a Record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	ErrRecordNotFound    = errors.New(errors.CodeNotFound, "prediction not found")
	ErrInvalidTransition = errors.New(errors.CodeConflict, "invalid prediction status transition")
)

// Record is one prediction request and its outcome.
type Record struct {
	ID           uuid.UUID      `json:"id"`
	Input        string         `json:"input,omitempty"`
	Reactants    []string       `json:"reactants"`
	Status       Status         `json:"status"`
	Reaction     string         `json:"reaction,omitempty"`
	DeltaG       *float64       `json:"delta_g,omitempty"`
	Unit         string         `json:"unit,omitempty"`
	Candidates   []string       `json:"candidates,omitempty"`
	Combinations int            `json:"combinations"`
	Attempts     map[string]int `json:"attempts,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// NewRecord returns a pending record with a fresh ID.
func NewRecord(input string, reactants []string) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:        uuid.New(),
		Input:     input,
		Reactants: append([]string(nil), reactants...),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Start moves a pending record to running.
func (r *Record) Start() error {
	if r.Status != StatusPending {
		return ErrInvalidTransition.WithDetail(string(r.Status) + " -> " + string(StatusRunning))
	}
	r.Status = StatusRunning
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Outcome is what a finished prediction produced.
type Outcome struct {
	Reaction     string
	DeltaG       float64
	Unit         string
	Candidates   []string
	Combinations int
	Attempts     map[string]int
}

// Complete stores a successful outcome.
func (r *Record) Complete(o Outcome) error {
	if r.Status.IsTerminal() {
		return ErrInvalidTransition.WithDetail(string(r.Status) + " -> " + string(StatusCompleted))
	}
	dg := o.DeltaG
	now := time.Now().UTC()
	r.Status = StatusCompleted
	r.Reaction = o.Reaction
	r.DeltaG = &dg
	r.Unit = o.Unit
	r.Candidates = o.Candidates
	r.Combinations = o.Combinations
	r.Attempts = o.Attempts
	r.UpdatedAt = now
	r.CompletedAt = &now
	return nil
}

// Fail stores err and its code.
func (r *Record) Fail(err error) error {
	if r.Status.IsTerminal() {
		return ErrInvalidTransition.WithDetail(string(r.Status) + " -> " + string(StatusFailed))
	}
	now := time.Now().UTC()
	r.Status = StatusFailed
	r.ErrorCode = errors.GetCode(err).String()
	r.Error = err.Error()
	r.UpdatedAt = now
	r.CompletedAt = &now
	return nil
}
