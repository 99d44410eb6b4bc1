// Package models holds the shared domain types for crucible: scenarios,
// simulation records, transcripts, and analyses.
package models

import (
	"errors"
	"time"
)

// ErrInvalidInput indicates caller-supplied data failed validation before any
// upstream call was made. Handlers map it to HTTP 400.
var ErrInvalidInput = errors.New("invalid input")

// Status represents the lifecycle state of a simulation record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusAnalyzed  Status = "analyzed"
	StatusError     Status = "error"
)

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleHost Role = "host"
	RoleTeam Role = "team"
)

// Scenario is a candidate dilemma produced by the scenario generator.
// Immutable once generated; one is chosen to seed a simulation.
type Scenario struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	KeyDecision string `json:"keyDecision"`
}

// Validate reports whether all scenario fields are populated.
func (s Scenario) Validate() error {
	if s.Title == "" || s.Description == "" || s.KeyDecision == "" {
		return errors.New("scenario requires title, description and keyDecision")
	}
	return nil
}

// TranscriptEntry is one host or team line in a simulation transcript.
// Ordering is significant and append-only.
type TranscriptEntry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Record is the aggregate root for one simulation run.
type Record struct {
	ID         string            `json:"id"`
	TeamSize   int               `json:"teamSize"`
	Domain     string            `json:"domain"`
	Scenario   Scenario          `json:"scenario"`
	Status     Status            `json:"status"`
	Transcript []TranscriptEntry `json:"transcript"`
	Analysis   *Analysis         `json:"analysis,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// LastRole returns the role of the most recent transcript entry, or "" when
// the transcript is empty.
func (r *Record) LastRole() Role {
	if len(r.Transcript) == 0 {
		return ""
	}
	return r.Transcript[len(r.Transcript)-1].Role
}

// Clone returns a deep copy so callers can hand records across goroutines
// without sharing the transcript slice.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Transcript = make([]TranscriptEntry, len(r.Transcript))
	copy(cp.Transcript, r.Transcript)
	if r.Analysis != nil {
		a := r.Analysis.Clone()
		cp.Analysis = a
	}
	return &cp
}
