// Package simulation owns the turn-taking state machine that drives one
// simulation from creation through host/team exchange to completion.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/crucible-sim/crucible/internal/genai"
	"github.com/crucible-sim/crucible/internal/models"
	"github.com/crucible-sim/crucible/internal/store"
)

// generationClient is the slice of the generation client the engine needs.
type generationClient interface {
	GenerateText(ctx context.Context, system, prompt string, cfg genai.GenerateConfig) (string, error)
	GenerateJSON(ctx context.Context, system, prompt string, schema *genai.Schema, cfg genai.GenerateConfig, out any) error
}

// Engine advances simulations one turn at a time. Mutations of a single
// record are serialized through a per-record lock; operations on different
// records are independent.
type Engine struct {
	store  store.Store
	client generationClient
	cfg    genai.GenerateConfig
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*recordLock
}

// recordLock is a per-record mutex with a waiter count so idle entries can
// be dropped from the map once the last holder releases it.
type recordLock struct {
	mu   sync.Mutex
	refs int
}

// NewEngine creates a conversation engine over the given store and client.
func NewEngine(st store.Store, client generationClient, cfg genai.GenerateConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  st,
		client: client,
		cfg:    cfg,
		logger: logger,
		locks:  make(map[string]*recordLock),
	}
}

// lockRecord serializes mutations of one record. The returned func releases
// the lock.
func (e *Engine) lockRecord(id string) func() {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &recordLock{}
		e.locks[id] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, id)
		}
		e.mu.Unlock()
	}
}

// openingSchema constrains the opening-line response to a single field.
func openingSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"openingPrompt": {Type: genai.TypeString, Description: "The host's opening line"},
		},
		Required: []string{"openingPrompt"},
	}
}

// Start creates a simulation record, persists it, generates the opening host
// line, and appends it as the first transcript entry.
//
// If opening-line generation fails the record is left pending with an empty
// transcript and the error is returned; callers retry Start rather than
// resuming the partial record.
func (e *Engine) Start(ctx context.Context, teamSize int, domain string, sc models.Scenario) (*models.Record, error) {
	if teamSize <= 0 {
		return nil, fmt.Errorf("%w: team size must be positive, got %d", models.ErrInvalidInput, teamSize)
	}
	if domain == "" {
		return nil, fmt.Errorf("%w: domain must not be empty", models.ErrInvalidInput)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	rec := &models.Record{
		TeamSize:   teamSize,
		Domain:     domain,
		Scenario:   sc,
		Status:     models.StatusPending,
		Transcript: []models.TranscriptEntry{},
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := e.store.Create(rec); err != nil {
		return nil, fmt.Errorf("creating simulation record: %w", err)
	}

	var opening struct {
		OpeningPrompt string `mapstructure:"openingPrompt"`
	}
	err := e.client.GenerateJSON(ctx, hostSystemInstruction,
		buildOpeningPrompt(teamSize, domain, sc), openingSchema(), e.cfg, &opening)
	if err != nil {
		e.logger.Warn("opening prompt generation failed; record left pending",
			"simulation", rec.ID, "error", err)
		return nil, fmt.Errorf("generating opening prompt: %w", err)
	}

	rec.Transcript = append(rec.Transcript, models.TranscriptEntry{
		Role:      models.RoleHost,
		Content:   opening.OpeningPrompt,
		CreatedAt: time.Now().UTC(),
	})
	if err := e.store.Update(rec); err != nil {
		return nil, fmt.Errorf("persisting opening prompt: %w", err)
	}

	e.logger.Info("simulation started", "simulation", rec.ID, "domain", domain, "teamSize", teamSize)
	return rec, nil
}

// SubmitTeamResponse appends the team's response, persists it immediately,
// then generates and appends the next host line.
//
// The team entry is persisted before the host call so it is never lost: if
// the host call fails, the stored transcript keeps the team entry and a
// retry of the same operation appends exactly one new host entry.
func (e *Engine) SubmitTeamResponse(ctx context.Context, id, content string) (*models.Record, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: response content must not be empty", models.ErrInvalidInput)
	}

	unlock := e.lockRecord(id)
	defer unlock()

	rec, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: simulation is %s and no longer accepts responses", models.ErrInvalidInput, rec.Status)
	}
	if len(rec.Transcript) == 0 {
		return nil, fmt.Errorf("%w: simulation has no opening prompt yet", models.ErrInvalidInput)
	}

	// A trailing team entry means a previous submission already persisted the
	// team's input but the host call failed. Skip the append and resume at
	// the host turn so the retry grows the transcript by exactly one entry.
	if rec.LastRole() == models.RoleHost {
		rec.Transcript = append(rec.Transcript, models.TranscriptEntry{
			Role:      models.RoleTeam,
			Content:   content,
			CreatedAt: time.Now().UTC(),
		})
		if err := e.store.Update(rec); err != nil {
			return nil, fmt.Errorf("persisting team response: %w", err)
		}
	} else {
		e.logger.Info("resuming interrupted turn", "simulation", id)
	}

	hostLine, err := e.client.GenerateText(ctx, hostSystemInstruction, buildHostPrompt(rec), e.cfg)
	if err != nil {
		e.logger.Warn("host line generation failed; team entry retained",
			"simulation", id, "error", err)
		return nil, fmt.Errorf("generating host line: %w", err)
	}

	rec.Transcript = append(rec.Transcript, models.TranscriptEntry{
		Role:      models.RoleHost,
		Content:   hostLine,
		CreatedAt: time.Now().UTC(),
	})
	if err := e.store.Update(rec); err != nil {
		return nil, fmt.Errorf("persisting host line: %w", err)
	}
	return rec, nil
}

// Finish marks the simulation completed. Completion is independent of
// analysis; a minimum transcript length is a front-end gate, not enforced
// here. Finishing an already completed or analyzed simulation is a no-op.
func (e *Engine) Finish(_ context.Context, id string) (*models.Record, error) {
	unlock := e.lockRecord(id)
	defer unlock()

	rec, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.StatusCompleted || rec.Status == models.StatusAnalyzed {
		return rec, nil
	}

	rec.Status = models.StatusCompleted
	if err := e.store.Update(rec); err != nil {
		return nil, fmt.Errorf("marking simulation completed: %w", err)
	}

	e.logger.Info("simulation completed", "simulation", id, "turns", len(rec.Transcript))
	return rec, nil
}
