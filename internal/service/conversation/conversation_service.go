package conversation

import (
	"context"
	"time"

	"milebot/internal/model"
	"milebot/internal/repository"
)

// Service owns the per-user conversation row. Every transition is an
// upsert of that single row, so a crash mid-flow leaves the user
// retryable from the last persisted state.
type Service struct {
	states     repository.StateRepository
	staleAfter time.Duration
}

// NewService creates a conversation service. A non-zero staleAfter
// makes rows older than that read as idle, an abandoned scratch must
// not leak into a flow started days later.
func NewService(states repository.StateRepository, staleAfter time.Duration) *Service {
	return &Service{states: states, staleAfter: staleAfter}
}

// Get returns the user's conversation row, synthesizing an idle row
// when none exists yet or the stored one has gone stale.
func (s *Service) Get(ctx context.Context, userID int64) (*model.ConversationState, error) {
	state, err := s.states.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state == nil || s.isStale(state) {
		return &model.ConversationState{
			UserID: userID,
			State:  model.StateIdle,
		}, nil
	}
	return state, nil
}

func (s *Service) isStale(state *model.ConversationState) bool {
	return s.staleAfter > 0 &&
		!state.IsIdle() &&
		time.Since(state.UpdatedAt) > s.staleAfter
}

// Set moves the user to a new state. A nil scratch preserves whatever
// scratch the row already carries.
func (s *Service) Set(ctx context.Context, userID int64, state model.State, scratch *model.Scratch) error {
	if scratch == nil {
		current, err := s.Get(ctx, userID)
		if err != nil {
			return err
		}
		scratch = &current.Scratch
	}
	return s.states.Upsert(ctx, &model.ConversationState{
		UserID:  userID,
		State:   state,
		Scratch: *scratch,
	})
}

// Merge applies a mutation to the current scratch and persists it
// together with the new state in one write.
func (s *Service) Merge(ctx context.Context, userID int64, state model.State, mutate func(*model.Scratch)) error {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	scratch := current.Scratch
	mutate(&scratch)
	return s.states.Upsert(ctx, &model.ConversationState{
		UserID:  userID,
		State:   state,
		Scratch: scratch,
	})
}

// Reset drops the user back to idle. The row is deleted rather than
// zeroed, Get synthesizes the idle row for absent users anyway.
func (s *Service) Reset(ctx context.Context, userID int64) error {
	return s.states.Delete(ctx, userID)
}

// IsInFlow reports whether the user is parked inside any flow.
func (s *Service) IsInFlow(ctx context.Context, userID int64) (bool, error) {
	state, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return !state.IsIdle(), nil
}
