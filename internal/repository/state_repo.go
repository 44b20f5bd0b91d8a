package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"milebot/internal/model"
)

// StateRepository conversation state repository interface
type StateRepository interface {
	// Get the state row, nil when the user has no row yet
	Get(ctx context.Context, userID int64) (*model.ConversationState, error)

	// Upsert the single per-user row
	Upsert(ctx context.Context, state *model.ConversationState) error

	// Delete the row, missing row is not an error
	Delete(ctx context.Context, userID int64) error
}

type stateRepository struct {
	db *gorm.DB
}

// NewStateRepository creates a conversation state repository
func NewStateRepository(db *gorm.DB) StateRepository {
	return &stateRepository{db: db}
}

func (r *stateRepository) Get(ctx context.Context, userID int64) (*model.ConversationState, error) {
	var state model.ConversationState
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

func (r *stateRepository) Upsert(ctx context.Context, state *model.ConversationState) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "scratch", "updated_at"}),
	}).Create(state).Error
}

func (r *stateRepository) Delete(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.ConversationState{}).Error
}
