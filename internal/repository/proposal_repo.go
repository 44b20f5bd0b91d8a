package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"milebot/internal/model"
)

// ProposalRepository proposal repository interface
type ProposalRepository interface {
	// Create proposal
	Create(ctx context.Context, proposal *model.Proposal) error

	// Get proposal by ID, nil when absent
	GetByID(ctx context.Context, id int64) (*model.Proposal, error)

	// List PENDING proposals for an ad, oldest first
	PendingByAd(ctx context.Context, adID int64) ([]*model.Proposal, error)

	// Guarded PENDING to status flip inside the given tx, returns rows
	// affected. Zero rows means someone else decided first.
	DecideTx(tx *gorm.DB, id int64, status string) (int64, error)
}

type proposalRepository struct {
	db *gorm.DB
}

// NewProposalRepository creates a proposal repository
func NewProposalRepository(db *gorm.DB) ProposalRepository {
	return &proposalRepository{db: db}
}

func (r *proposalRepository) Create(ctx context.Context, proposal *model.Proposal) error {
	return r.db.WithContext(ctx).Create(proposal).Error
}

func (r *proposalRepository) GetByID(ctx context.Context, id int64) (*model.Proposal, error) {
	var proposal model.Proposal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&proposal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &proposal, nil
}

func (r *proposalRepository) PendingByAd(ctx context.Context, adID int64) ([]*model.Proposal, error) {
	var proposals []*model.Proposal
	err := r.db.WithContext(ctx).
		Where("ad_id = ? AND status = ?", adID, model.ProposalStatusPending).
		Order("created_at ASC").
		Find(&proposals).Error
	if err != nil {
		return nil, err
	}
	return proposals, nil
}

func (r *proposalRepository) DecideTx(tx *gorm.DB, id int64, status string) (int64, error) {
	res := tx.Model(&model.Proposal{}).
		Where("id = ? AND status = ?", id, model.ProposalStatusPending).
		Updates(map[string]interface{}{
			"status":     status,
			"decided_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}
