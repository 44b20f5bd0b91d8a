package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"milebot/internal/model"
)

// AdRepository ad repository interface
type AdRepository interface {
	// Create ad
	Create(ctx context.Context, ad *model.Ad) error

	// Get ad by ID, nil when absent
	GetByID(ctx context.Context, id int64) (*model.Ad, error)

	// Record where the ad was published in the group
	RecordPublication(ctx context.Context, id, chatID int64, messageID int) error

	// Flip ACTIVE to SOLD, returns rows affected
	MarkSold(ctx context.Context, id int64) (int64, error)

	// Flip ACTIVE to CANCELLED, returns rows affected
	Cancel(ctx context.Context, id int64) (int64, error)

	// List ACTIVE ads of one owner, newest first
	ListActiveByOwner(ctx context.Context, ownerID int64) ([]*model.Ad, error)

	// Ad ids of the owner's ads that carry an ACCEPTED proposal
	AcceptedAdIDs(ctx context.Context, ownerID int64) ([]int64, error)
}

type adRepository struct {
	db *gorm.DB
}

// NewAdRepository creates an ad repository
func NewAdRepository(db *gorm.DB) AdRepository {
	return &adRepository{db: db}
}

func (r *adRepository) Create(ctx context.Context, ad *model.Ad) error {
	return r.db.WithContext(ctx).Create(ad).Error
}

func (r *adRepository) GetByID(ctx context.Context, id int64) (*model.Ad, error) {
	var ad model.Ad
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ad).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ad, nil
}

func (r *adRepository) RecordPublication(ctx context.Context, id, chatID int64, messageID int) error {
	return r.db.WithContext(ctx).Model(&model.Ad{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"post_chat_id":    chatID,
			"post_message_id": messageID,
		}).Error
}

func (r *adRepository) MarkSold(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Ad{}).
		Where("id = ? AND status = ?", id, model.AdStatusActive).
		Updates(map[string]interface{}{
			"status":  model.AdStatusSold,
			"sold_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *adRepository) Cancel(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Ad{}).
		Where("id = ? AND status = ?", id, model.AdStatusActive).
		Update("status", model.AdStatusCancelled)
	return res.RowsAffected, res.Error
}

func (r *adRepository) ListActiveByOwner(ctx context.Context, ownerID int64) ([]*model.Ad, error) {
	var ads []*model.Ad
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", ownerID, model.AdStatusActive).
		Order("created_at DESC").
		Find(&ads).Error
	if err != nil {
		return nil, err
	}
	return ads, nil
}

func (r *adRepository) AcceptedAdIDs(ctx context.Context, ownerID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&model.Proposal{}).
		Select("proposals.ad_id").
		Joins("JOIN ads ON ads.id = proposals.ad_id").
		Where("ads.owner_id = ? AND proposals.status = ?", ownerID, model.ProposalStatusAccepted).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
