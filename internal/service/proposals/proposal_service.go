package proposals

import (
	"context"
	"time"

	"gorm.io/gorm"

	"milebot/internal/model"
	"milebot/internal/repository"
	"milebot/pkg/snowflake"
	"milebot/pkg/utils"
)

// Service is the proposal lifecycle engine. Accept and Reject are the
// only status transitions and both run under a status = PENDING guard,
// so each proposal is decided exactly once no matter how many times a
// button is pressed.
type Service struct {
	db        *gorm.DB
	proposals repository.ProposalRepository
	ads       repository.AdRepository
	ids       *snowflake.IDGenerator
}

// NewService creates a proposal service
func NewService(db *gorm.DB, proposals repository.ProposalRepository, ads repository.AdRepository, ids *snowflake.IDGenerator) *Service {
	return &Service{db: db, proposals: proposals, ads: ads, ids: ids}
}

// Create records a new PENDING proposal against an ad. Repeat calls
// create additional pending rows, the ad owner sees and decides each.
func (s *Service) Create(ctx context.Context, adID, fromUserID int64, fromUsername string, quantity int64, pricePerK float64) (*model.Proposal, error) {
	ad, err := s.ads.GetByID(ctx, adID)
	if err != nil {
		return nil, err
	}
	if ad == nil {
		return nil, utils.ErrAdNotFound
	}
	if !ad.IsActive() {
		return nil, utils.ErrAdNotActive
	}
	if ad.OwnerID == fromUserID {
		return nil, utils.ErrSelfProposal
	}

	proposal := &model.Proposal{
		ID:           s.ids.NextID(),
		AdID:         adID,
		FromUserID:   fromUserID,
		FromUsername: fromUsername,
		Quantity:     quantity,
		PricePerK:    pricePerK,
		Status:       model.ProposalStatusPending,
	}
	if err := s.proposals.Create(ctx, proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

// GetByID returns the proposal or nil when absent.
func (s *Service) GetByID(ctx context.Context, id int64) (*model.Proposal, error) {
	return s.proposals.GetByID(ctx, id)
}

// PendingByAd lists undecided proposals for an ad, oldest first.
func (s *Service) PendingByAd(ctx context.Context, adID int64) ([]*model.Proposal, error) {
	return s.proposals.PendingByAd(ctx, adID)
}

// Accept flips the proposal to ACCEPTED and the ad to SOLD in one
// transaction. Only the ad owner may accept. A proposal that was
// already decided yields ErrAlreadyProcessed and no side effects.
func (s *Service) Accept(ctx context.Context, id, actorUserID int64) (*model.Proposal, *model.Ad, error) {
	proposal, err := s.proposals.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if proposal == nil {
		return nil, nil, utils.ErrProposalNotFound
	}

	ad, err := s.ads.GetByID(ctx, proposal.AdID)
	if err != nil {
		return nil, nil, err
	}
	if ad == nil {
		return nil, nil, utils.ErrAdNotFound
	}
	if ad.OwnerID != actorUserID {
		return nil, nil, utils.ErrAdNotOwned
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.proposals.DecideTx(tx, id, model.ProposalStatusAccepted)
		if err != nil {
			return err
		}
		if affected == 0 {
			return utils.ErrAlreadyProcessed
		}

		res := tx.Model(&model.Ad{}).
			Where("id = ? AND status = ?", ad.ID, model.AdStatusActive).
			Updates(map[string]interface{}{
				"status":  model.AdStatusSold,
				"sold_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Ad left ACTIVE status concurrently, roll the accept back
			return utils.ErrAdNotActive
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	proposal.Status = model.ProposalStatusAccepted
	ad.Status = model.AdStatusSold
	return proposal, ad, nil
}

// Reject flips the proposal to REJECTED under the same guard, with no
// ad-side effect.
func (s *Service) Reject(ctx context.Context, id, actorUserID int64) (*model.Proposal, error) {
	proposal, err := s.proposals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, utils.ErrProposalNotFound
	}

	ad, err := s.ads.GetByID(ctx, proposal.AdID)
	if err != nil {
		return nil, err
	}
	if ad == nil {
		return nil, utils.ErrAdNotFound
	}
	if ad.OwnerID != actorUserID {
		return nil, utils.ErrAdNotOwned
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.proposals.DecideTx(tx, id, model.ProposalStatusRejected)
		if err != nil {
			return err
		}
		if affected == 0 {
			return utils.ErrAlreadyProcessed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	proposal.Status = model.ProposalStatusRejected
	return proposal, nil
}
