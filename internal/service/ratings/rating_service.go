package ratings

import (
	"context"
	"time"

	"milebot/internal/model"
	"milebot/internal/repository"
	"milebot/pkg/log"
	"milebot/pkg/snowflake"
	"milebot/pkg/utils"
)

// ConfirmResult reports the outcome of a rating confirmation.
type ConfirmResult struct {
	// AlreadyConfirmed is true when this was a replay
	AlreadyConfirmed bool
	// HistoryDelayed is true when the rating confirmed but the mile
	// ledger could not be fully written, the caller tells the user the
	// history will catch up
	HistoryDelayed bool
}

// DetailedStats is the stats card payload: lifetime plus current-month
// aggregates.
type DetailedStats struct {
	Lifetime  repository.RatingStats
	ThisMonth repository.RatingStats
}

// Service is the rating and mile-ledger engine.
type Service struct {
	ratings   repository.RatingRepository
	history   repository.HistoryRepository
	proposals repository.ProposalRepository
	ads       repository.AdRepository
	ids       *snowflake.IDGenerator
}

// NewService creates a rating service
func NewService(
	ratings repository.RatingRepository,
	history repository.HistoryRepository,
	proposals repository.ProposalRepository,
	ads repository.AdRepository,
	ids *snowflake.IDGenerator,
) *Service {
	return &Service{
		ratings:   ratings,
		history:   history,
		proposals: proposals,
		ads:       ads,
		ids:       ids,
	}
}

// CreateDraft persists an unconfirmed rating from the dialogue scratch.
func (s *Service) CreateDraft(ctx context.Context, fromUserID int64, draft model.RatingDraft) (*model.Rating, error) {
	if draft.ProposalID == 0 {
		return nil, utils.NewError(utils.CodeInvalidParam, "rating requires a proposal")
	}
	if draft.Stars < 1 || draft.Stars > 5 {
		return nil, utils.NewError(utils.CodeInvalidParam, "stars must be between 1 and 5")
	}

	rating := &model.Rating{
		ID:         s.ids.NextID(),
		AdID:       draft.AdID,
		ProposalID: draft.ProposalID,
		FromUserID: fromUserID,
		ToUserID:   draft.ToUserID,
		TargetRole: draft.TargetRole,
		Recommend:  draft.Recommend,
		Stars:      draft.Stars,
		Confirmed:  false,
	}
	if err := s.ratings.Create(ctx, rating); err != nil {
		return nil, err
	}
	return rating, nil
}

// ConfirmRating makes a draft rating count and writes the mile ledger.
// The whole operation is idempotent: replays after the confirm flip
// succeed without double-counting, and ledger rows are keyed by
// (proposal, user, direction) so duplicate inserts are skipped.
func (s *Service) ConfirmRating(ctx context.Context, ratingID int64) (*ConfirmResult, error) {
	rating, err := s.ratings.GetByID(ctx, ratingID)
	if err != nil {
		return nil, err
	}
	if rating == nil {
		return nil, utils.ErrRatingNotFound
	}
	if rating.Confirmed {
		return &ConfirmResult{AlreadyConfirmed: true}, nil
	}

	affected, err := s.ratings.Confirm(ctx, ratingID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Concurrent confirm won, nothing left to do
		return &ConfirmResult{AlreadyConfirmed: true}, nil
	}

	// From here on the rating stays confirmed regardless of ledger
	// trouble, the ledger can be replayed later.
	result := &ConfirmResult{}
	if err := s.writeLedger(ctx, rating); err != nil {
		log.WithError(err).WithField("rating_id", ratingID).
			Warn("Rating confirmed but mile ledger incomplete")
		result.HistoryDelayed = true
	}
	return result, nil
}

// writeLedger records the traded miles for both parties of the deal.
func (s *Service) writeLedger(ctx context.Context, rating *model.Rating) error {
	proposal, err := s.proposals.GetByID(ctx, rating.ProposalID)
	if err != nil {
		return err
	}
	if proposal == nil {
		return utils.ErrProposalNotFound
	}

	ad, err := s.ads.GetByID(ctx, proposal.AdID)
	if err != nil {
		return err
	}
	if ad == nil {
		return utils.ErrAdNotFound
	}

	// On a SELL ad the owner hands miles over, on a BUY ad the
	// proposer does.
	sellerID, buyerID := ad.OwnerID, proposal.FromUserID
	if ad.Kind == model.AdKindBuy {
		sellerID, buyerID = proposal.FromUserID, ad.OwnerID
	}

	entries := []*model.MileHistory{
		{
			ProposalID: proposal.ID,
			UserID:     sellerID,
			Direction:  model.HistoryDirectionSold,
			Airline:    ad.Airline,
			Quantity:   proposal.Quantity,
		},
		{
			ProposalID: proposal.ID,
			UserID:     buyerID,
			Direction:  model.HistoryDirectionBought,
			Airline:    ad.Airline,
			Quantity:   proposal.Quantity,
		},
	}
	for _, entry := range entries {
		if err := s.history.Insert(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// AverageStars returns the confirmed-rating average for reputation
// lines, count 0 means unrated.
func (s *Service) AverageStars(ctx context.Context, userID int64) (float64, int64, error) {
	return s.ratings.AverageStars(ctx, userID)
}

// Stats builds the detailed stats card for a user.
func (s *Service) Stats(ctx context.Context, userID int64) (*DetailedStats, error) {
	lifetime, err := s.ratings.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	month, err := s.ratings.StatsSince(ctx, userID, monthStart)
	if err != nil {
		return nil, err
	}

	return &DetailedStats{
		Lifetime:  *lifetime,
		ThisMonth: *month,
	}, nil
}
