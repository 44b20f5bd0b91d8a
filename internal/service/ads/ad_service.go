package ads

import (
	"context"

	"milebot/internal/model"
	"milebot/internal/repository"
	"milebot/pkg/snowflake"
	"milebot/pkg/utils"
)

// ErrIncompleteDraft is returned when a flow tries to publish an ad
// before all mandatory answers were collected.
var ErrIncompleteDraft = utils.NewError(utils.CodeInvalidParam, "ad draft is missing required fields")

// CreateInput carries the collected flow answers for a new ad.
type CreateInput struct {
	OwnerID       int64
	OwnerUsername string
	Kind          string
	Airline       string
	Quantity      int64
	PricePerK     float64
	Passengers    *int
	Urgent        bool
}

// Service is the ad lifecycle engine.
type Service struct {
	ads repository.AdRepository
	ids *snowflake.IDGenerator
}

// NewService creates an ad service
func NewService(ads repository.AdRepository, ids *snowflake.IDGenerator) *Service {
	return &Service{ads: ads, ids: ids}
}

// Create validates the draft and persists a new ACTIVE ad.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Ad, error) {
	if in.Airline == "" || in.Quantity <= 0 || in.PricePerK <= 0 {
		return nil, ErrIncompleteDraft
	}
	if in.Kind == "" {
		in.Kind = model.AdKindSell
	}

	ad := &model.Ad{
		ID:            s.ids.NextID(),
		OwnerID:       in.OwnerID,
		OwnerUsername: in.OwnerUsername,
		Kind:          in.Kind,
		Airline:       in.Airline,
		Quantity:      in.Quantity,
		PricePerK:     in.PricePerK,
		Passengers:    in.Passengers,
		Urgent:        in.Urgent,
		Status:        model.AdStatusActive,
	}
	if err := s.ads.Create(ctx, ad); err != nil {
		return nil, err
	}
	return ad, nil
}

// GetByID returns the ad or nil when absent.
func (s *Service) GetByID(ctx context.Context, id int64) (*model.Ad, error) {
	return s.ads.GetByID(ctx, id)
}

// RecordPublication stores where the group post for the ad landed.
func (s *Service) RecordPublication(ctx context.Context, adID, chatID int64, messageID int) error {
	return s.ads.RecordPublication(ctx, adID, chatID, messageID)
}

// Cancel flips an ACTIVE ad to CANCELLED. Returns ErrAdNotActive when
// the ad already reached a terminal status, callers surface that as a
// benign warning.
func (s *Service) Cancel(ctx context.Context, adID, actorUserID int64) error {
	ad, err := s.ads.GetByID(ctx, adID)
	if err != nil {
		return err
	}
	if ad == nil {
		return utils.ErrAdNotFound
	}
	if ad.OwnerID != actorUserID {
		return utils.ErrAdNotOwned
	}
	if ad.IsTerminal() {
		return utils.ErrAdNotActive
	}

	affected, err := s.ads.Cancel(ctx, adID)
	if err != nil {
		return err
	}
	if affected == 0 {
		// Lost the race against an accept or another cancel
		return utils.ErrAdNotActive
	}
	return nil
}

// ListActiveForOwner returns the owner's ACTIVE ads that carry no
// ACCEPTED proposal. An accepted proposal means the deal is closing
// even if the ad row has not flipped yet, so those are filtered here.
func (s *Service) ListActiveForOwner(ctx context.Context, ownerID int64) ([]*model.Ad, error) {
	ads, err := s.ads.ListActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(ads) == 0 {
		return ads, nil
	}

	acceptedIDs, err := s.ads.AcceptedAdIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(acceptedIDs) == 0 {
		return ads, nil
	}

	accepted := make(map[int64]struct{}, len(acceptedIDs))
	for _, id := range acceptedIDs {
		accepted[id] = struct{}{}
	}

	filtered := ads[:0]
	for _, ad := range ads {
		if _, ok := accepted[ad.ID]; !ok {
			filtered = append(filtered, ad)
		}
	}
	return filtered, nil
}
