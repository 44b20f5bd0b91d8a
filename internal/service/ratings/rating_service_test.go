package ratings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"milebot/internal/model"
	"milebot/internal/repository"
	"milebot/pkg/snowflake"
	"milebot/pkg/utils"
)

type fakeRatingRepo struct {
	ratings map[int64]*model.Rating
}

func (r *fakeRatingRepo) Create(ctx context.Context, rating *model.Rating) error {
	r.ratings[rating.ID] = rating
	return nil
}

func (r *fakeRatingRepo) GetByID(ctx context.Context, id int64) (*model.Rating, error) {
	return r.ratings[id], nil
}

func (r *fakeRatingRepo) Confirm(ctx context.Context, id int64) (int64, error) {
	rating := r.ratings[id]
	if rating == nil || rating.Confirmed {
		return 0, nil
	}
	rating.Confirmed = true
	return 1, nil
}

func (r *fakeRatingRepo) AverageStars(ctx context.Context, userID int64) (float64, int64, error) {
	return 0, 0, nil
}

func (r *fakeRatingRepo) Stats(ctx context.Context, userID int64) (*repository.RatingStats, error) {
	return &repository.RatingStats{}, nil
}

func (r *fakeRatingRepo) StatsSince(ctx context.Context, userID int64, since time.Time) (*repository.RatingStats, error) {
	return &repository.RatingStats{}, nil
}

type fakeHistoryRepo struct {
	entries []*model.MileHistory
	failed  bool
}

func (r *fakeHistoryRepo) Insert(ctx context.Context, entry *model.MileHistory) error {
	if r.failed {
		return errors.New("ledger unavailable")
	}
	r.entries = append(r.entries, entry)
	return nil
}

type fakeProposalRepo struct {
	proposals map[int64]*model.Proposal
}

func (r *fakeProposalRepo) Create(ctx context.Context, p *model.Proposal) error { return nil }
func (r *fakeProposalRepo) GetByID(ctx context.Context, id int64) (*model.Proposal, error) {
	return r.proposals[id], nil
}
func (r *fakeProposalRepo) PendingByAd(ctx context.Context, adID int64) ([]*model.Proposal, error) {
	return nil, nil
}
func (r *fakeProposalRepo) DecideTx(tx *gorm.DB, id int64, status string) (int64, error) {
	return 0, nil
}

type fakeAdRepo struct {
	ads map[int64]*model.Ad
}

func (r *fakeAdRepo) Create(ctx context.Context, ad *model.Ad) error { return nil }
func (r *fakeAdRepo) GetByID(ctx context.Context, id int64) (*model.Ad, error) {
	return r.ads[id], nil
}
func (r *fakeAdRepo) RecordPublication(ctx context.Context, id, chatID int64, messageID int) error {
	return nil
}
func (r *fakeAdRepo) MarkSold(ctx context.Context, id int64) (int64, error) { return 1, nil }
func (r *fakeAdRepo) Cancel(ctx context.Context, id int64) (int64, error)   { return 1, nil }
func (r *fakeAdRepo) ListActiveByOwner(ctx context.Context, ownerID int64) ([]*model.Ad, error) {
	return nil, nil
}
func (r *fakeAdRepo) AcceptedAdIDs(ctx context.Context, ownerID int64) ([]int64, error) {
	return nil, nil
}

type fixtures struct {
	svc       *Service
	ratings   *fakeRatingRepo
	history   *fakeHistoryRepo
	proposals *fakeProposalRepo
	ads       *fakeAdRepo
}

func newFixtures(t *testing.T) *fixtures {
	ids, err := snowflake.NewIDGenerator(1)
	require.NoError(t, err)

	f := &fixtures{
		ratings:   &fakeRatingRepo{ratings: make(map[int64]*model.Rating)},
		history:   &fakeHistoryRepo{},
		proposals: &fakeProposalRepo{proposals: make(map[int64]*model.Proposal)},
		ads:       &fakeAdRepo{ads: make(map[int64]*model.Ad)},
	}
	f.svc = NewService(f.ratings, f.history, f.proposals, f.ads, ids)
	return f
}

func (f *fixtures) seedDeal(kind string) (adID, proposalID int64) {
	f.ads.ads[42] = &model.Ad{ID: 42, OwnerID: 7, Kind: kind, Airline: "Latam", Status: model.AdStatusSold}
	f.proposals.proposals[100] = &model.Proposal{
		ID: 100, AdID: 42, FromUserID: 8, Quantity: 5000,
		Status: model.ProposalStatusAccepted,
	}
	return 42, 100
}

func TestCreateDraft_RequiresProposal(t *testing.T) {
	f := newFixtures(t)

	_, err := f.svc.CreateDraft(context.Background(), 8, model.RatingDraft{
		AdID: 42, ToUserID: 7, Stars: 5,
	})
	require.Error(t, err)
	assert.Equal(t, utils.CodeInvalidParam, utils.GetErrorCode(err))
}

func TestCreateDraft_StarsRange(t *testing.T) {
	f := newFixtures(t)

	for _, stars := range []int{0, 6} {
		_, err := f.svc.CreateDraft(context.Background(), 8, model.RatingDraft{
			AdID: 42, ProposalID: 100, ToUserID: 7, Stars: stars,
		})
		require.Error(t, err, "stars=%d", stars)
	}

	rating, err := f.svc.CreateDraft(context.Background(), 8, model.RatingDraft{
		AdID: 42, ProposalID: 100, ToUserID: 7, Stars: 3,
	})
	require.NoError(t, err)
	assert.False(t, rating.Confirmed)
}

func TestConfirmRating_NotFound(t *testing.T) {
	f := newFixtures(t)

	_, err := f.svc.ConfirmRating(context.Background(), 999)
	assert.ErrorIs(t, err, utils.ErrRatingNotFound)
}

func TestConfirmRating_SellAdLedgerDirections(t *testing.T) {
	f := newFixtures(t)
	adID, proposalID := f.seedDeal(model.AdKindSell)
	f.ratings.ratings[1] = &model.Rating{
		ID: 1, AdID: adID, ProposalID: proposalID, FromUserID: 8, ToUserID: 7, Stars: 5,
	}

	result, err := f.svc.ConfirmRating(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, result.AlreadyConfirmed)
	assert.False(t, result.HistoryDelayed)

	require.Len(t, f.history.entries, 2)
	byDirection := map[string]*model.MileHistory{}
	for _, e := range f.history.entries {
		byDirection[e.Direction] = e
	}
	// SELL ad: owner 7 sold, proposer 8 bought
	assert.Equal(t, int64(7), byDirection[model.HistoryDirectionSold].UserID)
	assert.Equal(t, int64(8), byDirection[model.HistoryDirectionBought].UserID)
	assert.Equal(t, int64(5000), byDirection[model.HistoryDirectionSold].Quantity)
	assert.Equal(t, "Latam", byDirection[model.HistoryDirectionBought].Airline)
}

func TestConfirmRating_BuyAdSwapsDirections(t *testing.T) {
	f := newFixtures(t)
	adID, proposalID := f.seedDeal(model.AdKindBuy)
	f.ratings.ratings[1] = &model.Rating{
		ID: 1, AdID: adID, ProposalID: proposalID, FromUserID: 7, ToUserID: 8, Stars: 4,
	}

	_, err := f.svc.ConfirmRating(context.Background(), 1)
	require.NoError(t, err)

	byDirection := map[string]*model.MileHistory{}
	for _, e := range f.history.entries {
		byDirection[e.Direction] = e
	}
	// BUY ad: proposer 8 sold, owner 7 bought
	assert.Equal(t, int64(8), byDirection[model.HistoryDirectionSold].UserID)
	assert.Equal(t, int64(7), byDirection[model.HistoryDirectionBought].UserID)
}

func TestConfirmRating_Replay(t *testing.T) {
	f := newFixtures(t)
	adID, proposalID := f.seedDeal(model.AdKindSell)
	f.ratings.ratings[1] = &model.Rating{
		ID: 1, AdID: adID, ProposalID: proposalID, FromUserID: 8, ToUserID: 7, Stars: 5,
	}

	first, err := f.svc.ConfirmRating(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, first.AlreadyConfirmed)

	second, err := f.svc.ConfirmRating(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, second.AlreadyConfirmed)

	// Ledger written once, not twice
	assert.Len(t, f.history.entries, 2)
}

func TestConfirmRating_LedgerFailureKeepsConfirm(t *testing.T) {
	f := newFixtures(t)
	adID, proposalID := f.seedDeal(model.AdKindSell)
	f.ratings.ratings[1] = &model.Rating{
		ID: 1, AdID: adID, ProposalID: proposalID, FromUserID: 8, ToUserID: 7, Stars: 5,
	}
	f.history.failed = true

	result, err := f.svc.ConfirmRating(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, result.HistoryDelayed)
	assert.True(t, f.ratings.ratings[1].Confirmed)
}
