package ads

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milebot/internal/model"
	"milebot/pkg/snowflake"
	"milebot/pkg/utils"
)

type fakeAdRepo struct {
	ads         map[int64]*model.Ad
	acceptedIDs []int64
}

func newFakeAdRepo() *fakeAdRepo {
	return &fakeAdRepo{ads: make(map[int64]*model.Ad)}
}

func (r *fakeAdRepo) Create(ctx context.Context, ad *model.Ad) error {
	r.ads[ad.ID] = ad
	return nil
}

func (r *fakeAdRepo) GetByID(ctx context.Context, id int64) (*model.Ad, error) {
	return r.ads[id], nil
}

func (r *fakeAdRepo) RecordPublication(ctx context.Context, id, chatID int64, messageID int) error {
	ad := r.ads[id]
	if ad == nil {
		return errors.New("no such ad")
	}
	ad.PostChatID = &chatID
	ad.PostMessageID = &messageID
	return nil
}

func (r *fakeAdRepo) MarkSold(ctx context.Context, id int64) (int64, error) {
	ad := r.ads[id]
	if ad == nil || ad.Status != model.AdStatusActive {
		return 0, nil
	}
	ad.Status = model.AdStatusSold
	return 1, nil
}

func (r *fakeAdRepo) Cancel(ctx context.Context, id int64) (int64, error) {
	ad := r.ads[id]
	if ad == nil || ad.Status != model.AdStatusActive {
		return 0, nil
	}
	ad.Status = model.AdStatusCancelled
	return 1, nil
}

func (r *fakeAdRepo) ListActiveByOwner(ctx context.Context, ownerID int64) ([]*model.Ad, error) {
	var out []*model.Ad
	for _, ad := range r.ads {
		if ad.OwnerID == ownerID && ad.Status == model.AdStatusActive {
			out = append(out, ad)
		}
	}
	return out, nil
}

func (r *fakeAdRepo) AcceptedAdIDs(ctx context.Context, ownerID int64) ([]int64, error) {
	return r.acceptedIDs, nil
}

func newTestService(t *testing.T) (*Service, *fakeAdRepo) {
	ids, err := snowflake.NewIDGenerator(1)
	require.NoError(t, err)
	repo := newFakeAdRepo()
	return NewService(repo, ids), repo
}

func TestCreate_IncompleteDraft(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"missing airline", CreateInput{OwnerID: 1, Quantity: 1000, PricePerK: 20}},
		{"missing quantity", CreateInput{OwnerID: 1, Airline: "Smiles", PricePerK: 20}},
		{"missing price", CreateInput{OwnerID: 1, Airline: "Smiles", Quantity: 1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			assert.ErrorIs(t, err, ErrIncompleteDraft)
		})
	}
}

func TestCreate_DefaultsToSell(t *testing.T) {
	svc, _ := newTestService(t)

	ad, err := svc.Create(context.Background(), CreateInput{
		OwnerID:   1,
		Airline:   "Smiles",
		Quantity:  10000,
		PricePerK: 22.50,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AdKindSell, ad.Kind)
	assert.Equal(t, model.AdStatusActive, ad.Status)
	assert.NotZero(t, ad.ID)
}

func TestCancel_NotOwner(t *testing.T) {
	svc, repo := newTestService(t)
	repo.ads[42] = &model.Ad{ID: 42, OwnerID: 1, Status: model.AdStatusActive}

	err := svc.Cancel(context.Background(), 42, 999)
	assert.ErrorIs(t, err, utils.ErrAdNotOwned)
	assert.Equal(t, model.AdStatusActive, repo.ads[42].Status)
}

func TestCancel_AlreadyTerminal(t *testing.T) {
	svc, repo := newTestService(t)
	repo.ads[42] = &model.Ad{ID: 42, OwnerID: 1, Status: model.AdStatusSold}

	err := svc.Cancel(context.Background(), 42, 1)
	assert.ErrorIs(t, err, utils.ErrAdNotActive)
	// Terminal status untouched
	assert.Equal(t, model.AdStatusSold, repo.ads[42].Status)
}

func TestCancel_Active(t *testing.T) {
	svc, repo := newTestService(t)
	repo.ads[42] = &model.Ad{ID: 42, OwnerID: 1, Status: model.AdStatusActive}

	err := svc.Cancel(context.Background(), 42, 1)
	require.NoError(t, err)
	assert.Equal(t, model.AdStatusCancelled, repo.ads[42].Status)
}

func TestListActiveForOwner_FiltersAcceptedDeals(t *testing.T) {
	svc, repo := newTestService(t)
	repo.ads[1] = &model.Ad{ID: 1, OwnerID: 7, Status: model.AdStatusActive}
	repo.ads[2] = &model.Ad{ID: 2, OwnerID: 7, Status: model.AdStatusActive}
	repo.ads[3] = &model.Ad{ID: 3, OwnerID: 7, Status: model.AdStatusCancelled}
	// Ad 2 already has an accepted proposal even though its row is
	// still ACTIVE
	repo.acceptedIDs = []int64{2}

	ads, err := svc.ListActiveForOwner(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, ads, 1)
	assert.Equal(t, int64(1), ads[0].ID)
}
