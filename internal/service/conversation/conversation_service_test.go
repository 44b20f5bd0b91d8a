package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milebot/internal/model"
)

type fakeStateRepo struct {
	rows map[int64]*model.ConversationState
}

func (r *fakeStateRepo) Get(ctx context.Context, userID int64) (*model.ConversationState, error) {
	return r.rows[userID], nil
}

func (r *fakeStateRepo) Upsert(ctx context.Context, state *model.ConversationState) error {
	r.rows[state.UserID] = state
	return nil
}

func (r *fakeStateRepo) Delete(ctx context.Context, userID int64) error {
	delete(r.rows, userID)
	return nil
}

func newTestService() (*Service, *fakeStateRepo) {
	repo := &fakeStateRepo{rows: make(map[int64]*model.ConversationState)}
	return NewService(repo, 0), repo
}

func TestGet_SynthesizesIdle(t *testing.T) {
	svc, _ := newTestService()

	state, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.StateIdle, state.State)
	assert.True(t, state.Scratch.IsEmpty())
}

func TestSet_NilScratchPreservesExisting(t *testing.T) {
	svc, repo := newTestService()
	repo.rows[7] = &model.ConversationState{
		UserID: 7,
		State:  model.StateAskSellMiles,
		Scratch: model.Scratch{
			Sell: &model.SellAdDraft{Airline: "Latam", Quantity: 10000},
		},
	}

	err := svc.Set(context.Background(), 7, model.StateAskSellPrice, nil)
	require.NoError(t, err)

	row := repo.rows[7]
	assert.Equal(t, model.StateAskSellPrice, row.State)
	require.NotNil(t, row.Scratch.Sell)
	assert.Equal(t, "Latam", row.Scratch.Sell.Airline)
}

func TestSet_WithScratchReplaces(t *testing.T) {
	svc, repo := newTestService()
	repo.rows[7] = &model.ConversationState{
		UserID:  7,
		State:   model.StateAskSellMiles,
		Scratch: model.Scratch{Sell: &model.SellAdDraft{Airline: "Latam"}},
	}

	err := svc.Set(context.Background(), 7, model.StateAskBuyMiles, &model.Scratch{
		Buy: &model.BuyAdDraft{Airline: "Gol"},
	})
	require.NoError(t, err)

	row := repo.rows[7]
	assert.Nil(t, row.Scratch.Sell)
	require.NotNil(t, row.Scratch.Buy)
	assert.Equal(t, "Gol", row.Scratch.Buy.Airline)
}

func TestMerge_MutatesCurrentScratch(t *testing.T) {
	svc, repo := newTestService()

	err := svc.Merge(context.Background(), 7, model.StateAskSellProgram, func(s *model.Scratch) {
		s.Sell = &model.SellAdDraft{Quantity: 10000}
	})
	require.NoError(t, err)

	err = svc.Merge(context.Background(), 7, model.StateAskSellPrice, func(s *model.Scratch) {
		s.Sell.Airline = "Smiles"
	})
	require.NoError(t, err)

	row := repo.rows[7]
	assert.Equal(t, model.StateAskSellPrice, row.State)
	assert.Equal(t, int64(10000), row.Scratch.Sell.Quantity)
	assert.Equal(t, "Smiles", row.Scratch.Sell.Airline)
}

func TestReset_BackToIdleEmpty(t *testing.T) {
	svc, repo := newTestService()
	repo.rows[7] = &model.ConversationState{
		UserID:  7,
		State:   model.StateRatingStars,
		Scratch: model.Scratch{Rating: &model.RatingDraft{AdID: 42, Stars: 3}},
	}

	require.NoError(t, svc.Reset(context.Background(), 7))
	assert.NotContains(t, repo.rows, int64(7))

	state, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.StateIdle, state.State)
	assert.True(t, state.Scratch.IsEmpty())
}

func TestGet_StaleRowReadAsIdle(t *testing.T) {
	repo := &fakeStateRepo{rows: make(map[int64]*model.ConversationState)}
	svc := NewService(repo, time.Hour)

	repo.rows[7] = &model.ConversationState{
		UserID:    7,
		State:     model.StateAskSellPrice,
		Scratch:   model.Scratch{Sell: &model.SellAdDraft{Quantity: 10000}},
		UpdatedAt: time.Now().Add(-2 * time.Hour),
	}

	state, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.StateIdle, state.State)
	assert.True(t, state.Scratch.IsEmpty())

	inFlow, err := svc.IsInFlow(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, inFlow)

	// A fresh row keeps its state
	repo.rows[8] = &model.ConversationState{
		UserID:    8,
		State:     model.StateAskSellPrice,
		UpdatedAt: time.Now(),
	}
	state, err = svc.Get(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, model.StateAskSellPrice, state.State)
}

func TestIsInFlow(t *testing.T) {
	svc, repo := newTestService()

	inFlow, err := svc.IsInFlow(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, inFlow)

	repo.rows[7] = &model.ConversationState{UserID: 7, State: model.StateAskBuyPassengers}
	inFlow, err = svc.IsInFlow(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, inFlow)
}
