package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"milebot/internal/model"
)

// Every non-idle state must have a text handler, otherwise a user
// typing mid-flow would silently fall into the reset path.
func TestTextHandlersCoverAllStates(t *testing.T) {
	states := []model.State{
		model.StateAskSellMiles,
		model.StateAskSellProgram,
		model.StateAskSellPrice,
		model.StateConfirmSellAd,
		model.StateAskBuyMiles,
		model.StateAskBuyProgram,
		model.StateAskBuyPassengers,
		model.StateAskBuyUrgent,
		model.StateAskBuyPrice,
		model.StateConfirmBuyAd,
		model.StateAskProposalQuantity,
		model.StateAskProposalPrice,
		model.StateProposalReview,
		model.StateRatingRecommend,
		model.StateRatingStars,
		model.StateRatingConfirm,
		model.StateAskPixCPF,
		model.StateAskLoginEmail,
		model.StateAskLoginPassword,
	}

	for _, state := range states {
		_, ok := textHandlers[state]
		assert.True(t, ok, "state %s has no text handler", state)
	}
	assert.NotContains(t, textHandlers, model.StateIdle, "idle must route to the menu, not a handler")
	assert.Len(t, textHandlers, len(states))
}
