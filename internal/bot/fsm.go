package bot

import (
	"context"

	"milebot/internal/model"
	"milebot/internal/telegram"
	"milebot/pkg/log"
)

// TextHandler consumes one free-text message while the user is parked
// in the corresponding state.
type TextHandler func(b *Bot, ctx context.Context, msg *telegram.Message, state *model.ConversationState) error

// textHandlers is the full free-text routing table. Text arriving in a
// state outside this table resets the conversation, that keeps a user
// from getting stuck after a deploy changes the state set.
var textHandlers = map[model.State]TextHandler{
	model.StateAskSellMiles:   (*Bot).handleSellMiles,
	model.StateAskSellProgram: (*Bot).handleSellProgramText,
	model.StateAskSellPrice:   (*Bot).handleSellPrice,
	model.StateConfirmSellAd:  (*Bot).handleConfirmStateText,

	model.StateAskBuyMiles:      (*Bot).handleBuyMiles,
	model.StateAskBuyProgram:    (*Bot).handleBuyProgramText,
	model.StateAskBuyPassengers: (*Bot).handleBuyPassengers,
	model.StateAskBuyUrgent:     (*Bot).handleConfirmStateText,
	model.StateAskBuyPrice:      (*Bot).handleBuyPrice,
	model.StateConfirmBuyAd:     (*Bot).handleConfirmStateText,

	model.StateAskProposalQuantity: (*Bot).handleProposalQuantity,
	model.StateAskProposalPrice:    (*Bot).handleProposalPrice,
	model.StateProposalReview:      (*Bot).handleConfirmStateText,

	model.StateRatingRecommend: (*Bot).handleConfirmStateText,
	model.StateRatingStars:     (*Bot).handleConfirmStateText,
	model.StateRatingConfirm:   (*Bot).handleConfirmStateText,

	model.StateAskPixCPF: (*Bot).handlePixCPF,

	model.StateAskLoginEmail:    (*Bot).handleLoginEmail,
	model.StateAskLoginPassword: (*Bot).handleLoginPassword,
}

func (b *Bot) handleText(ctx context.Context, msg *telegram.Message) error {
	userID := msg.From.ID

	state, err := b.conv.Get(ctx, userID)
	if err != nil {
		return err
	}
	if state.IsIdle() {
		return b.showMainMenu(ctx, userID, msg.Chat.ID)
	}

	handler, ok := textHandlers[state.State]
	if !ok {
		log.WithFields(map[string]interface{}{
			"user_id": userID,
			"state":   state.State,
		}).Warn("Text in unknown conversation state, resetting")
		if err := b.conv.Reset(ctx, userID); err != nil {
			return err
		}
		return b.showMainMenu(ctx, userID, msg.Chat.ID)
	}
	return handler(b, ctx, msg, state)
}

// handleConfirmStateText covers states whose answer arrives via inline
// buttons: stray text there is ignored so the buttons stay usable.
func (b *Bot) handleConfirmStateText(ctx context.Context, msg *telegram.Message, state *model.ConversationState) error {
	return b.reply(ctx, msg.Chat.ID, "⬆️ Use os botões acima para continuar, ou /cancel para sair.")
}
