package bot

import (
	"context"
	"strings"

	"milebot/internal/model"
	"milebot/internal/service/ads"
	"milebot/internal/telegram"
	"milebot/pkg/utils"
)

func (b *Bot) startBuyAd(ctx context.Context, userID, chatID int64) error {
	if err := b.conv.Set(ctx, userID, model.StateAskBuyMiles, &model.Scratch{Buy: &model.BuyAdDraft{}}); err != nil {
		return err
	}
	return b.reply(ctx, chatID,
		"⚠️ <b>ATENÇÃO:</b>\nSe você deseja <b>COMPRAR</b> milhas, continue o preenchimento.\n\nQuantas milhas você precisa <b>COMPRAR</b>?")
}

func (b *Bot) handleBuyMiles(ctx context.Context, msg *telegram.Message, state *model.ConversationState) error {
	qty, err := utils.ValidateQuantity(msg.Text)
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "❌ Número inválido. Por favor, digite a quantidade correta (ex: 5.000 ou 5000).")
	}

	if err := b.conv.Merge(ctx, msg.From.ID, model.StateAskBuyProgram, func(s *model.Scratch) {
		if s.Buy == nil {
			s.Buy = &model.BuyAdDraft{}
		}
		s.Buy.Quantity = qty
	}); err != nil {
		return err
	}

	return b.replyWithKeyboard(ctx, msg.Chat.ID,
		"🏢 <b>De qual programa de fidelidade você deseja COMPRAR milhas?</b>\n(selecione uma opção ou digite outro)",
		programKeyboard("buy"))
}

func (b *Bot) handleBuyProgramText(ctx context.Context, msg *telegram.Message, state *model.ConversationState) error {
	program, err := utils.ValidateAirline(msg.Text)
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "❌ "+utils.GetErrorMessage(err)+" Digite novamente:")
	}
	return b.setBuyProgram(ctx, msg.From.ID, msg.Chat.ID, strings.ToUpper(program))
}

func (b *Bot) setBuyProgram(ctx context.Context, userID, chatID int64, program string) error {
	if err := b.conv.Merge(ctx, userID, model.StateAskBuyPassengers, func(s *model.Scratch) {
		if s.Buy == nil {
			s.Buy = &model.BuyAdDraft{}
		}
		s.Buy.Airline = program
	}); err != nil {
		return err
	}
	return b.reply(ctx, chatID,
		"👥 <b>Para quantos passageiros (CPFs) será a emissão?</b>\n(digite apenas o número, de 1 a 20)")
}

func (b *Bot) handleBuyPassengers(ctx context.Context, msg *telegram.Message, state *model.ConversationState) error {
	passengers, err := utils.ValidatePassengers(msg.Text)
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "❌ "+utils.GetErrorMessage(err)+" Digite novamente:")
	}

	if err := b.conv.Merge(ctx, msg.From.ID, model.StateAskBuyUrgent, func(s *model.Scratch) {
		if s.Buy == nil {
			s.Buy = &model.BuyAdDraft{}
		}
		s.Buy.Passengers = passengers
	}); err != nil {
		return err
	}

	return b.replyWithKeyboard(ctx, msg.Chat.ID,
		"⏰ <b>A emissão é para menos de 7 dias?</b>",
		telegram.Keyboard(
			telegram.Row(telegram.Btn("⚠️ SIM, é urgente", "urgent_buy_yes")),
			telegram.Row(telegram.Btn("✅ NÃO, tenho prazo", "urgent_buy_no")),
		))
}

// setBuyUrgent runs on the urgent_buy_* buttons.
func (b *Bot) setBuyUrgent(ctx context.Context, userID, chatID int64, urgent bool) error {
	if err := b.conv.Merge(ctx, userID, model.StateAskBuyPrice, func(s *model.Scratch) {
		if s.Buy == nil {
			s.Buy = &model.BuyAdDraft{}
		}
		s.Buy.Urgent = urgent
	}); err != nil {
		return err
	}
	return b.reply(ctx, chatID,
		"💰 <b>Qual valor você deseja PAGAR por cada mil milhas?</b>\n(digite apenas números, ex: 26 ou 26,00)")
}

func (b *Bot) handleBuyPrice(ctx context.Context, msg *telegram.Message, state *model.ConversationState) error {
	price, err := utils.ValidatePrice(msg.Text)
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "❌ "+utils.GetErrorMessage(err)+" Tente novamente:")
	}

	userID := msg.From.ID
	if err := b.conv.Merge(ctx, userID, model.StateConfirmBuyAd, func(s *model.Scratch) {
		if s.Buy == nil {
			s.Buy = &model.BuyAdDraft{}
		}
		s.Buy.PricePerK = price
	}); err != nil {
		return err
	}

	current, err := b.conv.Get(ctx, userID)
	if err != nil {
		return err
	}
	draft := current.Scratch.Buy
	if draft == nil || draft.Quantity == 0 || draft.Airline == "" || draft.Passengers == 0 {
		if err := b.reply(ctx, msg.Chat.ID, "❌ Erro nos dados. Vamos recomeçar."); err != nil {
			return err
		}
		return b.startBuyAd(ctx, userID, msg.Chat.ID)
	}

	return b.replyWithKeyboard(ctx, msg.Chat.ID, buyAdSummary(draft),
		telegram.Keyboard(
			telegram.Row(telegram.Btn("✅ CONFIRMO", "confirm_buy_yes")),
			telegram.Row(telegram.Btn("🔄 REINICIAR", "confirm_buy_restart")),
		))
}

// finishBuyAd runs on the confirm button: persists the ad, enqueues
// the group publication and leaves the user idle.
func (b *Bot) finishBuyAd(ctx context.Context, userID, chatID int64, username string) error {
	state, err := b.conv.Get(ctx, userID)
	if err != nil {
		return err
	}
	draft := state.Scratch.Buy
	if draft == nil {
		if err := b.reply(ctx, chatID, "❌ Dados perdidos. Por favor, comece novamente."); err != nil {
			return err
		}
		return b.startBuyAd(ctx, userID, chatID)
	}

	passengers := draft.Passengers
	ad, err := b.ads.Create(ctx, ads.CreateInput{
		OwnerID:       userID,
		OwnerUsername: username,
		Kind:          model.AdKindBuy,
		Airline:       draft.Airline,
		Quantity:      draft.Quantity,
		PricePerK:     draft.PricePerK,
		Passengers:    &passengers,
		Urgent:        draft.Urgent,
	})
	if err != nil {
		if err == ads.ErrIncompleteDraft {
			if err := b.reply(ctx, chatID, "❌ Dados perdidos. Por favor, comece novamente."); err != nil {
				return err
			}
			return b.startBuyAd(ctx, userID, chatID)
		}
		return err
	}

	b.enqueuePublication(ctx, ad.ID)

	if err := b.replyWithKeyboard(ctx, chatID,
		"✅ <b>Anúncio de COMPRA criado com sucesso!</b>\n\n⚠️ <b>AVISO IMPORTANTE:</b>\nO marketplace não se responsabiliza por qualquer transação.\n\nNegocie com atenção.\nHonre os valores combinados.",
		telegram.Keyboard(
			telegram.Row(telegram.Btn("🗑️ EXCLUIR OFERTA DE COMPRA", "cancel_"+formatCallbackID(ad.ID))),
		)); err != nil {
		return err
	}
	return b.conv.Reset(ctx, userID)
}
