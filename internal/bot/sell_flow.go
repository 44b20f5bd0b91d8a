package bot

import (
	"context"
	"strings"

	"milebot/internal/model"
	"milebot/internal/service/ads"
	"milebot/internal/telegram"
	"milebot/pkg/utils"
)

func programKeyboard(kind string) *telegram.InlineKeyboardMarkup {
	tag := func(suffix string) string { return "program_" + kind + "_" + suffix }
	return telegram.Keyboard(
		telegram.Row(telegram.Btn("LATAM", tag("latam")), telegram.Btn("Smiles", tag("smiles"))),
		telegram.Row(telegram.Btn("Azul", tag("azul")), telegram.Btn("Azul Interline", tag("azul_interline"))),
		telegram.Row(telegram.Btn("Iberia", tag("iberia")), telegram.Btn("TAP", tag("tap"))),
		telegram.Row(telegram.Btn("American Airlines", tag("american")), telegram.Btn("Copa Airlines", tag("copa"))),
		telegram.Row(telegram.Btn("Qatar Airways", tag("qatar")), telegram.Btn("Air France", tag("airfrance"))),
		telegram.Row(telegram.Btn("KLM", tag("klm")), telegram.Btn("Alaska Airlines", tag("alaska"))),
		telegram.Row(telegram.Btn("Virgin Atlantic", tag("virgin")), telegram.Btn("Delta Air Lines", tag("delta"))),
		telegram.Row(telegram.Btn("United Airlines", tag("united")), telegram.Btn("Air Canada", tag("aircanada"))),
		telegram.Row(telegram.Btn("Air Europa", tag("aireuropa")), telegram.Btn("Avianca", tag("avianca"))),
	)
}

func (b *Bot) startSellAd(ctx context.Context, userID, chatID int64) error {
	if err := b.conv.Set(ctx, userID, model.StateAskSellMiles, &model.Scratch{Sell: &model.SellAdDraft{}}); err != nil {
		return err
	}
	return b.reply(ctx, chatID,
		"⚠️ <b>ATENÇÃO:</b>\nSe você deseja <b>VENDER</b> milhas, continue o preenchimento.\n\nQuantas milhas você tem disponíveis para <b>VENDA</b>?")
}

func (b *Bot) handleSellMiles(ctx context.Context, msg *telegram.Message, state *model.ConversationState) error {
	qty, err := utils.ValidateQuantity(msg.Text)
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "❌ Número inválido. Por favor, digite a quantidade correta (ex: 5.000 ou 5000).")
	}
	if qty < 1000 {
		if err := b.reply(ctx, msg.Chat.ID, "⚠️ Recomendamos anunciar no mínimo 1.000 milhas. Digite novamente se quiser corrigir ou continue."); err != nil {
			return err
		}
	}

	if err := b.conv.Merge(ctx, msg.From.ID, model.StateAskSellProgram, func(s *model.Scratch) {
		if s.Sell == nil {
			s.Sell = &model.SellAdDraft{}
		}
		s.Sell.Quantity = qty
	}); err != nil {
		return err
	}

	return b.replyWithKeyboard(ctx, msg.Chat.ID,
		"🏢 <b>Qual programa de fidelidade você deseja VENDER milhas?</b>\n(selecione uma opção ou digite outro)",
		programKeyboard("sell"))
}

func (b *Bot) handleSellProgramText(ctx context.Context, msg *telegram.Message, state *model.ConversationState) error {
	program, err := utils.ValidateAirline(msg.Text)
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "❌ "+utils.GetErrorMessage(err)+" Digite novamente:")
	}
	return b.setSellProgram(ctx, msg.From.ID, msg.Chat.ID, strings.ToUpper(program))
}

func (b *Bot) setSellProgram(ctx context.Context, userID, chatID int64, program string) error {
	if err := b.conv.Merge(ctx, userID, model.StateAskSellPrice, func(s *model.Scratch) {
		if s.Sell == nil {
			s.Sell = &model.SellAdDraft{}
		}
		s.Sell.Airline = program
	}); err != nil {
		return err
	}
	return b.reply(ctx, chatID,
		"💰 <b>Qual valor você deseja RECEBER por cada mil milhas?</b>\n(digite apenas números, ex: 26 ou 26,00)")
}

func (b *Bot) handleSellPrice(ctx context.Context, msg *telegram.Message, state *model.ConversationState) error {
	price, err := utils.ValidatePrice(msg.Text)
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "❌ "+utils.GetErrorMessage(err)+" Tente novamente:")
	}

	userID := msg.From.ID
	if err := b.conv.Merge(ctx, userID, model.StateConfirmSellAd, func(s *model.Scratch) {
		if s.Sell == nil {
			s.Sell = &model.SellAdDraft{}
		}
		s.Sell.PricePerK = price
	}); err != nil {
		return err
	}

	current, err := b.conv.Get(ctx, userID)
	if err != nil {
		return err
	}
	draft := current.Scratch.Sell
	if draft == nil || draft.Quantity == 0 || draft.Airline == "" {
		if err := b.reply(ctx, msg.Chat.ID, "❌ Erro nos dados. Vamos recomeçar."); err != nil {
			return err
		}
		return b.startSellAd(ctx, userID, msg.Chat.ID)
	}

	return b.replyWithKeyboard(ctx, msg.Chat.ID, sellAdSummary(draft),
		telegram.Keyboard(
			telegram.Row(telegram.Btn("✅ CONFIRMO", "confirm_sell_yes")),
			telegram.Row(telegram.Btn("🔄 REINICIAR", "confirm_sell_restart")),
		))
}

// finishSellAd runs on the confirm button: persists the ad, enqueues
// the group publication and leaves the user idle.
func (b *Bot) finishSellAd(ctx context.Context, userID, chatID int64, username string) error {
	state, err := b.conv.Get(ctx, userID)
	if err != nil {
		return err
	}
	draft := state.Scratch.Sell
	if draft == nil {
		if err := b.reply(ctx, chatID, "❌ Dados perdidos. Por favor, comece novamente."); err != nil {
			return err
		}
		return b.startSellAd(ctx, userID, chatID)
	}

	ad, err := b.ads.Create(ctx, ads.CreateInput{
		OwnerID:       userID,
		OwnerUsername: username,
		Kind:          model.AdKindSell,
		Airline:       draft.Airline,
		Quantity:      draft.Quantity,
		PricePerK:     draft.PricePerK,
	})
	if err != nil {
		if err == ads.ErrIncompleteDraft {
			if err := b.reply(ctx, chatID, "❌ Dados perdidos. Por favor, comece novamente."); err != nil {
				return err
			}
			return b.startSellAd(ctx, userID, chatID)
		}
		return err
	}

	b.enqueuePublication(ctx, ad.ID)

	if err := b.replyWithKeyboard(ctx, chatID,
		"✅ <b>Anúncio de VENDA criado com sucesso!</b>\n\n⚠️ <b>AVISO IMPORTANTE:</b>\nO marketplace não se responsabiliza por qualquer transação.\n\nNegocie com atenção.\nHonre os valores combinados.",
		telegram.Keyboard(
			telegram.Row(telegram.Btn("🗑️ EXCLUIR OFERTA DE VENDA", "cancel_"+formatCallbackID(ad.ID))),
		)); err != nil {
		return err
	}
	return b.conv.Reset(ctx, userID)
}
