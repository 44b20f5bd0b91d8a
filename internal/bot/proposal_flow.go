package bot

import (
	"context"
	"fmt"
	"strings"

	"milebot/internal/model"
	"milebot/internal/msgfmt"
	"milebot/internal/telegram"
	"milebot/pkg/log"
	"milebot/pkg/utils"
)

// startProposalFlow opens the counter-offer dialogue against an ad.
// A SELL ad asks how many miles the caller wants to buy, a BUY ad asks
// whether to keep the advertised price or counter it. The scratch
// starts with the full ad quantity so the keep-price path works
// without a quantity step.
func (b *Bot) startProposalFlow(ctx context.Context, userID, chatID int64, ad *model.Ad) error {
	if err := b.conv.Set(ctx, userID, model.StateProposalReview, &model.Scratch{
		Proposal: &model.ProposalDraft{AdID: ad.ID, Quantity: ad.Quantity},
	}); err != nil {
		return err
	}

	adID := formatCallbackID(ad.ID)

	if ad.Kind == model.AdKindBuy {
		text := fmt.Sprintf(
			"📋 <b>Detalhes do Anúncio</b>\n\n"+
				"🏢 <b>Companhia:</b> %s\n"+
				"📊 <b>Quantidade:</b> %s milhas\n"+
				"💰 <b>Valor solicitado:</b> R$ %s por milheiro\n\n"+
				"Gostaria de manter a oferta do anúncio ou fazer uma nova proposta?",
			msgfmt.EscapeHTML(programDisplay(ad.Airline)), msgfmt.FormatMiles(ad.Quantity), msgfmt.FormatPrice(ad.PricePerK))
		return b.replyWithKeyboard(ctx, chatID, text,
			telegram.Keyboard(
				telegram.Row(telegram.Btn("💰 Manter oferta", "prop_keep_price_"+adID)),
				telegram.Row(telegram.Btn("🔁 Fazer nova proposta", "prop_new_price_"+adID)),
			))
	}

	text := fmt.Sprintf(
		"📋 <b>Detalhes do anúncio selecionado</b>\n\n"+
			"🏢 <b>Companhia:</b> %s\n"+
			"📊 <b>Quantidade disponível:</b> %s milhas\n"+
			"💰 <b>Valor anunciado:</b> R$ %s por milheiro\n\n"+
			"Você tem interesse em comprar todas as milhas disponíveis ou deseja personalizar a quantidade?",
		msgfmt.EscapeHTML(programDisplay(ad.Airline)), msgfmt.FormatMiles(ad.Quantity), msgfmt.FormatPrice(ad.PricePerK))
	return b.replyWithKeyboard(ctx, chatID, text,
		telegram.Keyboard(
			telegram.Row(telegram.Btn("✅ Comprar todas as milhas", "prop_all_"+adID)),
			telegram.Row(telegram.Btn("✏️ Personalizar quantidade", "prop_custom_qty_"+adID)),
		))
}

// handleProposalBuyAll runs on the "buy everything" button.
func (b *Bot) handleProposalBuyAll(ctx context.Context, userID, chatID, adID int64) error {
	ad, err := b.ads.GetByID(ctx, adID)
	if err != nil {
		return err
	}
	if ad == nil || !ad.IsActive() {
		return b.reply(ctx, chatID, "❌ Este anúncio não está mais disponível.")
	}

	if err := b.conv.Set(ctx, userID, model.StateProposalReview, &model.Scratch{
		Proposal: &model.ProposalDraft{AdID: adID, Quantity: ad.Quantity},
	}); err != nil {
		return err
	}

	text := fmt.Sprintf(
		"✅ <b>Você escolheu comprar todas as milhas disponíveis.</b>\n\n"+
			"📊 <b>Quantidade:</b> %s milhas\n"+
			"💰 <b>Valor anunciado:</b> R$ %s por milheiro\n\n"+
			"Deseja manter o valor anunciado ou fazer uma nova proposta?",
		msgfmt.FormatMiles(ad.Quantity), msgfmt.FormatPrice(ad.PricePerK))
	return b.replyWithKeyboard(ctx, chatID, text, proposalPriceKeyboard(adID))
}

// handleProposalCustomQty runs on the "custom quantity" button.
func (b *Bot) handleProposalCustomQty(ctx context.Context, userID, chatID, adID int64) error {
	if err := b.conv.Set(ctx, userID, model.StateAskProposalQuantity, &model.Scratch{
		Proposal: &model.ProposalDraft{AdID: adID},
	}); err != nil {
		return err
	}
	return b.reply(ctx, chatID,
		"✏️ <b>Quantas milhas você deseja comprar?</b>\n\n📌 Envie apenas o número\nExemplo: 15000")
}

func (b *Bot) handleProposalQuantity(ctx context.Context, msg *telegram.Message, state *model.ConversationState) error {
	draft := state.Scratch.Proposal
	if draft == nil || draft.AdID == 0 {
		return b.abortProposal(ctx, msg.From.ID, msg.Chat.ID)
	}

	qty, err := utils.ValidateQuantity(msg.Text)
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "❌ Quantidade inválida. Por favor, envie apenas números maiores que zero.")
	}

	ad, err := b.ads.GetByID(ctx, draft.AdID)
	if err != nil {
		return err
	}
	if ad == nil || !ad.IsActive() {
		return b.abortProposal(ctx, msg.From.ID, msg.Chat.ID)
	}

	userID := msg.From.ID
	if err := b.conv.Merge(ctx, userID, model.StateProposalReview, func(s *model.Scratch) {
		if s.Proposal == nil {
			s.Proposal = &model.ProposalDraft{AdID: ad.ID}
		}
		s.Proposal.Quantity = qty
	}); err != nil {
		return err
	}

	text := fmt.Sprintf(
		"📌 <b>Resumo da compra</b>\n\n"+
			"📊 <b>Quantidade escolhida:</b> %s milhas\n"+
			"💰 <b>Valor anunciado:</b> R$ %s por milheiro\n\n"+
			"Deseja manter o valor anunciado ou fazer uma nova proposta?",
		msgfmt.FormatMiles(qty), msgfmt.FormatPrice(ad.PricePerK))
	return b.replyWithKeyboard(ctx, msg.Chat.ID, text, proposalPriceKeyboard(ad.ID))
}

// handleProposalKeepPrice adopts the advertised price and asks for the
// final confirmation.
func (b *Bot) handleProposalKeepPrice(ctx context.Context, userID, chatID, adID int64) error {
	ad, err := b.ads.GetByID(ctx, adID)
	if err != nil {
		return err
	}
	if ad == nil || !ad.IsActive() {
		return b.abortProposal(ctx, userID, chatID)
	}

	if err := b.conv.Merge(ctx, userID, model.StateProposalReview, func(s *model.Scratch) {
		if s.Proposal == nil {
			s.Proposal = &model.ProposalDraft{AdID: adID, Quantity: ad.Quantity}
		}
		s.Proposal.PricePerK = ad.PricePerK
	}); err != nil {
		return err
	}

	state, err := b.conv.Get(ctx, userID)
	if err != nil {
		return err
	}
	qty := ad.Quantity
	if state.Scratch.Proposal != nil && state.Scratch.Proposal.Quantity > 0 {
		qty = state.Scratch.Proposal.Quantity
	}

	text := fmt.Sprintf(
		"📌 <b>Resumo da proposta</b>\n\n"+
			"🏢 <b>Companhia:</b> %s\n"+
			"📊 <b>Quantidade:</b> %s milhas\n"+
			"💰 <b>Valor:</b> R$ %s por milheiro\n\n"+
			"Deseja confirmar o envio da proposta?",
		msgfmt.EscapeHTML(programDisplay(ad.Airline)), msgfmt.FormatMiles(qty), msgfmt.FormatPrice(ad.PricePerK))
	return b.replyWithKeyboard(ctx, chatID, text,
		telegram.Keyboard(
			telegram.Row(telegram.Btn("✅ Confirmar proposta", "prop_confirm_"+formatCallbackID(adID))),
			telegram.Row(telegram.Btn("🔄 Cancelar", "back_to_menu")),
		))
}

// handleProposalNewPrice asks for a counter price.
func (b *Bot) handleProposalNewPrice(ctx context.Context, userID, chatID, adID int64) error {
	if err := b.conv.Merge(ctx, userID, model.StateAskProposalPrice, func(s *model.Scratch) {
		if s.Proposal == nil {
			s.Proposal = &model.ProposalDraft{AdID: adID}
		}
	}); err != nil {
		return err
	}
	return b.reply(ctx, chatID,
		"💬 <b>Qual valor você deseja propor por milheiro?</b>\n\n📌 Envie apenas o número\nExemplo: 24.50")
}

func (b *Bot) handleProposalPrice(ctx context.Context, msg *telegram.Message, state *model.ConversationState) error {
	draft := state.Scratch.Proposal
	if draft == nil || draft.AdID == 0 {
		return b.abortProposal(ctx, msg.From.ID, msg.Chat.ID)
	}

	price, err := utils.ValidateProposalValue(msg.Text)
	if err != nil {
		return b.reply(ctx, msg.Chat.ID, "❌ "+utils.GetErrorMessage(err)+"\n\nTente novamente:")
	}

	userID := msg.From.ID
	if err := b.conv.Merge(ctx, userID, model.StateProposalReview, func(s *model.Scratch) {
		if s.Proposal == nil {
			s.Proposal = &model.ProposalDraft{AdID: draft.AdID}
		}
		s.Proposal.PricePerK = price
	}); err != nil {
		return err
	}

	text := fmt.Sprintf(
		"📌 <b>Resumo da proposta</b>\n\n"+
			"📊 <b>Quantidade:</b> %s milhas\n"+
			"💰 <b>Seu valor:</b> R$ %s por milheiro\n\n"+
			"Deseja confirmar o envio?",
		msgfmt.FormatMiles(draft.Quantity), msgfmt.FormatPrice(price))
	return b.replyWithKeyboard(ctx, msg.Chat.ID, text,
		telegram.Keyboard(
			telegram.Row(telegram.Btn("✅ Confirmar proposta", "prop_confirm_"+formatCallbackID(draft.AdID))),
			telegram.Row(telegram.Btn("🔄 Reiniciar", "prop_new_price_"+formatCallbackID(draft.AdID))),
		))
}

// finishProposal runs on the confirm button: persists the proposal,
// notifies the ad owner and leaves the proposer idle.
func (b *Bot) finishProposal(ctx context.Context, userID, chatID int64, username string, adID int64) error {
	state, err := b.conv.Get(ctx, userID)
	if err != nil {
		return err
	}
	draft := state.Scratch.Proposal
	if draft == nil || draft.Quantity == 0 || draft.PricePerK == 0 {
		return b.abortProposal(ctx, userID, chatID)
	}
	// Confirm buttons outlive the drafts they were sent for. A click
	// on a stale one must not spend the draft of another ad.
	if draft.AdID != adID {
		if err := b.reply(ctx, chatID,
			"❌ Este botão se refere a outra proposta. Comece novamente pelo anúncio desejado."); err != nil {
			return err
		}
		return b.conv.Reset(ctx, userID)
	}

	proposal, err := b.proposals.Create(ctx, adID, userID, username, draft.Quantity, draft.PricePerK)
	if err != nil {
		switch err {
		case utils.ErrAdNotFound, utils.ErrAdNotActive:
			return b.abortProposal(ctx, userID, chatID)
		case utils.ErrSelfProposal:
			if err := b.reply(ctx, chatID, "❌ Você não pode enviar uma proposta para o seu próprio anúncio."); err != nil {
				return err
			}
			return b.conv.Reset(ctx, userID)
		default:
			return err
		}
	}

	ad, err := b.ads.GetByID(ctx, adID)
	if err != nil {
		return err
	}

	counterparty := "comprador"
	if ad != nil && ad.Kind == model.AdKindSell {
		counterparty = "vendedor"
	}
	if err := b.reply(ctx, chatID, fmt.Sprintf(
		"✅ <b>Proposta enviada com sucesso!</b>\n\n"+
			"💰 <b>Valor:</b> R$ %s por milheiro\n"+
			"📊 <b>Quantidade:</b> %s milhas\n\n"+
			"Aguarde a resposta do %s. Você será notificado aqui 📩",
		msgfmt.FormatPrice(draft.PricePerK), msgfmt.FormatMiles(draft.Quantity), counterparty)); err != nil {
		return err
	}

	if ad != nil {
		if err := b.notifyOwnerNewProposal(ctx, ad, proposal); err != nil {
			log.WithError(err).WithField("proposal_id", proposal.ID).
				Error("Failed to notify ad owner of new proposal")
		}
	}
	return b.conv.Reset(ctx, userID)
}

// notifyOwnerNewProposal pushes the proposal card to the ad owner with
// the decision buttons. The card carries the proponent's reputation so
// the owner can decide without leaving the chat.
func (b *Bot) notifyOwnerNewProposal(ctx context.Context, ad *model.Ad, proposal *model.Proposal) error {
	stats, err := b.ratings.Stats(ctx, proposal.FromUserID)
	if err != nil {
		return err
	}

	proposer, err := b.users.GetByID(ctx, proposal.FromUserID)
	if err != nil {
		return err
	}
	memberSince := "Data desconhecida"
	verifiedBadge := "⚠️ Usuário não verificado"
	proposerName := "Anônimo"
	if proposer != nil {
		memberSince = proposer.CreatedAt.Format("02/01/2006")
		if proposer.IsLinked() {
			verifiedBadge = "✅ Usuário verificado"
		}
		if proposer.Username != "" {
			proposerName = "@" + proposer.Username
		}
	}

	propID := formatCallbackID(proposal.ID)
	var sb strings.Builder
	var markup *telegram.InlineKeyboardMarkup

	if ad.Kind == model.AdKindBuy {
		// Seller answering a buy ad, the owner is the buyer
		sb.WriteString("📩 <b>Mensagem enviada ao COMPRADOR</b>\n")
		sb.WriteString("💰 Novo vendedor interessado em sua oferta de compra de milhas\n")
		sb.WriteString("📌 Referente à oferta nº " + shortAdRef(ad.ID) + "\n\n")
		sb.WriteString("📊 <b>Detalhes da proposta</b>\n")
		sb.WriteString(fmt.Sprintf("➡️ <b>Quantidade ofertada:</b> %s milhas\n", msgfmt.FormatMiles(proposal.Quantity)))
		sb.WriteString(fmt.Sprintf("➡️ <b>Valor ofertado:</b> R$ %s por milheiro\n\n", msgfmt.FormatPrice(proposal.PricePerK)))
		sb.WriteString("🔎 <b>Sobre o vendedor</b>\n")
		sb.WriteString(verifiedBadge + "\n")
		sb.WriteString("⭐ Tem " + msgfmt.IndicationsRange(stats.Lifetime.RatingCount) + "\n")
		sb.WriteString(fmt.Sprintf("🏆 <b>Avaliação:</b> %.1f / 5,0\n", stats.Lifetime.AvgStars))
		sb.WriteString(fmt.Sprintf("🤝 <b>Negócios este mês:</b> %d\n", stats.ThisMonth.Negotiations))
		sb.WriteString(fmt.Sprintf("💠 <b>Milhas vendidas este mês:</b> %s\n", msgfmt.FormatMiles(stats.ThisMonth.MilesSold)))
		sb.WriteString("📅 <b>Membro da plataforma desde:</b> " + memberSince + "\n\n")
		sb.WriteString("⚠️ <b>Atenção</b>\n")
		sb.WriteString("Negocie apenas se você realmente possui as milhas informadas.\n")
		sb.WriteString("As indicações falsas são monitoradas constantemente e podem resultar em exclusão da plataforma.")
		markup = telegram.Keyboard(
			telegram.Row(telegram.Btn("🔵 ESCOLHER ESTE VENDEDOR", "choose_seller_"+propID)),
			telegram.Row(telegram.Btn("🔍 Sobre este Vendedor", "user_stats_"+propID)),
			telegram.Row(telegram.Btn("❌ RECUSAR OFERTA", "reject_"+propID)),
		)
	} else {
		sb.WriteString("🔔 <b>NOVA PROPOSTA RECEBIDA!</b>\n\n")
		sb.WriteString("📋 <b>Anúncio:</b> " + msgfmt.EscapeHTML(programDisplay(ad.Airline)) + "\n")
		sb.WriteString(fmt.Sprintf("📊 <b>Quantidade proposta:</b> %s milhas\n", msgfmt.FormatMiles(proposal.Quantity)))
		sb.WriteString(fmt.Sprintf("💰 <b>Valor proposto:</b> R$ %s por milheiro\n\n", msgfmt.FormatPrice(proposal.PricePerK)))
		sb.WriteString("🔎 <b>Sobre o proponente</b>\n")
		sb.WriteString(verifiedBadge + "\n")
		sb.WriteString("👤 <b>Comprador:</b> " + msgfmt.EscapeHTML(proposerName) + "\n")
		sb.WriteString("⭐ Tem " + msgfmt.IndicationsRange(stats.Lifetime.RatingCount) + "\n")
		sb.WriteString(fmt.Sprintf("🏆 <b>Avaliação:</b> %.1f / 5,0\n", stats.Lifetime.AvgStars))
		sb.WriteString(fmt.Sprintf("🤝 <b>Negócios este mês:</b> %d\n", stats.ThisMonth.Negotiations))
		sb.WriteString(fmt.Sprintf("💠 <b>Milhas compradas este mês:</b> %s\n", msgfmt.FormatMiles(stats.ThisMonth.MilesBought)))
		sb.WriteString("📅 <b>Membro da plataforma desde:</b> " + memberSince + "\n\n")
		sb.WriteString("O que você deseja fazer?")
		markup = telegram.Keyboard(
			telegram.Row(telegram.Btn("✅ Aceitar Proposta", "accept_"+propID)),
			telegram.Row(telegram.Btn("🔍 Sobre este Comprador", "user_stats_"+propID)),
			telegram.Row(telegram.Btn("❌ Recusar Proposta", "reject_"+propID)),
		)
	}

	_, err = b.client.SendMessage(ctx, &telegram.SendMessageRequest{
		ChatID:      ad.OwnerID,
		Text:        sb.String(),
		ReplyMarkup: markup,
	})
	return err
}

func proposalPriceKeyboard(adID int64) *telegram.InlineKeyboardMarkup {
	id := formatCallbackID(adID)
	return telegram.Keyboard(
		telegram.Row(telegram.Btn("💰 Manter valor anunciado", "prop_keep_price_"+id)),
		telegram.Row(telegram.Btn("🔁 Fazer nova proposta", "prop_new_price_"+id)),
	)
}

func (b *Bot) abortProposal(ctx context.Context, userID, chatID int64) error {
	if err := b.reply(ctx, chatID, "❌ Este anúncio não está mais disponível."); err != nil {
		return err
	}
	return b.conv.Reset(ctx, userID)
}
