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

// handleAcceptProposal runs when a sell-ad owner presses accept. The
// service decides the proposal exactly once, repeated presses get a
// callback toast and nothing else.
func (b *Bot) handleAcceptProposal(ctx context.Context, cb *telegram.CallbackQuery, proposalID int64) error {
	proposal, ad, err := b.proposals.Accept(ctx, proposalID, cb.From.ID)
	if err != nil {
		b.answerDecisionError(ctx, cb.ID, err)
		return nil
	}
	b.client.AnswerCallback(ctx, cb.ID, "✅ Proposta aceita!")

	b.editDecisionMessage(ctx, cb, fmt.Sprintf(
		"✅ <b>PROPOSTA ACEITA</b>\n\n"+
			"📋 Anúncio: %s - %s milhas\n"+
			"💰 Valor acordado: R$ %s por milheiro\n\n"+
			"Os contatos serão enviados para ambas as partes.",
		msgfmt.EscapeHTML(programDisplay(ad.Airline)), msgfmt.FormatMiles(ad.Quantity), msgfmt.FormatPrice(proposal.PricePerK)))

	// Sell ad: the owner sells, the proposer buys
	b.notifyDealClosed(ctx,
		ad.OwnerID, cb.From.Username,
		proposal.FromUserID, proposal.FromUsername,
		ad, proposal)
	return nil
}

// handleChooseSeller is the buy-ad counterpart of accept: the ad owner
// is the buyer and picks one of the sellers who answered.
func (b *Bot) handleChooseSeller(ctx context.Context, cb *telegram.CallbackQuery, proposalID int64) error {
	proposal, ad, err := b.proposals.Accept(ctx, proposalID, cb.From.ID)
	if err != nil {
		b.answerDecisionError(ctx, cb.ID, err)
		return nil
	}
	b.client.AnswerCallback(ctx, cb.ID, "✅ Vendedor escolhido!")

	b.editDecisionMessage(ctx, cb,
		"✅ <b>Você escolheu este vendedor!</b>\n\nA negociação foi iniciada e ambos receberão os contatos um do outro.")

	// Buy ad: the proposer sells, the owner buys
	b.notifyDealClosed(ctx,
		proposal.FromUserID, proposal.FromUsername,
		ad.OwnerID, cb.From.Username,
		ad, proposal)
	return nil
}

// handleRejectProposal declines a pending proposal and tells the
// proposer, leaving the ad untouched.
func (b *Bot) handleRejectProposal(ctx context.Context, cb *telegram.CallbackQuery, proposalID int64) error {
	proposal, err := b.proposals.Reject(ctx, proposalID, cb.From.ID)
	if err != nil {
		b.answerDecisionError(ctx, cb.ID, err)
		return nil
	}
	b.client.AnswerCallback(ctx, cb.ID, "❌ Proposta recusada.")

	ad, err := b.ads.GetByID(ctx, proposal.AdID)
	if err != nil {
		return err
	}
	if ad == nil {
		return nil
	}

	b.editDecisionMessage(ctx, cb, fmt.Sprintf(
		"❌ <b>PROPOSTA RECUSADA</b>\n\n"+
			"📋 Anúncio: %s - %s milhas\n"+
			"💰 Valor proposto: R$ %s por milheiro\n\n"+
			"O proponente foi notificado.",
		msgfmt.EscapeHTML(programDisplay(ad.Airline)), msgfmt.FormatMiles(ad.Quantity), msgfmt.FormatPrice(proposal.PricePerK)))

	if _, err := b.client.SendMessage(ctx, &telegram.SendMessageRequest{
		ChatID: proposal.FromUserID,
		Text: fmt.Sprintf(
			"❌ <b>SUA PROPOSTA FOI RECUSADA</b>\n\n"+
				"📋 <b>Anúncio:</b> %s - %s milhas\n"+
				"💰 <b>Valor proposto:</b> R$ %s por milheiro\n\n"+
				"Continue buscando! Existem outras oportunidades no grupo.",
			msgfmt.EscapeHTML(programDisplay(ad.Airline)), msgfmt.FormatMiles(ad.Quantity), msgfmt.FormatPrice(proposal.PricePerK)),
		ReplyMarkup: telegram.Keyboard(
			telegram.Row(telegram.Btn("🔄 FAZER CONTRA PROPOSTA", "prop_custom_qty_"+formatCallbackID(ad.ID))),
			telegram.Row(telegram.Btn("🏠 Voltar ao Menu", "back_to_menu")),
		),
	}); err != nil {
		log.WithError(err).WithField("proposal_id", proposal.ID).
			Error("Failed to notify proposer of rejection")
	}
	return nil
}

// handleUserStats renders the detailed reputation card of whoever sent
// the proposal, with the decision buttons repeated underneath.
func (b *Bot) handleUserStats(ctx context.Context, cb *telegram.CallbackQuery, proposalID int64) error {
	proposal, err := b.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return err
	}
	if proposal == nil {
		b.client.AnswerCallback(ctx, cb.ID, "❌ Proposta não encontrada.")
		return nil
	}

	ad, err := b.ads.GetByID(ctx, proposal.AdID)
	if err != nil {
		return err
	}

	// The button always sits on the ad owner's side, so the subject is
	// the proposer
	role := "Vendedor"
	acceptTag := "choose_seller_" + formatCallbackID(proposalID)
	if ad != nil && ad.Kind == model.AdKindSell {
		role = "Comprador"
		acceptTag = "accept_" + formatCallbackID(proposalID)
	}

	stats, err := b.ratings.Stats(ctx, proposal.FromUserID)
	if err != nil {
		return err
	}
	b.client.AnswerCallback(ctx, cb.ID, "")

	verifiedBadge := "⚠️ Usuário não verificado"
	if stats.Lifetime.RatingCount > 0 {
		verifiedBadge = "✅ Usuário verificado"
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>CONFIÔMETRO DETALHADO</b> - " + role + "\n\n")
	sb.WriteString("✨ <b>Estatísticas Vitais (Total)</b>\n")
	sb.WriteString(fmt.Sprintf("👤 Avaliações recebidas: %d\n", stats.Lifetime.RatingCount))
	sb.WriteString(fmt.Sprintf("💠 Milhas compradas: %s\n", msgfmt.FormatMiles(stats.Lifetime.MilesBought)))
	sb.WriteString(fmt.Sprintf("💠 Milhas vendidas: %s\n", msgfmt.FormatMiles(stats.Lifetime.MilesSold)))
	sb.WriteString(fmt.Sprintf("🤝 Total de negociações: %d\n", stats.Lifetime.Negotiations))
	sb.WriteString(fmt.Sprintf("🏆 Nota média: %.1f / 5,0\n\n", stats.Lifetime.AvgStars))
	sb.WriteString("📅 <b>Histórico do Mês (Reset todo dia 1º)</b>\n")
	sb.WriteString(fmt.Sprintf("🤝 Negociações: %d\n", stats.ThisMonth.Negotiations))
	sb.WriteString(fmt.Sprintf("💠 Milhas Vendidas: %s\n", msgfmt.FormatMiles(stats.ThisMonth.MilesSold)))
	sb.WriteString(fmt.Sprintf("💠 Milhas Compradas: %s\n", msgfmt.FormatMiles(stats.ThisMonth.MilesBought)))
	sb.WriteString(fmt.Sprintf("💠 Total Negociado: %s\n", msgfmt.FormatMiles(stats.ThisMonth.MilesSold+stats.ThisMonth.MilesBought)))
	sb.WriteString(fmt.Sprintf("👤 Avaliações: %d\n", stats.ThisMonth.RatingCount))
	sb.WriteString(fmt.Sprintf("🏆 Média do mês: %.1f / 5,0\n\n", stats.ThisMonth.AvgStars))
	sb.WriteString("----------------------------------\n")
	sb.WriteString(verifiedBadge + "\n")
	sb.WriteString("Analise com atenção antes de prosseguir.")

	chatID := cb.From.ID
	if cb.Message != nil {
		chatID = cb.Message.Chat.ID
	}
	return b.replyWithKeyboard(ctx, chatID, sb.String(),
		telegram.Keyboard(
			telegram.Row(telegram.Btn("🔵 ESCOLHER ESTE "+strings.ToUpper(role), acceptTag)),
			telegram.Row(telegram.Btn("❌ RECUSAR OFERTA", "reject_"+formatCallbackID(proposalID))),
		))
}

// notifyDealClosed sends both parties the closing notice with a direct
// contact link and the rating entry point.
func (b *Bot) notifyDealClosed(ctx context.Context, sellerID int64, sellerUsername string, buyerID int64, buyerUsername string, ad *model.Ad, proposal *model.Proposal) {
	adLine := fmt.Sprintf("🏢 <b>%s</b> - %s milhas\n💰 <b>Valor acordado:</b> R$ %s por milheiro",
		msgfmt.EscapeHTML(programDisplay(ad.Airline)), msgfmt.FormatMiles(proposal.Quantity), msgfmt.FormatPrice(proposal.PricePerK))
	rateTag := "rate_p_" + formatCallbackID(proposal.ID)

	if _, err := b.client.SendMessage(ctx, &telegram.SendMessageRequest{
		ChatID: sellerID,
		Text: "🎉 <b>NEGÓCIO FECHADO!</b>\n\nVocê vendeu para este comprador:\n" + adLine +
			"\n\n⚠️ Clique abaixo para falar com o comprador e finalizar a negociação.",
		ReplyMarkup: telegram.Keyboard(
			telegram.Row(telegram.URLBtn("💬 Falar com Comprador", fmt.Sprintf("tg://user?id=%d", buyerID))),
			telegram.Row(telegram.Btn("⭐ Avaliar Comprador", rateTag)),
		),
	}); err != nil {
		log.WithError(err).WithField("user_id", sellerID).Error("Failed to notify seller of closed deal")
	}

	if _, err := b.client.SendMessage(ctx, &telegram.SendMessageRequest{
		ChatID: buyerID,
		Text: "🎉 <b>NEGÓCIO FECHADO!</b>\n\nVocê comprou deste vendedor:\n" + adLine +
			"\n\n⚠️ Clique abaixo para falar com o vendedor e finalizar a negociação.",
		ReplyMarkup: telegram.Keyboard(
			telegram.Row(telegram.URLBtn("💬 Falar com Vendedor", fmt.Sprintf("tg://user?id=%d", sellerID))),
			telegram.Row(telegram.Btn("⭐ Avaliar Vendedor", rateTag)),
		),
	}); err != nil {
		log.WithError(err).WithField("user_id", buyerID).Error("Failed to notify buyer of closed deal")
	}
}

func (b *Bot) answerDecisionError(ctx context.Context, callbackID string, err error) {
	switch err {
	case utils.ErrProposalNotFound:
		b.client.AnswerCallback(ctx, callbackID, "❌ Proposta não encontrada.")
	case utils.ErrAlreadyProcessed:
		b.client.AnswerCallback(ctx, callbackID, "❌ Esta proposta já foi processada.")
	case utils.ErrAdNotFound:
		b.client.AnswerCallback(ctx, callbackID, "❌ Anúncio não encontrado.")
	case utils.ErrAdNotActive:
		b.client.AnswerCallback(ctx, callbackID, "❌ Este anúncio já foi finalizado ou cancelado.")
	case utils.ErrAdNotOwned:
		b.client.AnswerCallback(ctx, callbackID, "❌ Você não tem permissão para realizar esta ação.")
	default:
		log.WithError(err).Error("Proposal decision failed")
		b.client.AnswerCallback(ctx, callbackID, "❌ Erro ao processar. Tente novamente.")
	}
}

// editDecisionMessage rewrites the card the button lived on so the
// buttons disappear after the decision. A failed edit is logged only,
// the decision itself already committed.
func (b *Bot) editDecisionMessage(ctx context.Context, cb *telegram.CallbackQuery, text string) {
	if cb.Message == nil {
		return
	}
	if err := b.client.EditMessageText(ctx, &telegram.EditMessageTextRequest{
		ChatID:    cb.Message.Chat.ID,
		MessageID: cb.Message.MessageID,
		Text:      text,
	}); err != nil {
		log.WithError(err).Error("Failed to edit decision message")
	}
}
