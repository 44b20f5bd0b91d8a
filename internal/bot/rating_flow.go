package bot

import (
	"context"
	"fmt"

	"milebot/internal/model"
	"milebot/internal/telegram"
	"milebot/pkg/log"
)

// startRating opens the review dialogue after a closed deal. The rated
// user is always the other party of the proposal, the role label comes
// from the ad side.
func (b *Bot) startRating(ctx context.Context, cb *telegram.CallbackQuery, proposalID int64) error {
	userID := cb.From.ID

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
	if ad == nil {
		b.client.AnswerCallback(ctx, cb.ID, "❌ Anúncio não encontrado.")
		return nil
	}

	targetUserID := ad.OwnerID
	if userID == ad.OwnerID {
		targetUserID = proposal.FromUserID
	}
	targetRole := ratedRole(ad, userID)

	if err := b.conv.Set(ctx, userID, model.StateRatingRecommend, &model.Scratch{
		Rating: &model.RatingDraft{
			AdID:       ad.ID,
			ProposalID: proposal.ID,
			ToUserID:   targetUserID,
			TargetRole: targetRole,
		},
	}); err != nil {
		return err
	}

	b.client.AnswerCallback(ctx, cb.ID, "")

	chatID := userID
	if cb.Message != nil {
		chatID = cb.Message.Chat.ID
	}
	return b.replyWithKeyboard(ctx, chatID,
		"👤 <b>Avaliação de Usuário</b>\n\nVocê recomenda este "+roleLabel(targetRole)+"?",
		telegram.Keyboard(
			telegram.Row(telegram.Btn("👍 SIM", "rate_rec_yes"), telegram.Btn("👎 NÃO", "rate_rec_no")),
		))
}

// handleRatingRecommend runs on the thumbs buttons.
func (b *Bot) handleRatingRecommend(ctx context.Context, userID, chatID int64, recommend bool) error {
	if err := b.conv.Merge(ctx, userID, model.StateRatingStars, func(s *model.Scratch) {
		if s.Rating == nil {
			s.Rating = &model.RatingDraft{}
		}
		s.Rating.Recommend = recommend
	}); err != nil {
		return err
	}

	return b.replyWithKeyboard(ctx, chatID,
		"⭐ <b>Como você avalia a negociação realizada?</b>",
		telegram.Keyboard(
			telegram.Row(
				telegram.Btn("⭐ 1", "rate_star_1"),
				telegram.Btn("⭐ 2", "rate_star_2"),
				telegram.Btn("⭐ 3", "rate_star_3"),
				telegram.Btn("⭐ 4", "rate_star_4"),
				telegram.Btn("⭐ 5", "rate_star_5"),
			),
		))
}

// handleRatingStars runs on a star button and shows the final recap.
func (b *Bot) handleRatingStars(ctx context.Context, userID, chatID int64, stars int) error {
	if stars < 1 || stars > 5 {
		return b.reply(ctx, chatID, "❌ Nota inválida.")
	}

	if err := b.conv.Merge(ctx, userID, model.StateRatingConfirm, func(s *model.Scratch) {
		if s.Rating == nil {
			s.Rating = &model.RatingDraft{}
		}
		s.Rating.Stars = stars
	}); err != nil {
		return err
	}

	state, err := b.conv.Get(ctx, userID)
	if err != nil {
		return err
	}
	draft := state.Scratch.Rating
	if draft == nil {
		return b.abortRating(ctx, userID, chatID)
	}

	recommendText := "👎 Não"
	if draft.Recommend {
		recommendText = "👍 Sim"
	}
	summary := fmt.Sprintf(
		"📝 <b>Confirmar Avaliação</b>\n\n"+
			"👤 <b>Usuário:</b> %s\n"+
			"👍 <b>Recomenda:</b> %s\n"+
			"⭐ <b>Nota:</b> %d/5\n\n"+
			"Se você de fato concretizou esta negociação, clique em CONFIRMAR. Isso atualizará seu histórico oficial de milhas compradas/vendidas.",
		roleTitle(draft.TargetRole), recommendText, stars)

	return b.replyWithKeyboard(ctx, chatID, summary,
		telegram.Keyboard(
			telegram.Row(telegram.Btn("✅ CONFIRMAR", "rate_confirm")),
			telegram.Row(telegram.Btn("❌ CANCELAR", "rate_cancel")),
		))
}

// handleConfirmRating persists and confirms the review, which also
// writes the traded miles into both parties' history.
func (b *Bot) handleConfirmRating(ctx context.Context, userID, chatID int64) error {
	state, err := b.conv.Get(ctx, userID)
	if err != nil {
		return err
	}
	draft := state.Scratch.Rating
	if draft == nil || draft.ProposalID == 0 || draft.ToUserID == 0 || draft.Stars == 0 {
		return b.abortRating(ctx, userID, chatID)
	}

	rating, err := b.ratings.CreateDraft(ctx, userID, *draft)
	if err != nil {
		log.WithError(err).WithField("proposal_id", draft.ProposalID).
			Error("Failed to save rating")
		if err := b.reply(ctx, chatID, "❌ Erro ao salvar avaliação. Por favor, tente novamente mais tarde."); err != nil {
			return err
		}
		return b.conv.Reset(ctx, userID)
	}

	result, err := b.ratings.ConfirmRating(ctx, rating.ID)
	if err != nil {
		log.WithError(err).WithField("rating_id", rating.ID).
			Error("Failed to confirm rating")
		if err := b.reply(ctx, chatID, "❌ Erro ao salvar avaliação. Por favor, tente novamente mais tarde."); err != nil {
			return err
		}
		return b.conv.Reset(ctx, userID)
	}

	text := "✅ Avaliação registrada e histórico de milhas atualizado com sucesso! Obrigado."
	if result.HistoryDelayed {
		text = "✅ Avaliação registrada, porém houve um atraso ao atualizar seu histórico de milhas."
	}
	if err := b.reply(ctx, chatID, text); err != nil {
		return err
	}
	return b.conv.Reset(ctx, userID)
}

// handleCancelRating abandons the review.
func (b *Bot) handleCancelRating(ctx context.Context, userID, chatID int64) error {
	if err := b.conv.Reset(ctx, userID); err != nil {
		return err
	}
	return b.reply(ctx, chatID, "❌ Avaliação cancelada.")
}

func (b *Bot) abortRating(ctx context.Context, userID, chatID int64) error {
	if err := b.reply(ctx, chatID, "❌ Dados incompletos. Tente novamente."); err != nil {
		return err
	}
	return b.conv.Reset(ctx, userID)
}

// ratedRole gives the role of the user being reviewed, seen from the
// rater's side of the deal.
func ratedRole(ad *model.Ad, raterID int64) string {
	raterOwns := ad.OwnerID == raterID
	if ad.Kind == model.AdKindSell {
		if raterOwns {
			return model.RatingRoleBuyer
		}
		return model.RatingRoleSeller
	}
	if raterOwns {
		return model.RatingRoleSeller
	}
	return model.RatingRoleBuyer
}

func roleLabel(role string) string {
	if role == model.RatingRoleSeller {
		return "vendedor"
	}
	return "comprador"
}

func roleTitle(role string) string {
	if role == model.RatingRoleSeller {
		return "Vendedor"
	}
	return "Comprador"
}
