package bot

import (
	"context"
	"strconv"
	"strings"

	"milebot/internal/model"
	"milebot/internal/service/subscription"
	"milebot/internal/telegram"
	"milebot/pkg/log"
)

// handleCallback routes an inline button press by its tag. Tags carry
// their subject id as a suffix where one is needed.
func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) error {
	userID := cb.From.ID
	chatID := userID
	if cb.Message != nil {
		chatID = cb.Message.Chat.ID
	}
	data := cb.Data

	// Decision buttons answer the callback themselves with a
	// result-specific toast
	switch {
	case strings.HasPrefix(data, "accept_"):
		id, err := parseID(strings.TrimPrefix(data, "accept_"))
		if err != nil {
			return b.answerUnknown(ctx, cb)
		}
		return b.handleAcceptProposal(ctx, cb, id)

	case strings.HasPrefix(data, "reject_"):
		id, err := parseID(strings.TrimPrefix(data, "reject_"))
		if err != nil {
			return b.answerUnknown(ctx, cb)
		}
		return b.handleRejectProposal(ctx, cb, id)

	case strings.HasPrefix(data, "choose_seller_"):
		id, err := parseID(strings.TrimPrefix(data, "choose_seller_"))
		if err != nil {
			return b.answerUnknown(ctx, cb)
		}
		return b.handleChooseSeller(ctx, cb, id)

	case strings.HasPrefix(data, "user_stats_"):
		id, err := parseID(strings.TrimPrefix(data, "user_stats_"))
		if err != nil {
			return b.answerUnknown(ctx, cb)
		}
		return b.handleUserStats(ctx, cb, id)

	case strings.HasPrefix(data, "rate_p_"):
		id, err := parseID(strings.TrimPrefix(data, "rate_p_"))
		if err != nil {
			return b.answerUnknown(ctx, cb)
		}
		return b.startRating(ctx, cb, id)
	}

	// Everything below acks the press immediately
	b.client.AnswerCallback(ctx, cb.ID, "")

	switch data {
	case "create_sell_ad":
		return b.withAccess(ctx, userID, chatID, model.FeatureSell, func() error {
			return b.startSellAd(ctx, userID, chatID)
		})
	case "create_buy_ad":
		return b.withAccess(ctx, userID, chatID, model.FeatureBuy, func() error {
			return b.startBuyAd(ctx, userID, chatID)
		})
	case "create_ad":
		return b.handleCreateAdChooser(ctx, userID, chatID)
	case "my_ads":
		return b.handleMyAdsEntry(ctx, userID, chatID)
	case "help":
		return b.reply(ctx, chatID, helpText)
	case "back_to_menu":
		if err := b.conv.Reset(ctx, userID); err != nil {
			return err
		}
		return b.showMainMenu(ctx, userID, chatID)

	case "confirm_sell_yes":
		return b.finishSellAd(ctx, userID, chatID, cb.From.Username)
	case "confirm_sell_restart":
		return b.startSellAd(ctx, userID, chatID)
	case "confirm_buy_yes":
		return b.finishBuyAd(ctx, userID, chatID, cb.From.Username)
	case "confirm_buy_restart":
		return b.startBuyAd(ctx, userID, chatID)
	case "urgent_buy_yes":
		return b.setBuyUrgent(ctx, userID, chatID, true)
	case "urgent_buy_no":
		return b.setBuyUrgent(ctx, userID, chatID, false)

	case "rate_rec_yes":
		return b.handleRatingRecommend(ctx, userID, chatID, true)
	case "rate_rec_no":
		return b.handleRatingRecommend(ctx, userID, chatID, false)
	case "rate_confirm":
		return b.handleConfirmRating(ctx, userID, chatID)
	case "rate_cancel":
		return b.handleCancelRating(ctx, userID, chatID)
	}

	switch {
	case strings.HasPrefix(data, "rate_star_"):
		stars, err := strconv.Atoi(strings.TrimPrefix(data, "rate_star_"))
		if err != nil {
			return b.answerUnknown(ctx, cb)
		}
		return b.handleRatingStars(ctx, userID, chatID, stars)

	case strings.HasPrefix(data, "program_sell_"):
		suffix := strings.TrimPrefix(data, "program_sell_")
		return b.setSellProgram(ctx, userID, chatID, programDisplay(suffix))

	case strings.HasPrefix(data, "program_buy_"):
		suffix := strings.TrimPrefix(data, "program_buy_")
		return b.setBuyProgram(ctx, userID, chatID, programDisplay(suffix))

	case strings.HasPrefix(data, "buy_plan_"):
		id, err := parseID(strings.TrimPrefix(data, "buy_plan_"))
		if err != nil {
			return b.answerUnknown(ctx, cb)
		}
		return b.handleBuyPlan(ctx, userID, chatID, id)

	case strings.HasPrefix(data, "cancel_"):
		id, err := parseID(strings.TrimPrefix(data, "cancel_"))
		if err != nil {
			return b.answerUnknown(ctx, cb)
		}
		return b.handleCancelAd(ctx, userID, chatID, id)

	case strings.HasPrefix(data, "prop_all_"):
		id, err := parseID(strings.TrimPrefix(data, "prop_all_"))
		if err != nil {
			return b.answerUnknown(ctx, cb)
		}
		return b.handleProposalBuyAll(ctx, userID, chatID, id)

	case strings.HasPrefix(data, "prop_custom_qty_"):
		id, err := parseID(strings.TrimPrefix(data, "prop_custom_qty_"))
		if err != nil {
			return b.answerUnknown(ctx, cb)
		}
		return b.handleProposalCustomQty(ctx, userID, chatID, id)

	case strings.HasPrefix(data, "prop_keep_price_"):
		id, err := parseID(strings.TrimPrefix(data, "prop_keep_price_"))
		if err != nil {
			return b.answerUnknown(ctx, cb)
		}
		return b.handleProposalKeepPrice(ctx, userID, chatID, id)

	case strings.HasPrefix(data, "prop_new_price_"):
		id, err := parseID(strings.TrimPrefix(data, "prop_new_price_"))
		if err != nil {
			return b.answerUnknown(ctx, cb)
		}
		return b.handleProposalNewPrice(ctx, userID, chatID, id)

	case strings.HasPrefix(data, "prop_confirm_"):
		id, err := parseID(strings.TrimPrefix(data, "prop_confirm_"))
		if err != nil {
			return b.answerUnknown(ctx, cb)
		}
		return b.finishProposal(ctx, userID, chatID, cb.From.Username, id)
	}

	log.WithField("data", data).Warn("Unknown callback tag")
	return nil
}

func (b *Bot) answerUnknown(ctx context.Context, cb *telegram.CallbackQuery) error {
	b.client.AnswerCallback(ctx, cb.ID, "❌ Ação inválida.")
	return nil
}

// handleMyAdsEntry gates the list behind login plus any active plan.
func (b *Bot) handleMyAdsEntry(ctx context.Context, userID, chatID int64) error {
	siteUser, err := b.auth.LinkedSiteUser(ctx, userID)
	if err != nil {
		return err
	}
	if siteUser == nil {
		return b.showWelcomeFlow(ctx, userID, chatID)
	}
	sub, err := b.subs.Current(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil {
		return b.showPlans(ctx, userID, chatID)
	}
	return b.showMyAds(ctx, userID, chatID)
}

// handleCreateAdChooser serves the generic "create ad" button: a plan
// with both features gets a chooser, a single-feature plan goes
// straight into its flow.
func (b *Bot) handleCreateAdChooser(ctx context.Context, userID, chatID int64) error {
	buyDecision, err := b.subs.CheckAccess(ctx, userID, model.FeatureBuy)
	if err != nil {
		return err
	}
	if buyDecision.Verdict == subscription.NeedsLogin {
		return b.showWelcomeFlow(ctx, userID, chatID)
	}
	sellDecision, err := b.subs.CheckAccess(ctx, userID, model.FeatureSell)
	if err != nil {
		return err
	}

	canBuy := buyDecision.Verdict == subscription.Proceed
	canSell := sellDecision.Verdict == subscription.Proceed
	switch {
	case canBuy && canSell:
		return b.replyWithKeyboard(ctx, chatID, "📝 <b>O que você deseja criar?</b>",
			telegram.Keyboard(
				telegram.Row(telegram.Btn("🟢 Anúncio de COMPRA", "create_buy_ad")),
				telegram.Row(telegram.Btn("🔵 Anúncio de VENDA", "create_sell_ad")),
			))
	case canSell:
		return b.startSellAd(ctx, userID, chatID)
	case canBuy:
		return b.startBuyAd(ctx, userID, chatID)
	default:
		return b.showPlans(ctx, userID, chatID)
	}
}
