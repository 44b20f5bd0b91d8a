package bot

import (
	"context"
	"fmt"
	"strings"

	"milebot/internal/model"
	"milebot/internal/msgfmt"
	"milebot/internal/telegram"
	"milebot/pkg/utils"
)

// showMyAds lists the caller's active ads with a delete button each.
func (b *Bot) showMyAds(ctx context.Context, userID, chatID int64) error {
	adList, err := b.ads.ListActiveForOwner(ctx, userID)
	if err != nil {
		return err
	}

	if len(adList) == 0 {
		return b.replyWithKeyboard(ctx, chatID,
			"📦 <b>Meus Anúncios</b>\n\nVocê não possui anúncios ativos no momento.",
			telegram.Keyboard(
				telegram.Row(telegram.Btn("📝 Criar anúncio", "create_ad")),
				telegram.Row(telegram.Btn("🏠 Voltar ao Menu", "back_to_menu")),
			))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📦 <b>Meus Anúncios Ativos (%d)</b>\n", len(adList)))

	var rows [][]telegram.InlineKeyboardButton
	for i, ad := range adList {
		kindLabel := "VENDA"
		if ad.Kind == model.AdKindBuy {
			kindLabel = "COMPRA"
		}
		sb.WriteString(fmt.Sprintf(
			"\n%d️⃣ <b>%s</b> - %s\n📊 %s milhas a R$ %s o milheiro\n💵 Total: R$ %s\n",
			i+1, kindLabel, msgfmt.EscapeHTML(programDisplay(ad.Airline)),
			msgfmt.FormatMiles(ad.Quantity), msgfmt.FormatPrice(ad.PricePerK), msgfmt.FormatPrice(ad.TotalValue())))
		rows = append(rows, telegram.Row(telegram.Btn(
			fmt.Sprintf("🗑️ Excluir %d (%s %s)", i+1, kindLabel, shortAdRef(ad.ID)),
			"cancel_"+formatCallbackID(ad.ID),
		)))
	}
	rows = append(rows, telegram.Row(telegram.Btn("🏠 Voltar ao Menu", "back_to_menu")))

	return b.replyWithKeyboard(ctx, chatID, sb.String(), &telegram.InlineKeyboardMarkup{InlineKeyboard: rows})
}

// handleCancelAd runs on the delete button of an ad.
func (b *Bot) handleCancelAd(ctx context.Context, userID, chatID, adID int64) error {
	if err := b.ads.Cancel(ctx, adID, userID); err != nil {
		switch err {
		case utils.ErrAdNotFound:
			return b.reply(ctx, chatID, "❌ Anúncio não encontrado. Ele pode já ter sido removido.")
		case utils.ErrAdNotOwned:
			return b.reply(ctx, chatID, "❌ Você só pode excluir os seus próprios anúncios.")
		case utils.ErrAdNotActive:
			return b.reply(ctx, chatID, "❌ Este anúncio já foi finalizado ou cancelado.")
		default:
			return err
		}
	}
	return b.reply(ctx, chatID, "🗑️ Anúncio excluído com sucesso.")
}
