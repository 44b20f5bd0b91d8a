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

// showPlans lists the purchasable plans with one buy button each.
func (b *Bot) showPlans(ctx context.Context, userID, chatID int64) error {
	plans, err := b.subs.ListPlans(ctx)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		return b.reply(ctx, chatID, "⚠️ Erro ao carregar planos. Tente novamente mais tarde.")
	}

	var sb strings.Builder
	sb.WriteString("💳 <b>Plano Necessário</b>\n\n")
	sb.WriteString("Você não possui um plano ativo ou sua assinatura expirou.\n")
	sb.WriteString("Escolha um dos planos abaixo para liberar o acesso aos recursos:\n\n")

	var rows [][]telegram.InlineKeyboardButton
	for _, plan := range plans {
		icon, desc := planPresentation(plan)
		sb.WriteString(fmt.Sprintf("%s <b>%s: R$ %s</b>\n%s\n\n", icon, msgfmt.EscapeHTML(plan.Name), msgfmt.FormatPrice(plan.Price), desc))
		rows = append(rows, telegram.Row(telegram.Btn(
			fmt.Sprintf("%s %s - R$%s", icon, plan.Name, msgfmt.FormatPrice(plan.Price)),
			"buy_plan_"+formatCallbackID(plan.ID),
		)))
	}
	sb.WriteString(fmt.Sprintf("Validade: %d dias a partir da ativação", plans[0].DurationDays))

	return b.replyWithKeyboard(ctx, chatID, sb.String(), &telegram.InlineKeyboardMarkup{InlineKeyboard: rows})
}

// planPresentation maps a plan's feature set to its menu icon and
// description line.
func planPresentation(plan *model.Plan) (string, string) {
	buy := plan.HasFeature(model.FeatureBuy)
	sell := plan.HasFeature(model.FeatureSell)
	switch {
	case buy && sell:
		return "🟣", "Permite: Acesso completo a todos os recursos da plataforma."
	case buy:
		return "🟢", "Permite: Acessar o botão de Comprar Milhas e fazer propostas em anúncios de venda."
	case sell:
		return "🔵", "Permite: Criar anúncio de venda e fazer propostas em anúncios de compra."
	default:
		return "⚪", ""
	}
}

// handleBuyPlan runs on a buy_plan button: opens a PIX charge for the
// plan and hands the user the copy-paste code.
func (b *Bot) handleBuyPlan(ctx context.Context, userID, chatID, planID int64) error {
	if err := b.reply(ctx, chatID, "⏳ Gerando PIX, por favor aguarde..."); err != nil {
		return err
	}

	charge, plan, err := b.payments.CreatePlanPix(ctx, userID, planID)
	if err != nil {
		switch err {
		case utils.ErrPlanNotFound:
			return b.reply(ctx, chatID, "❌ Erro ao buscar informações do plano. Tente novamente.")
		case utils.ErrUserNotLinked:
			if err := b.reply(ctx, chatID, "❌ Você precisa estar logado para comprar um plano. Use /login primeiro."); err != nil {
				return err
			}
			return b.showWelcomeFlow(ctx, userID, chatID)
		default:
			return b.reply(ctx, chatID, "❌ Ocorreu um erro ao gerar o PIX. Por favor, tente novamente mais tarde.")
		}
	}

	if err := b.reply(ctx, chatID, fmt.Sprintf(
		"✅ <b>PIX Gerado com Sucesso!</b>\n\n"+
			"💰 <b>Valor:</b> R$ %s\n"+
			"📦 <b>Plano:</b> %s\n"+
			"🆔 <b>ID:</b> %s\n\n"+
			"<b>Código Copia e Cola:</b>",
		msgfmt.FormatPrice(charge.Amount), msgfmt.EscapeHTML(plan.Name), charge.ID)); err != nil {
		return err
	}
	if err := b.reply(ctx, chatID, "<code>"+msgfmt.EscapeHTML(charge.CopyPaste)+"</code>"); err != nil {
		return err
	}
	return b.reply(ctx, chatID, fmt.Sprintf(
		"🔔 Assim que o pagamento for confirmado, você receberá uma notificação aqui.\n\n"+
			"⏰ <b>Prazo de pagamento:</b> 30 minutos\n"+
			"📅 <b>Validade do plano:</b> %d dias após ativação", plan.DurationDays))
}

// startPixFlow opens the small test-charge dialogue.
func (b *Bot) startPixFlow(ctx context.Context, userID, chatID int64) error {
	if err := b.conv.Set(ctx, userID, model.StateAskPixCPF, &model.Scratch{Pix: &model.PixDraft{Amount: 0.10}}); err != nil {
		return err
	}
	return b.reply(ctx, chatID,
		"💳 <b>Geração de PIX de Teste (R$ 0,10)</b>\n\nPor favor, informe o seu <b>CPF</b> para gerar o pagamento:")
}

func (b *Bot) handlePixCPF(ctx context.Context, msg *telegram.Message, state *model.ConversationState) error {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	cpf, err := utils.ValidateCPF(msg.Text)
	if err != nil {
		return b.reply(ctx, chatID, "⚠️ CPF inválido. Por favor, envie o CPF com 11 dígitos (apenas números):")
	}

	if err := b.reply(ctx, chatID, "⏳ Gerando PIX, por favor aguarde..."); err != nil {
		return err
	}

	amount := 0.10
	if state.Scratch.Pix != nil && state.Scratch.Pix.Amount > 0 {
		amount = state.Scratch.Pix.Amount
	}

	charge, err := b.payments.CreateTestPix(ctx, userID, amount, cpf)
	if err != nil {
		if err := b.reply(ctx, chatID, "❌ Ocorreu um erro ao gerar o PIX. Por favor, tente novamente mais tarde."); err != nil {
			return err
		}
		return b.conv.Reset(ctx, userID)
	}

	if err := b.reply(ctx, chatID, fmt.Sprintf(
		"✅ <b>PIX Gerado com Sucesso!</b>\n\n💰 <b>Valor:</b> R$ %s\n🆔 <b>ID:</b> %s\n\n<b>Código Copia e Cola:</b>",
		msgfmt.FormatPrice(charge.Amount), charge.ID)); err != nil {
		return err
	}
	if err := b.reply(ctx, chatID, "<code>"+msgfmt.EscapeHTML(charge.CopyPaste)+"</code>"); err != nil {
		return err
	}
	if err := b.reply(ctx, chatID, "🔔 Assim que o pagamento for confirmado, você receberá uma notificação aqui."); err != nil {
		return err
	}
	return b.conv.Reset(ctx, userID)
}
