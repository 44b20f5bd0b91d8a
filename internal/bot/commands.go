package bot

import (
	"context"
	"fmt"
	"strings"

	"milebot/internal/model"
	"milebot/internal/service/subscription"
	"milebot/internal/telegram"
	"milebot/pkg/log"
)

const groupWelcomeText = `🌟 <b>Bem-vindo(a) ao Marketplace de Milhas!</b> 🌟

Olá! 👋 É um prazer ter você aqui. Nosso marketplace foi criado para facilitar a compra e venda de milhas de forma simples, segura e rápida.

💡 <b>Como funciona:</b>

<b>Comprar milhas:</b> você pode adquirir milhas de outros usuários que têm pontos acumulados e usá-las para emitir suas passagens.

<b>Vender milhas:</b> se você possui milhas, pode vendê-las emitindo passagens para pessoas interessadas em viajar.

🚀 Comece agora explorando as ofertas disponíveis ou anunciando suas milhas!`

const helpText = `❓ <b>Como usar o Marketplace de Milhas</b>

<b>Para vendedores:</b>
1. Clique em "Criar anúncio"
2. Informe a quantidade de milhas
3. Informe o programa de fidelidade
4. Informe o valor do milheiro
5. Seu anúncio será publicado automaticamente!

<b>Para compradores:</b>
1. Veja os anúncios no grupo
2. Clique em "Fazer proposta"
3. Informe quanto deseja pagar por milheiro
4. Aguarde a resposta do vendedor

<b>Importante:</b>
⚠️ O bot apenas conecta compradores e vendedores
⚠️ A negociação final é feita diretamente entre as partes
⚠️ Verifique a reputação antes de negociar`

func (b *Bot) handleCommand(ctx context.Context, msg *telegram.Message) error {
	userID := msg.From.ID
	parts := strings.Fields(msg.Text)
	command := strings.TrimSuffix(parts[0], "@"+b.cfg.Telegram.BotName)

	switch command {
	case "/start":
		if err := b.conv.Reset(ctx, userID); err != nil {
			return err
		}
		if len(parts) > 1 && strings.HasPrefix(parts[1], "proposta_") {
			return b.handleProposalDeepLink(ctx, msg, strings.TrimPrefix(parts[1], "proposta_"))
		}
		return b.showMainMenu(ctx, userID, msg.Chat.ID)

	case "/login":
		return b.startLogin(ctx, userID, msg.Chat.ID)

	case "/logout", "/exit":
		if err := b.auth.Logout(ctx, userID); err != nil {
			return err
		}
		return b.reply(ctx, msg.Chat.ID, "👋 Conta desvinculada. Use /login para entrar novamente.")

	case "/cancel", "/cancelar":
		if err := b.conv.Reset(ctx, userID); err != nil {
			return err
		}
		return b.reply(ctx, msg.Chat.ID, "✅ Operação cancelada. Use /start para começar novamente.")

	case "/plans", "/planos":
		return b.showPlans(ctx, userID, msg.Chat.ID)

	case "/pix":
		return b.startPixFlow(ctx, userID, msg.Chat.ID)

	default:
		return b.showMainMenu(ctx, userID, msg.Chat.ID)
	}
}

// showMainMenu greets a linked user with the action menu; everyone
// else is routed into the login flow first.
func (b *Bot) showMainMenu(ctx context.Context, userID, chatID int64) error {
	siteUser, err := b.auth.LinkedSiteUser(ctx, userID)
	if err != nil {
		return err
	}
	if siteUser == nil {
		return b.showWelcomeFlow(ctx, userID, chatID)
	}

	text := `🛫 <b>Bem-vindo ao Marketplace de Milhas!</b>

Aqui você pode comprar e vender milhas aéreas de forma segura e prática.

<b>Como funciona:</b>
1️⃣ Crie um anúncio de venda
2️⃣ Seu anúncio será publicado no grupo
3️⃣ Interessados fazem propostas
4️⃣ Você aceita ou recusa
5️⃣ Negociem diretamente!

<b>O que deseja fazer?</b>`

	_, err = b.client.SendMessage(ctx, &telegram.SendMessageRequest{
		ChatID: chatID,
		Text:   text,
		ReplyMarkup: telegram.Keyboard(
			telegram.Row(telegram.Btn("🟢 Criar anúncio de COMPRA", "create_buy_ad")),
			telegram.Row(telegram.Btn("🔵 Criar anúncio de VENDA", "create_sell_ad")),
			telegram.Row(
				telegram.Btn("📦 Meus anúncios", "my_ads"),
				telegram.Btn("❓ Ajuda", "help"),
			),
		),
	})
	return err
}

// showWelcomeFlow points an unlinked user at the site signup and parks
// the conversation waiting for a login e-mail.
func (b *Bot) showWelcomeFlow(ctx context.Context, userID, chatID int64) error {
	signupURL, err := b.auth.SignupURL(userID, "")
	if err != nil {
		log.WithError(err).Warn("Failed to build signup link")
		signupURL = b.cfg.Market.SiteURL
	}

	text := fmt.Sprintf(`🛫 <b>Bem-vindo ao Marketplace de Milhas!</b>

Parece que você ainda não tem uma conta vinculada.

📝 <a href="%s">Clique aqui para criar sua conta</a>

🔑 <b>Se você já fez o cadastro:</b>
Digite seu e-mail abaixo para fazer login`, signupURL)

	if err := b.conv.Set(ctx, userID, model.StateAskLoginEmail, &model.Scratch{Login: &model.LoginDraft{}}); err != nil {
		return err
	}
	return b.reply(ctx, chatID, text)
}

// handleProposalDeepLink services the group post button: the ad id
// travels in the /start payload.
func (b *Bot) handleProposalDeepLink(ctx context.Context, msg *telegram.Message, rawAdID string) error {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	adID, err := parseID(rawAdID)
	if err != nil {
		if err := b.reply(ctx, chatID, "❌ Anúncio não encontrado. Ele pode ter sido removido."); err != nil {
			return err
		}
		return b.showMainMenu(ctx, userID, chatID)
	}

	ad, err := b.ads.GetByID(ctx, adID)
	if err != nil {
		return err
	}
	if ad == nil {
		if err := b.reply(ctx, chatID, "❌ Anúncio não encontrado. Ele pode ter sido removido."); err != nil {
			return err
		}
		return b.showMainMenu(ctx, userID, chatID)
	}
	if !ad.IsActive() {
		if err := b.reply(ctx, chatID, "❌ Este anúncio não está mais disponível."); err != nil {
			return err
		}
		return b.showMainMenu(ctx, userID, chatID)
	}
	if ad.OwnerID == userID {
		if err := b.reply(ctx, chatID, "❌ Você não pode fazer proposta no seu próprio anúncio!"); err != nil {
			return err
		}
		return b.showMainMenu(ctx, userID, chatID)
	}

	// Proposing on a SELL ad means buying, on a BUY ad means selling
	feature := model.FeatureBuy
	if ad.Kind == model.AdKindBuy {
		feature = model.FeatureSell
	}
	return b.withAccess(ctx, userID, chatID, feature, func() error {
		return b.startProposalFlow(ctx, userID, chatID, ad)
	})
}

// withAccess runs fn only when the entitlement gate allows the
// feature, otherwise the user is routed to login or the plan list.
func (b *Bot) withAccess(ctx context.Context, userID, chatID int64, feature string, fn func() error) error {
	decision, err := b.subs.CheckAccess(ctx, userID, feature)
	if err != nil {
		return err
	}
	switch decision.Verdict {
	case subscription.Proceed:
		return fn()
	case subscription.NeedsLogin:
		return b.showWelcomeFlow(ctx, userID, chatID)
	case subscription.Denied:
		if err := b.reply(ctx, chatID,
			fmt.Sprintf("🔒 Seu plano <b>%s</b> não dá acesso a este recurso. Veja as opções abaixo:", decision.PlanName)); err != nil {
			return err
		}
		return b.showPlans(ctx, userID, chatID)
	default:
		return b.showPlans(ctx, userID, chatID)
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) error {
	_, err := b.client.SendMessage(ctx, &telegram.SendMessageRequest{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

func (b *Bot) replyWithKeyboard(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error {
	_, err := b.client.SendMessage(ctx, &telegram.SendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
	return err
}
