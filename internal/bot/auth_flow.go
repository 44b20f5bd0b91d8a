package bot

import (
	"context"
	"strings"

	"milebot/internal/model"
	"milebot/internal/telegram"
	"milebot/pkg/utils"
)

// startLogin opens the credential dialogue.
func (b *Bot) startLogin(ctx context.Context, userID, chatID int64) error {
	if err := b.conv.Set(ctx, userID, model.StateAskLoginEmail, &model.Scratch{Login: &model.LoginDraft{}}); err != nil {
		return err
	}
	return b.reply(ctx, chatID,
		"🔐 <b>Login do Sistema</b>\n\nPor favor, digite seu <b>e-mail</b> cadastrado no site:")
}

func (b *Bot) handleLoginEmail(ctx context.Context, msg *telegram.Message, state *model.ConversationState) error {
	email := strings.TrimSpace(msg.Text)
	if !strings.Contains(email, "@") {
		return b.reply(ctx, msg.Chat.ID, "❌ E-mail inválido. Digite novamente:")
	}

	if err := b.conv.Merge(ctx, msg.From.ID, model.StateAskLoginPassword, func(s *model.Scratch) {
		if s.Login == nil {
			s.Login = &model.LoginDraft{}
		}
		s.Login.Email = email
	}); err != nil {
		return err
	}
	return b.reply(ctx, msg.Chat.ID, "Sua <b>senha</b>:")
}

func (b *Bot) handleLoginPassword(ctx context.Context, msg *telegram.Message, state *model.ConversationState) error {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	draft := state.Scratch.Login
	if draft == nil || draft.Email == "" {
		if err := b.conv.Reset(ctx, userID); err != nil {
			return err
		}
		return b.reply(ctx, chatID, "❌ Algo deu errado. Use /login novamente.")
	}

	_, err := b.auth.Login(ctx, userID, draft.Email, msg.Text)
	if err != nil {
		if err == utils.ErrLoginFailed {
			return b.reply(ctx, chatID, "❌ E-mail ou senha incorretos.")
		}
		return err
	}

	if err := b.conv.Reset(ctx, userID); err != nil {
		return err
	}
	if err := b.reply(ctx, chatID,
		"✅ <b>Login realizado com sucesso!</b>\n\nSua conta do site agora está vinculada ao seu Telegram."); err != nil {
		return err
	}
	return b.showMainMenu(ctx, userID, chatID)
}
