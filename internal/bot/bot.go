package bot

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"milebot/internal/config"
	"milebot/internal/consumer"
	"milebot/internal/model"
	"milebot/internal/repository"
	"milebot/internal/service/ads"
	"milebot/internal/service/auth"
	"milebot/internal/service/conversation"
	"milebot/internal/service/payment"
	"milebot/internal/service/proposals"
	"milebot/internal/service/ratings"
	"milebot/internal/service/subscription"
	"milebot/internal/telegram"
	"milebot/pkg/limiter"
	"milebot/pkg/log"
	"milebot/pkg/queue"
)

// Bot is the conversational front of the marketplace. It routes every
// incoming update to a command, a callback tag or the text handler of
// the user's current conversation state.
type Bot struct {
	client *telegram.Client
	cfg    *config.Config

	users     repository.UserRepository
	conv      *conversation.Service
	ads       *ads.Service
	proposals *proposals.Service
	ratings   *ratings.Service
	auth      *auth.Service
	subs      *subscription.Service
	payments  *payment.Service
	queue     queue.MessageQueue

	perUser *userLimiters
}

// NewBot wires the dispatcher. The telegram client doubles as the
// notifier for every service that needs to reach a user.
func NewBot(
	client *telegram.Client,
	cfg *config.Config,
	users repository.UserRepository,
	conv *conversation.Service,
	adSvc *ads.Service,
	proposalSvc *proposals.Service,
	ratingSvc *ratings.Service,
	authSvc *auth.Service,
	subSvc *subscription.Service,
	paymentSvc *payment.Service,
	q queue.MessageQueue,
) *Bot {
	return &Bot{
		client:    client,
		cfg:       cfg,
		users:     users,
		conv:      conv,
		ads:       adSvc,
		proposals: proposalSvc,
		ratings:   ratingSvc,
		auth:      authSvc,
		subs:      subSvc,
		payments:  paymentSvc,
		queue:     q,
		perUser:   newUserLimiters(cfg.RateLimit.PerUser.RPS, cfg.RateLimit.PerUser.Burst, cfg.RateLimit.PerUser.TTL),
	}
}

// Notify sends a plain message to a user's private chat. It satisfies
// the Notifier interfaces of the subscription and payment services.
func (b *Bot) Notify(ctx context.Context, userID int64, text string) error {
	_, err := b.client.SendMessage(ctx, &telegram.SendMessageRequest{
		ChatID: userID,
		Text:   text,
	})
	return err
}

// HandleUpdate is the per-update entry point. Panics and errors stop
// here: the update is logged and the user gets a generic retry prompt,
// the poller moves on.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("update_id", update.UpdateID).
				Errorf("Panic while handling update: %v", r)
			b.replyGenericError(ctx, update)
		}
	}()

	var err error
	switch {
	case update.Message != nil:
		err = b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		log.WithError(err).WithField("update_id", update.UpdateID).
			Error("Failed to handle update")
		b.replyGenericError(ctx, update)
	}
}

func (b *Bot) replyGenericError(ctx context.Context, update telegram.Update) {
	var chatID int64
	if update.Message != nil {
		chatID = update.Message.Chat.ID
	} else if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		chatID = update.CallbackQuery.Message.Chat.ID
	}
	if chatID == 0 {
		return
	}
	if _, err := b.client.SendMessage(ctx, &telegram.SendMessageRequest{
		ChatID: chatID,
		Text:   "⚠️ Ocorreu um erro. Por favor, tente novamente com /start",
	}); err != nil {
		log.WithError(err).Warn("Failed to send error reply")
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) error {
	if len(msg.NewChatMembers) > 0 {
		return b.handleNewMembers(ctx, msg)
	}
	if msg.From == nil || msg.Chat.Type != "private" {
		return nil
	}

	userID := msg.From.ID
	if !b.perUser.allow(userID) {
		log.WithField("user_id", userID).Warn("User message rate limited")
		return nil
	}

	if err := b.users.Upsert(ctx, &model.User{
		ID:        userID,
		Username:  msg.From.Username,
		FirstName: msg.From.FirstName,
	}); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Failed to upsert user")
	}

	if len(msg.Text) > 0 && msg.Text[0] == '/' {
		return b.handleCommand(ctx, msg)
	}
	return b.handleText(ctx, msg)
}

// handleNewMembers greets people joining the marketplace group with a
// private message. Telegram refuses the PM when the member never
// talked to the bot, that is expected and only logged.
func (b *Bot) handleNewMembers(ctx context.Context, msg *telegram.Message) error {
	if msg.Chat.ID != b.cfg.Market.GroupChatID {
		return nil
	}
	for _, member := range msg.NewChatMembers {
		if member.IsBot {
			continue
		}
		if _, err := b.client.SendMessage(ctx, &telegram.SendMessageRequest{
			ChatID: member.ID,
			Text:   groupWelcomeText,
		}); err != nil {
			log.WithError(err).WithField("user_id", member.ID).
				Info("Could not greet new group member in private")
		}
	}
	return nil
}

// userLimiters keeps one token bucket per user so a single chat cannot
// monopolize the bot. Buckets idle past the ttl are dropped.
type userLimiters struct {
	mu      sync.Mutex
	buckets map[int64]*userBucket
	rps     int
	burst   int
	ttl     time.Duration
}

type userBucket struct {
	limiter  *limiter.TokenBucketLimiter
	lastSeen time.Time
}

// enqueuePublication hands the ad to the publication consumer. The ad
// is already created, so a queue failure only delays the group post.
func (b *Bot) enqueuePublication(ctx context.Context, adID int64) {
	payload, err := json.Marshal(consumer.PublishEvent{AdID: adID})
	if err != nil {
		log.WithError(err).WithField("ad_id", adID).Error("Failed to encode publication event")
		return
	}
	if err := b.queue.Publish(ctx, consumer.TopicAdPublish, payload); err != nil {
		log.WithError(err).WithField("ad_id", adID).Error("Failed to enqueue ad publication")
	}
}

func newUserLimiters(rps, burst int, ttl time.Duration) *userLimiters {
	return &userLimiters{
		buckets: make(map[int64]*userBucket),
		rps:     rps,
		burst:   burst,
		ttl:     ttl,
	}
}

func (u *userLimiters) allow(userID int64) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	now := time.Now()
	bucket, ok := u.buckets[userID]
	if !ok {
		bucket = &userBucket{limiter: limiter.NewTokenBucketLimiter(rate.Limit(u.rps), u.burst)}
		u.buckets[userID] = bucket
	}
	bucket.lastSeen = now

	if len(u.buckets) > 1024 {
		for id, b := range u.buckets {
			if now.Sub(b.lastSeen) > u.ttl {
				delete(u.buckets, id)
			}
		}
	}
	return bucket.limiter.Allow()
}
