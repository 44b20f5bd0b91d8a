package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"milebot/internal/config"
	"milebot/internal/model"
	"milebot/internal/monitor"
	"milebot/internal/msgfmt"
	"milebot/internal/repository"
	"milebot/internal/service/ads"
	"milebot/internal/service/ratings"
	"milebot/internal/telegram"
	"milebot/pkg/log"
	"milebot/pkg/queue"
)

// TopicAdPublish carries ads waiting to be posted to the group.
const TopicAdPublish = "ads.publish"

// PublishEvent is the queue payload for one ad publication.
type PublishEvent struct {
	AdID int64 `json:"ad_id"`
}

// PublishConsumer drains the publication topic and posts each ad to
// the marketplace group. Posting is detached from the create flow so a
// slow Bot API call never blocks the conversation.
type PublishConsumer struct {
	queue   queue.MessageQueue
	client  *telegram.Client
	adSvc   *ads.Service
	ratings *ratings.Service
	users   repository.UserRepository

	groupChatID int64
	botName     string
}

// NewPublishConsumer creates a publication consumer
func NewPublishConsumer(
	q queue.MessageQueue,
	client *telegram.Client,
	adSvc *ads.Service,
	ratingSvc *ratings.Service,
	users repository.UserRepository,
	cfg *config.Config,
) *PublishConsumer {
	return &PublishConsumer{
		queue:       q,
		client:      client,
		adSvc:       adSvc,
		ratings:     ratingSvc,
		users:       users,
		groupChatID: cfg.Market.GroupChatID,
		botName:     cfg.Telegram.BotName,
	}
}

// Run consumes until the context ends or the queue closes.
func (c *PublishConsumer) Run(ctx context.Context) {
	log.Info("Ad publication consumer started")
	for {
		payload, err := c.queue.Consume(ctx, TopicAdPublish)
		if err != nil {
			if errors.Is(err, queue.ErrQueueClosed) || ctx.Err() != nil {
				log.Info("Ad publication consumer stopped")
				return
			}
			log.WithError(err).Error("Failed to consume publication event")
			continue
		}

		var event PublishEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			log.WithError(err).Error("Malformed publication event")
			continue
		}
		if err := c.publish(ctx, event.AdID); err != nil {
			monitor.RecordAdPublish("error")
			log.WithError(err).WithField("ad_id", event.AdID).
				Error("Failed to publish ad to group")
		}
	}
}

// publish posts one ad. The message ref is recorded only after the
// post succeeds, a failed send leaves the ad unpublished but intact.
func (c *PublishConsumer) publish(ctx context.Context, adID int64) error {
	ad, err := c.adSvc.GetByID(ctx, adID)
	if err != nil {
		return err
	}
	if ad == nil || !ad.IsActive() {
		monitor.RecordAdPublish("skipped")
		log.WithField("ad_id", adID).Info("Skipping publication of missing or inactive ad")
		return nil
	}

	text, err := c.formatPost(ctx, ad)
	if err != nil {
		return err
	}

	buttonText := "🛒 COMPRAR DESSA OFERTA"
	if ad.Kind == model.AdKindBuy {
		buttonText = "💰 VENDER PARA ESSA OFERTA"
	}
	deepLink := fmt.Sprintf("https://t.me/%s?start=proposta_%d", c.botName, ad.ID)

	msg, err := c.client.SendMessage(ctx, &telegram.SendMessageRequest{
		ChatID:      c.groupChatID,
		Text:        text,
		ReplyMarkup: telegram.Keyboard(telegram.Row(telegram.URLBtn(buttonText, deepLink))),
	})
	if err != nil {
		return err
	}

	if err := c.adSvc.RecordPublication(ctx, ad.ID, c.groupChatID, msg.MessageID); err != nil {
		log.WithError(err).WithField("ad_id", ad.ID).
			Warn("Ad posted but publication ref not recorded")
	}
	monitor.RecordAdPublish("success")
	return nil
}

// formatPost builds the group message with the owner's trust meter.
func (c *PublishConsumer) formatPost(ctx context.Context, ad *model.Ad) (string, error) {
	avgStars, ratingCount, err := c.ratings.AverageStars(ctx, ad.OwnerID)
	if err != nil {
		return "", err
	}

	memberSince := "N/A"
	if owner, err := c.users.GetByID(ctx, ad.OwnerID); err == nil && owner != nil {
		memberSince = owner.CreatedAt.Format("02/01/2006")
	}

	var sb strings.Builder
	ref := strconv.FormatInt(ad.ID, 10)
	if len(ref) > 7 {
		ref = ref[len(ref)-7:]
	}

	if ad.Kind == model.AdKindBuy {
		passengers := 1
		if ad.Passengers != nil {
			passengers = *ad.Passengers
		}
		sb.WriteString(fmt.Sprintf(
			"Compro %s milhas <b>%s</b> para emissão com <b>%d CPF</b>. Compro por <b>R$ %s</b> cada mil milhas.\n\n",
			msgfmt.FormatMiles(ad.Quantity), strings.ToUpper(ad.Airline), passengers, msgfmt.FormatPrice(ad.PricePerK)))
		sb.WriteString(urgencyLine(ad.Urgent) + "\n")
		sb.WriteString("▶️ Oferta de compra " + ref + "\n\n")
	} else {
		sb.WriteString(fmt.Sprintf(
			"Vendo %s milhas <b>%s</b> por <b>R$ %s</b> cada mil milhas.\n\n",
			msgfmt.FormatMiles(ad.Quantity), strings.ToUpper(ad.Airline), msgfmt.FormatPrice(ad.PricePerK)))
		sb.WriteString(urgencyLine(ad.Urgent) + "\n")
		sb.WriteString("▶️ Oferta de venda " + ref + "\n\n")
	}

	sb.WriteString(msgfmt.TrustMeter(avgStars, ratingCount, memberSince))
	return sb.String(), nil
}

func urgencyLine(urgent bool) string {
	if urgent {
		return "▶️ Emissão para menos de sete dias ⚠️"
	}
	return "▶️ Emissão para mais de sete dias: ✅"
}
