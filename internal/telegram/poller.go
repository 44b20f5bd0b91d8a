package telegram

import (
	"context"
	"time"

	"milebot/pkg/log"
)

// UpdateHandler consumes one update. Errors are the handler's problem,
// the poller only advances the offset.
type UpdateHandler func(ctx context.Context, update Update)

// Poller drives the getUpdates long-poll loop.
type Poller struct {
	client  *Client
	timeout time.Duration
	handler UpdateHandler
}

// NewPoller creates a poller delivering updates to handler.
func NewPoller(client *Client, timeout time.Duration, handler UpdateHandler) *Poller {
	return &Poller{
		client:  client,
		timeout: timeout,
		handler: handler,
	}
}

// Run polls until the context is cancelled. Transport errors back off
// and retry, the offset only advances past delivered updates.
func (p *Poller) Run(ctx context.Context) {
	var offset int64

	log.Info("Telegram poller started")
	for {
		select {
		case <-ctx.Done():
			log.Info("Telegram poller stopped")
			return
		default:
		}

		updates, err := p.client.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.WithError(err).Warn("getUpdates failed, backing off")
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			p.handler(ctx, update)
		}
	}
}
