package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"milebot/internal/config"
	"milebot/pkg/breaker"
	"milebot/pkg/limiter"
	"milebot/pkg/log"
	"milebot/pkg/utils"
)

// Client is a thin Bot API adapter. Every outbound call passes the
// shared send-rate token bucket and a circuit breaker, the Bot API
// throttles bots that exceed roughly 30 messages per second.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	throttle   *limiter.TokenBucketLimiter
	breaker    *breaker.CircuitBreaker
}

// NewClient creates a Bot API client from configuration.
func NewClient(cfg *config.Config) *Client {
	cb := breaker.NewCircuitBreaker("telegram", breaker.Config{
		MaxRequests: cfg.CircuitBreak.MaxRequests,
		Interval:    cfg.CircuitBreak.Interval,
		Timeout:     cfg.CircuitBreak.Timeout,
		ReadyToTrip: func(counts breaker.Counts) bool {
			return counts.Requests >= cfg.CircuitBreak.MinRequestCount &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.CircuitBreak.FailureRatio
		},
	})

	return &Client{
		token:   cfg.Telegram.Token,
		baseURL: cfg.Telegram.APIURL,
		httpClient: &http.Client{
			// Above the long-poll timeout so getUpdates is not cut off
			Timeout: cfg.Telegram.PollTimeout + 10*time.Second,
		},
		throttle: limiter.NewTokenBucketLimiter(rate.Limit(cfg.Telegram.SendRPS), cfg.Telegram.SendBurst),
		breaker:  cb,
	}
}

func (c *Client) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return utils.WrapError(err, utils.CodeTelegramError, "failed to encode request")
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	return c.breaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		var envelope apiResponse
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return utils.WrapError(err, utils.CodeTelegramError, "failed to decode response")
		}
		if !envelope.OK {
			return utils.NewError(utils.CodeTelegramError,
				fmt.Sprintf("%s failed: %d %s", method, envelope.ErrorCode, envelope.Description))
		}
		if result != nil {
			if err := json.Unmarshal(envelope.Result, result); err != nil {
				return utils.WrapError(err, utils.CodeTelegramError, "failed to decode result")
			}
		}
		return nil
	})
}

// send is call plus the outbound throttle, used for everything that
// produces a message.
func (c *Client) send(ctx context.Context, method string, payload interface{}, result interface{}) error {
	if err := c.throttle.Wait(ctx); err != nil {
		return err
	}
	return c.call(ctx, method, payload, result)
}

// SendMessage sends a text message and returns the sent message.
func (c *Client) SendMessage(ctx context.Context, req *SendMessageRequest) (*Message, error) {
	if req.ParseMode == "" {
		req.ParseMode = "HTML"
	}
	var msg Message
	if err := c.send(ctx, "sendMessage", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText edits a previously sent message in place.
func (c *Client) EditMessageText(ctx context.Context, req *EditMessageTextRequest) error {
	if req.ParseMode == "" {
		req.ParseMode = "HTML"
	}
	return c.send(ctx, "editMessageText", req, nil)
}

// EditReplyMarkup swaps the inline keyboard of a sent message.
func (c *Client) EditReplyMarkup(ctx context.Context, chatID int64, messageID int, markup *InlineKeyboardMarkup) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return c.send(ctx, "editMessageReplyMarkup", payload, nil)
}

// AnswerCallback acknowledges a button press so the client stops the
// spinner. Failures are logged and swallowed, the press already worked.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) {
	err := c.call(ctx, "answerCallbackQuery", &AnswerCallbackRequest{
		CallbackQueryID: callbackID,
		Text:            text,
	}, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to answer callback query")
	}
}

// GetUpdates long-polls for new updates starting after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	payload := map[string]interface{}{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}
