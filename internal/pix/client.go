package pix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"milebot/internal/config"
	"milebot/pkg/breaker"
	"milebot/pkg/utils"
)

// Charge is a created PIX charge with the payloads the user needs to
// pay it.
type Charge struct {
	ID         string
	QRCode     string
	QRCodeB64  string
	CopyPaste  string
	Amount     float64
	Expiration time.Time
}

// PaymentInfo is the gateway's view of an existing payment.
type PaymentInfo struct {
	ID                string
	Status            string
	Amount            float64
	ExternalReference string
}

// Client is a thin gateway adapter for PIX charges.
type Client struct {
	accessToken     string
	baseURL         string
	notificationURL string
	expireAfter     time.Duration
	httpClient      *http.Client
	breaker         *breaker.CircuitBreaker
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg *config.Config) *Client {
	cb := breaker.NewCircuitBreaker("pix-gateway", breaker.Config{
		MaxRequests: cfg.CircuitBreak.MaxRequests,
		Interval:    cfg.CircuitBreak.Interval,
		Timeout:     cfg.CircuitBreak.Timeout,
		ReadyToTrip: func(counts breaker.Counts) bool {
			return counts.Requests >= cfg.CircuitBreak.MinRequestCount &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.CircuitBreak.FailureRatio
		},
	})

	return &Client{
		accessToken:     cfg.Payment.AccessToken,
		baseURL:         cfg.Payment.APIURL,
		notificationURL: cfg.Payment.NotificationURL,
		expireAfter:     cfg.Payment.ExpireAfter,
		httpClient:      &http.Client{Timeout: 15 * time.Second},
		breaker:         cb,
	}
}

type createPaymentRequest struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description"`
	PaymentMethodID   string  `json:"payment_method_id"`
	ExternalReference string  `json:"external_reference,omitempty"`
	NotificationURL   string  `json:"notification_url,omitempty"`
	DateOfExpiration  string  `json:"date_of_expiration,omitempty"`
	Payer             payer   `json:"payer"`
}

type payer struct {
	Email          string         `json:"email"`
	FirstName      string         `json:"first_name,omitempty"`
	Identification identification `json:"identification"`
}

type identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type paymentResponse struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	TransactionAmount  float64     `json:"transaction_amount"`
	ExternalReference  string      `json:"external_reference"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}, out *paymentResponse) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return utils.WrapError(err, utils.CodeGatewayError, "failed to encode gateway request")
		}
		body = bytes.NewReader(encoded)
	}

	return c.breaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.accessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return utils.NewError(utils.CodeGatewayError,
				fmt.Sprintf("gateway returned %d: %s", resp.StatusCode, string(raw)))
		}
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return utils.WrapError(err, utils.CodeGatewayError, "failed to decode gateway response")
			}
		}
		return nil
	})
}

// CreateCharge opens a PIX charge at the gateway.
func (c *Client) CreateCharge(ctx context.Context, amount float64, description, externalRef, payerEmail, payerName, cpf string) (*Charge, error) {
	expiration := time.Now().Add(c.expireAfter)

	req := createPaymentRequest{
		TransactionAmount: amount,
		Description:       description,
		PaymentMethodID:   "pix",
		ExternalReference: externalRef,
		NotificationURL:   c.notificationURL,
		DateOfExpiration:  expiration.Format("2006-01-02T15:04:05.000-07:00"),
		Payer: payer{
			Email:     payerEmail,
			FirstName: payerName,
			Identification: identification{
				Type:   "CPF",
				Number: cpf,
			},
		},
	}

	var resp paymentResponse
	if err := c.do(ctx, http.MethodPost, "/v1/payments", req, &resp); err != nil {
		return nil, err
	}

	return &Charge{
		ID:         resp.ID.String(),
		QRCode:     resp.PointOfInteraction.TransactionData.QRCode,
		QRCodeB64:  resp.PointOfInteraction.TransactionData.QRCodeBase64,
		CopyPaste:  resp.PointOfInteraction.TransactionData.QRCode,
		Amount:     resp.TransactionAmount,
		Expiration: expiration,
	}, nil
}

// GetPayment fetches the current state of a payment by gateway id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*PaymentInfo, error) {
	var resp paymentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &resp); err != nil {
		return nil, err
	}
	return &PaymentInfo{
		ID:                resp.ID.String(),
		Status:            resp.Status,
		Amount:            resp.TransactionAmount,
		ExternalReference: resp.ExternalReference,
	}, nil
}
