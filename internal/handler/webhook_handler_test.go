package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockPaymentProcessor mock payment processor
type MockPaymentProcessor struct {
	mock.Mock
}

func (m *MockPaymentProcessor) ProcessPaymentEvent(ctx context.Context, paymentID string) error {
	args := m.Called(ctx, paymentID)
	return args.Error(0)
}

func newWebhookRouter(processor PaymentProcessor) *gin.Engine {
	handler := NewWebhookHandler(processor)
	router := gin.New()
	router.POST("/webhook/payment", handler.HandlePayment)
	return router
}

func TestWebhookHandler_HandlePayment(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("payment notification is processed and acked", func(t *testing.T) {
		mockProcessor := new(MockPaymentProcessor)
		mockProcessor.On("ProcessPaymentEvent", mock.Anything, "12345").Return(nil)
		router := newWebhookRouter(mockProcessor)

		body := bytes.NewBufferString(`{"type":"payment","action":"payment.updated","data":{"id":"12345"}}`)
		req, _ := http.NewRequest("POST", "/webhook/payment", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockProcessor.AssertExpectations(t)
	})

	t.Run("processing failure is still acked", func(t *testing.T) {
		mockProcessor := new(MockPaymentProcessor)
		mockProcessor.On("ProcessPaymentEvent", mock.Anything, "12345").Return(errors.New("gateway down"))
		router := newWebhookRouter(mockProcessor)

		body := bytes.NewBufferString(`{"type":"payment","data":{"id":"12345"}}`)
		req, _ := http.NewRequest("POST", "/webhook/payment", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockProcessor.AssertExpectations(t)
	})

	t.Run("payment id from query string", func(t *testing.T) {
		mockProcessor := new(MockPaymentProcessor)
		mockProcessor.On("ProcessPaymentEvent", mock.Anything, "777").Return(nil)
		router := newWebhookRouter(mockProcessor)

		body := bytes.NewBufferString(`{}`)
		req, _ := http.NewRequest("POST", "/webhook/payment?type=payment&data.id=777", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockProcessor.AssertExpectations(t)
	})

	t.Run("non-payment notification is ignored", func(t *testing.T) {
		mockProcessor := new(MockPaymentProcessor)
		router := newWebhookRouter(mockProcessor)

		body := bytes.NewBufferString(`{"type":"merchant_order","data":{"id":"55"}}`)
		req, _ := http.NewRequest("POST", "/webhook/payment", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockProcessor.AssertNotCalled(t, "ProcessPaymentEvent", mock.Anything, mock.Anything)
	})

	t.Run("missing payment id is still acked", func(t *testing.T) {
		mockProcessor := new(MockPaymentProcessor)
		router := newWebhookRouter(mockProcessor)

		body := bytes.NewBufferString(`{"type":"payment"}`)
		req, _ := http.NewRequest("POST", "/webhook/payment", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		// Anything but 200 makes the gateway retry forever
		assert.Equal(t, http.StatusOK, w.Code)
		mockProcessor.AssertNotCalled(t, "ProcessPaymentEvent", mock.Anything, mock.Anything)
	})

	t.Run("malformed body is still acked", func(t *testing.T) {
		mockProcessor := new(MockPaymentProcessor)
		router := newWebhookRouter(mockProcessor)

		body := bytes.NewBufferString(`not json`)
		req, _ := http.NewRequest("POST", "/webhook/payment", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockProcessor.AssertNotCalled(t, "ProcessPaymentEvent", mock.Anything, mock.Anything)
	})
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/health", Health)

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
