package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/collectmyitem/booking/internal/events"
	"github.com/collectmyitem/booking/internal/payments"
	mock_server "github.com/collectmyitem/booking/internal/server/mocks"
)

const webhookSecret = "whsec_test_secret"

// stripeSignature reproduces the processor's signature scheme:
// HMAC-SHA256 over "{timestamp}.{payload}" carried as "t=...,v1=...".
func stripeSignature(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func completedSessionPayload(bookingRef string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_1",
				"object": "checkout.session",
				"metadata": {"bookingRef": %q}
			}
		}
	}`, bookingRef))
}

// newWebhookServer wires the real verifier so the signature path is exercised
// end to end; only the storage behind it is mocked.
func newWebhookServer(t *testing.T) (*Server, *mock_server.MockStorage) {
	t.Helper()

	ctrl := gomock.NewController(t)
	mockStorage := mock_server.NewMockStorage(ctrl)
	mockCheckout := mock_server.NewMockCheckoutService(ctrl)
	verifier := payments.New("sk_test_key", webhookSecret, "http://localhost:4242")

	srv := New(mockStorage, mockCheckout, verifier, events.NewConsoleProducer(), zap.NewNop(), Config{})
	return srv, mockStorage
}

func postWebhook(srv *Server, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rr := httptest.NewRecorder()
	srv.handleWebhook(rr, req)
	return rr
}

func TestWebhookCheckoutCompleted(t *testing.T) {
	srv, mockStorage := newWebhookServer(t)

	mockStorage.EXPECT().
		MarkPaid(gomock.Any(), "CMI-ABC123").
		Return(true, nil)

	payload := completedSessionPayload("CMI-ABC123")
	rr := postWebhook(srv, payload, stripeSignature(payload, webhookSecret))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"received":true}`, rr.Body.String())
}

func TestWebhookInvalidSignature(t *testing.T) {
	srv, _ := newWebhookServer(t)

	// Well-formed payload, signature from the wrong secret: no state change,
	// which the mock enforces by expecting no MarkPaid calls.
	payload := completedSessionPayload("CMI-ABC123")
	rr := postWebhook(srv, payload, stripeSignature(payload, "whsec_wrong_secret"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookMissingSignature(t *testing.T) {
	srv, _ := newWebhookServer(t)

	rr := postWebhook(srv, completedSessionPayload("CMI-ABC123"), "")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookTamperedPayload(t *testing.T) {
	srv, _ := newWebhookServer(t)

	payload := completedSessionPayload("CMI-ABC123")
	signature := stripeSignature(payload, webhookSecret)
	tampered := bytes.Replace(payload, []byte("CMI-ABC123"), []byte("CMI-EVIL01"), 1)

	rr := postWebhook(srv, tampered, signature)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	srv, _ := newWebhookServer(t)

	payload := []byte(`{
		"id": "evt_2",
		"object": "event",
		"type": "payment_intent.created",
		"data": {"object": {"id": "pi_1", "object": "payment_intent"}}
	}`)
	rr := postWebhook(srv, payload, stripeSignature(payload, webhookSecret))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"received":true}`, rr.Body.String())
}

func TestWebhookUnknownBookingRefIsAcknowledged(t *testing.T) {
	srv, mockStorage := newWebhookServer(t)

	mockStorage.EXPECT().
		MarkPaid(gomock.Any(), "CMI-GHOST1").
		Return(false, nil)

	payload := completedSessionPayload("CMI-GHOST1")
	rr := postWebhook(srv, payload, stripeSignature(payload, webhookSecret))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"received":true}`, rr.Body.String())
}
