package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"github.com/collectmyitem/booking/internal/checkout"
	"github.com/collectmyitem/booking/internal/events"
	"github.com/collectmyitem/booking/internal/metrics"
	"github.com/collectmyitem/booking/internal/pricing"
	"github.com/collectmyitem/booking/internal/storage"
)

const maxWebhookBody = 1 << 20

// flexInt tolerates numbers arriving as JSON strings; the quote form posts
// whatever FormData produced, and anything unparseable defaults to zero so the
// pricing engine can apply its own fallbacks.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexInt(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

type bookingRequest struct {
	BookingRef     string  `json:"bookingRef"`
	Price          flexInt `json:"price"`
	Pickup         string  `json:"pickup"`
	Dropoff        string  `json:"dropoff"`
	ItemSize       string  `json:"itemSize"`
	ItemType       string  `json:"itemType"`
	ItemCount      flexInt `json:"itemCount"`
	ItemDetails    string  `json:"itemDetails"`
	StairsPickup   string  `json:"stairsPickup"`
	StairsDropoff  string  `json:"stairsDropoff"`
	CongestionZone string  `json:"congestionZone"`
	Date           string  `json:"date"`
	TimeWindow     string  `json:"timeWindow"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	Email          string  `json:"email"`
}

func (b bookingRequest) shipment() pricing.Shipment {
	return pricing.Shipment{
		Pickup:         b.Pickup,
		Dropoff:        b.Dropoff,
		ItemSize:       b.ItemSize,
		ItemType:       b.ItemType,
		ItemCount:      int(b.ItemCount),
		StairsPickup:   b.StairsPickup,
		StairsDropoff:  b.StairsDropoff,
		CongestionZone: b.CongestionZone,
		Date:           b.Date,
		TimeWindow:     b.TimeWindow,
	}
}

func (b bookingRequest) checkoutRequest() checkout.Request {
	return checkout.Request{
		BookingRef:     b.BookingRef,
		QuotedPrice:    int(b.Price),
		Pickup:         b.Pickup,
		Dropoff:        b.Dropoff,
		ItemSize:       b.ItemSize,
		ItemType:       b.ItemType,
		ItemCount:      int(b.ItemCount),
		ItemDetails:    b.ItemDetails,
		StairsPickup:   b.StairsPickup,
		StairsDropoff:  b.StairsDropoff,
		CongestionZone: b.CongestionZone,
		Date:           b.Date,
		TimeWindow:     b.TimeWindow,
		Name:           b.Name,
		Phone:          b.Phone,
		Email:          b.Email,
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// handlePrice serves the instant quote. Pure, no persistence.
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	quote := pricing.Quote(req.shipment())
	metrics.QuotesTotal.Inc()

	respondJSON(w, http.StatusOK, quote)
}

func (s *Server) handleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.checkout.CreateSession(r.Context(), req.checkoutRequest())
	if err != nil {
		if errors.Is(err, checkout.ErrAmountTooLow) {
			respondError(w, http.StatusBadRequest, "Invalid amount")
			return
		}
		s.logger.Error("Checkout session creation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"url":        result.URL,
		"bookingRef": result.BookingRef,
	})
}

// handleWebhook receives payment notifications from the processor. The body
// is read raw before any decoding; verification fails on anything but the
// exact transmitted bytes.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	event, err := s.verifier.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		metrics.WebhookSignatureFailuresTotal.Inc()
		s.logger.Warn("Webhook signature verification failed", zap.Error(err))
		respondError(w, http.StatusBadRequest, "Webhook signature verification failed")
		return
	}

	if event.Type == stripe.EventTypeCheckoutSessionCompleted {
		s.handleCheckoutCompleted(r, event)
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (s *Server) handleCheckoutCompleted(r *http.Request, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		s.logger.Error("Failed to decode checkout session from event",
			zap.String("eventID", event.ID), zap.Error(err))
		return
	}

	ref := session.Metadata["bookingRef"]
	if ref == "" {
		s.logger.Warn("Completed checkout session without bookingRef metadata",
			zap.String("eventID", event.ID))
		return
	}

	found, err := s.storage.MarkPaid(r.Context(), ref)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("mark_paid").Inc()
		s.logger.Error("Failed to mark booking paid",
			zap.String("bookingRef", ref), zap.Error(err))
		return
	}
	if !found {
		s.logger.Warn("Payment confirmed for unknown booking", zap.String("bookingRef", ref))
		return
	}

	metrics.PaymentsConfirmedTotal.Inc()
	s.logger.Info("Payment confirmed", zap.String("bookingRef", ref))

	if err := s.producer.Publish(r.Context(), events.New(events.TypeBookingPaid, ref, 0)); err != nil {
		s.logger.Warn("Failed to publish booking.paid event",
			zap.String("bookingRef", ref), zap.Error(err))
	}
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.storage.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list bookings")
		return
	}
	respondJSON(w, http.StatusOK, bookings)
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["ref"]

	booking, err := s.storage.Get(r.Context(), ref)
	if err != nil {
		if errors.Is(err, storage.ErrBookingNotFound) {
			respondError(w, http.StatusNotFound, "Booking not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to get booking")
		return
	}
	respondJSON(w, http.StatusOK, booking)
}
