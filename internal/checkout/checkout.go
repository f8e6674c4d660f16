// Package checkout orchestrates booking creation: it recomputes the price
// server-side, persists the pending booking and opens a hosted payment
// session. The client-sent price is kept as metadata only and never moves
// money.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/collectmyitem/booking/internal/events"
	"github.com/collectmyitem/booking/internal/metrics"
	"github.com/collectmyitem/booking/internal/pricing"
	"github.com/collectmyitem/booking/internal/storage"
)

// Processor-side minimum charge, in pence.
const minAmountPence = 50

const (
	refPrefix  = "CMI-"
	refCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	refLength  = 6
)

var ErrAmountTooLow = errors.New("amount below minimum charge")

type BookingStore interface {
	Upsert(ctx context.Context, b storage.Booking) (storage.Booking, error)
}

type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, bookingRef string, amountPence int64) (string, error)
}

// Request carries everything the client submits when booking. QuotedPrice is
// whatever the client saw on screen; informational only.
type Request struct {
	BookingRef     string
	QuotedPrice    int
	Pickup         string
	Dropoff        string
	ItemSize       string
	ItemType       string
	ItemCount      int
	ItemDetails    string
	StairsPickup   string
	StairsDropoff  string
	CongestionZone string
	Date           string
	TimeWindow     string
	Name           string
	Phone          string
	Email          string
}

func (r Request) shipment() pricing.Shipment {
	return pricing.Shipment{
		Pickup:         r.Pickup,
		Dropoff:        r.Dropoff,
		ItemSize:       r.ItemSize,
		ItemType:       r.ItemType,
		ItemCount:      r.ItemCount,
		StairsPickup:   r.StairsPickup,
		StairsDropoff:  r.StairsDropoff,
		CongestionZone: r.CongestionZone,
		Date:           r.Date,
		TimeWindow:     r.TimeWindow,
	}
}

func (r Request) booking(ref string, price int) storage.Booking {
	return storage.Booking{
		BookingRef:     ref,
		Price:          price,
		QuotedPrice:    r.QuotedPrice,
		Pickup:         r.Pickup,
		Dropoff:        r.Dropoff,
		ItemSize:       r.ItemSize,
		ItemType:       r.ItemType,
		ItemCount:      r.ItemCount,
		ItemDetails:    r.ItemDetails,
		StairsPickup:   r.StairsPickup,
		StairsDropoff:  r.StairsDropoff,
		CongestionZone: r.CongestionZone,
		Date:           r.Date,
		TimeWindow:     r.TimeWindow,
		Name:           r.Name,
		Phone:          r.Phone,
		Email:          r.Email,
	}
}

type Result struct {
	URL        string
	BookingRef string
}

type Service struct {
	store    BookingStore
	provider PaymentProvider
	producer events.Producer
	logger   *zap.Logger

	newRef func() string
}

func NewService(store BookingStore, provider PaymentProvider, producer events.Producer, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		provider: provider,
		producer: producer,
		logger:   logger,
		newRef:   newBookingRef,
	}
}

// CreateSession prices the request, persists the pending booking and returns
// the hosted checkout URL plus the booking ref. Provider failures surface to
// the caller with no retry.
func (s *Service) CreateSession(ctx context.Context, req Request) (Result, error) {
	quote := pricing.Quote(req.shipment())
	amountPence := int64(quote.Total) * 100

	if amountPence < minAmountPence {
		return Result{}, ErrAmountTooLow
	}

	ref := req.BookingRef
	if ref == "" {
		ref = s.newRef()
	}

	if _, err := s.store.Upsert(ctx, req.booking(ref, quote.Total)); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("upsert_booking").Inc()
		return Result{}, fmt.Errorf("failed to persist booking %s: %w", ref, err)
	}

	url, err := s.provider.CreateCheckoutSession(ctx, ref, amountPence)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("create_checkout_session").Inc()
		return Result{}, err
	}

	metrics.CheckoutSessionsCreatedTotal.Inc()
	s.logger.Info("Checkout session created",
		zap.String("bookingRef", ref),
		zap.Int("price", quote.Total))

	if err := s.producer.Publish(ctx, events.New(events.TypeBookingCreated, ref, quote.Total)); err != nil {
		s.logger.Warn("Failed to publish booking.created event",
			zap.String("bookingRef", ref), zap.Error(err))
	}

	return Result{URL: url, BookingRef: ref}, nil
}

func newBookingRef() string {
	code := make([]byte, refLength)
	for i := range code {
		code[i] = refCharset[rand.IntN(len(refCharset))]
	}
	return refPrefix + string(code)
}
