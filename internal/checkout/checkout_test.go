package checkout

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/collectmyitem/booking/internal/events"
	"github.com/collectmyitem/booking/internal/storage"
)

type fakeStore struct {
	upserted []storage.Booking
	err      error
}

func (f *fakeStore) Upsert(ctx context.Context, b storage.Booking) (storage.Booking, error) {
	if f.err != nil {
		return storage.Booking{}, f.err
	}
	f.upserted = append(f.upserted, b)
	return b, nil
}

type fakeProvider struct {
	ref    string
	amount int64
	err    error
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, bookingRef string, amountPence int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.ref = bookingRef
	f.amount = amountPence
	return "https://checkout.example/" + bookingRef, nil
}

type fakeProducer struct {
	published []events.Event
}

func (f *fakeProducer) Publish(ctx context.Context, e events.Event) error {
	f.published = append(f.published, e)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func newTestService(store *fakeStore, provider *fakeProvider, producer *fakeProducer) *Service {
	return NewService(store, provider, producer, zap.NewNop())
}

func TestCreateSessionChargesServerPrice(t *testing.T) {
	store := &fakeStore{}
	provider := &fakeProvider{}
	producer := &fakeProducer{}
	svc := newTestService(store, provider, producer)

	result, err := svc.CreateSession(context.Background(), Request{
		QuotedPrice:   9999,
		ItemSize:      "large",
		ItemCount:     3,
		StairsPickup:  "yes",
		StairsDropoff: "no",
	})
	require.NoError(t, err)

	// Server-side quote: 75 + 2x10 + 10 = 105. The client's 9999 is metadata.
	assert.Equal(t, int64(10500), provider.amount)

	require.Len(t, store.upserted, 1)
	assert.Equal(t, 105, store.upserted[0].Price)
	assert.Equal(t, 9999, store.upserted[0].QuotedPrice)

	assert.Equal(t, "https://checkout.example/"+result.BookingRef, result.URL)
}

func TestCreateSessionGeneratesBookingRef(t *testing.T) {
	store := &fakeStore{}
	provider := &fakeProvider{}
	svc := newTestService(store, provider, &fakeProducer{})

	result, err := svc.CreateSession(context.Background(), Request{ItemSize: "small"})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^CMI-[A-Z0-9]{6}$`), result.BookingRef)
	assert.Equal(t, result.BookingRef, provider.ref)
	assert.Equal(t, result.BookingRef, store.upserted[0].BookingRef)
}

func TestCreateSessionKeepsClientRef(t *testing.T) {
	store := &fakeStore{}
	provider := &fakeProvider{}
	svc := newTestService(store, provider, &fakeProducer{})

	result, err := svc.CreateSession(context.Background(), Request{
		BookingRef: "CMI-KEEPME",
		ItemSize:   "medium",
	})
	require.NoError(t, err)

	assert.Equal(t, "CMI-KEEPME", result.BookingRef)
}

func TestCreateSessionProviderFailure(t *testing.T) {
	store := &fakeStore{}
	provider := &fakeProvider{err: errors.New("card network unreachable")}
	svc := newTestService(store, provider, &fakeProducer{})

	_, err := svc.CreateSession(context.Background(), Request{ItemSize: "medium"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "card network unreachable")
	// The pending booking is persisted before the provider call.
	assert.Len(t, store.upserted, 1)
}

func TestCreateSessionStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	provider := &fakeProvider{}
	svc := newTestService(store, provider, &fakeProducer{})

	_, err := svc.CreateSession(context.Background(), Request{ItemSize: "medium"})

	require.Error(t, err)
	assert.Empty(t, provider.ref, "provider must not be called when persistence fails")
}

func TestCreateSessionPublishesEvent(t *testing.T) {
	producer := &fakeProducer{}
	svc := newTestService(&fakeStore{}, &fakeProvider{}, producer)

	result, err := svc.CreateSession(context.Background(), Request{ItemSize: "xl"})
	require.NoError(t, err)

	require.Len(t, producer.published, 1)
	assert.Equal(t, events.TypeBookingCreated, producer.published[0].Type)
	assert.Equal(t, result.BookingRef, producer.published[0].BookingRef)
	assert.Equal(t, 95, producer.published[0].Amount)
}
