package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *FileStorage {
	t.Helper()

	fs, err := NewFileStorage(filepath.Join(t.TempDir(), "bookings.json"))
	require.NoError(t, err)
	return fs
}

func TestUpsertCreatesPendingBooking(t *testing.T) {
	fs := newTestStorage(t)
	fixedTime := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fs.timeNow = func() time.Time { return fixedTime }

	got, err := fs.Upsert(context.Background(), Booking{
		BookingRef: "CMI-ABC123",
		Price:      105,
		ItemSize:   "large",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, fixedTime, got.CreatedAt)
	assert.Nil(t, got.PaidAt)
	assert.Equal(t, 105, got.Price)
}

func TestUpsertSameRefDoesNotDuplicate(t *testing.T) {
	fs := newTestStorage(t)
	ctx := context.Background()

	_, err := fs.Upsert(ctx, Booking{BookingRef: "CMI-ABC123", Price: 55})
	require.NoError(t, err)

	updated, err := fs.Upsert(ctx, Booking{BookingRef: "CMI-ABC123", Price: 75, Name: "Sam"})
	require.NoError(t, err)

	bookings, err := fs.List(ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 1)

	assert.Equal(t, 75, updated.Price)
	assert.Equal(t, "Sam", updated.Name)
	assert.Equal(t, StatusPending, updated.Status)
}

func TestUpsertPreservesLifecycleFields(t *testing.T) {
	fs := newTestStorage(t)
	ctx := context.Background()

	created, err := fs.Upsert(ctx, Booking{BookingRef: "CMI-ABC123"})
	require.NoError(t, err)

	found, err := fs.MarkPaid(ctx, "CMI-ABC123")
	require.NoError(t, err)
	require.True(t, found)

	// A stale re-submit after payment must not resurrect pending.
	after, err := fs.Upsert(ctx, Booking{BookingRef: "CMI-ABC123", Price: 999})
	require.NoError(t, err)

	assert.Equal(t, StatusPaid, after.Status)
	assert.Equal(t, created.CreatedAt, after.CreatedAt)
	assert.NotNil(t, after.PaidAt)
}

func TestMarkPaid(t *testing.T) {
	fs := newTestStorage(t)
	ctx := context.Background()
	fixedTime := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fs.timeNow = func() time.Time { return fixedTime }

	_, err := fs.Upsert(ctx, Booking{BookingRef: "CMI-ABC123"})
	require.NoError(t, err)

	found, err := fs.MarkPaid(ctx, "CMI-ABC123")
	require.NoError(t, err)
	assert.True(t, found)

	got, err := fs.Get(ctx, "CMI-ABC123")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)
	assert.Equal(t, fixedTime, *got.PaidAt)
}

func TestMarkPaidUnknownRefIsNoOp(t *testing.T) {
	fs := newTestStorage(t)
	ctx := context.Background()

	_, err := fs.Upsert(ctx, Booking{BookingRef: "CMI-ABC123"})
	require.NoError(t, err)

	found, err := fs.MarkPaid(ctx, "CMI-UNKNOWN")
	require.NoError(t, err)
	assert.False(t, found)

	bookings, err := fs.List(ctx)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, StatusPending, bookings[0].Status)
}

func TestGetUnknownRef(t *testing.T) {
	fs := newTestStorage(t)

	_, err := fs.Get(context.Background(), "CMI-MISSING")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestStorageSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookings.json")
	ctx := context.Background()

	fs, err := NewFileStorage(path)
	require.NoError(t, err)

	_, err = fs.Upsert(ctx, Booking{BookingRef: "CMI-ABC123", Price: 105, Pickup: "SW1A 1AA"})
	require.NoError(t, err)
	_, err = fs.MarkPaid(ctx, "CMI-ABC123")
	require.NoError(t, err)

	reopened, err := NewFileStorage(path)
	require.NoError(t, err)

	got, err := reopened.Get(ctx, "CMI-ABC123")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, got.Status)
	assert.Equal(t, 105, got.Price)
	assert.Equal(t, "SW1A 1AA", got.Pickup)
}
