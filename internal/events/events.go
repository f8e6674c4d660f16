// Package events publishes booking lifecycle notifications so other tooling
// (ops tail, reporting) can follow the money without reading bookings.json.
package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeBookingCreated = "booking.created"
	TypeBookingPaid    = "booking.paid"
)

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	BookingRef string    `json:"bookingRef"`
	Amount     int       `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func New(eventType, bookingRef string, amount int) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		BookingRef: bookingRef,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	}
}
