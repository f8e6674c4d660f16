package storage

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Booking is the persisted record of one shipment request and its payment
// lifecycle. Field names match the JSON document on disk.
type Booking struct {
	BookingRef     string     `json:"bookingRef"`
	Status         Status     `json:"status"`
	Price          int        `json:"price"`
	QuotedPrice    int        `json:"quotedPrice,omitempty"`
	Pickup         string     `json:"pickup"`
	Dropoff        string     `json:"dropoff"`
	ItemSize       string     `json:"itemSize"`
	ItemType       string     `json:"itemType,omitempty"`
	ItemCount      int        `json:"itemCount"`
	ItemDetails    string     `json:"itemDetails,omitempty"`
	StairsPickup   string     `json:"stairsPickup"`
	StairsDropoff  string     `json:"stairsDropoff"`
	CongestionZone string     `json:"congestionZone"`
	Date           string     `json:"date"`
	TimeWindow     string     `json:"timeWindow"`
	Name           string     `json:"name,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Email          string     `json:"email,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	PaidAt         *time.Time `json:"paidAt,omitempty"`
}
