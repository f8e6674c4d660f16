// Package pricing is the single source of truth for quote amounts. Both the
// instant-quote endpoint and the checkout path call Quote, so the charge can
// never drift from the number the customer saw.
package pricing

import (
	"fmt"
	"strings"
	"time"
)

const (
	minimumTotal  = 30
	stairsFee     = 10
	congestionFee = 18
	perZoneFee    = 3
	maxItemCount  = 30
	priceNote     = "Includes van + driver"
)

var baseBySize = map[string]int{
	"small":  35,
	"medium": 55,
	"large":  75,
	"xl":     95,
}

var perExtraBySize = map[string]int{
	"small":  6,
	"medium": 8,
	"large":  10,
	"xl":     12,
}

var typeAddOn = map[string]int{
	"mixed": 10,
	"boxes": 5,
	"other": 5,
}

// Shipment describes one job. All fields are optional; anything missing or
// malformed falls back to a safe default rather than an error.
type Shipment struct {
	Pickup         string
	Dropoff        string
	ItemSize       string
	ItemType       string
	ItemCount      int
	StairsPickup   string
	StairsDropoff  string
	CongestionZone string
	Date           string
	TimeWindow     string
}

// Result is a quote: total in whole pounds plus the human-readable breakdown
// shown next to the price. Breakdown only lists non-zero components.
type Result struct {
	Total     int      `json:"price"`
	Zone      string   `json:"zone"`
	Breakdown []string `json:"breakdown"`
	Note      string   `json:"note"`
}

// Quote computes the price for a shipment. It never fails.
func Quote(s Shipment) Result {
	size := s.ItemSize
	base, ok := baseBySize[size]
	if !ok {
		base = baseBySize["medium"]
	}

	count := clamp(s.ItemCount, 1, maxItemCount)
	perExtra, ok := perExtraBySize[size]
	if !ok {
		perExtra = perExtraBySize["medium"]
	}
	extraItems := (count - 1) * perExtra

	typeAdd := typeAddOn[s.ItemType]

	stairs := 0
	if s.StairsPickup == "yes" {
		stairs += stairsFee
	}
	if s.StairsDropoff == "yes" {
		stairs += stairsFee
	}

	zone := chargedZone(s.Pickup, s.Dropoff)
	travel := (zone - 1) * perZoneFee

	congestion := 0
	if s.CongestionZone == "yes" && congestionChargeApplies(s.Date, s.TimeWindow) {
		congestion = congestionFee
	}

	total := base + extraItems + typeAdd + stairs + travel + congestion
	if total < minimumTotal {
		total = minimumTotal
	}
	// Round to the nearest £5.
	total = (total + 2) / 5 * 5

	var breakdown []string
	breakdown = append(breakdown, fmt.Sprintf("Base — £%d", base))
	if count > 1 {
		breakdown = append(breakdown, fmt.Sprintf("Extra items — £%d", extraItems))
	}
	if typeAdd > 0 {
		breakdown = append(breakdown, fmt.Sprintf("Item type — £%d", typeAdd))
	}
	if stairs > 0 {
		breakdown = append(breakdown, fmt.Sprintf("Stairs — £%d", stairs))
	}
	if travel > 0 {
		breakdown = append(breakdown, fmt.Sprintf("Travel — £%d", travel))
	}
	if congestion > 0 {
		breakdown = append(breakdown, fmt.Sprintf("Congestion Charge — £%d", congestion))
	}

	return Result{
		Total:     total,
		Zone:      fmt.Sprintf("Zones 1–%d", zone),
		Breakdown: breakdown,
		Note:      priceNote,
	}
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// zoneFromPostcode maps a postcode to travel zones 1-6 off the first digit.
// Anything unrecognised lands in zone 1.
func zoneFromPostcode(pc string) int {
	cleaned := strings.ToUpper(strings.Join(strings.Fields(pc), ""))
	for _, r := range cleaned {
		if r >= '1' && r <= '9' {
			n := int(r - '0')
			if n <= 6 {
				return n
			}
			return 1
		}
	}
	return 1
}

func chargedZone(pickup, dropoff string) int {
	z1 := zoneFromPostcode(pickup)
	z2 := zoneFromPostcode(dropoff)
	if z2 > z1 {
		return z2
	}
	return z1
}

// timeWindowRange maps a requested window to minutes of the day, half-open.
func timeWindowRange(timeWindow string) (int, int) {
	switch timeWindow {
	case "morning":
		return 8 * 60, 12 * 60
	case "afternoon":
		return 12 * 60, 17 * 60
	case "evening":
		return 17 * 60, 21 * 60
	default:
		return 0, 24 * 60
	}
}

func rangesOverlap(aStart, aEnd, bStart, bEnd int) bool {
	lo := aStart
	if bStart > lo {
		lo = bStart
	}
	hi := aEnd
	if bEnd < hi {
		hi = bEnd
	}
	return lo < hi
}

// congestionChargeApplies reports whether the city charging period overlaps
// the requested window: Mon-Fri 07:00-18:00, Sat-Sun 12:00-17:00.
func congestionChargeApplies(dateStr, timeWindow string) bool {
	if dateStr == "" {
		return false
	}
	d, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return false
	}

	winStart, winEnd := timeWindowRange(timeWindow)

	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return rangesOverlap(winStart, winEnd, 12*60, 17*60)
	default:
		return rangesOverlap(winStart, winEnd, 7*60, 18*60)
	}
}
