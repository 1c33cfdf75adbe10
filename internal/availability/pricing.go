package availability

import (
	"math"
	"strconv"
	"strings"
)

// Surcharges applied to the nightly subtotal. They are summed, not compounded.
const (
	CleaningFeeRate = 0.10
	ServiceFeeRate  = 0.15
	TaxRate         = 0.12
)

// Nights counts calendar nights between two dates.
func Nights(checkIn, checkOut Date) int {
	return checkIn.DaysUntil(checkOut)
}

// FallbackTotal is nights x rate plus the fixed surcharges, rounded to cents.
func FallbackTotal(nights int, nightlyRate float64) float64 {
	subtotal := float64(nights) * nightlyRate
	total := subtotal + subtotal*CleaningFeeRate + subtotal*ServiceFeeRate + subtotal*TaxRate
	return math.Round(total*100) / 100
}

// ResolveTotal keeps a client-supplied total when it parses to a finite
// number and recomputes otherwise. fromClient reports which path was taken.
func ResolveTotal(clientTotal string, nights int, nightlyRate float64) (total float64, fromClient bool) {
	s := strings.TrimSpace(clientTotal)
	if s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, true
		}
	}
	return FallbackTotal(nights, nightlyRate), false
}
