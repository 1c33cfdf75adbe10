package domain

import (
	"time"

	"airnest/internal/availability"
)

type Reservation struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	UserID     string    `json:"user_id"`
	CheckIn    time.Time `json:"check_in"`  // UTC
	CheckOut   time.Time `json:"check_out"` // UTC
	Guests     int       `json:"guests"`
	TotalPrice float64   `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r Reservation) Window() availability.StayWindow {
	return availability.StayWindow{CheckIn: r.CheckIn, CheckOut: r.CheckOut}
}

// Windows projects reservations onto the stay windows the engine consumes.
func Windows(rs []Reservation) []availability.StayWindow {
	out := make([]availability.StayWindow, len(rs))
	for i, r := range rs {
		out[i] = r.Window()
	}
	return out
}

// UserReservation is a reservation joined with the property summary shown
// on a guest's trips page.
type UserReservation struct {
	Reservation
	PropertyTitle    string  `json:"property_title"`
	PropertyTimeZone string  `json:"property_timezone"`
	PropertyImages   []Image `json:"property_images"`
}

// BookedDates is the calendar view rendered to clients.
type BookedDates struct {
	Booked  []string `json:"booked_dates"`
	Partial []string `json:"partially_booked_dates"`
}

// ReservationCreated is published after a reservation commits.
type ReservationCreated struct {
	ReservationID string    `json:"reservation_id"`
	PropertyID    string    `json:"property_id"`
	UserID        string    `json:"user_id"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	Guests        int       `json:"guests"`
	TotalPrice    float64   `json:"total_price"`
	CreatedAt     time.Time `json:"created_at"`
}

// ConflictError carries a non-available verdict out of the booking path.
type ConflictError struct {
	Reason availability.Reason
}

func (e *ConflictError) Error() string { return "reservation conflict: " + string(e.Reason) }
