package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"airnest/internal/availability"
	"airnest/internal/domain"
)

type CreateReservationCmd struct {
	PropertyID string
	UserID     string
	CheckIn    string // YYYY-MM-DD
	CheckOut   string
	Guests     int
	TotalPrice string // optional client-computed total
}

// BookingService owns the write path for reservations and the calendar views
// derived from them.
type BookingService struct {
	props    domain.PropertyRepository
	res      domain.ReservationRepository
	cache    domain.Cache
	events   domain.EventPublisher
	cacheTTL time.Duration

	now     func() time.Time
	newID   func() string
	observe func(outcome string)
}

func NewBookingService(p domain.PropertyRepository, r domain.ReservationRepository, c domain.Cache, ev domain.EventPublisher, ttl time.Duration) *BookingService {
	return &BookingService{
		props: p, res: r, cache: c, events: ev, cacheTTL: ttl,
		now:     time.Now,
		newID:   uuid.NewString,
		observe: func(string) {},
	}
}

// WithClock replaces the wall clock, mainly for tests.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// WithObserver receives one outcome label per booking attempt.
func (s *BookingService) WithObserver(fn func(outcome string)) *BookingService {
	if fn != nil {
		s.observe = fn
	}
	return s
}

func (s *BookingService) CreateReservation(ctx context.Context, cmd CreateReservationCmd) (domain.Reservation, error) {
	in, out, err := parseStay(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		s.observe("invalid")
		return domain.Reservation{}, err
	}
	if cmd.Guests < 1 {
		s.observe("invalid")
		return domain.Reservation{}, fmt.Errorf("%w: guests must be at least 1", domain.ErrInvalidInput)
	}

	prop, err := s.props.GetProperty(ctx, cmd.PropertyID)
	if err != nil {
		s.observe("error")
		return domain.Reservation{}, err
	}

	window, err := availability.LocalizeWindow(prop.TimeZone, in, out)
	if err != nil {
		if errors.Is(err, availability.ErrInvalidTimeZone) {
			// stored data is broken, not the request
			s.observe("error")
			log.Error().Err(err).Str("property", prop.ID).Msg("property has unusable time zone")
		} else {
			s.observe("invalid")
		}
		return domain.Reservation{}, err
	}

	total, fromClient := availability.ResolveTotal(cmd.TotalPrice, availability.Nights(in, out), prop.PricePerNight)
	now := s.now()
	r := domain.Reservation{
		ID:         s.newID(),
		PropertyID: prop.ID,
		UserID:     cmd.UserID,
		CheckIn:    window.CheckIn,
		CheckOut:   window.CheckOut,
		Guests:     cmd.Guests,
		TotalPrice: total,
		CreatedAt:  now.UTC(),
	}

	guard := func(existing []domain.Reservation) error {
		v, err := availability.CheckConflict(window, domain.Windows(existing), prop.TimeZone, now)
		if err != nil {
			return err
		}
		if v.IsConflict() {
			return &domain.ConflictError{Reason: v.Reason}
		}
		return nil
	}
	if err := s.res.CreateReservation(ctx, r, guard); err != nil {
		var ce *domain.ConflictError
		if errors.As(err, &ce) {
			s.observe(string(ce.Reason))
		} else {
			s.observe("error")
		}
		return domain.Reservation{}, err
	}
	s.observe("available")

	log.Info().
		Str("reservation", r.ID).
		Str("property", r.PropertyID).
		Time("check_in", r.CheckIn).
		Time("check_out", r.CheckOut).
		Float64("total", r.TotalPrice).
		Bool("client_total", fromClient).
		Msg("reservation created")

	if s.cache != nil {
		s.invalidateCalendar(ctx, prop.ID)
	}
	if s.events != nil {
		ev := domain.ReservationCreated{
			ReservationID: r.ID, PropertyID: r.PropertyID, UserID: r.UserID,
			CheckIn: r.CheckIn, CheckOut: r.CheckOut, Guests: r.Guests,
			TotalPrice: r.TotalPrice, CreatedAt: r.CreatedAt,
		}
		// the reservation is committed; a lost event is only logged
		if err := s.events.PublishReservationCreated(ctx, ev); err != nil {
			log.Warn().Err(err).Str("reservation", r.ID).Msg("publish reservation.created failed")
		}
	}
	return r, nil
}

// CheckAvailability runs the same decision as CreateReservation without
// writing anything.
func (s *BookingService) CheckAvailability(ctx context.Context, propertyID, checkIn, checkOut string) (availability.Verdict, error) {
	in, out, err := parseStay(checkIn, checkOut)
	if err != nil {
		return availability.Verdict{}, err
	}
	prop, err := s.props.GetProperty(ctx, propertyID)
	if err != nil {
		return availability.Verdict{}, err
	}
	window, err := availability.LocalizeWindow(prop.TimeZone, in, out)
	if err != nil {
		return availability.Verdict{}, err
	}
	existing, err := s.res.ListForProperty(ctx, prop.ID)
	if err != nil {
		return availability.Verdict{}, err
	}
	return availability.CheckConflict(window, domain.Windows(existing), prop.TimeZone, s.now())
}

func (s *BookingService) BookedDates(ctx context.Context, propertyID string) (domain.BookedDates, error) {
	key := calendarKey(propertyID)
	var out domain.BookedDates
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}
	out, err := s.computeBookedDates(ctx, propertyID)
	if err != nil {
		return domain.BookedDates{}, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

// WarmCalendar recomputes and stores the calendar regardless of the cache.
func (s *BookingService) WarmCalendar(ctx context.Context, propertyID string) error {
	out, err := s.computeBookedDates(ctx, propertyID)
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, calendarKey(propertyID), out, int(s.cacheTTL.Seconds()))
}

func (s *BookingService) computeBookedDates(ctx context.Context, propertyID string) (domain.BookedDates, error) {
	prop, err := s.props.GetProperty(ctx, propertyID)
	if err != nil {
		return domain.BookedDates{}, err
	}
	rs, err := s.res.ListForProperty(ctx, prop.ID)
	if err != nil {
		return domain.BookedDates{}, err
	}
	cal, err := availability.ClassifyCalendar(domain.Windows(rs), prop.TimeZone)
	if err != nil {
		log.Error().Err(err).Str("property", prop.ID).Msg("property has unusable time zone")
		return domain.BookedDates{}, err
	}
	return mapCalendar(cal), nil
}

func (s *BookingService) UserReservations(ctx context.Context, userID string) ([]domain.UserReservation, error) {
	return s.res.ListForUser(ctx, userID)
}

func (s *BookingService) invalidateCalendar(ctx context.Context, propertyID string) {
	_ = s.cache.Del(ctx, calendarKey(propertyID))
}

func parseStay(checkIn, checkOut string) (availability.Date, availability.Date, error) {
	in, err := availability.ParseDate(checkIn)
	if err != nil {
		return availability.Date{}, availability.Date{}, fmt.Errorf("%w: check_in: %v", domain.ErrInvalidInput, err)
	}
	out, err := availability.ParseDate(checkOut)
	if err != nil {
		return availability.Date{}, availability.Date{}, fmt.Errorf("%w: check_out: %v", domain.ErrInvalidInput, err)
	}
	return in, out, nil
}
