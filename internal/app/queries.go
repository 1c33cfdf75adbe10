package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"airnest/internal/availability"
	"airnest/internal/domain"
)

type PropertyQueries struct {
	repo     domain.PropertyRepository
	res      domain.ReservationRepository
	cache    domain.Cache
	cacheTTL time.Duration
	workers  int
	now      func() time.Time
}

func NewPropertyQueries(p domain.PropertyRepository, r domain.ReservationRepository, c domain.Cache, ttl time.Duration, workers int) *PropertyQueries {
	if workers < 1 {
		workers = 1
	}
	return &PropertyQueries{repo: p, res: r, cache: c, cacheTTL: ttl, workers: workers, now: time.Now}
}

func (s *PropertyQueries) WithClock(now func() time.Time) *PropertyQueries {
	s.now = now
	return s
}

func (s *PropertyQueries) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	key := propertyKey(id)
	var p domain.Property
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &p); ok {
			return p, nil
		}
	}
	p, err := s.repo.GetProperty(ctx, id)
	if err != nil {
		return domain.Property{}, err
	}
	if p.Status != domain.StatusPublished {
		return domain.Property{}, domain.ErrNotFound
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, p, int(s.cacheTTL.Seconds()))
	}
	return p, nil
}

// SearchProperties lists published properties matching f. When both stay
// dates parse and are ordered, properties that could not take the stay are
// dropped; otherwise the date filter is skipped.
func (s *PropertyQueries) SearchProperties(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
	props, err := s.repo.SearchProperties(ctx, f)
	if err != nil {
		return nil, err
	}
	props = deepCopyProperties(props)

	in, errIn := availability.ParseDate(f.CheckIn)
	out, errOut := availability.ParseDate(f.CheckOut)
	if errIn != nil || errOut != nil || !in.Before(out) || len(props) == 0 {
		return props, nil
	}

	ids := make([]string, len(props))
	for i, p := range props {
		ids[i] = p.ID
	}
	booked, err := s.res.ListForProperties(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	keep := make([]bool, len(props)) // one slot per goroutine

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range props {
		i, p := i, props[i]
		g.Go(func() error {
			keep[i] = availableFor(p, in, out, booked[p.ID], now)
			return nil
		})
	}
	_ = g.Wait()

	filtered := props[:0]
	for i, p := range props {
		if keep[i] {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// MyProperties lists every property landlordID owns, whatever its status,
// newest first.
func (s *PropertyQueries) MyProperties(ctx context.Context, landlordID string) ([]domain.Property, error) {
	props, err := s.repo.ListByLandlord(ctx, landlordID)
	if err != nil {
		return nil, err
	}
	return deepCopyProperties(props), nil
}

func availableFor(p domain.Property, in, out availability.Date, existing []domain.Reservation, now time.Time) bool {
	window, err := availability.LocalizeWindow(p.TimeZone, in, out)
	if err == nil {
		var v availability.Verdict
		v, err = availability.CheckConflict(window, domain.Windows(existing), p.TimeZone, now)
		if err == nil {
			return !v.IsConflict()
		}
	}
	if errors.Is(err, availability.ErrInvalidTimeZone) {
		log.Error().Err(err).Str("property", p.ID).Msg("excluding property with unusable time zone")
	}
	return false
}
