// Package memory is an in-process implementation of every repository port,
// used for local development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"airnest/internal/domain"
)

type Store struct {
	mu       sync.RWMutex
	props    map[string]domain.Property
	res      []domain.Reservation
	reviews  []domain.Review
	tags     []domain.ReviewTag
	wishlist map[string]map[string]time.Time
	drafts   map[string]domain.Draft
	now      func() time.Time
}

func New() *Store {
	return &Store{
		props:    map[string]domain.Property{},
		wishlist: map[string]map[string]time.Time{},
		drafts:   map[string]domain.Draft{},
		tags:     domain.DefaultReviewTags(),
		now:      time.Now,
	}
}

// PutProperty inserts or replaces p.
func (s *Store) PutProperty(p domain.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props[p.ID] = cloneProperty(p)
}

// PutReservation stores r without any availability check.
func (s *Store) PutReservation(r domain.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.res = append(s.res, r)
}

func (s *Store) PutReview(r domain.Review) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Tags = s.knownTags(r.Tags)
	s.reviews = append(s.reviews, r)
}

/********** properties **********/

func (s *Store) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.props[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return cloneProperty(p), nil
}

func (s *Store) SearchProperties(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc := strings.ToLower(strings.TrimSpace(f.Location))
	cat := strings.TrimSpace(f.Category)

	out := []domain.Property{}
	for _, p := range s.props {
		if p.Status != domain.StatusPublished {
			continue
		}
		if loc != "" && !containsFold(loc, p.City, p.Address, p.Country) {
			continue
		}
		if cat != "" && !strings.EqualFold(p.Category, cat) {
			continue
		}
		if f.Guests != nil && p.Guests < *f.Guests {
			continue
		}
		out = append(out, cloneProperty(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListPublishedIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, p := range s.props {
		if p.Status == domain.StatusPublished {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) UpdateProperty(ctx context.Context, id string, fn func(*domain.Property) error) (domain.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.props[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	p := cloneProperty(cur)
	if err := fn(&p); err != nil {
		return domain.Property{}, err
	}
	s.props[id] = cloneProperty(p)
	return p, nil
}

func (s *Store) ListByLandlord(ctx context.Context, landlordID string) ([]domain.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Property{}
	for _, p := range s.props {
		if p.LandlordID == landlordID {
			out = append(out, cloneProperty(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

/********** reservations **********/

func (s *Store) ListForProperty(ctx context.Context, propertyID string) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forProperty(propertyID), nil
}

func (s *Store) forProperty(propertyID string) []domain.Reservation {
	var out []domain.Reservation
	for _, r := range s.res {
		if r.PropertyID == propertyID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out
}

func (s *Store) ListForProperties(ctx context.Context, ids []string) (map[string][]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]domain.Reservation, len(ids))
	for _, id := range ids {
		if rs := s.forProperty(id); len(rs) > 0 {
			out[id] = rs
		}
	}
	return out, nil
}

func (s *Store) ListForUser(ctx context.Context, userID string) ([]domain.UserReservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.UserReservation{}
	for _, r := range s.res {
		if r.UserID != userID {
			continue
		}
		p := s.props[r.PropertyID]
		out = append(out, domain.UserReservation{
			Reservation:      r,
			PropertyTitle:    p.Title,
			PropertyTimeZone: p.TimeZone,
			PropertyImages:   append([]domain.Image(nil), p.Images...),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) LatestCompletedStay(ctx context.Context, propertyID, userID string, before time.Time) (domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *domain.Reservation
	for i, r := range s.res {
		if r.PropertyID != propertyID || r.UserID != userID || !r.CheckOut.Before(before) {
			continue
		}
		if best == nil || r.CheckOut.After(best.CheckOut) {
			best = &s.res[i]
		}
	}
	if best == nil {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return *best, nil
}

// CreateReservation holds the write lock across guard and insert, which
// serializes writers the way the MySQL row lock does.
func (s *Store) CreateReservation(ctx context.Context, r domain.Reservation, guard domain.ReserveGuard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.props[r.PropertyID]; !ok {
		return domain.ErrNotFound
	}
	if err := guard(s.forProperty(r.PropertyID)); err != nil {
		return err
	}
	s.res = append(s.res, r)
	return nil
}

/********** reviews **********/

func (s *Store) ListReviews(ctx context.Context, propertyID string, limit, offset int) ([]domain.Review, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []domain.Review
	for _, r := range s.reviews {
		if r.PropertyID == propertyID && !r.IsHidden {
			all = append(all, r)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return []domain.Review{}, total, nil
	}
	end := min(offset+limit, total)
	page := make([]domain.Review, 0, end-offset)
	for _, r := range all[offset:end] {
		page = append(page, cloneReview(r))
	}
	return page, total, nil
}

func (s *Store) HasReview(ctx context.Context, propertyID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reviews {
		if r.PropertyID == propertyID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateReview(ctx context.Context, rv domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reviews {
		if r.PropertyID == rv.PropertyID && r.UserID == rv.UserID {
			return domain.ErrAlreadyReviewed
		}
	}
	rv.Tags = s.knownTags(rv.Tags)
	s.reviews = append(s.reviews, rv)
	return nil
}

func (s *Store) GetReview(ctx context.Context, id string) (domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reviews {
		if r.ID == id {
			return cloneReview(r), nil
		}
	}
	return domain.Review{}, domain.ErrNotFound
}

func (s *Store) UpdateReview(ctx context.Context, rv domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.reviews {
		if r.ID == rv.ID {
			r.Rating, r.Title, r.Content, r.UpdatedAt = rv.Rating, rv.Title, rv.Content, rv.UpdatedAt
			r.Tags = s.knownTags(rv.Tags)
			s.reviews[i] = r
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.reviews {
		if r.ID == id {
			s.reviews = append(s.reviews[:i], s.reviews[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) ListReviewTags(ctx context.Context) ([]domain.ReviewTag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ReviewTag{}, s.tags...), nil
}

func (s *Store) CountTags(ctx context.Context, propertyID string, limit int) ([]domain.TagCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := map[string]*domain.TagCount{}
	for _, r := range s.reviews {
		if r.PropertyID != propertyID || r.IsHidden {
			continue
		}
		for _, t := range r.Tags {
			if c, ok := counts[t.Key]; ok {
				c.Count++
				continue
			}
			counts[t.Key] = &domain.TagCount{Tag: t, Count: 1}
		}
	}
	out := make([]domain.TagCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag.Key < out[j].Tag.Key
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// knownTags resolves keys against the vocabulary and drops unknown ones.
// Caller holds the lock.
func (s *Store) knownTags(in []domain.ReviewTag) []domain.ReviewTag {
	out := []domain.ReviewTag{}
	for _, want := range in {
		for _, t := range s.tags {
			if t.Key == want.Key {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

func (s *Store) ListRatings(ctx context.Context, propertyID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int
	for _, r := range s.reviews {
		if r.PropertyID == propertyID && !r.IsHidden {
			out = append(out, r.Rating)
		}
	}
	return out, nil
}

/********** wishlist **********/

func (s *Store) ToggleWishlist(ctx context.Context, userID, propertyID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wishlist[userID] == nil {
		s.wishlist[userID] = map[string]time.Time{}
	}
	if _, ok := s.wishlist[userID][propertyID]; ok {
		delete(s.wishlist[userID], propertyID)
		return false, nil
	}
	s.wishlist[userID][propertyID] = s.now()
	return true, nil
}

func (s *Store) ListWishlist(ctx context.Context, userID string) ([]domain.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type entry struct {
		p  domain.Property
		at time.Time
	}
	var es []entry
	for id, at := range s.wishlist[userID] {
		if p, ok := s.props[id]; ok && p.Status == domain.StatusPublished {
			es = append(es, entry{cloneProperty(p), at})
		}
	}
	sort.Slice(es, func(i, j int) bool { return es[i].at.After(es[j].at) })
	out := make([]domain.Property, len(es))
	for i, e := range es {
		out[i] = e.p
	}
	return out, nil
}

/********** drafts **********/

func (s *Store) SaveDraft(ctx context.Context, d *domain.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.ID] = cloneDraft(d)
	return nil
}

func (s *Store) GetDraft(ctx context.Context, id string) (*domain.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := cloneDraft(&d)
	return &c, nil
}

func (s *Store) PublishDraft(ctx context.Context, d *domain.Draft, p domain.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props[p.ID] = cloneProperty(p)
	s.drafts[d.ID] = cloneDraft(d)
	return nil
}

/********** helpers **********/

func containsFold(needle string, hay ...string) bool {
	for _, h := range hay {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

func cloneProperty(p domain.Property) domain.Property {
	p.Images = append([]domain.Image{}, p.Images...)
	return p
}

func cloneDraft(d *domain.Draft) domain.Draft {
	c := *d
	c.Images = append([]domain.Image(nil), d.Images...)
	if d.PropertyID != nil {
		id := *d.PropertyID
		c.PropertyID = &id
	}
	return c
}

func cloneReview(r domain.Review) domain.Review {
	r.Tags = append([]domain.ReviewTag{}, r.Tags...)
	return r
}
