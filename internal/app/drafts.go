package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"airnest/internal/availability"
	"airnest/internal/domain"
)

type DraftService struct {
	repo  domain.DraftRepository
	cache domain.Cache
	now   func() time.Time
	newID func() string
}

func NewDraftService(r domain.DraftRepository, c domain.Cache) *DraftService {
	return &DraftService{repo: r, cache: c, now: time.Now, newID: uuid.NewString}
}

func (s *DraftService) WithClock(now func() time.Time) *DraftService {
	s.now = now
	return s
}

func (s *DraftService) Create(ctx context.Context, userID string, f domain.DraftFields) (*domain.Draft, error) {
	if f.TimeZone != "" {
		if _, err := availability.LoadZone(f.TimeZone); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	d := domain.NewDraft(s.newID(), userID, f, s.now().UTC())
	if err := s.repo.SaveDraft(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DraftService) Get(ctx context.Context, id, userID string) (*domain.Draft, error) {
	return s.owned(ctx, id, userID)
}

func (s *DraftService) Update(ctx context.Context, id, userID string, p domain.DraftPatch) (*domain.Draft, error) {
	if p.TimeZone != nil {
		if _, err := availability.LoadZone(*p.TimeZone); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	return s.mutate(ctx, id, userID, func(d *domain.Draft, now time.Time) error {
		d.Update(p, now)
		return nil
	})
}

func (s *DraftService) AddImage(ctx context.Context, id, userID string, img domain.Image) (*domain.Draft, error) {
	if img.URL == "" && img.ObjectKey == "" {
		return nil, fmt.Errorf("%w: image needs a url or object key", domain.ErrInvalidInput)
	}
	img.ID = s.newID()
	return s.mutate(ctx, id, userID, func(d *domain.Draft, now time.Time) error {
		d.AddImage(img, now)
		return nil
	})
}

func (s *DraftService) RemoveImage(ctx context.Context, id, userID, imageID string) (*domain.Draft, error) {
	return s.mutate(ctx, id, userID, func(d *domain.Draft, now time.Time) error {
		if !d.RemoveImage(imageID, now) {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (s *DraftService) SetMainImage(ctx context.Context, id, userID, imageID string) (*domain.Draft, error) {
	return s.mutate(ctx, id, userID, func(d *domain.Draft, now time.Time) error {
		if !d.SetMainImage(imageID, now) {
			return domain.ErrNotFound
		}
		return nil
	})
}

// Publish turns a complete draft into a published property.
func (s *DraftService) Publish(ctx context.Context, id, userID string) (domain.Property, error) {
	d, err := s.owned(ctx, id, userID)
	if err != nil {
		return domain.Property{}, err
	}
	if d.Status == domain.DraftStatusPublished {
		return domain.Property{}, fmt.Errorf("%w: draft already published", domain.ErrInvalidInput)
	}
	if !d.ReadyForPublish() {
		return domain.Property{}, domain.ErrDraftNotReady
	}
	if _, err := availability.LoadZone(d.Fields.TimeZone); err != nil {
		return domain.Property{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	now := s.now().UTC()
	p := d.ToProperty(s.newID(), now)
	d.MarkPublished(p.ID, now)
	if err := s.repo.PublishDraft(ctx, d, p); err != nil {
		return domain.Property{}, err
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, propertyKey(p.ID))
	}
	log.Info().Str("draft", d.ID).Str("property", p.ID).Msg("draft published")
	return p, nil
}

func (s *DraftService) mutate(ctx context.Context, id, userID string, fn func(*domain.Draft, time.Time) error) (*domain.Draft, error) {
	d, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if d.Status == domain.DraftStatusPublished {
		return nil, fmt.Errorf("%w: draft already published", domain.ErrInvalidInput)
	}
	if err := fn(d, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.repo.SaveDraft(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DraftService) owned(ctx context.Context, id, userID string) (*domain.Draft, error) {
	d, err := s.repo.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return d, nil
}
