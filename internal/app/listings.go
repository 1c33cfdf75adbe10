package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"airnest/internal/availability"
	"airnest/internal/domain"
)

// ListingService edits published listings on behalf of their landlord.
type ListingService struct {
	repo  domain.PropertyRepository
	cache domain.Cache
}

func NewListingService(p domain.PropertyRepository, c domain.Cache) *ListingService {
	return &ListingService{repo: p, cache: c}
}

func (s *ListingService) Update(ctx context.Context, id, landlordID string, patch domain.DraftPatch) (domain.Property, error) {
	if patch.TimeZone != nil {
		if _, err := availability.LoadZone(*patch.TimeZone); err != nil {
			return domain.Property{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	return s.mutate(ctx, id, landlordID, func(p *domain.Property) error {
		return p.Apply(patch)
	})
}

func (s *ListingService) RemoveImage(ctx context.Context, id, landlordID, imageID string) (domain.Property, error) {
	return s.mutate(ctx, id, landlordID, func(p *domain.Property) error {
		return p.RemoveImage(imageID)
	})
}

func (s *ListingService) ReorderImages(ctx context.Context, id, landlordID string, orders []domain.ImageOrder) (domain.Property, error) {
	return s.mutate(ctx, id, landlordID, func(p *domain.Property) error {
		return p.ReorderImages(orders)
	})
}

// mutate runs fn under the repository lock after the ownership check, then
// drops the cached views of the listing. The calendar depends on the time
// zone, so it goes too.
func (s *ListingService) mutate(ctx context.Context, id, landlordID string, fn func(*domain.Property) error) (domain.Property, error) {
	p, err := s.repo.UpdateProperty(ctx, id, func(p *domain.Property) error {
		if p.LandlordID != landlordID {
			return domain.ErrForbidden
		}
		return fn(p)
	})
	if err != nil {
		return domain.Property{}, err
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, propertyKey(id))
		_ = s.cache.Del(ctx, calendarKey(id))
	}
	log.Info().Str("property", id).Str("landlord", landlordID).Msg("listing updated")
	if p.Images == nil {
		p.Images = []domain.Image{}
	}
	return p, nil
}
