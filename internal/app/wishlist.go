package app

import (
	"context"

	"airnest/internal/domain"
)

type WishlistService struct {
	props domain.PropertyRepository
	repo  domain.WishlistRepository
}

func NewWishlistService(p domain.PropertyRepository, w domain.WishlistRepository) *WishlistService {
	return &WishlistService{props: p, repo: w}
}

// Toggle adds the property to the user's wishlist, or removes it when it is
// already there. It reports whether the property is now listed.
func (s *WishlistService) Toggle(ctx context.Context, userID, propertyID string) (bool, error) {
	if _, err := s.props.GetProperty(ctx, propertyID); err != nil {
		return false, err
	}
	return s.repo.ToggleWishlist(ctx, userID, propertyID)
}

func (s *WishlistService) List(ctx context.Context, userID string) ([]domain.Property, error) {
	ps, err := s.repo.ListWishlist(ctx, userID)
	if err != nil {
		return nil, err
	}
	return deepCopyProperties(ps), nil
}
