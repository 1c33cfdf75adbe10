package domain

import (
	"context"
	"time"
)

type PropertyRepository interface {
	GetProperty(ctx context.Context, id string) (Property, error)
	SearchProperties(ctx context.Context, f PropertyFilter) ([]Property, error)
	ListPublishedIDs(ctx context.Context) ([]string, error)
	// ListByLandlord returns every listing of landlordID whatever its status.
	ListByLandlord(ctx context.Context, landlordID string) ([]Property, error)
	// UpdateProperty loads property id under a write lock, lets fn change it
	// and stores the result. An error from fn aborts without writing.
	UpdateProperty(ctx context.Context, id string, fn func(*Property) error) (Property, error)
}

// ReserveGuard decides, against the freshest reservation snapshot, whether
// the insert may proceed. A non-nil error aborts the insert.
type ReserveGuard func(existing []Reservation) error

type ReservationRepository interface {
	ListForProperty(ctx context.Context, propertyID string) ([]Reservation, error)
	ListForProperties(ctx context.Context, propertyIDs []string) (map[string][]Reservation, error)
	ListForUser(ctx context.Context, userID string) ([]UserReservation, error)
	LatestCompletedStay(ctx context.Context, propertyID, userID string, before time.Time) (Reservation, error)

	// CreateReservation serializes writers per property: the guard runs
	// inside the same transaction that holds the property lock and inserts r.
	CreateReservation(ctx context.Context, r Reservation, guard ReserveGuard) error
}

// ReviewRepository stores reviews with their tags: CreateReview and
// UpdateReview persist r.Tags, reads fill it.
type ReviewRepository interface {
	ListReviews(ctx context.Context, propertyID string, limit, offset int) ([]Review, int, error)
	HasReview(ctx context.Context, propertyID, userID string) (bool, error)
	CreateReview(ctx context.Context, r Review) error
	GetReview(ctx context.Context, id string) (Review, error)
	UpdateReview(ctx context.Context, r Review) error
	DeleteReview(ctx context.Context, id string) error
	ListRatings(ctx context.Context, propertyID string) ([]int, error)

	// ListReviewTags returns the active vocabulary by category, then order.
	ListReviewTags(ctx context.Context) ([]ReviewTag, error)
	// CountTags ranks the tags on visible reviews of a property, most used
	// first, keeping at most limit.
	CountTags(ctx context.Context, propertyID string, limit int) ([]TagCount, error)
}

type WishlistRepository interface {
	ToggleWishlist(ctx context.Context, userID, propertyID string) (added bool, err error)
	ListWishlist(ctx context.Context, userID string) ([]Property, error)
}

type DraftRepository interface {
	SaveDraft(ctx context.Context, d *Draft) error
	GetDraft(ctx context.Context, id string) (*Draft, error)
	// PublishDraft stores p and the published draft atomically.
	PublishDraft(ctx context.Context, d *Draft, p Property) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type EventPublisher interface {
	PublishReservationCreated(ctx context.Context, ev ReservationCreated) error
}

// BotVerifier checks a bot-protection challenge token.
type BotVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}
