package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"airnest/internal/domain"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
	popularTagCount = 2
	reviewTagsKey   = "reviews:tags"
)

type CreateReviewCmd struct {
	PropertyID string
	UserID     string
	Rating     int
	Title      string
	Content    string
	TagKeys    []string
}

// UpdateReviewCmd replaces the editable fields. A nil TagKeys keeps the
// current tags; an empty one clears them.
type UpdateReviewCmd struct {
	ReviewID string
	UserID   string
	Rating   int
	Title    string
	Content  string
	TagKeys  []string
}

type ReviewService struct {
	props    domain.PropertyRepository
	reviews  domain.ReviewRepository
	res      domain.ReservationRepository
	cache    domain.Cache
	cacheTTL time.Duration
	now      func() time.Time
	newID    func() string
}

func NewReviewService(p domain.PropertyRepository, rv domain.ReviewRepository, rs domain.ReservationRepository, c domain.Cache, ttl time.Duration) *ReviewService {
	return &ReviewService{props: p, reviews: rv, res: rs, cache: c, cacheTTL: ttl, now: time.Now, newID: uuid.NewString}
}

func (s *ReviewService) WithClock(now func() time.Time) *ReviewService {
	s.now = now
	return s
}

func (s *ReviewService) ListReviews(ctx context.Context, propertyID string, page, pageSize int) (domain.ReviewsPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if _, err := s.props.GetProperty(ctx, propertyID); err != nil {
		return domain.ReviewsPage{}, err
	}
	items, total, err := s.reviews.ListReviews(ctx, propertyID, pageSize, (page-1)*pageSize)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	if items == nil {
		items = []domain.Review{}
	}
	return domain.ReviewsPage{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		HasNext:    page*pageSize < total,
	}, nil
}

// CreateReview accepts one review per guest and property, and only from a
// guest whose stay has already ended. The review links that stay.
func (s *ReviewService) CreateReview(ctx context.Context, cmd CreateReviewCmd) (domain.Review, error) {
	content, err := validateReview(cmd.Rating, cmd.Content)
	if err != nil {
		return domain.Review{}, err
	}
	if _, err := s.props.GetProperty(ctx, cmd.PropertyID); err != nil {
		return domain.Review{}, err
	}

	dup, err := s.reviews.HasReview(ctx, cmd.PropertyID, cmd.UserID)
	if err != nil {
		return domain.Review{}, err
	}
	if dup {
		return domain.Review{}, domain.ErrAlreadyReviewed
	}

	now := s.now().UTC()
	stay, err := s.res.LatestCompletedStay(ctx, cmd.PropertyID, cmd.UserID, now)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Review{}, domain.ErrNotEligible
	}
	if err != nil {
		return domain.Review{}, err
	}

	tags, err := s.resolveTags(ctx, cmd.TagKeys)
	if err != nil {
		return domain.Review{}, err
	}

	r := domain.Review{
		ID:            s.newID(),
		PropertyID:    cmd.PropertyID,
		UserID:        cmd.UserID,
		ReservationID: &stay.ID,
		Rating:        cmd.Rating,
		Title:         strings.TrimSpace(cmd.Title),
		Content:       content,
		IsVerified:    true,
		Tags:          tags,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.reviews.CreateReview(ctx, r); err != nil {
		return domain.Review{}, err
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, reviewStatsKey(cmd.PropertyID))
	}
	return r, nil
}

// reviewStatsEntry is what the stats cache holds: locale independent, so
// one entry serves every language.
type reviewStatsEntry struct {
	Stats domain.ReviewStats `json:"stats"`
	Tags  []domain.TagCount  `json:"tags"`
}

// Stats summarizes the visible reviews of a property. Popular tag names are
// given in locale.
func (s *ReviewService) Stats(ctx context.Context, propertyID, locale string) (domain.ReviewStats, error) {
	key := reviewStatsKey(propertyID)
	var e reviewStatsEntry
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &e); ok {
			return localizeStats(e, locale), nil
		}
	}
	if _, err := s.props.GetProperty(ctx, propertyID); err != nil {
		return domain.ReviewStats{}, err
	}
	ratings, err := s.reviews.ListRatings(ctx, propertyID)
	if err != nil {
		return domain.ReviewStats{}, err
	}
	tags, err := s.reviews.CountTags(ctx, propertyID, popularTagCount)
	if err != nil {
		return domain.ReviewStats{}, err
	}
	e = reviewStatsEntry{Stats: mapReviewStats(ratings), Tags: tags}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, e, int(s.cacheTTL.Seconds()))
	}
	return localizeStats(e, locale), nil
}

// ReviewTags returns the active tag vocabulary.
func (s *ReviewService) ReviewTags(ctx context.Context) ([]domain.ReviewTag, error) {
	var tags []domain.ReviewTag
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, reviewTagsKey, &tags); ok {
			return tags, nil
		}
	}
	tags, err := s.reviews.ListReviewTags(ctx)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []domain.ReviewTag{}
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, reviewTagsKey, tags, int(s.cacheTTL.Seconds()))
	}
	return tags, nil
}

// resolveTags maps keys onto the vocabulary. Unknown keys are dropped and
// repeats collapse.
func (s *ReviewService) resolveTags(ctx context.Context, keys []string) ([]domain.ReviewTag, error) {
	out := []domain.ReviewTag{}
	if len(keys) == 0 {
		return out, nil
	}
	vocab, err := s.ReviewTags(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]domain.ReviewTag, len(vocab))
	for _, t := range vocab {
		byKey[t.Key] = t
	}
	seen := map[string]bool{}
	for _, k := range keys {
		t, ok := byKey[strings.TrimSpace(k)]
		if !ok || seen[t.Key] {
			continue
		}
		seen[t.Key] = true
		out = append(out, t)
	}
	return out, nil
}

// UpdateReview rewrites rating, title and content. Only the author may edit.
func (s *ReviewService) UpdateReview(ctx context.Context, cmd UpdateReviewCmd) (domain.Review, error) {
	content, err := validateReview(cmd.Rating, cmd.Content)
	if err != nil {
		return domain.Review{}, err
	}
	r, err := s.reviews.GetReview(ctx, cmd.ReviewID)
	if err != nil {
		return domain.Review{}, err
	}
	if r.UserID != cmd.UserID {
		return domain.Review{}, domain.ErrForbidden
	}
	r.Rating = cmd.Rating
	r.Title = strings.TrimSpace(cmd.Title)
	r.Content = content
	r.UpdatedAt = s.now().UTC()
	if cmd.TagKeys != nil {
		if r.Tags, err = s.resolveTags(ctx, cmd.TagKeys); err != nil {
			return domain.Review{}, err
		}
	}
	if err := s.reviews.UpdateReview(ctx, r); err != nil {
		return domain.Review{}, err
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, reviewStatsKey(r.PropertyID))
	}
	return r, nil
}

// DeleteReview removes a review; only its author may do so.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, userID string) error {
	r, err := s.reviews.GetReview(ctx, reviewID)
	if err != nil {
		return err
	}
	if r.UserID != userID {
		return domain.ErrForbidden
	}
	if err := s.reviews.DeleteReview(ctx, reviewID); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, reviewStatsKey(r.PropertyID))
	}
	return nil
}

func validateReview(rating int, content string) (string, error) {
	if rating < 1 || rating > 5 {
		return "", fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrInvalidInput)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}
	return content, nil
}
