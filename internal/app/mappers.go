package app

import (
	"fmt"
	"math"

	"airnest/internal/availability"
	"airnest/internal/domain"
)

/********** cache keys (single source of truth) **********/

func propertyKey(id string) string    { return fmt.Sprintf("property:%s", id) }
func calendarKey(id string) string    { return fmt.Sprintf("calendar:%s", id) }
func reviewStatsKey(id string) string { return fmt.Sprintf("reviews:stats:%s", id) }

/********** view mappers **********/

func mapCalendar(cal availability.Calendar) domain.BookedDates {
	out := domain.BookedDates{Booked: []string{}, Partial: []string{}}
	for _, d := range cal.Dates(availability.FullyBooked) {
		out.Booked = append(out.Booked, d.String())
	}
	for _, d := range cal.Dates(availability.CheckoutDayPartial) {
		out.Partial = append(out.Partial, d.String())
	}
	return out
}

// mapReviewStats averages ratings to one decimal; the positive rate is the
// share of ratings >= 4, in percent with one decimal. Both are nil without
// reviews.
func mapReviewStats(ratings []int) domain.ReviewStats {
	st := domain.ReviewStats{TotalReviews: len(ratings)}
	if len(ratings) == 0 {
		return st
	}
	sum, positive := 0, 0
	for _, r := range ratings {
		sum += r
		if r >= 4 {
			positive++
		}
	}
	avg := round1(float64(sum) / float64(len(ratings)))
	rate := round1(float64(positive) / float64(len(ratings)) * 100)
	st.AverageRating = &avg
	st.PositiveReviewRate = &rate
	return st
}

func localizeStats(e reviewStatsEntry, locale string) domain.ReviewStats {
	st := e.Stats
	st.MostPopularTags = make([]domain.PopularTag, 0, len(e.Tags))
	for _, tc := range e.Tags {
		st.MostPopularTags = append(st.MostPopularTags, domain.PopularTag{
			Key:   tc.Tag.Key,
			Name:  tc.Tag.Name(locale),
			Color: tc.Tag.Color,
			Count: tc.Count,
		})
	}
	return st
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }

func deepCopyProperties(in []domain.Property) []domain.Property {
	if len(in) == 0 {
		return []domain.Property{}
	}
	out := make([]domain.Property, len(in))
	copy(out, in)
	return out
}
