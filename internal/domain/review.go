package domain

import "time"

type Review struct {
	ID            string      `json:"id"`
	PropertyID    string      `json:"property_id"`
	UserID        string      `json:"user_id"`
	ReservationID *string     `json:"reservation_id,omitempty"`
	Rating        int         `json:"rating"` // 1..5
	Title         string      `json:"title,omitempty"`
	Content       string      `json:"content"`
	IsVerified    bool        `json:"is_verified"`
	IsHidden      bool        `json:"-"`
	Tags          []ReviewTag `json:"tags"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type ReviewsPage struct {
	Items      []Review `json:"reviews"`
	TotalCount int      `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	HasNext    bool     `json:"has_next"`
}

type ReviewStats struct {
	AverageRating      *float64     `json:"average_rating"`
	TotalReviews       int          `json:"total_reviews"`
	PositiveReviewRate *float64     `json:"positive_review_rate"`
	MostPopularTags    []PopularTag `json:"most_popular_tags"`
}

// ReviewTag is one entry of the fixed vocabulary guests attach to reviews.
type ReviewTag struct {
	Key      string `json:"tag_key"`
	NameEN   string `json:"name_en"`
	NameZH   string `json:"name_zh"`
	NameFR   string `json:"name_fr"`
	Color    string `json:"color"`
	Icon     string `json:"icon,omitempty"`
	Category string `json:"category"`
	Order    int    `json:"order"`
}

// Name picks the label for locale, falling back to English.
func (t ReviewTag) Name(locale string) string {
	switch locale {
	case "zh":
		return t.NameZH
	case "fr":
		return t.NameFR
	}
	return t.NameEN
}

// TagCount is how many visible reviews of one property carry Tag.
type TagCount struct {
	Tag   ReviewTag `json:"tag"`
	Count int       `json:"count"`
}

type PopularTag struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Count int    `json:"count"`
}

// DefaultReviewTags is the vocabulary a fresh install starts with, ordered
// by category then position.
func DefaultReviewTags() []ReviewTag {
	return []ReviewTag{
		{Key: "great_amenities", NameEN: "Great Amenities", NameZH: "设施齐全", NameFR: "Excellents équipements", Color: "#8B5CF6", Category: "amenities", Order: 1},
		{Key: "comfortable_bed", NameEN: "Comfortable Bed", NameZH: "床铺舒适", NameFR: "Lit confortable", Color: "#8B5CF6", Category: "amenities", Order: 2},
		{Key: "good_wifi", NameEN: "Good WiFi", NameZH: "网络良好", NameFR: "Bon WiFi", Color: "#8B5CF6", Category: "amenities", Order: 3},
		{Key: "well_equipped", NameEN: "Well Equipped", NameZH: "设备完善", NameFR: "Bien équipé", Color: "#8B5CF6", Category: "amenities", Order: 4},
		{Key: "very_clean", NameEN: "Very Clean", NameZH: "非常干净", NameFR: "Très propre", Color: "#10B981", Category: "cleanliness", Order: 1},
		{Key: "spotless", NameEN: "Spotless", NameZH: "一尘不染", NameFR: "Impeccable", Color: "#10B981", Category: "cleanliness", Order: 2},
		{Key: "easy_checkin", NameEN: "Easy Check-in", NameZH: "入住方便", NameFR: "Arrivée facile", Color: "#06B6D4", Category: "communication", Order: 1},
		{Key: "clear_instructions", NameEN: "Clear Instructions", NameZH: "说明清晰", NameFR: "Instructions claires", Color: "#06B6D4", Category: "communication", Order: 2},
		{Key: "great_location", NameEN: "Great Location", NameZH: "位置极佳", NameFR: "Excellent emplacement", Color: "#3B82F6", Category: "location", Order: 1},
		{Key: "convenient_transport", NameEN: "Convenient Transport", NameZH: "交通便利", NameFR: "Transport pratique", Color: "#3B82F6", Category: "location", Order: 2},
		{Key: "quiet_area", NameEN: "Quiet Area", NameZH: "安静环境", NameFR: "Zone calme", Color: "#3B82F6", Category: "location", Order: 3},
		{Key: "responsive_host", NameEN: "Responsive Host", NameZH: "房东回复及时", NameFR: "Hôte réactif", Color: "#F59E0B", Category: "service", Order: 1},
		{Key: "helpful_host", NameEN: "Helpful Host", NameZH: "房东热心助人", NameFR: "Hôte serviable", Color: "#F59E0B", Category: "service", Order: 2},
		{Key: "welcoming", NameEN: "Welcoming", NameZH: "热情好客", NameFR: "Accueillant", Color: "#F59E0B", Category: "service", Order: 3},
		{Key: "great_value", NameEN: "Great Value", NameZH: "性价比高", NameFR: "Excellent rapport qualité-prix", Color: "#EF4444", Category: "value", Order: 1},
		{Key: "affordable", NameEN: "Affordable", NameZH: "价格实惠", NameFR: "Abordable", Color: "#EF4444", Category: "value", Order: 2},
	}
}
