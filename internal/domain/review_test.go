package domain_test

import (
	"testing"

	"airnest/internal/domain"
)

func TestReviewTag_Name(t *testing.T) {
	tag := domain.ReviewTag{Key: "quiet_area", NameEN: "Quiet Area", NameZH: "安静环境", NameFR: "Zone calme"}
	for locale, want := range map[string]string{"en": "Quiet Area", "zh": "安静环境", "fr": "Zone calme", "de": "Quiet Area", "": "Quiet Area"} {
		if got := tag.Name(locale); got != want {
			t.Fatalf("%q: want %q, got %q", locale, want, got)
		}
	}
}

func TestDefaultReviewTags_UniqueAndOrdered(t *testing.T) {
	tags := domain.DefaultReviewTags()
	seen := map[string]bool{}
	for i, tag := range tags {
		if seen[tag.Key] {
			t.Fatalf("duplicate key %s", tag.Key)
		}
		seen[tag.Key] = true
		if i == 0 {
			continue
		}
		prev := tags[i-1]
		if prev.Category > tag.Category || (prev.Category == tag.Category && prev.Order >= tag.Order) {
			t.Fatalf("%s is out of order after %s", tag.Key, prev.Key)
		}
	}
}
