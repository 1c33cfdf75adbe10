package availability_test

import (
	"testing"
	"time"

	"airnest/internal/availability"
)

func TestNights(t *testing.T) {
	cases := []struct {
		in, out availability.Date
		want    int
	}{
		{d(2030, 1, 1), d(2030, 1, 4), 3},
		{d(2030, 2, 27), d(2030, 3, 2), 3},
		{d(2030, 12, 31), d(2031, 1, 1), 1},
		// spring-forward day is still one night
		{d(2030, 3, 10), d(2030, 3, 11), 1},
	}
	for _, tc := range cases {
		if got := availability.Nights(tc.in, tc.out); got != tc.want {
			t.Fatalf("Nights(%s, %s) = %d, want %d", tc.in, tc.out, got, tc.want)
		}
	}
}

func TestFallbackTotal(t *testing.T) {
	if got := availability.FallbackTotal(3, 100); got != 411.00 {
		t.Fatalf("FallbackTotal(3, 100) = %v, want 411", got)
	}
	if got := availability.FallbackTotal(1, 89.99); got != 123.29 {
		t.Fatalf("FallbackTotal(1, 89.99) = %v, want 123.29", got)
	}
}

func TestResolveTotal(t *testing.T) {
	cases := []struct {
		name       string
		client     string
		want       float64
		fromClient bool
	}{
		{"client total kept", "250.50", 250.50, true},
		{"absent", "", 411, false},
		{"blank", "   ", 411, false},
		{"unparsable", "abc", 411, false},
		{"nan", "NaN", 411, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, fromClient := availability.ResolveTotal(tc.client, 3, 100)
			if got != tc.want || fromClient != tc.fromClient {
				t.Fatalf("ResolveTotal(%q) = %v,%v want %v,%v", tc.client, got, fromClient, tc.want, tc.fromClient)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := availability.ParseDate("2030-03-09")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got != availability.NewDate(2030, time.March, 9) || got.String() != "2030-03-09" {
		t.Fatalf("unexpected date %v", got)
	}
	if _, err := availability.ParseDate("09/03/2030"); err == nil {
		t.Fatalf("expected parse error")
	}
}
