package domain_test

import (
	"errors"
	"testing"

	"airnest/internal/domain"
)

func listing() domain.Property {
	return domain.Property{
		ID: "p1", LandlordID: "host", Title: "Loft", Description: "Bright", PricePerNight: 90,
		Guests: 2, Country: "FR", City: "Lyon", Address: "1 Quai", TimeZone: "Europe/Paris",
		Images: []domain.Image{
			{ID: "a", Order: 0, IsMain: true},
			{ID: "b", Order: 1},
			{ID: "c", Order: 2},
		},
	}
}

func mainImage(p domain.Property) string {
	for _, img := range p.Images {
		if img.IsMain {
			return img.ID
		}
	}
	return ""
}

func TestProperty_Apply(t *testing.T) {
	p := listing()
	if err := p.Apply(domain.DraftPatch{Title: ptr("Big loft"), Guests: ptr(5), PricePerNight: ptr(110.0)}); err != nil {
		t.Fatal(err)
	}
	if p.Title != "Big loft" || p.Guests != 5 || p.PricePerNight != 110 || p.City != "Lyon" {
		t.Fatalf("unexpected listing: %+v", p)
	}

	before := p
	err := p.Apply(domain.DraftPatch{City: ptr(" "), Guests: ptr(9)})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("blank city should be rejected, got %v", err)
	}
	if p.City != before.City || p.Guests != before.Guests {
		t.Fatalf("a rejected patch must not change the listing: %+v", p)
	}
}

func TestProperty_RemoveImage(t *testing.T) {
	p := listing()
	if err := p.RemoveImage("zzz"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := p.RemoveImage("a"); err != nil {
		t.Fatal(err)
	}
	if len(p.Images) != 2 || mainImage(p) != "b" {
		t.Fatalf("removing the main image should promote b: %+v", p.Images)
	}
	if err := p.RemoveImage("c"); err != nil {
		t.Fatal(err)
	}
	if err := p.RemoveImage("b"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("the only image must stay, got %v", err)
	}
	if len(p.Images) != 1 {
		t.Fatalf("image count changed: %+v", p.Images)
	}
}

func TestProperty_ReorderImages(t *testing.T) {
	p := listing()
	if err := p.ReorderImages(nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	err := p.ReorderImages([]domain.ImageOrder{{ID: "c", Order: 0}, {ID: "a", Order: 5}, {ID: "ghost", Order: 1}})
	if err != nil {
		t.Fatal(err)
	}
	got := []string{p.Images[0].ID, p.Images[1].ID, p.Images[2].ID}
	if got[0] != "c" || got[1] != "b" || got[2] != "a" {
		t.Fatalf("unexpected order: %v", got)
	}
	if mainImage(p) != "c" {
		t.Fatalf("first image should be main: %+v", p.Images)
	}
}
