package app_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"airnest/internal/app"
	"airnest/internal/domain"
)

func ownedListing(id, landlord string) domain.Property {
	p := published(id, "Europe/Rome", 80)
	p.LandlordID = landlord
	p.Description, p.Country, p.City, p.Address = "Old town flat", "IT", "Rome", "Via 1"
	p.Images = []domain.Image{{ID: "i1", IsMain: true}, {ID: "i2", Order: 1}}
	return p
}

func TestListingUpdate_OwnerOnlyAndDropsCache(t *testing.T) {
	store := newStore(ownedListing("p1", "host"))
	cache := &fakeCache{}
	svc := app.NewListingService(store, cache)
	q := app.NewPropertyQueries(store, store, cache, time.Minute, 1)
	ctx := context.Background()

	if _, err := q.GetProperty(ctx, "p1"); err != nil {
		t.Fatal(err)
	}

	title := "Renovated flat"
	if _, err := svc.Update(ctx, "p1", "intruder", domain.DraftPatch{Title: &title}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.Update(ctx, "missing", "host", domain.DraftPatch{Title: &title}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	zone := "Mars/Olympus"
	if _, err := svc.Update(ctx, "p1", "host", domain.DraftPatch{TimeZone: &zone}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid zone, got %v", err)
	}

	p, err := svc.Update(ctx, "p1", "host", domain.DraftPatch{Title: &title})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p.Title != title {
		t.Fatalf("unexpected listing: %+v", p)
	}
	if !slices.Contains(cache.dels, "property:p1") || !slices.Contains(cache.dels, "calendar:p1") {
		t.Fatalf("listing and calendar caches should be dropped, dels=%v", cache.dels)
	}
	got, _ := q.GetProperty(ctx, "p1")
	if got.Title != title {
		t.Fatalf("reads should see the edit, got %q", got.Title)
	}
}

func TestListingImages(t *testing.T) {
	store := newStore(ownedListing("p1", "host"))
	svc := app.NewListingService(store, nil)
	ctx := context.Background()

	p, err := svc.ReorderImages(ctx, "p1", "host", []domain.ImageOrder{{ID: "i2", Order: 0}, {ID: "i1", Order: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if p.Images[0].ID != "i2" || !p.Images[0].IsMain || p.Images[1].IsMain {
		t.Fatalf("i2 should lead and be main: %+v", p.Images)
	}

	if _, err := svc.RemoveImage(ctx, "p1", "guest", "i1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	p, err = svc.RemoveImage(ctx, "p1", "host", "i2")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Images) != 1 || p.Images[0].ID != "i1" || !p.Images[0].IsMain {
		t.Fatalf("i1 should remain as main: %+v", p.Images)
	}
	if _, err := svc.RemoveImage(ctx, "p1", "host", "i1"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("the last image must stay, got %v", err)
	}
	stored, _ := store.GetProperty(ctx, "p1")
	if len(stored.Images) != 1 {
		t.Fatalf("a refused removal must not be stored: %+v", stored.Images)
	}
}
