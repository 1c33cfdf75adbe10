package app_test

import (
	"context"
	"errors"
	"testing"

	"airnest/internal/app"
	"airnest/internal/domain"
)

func readyFields() domain.DraftFields {
	return domain.DraftFields{
		Title: "Cabin", Description: "Quiet cabin", Category: "cabin", PlaceType: "entire_place",
		Bedrooms: ptr(2), Bathrooms: ptr(1), Guests: ptr(4), Beds: ptr(2),
		Country: "NO", City: "Bergen", Address: "Fjordvei 1", PostalCode: "5003",
		PricePerNight: ptr(150.0), TimeZone: "Europe/Oslo",
	}
}

func TestDraftPublish_Flow(t *testing.T) {
	store := newStore()
	cache := &fakeCache{}
	svc := app.NewDraftService(store, cache).WithClock(fixedNow)
	ctx := context.Background()

	d, err := svc.Create(ctx, "host", readyFields())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Publish(ctx, d.ID, "host"); !errors.Is(err, domain.ErrDraftNotReady) {
		t.Fatalf("expected not ready without images, got %v", err)
	}

	d, err = svc.AddImage(ctx, d.ID, "host", domain.Image{URL: "https://img/1.jpg"})
	if err != nil {
		t.Fatalf("add image: %v", err)
	}
	if d.Status != domain.DraftStatusComplete || !d.Images[0].IsMain {
		t.Fatalf("draft should be complete with a main image: %+v", d)
	}

	if _, err := svc.Publish(ctx, d.ID, "intruder"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	p, err := svc.Publish(ctx, d.ID, "host")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if p.Status != domain.StatusPublished || p.LandlordID != "host" || p.TimeZone != "Europe/Oslo" || len(p.Images) != 1 {
		t.Fatalf("unexpected property: %+v", p)
	}
	if got, err := store.GetProperty(ctx, p.ID); err != nil || got.Title != p.Title {
		t.Fatalf("property not stored: %v", err)
	}
	saved, _ := store.GetDraft(ctx, d.ID)
	if saved.Status != domain.DraftStatusPublished || saved.PropertyID == nil || *saved.PropertyID != p.ID {
		t.Fatalf("draft not marked published: %+v", saved)
	}

	if _, err := svc.Publish(ctx, d.ID, "host"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("second publish should fail, got %v", err)
	}
	if _, err := svc.Update(ctx, d.ID, "host", domain.DraftPatch{Title: ptr("x")}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("published draft must be frozen, got %v", err)
	}
}

func TestDraft_RemoveImageReopens(t *testing.T) {
	store := newStore()
	svc := app.NewDraftService(store, nil).WithClock(fixedNow)
	ctx := context.Background()

	d, _ := svc.Create(ctx, "host", readyFields())
	d, _ = svc.AddImage(ctx, d.ID, "host", domain.Image{URL: "https://img/1.jpg"})
	d, err := svc.RemoveImage(ctx, d.ID, "host", d.Images[0].ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if d.Status != domain.DraftStatusDraft || d.Completion.Images {
		t.Fatalf("draft should reopen: %+v", d.Completion)
	}
	if _, err := svc.RemoveImage(ctx, d.ID, "host", "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDraft_SetMainImage(t *testing.T) {
	store := newStore()
	svc := app.NewDraftService(store, nil).WithClock(fixedNow)
	ctx := context.Background()

	d, _ := svc.Create(ctx, "host", readyFields())
	d, _ = svc.AddImage(ctx, d.ID, "host", domain.Image{URL: "https://img/1.jpg", Order: 0})
	d, _ = svc.AddImage(ctx, d.ID, "host", domain.Image{URL: "https://img/2.jpg", Order: 1, IsMain: true})
	first, second := d.Images[0].ID, d.Images[1].ID

	if _, err := svc.SetMainImage(ctx, d.ID, "host", "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	saved, _ := store.GetDraft(ctx, d.ID)
	if !saved.Images[1].IsMain || saved.Images[0].IsMain {
		t.Fatalf("unknown image must not change the main image: %+v", saved.Images)
	}

	d, err := svc.SetMainImage(ctx, d.ID, "host", first)
	if err != nil {
		t.Fatalf("set main: %v", err)
	}
	saved, _ = store.GetDraft(ctx, d.ID)
	for _, img := range saved.Images {
		if img.IsMain != (img.ID == first) {
			t.Fatalf("expected %s main and %s not, got %+v", first, second, saved.Images)
		}
	}
	if _, err := svc.SetMainImage(ctx, d.ID, "intruder", first); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDraft_TimeZoneValidated(t *testing.T) {
	store := newStore()
	svc := app.NewDraftService(store, nil).WithClock(fixedNow)
	ctx := context.Background()

	f := readyFields()
	f.TimeZone = "Atlantis/Capital"
	if _, err := svc.Create(ctx, "host", f); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	d, err := svc.Create(ctx, "host", domain.DraftFields{Title: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Fields.TimeZone != "UTC" {
		t.Fatalf("default zone: %q", d.Fields.TimeZone)
	}
	if _, err := svc.Update(ctx, d.ID, "host", domain.DraftPatch{TimeZone: ptr("Local")}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for Local, got %v", err)
	}
}

func TestWishlistToggle(t *testing.T) {
	store := newStore(published("p1", "UTC", 100))
	svc := app.NewWishlistService(store, store)
	ctx := context.Background()

	added, err := svc.Toggle(ctx, "u1", "p1")
	if err != nil || !added {
		t.Fatalf("expected added, got %v %v", added, err)
	}
	ps, _ := svc.List(ctx, "u1")
	if len(ps) != 1 || ps[0].ID != "p1" {
		t.Fatalf("unexpected wishlist: %+v", ps)
	}
	added, _ = svc.Toggle(ctx, "u1", "p1")
	if added {
		t.Fatalf("second toggle should remove")
	}
	if _, err := svc.Toggle(ctx, "u1", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
