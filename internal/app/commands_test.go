package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"airnest/internal/app"
	"airnest/internal/availability"
	"airnest/internal/domain"
	"airnest/internal/storage/memory"
)

func newBooking(store *memory.Store, cache *fakeCache, pub *fakePublisher, outcomes *[]string) *app.BookingService {
	// typed nils would turn into non-nil interfaces
	var c domain.Cache
	if cache != nil {
		c = cache
	}
	var ev domain.EventPublisher
	if pub != nil {
		ev = pub
	}
	var mu sync.Mutex
	svc := app.NewBookingService(store, store, c, ev, 10*time.Minute).WithClock(fixedNow)
	if outcomes != nil {
		svc.WithObserver(func(o string) {
			mu.Lock()
			*outcomes = append(*outcomes, o)
			mu.Unlock()
		})
	}
	return svc
}

func reserve(in, out string) app.CreateReservationCmd {
	return app.CreateReservationCmd{PropertyID: "p1", UserID: "u1", CheckIn: in, CheckOut: out, Guests: 2}
}

func TestCreateReservation_Verdicts(t *testing.T) {
	store := newStore(published("p1", "Asia/Shanghai", 100))
	var outcomes []string
	svc := newBooking(store, &fakeCache{}, &fakePublisher{}, &outcomes)
	ctx := context.Background()

	r, err := svc.CreateReservation(ctx, reserve("2030-02-01", "2030-02-04"))
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if r.TotalPrice != 411 {
		t.Fatalf("fallback total: %v", r.TotalPrice)
	}
	if got := r.CheckIn.Format(time.RFC3339); got != "2030-02-01T07:00:00Z" {
		t.Fatalf("check-in: %s", got)
	}

	tests := []struct {
		name   string
		cmd    app.CreateReservationCmd
		reason availability.Reason
	}{
		{"same stay overlaps", reserve("2030-02-01", "2030-02-04"), availability.ReasonOverlap},
		{"inner stay overlaps", reserve("2030-02-02", "2030-02-03"), availability.ReasonOverlap},
		{"past stay", reserve("2029-12-01", "2029-12-03"), availability.ReasonPastDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateReservation(ctx, tt.cmd)
			var ce *domain.ConflictError
			if !errors.As(err, &ce) || ce.Reason != tt.reason {
				t.Fatalf("expected %s conflict, got %v", tt.reason, err)
			}
		})
	}

	// checkout 11:00 and check-in 15:00 on the same day leave four hours
	if _, err := svc.CreateReservation(ctx, reserve("2030-02-04", "2030-02-06")); err != nil {
		t.Fatalf("back-to-back booking: %v", err)
	}

	want := []string{"available", "overlap", "overlap", "past_date", "available"}
	if fmt.Sprint(outcomes) != fmt.Sprint(want) {
		t.Fatalf("outcomes: %v", outcomes)
	}
}

func TestCreateReservation_InvalidInput(t *testing.T) {
	store := newStore(published("p1", "Asia/Shanghai", 100), published("bad", "Nowhere/Special", 100))
	var outcomes []string
	svc := newBooking(store, nil, nil, &outcomes)
	ctx := context.Background()

	if _, err := svc.CreateReservation(ctx, reserve("2030-02-04", "2030-02-04")); !errors.Is(err, availability.ErrInvalidDateRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}
	if _, err := svc.CreateReservation(ctx, reserve("02/04/2030", "2030-02-06")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	cmd := reserve("2030-02-01", "2030-02-02")
	cmd.Guests = 0
	if _, err := svc.CreateReservation(ctx, cmd); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid guests, got %v", err)
	}
	cmd = reserve("2030-02-01", "2030-02-02")
	cmd.PropertyID = "bad"
	if _, err := svc.CreateReservation(ctx, cmd); !errors.Is(err, availability.ErrInvalidTimeZone) {
		t.Fatalf("expected invalid zone, got %v", err)
	}
	cmd.PropertyID = "missing"
	if _, err := svc.CreateReservation(ctx, cmd); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	want := []string{"invalid", "invalid", "invalid", "error", "error"}
	if fmt.Sprint(outcomes) != fmt.Sprint(want) {
		t.Fatalf("a broken stored zone is a server fault, outcomes: %v", outcomes)
	}
}

func TestCreateReservation_ClientTotalAndEvent(t *testing.T) {
	store := newStore(published("p1", "Europe/Paris", 100))
	pub := &fakePublisher{}
	svc := newBooking(store, nil, pub, nil)

	cmd := reserve("2030-03-01", "2030-03-03")
	cmd.TotalPrice = "250.50"
	r, err := svc.CreateReservation(context.Background(), cmd)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if r.TotalPrice != 250.5 {
		t.Fatalf("client total should be trusted: %v", r.TotalPrice)
	}
	if len(pub.events) != 1 || pub.events[0].ReservationID != r.ID {
		t.Fatalf("expected one event for %s, got %+v", r.ID, pub.events)
	}
}

func TestCreateReservation_PublishFailureKeepsReservation(t *testing.T) {
	store := newStore(published("p1", "Europe/Paris", 100))
	svc := newBooking(store, nil, &fakePublisher{err: errors.New("broker down")}, nil)

	if _, err := svc.CreateReservation(context.Background(), reserve("2030-03-01", "2030-03-03")); err != nil {
		t.Fatalf("err: %v", err)
	}
	if n := countReservations(store, "p1"); n != 1 {
		t.Fatalf("reservation should be stored, got %d", n)
	}
}

func TestCreateReservation_ConcurrentSameStay(t *testing.T) {
	store := newStore(published("p1", "America/New_York", 80))
	svc := newBooking(store, nil, nil, nil)

	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, conflicts := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateReservation(context.Background(), reserve("2030-03-09", "2030-03-12"))
			mu.Lock()
			defer mu.Unlock()
			var ce *domain.ConflictError
			switch {
			case err == nil:
				ok++
			case errors.As(err, &ce):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if ok != 1 || conflicts != n-1 {
		t.Fatalf("expected exactly one winner, got ok=%d conflicts=%d", ok, conflicts)
	}
}

func TestBookedDates_CachedAndInvalidated(t *testing.T) {
	store := newStore(published("p1", "Asia/Shanghai", 100))
	cache := &fakeCache{}
	svc := newBooking(store, cache, nil, nil)
	ctx := context.Background()

	if _, err := svc.CreateReservation(ctx, reserve("2030-02-01", "2030-02-04")); err != nil {
		t.Fatal(err)
	}
	bd, err := svc.BookedDates(ctx, "p1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if fmt.Sprint(bd.Booked) != "[2030-02-01 2030-02-02 2030-02-03]" || fmt.Sprint(bd.Partial) != "[2030-02-04]" {
		t.Fatalf("unexpected calendar: %+v", bd)
	}
	if _, ok := cache.store["calendar:p1"]; !ok {
		t.Fatalf("calendar should be cached")
	}

	if _, err := svc.CreateReservation(ctx, reserve("2030-02-10", "2030-02-11")); err != nil {
		t.Fatal(err)
	}
	bd, _ = svc.BookedDates(ctx, "p1")
	if len(bd.Booked) != 4 || len(bd.Partial) != 2 {
		t.Fatalf("calendar should reflect new booking: %+v", bd)
	}
}

func TestWarmCalendar_OverwritesStaleEntry(t *testing.T) {
	store := newStore(published("p1", "UTC", 100))
	cache := &fakeCache{}
	svc := newBooking(store, cache, nil, nil)
	ctx := context.Background()

	_ = cache.Set(ctx, "calendar:p1", domain.BookedDates{Booked: []string{"1999-01-01"}, Partial: []string{}}, 60)
	store.PutReservation(domain.Reservation{
		ID: "r1", PropertyID: "p1", UserID: "u1",
		CheckIn:  time.Date(2030, 2, 1, 15, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2030, 2, 2, 11, 0, 0, 0, time.UTC),
	})

	if err := svc.WarmCalendar(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	var got domain.BookedDates
	if ok, _ := cache.Get(ctx, "calendar:p1", &got); !ok {
		t.Fatal("calendar should be stored")
	}
	if fmt.Sprint(got.Booked) != "[2030-02-01]" || fmt.Sprint(got.Partial) != "[2030-02-02]" {
		t.Fatalf("stale calendar not replaced: %+v", got)
	}
	if err := svc.WarmCalendar(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBookedDates_EmptyListsNotNull(t *testing.T) {
	store := newStore(published("p1", "UTC", 100))
	bd, err := newBooking(store, nil, nil, nil).BookedDates(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if bd.Booked == nil || bd.Partial == nil {
		t.Fatalf("expected empty lists, got %+v", bd)
	}
}

func TestCheckAvailability_DryRun(t *testing.T) {
	store := newStore(published("p1", "Asia/Shanghai", 100))
	svc := newBooking(store, nil, nil, nil)
	ctx := context.Background()
	if _, err := svc.CreateReservation(ctx, reserve("2030-02-01", "2030-02-04")); err != nil {
		t.Fatal(err)
	}

	v, err := svc.CheckAvailability(ctx, "p1", "2030-02-03", "2030-02-05")
	if err != nil {
		t.Fatal(err)
	}
	if v.Available || v.Reason != availability.ReasonOverlap {
		t.Fatalf("expected overlap, got %+v", v)
	}
	v, _ = svc.CheckAvailability(ctx, "p1", "2030-02-04", "2030-02-05")
	if !v.Available {
		t.Fatalf("expected available, got %+v", v)
	}
	if countReservations(store, "p1") != 1 {
		t.Fatalf("dry run must not write")
	}
}

func TestUserReservations(t *testing.T) {
	store := newStore(published("p1", "UTC", 100))
	svc := newBooking(store, nil, nil, nil)
	if _, err := svc.CreateReservation(context.Background(), reserve("2030-02-01", "2030-02-03")); err != nil {
		t.Fatal(err)
	}
	rs, err := svc.UserReservations(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 1 || rs[0].PropertyTitle != "Home p1" || rs[0].PropertyTimeZone != "UTC" {
		t.Fatalf("unexpected trips: %+v", rs)
	}
}
