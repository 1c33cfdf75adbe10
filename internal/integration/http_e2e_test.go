//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	server "airnest/internal/adapters/http_server"
	redisad "airnest/internal/adapters/redis"
	"airnest/internal/app"
	"airnest/internal/domain"
	mysqlrepo "airnest/internal/storage/mysql"
)

const secret = "e2e-secret"

// ---------- helpers ----------

func migrationsDir(t *testing.T) string {
	t.Helper()
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = filepath.Join("..", "..", "migrations")
	}
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	return dir
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: sub, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + s
}

func call(t *testing.T, method, url, auth string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

// ---------- the test ----------

func TestHTTP_EndToEnd_BookingFlow(t *testing.T) {
	// Start isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=airnest",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "airnest")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()
	if err := repo.UpsertProperty(ctx, domain.Property{
		ID: "p-e2e", LandlordID: "host", Title: "Riverside loft", Description: "E2E",
		PricePerNight: 120, Status: domain.StatusPublished, Category: "loft", PlaceType: "entire_place",
		Bedrooms: 1, Bathrooms: 1, Guests: 2, Beds: 1,
		Country: "PT", City: "Porto", Address: "Rua 1", PostalCode: "4000",
		TimeZone: "Europe/Lisbon", Images: []domain.Image{}, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("UpsertProperty: %v", err)
	}

	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	// Real router over real storage
	srv := server.New(10 * time.Second)
	srv.MountHandlers(&server.Handlers{
		Bookings:   app.NewBookingService(repo, repo, cache, nil, time.Minute),
		Properties: app.NewPropertyQueries(repo, repo, cache, time.Minute, 4),
		Reviews:    app.NewReviewService(repo, repo, repo, cache, time.Minute),
		Wishlist:   app.NewWishlistService(repo, repo),
		Drafts:     app.NewDraftService(repo, cache),
		Listings:   app.NewListingService(repo, cache),
	}, server.Security{JWTSecret: secret, BookingLimiter: server.NewClientLimiter(50, 50)})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	in := time.Now().AddDate(0, 2, 0).Format("2006-01-02")
	out := time.Now().AddDate(0, 2, 3).Format("2006-01-02")
	stay := map[string]any{"check_in": in, "check_out": out, "guests": 2}

	// prime the calendar cache so the booking has something to invalidate
	res := call(t, http.MethodGet, ts.URL+"/v1/properties/p-e2e/booked-dates", "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("booked-dates status %d", res.StatusCode)
	}

	res = call(t, http.MethodPost, ts.URL+"/v1/properties/p-e2e/reservations", bearer(t, "guest-1"), stay)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", res.StatusCode)
	}

	res = call(t, http.MethodPost, ts.URL+"/v1/properties/p-e2e/reservations", bearer(t, "guest-2"), stay)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.StatusCode)
	}
	var prob struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(res.Body).Decode(&prob); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if prob.Reason != "overlap" {
		t.Fatalf("unexpected reason: %+v", prob)
	}

	res = call(t, http.MethodGet, ts.URL+"/v1/properties/p-e2e/booked-dates", "", nil)
	var cal domain.BookedDates
	if err := json.NewDecoder(res.Body).Decode(&cal); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cal.Booked) != 3 || cal.Booked[0] != in || len(cal.Partial) != 1 || cal.Partial[0] != out {
		t.Fatalf("calendar not refreshed after booking: %+v", cal)
	}

	res = call(t, http.MethodGet, ts.URL+"/v1/me/reservations", bearer(t, "guest-1"), nil)
	var mine []domain.UserReservation
	if err := json.NewDecoder(res.Body).Decode(&mine); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(mine) != 1 || mine[0].PropertyTitle != "Riverside loft" {
		t.Fatalf("unexpected trips: %+v", mine)
	}
}
