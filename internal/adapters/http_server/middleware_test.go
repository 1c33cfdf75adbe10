package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserIDFrom(r.Context())))
	})
}

func signed(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestAuth(t *testing.T) {
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name   string
		secret string
		header string
		status int
		user   string
	}{
		{"valid", testSecret, "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "u1", ExpiresAt: future}), http.StatusOK, "u1"},
		{"missing header", testSecret, "", http.StatusUnauthorized, ""},
		{"wrong scheme", testSecret, "Basic dTE6cHc=", http.StatusUnauthorized, ""},
		{"expired", testSecret, "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "u1", ExpiresAt: past}), http.StatusUnauthorized, ""},
		{"no expiry", testSecret, "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "u1"}), http.StatusUnauthorized, ""},
		{"no subject", testSecret, "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{ExpiresAt: future}), http.StatusUnauthorized, ""},
		{"other key", testSecret, "Bearer " + signed(t, jwt.SigningMethodHS256, []byte("nope"), jwt.RegisteredClaims{Subject: "u1", ExpiresAt: future}), http.StatusUnauthorized, ""},
		{"other alg", testSecret, "Bearer " + signed(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.RegisteredClaims{Subject: "u1", ExpiresAt: future}), http.StatusUnauthorized, ""},
		{"unconfigured", "", "Bearer " + signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "u1", ExpiresAt: future}), http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			Auth(tt.secret)(echoUser()).ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			if tt.user != "" && rr.Body.String() != tt.user {
				t.Fatalf("expected user %q, got %q", tt.user, rr.Body.String())
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	l := NewClientLimiter(1, 2)
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	h := RateLimit(l)(echoUser())

	hit := func(user, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = ip + ":4242"
		if user != "" {
			req = req.WithContext(WithUserID(req.Context(), user))
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		if rr := hit("u1", "10.0.0.1"); rr.Code != http.StatusOK {
			t.Fatalf("request %d within burst should pass, got %d", i, rr.Code)
		}
	}
	rr := hit("u1", "10.0.0.1")
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected 429 with Retry-After, got %d %q", rr.Code, rr.Header().Get("Retry-After"))
	}

	// buckets are per client
	if rr := hit("u2", "10.0.0.1"); rr.Code != http.StatusOK {
		t.Fatalf("another user should have its own bucket, got %d", rr.Code)
	}
	if rr := hit("", "10.0.0.9"); rr.Code != http.StatusOK {
		t.Fatalf("anonymous caller should be keyed by ip, got %d", rr.Code)
	}

	now = now.Add(time.Second)
	if rr := hit("u1", "10.0.0.1"); rr.Code != http.StatusOK {
		t.Fatalf("bucket should refill, got %d", rr.Code)
	}
}

func TestClientLimiter_SweepsIdleVisitors(t *testing.T) {
	l := NewClientLimiter(1, 1)
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	now = now.Add(visitorIdle + time.Minute)
	l.Allow("c")

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.visitors) != 1 {
		t.Fatalf("idle visitors should be dropped, have %d", len(l.visitors))
	}
}

func TestRemoteIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xrip   string
		remote string
		want   string
	}{
		{"forwarded chain", "203.0.113.7, 10.0.0.1", "", "10.0.0.2:80", "203.0.113.7"},
		{"real ip", "", "198.51.100.4", "10.0.0.2:80", "198.51.100.4"},
		{"remote addr", "", "", "192.0.2.1:5555", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xrip != "" {
				req.Header.Set("X-Real-IP", tt.xrip)
			}
			if got := remoteIP(req); got != tt.want {
				t.Fatalf("want %s, got %s", tt.want, got)
			}
		})
	}
}
