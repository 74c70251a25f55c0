package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiter(t *testing.T) {
	l := newIPRateLimiter(1, 2)

	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatal("expected the burst to be allowed")
	}
	if l.Allow("10.0.0.1") {
		t.Error("expected the third request to be limited")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("expected other addresses to have their own bucket")
	}

	l.Prune(-time.Second)
	if !l.Allow("10.0.0.1") {
		t.Error("expected a pruned address to start over")
	}
}

func TestIPRateLimiterDisabled(t *testing.T) {
	l := newIPRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("expected no limit, got limited after %d", i)
		}
	}
}

func TestSSLRedirect(t *testing.T) {
	app := &App{cfg: &Config{Env: "production"}}
	h := app.sslRedirect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		path  string
		proto string
		code  int
	}{
		{"/api/game", "", http.StatusMovedPermanently},
		{"/api/game", "https", http.StatusOK},
		{"/healthz", "", http.StatusOK},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", "http://guesswhat.test"+tt.path, http.NoBody)
		if tt.proto != "" {
			req.Header.Set("X-Forwarded-Proto", tt.proto)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		if rr.Code != tt.code {
			t.Errorf("%s (%q): expected %d, got %d", tt.path, tt.proto, tt.code, rr.Code)
		}
	}
}
