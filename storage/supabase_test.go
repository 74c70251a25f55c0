package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Supabase {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	s, err := NewSupabase(Config{URL: srv.URL + "/", Key: "service-key"})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSupabaseUpload(t *testing.T) {
	s := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/storage/v1/object/quiz-uploads/temp/thumbnail/a.png" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("apikey"); got != "service-key" {
			t.Errorf("expected apikey header, got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer service-key" {
			t.Errorf("expected bearer header, got %q", got)
		}
		if got := r.Header.Get("x-upsert"); got != "false" {
			t.Errorf("expected x-upsert false, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "png-bytes" {
			t.Errorf("unexpected body %q", body)
		}
		w.Write([]byte(`{"Key":"quiz-uploads/temp/thumbnail/a.png"}`))
	})

	u, err := s.Upload(context.Background(), "temp/thumbnail/a.png", strings.NewReader("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !strings.HasSuffix(u, "/storage/v1/object/public/quiz-uploads/temp/thumbnail/a.png") {
		t.Errorf("unexpected public url %s", u)
	}
	if strings.Contains(u, "//storage") {
		t.Errorf("origin slash not trimmed: %s", u)
	}
}

func TestSupabaseMove(t *testing.T) {
	s := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/object/move" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req moveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		want := moveRequest{BucketID: "quiz-uploads", SourceKey: "temp/question/a.png", DestinationKey: "final/question/a.png", DestinationBucket: "quiz-uploads"}
		if req != want {
			t.Errorf("expected %+v, got %+v", want, req)
		}
		w.Write([]byte(`{"message":"Successfully moved"}`))
	})

	if err := s.Move(context.Background(), "temp/question/a.png", "final/question/a.png"); err != nil {
		t.Errorf("%+v", err)
	}
}

func TestSupabaseMoveRetries(t *testing.T) {
	var hits atomic.Int32
	s := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	})

	if err := s.Move(context.Background(), "temp/question/a.png", "final/question/a.png"); err != nil {
		t.Errorf("%+v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", hits.Load())
	}
}

func TestSupabaseMoveLostResponse(t *testing.T) {
	tests := []struct {
		name     string
		infoCode int
		wantErr  bool
	}{
		{"moved by first attempt", http.StatusOK, false},
		{"source really missing", http.StatusNotFound, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var moves atomic.Int32
			s := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/storage/v1/object/move":
					if moves.Add(1) == 1 {
						w.WriteHeader(http.StatusBadGateway)
						return
					}
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte(`{"statusCode":"404","error":"not_found","message":"Object not found"}`))
				case "/storage/v1/object/info/quiz-uploads/final/question/a.png":
					w.WriteHeader(tt.infoCode)
					w.Write([]byte(`{}`))
				default:
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
			})

			err := s.Move(context.Background(), "temp/question/a.png", "final/question/a.png")
			if tt.wantErr && !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected move to succeed, got %v", err)
			}
			if moves.Load() != 2 {
				t.Errorf("expected 2 attempts, got %d", moves.Load())
			}
		})
	}
}

func TestSupabaseNotFound(t *testing.T) {
	var hits atomic.Int32
	s := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"statusCode":"404","error":"not_found","message":"Object not found"}`))
	})

	err := s.Move(context.Background(), "temp/question/a.png", "final/question/a.png")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("client errors should not be retried, got %d attempts", hits.Load())
	}
}

func TestSupabaseRemoveAndList(t *testing.T) {
	s := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/storage/v1/object/quiz-uploads":
			var body map[string][]string
			json.NewDecoder(r.Body).Decode(&body)
			if len(body["prefixes"]) != 2 {
				t.Errorf("expected 2 prefixes, got %v", body)
			}
			w.Write([]byte(`[]`))
		case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/object/list/quiz-uploads":
			var body listRequest
			json.NewDecoder(r.Body).Decode(&body)
			if body.Prefix != "temp/thumbnail" || body.Limit != 1000 || body.SortBy.Column != "created_at" || body.SortBy.Order != "asc" {
				t.Errorf("unexpected list request %+v", body)
			}
			w.Write([]byte(`[{"name":"a.png","id":"1","updated_at":"2024-01-01T00:00:00Z","created_at":"2024-01-01T00:00:00Z"}]`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	ctx := context.Background()
	if err := s.Remove(ctx, "temp/question/a.png", "temp/question/b.png"); err != nil {
		t.Errorf("%+v", err)
	}
	if err := s.Remove(ctx); err != nil {
		t.Errorf("removing nothing should not fail: %+v", err)
	}

	objs, err := s.List(ctx, "temp/thumbnail", ListOptions{Limit: 1000, SortColumn: "created_at"})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(objs) != 1 || objs[0].Name != "a.png" || objs[0].UpdatedAt == nil {
		t.Errorf("unexpected objects %+v", objs)
	}
}

func TestNewSupabaseRequiresURL(t *testing.T) {
	if _, err := NewSupabase(Config{}); err == nil {
		t.Error("expected an error without a url")
	}
}
