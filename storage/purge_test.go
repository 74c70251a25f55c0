package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPurgeTemp(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("", "")
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	seed := map[string]time.Duration{
		"temp/thumbnail/old.png":   13 * time.Hour,
		"temp/thumbnail/fresh.png": time.Hour,
		"temp/question/old.png":    24 * time.Hour,
		"temp/question/edge.png":   12 * time.Hour,
		"final/question/keep.png":  48 * time.Hour,
	}
	for p, age := range seed {
		m.Now = func() time.Time { return now.Add(-age) }
		if _, err := m.Upload(ctx, p, strings.NewReader("x"), ""); err != nil {
			t.Fatal(err)
		}
	}

	n, err := PurgeTemp(ctx, m, now, DefaultPurgeAge, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}

	for p, keep := range map[string]bool{
		"temp/thumbnail/old.png":   false,
		"temp/thumbnail/fresh.png": true,
		"temp/question/old.png":    false,
		"temp/question/edge.png":   true,
		"final/question/keep.png":  true,
	} {
		if m.Exists(p) != keep {
			t.Errorf("%s: expected exists=%v", p, keep)
		}
	}
}

type failingStore struct {
	*Memory
	listErr   error
	removeErr error
}

func (f *failingStore) List(ctx context.Context, prefix string, opts ListOptions) ([]Object, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Memory.List(ctx, prefix, opts)
}

func (f *failingStore) Remove(ctx context.Context, paths ...string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.Memory.Remove(ctx, paths...)
}

func TestPurgeTempErrors(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	s := &failingStore{Memory: NewMemory("", ""), listErr: errors.New("boom")}
	if _, err := PurgeTemp(ctx, s, now, time.Hour, nil); err == nil {
		t.Error("expected the list error")
	}

	s = &failingStore{Memory: NewMemory("", ""), removeErr: errors.New("boom")}
	s.Now = func() time.Time { return now.Add(-2 * time.Hour) }
	s.Upload(ctx, "temp/question/a.png", strings.NewReader("x"), "")

	n, err := PurgeTemp(ctx, s, now, time.Hour, nil)
	if err != nil || n != 0 {
		t.Errorf("expected 0 removed and no error, got %d, %v", n, err)
	}
}
