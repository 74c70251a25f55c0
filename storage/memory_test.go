package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("https://media.test", "")

	u, err := m.Upload(ctx, "temp/question/a.png", strings.NewReader("a"), "image/png")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if u != "https://media.test/storage/v1/object/public/quiz-uploads/temp/question/a.png" {
		t.Errorf("unexpected url %s", u)
	}

	if _, err := m.Upload(ctx, "temp/question/a.png", strings.NewReader("b"), ""); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}

	if err := m.Move(ctx, "temp/question/a.png", "final/question/a.png"); err != nil {
		t.Fatalf("%+v", err)
	}
	if m.Exists("temp/question/a.png") || !m.Exists("final/question/a.png") {
		t.Error("object was not moved")
	}
	if data, _ := m.Read("final/question/a.png"); string(data) != "a" {
		t.Errorf("expected content a, got %q", data)
	}

	if err := m.Move(ctx, "temp/question/a.png", "final/question/b.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := m.Remove(ctx, "final/question/a.png", "missing"); err != nil {
		t.Errorf("%+v", err)
	}
	if m.Exists("final/question/a.png") {
		t.Error("object was not removed")
	}
}

func TestMemoryList(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("", "")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 0
	m.Now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	for _, p := range []string{"temp/thumbnail/c.png", "temp/thumbnail/a.png", "temp/thumbnail/nested/x.png", "temp/question/q.png"} {
		if _, err := m.Upload(ctx, p, strings.NewReader(p), ""); err != nil {
			t.Fatal(err)
		}
	}

	objs, err := m.List(ctx, "temp/thumbnail", ListOptions{SortColumn: "created_at"})
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 2 || objs[0].Name != "c.png" || objs[1].Name != "a.png" {
		t.Errorf("unexpected listing %+v", objs)
	}

	objs, _ = m.List(ctx, "temp/thumbnail/", ListOptions{Limit: 1})
	if len(objs) != 1 || objs[0].Name != "a.png" {
		t.Errorf("unexpected limited listing %+v", objs)
	}
}
