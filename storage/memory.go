package storage

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/yeomin4242/guesswhat"
)

type memObject struct {
	data        []byte
	contentType string
	created     time.Time
	updated     time.Time
}

// Memory is an in-process Store. It backs local development and tests.
type Memory struct {
	origin string
	bucket string

	// Now is the clock used for object timestamps.
	Now func() time.Time

	mu      sync.RWMutex
	objects map[string]memObject
}

// NewMemory returns an empty store whose public URLs use origin.
func NewMemory(origin, bucket string) *Memory {
	if bucket == "" {
		bucket = guesswhat.Bucket
	}

	return &Memory{
		origin:  origin,
		bucket:  bucket,
		Now:     time.Now,
		objects: map[string]memObject{},
	}
}

// Upload stores body at path.
func (m *Memory) Upload(ctx context.Context, path string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; ok {
		return "", fmt.Errorf("upload %s: %w", path, ErrExists)
	}
	now := m.Now()
	m.objects[path] = memObject{data: data, contentType: contentType, created: now, updated: now}

	return guesswhat.PublicURL(m.origin, m.bucket, path), nil
}

// Move renames from to to.
func (m *Memory) Move(ctx context.Context, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[from]
	if !ok {
		return fmt.Errorf("move %s: %w", from, ErrNotFound)
	}
	if _, ok := m.objects[to]; ok {
		return fmt.Errorf("move %s to %s: %w", from, to, ErrExists)
	}
	delete(m.objects, from)
	obj.updated = m.Now()
	m.objects[to] = obj

	return nil
}

// Remove deletes paths. Missing paths are ignored.
func (m *Memory) Remove(ctx context.Context, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		delete(m.objects, p)
	}

	return nil
}

// List returns the objects directly inside prefix.
func (m *Memory) List(ctx context.Context, prefix string, opts ListOptions) ([]Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dir := strings.TrimSuffix(prefix, "/") + "/"
	var out []Object
	for key, obj := range m.objects {
		name, ok := strings.CutPrefix(key, dir)
		if !ok || strings.Contains(name, "/") {
			continue
		}
		created, updated := obj.created, obj.updated
		out = append(out, Object{Name: name, ID: key, CreatedAt: &created, UpdatedAt: &updated})
	}

	slices.SortFunc(out, func(a, b Object) int {
		var c int
		switch opts.SortColumn {
		case "created_at":
			c = a.CreatedAt.Compare(*b.CreatedAt)
		case "updated_at":
			c = a.UpdatedAt.Compare(*b.UpdatedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.Name, b.Name)
		}
		if opts.Descending {
			return -c
		}
		return c
	})

	if opts.Offset > 0 {
		out = out[min(opts.Offset, len(out)):]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}

	return out, nil
}

// Exists reports whether path holds an object.
func (m *Memory) Exists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[path]
	return ok
}

// Read returns the content stored at path.
func (m *Memory) Read(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[path]
	if !ok {
		return nil, false
	}

	return bytes.Clone(obj.data), true
}
