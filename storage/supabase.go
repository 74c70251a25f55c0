package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/yeomin4242/guesswhat"
)

// errPermanent marks failures that retrying cannot fix.
var errPermanent = errors.New("permanent storage failure")

// APIError is an error body returned by the storage API.
type APIError struct {
	Status int `json:"-"`

	// StatusCode is the status reported in the body, which can differ from
	// the HTTP status.
	StatusCode string `json:"statusCode"`
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storage: %d %s: %s", e.Status, e.Code, e.Message)
}

// Is maps API statuses onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound || e.StatusCode == "404" || e.Code == "not_found"
	case ErrExists:
		return e.Status == http.StatusConflict || e.StatusCode == "409" || e.Code == "Duplicate"
	case errPermanent:
		return e.Status >= 400 && e.Status < 500
	}
	return false
}

// Config configures a Supabase storage client.
type Config struct {
	// URL is the project origin, like https://xyz.supabase.co.
	URL string

	// Key is sent as both apikey and bearer token. Moves and deletes need the
	// service role key.
	Key    string
	Bucket string

	// Retries is the number of attempts for idempotent calls.
	Retries    int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Supabase is a Store backed by the Supabase storage REST API.
type Supabase struct {
	origin  string
	key     string
	bucket  string
	retries int
	client  *http.Client
}

// NewSupabase returns a storage client for cfg.
func NewSupabase(cfg Config) (*Supabase, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("storage url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("parse storage url: %w", err)
	}
	if cfg.Bucket == "" {
		cfg.Bucket = guesswhat.Bucket
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Supabase{
		origin:  strings.TrimRight(cfg.URL, "/"),
		key:     cfg.Key,
		bucket:  cfg.Bucket,
		retries: cfg.Retries,
		client:  client,
	}, nil
}

// PublicURL returns the public URL of path.
func (s *Supabase) PublicURL(path string) string {
	return guesswhat.PublicURL(s.origin, s.bucket, path)
}

// Upload stores body at path. Existing objects are never overwritten.
func (s *Supabase) Upload(ctx context.Context, path string, body io.Reader, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL("object", s.bucket, path), body)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "max-age=3600")
	req.Header.Set("x-upsert", "false")

	if err := s.do(req, nil); err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}

	return s.PublicURL(path), nil
}

type moveRequest struct {
	BucketID          string `json:"bucketId"`
	SourceKey         string `json:"sourceKey"`
	DestinationKey    string `json:"destinationKey"`
	DestinationBucket string `json:"destinationBucket"`
}

// Move renames an object inside the bucket. Transient failures are retried.
// A retry that finds the source gone counts as done when the destination
// exists, since the earlier attempt may have moved it before failing.
func (s *Supabase) Move(ctx context.Context, from, to string) error {
	body := moveRequest{BucketID: s.bucket, SourceKey: from, DestinationKey: to, DestinationBucket: s.bucket}

	attempts := 0
	err := s.retry(ctx, func() error {
		attempts++
		return s.doJSON(ctx, http.MethodPost, s.objectURL("object", "move"), body, nil)
	})
	if err != nil && attempts > 1 && errors.Is(err, ErrNotFound) {
		ok, serr := s.exists(ctx, to)
		if serr == nil && ok {
			return nil
		}
	}
	if err != nil {
		return fmt.Errorf("move %s to %s: %w", from, to, err)
	}

	return nil
}

// exists reports whether path is stored in the bucket.
func (s *Supabase) exists(ctx context.Context, path string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL("object", "info", s.bucket, path), nil)
	if err != nil {
		return false, err
	}

	if err := s.do(req, nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// Remove deletes paths from the bucket.
func (s *Supabase) Remove(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	body := map[string][]string{"prefixes": paths}
	err := s.retry(ctx, func() error {
		return s.doJSON(ctx, http.MethodDelete, s.objectURL("object", s.bucket), body, nil)
	})
	if err != nil {
		return fmt.Errorf("remove %d objects: %w", len(paths), err)
	}

	return nil
}

type listRequest struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	SortBy struct {
		Column string `json:"column"`
		Order  string `json:"order"`
	} `json:"sortBy"`
}

// List returns the direct children of prefix.
func (s *Supabase) List(ctx context.Context, prefix string, opts ListOptions) ([]Object, error) {
	body := listRequest{Prefix: prefix, Limit: opts.Limit, Offset: opts.Offset}
	if body.Limit <= 0 {
		body.Limit = 100
	}
	body.SortBy.Column = opts.SortColumn
	if body.SortBy.Column == "" {
		body.SortBy.Column = "name"
	}
	body.SortBy.Order = "asc"
	if opts.Descending {
		body.SortBy.Order = "desc"
	}

	var objects []Object
	err := s.retry(ctx, func() error {
		objects = nil
		return s.doJSON(ctx, http.MethodPost, s.objectURL("object", "list", s.bucket), body, &objects)
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	return objects, nil
}

func (s *Supabase) objectURL(parts ...string) string {
	escaped := make([]string, 0, len(parts))
	for _, p := range parts {
		for _, seg := range strings.Split(p, "/") {
			escaped = append(escaped, url.PathEscape(seg))
		}
	}

	return s.origin + "/storage/v1/" + strings.Join(escaped, "/")
}

func (s *Supabase) retry(ctx context.Context, fn func() error) error {
	return repeater.NewBackoff(s.retries, 100*time.Millisecond).Do(ctx, fn, errPermanent)
}

func (s *Supabase) doJSON(ctx context.Context, method, u string, in, out any) error {
	buf, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return s.do(req, out)
}

func (s *Supabase) do(req *http.Request, out any) error {
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
