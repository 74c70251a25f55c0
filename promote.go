package guesswhat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Mover relocates an object inside the media bucket.
type Mover interface {
	Move(ctx context.Context, from, to string) error
}

// Policy decides what happens when a media move fails.
type Policy string

const (
	// BestEffort keeps the temp URL, records a warning and carries on.
	BestEffort Policy = "best-effort"

	// FailFast aborts the submission and undoes the moves already made.
	FailFast Policy = "fail-fast"
)

// ParsePolicy reads a policy name. The empty string means BestEffort.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", BestEffort:
		return BestEffort, nil
	case FailFast:
		return FailFast, nil
	default:
		return "", fmt.Errorf("unknown promotion policy %q", s)
	}
}

// Warning describes one media object that could not be promoted.
type Warning struct {
	URL   string `json:"url"`
	Kind  Kind   `json:"kind"`
	Error string `json:"error"`
}

// Move is a completed relocation, kept so it can be reverted.
type Move struct {
	From string
	To   string
}

// Promotion is the result of promoting the media of one submission.
type Promotion struct {
	ThumbnailURL string
	Questions    []Question
	Warnings     []Warning
	Moves        []Move
}

// PromoterConfig configures a Promoter.
type PromoterConfig struct {
	// Origin is the public origin media URLs are built on.
	Origin string
	Bucket string
	Policy Policy

	// Concurrency bounds the moves in flight for one submission. Zero or
	// less means unbounded.
	Concurrency int
	Logger      *zap.SugaredLogger
}

// Promoter moves uploaded media from temp/ to final/ and repoints URLs.
type Promoter struct {
	store       Mover
	origin      string
	bucket      string
	policy      Policy
	concurrency int
	log         *zap.SugaredLogger
}

// NewPromoter builds a Promoter over store.
func NewPromoter(store Mover, cfg PromoterConfig) *Promoter {
	if cfg.Bucket == "" {
		cfg.Bucket = Bucket
	}
	if cfg.Policy == "" {
		cfg.Policy = BestEffort
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	return &Promoter{
		store:       store,
		origin:      cfg.Origin,
		bucket:      cfg.Bucket,
		policy:      cfg.Policy,
		concurrency: cfg.Concurrency,
		log:         cfg.Logger,
	}
}

// Policy returns the configured failure policy.
func (p *Promoter) Policy() Policy {
	return p.policy
}

// promotion collects the moves and warnings of one submission.
type promotion struct {
	*Promoter
	warner *Warner

	mu       sync.Mutex
	moves    []Move
	warnings []Warning
}

func (p *Promoter) begin() *promotion {
	return &promotion{Promoter: p, warner: NewWarner(p.log)}
}

// PromoteMedia promotes a single URL from the temp folder of from to the final
// folder of to. Empty URLs, URLs outside the bucket and URLs not under
// temp/<from> are returned unchanged, so calling it on its own output is a
// no-op. Under BestEffort a failed move returns the original URL and a
// warning; under FailFast it returns an error.
func (p *Promoter) PromoteMedia(ctx context.Context, url string, from, to Kind) (string, []Warning, error) {
	run := p.begin()
	out, err := run.promote(ctx, url, from, to)
	if err != nil {
		return "", nil, err
	}

	return out, run.warnings, nil
}

func (r *promotion) promote(ctx context.Context, url string, from, to Kind) (string, error) {
	if url == "" {
		return url, nil
	}

	path, ok := PathFromURL(url, r.bucket)
	if !ok || !strings.HasPrefix(path, from.TempFolder()) {
		return url, nil
	}

	newPath := to.FinalFolder() + strings.TrimPrefix(path, from.TempFolder())
	if err := r.store.Move(ctx, path, newPath); err != nil {
		if r.policy == FailFast {
			return "", fmt.Errorf("move %s: %w", path, err)
		}

		r.warner.Warnw(fmt.Sprintf("could not move %s image: %v", from, err), "path", path)
		r.mu.Lock()
		r.warnings = append(r.warnings, Warning{URL: url, Kind: from, Error: err.Error()})
		r.mu.Unlock()

		return url, nil
	}

	r.mu.Lock()
	r.moves = append(r.moves, Move{From: path, To: newPath})
	r.mu.Unlock()

	return PublicURL(r.origin, r.bucket, newPath), nil
}

// PromoteGameImages promotes a cover image and every question and answer
// image of a submission. Question media are moved concurrently. Under
// FailFast the first failure aborts the rest and the moves already made are
// reverted before the error is returned.
func (p *Promoter) PromoteGameImages(ctx context.Context, thumbnailURL string, questions []Question) (*Promotion, error) {
	run := p.begin()

	cover, err := run.promote(ctx, thumbnailURL, KindThumbnail, KindThumbnail)
	if err != nil {
		return nil, err
	}

	out := make([]Question, len(questions))
	copy(out, questions)

	g, gctx := errgroup.WithContext(ctx)
	if p.concurrency > 0 {
		g.SetLimit(p.concurrency)
	}

	for i := range out {
		q := &out[i]
		g.Go(func() error {
			u, err := run.promote(gctx, q.QuestionURL, KindQuestion, KindQuestion)
			if err != nil {
				return err
			}
			q.QuestionURL = u
			return nil
		})
		g.Go(func() error {
			u, err := run.promote(gctx, q.AnswerURL, KindQuestion, KindQuestion)
			if err != nil {
				return err
			}
			q.AnswerURL = u
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if rerr := p.Revert(context.WithoutCancel(ctx), run.moves); rerr != nil {
			p.log.Errorw("could not revert media moves", zap.Error(rerr))
		}
		return nil, err
	}

	return &Promotion{
		ThumbnailURL: cover,
		Questions:    out,
		Warnings:     run.warnings,
		Moves:        run.moves,
	}, nil
}

// Revert moves promoted objects back to where they were uploaded. It tries
// every move and joins the failures.
func (p *Promoter) Revert(ctx context.Context, moves []Move) error {
	var errs []error
	for _, m := range moves {
		if err := p.store.Move(ctx, m.To, m.From); err != nil {
			errs = append(errs, fmt.Errorf("revert %s: %w", m.To, err))
		}
	}

	return errors.Join(errs...)
}
