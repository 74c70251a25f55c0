package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"time"

	"github.com/icco/gutil/logging"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/yeomin4242/guesswhat"
	"github.com/yeomin4242/guesswhat/storage"
	"go.uber.org/zap"
)

var opts struct {
	URL     string        `long:"supabase-url" env:"SUPABASE_URL" description:"Supabase project URL" required:"true"`
	Key     string        `long:"service-key" env:"SUPABASE_SERVICE_KEY" description:"Supabase service role key" required:"true"`
	Bucket  string        `short:"b" long:"bucket" env:"STORAGE_BUCKET" default:"quiz-uploads" description:"Media bucket"`
	MaxAge  time.Duration `long:"max-age" env:"PURGE_MAX_AGE" default:"12h" description:"Remove temp uploads untouched for longer than this"`
	Retries int           `long:"retries" default:"3" description:"Attempts per storage request"`
}

var log = logging.Must(logging.NewLogger(guesswhat.Service))

type result struct {
	RemovedCount int `json:"removedCount"`
}

func main() {
	// Flags and the environment win over .env.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnw("could not load .env", zap.Error(err))
	}

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	store, err := storage.NewSupabase(storage.Config{
		URL:     opts.URL,
		Key:     opts.Key,
		Bucket:  opts.Bucket,
		Retries: opts.Retries,
	})
	if err != nil {
		log.Fatalw("could not set up storage", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n, err := storage.PurgeTemp(ctx, store, time.Now(), opts.MaxAge, log)
	if err != nil {
		log.Fatalw("purge failed", zap.Error(err))
	}
	log.Infow("purged temp uploads", "removed", n, "max_age", opts.MaxAge.String())

	if err := json.NewEncoder(os.Stdout).Encode(result{RemovedCount: n}); err != nil {
		log.Fatalw("could not write result", zap.Error(err))
	}
}
