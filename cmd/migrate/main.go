package main

import (
	"errors"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/icco/gutil/logging"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/yeomin4242/guesswhat"
	"go.uber.org/zap"
)

var opts struct {
	DatabaseURL string `long:"database-url" env:"DATABASE_URL" description:"Postgres connection URL" required:"true"`
	Source      string `short:"s" long:"source" default:"file://db/migrations" description:"Migration source"`
	Down        bool   `long:"down" description:"Roll back every migration instead of applying them"`
	Steps       int    `long:"steps" description:"Apply (or with --down, roll back) only this many migrations"`
}

var log = logging.Must(logging.NewLogger(guesswhat.Service))

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnw("could not load .env", zap.Error(err))
	}

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	m, err := migrate.New(opts.Source, opts.DatabaseURL)
	if err != nil {
		log.Fatalw("migration setup failed", zap.Error(err))
	}
	defer m.Close()

	switch {
	case opts.Steps > 0 && opts.Down:
		err = m.Steps(-opts.Steps)
	case opts.Steps > 0:
		err = m.Steps(opts.Steps)
	case opts.Down:
		err = m.Down()
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalw("database migration failed", zap.Error(err))
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatalw("could not read migration version", zap.Error(err))
	}
	log.Infow("database migrations applied", "version", version, "dirty", dirty)
}
