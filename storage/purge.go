package storage

import (
	"context"
	"time"

	"github.com/yeomin4242/guesswhat"
	"go.uber.org/zap"
)

const (
	// DefaultPurgeAge is how long an unpromoted upload may live.
	DefaultPurgeAge = 12 * time.Hour

	purgeListLimit = 1000
)

// PurgeTemp deletes uploads in the temp folders that have not been touched for
// longer than maxAge and returns how many were removed. Both folders are
// listed before anything is deleted; a listing failure aborts the purge. A
// failed delete is logged and not counted.
func PurgeTemp(ctx context.Context, store Store, now time.Time, maxAge time.Duration, log *zap.SugaredLogger) (int, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	folders := []string{
		guesswhat.KindThumbnail.TempFolder(),
		guesswhat.KindQuestion.TempFolder(),
	}

	listed := make([][]Object, len(folders))
	for i, folder := range folders {
		objs, err := store.List(ctx, folder, ListOptions{Limit: purgeListLimit, SortColumn: "created_at"})
		if err != nil {
			return 0, err
		}
		listed[i] = objs
	}

	removed := 0
	for i, folder := range folders {
		var stale []string
		for _, o := range listed[i] {
			// Entries without a timestamp are folders or still uploading.
			if o.UpdatedAt == nil || now.Sub(*o.UpdatedAt) <= maxAge {
				continue
			}
			stale = append(stale, folder+"/"+o.Name)
		}
		if len(stale) == 0 {
			continue
		}

		if err := store.Remove(ctx, stale...); err != nil {
			log.Errorw("could not remove stale uploads", "folder", folder, "count", len(stale), zap.Error(err))
			continue
		}
		removed += len(stale)
	}

	return removed, nil
}
