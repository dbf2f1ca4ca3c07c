// Package publish copies generated calendars to a shared store and archives
// the underlying prayer days.
package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"prayer-times-ics/internal/config"
	"prayer-times-ics/internal/model"
	"prayer-times-ics/internal/store"
)

// Archive stores prayer days for later lookup.
type Archive interface {
	ReplaceMonth(ctx context.Context, emirate, city, month string, days []model.PrayerDay, batchID string) error
	UpsertDays(ctx context.Context, days []model.PrayerDay, batchID string) error
}

// Item is one generated calendar.
type Item struct {
	// Key is the slash-separated object key without extension.
	Key     string
	Data    []byte
	Emirate string
	City    string
	Year    int
	Month   int
	// Day is zero for a monthly calendar.
	Day  int
	Days []model.PrayerDay
	// BatchID tags archived days; empty mints one from the current time.
	BatchID string
}

// NewBatchID formats the archive batch id for t.
func NewBatchID(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// Publisher sends items to the configured sinks. Either sink may be nil.
type Publisher struct {
	files   store.Store
	archive Archive
	now     func() time.Time
}

// New creates a Publisher.
func New(files store.Store, archive Archive) *Publisher {
	return &Publisher{files: files, archive: archive, now: time.Now}
}

// Enabled reports whether any sink is configured.
func (p *Publisher) Enabled() bool {
	return p != nil && (p.files != nil || p.archive != nil)
}

// Publish uploads the calendar and archives its days. A monthly item replaces
// every archived day of that month; a daily item only overwrites its day.
func (p *Publisher) Publish(ctx context.Context, item Item) error {
	if !p.Enabled() {
		return nil
	}

	if p.files != nil {
		if err := p.files.SetWithExtension(ctx, item.Key, ".ics", item.Data); err != nil {
			return fmt.Errorf("uploading %s: %w", item.Key, err)
		}
		log.Info().Str("key", item.Key+".ics").Int("bytes", len(item.Data)).Msg("calendar published")
	}

	if p.archive != nil && len(item.Days) > 0 {
		batchID := item.BatchID
		if batchID == "" {
			batchID = NewBatchID(p.now())
		}
		var err error
		if item.Day == 0 {
			month := fmt.Sprintf("%04d-%02d", item.Year, item.Month)
			err = p.archive.ReplaceMonth(ctx, item.Emirate, item.City, month, item.Days, batchID)
		} else {
			err = p.archive.UpsertDays(ctx, item.Days, batchID)
		}
		if err != nil {
			return fmt.Errorf("archiving %s/%s: %w", item.Emirate, item.City, err)
		}
		log.Info().Str("city", item.City).Int("days", len(item.Days)).Str("batch", batchID).Msg("prayer days archived")
	}

	return nil
}

// FromConfig builds the publisher described by cfg: a GCS bucket or a local
// directory for calendars, plus the given archive, which may be nil. The
// returned close function releases the storage client.
func FromConfig(ctx context.Context, cfg *config.Config, archive Archive) (*Publisher, func() error, error) {
	noop := func() error { return nil }

	switch {
	case cfg.PublishBucket != "":
		gcs, err := store.NewGCS(ctx, cfg.PublishBucket, "")
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("bucket", cfg.PublishBucket).Msg("publishing calendars to GCS")
		return New(gcs, archive), gcs.Close, nil
	case cfg.PublishDir != "":
		local, err := store.NewLocal(cfg.PublishDir)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("dir", cfg.PublishDir).Msg("publishing calendars to directory")
		return New(local, archive), noop, nil
	default:
		return New(nil, archive), noop, nil
	}
}
