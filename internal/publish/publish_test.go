package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prayer-times-ics/internal/config"
	"prayer-times-ics/internal/model"
	"prayer-times-ics/internal/store"
)

type fakeArchive struct {
	replaced map[string][]model.PrayerDay
	upserted []model.PrayerDay
	batch    string
}

func (a *fakeArchive) ReplaceMonth(_ context.Context, emirate, city, month string, days []model.PrayerDay, batchID string) error {
	if a.replaced == nil {
		a.replaced = make(map[string][]model.PrayerDay)
	}
	a.replaced[emirate+"/"+city+"/"+month] = days
	a.batch = batchID
	return nil
}

func (a *fakeArchive) UpsertDays(_ context.Context, days []model.PrayerDay, batchID string) error {
	a.upserted = append(a.upserted, days...)
	a.batch = batchID
	return nil
}

func TestPublishMonthly(t *testing.T) {
	dir := t.TempDir()
	files, err := store.NewLocal(dir)
	require.NoError(t, err)
	archive := &fakeArchive{}

	p := New(files, archive)
	p.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	require.True(t, p.Enabled())

	days := []model.PrayerDay{{Date: "2025-01-01", Emirate: "Dubai", City: "Dubai"}}
	err = p.Publish(context.Background(), Item{
		Key:     "2025/January/Dubai/Dubai/January2025",
		Data:    []byte("BEGIN:VCALENDAR"),
		Emirate: "Dubai",
		City:    "Dubai",
		Year:    2025,
		Month:   1,
		Days:    days,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "2025", "January", "Dubai", "Dubai", "January2025.ics"))
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCALENDAR", string(data))

	assert.Equal(t, days, archive.replaced["Dubai/Dubai/2025-01"])
	assert.Empty(t, archive.upserted)
	assert.Equal(t, "20250102T030405Z", archive.batch)
}

func TestPublishDailyOnlyUpserts(t *testing.T) {
	archive := &fakeArchive{}
	p := New(nil, archive)

	days := []model.PrayerDay{{Date: "2025-01-15", Emirate: "Dubai", City: "Dubai"}}
	err := p.Publish(context.Background(), Item{
		Key: "2025/January/Dubai/Dubai/15/prayer-times-15January", Emirate: "Dubai", City: "Dubai",
		Year: 2025, Month: 1, Day: 15, Days: days,
	})
	require.NoError(t, err)
	assert.Empty(t, archive.replaced)
	assert.Equal(t, days, archive.upserted)
}

func TestPublishUsesGivenBatchID(t *testing.T) {
	archive := &fakeArchive{}
	p := New(nil, archive)
	p.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }

	err := p.Publish(context.Background(), Item{
		Emirate: "Dubai", City: "Dubai", Year: 2025, Month: 1,
		Days:    []model.PrayerDay{{Date: "2025-01-01", Emirate: "Dubai", City: "Dubai"}},
		BatchID: NewBatchID(time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("+04", 4*3600))),
	})
	require.NoError(t, err)
	assert.Equal(t, "20250101T230405Z", archive.batch)
}

func TestPublishDisabled(t *testing.T) {
	var nilPublisher *Publisher
	assert.False(t, nilPublisher.Enabled())
	assert.NoError(t, nilPublisher.Publish(context.Background(), Item{}))
	assert.False(t, New(nil, nil).Enabled())
}

func TestFromConfig(t *testing.T) {
	p, closeFn, err := FromConfig(context.Background(), &config.Config{}, nil)
	require.NoError(t, err)
	require.NoError(t, closeFn())
	assert.False(t, p.Enabled())

	dir := filepath.Join(t.TempDir(), "published")
	p, closeFn, err = FromConfig(context.Background(), &config.Config{PublishDir: dir}, nil)
	require.NoError(t, err)
	defer closeFn()
	require.True(t, p.Enabled())

	require.NoError(t, p.Publish(context.Background(), Item{Key: "2025/January/Dubai/Dubai/January2025", Data: []byte("ics")}))
	data, err := os.ReadFile(filepath.Join(dir, "2025", "January", "Dubai", "Dubai", "January2025.ics"))
	require.NoError(t, err)
	assert.Equal(t, "ics", string(data))
}
