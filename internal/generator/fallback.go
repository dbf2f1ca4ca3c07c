package generator

import (
	"context"

	"github.com/rs/zerolog/log"

	"prayer-times-ics/internal/apperr"
	"prayer-times-ics/internal/awqaf"
	"prayer-times-ics/internal/emirates"
	"prayer-times-ics/internal/model"
)

// Archive is a read-only store of previously published prayer days.
type Archive interface {
	Days(ctx context.Context, emirate, city, from, to string) ([]model.PrayerDay, error)
}

// FallbackSource serves archived days when the primary source fails with a
// network error. Any other error is returned as is.
type FallbackSource struct {
	Primary Source
	Archive Archive
}

func (f FallbackSource) FetchPrayerTimes(ctx context.Context, req awqaf.Request) (awqaf.Result, error) {
	result, err := f.Primary.FetchPrayerTimes(ctx, req)
	if err == nil || f.Archive == nil || !apperr.Is(err, apperr.KindNetwork) {
		return result, err
	}

	emirate, city, lerr := emirates.Lookup(req.Emirate, req.City)
	if lerr != nil {
		return result, err
	}
	start, end := req.Range()
	from, to := start.Format(model.DateLayout), end.Format(model.DateLayout)

	days, aerr := f.Archive.Days(ctx, emirate.Name, city.Name, from, to)
	if aerr != nil {
		log.Warn().Err(aerr).Msg("archive lookup failed")
		return result, err
	}
	if len(days) == 0 {
		return result, err
	}

	log.Warn().Err(err).
		Str("city", city.Name).
		Str("from", from).
		Str("to", to).
		Int("days", len(days)).
		Msg("serving archived prayer times")
	return awqaf.Result{Days: days}, nil
}
