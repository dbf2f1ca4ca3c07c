package awqaf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"prayer-times-ics/internal/apperr"
	"prayer-times-ics/internal/cache"
	"prayer-times-ics/internal/emirates"
	"prayer-times-ics/internal/model"
)

// Request selects a month, or a single day when Day is non-zero, for one city.
type Request struct {
	Emirate string
	City    string
	Year    int
	Month   int
	Day     int
	// NoCache drops any cached entry for the range and fetches fresh data.
	// A complete result is cached again.
	NoCache bool
}

// Validate checks that the date fields form a real month or day.
func (r Request) Validate() error {
	if r.Year < 1900 || r.Year > 9999 {
		return fmt.Errorf("year must be between 1900 and 9999, got %d", r.Year)
	}
	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("month must be between 1 and 12, got %d", r.Month)
	}
	if r.Day != 0 {
		last := DaysIn(r.Year, time.Month(r.Month))
		if r.Day < 1 || r.Day > last {
			return fmt.Errorf("day must be between 1 and %d for %s %d, got %d",
				last, time.Month(r.Month), r.Year, r.Day)
		}
	}
	return nil
}

// Range returns the first and last date covered by the request.
func (r Request) Range() (start, end time.Time) {
	if r.Day != 0 {
		d := time.Date(r.Year, time.Month(r.Month), r.Day, 0, 0, 0, 0, time.UTC)
		return d, d
	}
	start = time.Date(r.Year, time.Month(r.Month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DayError records a day that could not be fetched or parsed.
type DayError struct {
	Date string
	Err  error
}

func (e DayError) Error() string {
	return fmt.Sprintf("%s: %v", e.Date, e.Err)
}

// Result is the outcome of a fetch: the parsed days in date order and the
// days that were skipped.
type Result struct {
	Days    []model.PrayerDay
	Skipped []DayError
}

type prayerTimesResponse struct {
	PrayerData []record `json:"prayerData"`
}

// record is one day of the prayer-times endpoint. Times are ISO datetimes of
// which only the clock part is used.
type record struct {
	GDate         string `json:"gDate"`
	AreaNameEn    string `json:"areaNameEn"`
	Fajr          string `json:"fajr"`
	Shurooq       string `json:"shurooq"`
	Zuhr          string `json:"zuhr"`
	Asr           string `json:"asr"`
	Maghrib       string `json:"maghrib"`
	Isha          string `json:"isha"`
	FajrIqamah    string `json:"fajrIqamah"`
	ZuhrIqamah    string `json:"zuhrIqamah"`
	AsrIqamah     string `json:"asrIqamah"`
	MaghribIqamah string `json:"maghribIqamah"`
	IshaIqamah    string `json:"ishaIqamah"`
}

func (r record) times(p model.Prayer) (adhan, iqamah string) {
	switch p {
	case model.Fajr:
		return r.Fajr, r.FajrIqamah
	case model.Zuhr:
		return r.Zuhr, r.ZuhrIqamah
	case model.Asr:
		return r.Asr, r.AsrIqamah
	case model.Maghrib:
		return r.Maghrib, r.MaghribIqamah
	case model.Isha:
		return r.Isha, r.IshaIqamah
	}
	return "", ""
}

// FetchPrayerTimes returns the prayer days for the request. Emirate and city
// are resolved before any token or network access. If the range request
// keeps failing with a recoverable error, each day is fetched on its own and
// failed days are reported in Result.Skipped.
func (c *Client) FetchPrayerTimes(ctx context.Context, req Request) (Result, error) {
	emirate, city, err := emirates.Lookup(req.Emirate, req.City)
	if err != nil {
		return Result{}, err
	}
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	req.Emirate, req.City = emirate.Name, city.Name

	start, end := req.Range()
	key := cache.Key{
		Emirate: req.Emirate,
		City:    req.City,
		Start:   start.Format(model.DateLayout),
		End:     end.Format(model.DateLayout),
	}

	if c.cache != nil {
		if req.NoCache {
			if err := c.cache.Invalidate(key); err != nil {
				log.Warn().Err(err).Str("key", key.String()).Msg("failed to drop cached prayer times")
			}
		} else if days, ok := c.cache.Get(key); ok {
			log.Debug().Str("key", key.String()).Int("days", len(days)).Msg("using cached prayer times")
			return Result{Days: days}, nil
		}
	}

	if c.tokens == nil {
		return Result{}, apperr.Auth("fetching prayer times", errors.New("no token source configured"))
	}
	token, err := c.tokens.EnsureValidToken(ctx)
	if err != nil {
		return Result{}, err
	}

	var result Result
	days, skipped, err := c.fetchRange(ctx, token, req, start, end)
	switch {
	case err == nil:
		result.Days = days
		result.Skipped = skipped
	case apperr.IsRecoverable(err) && !start.Equal(end):
		log.Warn().Err(err).Msg("range request failed, fetching day by day")
		if result, err = c.fetchDaily(ctx, token, req, start, end); err != nil {
			return Result{}, err
		}
	default:
		return Result{}, err
	}

	for _, s := range result.Skipped {
		log.Warn().Str("date", s.Date).Err(s.Err).Str("city", req.City).Msg("skipping day")
	}

	if len(result.Days) == 0 {
		if err := unreachable(result.Skipped); err != nil {
			return Result{Skipped: result.Skipped}, err
		}
		return Result{Skipped: result.Skipped},
			apperr.Data("fetching prayer times", fmt.Errorf("no prayer times data found for city: %s", req.City))
	}

	if c.cache != nil && len(result.Skipped) == 0 {
		if err := c.cache.Set(key, result.Days); err != nil {
			log.Warn().Err(err).Msg("failed to cache prayer times")
		}
	}

	log.Info().
		Str("emirate", req.Emirate).
		Str("city", req.City).
		Str("from", key.Start).
		Str("to", key.End).
		Int("days", len(result.Days)).
		Int("skipped", len(result.Skipped)).
		Msg("fetched prayer times")

	return result, nil
}

// fetchDaily requests each day of [start, end] separately. Failed days are
// skipped; auth failures and cancellation abort the whole fetch.
func (c *Client) fetchDaily(ctx context.Context, token string, req Request, start, end time.Time) (Result, error) {
	var result Result
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days, skipped, err := c.fetchRange(ctx, token, req, d, d)
		if apperr.Is(err, apperr.KindAuth) {
			return Result{}, err
		}
		if ctx.Err() != nil {
			return Result{}, apperr.Network("fetching prayer times", ctx.Err())
		}
		if err != nil {
			result.Skipped = append(result.Skipped, DayError{Date: d.Format(model.DateLayout), Err: err})
			continue
		}
		result.Days = append(result.Days, days...)
		result.Skipped = append(result.Skipped, skipped...)
	}
	return result, nil
}

// unreachable reports an outage as a network error when every requested day
// failed with one.
func unreachable(skipped []DayError) error {
	if len(skipped) == 0 {
		return nil
	}
	for _, s := range skipped {
		if !apperr.Is(s.Err, apperr.KindNetwork) {
			return nil
		}
	}
	last := skipped[len(skipped)-1].Err
	return apperr.Network("fetching prayer times",
		fmt.Errorf("API unreachable for all %d requested days: %w", len(skipped), last))
}

// fetchRange performs one (retried) range request and parses the records
// for the requested city.
func (c *Client) fetchRange(ctx context.Context, token string, req Request, start, end time.Time) ([]model.PrayerDay, []DayError, error) {
	from, to := start.Format(model.DateLayout), end.Format(model.DateLayout)
	op := fmt.Sprintf("fetching prayer times %s..%s", from, to)

	var body []byte
	err := c.retry(ctx, op, func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetPathParams(map[string]string{"start": from, "end": to}).
			Get("/prayer-time/prayertimes/{start}/{end}")
		if err != nil {
			return apperr.Network(op, err)
		}
		if resp.IsError() {
			return apperr.HTTPStatus(op, resp.StatusCode(), resp.String())
		}
		body = resp.Body()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var ptr prayerTimesResponse
	if err := json.Unmarshal(body, &ptr); err != nil {
		return nil, nil, apperr.Data(op, fmt.Errorf("decoding response: %w", err))
	}

	days, skipped := parseRecords(ptr.PrayerData, req.Emirate, req.City, from, to)
	return days, skipped, nil
}

// parseRecords keeps the records of city within [from, to], one per date,
// sorted by date. Records that cannot be parsed, and dates with no record,
// are returned as DayErrors.
func parseRecords(records []record, emirate, city, from, to string) ([]model.PrayerDay, []DayError) {
	var (
		days    []model.PrayerDay
		skipped []DayError
		seen    = make(map[string]bool)
	)

	for _, r := range records {
		if !strings.EqualFold(strings.TrimSpace(r.AreaNameEn), city) {
			continue
		}
		date, _, _ := strings.Cut(r.GDate, "T")
		if date == "" || date < from || date > to || seen[date] {
			continue
		}
		seen[date] = true

		day, err := parseRecord(r, date, emirate, city)
		if err != nil {
			skipped = append(skipped, DayError{Date: date, Err: apperr.Data("parsing prayer times", err)})
			continue
		}
		days = append(days, day)
	}

	first, _ := time.Parse(model.DateLayout, from)
	last, _ := time.Parse(model.DateLayout, to)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		date := d.Format(model.DateLayout)
		if !seen[date] {
			skipped = append(skipped, DayError{Date: date, Err: apperr.Data("parsing prayer times", errors.New("no record returned"))})
		}
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Date < skipped[j].Date })
	return days, skipped
}

func parseRecord(r record, date, emirate, city string) (model.PrayerDay, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return model.PrayerDay{}, fmt.Errorf("invalid date %q", r.GDate)
	}

	day := model.PrayerDay{
		Date:    date,
		Emirate: emirate,
		City:    city,
		Timings: make(map[model.Prayer]model.Timing, len(model.Prayers)),
	}

	for _, p := range model.Prayers {
		adhanRaw, iqamahRaw := r.times(p)
		adhan, err := clock(adhanRaw)
		if err != nil {
			return model.PrayerDay{}, fmt.Errorf("%s: %w", p, err)
		}
		timing := model.Timing{Adhan: adhan}
		if iqamahRaw != "" {
			if timing.Iqamah, err = clock(iqamahRaw); err != nil {
				return model.PrayerDay{}, fmt.Errorf("%s iqamah: %w", p, err)
			}
		}
		day.Timings[p] = timing
	}

	if r.Shurooq != "" {
		if sunrise, err := clock(r.Shurooq); err == nil {
			day.Sunrise = sunrise
		}
	}

	return day, nil
}

// clock extracts "HH:MM" from an ISO datetime such as
// "2025-01-01T05:30:00" or a bare "05:30:00".
func clock(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("missing time")
	}
	if _, after, ok := strings.Cut(s, "T"); ok {
		s = after
	}
	s, _, _ = strings.Cut(s, ".")
	s = strings.TrimSuffix(s, "Z")
	if i := strings.IndexAny(s, "+-"); i > 0 {
		s = s[:i]
	}
	for _, layout := range []string{"15:04:05", model.ClockLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(model.ClockLayout), nil
		}
	}
	return "", fmt.Errorf("invalid time %q", s)
}
