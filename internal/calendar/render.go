// Package calendar turns prayer days into calendar events and iCalendar
// files.
package calendar

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"prayer-times-ics/internal/model"
)

// DefaultAdhanMinutes is the length of the window between adhan and iqamah.
var DefaultAdhanMinutes = map[model.Prayer]int{
	model.Fajr:    25,
	model.Zuhr:    20,
	model.Asr:     20,
	model.Maghrib: 5,
	model.Isha:    20,
}

const (
	DefaultPrayerMinutes = 10
	DefaultAdhanColor    = "#008000"
	DefaultPrayerColor   = "#ba1e55"
	DefaultTimezone      = "Asia/Dubai"

	// prayerReminder is how long before the prayer event its alarm fires.
	prayerReminder = 5 * time.Minute
)

// Settings control how prayer days are rendered.
type Settings struct {
	Location       *time.Location
	AdhanDurations map[model.Prayer]time.Duration
	PrayerDuration time.Duration
	AdhanColor     string
	PrayerColor    string
}

// DefaultSettings returns the standard durations and colors in Asia/Dubai.
func DefaultSettings() Settings {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		loc = time.FixedZone("+04", 4*60*60)
	}
	s, _ := NewSettings(loc, nil, DefaultPrayerMinutes, DefaultAdhanColor, DefaultPrayerColor)
	return s
}

// NewSettings builds Settings from minute values keyed by prayer name.
// Prayers missing from adhanMinutes use DefaultAdhanMinutes.
func NewSettings(loc *time.Location, adhanMinutes map[string]int, prayerMinutes int, adhanColor, prayerColor string) (Settings, error) {
	if loc == nil {
		return Settings{}, fmt.Errorf("location is required")
	}
	if prayerMinutes <= 0 {
		return Settings{}, fmt.Errorf("prayer duration must be positive, got %d", prayerMinutes)
	}

	durations := make(map[model.Prayer]time.Duration, len(model.Prayers))
	for _, p := range model.Prayers {
		durations[p] = time.Duration(DefaultAdhanMinutes[p]) * time.Minute
	}
	for name, minutes := range adhanMinutes {
		p := model.Prayer(name)
		if _, ok := DefaultAdhanMinutes[p]; !ok {
			return Settings{}, fmt.Errorf("unknown prayer %q in adhan durations", name)
		}
		if minutes <= 0 {
			return Settings{}, fmt.Errorf("adhan duration for %s must be positive, got %d", name, minutes)
		}
		durations[p] = time.Duration(minutes) * time.Minute
	}

	return Settings{
		Location:       loc,
		AdhanDurations: durations,
		PrayerDuration: time.Duration(prayerMinutes) * time.Minute,
		AdhanColor:     adhanColor,
		PrayerColor:    prayerColor,
	}, nil
}

// Render produces two events per prayer per day, in date order and then in
// the fixed prayer order. The output depends only on its arguments.
func Render(days []model.PrayerDay, s Settings) []model.CalendarEvent {
	events := make([]model.CalendarEvent, 0, len(days)*len(model.Prayers)*2)

	for _, day := range days {
		for _, p := range model.Prayers {
			timing, ok := day.Timings[p]
			if !ok {
				continue
			}
			adhan, prayer, err := renderPrayer(day, p, timing, s)
			if err != nil {
				log.Warn().Err(err).Str("date", day.Date).Str("prayer", string(p)).Msg("skipping prayer")
				continue
			}
			events = append(events, adhan, prayer)
		}
	}

	return events
}

func renderPrayer(day model.PrayerDay, p model.Prayer, timing model.Timing, s Settings) (model.CalendarEvent, model.CalendarEvent, error) {
	adhanStart, err := at(day.Date, timing.Adhan, s.Location)
	if err != nil {
		return model.CalendarEvent{}, model.CalendarEvent{}, err
	}
	adhanEnd := adhanStart.Add(s.AdhanDurations[p])

	prayerStart := adhanEnd
	if timing.Iqamah != "" {
		if prayerStart, err = at(day.Date, timing.Iqamah, s.Location); err != nil {
			return model.CalendarEvent{}, model.CalendarEvent{}, err
		}
	}

	title := p.Title()
	adhan := model.CalendarEvent{
		UID:         eventUID(day, p, model.KindAdhan),
		Kind:        model.KindAdhan,
		Prayer:      p,
		Title:       title + " Adhan till Iqamah",
		Description: fmt.Sprintf("%s Adhan Time for %s", title, day.City),
		Location:    day.City,
		Start:       adhanStart,
		End:         adhanEnd,
		Color:       s.AdhanColor,
		AlarmText:   title + " Adhan",
	}
	prayer := model.CalendarEvent{
		UID:         eventUID(day, p, model.KindPrayer),
		Kind:        model.KindPrayer,
		Prayer:      p,
		Title:       title + " Prayer",
		Description: fmt.Sprintf("%s Prayer Time for %s", title, day.City),
		Location:    day.City,
		Start:       prayerStart,
		End:         prayerStart.Add(s.PrayerDuration),
		Color:       s.PrayerColor,
		AlarmText:   title + " Prayer in 5 minutes",
		AlarmOffset: -prayerReminder,
	}
	return adhan, prayer, nil
}

// at combines a YYYY-MM-DD date and an HH:MM clock in loc.
func at(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(model.DateLayout+" "+model.ClockLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s %s: %w", date, clock, err)
	}
	return t, nil
}

// eventUID derives a stable UID from the event's identity.
func eventUID(day model.PrayerDay, p model.Prayer, kind model.EventKind) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s", day.Date, p, kind, day.Emirate, day.City)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16]) + "@prayer-times-ics"
}
