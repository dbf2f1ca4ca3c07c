// Package generator runs the fetch, render, write and publish pipeline shared
// by the CLI, the server and the ingest job.
package generator

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"prayer-times-ics/internal/apperr"
	"prayer-times-ics/internal/awqaf"
	"prayer-times-ics/internal/calendar"
	"prayer-times-ics/internal/config"
	"prayer-times-ics/internal/model"
	"prayer-times-ics/internal/publish"
	"prayer-times-ics/internal/store"
)

// Source provides prayer days for a request.
type Source interface {
	FetchPrayerTimes(ctx context.Context, req awqaf.Request) (awqaf.Result, error)
}

// Publisher receives every generated calendar when publishing is requested.
type Publisher interface {
	Enabled() bool
	Publish(ctx context.Context, item publish.Item) error
}

// Request is a calendar to generate.
type Request struct {
	awqaf.Request
	// Publish hands the calendar to the publisher after it is written.
	Publish bool
	// BatchID groups archived days of one run; empty lets the publisher mint one.
	BatchID string
}

// Output describes a generated calendar.
type Output struct {
	// Path is the written file; empty for Build.
	Path    string
	Key     string
	Emirate string
	City    string
	Days    []model.PrayerDay
	Events  []model.CalendarEvent
	Data    []byte
	Skipped []awqaf.DayError
}

// Generator turns requests into calendar files.
type Generator struct {
	source     Source
	settings   calendar.Settings
	timezone   string
	output     store.Store
	outputRoot string
	publisher  Publisher
}

// New creates a Generator that writes calendars below outputRoot.
func New(source Source, settings calendar.Settings, outputRoot string, publisher Publisher) (*Generator, error) {
	output, err := store.NewLocal(outputRoot)
	if err != nil {
		return nil, fmt.Errorf("preparing output directory: %w", err)
	}
	return &Generator{
		source:     source,
		settings:   settings,
		timezone:   settings.Location.String(),
		output:     output,
		outputRoot: outputRoot,
		publisher:  publisher,
	}, nil
}

// SettingsFromConfig builds calendar settings from the runtime config.
func SettingsFromConfig(cfg *config.Config) (calendar.Settings, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return calendar.Settings{}, fmt.Errorf("loading timezone: %w", err)
	}
	return calendar.NewSettings(loc, cfg.AdhanDurations, cfg.PrayerDuration, cfg.AdhanColor, cfg.PrayerColor)
}

// Build fetches and renders a calendar without writing it anywhere.
func (g *Generator) Build(ctx context.Context, req awqaf.Request) (Output, error) {
	result, err := g.source.FetchPrayerTimes(ctx, req)
	if err != nil {
		return Output{}, err
	}

	days := result.Days
	if len(days) == 0 {
		return Output{}, apperr.Data("building calendar", fmt.Errorf("no prayer times for %s", req.City))
	}
	emirate, city := days[0].Emirate, days[0].City

	events := calendar.Render(days, g.settings)
	if len(events) == 0 {
		return Output{}, apperr.Data("building calendar", fmt.Errorf("no usable prayer times for %s", city))
	}

	var buf bytes.Buffer
	if err := calendar.Encode(&buf, calendar.MetaFor(city, g.timezone), events); err != nil {
		return Output{}, err
	}

	return Output{
		Key:     calendar.ObjectKey(req.Year, req.Month, emirate, city, req.Day),
		Emirate: emirate,
		City:    city,
		Days:    days,
		Events:  events,
		Data:    buf.Bytes(),
		Skipped: result.Skipped,
	}, nil
}

// Generate builds the calendar, writes it under the output root and, when
// requested, publishes it.
func (g *Generator) Generate(ctx context.Context, req Request) (Output, error) {
	out, err := g.Build(ctx, req.Request)
	if err != nil {
		return Output{}, err
	}

	if err := g.output.SetWithExtension(ctx, out.Key, ".ics", out.Data); err != nil {
		return Output{}, fmt.Errorf("writing calendar: %w", err)
	}
	out.Path = calendar.OutputPath(g.outputRoot, req.Year, req.Month, out.Emirate, out.City, req.Day)

	log.Info().
		Str("path", out.Path).
		Int("events", len(out.Events)).
		Int("skipped_days", len(out.Skipped)).
		Msg("calendar written")

	if req.Publish {
		if g.publisher == nil || !g.publisher.Enabled() {
			log.Warn().Msg("publishing requested but no publish target is configured")
			return out, nil
		}
		err := g.publisher.Publish(ctx, publish.Item{
			Key:     out.Key,
			Data:    out.Data,
			Emirate: out.Emirate,
			City:    out.City,
			Year:    req.Year,
			Month:   req.Month,
			Day:     req.Day,
			Days:    out.Days,
			BatchID: req.BatchID,
		})
		if err != nil {
			return out, apperr.Network("publishing calendar", err)
		}
	}

	return out, nil
}
