package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"prayer-times-ics/internal/awqaf"
	"prayer-times-ics/internal/config"
	"prayer-times-ics/internal/emirates"
	"prayer-times-ics/internal/generator"
	"prayer-times-ics/internal/logger"
	"prayer-times-ics/internal/publish"
)

// job selects the calendars one ingestion run publishes. Without Year and
// Month the run covers Months months starting at the current one. Refresh
// replaces cached API responses instead of reusing them.
type job struct {
	Emirate string   `envconfig:"EMIRATE" default:"Dubai"`
	Cities  []string `envconfig:"CITIES"`
	Year    int      `envconfig:"YEAR"`
	Month   int      `envconfig:"MONTH"`
	Months  int      `envconfig:"MONTHS" default:"2"`
	Refresh bool     `envconfig:"REFRESH"`
}

type calendarGenerator interface {
	Generate(ctx context.Context, req generator.Request) (generator.Output, error)
}

type target struct {
	emirate string
	city    string
	year    int
	month   int
	refresh bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Setup("info", false)
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Setup(cfg.LogLevel, false)

	var j job
	if err := envconfig.Process("PRAYER_INGEST", &j); err != nil {
		log.Fatal().Err(err).Msg("invalid ingest configuration")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timezone")
	}
	targets, err := plan(j, time.Now().In(loc))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid ingest configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout*time.Duration(len(targets)))
	defer cancel()

	g, closeFn, err := generator.FromConfig(ctx, cfg, generator.SetupOptions{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize generator")
	}
	defer closeFn()

	batchID := publish.NewBatchID(time.Now())
	log.Info().Str("batch_id", batchID).Int("calendars", len(targets)).Msg("starting ingestion")

	failed := ingest(ctx, g, targets, batchID)

	log.Info().Int("calendars", len(targets)).Int("failed", failed).Msg("ingestion complete")
	if failed > 0 {
		closeFn()
		os.Exit(1)
	}
	fmt.Println("Ingestion completed successfully")
}

// plan expands a job into one target per city and month.
func plan(j job, now time.Time) ([]target, error) {
	e, err := emirates.Find(j.Emirate)
	if err != nil {
		return nil, err
	}

	cities := j.Cities
	if len(cities) == 0 {
		for _, c := range e.Cities {
			cities = append(cities, c.Name)
		}
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	months := j.Months
	if j.Year != 0 || j.Month != 0 {
		if j.Month < 1 || j.Month > 12 || j.Year < 1900 {
			return nil, fmt.Errorf("invalid month %04d-%02d", j.Year, j.Month)
		}
		start = time.Date(j.Year, time.Month(j.Month), 1, 0, 0, 0, 0, time.UTC)
		months = 1
	}
	if months < 1 {
		months = 1
	}

	var targets []target
	for _, city := range cities {
		_, c, err := emirates.Lookup(e.Name, city)
		if err != nil {
			return nil, err
		}
		for i := 0; i < months; i++ {
			m := start.AddDate(0, i, 0)
			targets = append(targets, target{
				emirate: e.Name,
				city:    c.Name,
				year:    m.Year(),
				month:   int(m.Month()),
				refresh: j.Refresh,
			})
		}
	}
	return targets, nil
}

// ingest generates and publishes every target sequentially under one batch id
// and returns the number of failures.
func ingest(ctx context.Context, g calendarGenerator, targets []target, batchID string) int {
	failed := 0
	for _, t := range targets {
		l := log.With().Str("emirate", t.emirate).Str("city", t.city).Int("year", t.year).Int("month", t.month).Logger()
		l.Info().Msg("generating calendar")

		out, err := g.Generate(ctx, generator.Request{
			Request: awqaf.Request{Emirate: t.emirate, City: t.city, Year: t.year, Month: t.month, NoCache: t.refresh},
			Publish: true,
			BatchID: batchID,
		})
		if err != nil {
			l.Error().Err(err).Msg("calendar failed")
			failed++
			continue
		}
		l.Info().Int("days", len(out.Days)).Int("skipped", len(out.Skipped)).Str("key", out.Key).Msg("calendar published")
	}
	return failed
}
