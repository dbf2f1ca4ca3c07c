package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prayer-times-ics/internal/apperr"
	"prayer-times-ics/internal/generator"
)

func TestPlanCurrentMonths(t *testing.T) {
	now := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	targets, err := plan(job{Emirate: "dubai", Cities: []string{"dubai"}, Months: 2}, now)
	require.NoError(t, err)

	assert.Equal(t, []target{
		{emirate: "Dubai", city: "Dubai", year: 2025, month: 12},
		{emirate: "Dubai", city: "Dubai", year: 2026, month: 1},
	}, targets)
}

func TestPlanRefresh(t *testing.T) {
	targets, err := plan(job{Emirate: "Dubai", Cities: []string{"Hatta"}, Months: 1, Refresh: true}, time.Now())
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.True(t, targets[0].refresh)

	g := &fakeGenerator{}
	ingest(context.Background(), g, targets, "b")
	require.Len(t, g.reqs, 1)
	assert.True(t, g.reqs[0].NoCache)
}

func TestPlanExplicitMonthAllCities(t *testing.T) {
	targets, err := plan(job{Emirate: "Dubai", Year: 2025, Month: 3, Months: 5}, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, targets)
	for _, tg := range targets {
		assert.Equal(t, 2025, tg.year)
		assert.Equal(t, 3, tg.month)
	}
}

func TestPlanErrors(t *testing.T) {
	_, err := plan(job{Emirate: "Atlantis"}, time.Now())
	assert.True(t, apperr.Is(err, apperr.KindLookup))

	_, err = plan(job{Emirate: "Dubai", Cities: []string{"Atlantis"}}, time.Now())
	assert.True(t, apperr.Is(err, apperr.KindLookup))

	_, err = plan(job{Emirate: "Dubai", Year: 2025, Month: 13}, time.Now())
	assert.Error(t, err)
}

type fakeGenerator struct {
	fail map[string]bool
	reqs []generator.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req generator.Request) (generator.Output, error) {
	f.reqs = append(f.reqs, req)
	if f.fail[req.City] {
		return generator.Output{}, apperr.Network("fetching", errors.New("unreachable"))
	}
	return generator.Output{City: req.City}, nil
}

func TestIngestCountsFailures(t *testing.T) {
	g := &fakeGenerator{fail: map[string]bool{"Hatta": true}}
	targets := []target{
		{emirate: "Dubai", city: "Dubai", year: 2025, month: 1},
		{emirate: "Dubai", city: "Hatta", year: 2025, month: 1},
		{emirate: "Dubai", city: "Dubai", year: 2025, month: 2},
	}

	failed := ingest(context.Background(), g, targets, "20250101T000000Z")

	assert.Equal(t, 1, failed)
	require.Len(t, g.reqs, 3)
	for _, req := range g.reqs {
		assert.True(t, req.Publish)
		assert.Zero(t, req.Day)
		assert.Equal(t, "20250101T000000Z", req.BatchID)
		assert.False(t, req.NoCache)
	}
}
