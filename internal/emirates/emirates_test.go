package emirates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prayer-times-ics/internal/apperr"
)

func TestSevenEmirates(t *testing.T) {
	assert.Equal(t, []string{
		"Abu Dhabi",
		"Dubai",
		"Sharjah",
		"Ajman",
		"Umm Al Quwain",
		"Ras Al Khaimah",
		"Fujairah",
	}, Names())

	for _, e := range All() {
		assert.NotEmpty(t, e.Cities, e.Name)
	}
}

func TestDubaiCities(t *testing.T) {
	cities, err := Cities("dubai")
	require.NoError(t, err)
	require.NotEmpty(t, cities)

	var found bool
	for _, c := range cities {
		if c.Name == "Dubai" {
			found = true
			assert.InDelta(t, 25.2, c.Latitude, 0.1)
			assert.InDelta(t, 55.3, c.Longitude, 0.1)
		}
	}
	assert.True(t, found, "Dubai must list the city of Dubai")
}

func TestLookup(t *testing.T) {
	e, c, err := Lookup("  RAS AL KHAIMAH ", "ras al khaimah")
	require.NoError(t, err)
	assert.Equal(t, "Ras Al Khaimah", e.Name)
	assert.Equal(t, "Ras Al Khaimah", c.Name)

	_, _, err = Lookup("Dubai", "Atlantis")
	assert.True(t, apperr.Is(err, apperr.KindLookup))
	assert.Contains(t, err.Error(), "Atlantis")

	_, _, err = Lookup("Atlantis", "Dubai")
	assert.True(t, apperr.Is(err, apperr.KindLookup))
}

func TestAllReturnsCopy(t *testing.T) {
	all := All()
	all[0].Cities[0].Name = "changed"
	assert.Equal(t, "Abu Dhabi", All()[0].Cities[0].Name)
}
