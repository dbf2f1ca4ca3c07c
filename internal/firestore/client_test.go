package firestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prayer-times-ics/internal/model"
)

func sampleDay() model.PrayerDay {
	return model.PrayerDay{
		Date:    "2025-01-01",
		Emirate: "Dubai",
		City:    "Dubai",
		Sunrise: "06:50",
		Timings: map[model.Prayer]model.Timing{
			model.Fajr:    {Adhan: "05:30", Iqamah: "05:50"},
			model.Zuhr:    {Adhan: "12:25"},
			model.Asr:     {Adhan: "15:30"},
			model.Maghrib: {Adhan: "17:50"},
			model.Isha:    {Adhan: "19:05"},
		},
	}
}

func TestDocumentMapping(t *testing.T) {
	m := dayToMap(sampleDay(), "batch-1")
	assert.Equal(t, "2025-01", m["month"])
	assert.Equal(t, "batch-1", m["batch_id"])

	got, err := mapToDay(m)
	require.NoError(t, err)
	assert.Equal(t, sampleDay(), got)
}

func TestMapToDayRejectsIncomplete(t *testing.T) {
	m := dayToMap(sampleDay(), "b")
	delete(m["timings"].(map[string]interface{}), "asr")

	_, err := mapToDay(m)
	assert.Error(t, err)
}

func TestGenerateDocID(t *testing.T) {
	a := generateDocID(sampleDay())
	assert.Len(t, a, 32)
	assert.Equal(t, a, generateDocID(sampleDay()))

	other := sampleDay()
	other.Date = "2025-01-02"
	assert.NotEqual(t, a, generateDocID(other))
}
