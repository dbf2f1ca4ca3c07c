package model

import (
	"strings"
	"time"
)

// Prayer identifies one of the five daily prayers.
type Prayer string

const (
	Fajr    Prayer = "fajr"
	Zuhr    Prayer = "zuhr"
	Asr     Prayer = "asr"
	Maghrib Prayer = "maghrib"
	Isha    Prayer = "isha"
)

// Prayers lists the daily prayers in the order they occur.
var Prayers = []Prayer{Fajr, Zuhr, Asr, Maghrib, Isha}

// Title returns the display name, e.g. "Fajr".
func (p Prayer) Title() string {
	s := string(p)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Timing holds the adhan time and, when published, the iqamah time of a
// prayer as "HH:MM" in the emirate's local time.
type Timing struct {
	Adhan  string `json:"adhan"`
	Iqamah string `json:"iqamah,omitempty"`
}

// PrayerDay represents the prayer timings of one city on one date.
type PrayerDay struct {
	Date    string            `json:"date"`
	Emirate string            `json:"emirate"`
	City    string            `json:"city"`
	Sunrise string            `json:"sunrise,omitempty"`
	Timings map[Prayer]Timing `json:"timings"`
}

// Day returns the day of month of the record, or 0 if Date is malformed.
func (d PrayerDay) Day() int {
	t, err := time.Parse(DateLayout, d.Date)
	if err != nil {
		return 0
	}
	return t.Day()
}

// DateLayout is the layout of PrayerDay.Date.
const DateLayout = "2006-01-02"

// ClockLayout is the layout of Timing values.
const ClockLayout = "15:04"
