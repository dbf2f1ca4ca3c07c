package model

import "time"

// EventKind distinguishes the two events generated for every prayer.
type EventKind string

const (
	KindAdhan  EventKind = "adhan"
	KindPrayer EventKind = "prayer"
)

// CalendarEvent is a single rendered calendar entry.
type CalendarEvent struct {
	UID         string        `json:"uid"`
	Kind        EventKind     `json:"kind"`
	Prayer      Prayer        `json:"prayer"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Location    string        `json:"location"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	Color       string        `json:"color"`
	AlarmText   string        `json:"alarm_text"`
	AlarmOffset time.Duration `json:"alarm_offset"`
}

// Duration returns End - Start.
func (e CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}
