package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"prayer-times-ics/internal/model"
)

// ProductID identifies the generator in every calendar file.
const ProductID = "-//Prayer Times Calendar Generator//EN"

// Meta holds calendar-level properties.
type Meta struct {
	Name     string
	Timezone string
}

// MetaFor returns the calendar metadata for a city.
func MetaFor(city, timezone string) Meta {
	return Meta{Name: city + " Prayer Times", Timezone: timezone}
}

// Build assembles events into an iCalendar object. Times are written in UTC
// and DTSTAMP equals DTSTART, so the same events always yield the same file.
func Build(meta Meta, events []model.CalendarEvent) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText(ical.PropMethod, "PUBLISH")
	if meta.Name != "" {
		cal.Props.Set(extensionText("X-WR-CALNAME", meta.Name))
	}
	if meta.Timezone != "" {
		cal.Props.Set(extensionText("X-WR-TIMEZONE", meta.Timezone))
	}

	for _, e := range events {
		cal.Children = append(cal.Children, eventComponent(e))
	}
	return cal
}

// extensionText builds an escaped X- text property without the VALUE=TEXT
// parameter go-ical adds to names it has no default type for.
func extensionText(name, text string) *ical.Prop {
	prop := ical.NewProp(name)
	prop.SetText(text)
	prop.Params.Del(ical.ParamValue)
	return prop
}

// Encode writes events as an iCalendar file.
func Encode(w io.Writer, meta Meta, events []model.CalendarEvent) error {
	if err := ical.NewEncoder(w).Encode(Build(meta, events)); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}

func eventComponent(e model.CalendarEvent) *ical.Component {
	vevent := ical.NewComponent(ical.CompEvent)
	vevent.Props.SetText(ical.PropUID, e.UID)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, e.Start.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeStart, e.Start.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, e.End.UTC())
	vevent.Props.SetText(ical.PropSummary, e.Title)
	vevent.Props.SetText(ical.PropDescription, e.Description)
	if e.Location != "" {
		vevent.Props.SetText(ical.PropLocation, e.Location)
	}
	if e.Color != "" {
		vevent.Props.SetText(ical.PropColor, e.Color)
	}
	vevent.Props.SetText(ical.PropCategories, strings.ToUpper(string(e.Kind)))

	if e.AlarmText != "" {
		valarm := ical.NewComponent(ical.CompAlarm)
		valarm.Props.SetText(ical.PropAction, "DISPLAY")
		valarm.Props.SetText(ical.PropDescription, e.AlarmText)
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = formatTrigger(e.AlarmOffset)
		valarm.Props.Set(trigger)
		vevent.Children = append(vevent.Children, valarm)
	}

	return vevent
}

// formatTrigger renders an alarm offset as an RFC 5545 duration,
// e.g. -5m as "-PT5M".
func formatTrigger(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}

	var b strings.Builder
	b.WriteString(sign + "PT")
	if h := d / time.Hour; h > 0 {
		fmt.Fprintf(&b, "%dH", h)
		d -= h * time.Hour
	}
	if m := d / time.Minute; m > 0 {
		fmt.Fprintf(&b, "%dM", m)
		d -= m * time.Minute
	}
	if s := d / time.Second; s > 0 {
		fmt.Fprintf(&b, "%dS", s)
	}
	return b.String()
}
