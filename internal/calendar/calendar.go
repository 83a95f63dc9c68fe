// Package calendar provides pure civil-date helpers used by the
// materialization engine. Dates produced here are zone-less day markers:
// the same civil day always maps to the same storage key regardless of the
// location "today" was computed in.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical textual form of a storage date.
const DateLayout = "2006-01-02"

// ErrInvalidWeekday indicates an unknown weekday tag.
var ErrInvalidWeekday = errors.New("calendar: invalid weekday tag")

// ErrInvalidClockTime indicates a malformed HH:MM clock string.
var ErrInvalidClockTime = errors.New("calendar: invalid clock time")

var weekdayTags = map[string]time.Weekday{
	"Sun": time.Sunday,
	"Mon": time.Monday,
	"Tue": time.Tuesday,
	"Wed": time.Wednesday,
	"Thu": time.Thursday,
	"Fri": time.Friday,
	"Sat": time.Saturday,
}

var tagsByWeekday = map[time.Weekday]string{
	time.Sunday:    "Sun",
	time.Monday:    "Mon",
	time.Tuesday:   "Tue",
	time.Wednesday: "Wed",
	time.Thursday:  "Thu",
	time.Friday:    "Fri",
	time.Saturday:  "Sat",
}

// ParseWeekday resolves a three-letter weekday tag (Mon..Sun) to a
// time.Weekday. Matching is case-insensitive.
func ParseWeekday(tag string) (time.Weekday, error) {
	trimmed := strings.TrimSpace(tag)
	if len(trimmed) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, tag)
	}
	normalized := strings.ToUpper(trimmed[:1]) + strings.ToLower(trimmed[1:])
	day, ok := weekdayTags[normalized]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, tag)
	}
	return day, nil
}

// WeekdayTag returns the three-letter tag for a weekday.
func WeekdayTag(day time.Weekday) string {
	return tagsByWeekday[day]
}

// NextOccurrenceOnOrAfter returns the first date with the requested weekday
// that is on or after the reference date. The reference date itself is
// returned when its weekday already matches. Weekday arithmetic is performed
// modulo 7 so the offset is never negative.
func NextOccurrenceOnOrAfter(day time.Weekday, reference time.Time) time.Time {
	ref := ToStorageDate(reference)
	offset := (int(day) - int(ref.Weekday()) + 7) % 7
	if offset == 0 {
		return ref
	}
	return ref.AddDate(0, 0, offset)
}

// ToStorageDate normalizes a timestamp to the zone-less midnight marker of
// its civil day. The marker is expressed in UTC so two markers for the same
// civil day compare equal with ==.
func ToStorageDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a storage date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return ToStorageDate(t).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string into a storage date.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: parse date %q: %w", value, err)
	}
	return ToStorageDate(parsed), nil
}

// ParseClockTime validates an HH:MM 24-hour clock string and returns its
// offset from midnight in minutes.
func ParseClockTime(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) != 5 || trimmed[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, value)
	}
	var hour, minute int
	if _, err := fmt.Sscanf(trimmed, "%02d:%02d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, value)
	}
	return hour*60 + minute, nil
}
