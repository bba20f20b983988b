package model

import (
	"fmt"
	"strconv"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day and no zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// midnight pins the day to UTC so day arithmetic never crosses a DST shift.
func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// DaysSince returns d - other in whole calendar days. It works on Unix
// seconds because time.Duration saturates at about 292 years.
func (d Date) DaysSince(other Date) int {
	return int((d.midnight().Unix() - other.midnight().Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

func (d Date) AddDays(n int) Date {
	return DateOf(d.midnight().AddDate(0, 0, n))
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) String() string {
	return d.midnight().Format(DateLayout)
}

// Format renders the day with a time layout, e.g. "Jan 2, 2006".
func (d Date) Format(layout string) string {
	return d.midnight().Format(layout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		// Older records store an empty string for "no due date".
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
