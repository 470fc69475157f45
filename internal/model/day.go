package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a calendar date in YYYY-MM-DD form. Keeping days as strings avoids
// timezone drift between the device that wrote a record and the one reading it.
type Day string

func ParseDay(raw string) (Day, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse(dayLayout, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDay, raw)
	}
	return Day(t.Format(dayLayout)), nil
}

// DayOf returns the calendar day that t falls on in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	return Day(t.In(loc).Format(dayLayout))
}

func (d Day) String() string {
	return string(d)
}

func (d Day) Valid() bool {
	_, err := time.Parse(dayLayout, string(d))
	return err == nil
}

// Date returns midnight of d in loc.
func (d Day) Date(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(dayLayout, string(d), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDay, string(d))
	}
	return t, nil
}

// AddDays moves d by n calendar days. An invalid day is returned unchanged.
func (d Day) AddDays(n int) Day {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return d
	}
	return Day(t.AddDate(0, 0, n).Format(dayLayout))
}

// At combines d with a wall clock time in loc.
func (d Day) At(clock ClockTime, loc *time.Location) (time.Time, error) {
	midnight, err := d.Date(loc)
	if err != nil {
		return time.Time{}, err
	}
	y, m, dd := midnight.Date()
	return time.Date(y, m, dd, clock.Hour, clock.Minute, 0, 0, midnight.Location()), nil
}

// ClockTime is a wall clock time with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock accepts H:MM, HH:MM and HH:MM:SS (seconds are dropped).
func ParseClock(raw string) (ClockTime, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	hour, ok := clockField(parts[0], 1, 23)
	if !ok {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	minute, ok := clockField(parts[1], 2, 59)
	if !ok {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	if len(parts) == 3 {
		if _, ok := clockField(parts[2], 2, 59); !ok {
			return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
		}
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// clockField reads one to two plain digits (exactly two when minDigits is 2)
// no larger than limit.
func clockField(s string, minDigits, limit int) (int, bool) {
	if len(s) < minDigits || len(s) > 2 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil && n <= limit
}

// ClockOf returns the wall clock time of t in its own location.
func ClockOf(t time.Time) ClockTime {
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}
}

// String formats the clock as zero-padded 24h HH:MM, which also sorts lexically.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) Before(other ClockTime) bool {
	if c.Hour != other.Hour {
		return c.Hour < other.Hour
	}
	return c.Minute < other.Minute
}
