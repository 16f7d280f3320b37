package jalali

import (
	"fmt"
	"time"
)

// Date is a day in the Jalali calendar.
type Date struct {
	Year  int
	Month int
	Day   int
}

func NewDate(year, month, day int) (Date, error) {
	if !validYear(year) || month < 1 || month > 12 || day < 1 || day > daysInMonth(year, month) {
		return Date{}, fmt.Errorf("%w: %d/%d/%d", ErrInvalidDate, year, month, day)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// FromTime converts the wall-clock date of t, in t's location.
func FromTime(t time.Time) Date {
	gy, _, _ := t.Date()
	jy := gy - 621
	start := nowruz(jy, t.Location())
	if civilDays(start, t) < 0 {
		jy--
		start = nowruz(jy, t.Location())
	}
	m, d := fromDayOfYear(civilDays(start, t))
	return Date{Year: jy, Month: m, Day: d}
}

// Time returns midnight of the Gregorian day d falls on, in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return nowruz(d.Year, loc).AddDate(0, 0, dayOfYear(d.Month, d.Day))
}

func (d Date) Weekday() Weekday {
	return weekdayOf(d.Time(time.UTC))
}

func (d Date) YearMonth() Month {
	return Month{year: d.Year, month: d.Month}
}

func (d Date) AddDays(n int) Date {
	return FromTime(d.Time(time.UTC).AddDate(0, 0, n))
}

// DaysUntil returns the signed number of days from d to other.
func (d Date) DaysUntil(other Date) int {
	return civilDays(d.Time(time.UTC), other.Time(time.UTC))
}

func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(d.Month, other.Month)
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
