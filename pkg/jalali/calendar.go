// Package jalali implements the Solar Hijri (Jalali) calendar used for every
// user-facing date in the club: month boundaries, weekdays and day arithmetic.
//
// Storage uses Gregorian dates. Conversions go through the 33-year break
// table, so they are exact for years MinYear..MaxYear.
package jalali

import (
	"errors"
	"time"
)

const (
	MinYear = 1
	MaxYear = 3177
)

var ErrInvalidDate = errors.New("invalid jalali date")

var breaks = [...]int{
	-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181,
	1210, 1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178,
}

// yearInfo returns the Gregorian year in which jy begins, the March day of
// Nowruz in that year, and the number of years since the last leap year
// (0 means jy itself is leap).
func yearInfo(jy int) (gy, march, leap int) {
	gy = jy + 621
	leapJ := -14
	jp := breaks[0]
	jump := 0
	for i := 1; i < len(breaks); i++ {
		jm := breaks[i]
		jump = jm - jp
		if jy < jm {
			break
		}
		leapJ += jump/33*8 + jump%33/4
		jp = jm
	}
	n := jy - jp
	leapJ += n/33*8 + (n%33+3)/4
	if jump%33 == 4 && jump-n == 4 {
		leapJ++
	}
	leapG := gy/4 - (gy/100+1)*3/4 - 150
	march = 20 + leapJ - leapG

	if jump-n < 6 {
		n = n - jump + (jump+4)/33*33
	}
	leap = ((n+1)%33 - 1) % 4
	if leap == -1 {
		leap = 4
	}
	return gy, march, leap
}

// IsLeap reports whether Esfand of year has 30 days.
func IsLeap(year int) bool {
	_, _, leap := yearInfo(year)
	return leap == 0
}

func nowruz(year int, loc *time.Location) time.Time {
	gy, march, _ := yearInfo(year)
	return time.Date(gy, time.March, march, 0, 0, 0, 0, loc)
}

func daysInMonth(year, month int) int {
	switch {
	case month <= 6:
		return 31
	case month <= 11:
		return 30
	case IsLeap(year):
		return 30
	default:
		return 29
	}
}

func dayOfYear(month, day int) int {
	if month <= 6 {
		return (month-1)*31 + day - 1
	}
	return 186 + (month-7)*30 + day - 1
}

func fromDayOfYear(doy int) (month, day int) {
	if doy < 186 {
		return doy/31 + 1, doy%31 + 1
	}
	doy -= 186
	return doy/30 + 7, doy%30 + 1
}

func validYear(year int) bool {
	return year >= MinYear && year <= MaxYear
}

// civilDays counts whole days between two wall-clock dates, ignoring zone offsets.
func civilDays(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
