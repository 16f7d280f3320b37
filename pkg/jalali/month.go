package jalali

import (
	"fmt"
	"iter"
	"time"
)

var monthNames = [...]string{
	"فروردین", "اردیبهشت", "خرداد", "تیر", "مرداد", "شهریور",
	"مهر", "آبان", "آذر", "دی", "بهمن", "اسفند",
}

// Month is an immutable (year, month) pair. The zero value is not a valid month.
type Month struct {
	year  int
	month int
}

func NewMonth(year, month int) (Month, error) {
	if !validYear(year) || month < 1 || month > 12 {
		return Month{}, fmt.Errorf("%w: month %d/%d", ErrInvalidDate, year, month)
	}
	return Month{year: year, month: month}, nil
}

// MustMonth is NewMonth for constant arguments.
func MustMonth(year, month int) Month {
	m, err := NewMonth(year, month)
	if err != nil {
		panic(err)
	}
	return m
}

// CurrentMonth returns the month containing asOf, in asOf's location.
func CurrentMonth(asOf time.Time) Month {
	return FromTime(asOf).YearMonth()
}

func (m Month) Year() int  { return m.year }
func (m Month) Month() int { return m.month }

func (m Month) IsZero() bool { return m.year == 0 && m.month == 0 }

func (m Month) DaysInMonth() int {
	return daysInMonth(m.year, m.month)
}

func (m Month) FirstDay() Date {
	return Date{Year: m.year, Month: m.month, Day: 1}
}

func (m Month) LastDay() Date {
	return Date{Year: m.year, Month: m.month, Day: m.DaysInMonth()}
}

func (m Month) Name() string {
	return monthNames[m.month-1]
}

func (m Month) Next() Month {
	if m.month == 12 {
		return Month{year: m.year + 1, month: 1}
	}
	return Month{year: m.year, month: m.month + 1}
}

func (m Month) Prev() Month {
	if m.month == 1 {
		return Month{year: m.year - 1, month: 12}
	}
	return Month{year: m.year, month: m.month - 1}
}

// Days yields every date of the month in order. Each call to the returned
// sequence starts over from the first day.
func (m Month) Days() iter.Seq[Date] {
	return func(yield func(Date) bool) {
		n := m.DaysInMonth()
		for day := 1; day <= n; day++ {
			if !yield(Date{Year: m.year, Month: m.month, Day: day}) {
				return
			}
		}
	}
}

// DaysForWeekdays returns the dates of the month falling on any of weekdays,
// in date order. Duplicated weekdays do not duplicate dates.
func (m Month) DaysForWeekdays(weekdays ...Weekday) []Date {
	var want [7]bool
	for _, w := range weekdays {
		if w.Valid() {
			want[w] = true
		}
	}
	wd := m.FirstDay().Weekday()
	var out []Date
	for d := range m.Days() {
		if want[wd] {
			out = append(out, d)
		}
		wd = (wd + 1) % 7
	}
	return out
}

// GregorianRange returns midnight of the first and last day of the month in loc.
func (m Month) GregorianRange(loc *time.Location) (first, last time.Time) {
	return m.FirstDay().Time(loc), m.LastDay().Time(loc)
}

func (m Month) Compare(other Month) int {
	if m.year != other.year {
		return cmpInt(m.year, other.year)
	}
	return cmpInt(m.month, other.month)
}

func (m Month) Before(other Month) bool { return m.Compare(other) < 0 }
func (m Month) After(other Month) bool  { return m.Compare(other) > 0 }

func (m Month) String() string {
	return fmt.Sprintf("%04d/%02d", m.year, m.month)
}
