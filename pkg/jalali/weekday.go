package jalali

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Weekday counts days of the Jalali week, which starts on Saturday.
type Weekday int

const (
	Saturday Weekday = iota
	Sunday
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
)

var weekdayCodes = [...]string{"sat", "sun", "mon", "tue", "wed", "thu", "fri"}

var weekdayNames = [...]string{"شنبه", "یکشنبه", "دوشنبه", "سه‌شنبه", "چهارشنبه", "پنجشنبه", "جمعه"}

func weekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 1) % 7)
}

func (w Weekday) Valid() bool {
	return w >= Saturday && w <= Friday
}

// String returns the storage code, e.g. "sat".
func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return weekdayCodes[w]
}

func (w Weekday) PersianName() string {
	if !w.Valid() {
		return ""
	}
	return weekdayNames[w]
}

func ParseWeekday(code string) (Weekday, error) {
	for i, c := range weekdayCodes {
		if c == code {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday code %q", code)
}

func (w Weekday) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(w))
	}
	return []byte(weekdayCodes[w]), nil
}

func (w *Weekday) UnmarshalText(b []byte) error {
	v, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

func (w Weekday) Value() (driver.Value, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(w))
	}
	return weekdayCodes[w], nil
}

func (w *Weekday) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return w.UnmarshalText([]byte(v))
	case []byte:
		return w.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Weekday", src)
	}
}
