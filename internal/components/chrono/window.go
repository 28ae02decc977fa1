package chrono

import (
	"fmt"
	"time"
)

// YearMonth is a calendar month, Month is always within 1-12 for values produced by
// this package.
type YearMonth struct {
	Year  int
	Month time.Month
}

func NewYearMonth(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// ParseYearMonth parses the "YYYY-MM" form, the month must be within 1-12.
func ParseYearMonth(text string) (YearMonth, error) {
	var year, month int
	_, err := fmt.Sscanf(text, "%d-%d", &year, &month)
	if err != nil {
		return YearMonth{}, fmt.Errorf("parse year-month %q: %w", text, err)
	}
	if month < 1 || month > 12 {
		return YearMonth{}, fmt.Errorf("parse year-month %q: month %d out of range", text, month)
	}
	return YearMonth{Year: year, Month: time.Month(month)}, nil
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) MarshalText() ([]byte, error) {
	return []byte(ym.String()), nil
}

func (ym *YearMonth) UnmarshalText(text []byte) error {
	parsed, err := ParseYearMonth(string(text))
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}

func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// Next returns the following month, rolling December into January of the next year.
func (ym YearMonth) Next() YearMonth {
	if ym.Month >= time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

func (ym YearMonth) Previous() YearMonth {
	if ym.Month <= time.January {
		return YearMonth{Year: ym.Year - 1, Month: time.December}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month - 1}
}

// MonthWindow is an inclusive range of months. A window whose Start is after its End
// is empty, it is not an error.
type MonthWindow struct {
	Start YearMonth `json:"start" yaml:"start"`
	End   YearMonth `json:"end" yaml:"end"`
}

// SingleMonth is the window containing only `ym`.
func SingleMonth(ym YearMonth) MonthWindow {
	return MonthWindow{Start: ym, End: ym}
}

// Each calls fn for every month of the window in chronological order until fn returns
// false. It can be called any number of times.
func (w MonthWindow) Each(fn func(YearMonth) bool) {
	for current := w.Start; !w.End.Before(current); current = current.Next() {
		if !fn(current) {
			return
		}
	}
}

func (w MonthWindow) Months() []YearMonth {
	var months []YearMonth
	w.Each(func(ym YearMonth) bool {
		months = append(months, ym)
		return true
	})
	return months
}

func (w MonthWindow) Len() int {
	if w.End.Before(w.Start) {
		return 0
	}
	return (w.End.Year-w.Start.Year)*12 + int(w.End.Month) - int(w.Start.Month) + 1
}

func (w MonthWindow) String() string {
	return fmt.Sprintf("%s..%s", w.Start, w.End)
}
