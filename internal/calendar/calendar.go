// Package calendar supplies the holiday set and the NETWORKDAYS.INTL style
// business-day count used by the ageing reducer. Federal holidays and the
// working-day walk come from github.com/rickar/cal/v2.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// HolidayLayout is the date shape used in holiday listings and formulas.
const HolidayLayout = "01/02/2006"

// ExtraHolidayName labels the configured company days off.
const ExtraHolidayName = "Company PTO"

// Weekend is the set of non-working weekdays, one bit per time.Weekday.
type Weekend uint8

// NewWeekend builds a Weekend from the given days.
func NewWeekend(days ...time.Weekday) Weekend {
	var w Weekend
	for _, d := range days {
		w |= 1 << uint(d)
	}
	return w
}

// SaturdaySunday is NETWORKDAYS.INTL weekend code 1.
var SaturdaySunday = NewWeekend(time.Saturday, time.Sunday)

// Contains reports whether d is a weekend day.
func (w Weekend) Contains(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

// Holiday is a named non-working date.
type Holiday struct {
	Date time.Time `json:"date" yaml:"date"`
	Name string    `json:"name" yaml:"name"`
}

// Networkdays counts the days from start to end, both included, that are
// neither weekend days nor holidays. The count is negative when end is
// before start.
func Networkdays(start, end time.Time, weekend Weekend, holidays []Holiday) int {
	return New(weekend, holidays).BusinessDays(start, end)
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// fixedDate is a cal.HolidayFn for a single concrete date; other years have
// no occurrence.
func fixedDate(d time.Time) cal.HolidayFn {
	return func(_ *cal.Holiday, year int) time.Time {
		if year != d.Year() {
			return time.Time{}
		}
		return d
	}
}

// Calendar is a business calendar with a fixed weekend and holiday list.
type Calendar struct {
	business *cal.BusinessCalendar
	holidays []Holiday
}

// New creates a Calendar. Duplicate holiday dates are kept once.
func New(weekend Weekend, holidays []Holiday) *Calendar {
	bc := cal.NewBusinessCalendar()
	for d := time.Sunday; d <= time.Saturday; d++ {
		bc.SetWorkday(d, !weekend.Contains(d))
	}

	c := &Calendar{business: bc}
	seen := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		k := dateKey(h.Date)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		d := midnight(h.Date)
		c.holidays = append(c.holidays, Holiday{Date: d, Name: h.Name})
		bc.AddHoliday(&cal.Holiday{
			Name:      h.Name,
			StartYear: d.Year(),
			EndYear:   d.Year(),
			Func:      fixedDate(d),
		})
	}
	sort.SliceStable(c.holidays, func(i, j int) bool {
		return c.holidays[i].Date.Before(c.holidays[j].Date)
	})
	return c
}

// BusinessDays implements core.BusinessDayCounter.
func (c *Calendar) BusinessDays(start, end time.Time) int {
	return c.business.WorkdaysInRange(midnight(start), midnight(end))
}

// Holidays returns the holidays in date order.
func (c *Calendar) Holidays() []Holiday {
	return append([]Holiday{}, c.holidays...)
}

// FormulaArray renders the holidays as a spreadsheet array literal, e.g.
// {"01/01/2025","01/20/2025"}.
func (c *Calendar) FormulaArray() string {
	quoted := make([]string, len(c.holidays))
	for i, h := range c.holidays {
		quoted[i] = `"` + h.Date.Format(HolidayLayout) + `"`
	}
	return "{" + strings.Join(quoted, ",") + "}"
}

// USHolidays returns the observed US federal holidays of year.
func USHolidays(year int) []Holiday {
	var out []Holiday
	for _, h := range us.Holidays {
		_, observed := h.Calc(year)
		if observed.IsZero() {
			continue
		}
		out = append(out, Holiday{Date: midnight(observed), Name: h.Name})
	}
	return out
}

// ExtraHolidays expands MM/DD entries into dates of year.
func ExtraHolidays(year int, monthDays []string) ([]Holiday, error) {
	out := make([]Holiday, 0, len(monthDays))
	for _, md := range monthDays {
		d, err := time.Parse(HolidayLayout, fmt.Sprintf("%s/%04d", md, year))
		if err != nil {
			return nil, fmt.Errorf("parsing extra holiday %q: %w", md, err)
		}
		out = append(out, Holiday{Date: d, Name: ExtraHolidayName})
	}
	return out, nil
}

// Build creates the report calendar: a Saturday+Sunday weekend, the US
// federal holidays and the extra dates of currentYear and the yearsBack
// years before it.
func Build(currentYear, yearsBack int, extraDates []string) (*Calendar, error) {
	var holidays []Holiday
	for y := currentYear - yearsBack; y <= currentYear; y++ {
		holidays = append(holidays, USHolidays(y)...)
		extra, err := ExtraHolidays(y, extraDates)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, extra...)
	}
	return New(SaturdaySunday, holidays), nil
}
