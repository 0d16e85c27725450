package calendar

import (
	"sort"
	"time"
)

// Holiday is an observed market closure.
type Holiday struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

type rule struct {
	name      string
	since     int
	nominal   func(year int) time.Time
	observeWE bool // shift Saturday to Friday and Sunday to Monday
}

var federalRules = []rule{
	{name: "New Year's Day", nominal: fixed(time.January, 1), observeWE: true},
	{name: "Martin Luther King Jr. Day", since: 1986, nominal: nthWeekday(time.January, time.Monday, 3)},
	{name: "Presidents Day", nominal: nthWeekday(time.February, time.Monday, 3)},
	{name: "Memorial Day", nominal: lastWeekday(time.May, time.Monday)},
	{name: "Juneteenth", since: 2021, nominal: fixed(time.June, 19), observeWE: true},
	{name: "Independence Day", nominal: fixed(time.July, 4), observeWE: true},
	{name: "Labor Day", nominal: nthWeekday(time.September, time.Monday, 1)},
	{name: "Columbus Day", nominal: nthWeekday(time.October, time.Monday, 2)},
	{name: "Veterans Day", nominal: fixed(time.November, 11), observeWE: true},
	{name: "Thanksgiving", nominal: nthWeekday(time.November, time.Thursday, 4)},
	{name: "Christmas Day", nominal: fixed(time.December, 25), observeWE: true},
}

// FederalHolidays returns the observed US federal holidays whose nominal date falls in year.
// An observed date may land in the neighbouring year (New Year's Day on a Saturday).
func FederalHolidays(year int) []Holiday {
	out := make([]Holiday, 0, len(federalRules))
	for _, r := range federalRules {
		if r.since > 0 && year < r.since {
			continue
		}
		d := r.nominal(year)
		if r.observeWE {
			d = nearestWorkday(d)
		}
		out = append(out, Holiday{Name: r.name, Date: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func fixed(m time.Month, day int) func(int) time.Time {
	return func(y int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }
}

func nthWeekday(m time.Month, wd time.Weekday, n int) func(int) time.Time {
	return func(y int) time.Time {
		first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		shift := (int(wd) - int(first.Weekday()) + 7) % 7
		return first.AddDate(0, 0, shift+7*(n-1))
	}
}

func lastWeekday(m time.Month, wd time.Weekday) func(int) time.Time {
	return func(y int) time.Time {
		last := time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
		shift := (int(last.Weekday()) - int(wd) + 7) % 7
		return last.AddDate(0, 0, -shift)
	}
}

func nearestWorkday(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

// dayKey identifies a civil date independent of clock and location.
type dayKey struct {
	y int
	m time.Month
	d int
}

func keyOf(t time.Time) dayKey {
	y, m, d := t.Date()
	return dayKey{y, m, d}
}
