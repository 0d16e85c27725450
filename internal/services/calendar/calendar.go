package calendar

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"StockPred/internal/domain/models"
)

// Option configures Calendar.
type Option func(*Calendar)

// WithExtraClosures adds market closures on top of the federal set.
func WithExtraClosures(dates ...time.Time) Option {
	return func(c *Calendar) {
		for _, d := range dates {
			c.extra[keyOf(d)] = struct{}{}
		}
	}
}

// WithProfiles sets the horizon profiles used by TargetDateFor.
func WithProfiles(p *models.Profiles) Option {
	return func(c *Calendar) { c.profiles = p }
}

// WithClock overrides the time source used when TargetDateFor gets a zero start.
func WithClock(now func() time.Time) Option {
	return func(c *Calendar) { c.now = now }
}

// Calendar answers trading-day questions for US equity sessions.
// It is safe for concurrent use.
type Calendar struct {
	profiles *models.Profiles
	now      func() time.Time
	extra    map[dayKey]struct{}

	mu    sync.Mutex
	years map[int][]time.Time // closures observed in a year, sorted
}

// New creates a calendar backed by the US federal holiday set.
func New(opts ...Option) *Calendar {
	c := &Calendar{
		now:   time.Now,
		extra: make(map[dayKey]struct{}),
		years: make(map[int][]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.profiles == nil {
		c.profiles, _ = models.NewProfiles(models.DefaultProfiles())
	}
	return c
}

// AddTradingDays advances start by n trading days, keeping its clock and location.
// n == 0 returns start unchanged. A non-trading start counts its roll to the next
// session as the first step, so Saturday + 1 is Monday.
func (c *Calendar) AddTradingDays(start time.Time, n int) time.Time {
	if n == 0 {
		return start
	}
	cur := civil(start)
	if n > 0 {
		for rem := n; rem > 0; {
			next := addWeekdays(cur, rem)
			rem = c.closuresIn(cur.AddDate(0, 0, 1), next)
			cur = next
		}
	} else {
		for rem := -n; rem > 0; {
			prev := addWeekdays(cur, -rem)
			rem = c.closuresIn(prev, cur.AddDate(0, 0, -1))
			cur = prev
		}
	}
	return restore(cur, start)
}

// TargetDateFor returns the trading day horizon_days after start for class.
// A zero start means now.
func (c *Calendar) TargetDateFor(class models.PredictionClass, start time.Time) (time.Time, error) {
	hp, err := c.profiles.Get(class)
	if err != nil {
		return time.Time{}, err
	}
	if start.IsZero() {
		start = c.now()
	}
	return c.AddTradingDays(start, hp.HorizonDays), nil
}

// IsTradingDay reports whether d is a weekday that is not a closure.
func (c *Calendar) IsTradingDay(d time.Time) bool {
	if isWeekend(d.Weekday()) {
		return false
	}
	return !c.isClosure(civil(d))
}

// NextTradingDay returns the first trading day strictly after d.
func (c *Calendar) NextTradingDay(d time.Time) time.Time {
	return c.AddTradingDays(d, 1)
}

// CountTradingDays counts trading days in [start, end], both ends inclusive.
func (c *Calendar) CountTradingDays(start, end time.Time) int {
	s, e := civil(start), civil(end)
	if e.Before(s) {
		return 0
	}
	return weekdaysIn(s, e) - c.closuresIn(s, e)
}

// Holidays lists the closures observed in year.
func (c *Calendar) Holidays(year int) []Holiday {
	names := make(map[dayKey]string)
	for y := year - 1; y <= year+1; y++ {
		for _, h := range FederalHolidays(y) {
			if h.Date.Year() == year {
				names[keyOf(h.Date)] = h.Name
			}
		}
	}
	for k := range c.extra {
		if k.y == year {
			if _, ok := names[k]; !ok {
				names[k] = "Market closure"
			}
		}
	}
	out := make([]Holiday, 0, len(names))
	for k, n := range names {
		out = append(out, Holiday{Name: n, Date: time.Date(k.y, k.m, k.d, 0, 0, 0, 0, time.UTC)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// closuresIn counts weekday closures in [from, to] (civil dates).
func (c *Calendar) closuresIn(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	n := 0
	for y := from.Year(); y <= to.Year(); y++ {
		for _, d := range c.closures(y) {
			if d.Before(from) || d.After(to) || isWeekend(d.Weekday()) {
				continue
			}
			n++
		}
	}
	return n
}

func (c *Calendar) isClosure(d time.Time) bool {
	k := keyOf(d)
	for _, h := range c.closures(d.Year()) {
		if keyOf(h) == k {
			return true
		}
	}
	return false
}

func (c *Calendar) closures(year int) []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ds, ok := c.years[year]; ok {
		return ds
	}
	hs := c.Holidays(year)
	ds := make([]time.Time, len(hs))
	for i, h := range hs {
		ds[i] = h.Date
	}
	c.years[year] = ds
	return ds
}

// addWeekdays moves n weekdays from d (n may be negative) in closed form.
func addWeekdays(d time.Time, n int) time.Time {
	if n == 0 {
		return d
	}
	wd := mondayIndex(d.Weekday())
	if n > 0 {
		if wd > 4 {
			d = d.AddDate(0, 0, 4-wd)
			wd = 4
		}
		days := (n/5)*7 + n%5
		if wd+n%5 > 4 {
			days += 2
		}
		return d.AddDate(0, 0, days)
	}
	m := -n
	if wd > 4 {
		d = d.AddDate(0, 0, 7-wd)
		wd = 0
	}
	days := (m/5)*7 + m%5
	if wd-m%5 < 0 {
		days += 2
	}
	return d.AddDate(0, 0, -days)
}

// weekdaysIn counts Monday..Friday dates in [s, e], both UTC-midnight civil
// dates. Unix seconds avoid the ~292 year limit of time.Duration.
func weekdaysIn(s, e time.Time) int {
	total := int((e.Unix()-s.Unix())/secondsPerDay) + 1
	n := (total / 7) * 5
	wd := mondayIndex(s.Weekday())
	for i := 0; i < total%7; i++ {
		if (wd+i)%7 < 5 {
			n++
		}
	}
	return n
}

const secondsPerDay = 24 * 60 * 60

func mondayIndex(wd time.Weekday) int { return (int(wd) + 6) % 7 }

func isWeekend(wd time.Weekday) bool { return wd == time.Saturday || wd == time.Sunday }

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func restore(day, like time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, like.Hour(), like.Minute(), like.Second(), like.Nanosecond(), like.Location())
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
