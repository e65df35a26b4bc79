package session

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DefaultTimezone is the zone sessions are scheduled in unless configured
// otherwise.
const DefaultTimezone = "Australia/Sydney"

// Normalizer turns loosely formatted date strings into timestamps in a fixed
// local zone.
type Normalizer struct {
	loc              *time.Location
	preferMonthFirst bool
}

// NewNormalizer loads the named zone. Ambiguous numeric dates are read
// day-first unless preferMonthFirst is set.
func NewNormalizer(tz string, preferMonthFirst bool) (*Normalizer, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Normalizer{loc: loc, preferMonthFirst: preferMonthFirst}, nil
}

// Location returns the zone all normalized timestamps are expressed in.
func (n *Normalizer) Location() *time.Location { return n.loc }

// Normalize parses value. A value without a zone is read in the local zone,
// one with an explicit offset is converted into it.
func (n *Normalizer) Normalize(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrMalformedDate)
	}
	s, err := to24Hour(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedDate, value, err)
	}
	t, err := dateparse.ParseIn(s, n.loc, dateparse.PreferMonthFirst(n.preferMonthFirst))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedDate, value, err)
	}
	return t.In(n.loc), nil
}

// meridiem matches a 12-hour clock such as "9am", "9:30 pm" or "12:00:15a.m.".
var meridiem = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?(?::(\d{2}))?\s*([ap])\.?m\.?(?:\b|$)`)

// to24Hour rewrites a 12-hour clock as HH:MM[:SS]. dateparse drops the
// suffix in formats like "17 Feb 2021 9am" and returns midnight.
func to24Hour(s string) (string, error) {
	var bad error
	out := meridiem.ReplaceAllStringFunc(s, func(m string) string {
		g := meridiem.FindStringSubmatch(m)
		h, _ := strconv.Atoi(g[1])
		if h < 1 || h > 12 {
			bad = fmt.Errorf("hour %d out of range for a 12-hour clock", h)
			return m
		}
		pm := strings.EqualFold(g[4], "p")
		switch {
		case pm && h < 12:
			h += 12
		case !pm && h == 12:
			h = 0
		}
		mm := g[2]
		if mm == "" {
			mm = "00"
		}
		clock := fmt.Sprintf("%02d:%s", h, mm)
		if g[3] != "" {
			clock += ":" + g[3]
		}
		return clock
	})
	return out, bad
}

// normalizeValue accepts either a string or an already parsed time.
func (n *Normalizer) normalizeValue(v any) (time.Time, error) {
	switch t := v.(type) {
	case string:
		return n.Normalize(t)
	case time.Time:
		return t.In(n.loc), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedDate, v)
	}
}

// WeekdayCode returns the lowercase two-letter weekday ("mo", "tu", ...) of
// t's calendar day in the local zone.
func (n *Normalizer) WeekdayCode(t time.Time) string {
	return strings.ToLower(t.In(n.loc).Weekday().String()[:2])
}

// Format renders t as an ISO-8601 timestamp with offset.
func Format(t time.Time) string {
	return t.Format(time.RFC3339)
}
