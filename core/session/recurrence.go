package session

import (
	"fmt"
	"strings"
	"time"
)

// Field names of the session API.
const (
	FieldName                = "name"
	FieldStartTime           = "startTime"
	FieldEndTime             = "endTime"
	FieldCreated             = "created"
	FieldModified            = "modified"
	FieldCreatedTimezone     = "createdTimezone"
	FieldOccurrenceType      = "occurrenceType"
	FieldRecurrenceRule      = "recurrenceRule"
	FieldRecurrenceType      = "recurrenceType"
	FieldInterval            = "interval"
	FieldRecurrenceEndType   = "recurrenceEndType"
	FieldDaysOfTheWeek       = "daysOfTheWeek"
	FieldNumberOfOccurrences = "numberOfOccurrences"
	FieldEndDate             = "endDate"
	FieldExclude             = "exclude"
)

// Occurrence types.
const (
	OccurrenceSingle   = "S"
	OccurrencePeriodic = "P"
)

// Recurrence end types.
const (
	EndAfterOccurrences = "after_occurrences_count"
	EndOnDate           = "on_date"
)

var (
	recurrenceTypes    = []string{"daily", "weekly", "monthly"}
	recurrenceEndTypes = []string{EndAfterOccurrences, EndOnDate}
)

// DeriveRecurrence returns a copy of l with the flat recurrence shorthand
// (recurrenceType, interval, recurrenceEndType, daysOfTheWeek,
// numberOfOccurrences, endDate) moved into a nested recurrenceRule, times
// normalized and occurrenceType set. l itself is left untouched.
func DeriveRecurrence(n *Normalizer, l Layer) (Layer, error) {
	if err := validateEnums(l); err != nil {
		return nil, err
	}
	out, err := l.Clone()
	if err != nil {
		return nil, err
	}

	var start *time.Time
	for _, key := range []string{FieldStartTime, FieldEndTime} {
		v, ok := out[key]
		if !ok || v == nil {
			continue
		}
		t, err := n.normalizeValue(v)
		if err != nil {
			return nil, &FieldError{Field: key, Value: v, Err: err}
		}
		out[key] = Format(t)
		if key == FieldStartTime {
			start = &t
		}
	}

	rule, ok := asLayer(out[FieldRecurrenceRule])
	if !ok {
		rule = Layer{}
	}
	// Decided on the layer as supplied, before any key is moved.
	if periodic(out, rule) {
		out[FieldOccurrenceType] = OccurrencePeriodic
	} else {
		out[FieldOccurrenceType] = OccurrenceSingle
	}
	out[FieldRecurrenceRule] = rule

	move(out, rule, FieldRecurrenceType)
	move(out, rule, FieldRecurrenceEndType)

	if v, ok := out[FieldInterval]; ok {
		i, err := positiveInt(FieldInterval, v)
		if err != nil {
			return nil, err
		}
		rule[FieldInterval] = i
		delete(out, FieldInterval)
	}

	if v, ok := out[FieldDaysOfTheWeek]; ok {
		days, err := splitDays(v)
		if err != nil {
			return nil, err
		}
		rule[FieldDaysOfTheWeek] = days
		delete(out, FieldDaysOfTheWeek)
	} else if start != nil {
		rule[FieldDaysOfTheWeek] = []string{n.WeekdayCode(*start)}
	}

	if v, ok := out[FieldNumberOfOccurrences]; ok {
		i, err := positiveInt(FieldNumberOfOccurrences, v)
		if err != nil {
			return nil, err
		}
		rule[FieldNumberOfOccurrences] = i
		delete(out, FieldNumberOfOccurrences)
	}

	if v, ok := out[FieldEndDate]; ok {
		t, err := n.normalizeValue(v)
		if err != nil {
			return nil, &FieldError{Field: FieldEndDate, Value: v, Err: err}
		}
		rule[FieldEndDate] = Format(t)
		delete(out, FieldEndDate)
	}
	return out, nil
}

func validateEnums(l Layer) error {
	rule, _ := asLayer(l[FieldRecurrenceRule])
	for _, c := range []struct {
		field   string
		allowed []string
	}{
		{FieldRecurrenceType, recurrenceTypes},
		{FieldRecurrenceEndType, recurrenceEndTypes},
	} {
		for _, src := range []Layer{l, rule} {
			v, ok := src[c.field]
			if !ok || v == nil {
				continue
			}
			s, isStr := v.(string)
			if !isStr || !contains(c.allowed, s) {
				return &FieldError{Field: c.field, Value: v, Err: ErrInvalidEnum}
			}
		}
	}
	return nil
}

func periodic(l, rule Layer) bool {
	return l[FieldRecurrenceEndType] != nil || rule[FieldRecurrenceEndType] != nil
}

func move(from, to Layer, key string) {
	if v, ok := from[key]; ok {
		to[key] = v
		delete(from, key)
	}
}

func positiveInt(field string, v any) (int, error) {
	i, err := ToInt(v)
	if err != nil {
		return 0, &FieldError{Field: field, Value: v, Err: fmt.Errorf("%w: %v", ErrInvalidValue, err)}
	}
	if i <= 0 {
		return 0, &FieldError{Field: field, Value: v, Err: fmt.Errorf("%w: must be positive", ErrInvalidValue)}
	}
	return i, nil
}

func splitDays(v any) ([]string, error) {
	var parts []string
	switch d := v.(type) {
	case string:
		parts = strings.Split(strings.TrimSpace(d), ",")
	case []string:
		parts = d
	case []any:
		for _, p := range d {
			s, ok := p.(string)
			if !ok {
				return nil, &FieldError{Field: FieldDaysOfTheWeek, Value: v, Err: ErrInvalidValue}
			}
			parts = append(parts, s)
		}
	default:
		return nil, &FieldError{Field: FieldDaysOfTheWeek, Value: v, Err: ErrInvalidValue}
	}
	days := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			days = append(days, p)
		}
	}
	return days, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
