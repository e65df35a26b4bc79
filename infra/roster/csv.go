// Package roster loads the two configuration layers fed to the resolver:
// the course JSON document and the class rows of a timetable export.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/kilianp07/collabsched/core/session"
)

// RowError reports a problem with one line of the class file.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *RowError) Unwrap() error { return e.Err }

var aliases = map[string]string{
	"start":  session.FieldStartTime,
	"end":    session.FieldEndTime,
	"recurr": session.FieldNumberOfOccurrences,
}

// typed lists template fields whose CSV text is converted before merging,
// so "false" in a cell does not override a boolean default with a string.
var typed = func() map[string]any {
	out := map[string]any{}
	for k, v := range session.DefaultTemplate(time.Time{}, session.DefaultTimezone) {
		switch v.(type) {
		case bool, int:
			out[k] = v
		}
	}
	return out
}()

// ReadClasses parses class rows. The header must name the session and its
// start and end columns; empty cells are left out of the row layer.
func ReadClasses(r io.Reader) ([]session.Layer, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &RowError{Line: 1, Err: fmt.Errorf("%w: missing header", session.ErrMalformedRow)}
	}
	if err != nil {
		return nil, wrapCSV(err)
	}
	keys, err := columns(header)
	if err != nil {
		return nil, &RowError{Line: 1, Err: err}
	}

	var rows []session.Layer
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapCSV(err)
		}
		line, _ := cr.FieldPos(0)
		row, err := toLayer(keys, rec)
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func columns(header []string) ([]string, error) {
	keys := make([]string, len(header))
	seen := map[string]bool{}
	for i, h := range header {
		k := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if a, ok := aliases[k]; ok {
			k = a
		}
		if k == "" {
			return nil, fmt.Errorf("%w: empty column name at position %d", session.ErrMalformedRow, i+1)
		}
		if seen[k] {
			return nil, fmt.Errorf("%w: duplicate column %q", session.ErrMalformedRow, k)
		}
		seen[k] = true
		keys[i] = k
	}
	var missing []string
	for _, k := range []string{session.FieldName, session.FieldStartTime, session.FieldEndTime} {
		if !seen[k] {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns: %s", session.ErrMalformedRow, strings.Join(missing, ", "))
	}
	return keys, nil
}

func toLayer(keys, rec []string) (session.Layer, error) {
	row := session.Layer{}
	for i, cell := range rec {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		v, err := coerce(keys[i], cell)
		if err != nil {
			return nil, err
		}
		row[keys[i]] = v
	}
	_, hasEnd := row[session.FieldRecurrenceEndType]
	if _, ok := row[session.FieldNumberOfOccurrences]; ok && !hasEnd {
		row[session.FieldRecurrenceEndType] = session.EndAfterOccurrences
	}
	return row, nil
}

func coerce(key, cell string) (any, error) {
	switch typed[key].(type) {
	case bool:
		b, err := cast.ToBoolE(cell)
		if err != nil {
			return nil, &session.FieldError{Field: key, Value: cell, Err: session.ErrInvalidValue}
		}
		return b, nil
	case int:
		n, err := session.ToInt(cell)
		if err != nil {
			return nil, &session.FieldError{Field: key, Value: cell, Err: session.ErrInvalidValue}
		}
		return n, nil
	}
	return cell, nil
}

func wrapCSV(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &RowError{Line: pe.Line, Err: fmt.Errorf("%w: %v", session.ErrMalformedRow, pe.Err)}
	}
	return fmt.Errorf("read classes: %w", err)
}

// Excluded reports whether the row carries a truthy exclude marker. Any
// non-boolean text such as "x" or "yes" counts as truthy.
func Excluded(row session.Layer) bool {
	v, ok := row[session.FieldExclude]
	if !ok || v == nil {
		return false
	}
	if b, err := cast.ToBoolE(v); err == nil {
		return b
	}
	s, isString := v.(string)
	return !isString || strings.TrimSpace(s) != ""
}
