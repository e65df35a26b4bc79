package session

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Resolved is a fully merged session configuration with no null values left.
type Resolved Layer

// Name returns the session name.
func (r Resolved) Name() string {
	s, _ := r[FieldName].(string)
	return s
}

// Get returns the value at a dotted path such as "recurrenceRule.interval".
func (r Resolved) Get(path string) any {
	var cur any = Layer(r)
	for _, key := range strings.Split(path, ".") {
		m, ok := asLayer(cur)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

// bookkeeping keys are understood by authoring tools but not by the API.
var bookkeeping = []string{FieldExclude}

// Resolver folds course and class layers onto the default template.
type Resolver struct {
	norm *Normalizer
	now  func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the clock used for the created/modified stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver returns a Resolver that normalizes dates with n.
func NewResolver(n *Normalizer, opts ...Option) *Resolver {
	r := &Resolver{norm: n, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Normalizer returns the date normalizer used by r.
func (r *Resolver) Normalizer() *Normalizer { return r.norm }

// Resolve derives both layers, merges default, course and class in that
// order (later wins) and checks that every field has a value. Neither input
// layer is modified.
func (r *Resolver) Resolve(course, class Layer) (Resolved, error) {
	derivedCourse, err := DeriveRecurrence(r.norm, course)
	if err != nil {
		return nil, fmt.Errorf("course layer: %w", err)
	}
	derivedClass, err := DeriveRecurrence(r.norm, class)
	if err != nil {
		return nil, fmt.Errorf("class layer: %w", err)
	}

	merged := DefaultTemplate(r.now().In(r.norm.Location()), r.norm.Location().String())
	if merged, err = Merge(merged, derivedCourse); err != nil {
		return nil, err
	}
	if merged, err = Merge(merged, derivedClass); err != nil {
		return nil, err
	}

	for _, key := range bookkeeping {
		delete(merged, key)
	}
	pruneRule(merged)

	if missing := nullFields(merged, ""); len(missing) > 0 {
		sort.Strings(missing)
		return nil, &IncompleteConfigError{Fields: missing}
	}
	return Resolved(merged), nil
}

// pruneRule drops recurrence end fields that do not apply to the effective
// end type, so they are neither sent nor reported as missing.
func pruneRule(l Layer) {
	rule, ok := asLayer(l[FieldRecurrenceRule])
	if !ok {
		return
	}
	dropNull := func(key string) {
		if v, ok := rule[key]; ok && v == nil {
			delete(rule, key)
		}
	}
	switch rule[FieldRecurrenceEndType] {
	case EndAfterOccurrences:
		dropNull(FieldEndDate)
	case EndOnDate:
		dropNull(FieldNumberOfOccurrences)
	case nil:
		if l[FieldOccurrenceType] == OccurrenceSingle {
			dropNull(FieldRecurrenceEndType)
			dropNull(FieldNumberOfOccurrences)
			dropNull(FieldEndDate)
		}
	}
}

func nullFields(l Layer, prefix string) []string {
	var out []string
	for key, v := range l {
		path := prefix + key
		if v == nil {
			out = append(out, path)
			continue
		}
		if m, ok := asLayer(v); ok {
			out = append(out, nullFields(m, path+".")...)
		}
	}
	return out
}
