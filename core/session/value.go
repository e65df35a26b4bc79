package session

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/copystructure"
	"github.com/spf13/cast"
)

// Layer is one partial session configuration keyed by API field name.
type Layer map[string]any

// Kind classifies a layer value. Every value handled by the resolver is
// exactly one of these.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindOf returns the kind of v. Values of any other Go type are rejected
// with ErrUnsupportedValue.
func KindOf(v any) (Kind, error) {
	switch v.(type) {
	case nil:
		return KindNull, nil
	case string, bool, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return KindScalar, nil
	case []string, []any:
		return KindSequence, nil
	case Layer, map[string]any:
		return KindMapping, nil
	default:
		return KindNull, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// asLayer returns the mapping stored in v, if any.
func asLayer(v any) (Layer, bool) {
	switch m := v.(type) {
	case Layer:
		return m, true
	case map[string]any:
		return Layer(m), true
	default:
		return nil, false
	}
}

// Clone returns a deep copy of l. Nested mappings are normalized to Layer.
func (l Layer) Clone() (Layer, error) {
	if l == nil {
		return Layer{}, nil
	}
	c, err := copystructure.Copy(l)
	if err != nil {
		return nil, fmt.Errorf("copy layer: %w", err)
	}
	out := c.(Layer)
	normalize(out)
	return out, nil
}

func normalize(l Layer) {
	for k, v := range l {
		if m, ok := asLayer(v); ok {
			normalize(m)
			l[k] = m
		}
	}
}

// Keys returns the layer's keys in lexical order.
func (l Layer) Keys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is present, even when its value is null.
func (l Layer) Has(key string) bool {
	_, ok := l[key]
	return ok
}

// ToInt reads v as a whole number. Strings are parsed as base 10, so a
// spreadsheet cell such as "010" is ten. Floats with a fractional part are
// rejected.
func ToInt(v any) (int, error) {
	switch n := v.(type) {
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not a whole number", n)
		}
	case float32:
		if float64(n) != math.Trunc(float64(n)) {
			return 0, fmt.Errorf("%v is not a whole number", n)
		}
	case bool:
		return 0, fmt.Errorf("%v is not a number", n)
	}
	return cast.ToIntE(v)
}
