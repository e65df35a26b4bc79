package session

import (
	"fmt"

	"github.com/mitchellh/copystructure"
)

// Merge folds overlay into base and returns base. For every overlay key a
// mapping merges into an existing mapping key by key; any other value
// (null, scalar, sequence) replaces the base value outright. Keys only in
// base are kept. Overlay values are copied, so the result never shares
// state with overlay.
func Merge(base, overlay Layer) (Layer, error) {
	if base == nil {
		base = Layer{}
	}
	for key, ov := range overlay {
		kind, err := KindOf(ov)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", key, err)
		}
		switch kind {
		case KindMapping:
			src, _ := asLayer(ov)
			dst, ok := asLayer(base[key])
			if !ok {
				dst = Layer{}
			}
			merged, err := Merge(dst, src)
			if err != nil {
				return nil, fmt.Errorf("merge %s: %w", key, err)
			}
			base[key] = merged
		case KindSequence:
			c, err := copystructure.Copy(ov)
			if err != nil {
				return nil, fmt.Errorf("merge %s: %w", key, err)
			}
			base[key] = c
		case KindNull, KindScalar:
			base[key] = ov
		}
	}
	return base, nil
}
