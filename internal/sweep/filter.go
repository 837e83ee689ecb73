package sweep

import (
	"fmt"
	"slices"
	"strings"
)

// Filter narrows a set of records. Zero values match everything.
type Filter struct {
	Years       []string
	Entities    []string
	Tipos       []string
	MinQuantity *float64
	MaxQuantity *float64
	MinValue    *float64
	MaxValue    *float64
}

// Normalize lowercases the label filters so they compare with stored keys.
func (f Filter) Normalize() Filter {
	f.Entities = lowerAll(f.Entities)
	f.Tipos = lowerAll(f.Tipos)
	return f
}

// Validate rejects inverted ranges.
func (f Filter) Validate() error {
	if f.MinQuantity != nil && f.MaxQuantity != nil && *f.MinQuantity > *f.MaxQuantity {
		return fmt.Errorf("quantity range is inverted: %v > %v", *f.MinQuantity, *f.MaxQuantity)
	}
	if f.MinValue != nil && f.MaxValue != nil && *f.MinValue > *f.MaxValue {
		return fmt.Errorf("value range is inverted: %v > %v", *f.MinValue, *f.MaxValue)
	}
	return nil
}

// Match reports whether r passes a normalized filter. A bound on a measure
// excludes records where that measure is missing.
func (f Filter) Match(r *Record) bool {
	if len(f.Years) > 0 && !slices.Contains(f.Years, r.Year) {
		return false
	}
	if len(f.Entities) > 0 && !slices.Contains(f.Entities, strings.ToLower(r.Entity)) {
		return false
	}
	if len(f.Tipos) > 0 && (r.Tipo == nil || !slices.Contains(f.Tipos, strings.ToLower(*r.Tipo))) {
		return false
	}
	return inRange(r.Quantity, f.MinQuantity, f.MaxQuantity) && inRange(r.Value, f.MinValue, f.MaxValue)
}

func inRange(v, lo, hi *float64) bool {
	if lo == nil && hi == nil {
		return true
	}
	if v == nil {
		return false
	}
	return (lo == nil || *v >= *lo) && (hi == nil || *v <= *hi)
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
