package analysis

import (
	"math"
	"sort"

	"github.com/GriffinCanCode/vitibrasil/internal/sweep"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Measure selects which record measure is summarized.
type Measure string

const (
	MeasureQuantity Measure = "quantity"
	MeasureValue    Measure = "value"
)

// YearSummary describes the distribution of one measure in one year.
// Records with the measure missing are counted in Missing only.
type YearSummary struct {
	Year    string  `json:"ano"`
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Total   float64 `json:"total"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	StdDev  float64 `json:"stddev"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Summarize groups records by year and describes measure per year, ordered
// by year.
func Summarize(records []sweep.Record, measure Measure) []YearSummary {
	values := map[string][]float64{}
	missing := map[string]int{}
	for i := range records {
		r := &records[i]
		v := r.Quantity
		if measure == MeasureValue {
			v = r.Value
		}
		if v == nil {
			missing[r.Year]++
			if _, ok := values[r.Year]; !ok {
				values[r.Year] = nil
			}
			continue
		}
		values[r.Year] = append(values[r.Year], *v)
	}

	years := make([]string, 0, len(values))
	for y := range values {
		years = append(years, y)
	}
	sort.Strings(years)

	out := make([]YearSummary, 0, len(years))
	for _, y := range years {
		out = append(out, describe(y, values[y], missing[y]))
	}
	return out
}

func describe(year string, xs []float64, missing int) YearSummary {
	s := YearSummary{Year: year, Count: len(xs), Missing: missing}
	if len(xs) == 0 {
		return s
	}

	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	s.Total = floats.Sum(sorted)
	s.Min = floats.Min(sorted)
	s.Max = floats.Max(sorted)
	s.Mean = stat.Mean(sorted, nil)
	s.Median = median(sorted)
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	if math.IsNaN(s.StdDev) {
		s.StdDev = 0
	}
	return s
}

// median of sorted values, averaging the two middle values for even counts.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
