package aggregate

import (
	"math"
	"sort"
)

// summarize builds a box summary: quartiles interpolate linearly between
// order statistics, whiskers reach the most extreme points within 1.5 IQR
// of the box and everything beyond is an outlier. vs must not be empty.
func summarize(vs []float64) Box {
	s := append([]float64(nil), vs...)
	sort.Float64s(s)

	b := Box{
		Count:  len(s),
		Min:    s[0],
		Max:    s[len(s)-1],
		Q1:     quantile(s, 0.25),
		Median: quantile(s, 0.5),
		Q3:     quantile(s, 0.75),
	}
	iqr := b.Q3 - b.Q1
	lo, hi := b.Q1-1.5*iqr, b.Q3+1.5*iqr
	b.LowerWhisker, b.UpperWhisker = b.Max, b.Min
	b.Outliers = []float64{}
	for _, v := range s {
		if v < lo || v > hi {
			b.Outliers = append(b.Outliers, v)
			continue
		}
		b.LowerWhisker = math.Min(b.LowerWhisker, v)
		b.UpperWhisker = math.Max(b.UpperWhisker, v)
	}
	return b
}

// quantile of sorted data, linear interpolation.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
