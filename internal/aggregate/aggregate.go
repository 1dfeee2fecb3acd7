// Package aggregate computes the data behind each chart mode from the
// joined table. Every function here is pure.
package aggregate

import (
	"fmt"
	"sort"

	"analizador/internal/core"
)

type (
	// ChartData is the result of one mode; exactly one of the payload
	// fields is set, depending on Mode.
	ChartData struct {
		Mode        Mode         `json:"mode"`
		Label       string       `json:"label"`
		Title       string       `json:"title"`
		XLabel      string       `json:"x_label"`
		YLabel      string       `json:"y_label"`
		Proportions *Proportions `json:"proportions,omitempty"`
		Boxes       []Box        `json:"boxes,omitempty"`
		Monthly     []MonthValue `json:"monthly,omitempty"`
		Means       []GroupMean  `json:"means,omitempty"`
	}

	// Proportions is a pivot of row counts normalized per group.
	Proportions struct {
		GroupBy    string          `json:"group_by"`
		Categories []string        `json:"categories"`
		Rows       []ProportionRow `json:"rows"`
	}

	// ProportionRow holds counts and shares aligned with Categories.
	ProportionRow struct {
		Key    string    `json:"key"`
		Total  int       `json:"total"`
		Counts []int     `json:"counts"`
		Shares []float64 `json:"shares"`
	}

	// Box is the distribution summary of valor for one quality.
	Box struct {
		Quality      string    `json:"quality"`
		Count        int       `json:"count"`
		Min          float64   `json:"min"`
		Q1           float64   `json:"q1"`
		Median       float64   `json:"median"`
		Q3           float64   `json:"q3"`
		Max          float64   `json:"max"`
		LowerWhisker float64   `json:"lower_whisker"`
		UpperWhisker float64   `json:"upper_whisker"`
		Outliers     []float64 `json:"outliers"`
	}

	// MonthValue carries both series of the monthly chart.
	MonthValue struct {
		Month string  `json:"month"`
		Mean  float64 `json:"mean"`
		Sum   float64 `json:"sum"`
		Count int     `json:"count"`
	}

	// GroupMean is one (origin, quality) bar.
	GroupMean struct {
		Origin  string  `json:"origin"`
		Quality string  `json:"quality"`
		Mean    float64 `json:"mean"`
		Count   int     `json:"count"`
	}
)

// Aggregate computes the chart data for mode. A missing column yields a
// *core.MissingColumnError and no data.
func Aggregate(joined *core.Table, mode Mode) (*ChartData, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %d", core.ErrUnknownMode, int(mode))
	}
	if joined == nil {
		return nil, core.ErrNoData
	}
	for _, col := range mode.Required() {
		if !joined.HasColumn(col) {
			return nil, &core.MissingColumnError{Mode: mode.Label(), Column: col}
		}
	}

	out := &ChartData{Mode: mode, Label: mode.Label(), Title: mode.Title()}
	switch mode {
	case QualityByMonth:
		out.XLabel, out.YLabel = "Mes", "Proporción"
		out.Proportions = proportions(joined, core.ColMonth)
	case QualityByOrigin:
		out.XLabel, out.YLabel = "Origen", "Proporción"
		out.Proportions = proportions(joined, core.ColOrigin)
	case QualityByFamily:
		out.XLabel, out.YLabel = "Familia", "Proporción"
		out.Proportions = proportions(joined, core.ColFamily)
	case ValueByQuality:
		out.XLabel, out.YLabel = "Calidad", "Valor"
		out.Boxes = boxes(joined)
	case ValueByMonth:
		out.XLabel, out.YLabel = "Mes", "Valor Promedio"
		out.Monthly = monthly(joined)
	case MeanValueByOriginQuality:
		out.XLabel, out.YLabel = "Origen", "Valor Promedio"
		out.Means = means(joined)
	}
	return out, nil
}

// proportions counts rows per (group, CALIDAD) and divides each group by
// its total. Rows with a null group or quality are left out, and a group
// whose total is zero is omitted.
func proportions(t *core.Table, groupCol string) *Proportions {
	gi := t.ColumnIndex(groupCol)
	qi := t.ColumnIndex(core.ColQuality)

	groups := newKeySet()
	qualities := newKeySet()
	counts := map[string]map[string]int{}
	for _, row := range t.Rows {
		g, q := row[gi], row[qi]
		if g.IsNull() || q.IsNull() {
			continue
		}
		groups.add(g)
		qualities.add(q)
		if counts[g.Text] == nil {
			counts[g.Text] = map[string]int{}
		}
		counts[g.Text][q.Text]++
	}

	cats := qualities.sorted()
	p := &Proportions{GroupBy: groupCol, Categories: cats}
	for _, key := range groups.sorted() {
		row := ProportionRow{Key: key, Counts: make([]int, len(cats)), Shares: make([]float64, len(cats))}
		for i, c := range cats {
			row.Counts[i] = counts[key][c]
			row.Total += row.Counts[i]
		}
		if row.Total == 0 {
			continue
		}
		for i, n := range row.Counts {
			row.Shares[i] = float64(n) / float64(row.Total)
		}
		p.Rows = append(p.Rows, row)
	}
	return p
}

// numericGroups collects numeric valor cells per key; keyFn returns false to skip a row.
func numericGroups(t *core.Table, keyFn func(row []core.Value) (core.Value, bool)) (*keySet, map[string][]float64) {
	vi := t.ColumnIndex(core.ColValue)
	keys := newKeySet()
	values := map[string][]float64{}
	for _, row := range t.Rows {
		k, ok := keyFn(row)
		if !ok || k.IsNull() {
			continue
		}
		v, ok := row[vi].Float()
		if !ok {
			continue
		}
		keys.add(k)
		values[k.Text] = append(values[k.Text], v)
	}
	return keys, values
}

func boxes(t *core.Table) []Box {
	qi := t.ColumnIndex(core.ColQuality)
	keys, values := numericGroups(t, func(row []core.Value) (core.Value, bool) { return row[qi], true })
	var out []Box
	for _, k := range keys.sorted() {
		b := summarize(values[k])
		b.Quality = k
		out = append(out, b)
	}
	return out
}

func monthly(t *core.Table) []MonthValue {
	mi := t.ColumnIndex(core.ColMonth)
	keys, values := numericGroups(t, func(row []core.Value) (core.Value, bool) { return row[mi], true })
	var out []MonthValue
	for _, k := range keys.sorted() {
		vs := values[k]
		sum := 0.0
		for _, v := range vs {
			sum += v
		}
		out = append(out, MonthValue{Month: k, Sum: sum, Mean: sum / float64(len(vs)), Count: len(vs)})
	}
	return out
}

func means(t *core.Table) []GroupMean {
	oi := t.ColumnIndex(core.ColOrigin)
	qi := t.ColumnIndex(core.ColQuality)

	type pair struct{ origin, quality core.Value }
	var pairs []pair
	seen := map[[2]string]bool{}
	sums := map[[2]string]float64{}
	counts := map[[2]string]int{}
	vi := t.ColumnIndex(core.ColValue)
	for _, row := range t.Rows {
		o, q := row[oi], row[qi]
		if o.IsNull() || q.IsNull() {
			continue
		}
		v, ok := row[vi].Float()
		if !ok {
			continue
		}
		k := [2]string{o.Text, q.Text}
		if !seen[k] {
			seen[k] = true
			pairs = append(pairs, pair{o, q})
		}
		sums[k] += v
		counts[k]++
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if c := compareValues(pairs[i].origin, pairs[j].origin); c != 0 {
			return c < 0
		}
		return compareValues(pairs[i].quality, pairs[j].quality) < 0
	})
	out := make([]GroupMean, 0, len(pairs))
	for _, p := range pairs {
		k := [2]string{p.origin.Text, p.quality.Text}
		out = append(out, GroupMean{Origin: k[0], Quality: k[1], Mean: sums[k] / float64(counts[k]), Count: counts[k]})
	}
	return out
}
