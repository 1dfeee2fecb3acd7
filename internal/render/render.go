// Package render draws chart data as PNG images with go-chart.
package render

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"analizador/internal/aggregate"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoSeries is returned when the chart has nothing to draw.
var ErrNoSeries = errors.New("no data to plot")

const (
	DefaultWidth  = 1024
	DefaultHeight = 512
)

var padding = chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}}

// PNG renders cd. Zero width or height fall back to the defaults.
func PNG(w io.Writer, cd *aggregate.ChartData, width, height int) error {
	if cd == nil {
		return ErrNoSeries
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	switch {
	case cd.Proportions != nil:
		return proportions(w, cd, width, height)
	case cd.Mode == aggregate.ValueByQuality:
		return boxes(w, cd, width, height)
	case cd.Mode == aggregate.ValueByMonth:
		return monthly(w, cd, width, height)
	case cd.Mode == aggregate.MeanValueByOriginQuality:
		return means(w, cd, width, height)
	}
	return fmt.Errorf("render %s: %w", cd.Mode, ErrNoSeries)
}

func color(i int) drawing.Color { return chart.GetDefaultColor(i) }

// proportions draws one stacked bar per group, one segment per quality.
func proportions(w io.Writer, cd *aggregate.ChartData, width, height int) error {
	p := cd.Proportions
	if len(p.Rows) == 0 {
		return ErrNoSeries
	}
	bars := make([]chart.StackedBar, 0, len(p.Rows))
	for _, row := range p.Rows {
		bar := chart.StackedBar{Name: row.Key}
		for i, share := range row.Shares {
			if share == 0 {
				continue
			}
			bar.Values = append(bar.Values, chart.Value{
				Label: p.Categories[i],
				Value: share,
				Style: chart.Style{FillColor: color(i), StrokeColor: color(i)},
			})
		}
		bars = append(bars, bar)
	}
	sbc := chart.StackedBarChart{
		Title:      cd.Title,
		Width:      width,
		Height:     height,
		Background: padding,
		Bars:       bars,
	}
	return sbc.Render(chart.PNG, w)
}

// boxes draws a box and whiskers per quality; outliers are dots.
func boxes(w io.Writer, cd *aggregate.ChartData, width, height int) error {
	if len(cd.Boxes) == 0 {
		return ErrNoSeries
	}
	var series []chart.Series
	ticks := make([]chart.Tick, 0, len(cd.Boxes))
	for i, b := range cd.Boxes {
		x := float64(i)
		c := color(i)
		line := chart.Style{StrokeColor: c, StrokeWidth: 2}
		series = append(series,
			chart.ContinuousSeries{
				Name:    b.Quality,
				Style:   chart.Style{StrokeColor: c, StrokeWidth: 2, FillColor: c.WithAlpha(64)},
				XValues: []float64{x - 0.3, x + 0.3, x + 0.3, x - 0.3, x - 0.3},
				YValues: []float64{b.Q1, b.Q1, b.Q3, b.Q3, b.Q1},
			},
			chart.ContinuousSeries{Style: line, XValues: []float64{x - 0.3, x + 0.3}, YValues: []float64{b.Median, b.Median}},
			chart.ContinuousSeries{Style: line, XValues: []float64{x, x}, YValues: []float64{b.LowerWhisker, b.Q1}},
			chart.ContinuousSeries{Style: line, XValues: []float64{x, x}, YValues: []float64{b.Q3, b.UpperWhisker}},
		)
		if len(b.Outliers) > 0 {
			xs := make([]float64, len(b.Outliers))
			for j := range xs {
				xs[j] = x
			}
			series = append(series, chart.ContinuousSeries{
				Style:   chart.Style{StrokeColor: drawing.ColorTransparent, DotWidth: 3, DotColor: c},
				XValues: xs,
				YValues: b.Outliers,
			})
		}
		ticks = append(ticks, chart.Tick{Value: x, Label: b.Quality})
	}
	ch := chart.Chart{
		Title:      cd.Title,
		Width:      width,
		Height:     height,
		Background: padding,
		XAxis: chart.XAxis{
			Name:  cd.XLabel,
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(cd.Boxes)) - 0.5},
		},
		YAxis:  chart.YAxis{Name: cd.YLabel, Range: flatRange(boxValues(cd.Boxes))},
		Series: series,
	}
	return ch.Render(chart.PNG, w)
}

// monthly draws the mean as a line on the left axis and the sum as a
// filled area on the right axis.
func monthly(w io.Writer, cd *aggregate.ChartData, width, height int) error {
	if len(cd.Monthly) == 0 {
		return ErrNoSeries
	}
	n := len(cd.Monthly)
	xs := make([]float64, n)
	means := make([]float64, n)
	sums := make([]float64, n)
	ticks := make([]chart.Tick, n)
	for i, m := range cd.Monthly {
		xs[i] = float64(i)
		means[i] = m.Mean
		sums[i] = m.Sum
		ticks[i] = chart.Tick{Value: float64(i), Label: m.Month}
	}
	ch := chart.Chart{
		Title:      cd.Title,
		Width:      width,
		Height:     height,
		Background: padding,
		XAxis: chart.XAxis{
			Name:  cd.XLabel,
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(n) - 0.5},
		},
		YAxis:          chart.YAxis{Name: "Valor Promedio", Range: flatRange(means)},
		YAxisSecondary: chart.YAxis{Name: "Valor Total", Range: flatRange(sums)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Valor Total",
				YAxis:   chart.YAxisSecondary,
				Style:   chart.Style{StrokeColor: color(1), FillColor: color(1).WithAlpha(80)},
				XValues: xs,
				YValues: sums,
			},
			chart.ContinuousSeries{
				Name:    "Valor Promedio",
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2, DotWidth: 3, DotColor: chart.ColorBlue},
				XValues: xs,
				YValues: means,
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.PNG, w)
}

// means draws one bar per (origin, quality), colored by quality.
func means(w io.Writer, cd *aggregate.ChartData, width, height int) error {
	if len(cd.Means) == 0 {
		return ErrNoSeries
	}
	qualityColor := map[string]drawing.Color{}
	bars := make([]chart.Value, 0, len(cd.Means))
	for _, m := range cd.Means {
		c, ok := qualityColor[m.Quality]
		if !ok {
			c = color(len(qualityColor))
			qualityColor[m.Quality] = c
		}
		bars = append(bars, chart.Value{
			Label: m.Origin + " / " + m.Quality,
			Value: m.Mean,
			Style: chart.Style{FillColor: c, StrokeColor: c},
		})
	}
	bc := chart.BarChart{
		Title:      cd.Title,
		Width:      width,
		Height:     height,
		Background: padding,
		BarWidth:   barWidth(width, len(bars)),
		YAxis: chart.YAxis{
			Name: cd.YLabel,
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return strconv.FormatFloat(f, 'f', 1, 64)
				}
				return ""
			},
		},
		Bars: bars,
	}
	return bc.Render(chart.PNG, w)
}

func barWidth(width, n int) int {
	bw := (width - 120) / (n * 2)
	switch {
	case bw < 8:
		return 8
	case bw > 80:
		return 80
	}
	return bw
}

// flatRange returns a padded range when every value is equal, which go-chart
// cannot scale on its own; otherwise nil to keep automatic ranging.
func flatRange(vs []float64) *chart.ContinuousRange {
	if len(vs) == 0 {
		return nil
	}
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		lo, hi = min(lo, v), max(hi, v)
	}
	if lo != hi {
		return nil
	}
	pad := 1.0
	if lo != 0 {
		pad = abs(lo) / 2
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func boxValues(bs []aggregate.Box) []float64 {
	var out []float64
	for _, b := range bs {
		out = append(out, b.Min, b.Max)
	}
	return out
}
