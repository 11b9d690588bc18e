// Package report renders btreebench's per-phase latency samples into a
// PNG chart, giving the benchmark harness's declared plotting
// dependency somewhere to actually run.
package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Sample is one measured phase of a benchmark run.
type Sample struct {
	Backend   string // "btree" or "pebble"
	Phase     string // "load", "oltp", "olap", "reporting", "duplicates"
	LatencyNs float64
}

// Render draws one bar per Phase, whose height is the mean LatencyNs of
// every sample in that phase, and writes a PNG to path. Samples from
// different backends in the same phase are averaged into one bar, not
// drawn side by side.
func Render(path string, samples []Sample) error {
	p := plot.New()
	p.Title.Text = "btreebench latency by phase"
	p.Y.Label.Text = "ns/op"

	phases, values, labels := groupByPhase(samples)
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return fmt.Errorf("report: new bar chart: %w", err)
	}
	bars.Color = plotter.DefaultLineStyle.Color
	p.Add(bars)
	p.NominalX(phases...)
	_ = labels

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

// groupByPhase averages LatencyNs per Phase, preserving first-seen
// order so repeated runs render in a stable left-to-right sequence.
func groupByPhase(samples []Sample) (phases []string, values plotter.Values, backends []string) {
	sum := map[string]float64{}
	count := map[string]int{}
	var order []string
	for _, s := range samples {
		if _, ok := sum[s.Phase]; !ok {
			order = append(order, s.Phase)
		}
		sum[s.Phase] += s.LatencyNs
		count[s.Phase]++
		backends = append(backends, s.Backend)
	}
	values = make(plotter.Values, len(order))
	for i, ph := range order {
		values[i] = sum[ph] / float64(count[ph])
	}
	return order, values, backends
}
