// Package charts decides which charts describe a cleaned dataset and hands
// each one to a Renderer.
package charts

import (
	"context"
	"fmt"

	"github.com/KaramelBytes/dataloom-cli/internal/analysis"
	"github.com/KaramelBytes/dataloom-cli/internal/dataset"
)

// Kind is a chart type.
type Kind string

const (
	Histogram Kind = "histogram"
	Scatter   Kind = "scatter"
	Bar       Kind = "bar"
	Line      Kind = "line"
)

// Descriptor describes one chart to render.
type Descriptor struct {
	Kind    Kind     `json:"kind"`
	Columns []string `json:"columns"`
	// ID is the output identifier without extension.
	ID string `json:"id"`
	// Corr is the Pearson correlation of a scatter pair.
	Corr float64 `json:"corr,omitempty"`
	// Categories restricts a bar chart to these labels, most frequent first.
	Categories []string `json:"categories,omitempty"`
}

// Renderer draws a chart and returns where it was written.
type Renderer interface {
	Render(ds *dataset.Dataset, d Descriptor) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ds *dataset.Dataset, d Descriptor) (string, error)

func (f RendererFunc) Render(ds *dataset.Dataset, d Descriptor) (string, error) { return f(ds, d) }

// Select plans the charts for ds: histograms, then the topN most correlated
// ordered pairs, then categorical-by-numeric bars, then line charts when the
// row index is temporal. Each group follows column order.
func Select(ds *dataset.Dataset, topN int) []Descriptor {
	if ds.Empty() {
		return nil
	}
	var out []Descriptor
	nums := ds.OfKind(dataset.Numeric)
	for _, c := range nums {
		out = append(out, Descriptor{Kind: Histogram, Columns: []string{c.Name}, ID: c.Name + "_histogram"})
	}

	pairs := analysis.Correlate(ds).Pairs()
	if topN < len(pairs) {
		pairs = pairs[:max(topN, 0)]
	}
	for _, p := range pairs {
		out = append(out, Descriptor{
			Kind:    Scatter,
			Columns: []string{p.A, p.B},
			ID:      fmt.Sprintf("%s_vs_%s_scatter", p.A, p.B),
			Corr:    p.R,
		})
	}

	for _, cat := range ds.OfKind(dataset.Categorical) {
		tops := analysis.TopValues(cat.Strs, topN)
		labels := make([]string, len(tops))
		for i, t := range tops {
			labels[i] = t.Value
		}
		for _, num := range nums {
			out = append(out, Descriptor{
				Kind:       Bar,
				Columns:    []string{cat.Name, num.Name},
				ID:         fmt.Sprintf("%s_vs_%s_bar_chart", cat.Name, num.Name),
				Categories: labels,
			})
		}
	}

	if ds.TemporalIndex() != nil {
		for _, c := range ds.Columns {
			out = append(out, Descriptor{Kind: Line, Columns: []string{c.Name}, ID: c.Name + "_line_chart"})
		}
	}
	return out
}

// SelectAndRender renders every chart Select plans, in order, and returns
// the renderer's identifiers. The first render error aborts.
func SelectAndRender(ctx context.Context, ds *dataset.Dataset, topN int, r Renderer) ([]string, error) {
	plan := Select(ds, topN)
	ids := make([]string, 0, len(plan))
	for _, d := range plan {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		id, err := r.Render(ds, d)
		if err != nil {
			return ids, fmt.Errorf("render %s: %w", d.ID, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
