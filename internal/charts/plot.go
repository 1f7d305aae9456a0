package charts

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/dataloom-cli/internal/analysis"
	"github.com/KaramelBytes/dataloom-cli/internal/dataset"
	"github.com/KaramelBytes/dataloom-cli/internal/utils"
	"github.com/aclements/go-moremath/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Formats lists the image formats the plot renderer writes.
var Formats = []string{"png", "svg", "pdf"}

var kdeColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}

// PlotRenderer draws charts with gonum/plot into Dir.
type PlotRenderer struct {
	Dir    string
	Format string
	Width  vg.Length
	Height vg.Length

	// written holds the paths saved so far; sanitized IDs can collide.
	written map[string]bool
}

// NewPlotRenderer validates the format and returns a renderer writing
// width x height inch images into dir.
func NewPlotRenderer(dir, format string, widthIn, heightIn float64) (*PlotRenderer, error) {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if format == "" {
		format = "png"
	}
	ok := false
	for _, f := range Formats {
		if f == format {
			ok = true
		}
	}
	if !ok {
		return nil, fmt.Errorf("unsupported chart format %q (use %s)", format, strings.Join(Formats, ", "))
	}
	if widthIn <= 0 {
		widthIn = 10
	}
	if heightIn <= 0 {
		heightIn = 6
	}
	return &PlotRenderer{
		Dir:    dir,
		Format: format,
		Width:  vg.Length(widthIn) * vg.Inch,
		Height: vg.Length(heightIn) * vg.Inch,
	}, nil
}

// Path returns the file a descriptor is written to.
func (r *PlotRenderer) Path(d Descriptor) string {
	return filepath.Join(r.Dir, utils.SafeFileName(d.ID)+"."+r.Format)
}

// claim returns path, or path with a _2, _3... suffix when an earlier chart already used it.
func (r *PlotRenderer) claim(path string) string {
	if r.written == nil {
		r.written = map[string]bool{}
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 2; r.written[path]; i++ {
		path = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
	r.written[path] = true
	return path
}

// Render draws d and saves it under Dir.
func (r *PlotRenderer) Render(ds *dataset.Dataset, d Descriptor) (string, error) {
	cols := make([]*dataset.Column, len(d.Columns))
	for i, name := range d.Columns {
		c, ok := ds.Column(name)
		if !ok {
			return "", fmt.Errorf("chart %s: column %q: %w", d.ID, name, dataset.ErrColumnNotFound)
		}
		cols[i] = c
	}

	p := plot.New()
	var err error
	switch d.Kind {
	case Histogram:
		err = histogram(p, cols[0])
	case Scatter:
		err = scatter(p, cols[0], cols[1], d.Corr)
	case Bar:
		err = bars(p, cols[0], cols[1], d.Categories)
	case Line:
		err = line(p, ds.TemporalIndex(), cols[0])
	default:
		err = fmt.Errorf("unknown chart kind %q", d.Kind)
	}
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", d.ID, err)
	}

	if err := utils.EnsureDir(r.Dir); err != nil {
		return "", fmt.Errorf("ensure dir: %w", err)
	}
	path := r.claim(r.Path(d))
	if err := p.Save(r.Width, r.Height, path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

// histBins is the square-root rule, at least one bin.
func histBins(n int) int {
	return max(1, int(math.Ceil(math.Sqrt(float64(n)))))
}

func histogram(p *plot.Plot, c *dataset.Column) error {
	p.Title.Text = "Distribution of " + c.Name
	p.X.Label.Text = c.Name
	p.Y.Label.Text = "Count"
	vals := c.Present()
	if len(vals) == 0 {
		return nil
	}
	h, err := plotter.NewHist(plotter.Values(vals), histBins(len(vals)))
	if err != nil {
		return err
	}
	p.Add(h)

	lo, hi := floats.Min(vals), floats.Max(vals)
	if len(vals) < 2 || lo == hi {
		return nil
	}
	// density scaled to counts so it overlays the bars
	kde := &stats.KDE{Sample: stats.Sample{Xs: vals}}
	scale := float64(len(vals)) * h.Width
	f := plotter.NewFunction(func(x float64) float64 { return kde.PDF(x) * scale })
	f.XMin, f.XMax = lo, hi
	f.Samples = 200
	f.Color = kdeColor
	f.Width = vg.Points(1.5)
	p.Add(f)
	return nil
}

func scatter(p *plot.Plot, a, b *dataset.Column, r float64) error {
	p.Title.Text = fmt.Sprintf("%s vs %s (r = %.2f)", a.Name, b.Name, r)
	p.X.Label.Text = a.Name
	p.Y.Label.Text = b.Name
	var pts plotter.XYs
	for i := range a.Nums {
		if math.IsNaN(a.Nums[i]) || math.IsNaN(b.Nums[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: a.Nums[i], Y: b.Nums[i]})
	}
	if len(pts) == 0 {
		return nil
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.GlyphStyle.Radius = vg.Points(2.5)
	p.Add(plotter.NewGrid(), s)
	return nil
}

// bars plots the mean of num for each listed category of cat.
func bars(p *plot.Plot, cat, num *dataset.Column, categories []string) error {
	p.Title.Text = fmt.Sprintf("Mean %s by %s", num.Name, cat.Name)
	p.X.Label.Text = cat.Name
	p.Y.Label.Text = num.Name
	if len(categories) == 0 {
		return nil
	}
	pos := make(map[string]int, len(categories))
	for i, lv := range categories {
		pos[lv] = i
	}
	sums := make([]float64, len(categories))
	counts := make([]float64, len(categories))
	for i, lv := range cat.Strs {
		k, ok := pos[lv]
		if !ok || math.IsNaN(num.Nums[i]) {
			continue
		}
		sums[k] += num.Nums[i]
		counts[k]++
	}
	vals := make(plotter.Values, len(categories))
	for k := range vals {
		if counts[k] > 0 {
			vals[k] = sums[k] / counts[k]
		}
	}
	b, err := plotter.NewBarChart(vals, vg.Points(20))
	if err != nil {
		return err
	}
	b.LineStyle.Width = vg.Length(0)
	p.Add(b)
	p.NominalX(categories...)
	return nil
}

// line plots a column against the temporal row index. Categorical values are
// drawn as level codes, temporal values as Unix seconds.
func line(p *plot.Plot, index []time.Time, c *dataset.Column) error {
	p.Title.Text = c.Name + " over time"
	p.Y.Label.Text = c.Name
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	if index == nil {
		return fmt.Errorf("row index is not temporal")
	}
	var codes map[string]int
	if c.Kind == dataset.Categorical {
		codes = map[string]int{}
		for i, lv := range analysis.Levels(c.Strs) {
			codes[lv] = i
		}
	}
	var pts plotter.XYs
	for i, t := range index {
		if t.IsZero() || c.IsMissing(i) {
			continue
		}
		var y float64
		switch c.Kind {
		case dataset.Numeric:
			y = c.Nums[i]
		case dataset.Temporal:
			y = float64(c.Times[i].Unix())
		default:
			y = float64(codes[c.Strs[i]])
		}
		pts = append(pts, plotter.XY{X: float64(t.Unix()), Y: y})
	}
	if len(pts) == 0 {
		return nil
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
	l, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	l.LineStyle.Width = vg.Points(1.5)
	p.Add(plotter.NewGrid(), l)
	return nil
}
