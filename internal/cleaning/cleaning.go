package cleaning

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/KaramelBytes/dataloom-cli/internal/analysis"
	"github.com/KaramelBytes/dataloom-cli/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// DropThreshold is the missing ratio at or above which a column is dropped.
const DropThreshold = 0.5

// Mode selects how the imputation strategy is chosen.
type Mode string

const (
	// ModeDefault imputes numeric and temporal columns with the mean and
	// categorical columns with the most frequent value.
	ModeDefault Mode = "default"
	// ModeCustom applies Options.Impute to every column needing imputation.
	ModeCustom Mode = "custom"
)

// Strategy is an imputation strategy.
type Strategy string

const (
	Mean   Strategy = "mean"
	Median Strategy = "median"
	Most   Strategy = "mode"
)

var (
	ErrUnknownStrategy = errors.New("unknown imputation strategy")
	ErrUnknownMode     = errors.New("unknown cleaning mode")
)

// ParseStrategy normalizes a user supplied strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Mean, Median, Most:
		return Strategy(s), nil
	case "most_frequent":
		return Most, nil
	}
	return "", fmt.Errorf("%w: %q (use mean, median or mode)", ErrUnknownStrategy, s)
}

// Options controls a cleaning pass.
type Options struct {
	Mode   Mode
	Impute Strategy // used by ModeCustom
	// OutlierMultiplier > 0 clips numeric columns to [Q1-m*IQR, Q3+m*IQR]; 0 disables clipping.
	OutlierMultiplier float64
	// SnapshotPath, when set, receives the cleaned dataset as CSV.
	SnapshotPath string
}

// ColumnDecision records what happened to one column.
type ColumnDecision struct {
	Column       string       `json:"column"`
	Kind         dataset.Kind `json:"kind"`
	Missing      int          `json:"missing"`
	MissingRatio float64      `json:"missing_ratio"`
	Dropped      bool         `json:"dropped,omitempty"`
	Strategy     Strategy     `json:"strategy,omitempty"`
	Fill         string       `json:"fill,omitempty"`
	// Fallback is set when the requested strategy does not apply to the kind and mode was used.
	Fallback    bool    `json:"fallback,omitempty"`
	ClipApplied bool    `json:"clip_applied,omitempty"`
	Lower       float64 `json:"lower,omitempty"`
	Upper       float64 `json:"upper,omitempty"`
	Clipped     int     `json:"clipped,omitempty"`
}

// Report is the per-column outcome of Clean.
type Report struct {
	Rows          int              `json:"rows"`
	InputColumns  int              `json:"input_columns"`
	OutputColumns int              `json:"output_columns"`
	Columns       []ColumnDecision `json:"columns"`
	SnapshotPath  string           `json:"snapshot_path,omitempty"`
	SnapshotErr   error            `json:"-"`
}

// Dropped lists the names of dropped columns.
func (r *Report) Dropped() []string {
	var out []string
	for _, d := range r.Columns {
		if d.Dropped {
			out = append(out, d.Column)
		}
	}
	return out
}

// Decision returns the decision recorded for a column.
func (r *Report) Decision(name string) (ColumnDecision, bool) {
	for _, d := range r.Columns {
		if d.Column == name {
			return d, true
		}
	}
	return ColumnDecision{}, false
}

// Clean imputes or drops columns with missing values, optionally clips numeric
// outliers, and mutates ds in place. A snapshot write failure is recorded in
// the report and does not fail the call.
func Clean(ds *dataset.Dataset, opt Options) (*Report, error) {
	switch opt.Mode {
	case "", ModeDefault:
		opt.Mode = ModeDefault
	case ModeCustom:
		s, err := ParseStrategy(string(opt.Impute))
		if err != nil {
			return nil, err
		}
		opt.Impute = s
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, opt.Mode)
	}

	rep := &Report{Rows: ds.Rows(), InputColumns: len(ds.Columns)}
	var drop []string
	for _, c := range ds.Columns {
		d := ColumnDecision{Column: c.Name, Kind: c.Kind}
		d.Missing = c.MissingCount()
		if d.Missing > 0 && ds.Rows() > 0 {
			d.MissingRatio = float64(d.Missing) / float64(ds.Rows())
			if d.MissingRatio >= DropThreshold {
				d.Dropped = true
				drop = append(drop, c.Name)
			} else {
				impute(c, opt, &d)
			}
		}
		rep.Columns = append(rep.Columns, d)
	}
	for _, name := range drop {
		ds.Drop(name)
	}

	if opt.OutlierMultiplier > 0 {
		for i := range rep.Columns {
			d := &rep.Columns[i]
			if d.Dropped || d.Kind != dataset.Numeric {
				continue
			}
			c, _ := ds.Column(d.Column)
			clip(c, opt.OutlierMultiplier, d)
		}
	}
	rep.OutputColumns = len(ds.Columns)

	if opt.SnapshotPath != "" {
		rep.SnapshotPath = opt.SnapshotPath
		if err := dataset.WriteCSV(opt.SnapshotPath, ds); err != nil {
			rep.SnapshotErr = fmt.Errorf("write snapshot %s: %w", opt.SnapshotPath, err)
		}
	}
	return rep, nil
}

func strategyFor(kind dataset.Kind, opt Options) (Strategy, bool) {
	if opt.Mode == ModeDefault {
		if kind == dataset.Categorical {
			return Most, false
		}
		return Mean, false
	}
	if kind == dataset.Categorical && opt.Impute != Most {
		return Most, true
	}
	return opt.Impute, false
}

func impute(c *dataset.Column, opt Options, d *ColumnDecision) {
	s, fallback := strategyFor(c.Kind, opt)
	d.Strategy = s
	d.Fallback = fallback
	switch c.Kind {
	case dataset.Numeric:
		v := fillNumeric(c.Present(), s)
		for i := range c.Nums {
			if math.IsNaN(c.Nums[i]) {
				c.Nums[i] = v
			}
		}
		d.Fill = strconv.FormatFloat(v, 'g', 6, 64)
	case dataset.Temporal:
		var secs []float64
		for _, t := range c.Times {
			if !t.IsZero() {
				secs = append(secs, float64(t.UnixNano())/1e9)
			}
		}
		v := fillNumeric(secs, s)
		sec, frac := math.Modf(v)
		t := time.Unix(int64(sec), int64(frac*1e9)).UTC()
		for i := range c.Times {
			if c.Times[i].IsZero() {
				c.Times[i] = t
			}
		}
		d.Fill = t.Format(time.RFC3339)
	default:
		v := modeString(c.Strs)
		for i := range c.Strs {
			if c.Strs[i] == "" {
				c.Strs[i] = v
			}
		}
		d.Fill = v
	}
}

func fillNumeric(vals []float64, s Strategy) float64 {
	switch s {
	case Median:
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		return analysis.Quantile(sorted, 0.5)
	case Most:
		return modeFloat(vals)
	default:
		return stat.Mean(vals, nil)
	}
}

// modeFloat returns the most frequent value, the smallest one on ties.
func modeFloat(vals []float64) float64 {
	counts := make(map[float64]int, len(vals))
	for _, v := range vals {
		counts[v]++
	}
	best, bestN := math.NaN(), 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}

// modeString returns the most frequent non-empty label, the smallest one on ties.
func modeString(vals []string) string {
	counts := make(map[string]int, len(vals))
	for _, v := range vals {
		if v != "" {
			counts[v]++
		}
	}
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}

func clip(c *dataset.Column, m float64, d *ColumnDecision) {
	sorted := c.Present()
	if len(sorted) == 0 {
		return
	}
	sort.Float64s(sorted)
	q1 := analysis.Quantile(sorted, 0.25)
	q3 := analysis.Quantile(sorted, 0.75)
	iqr := q3 - q1
	lo, hi := q1-m*iqr, q3+m*iqr
	d.ClipApplied = true
	d.Lower, d.Upper = lo, hi
	for i, v := range c.Nums {
		switch {
		case v < lo:
			c.Nums[i] = lo
			d.Clipped++
		case v > hi:
			c.Nums[i] = hi
			d.Clipped++
		}
	}
}
