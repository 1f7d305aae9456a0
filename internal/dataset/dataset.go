package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind is the classified type of a column. It is fixed once a column is loaded.
type Kind string

const (
	Numeric     Kind = "numeric"
	Categorical Kind = "categorical"
	Temporal    Kind = "temporal"
)

// IndexNone disables row-index detection.
const IndexNone = "none"

// ErrColumnNotFound is returned when a named column does not exist.
var ErrColumnNotFound = errors.New("column not found")

// Column holds one named column. Only the slice matching Kind is populated:
// Nums for numeric (NaN marks missing), Strs for categorical ("" marks missing),
// Times for temporal (zero time marks missing).
type Column struct {
	Name   string
	Kind   Kind
	Nums   []float64
	Strs   []string
	Times  []time.Time
	Layout string // temporal parse layout, reused when writing snapshots
}

// Len returns the number of cells.
func (c *Column) Len() int {
	switch c.Kind {
	case Numeric:
		return len(c.Nums)
	case Temporal:
		return len(c.Times)
	default:
		return len(c.Strs)
	}
}

// IsMissing reports whether cell i is missing.
func (c *Column) IsMissing(i int) bool {
	switch c.Kind {
	case Numeric:
		return math.IsNaN(c.Nums[i])
	case Temporal:
		return c.Times[i].IsZero()
	default:
		return c.Strs[i] == ""
	}
}

// MissingCount counts missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// Cell formats cell i the way it is written to CSV snapshots.
func (c *Column) Cell(i int) string {
	if c.IsMissing(i) {
		return ""
	}
	switch c.Kind {
	case Numeric:
		return strconv.FormatFloat(c.Nums[i], 'f', -1, 64)
	case Temporal:
		layout := c.Layout
		if layout == "" {
			layout = time.RFC3339
		}
		return c.Times[i].Format(layout)
	default:
		return c.Strs[i]
	}
}

// Present returns the non-missing numeric values, in row order.
func (c *Column) Present() []float64 {
	out := make([]float64, 0, len(c.Nums))
	for _, v := range c.Nums {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Dataset is an in-memory table of equal-length named columns.
type Dataset struct {
	Name string
	// Index names the column acting as the row index; empty means positional.
	Index   string
	Columns []*Column
	rows    int
}

// New builds a dataset and checks that every column has the same length.
func New(name string, cols []*Column) (*Dataset, error) {
	d := &Dataset{Name: name, Columns: cols}
	if len(cols) > 0 {
		d.rows = cols[0].Len()
	}
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if c.Len() != d.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), d.rows)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return d, nil
}

// Rows returns the row count.
func (d *Dataset) Rows() int { return d.rows }

// Empty reports whether the dataset has no rows or no columns.
func (d *Dataset) Empty() bool { return d.rows == 0 || len(d.Columns) == 0 }

// Names returns column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// OfKind returns the columns of kind k, in column order.
func (d *Dataset) OfKind(k Kind) []*Column {
	var out []*Column
	for _, c := range d.Columns {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Drop removes a column. It reports whether the column existed.
func (d *Dataset) Drop(name string) bool {
	for i, c := range d.Columns {
		if c.Name == name {
			d.Columns = append(d.Columns[:i], d.Columns[i+1:]...)
			return true
		}
	}
	return false
}

// SetIndex resolves the row index. An empty name picks the first temporal
// column, IndexNone keeps a positional index.
func (d *Dataset) SetIndex(name string) error {
	switch name {
	case IndexNone:
		d.Index = ""
		return nil
	case "":
		d.Index = ""
		if ts := d.OfKind(Temporal); len(ts) > 0 {
			d.Index = ts[0].Name
		}
		return nil
	}
	if _, ok := d.Column(name); !ok {
		return fmt.Errorf("index %q: %w", name, ErrColumnNotFound)
	}
	d.Index = name
	return nil
}

// TemporalIndex returns the index instants when the row index is a temporal
// column still present in the dataset, nil otherwise.
func (d *Dataset) TemporalIndex() []time.Time {
	if d.Index == "" {
		return nil
	}
	c, ok := d.Column(d.Index)
	if !ok || c.Kind != Temporal {
		return nil
	}
	return c.Times
}

// Records returns the header followed by every formatted row.
func (d *Dataset) Records() [][]string {
	out := make([][]string, 0, d.rows+1)
	out = append(out, d.Names())
	for i := 0; i < d.rows; i++ {
		row := make([]string, len(d.Columns))
		for j, c := range d.Columns {
			row[j] = c.Cell(i)
		}
		out = append(out, row)
	}
	return out
}
