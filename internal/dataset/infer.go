package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-nan": {}, "null": {}, "NULL": {},
	"None": {}, "<NA>": {}, "#N/A": {}, "<nil>": {},
}

// timeLayouts are tried in order; a temporal column must parse entirely with one of them.
var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05",
	"1/2/2006 15:04", "1/2/2006 15:04:05", "1/2/2006", "01-02-06", "1/2/06",
}

// IsMissingToken reports whether a raw cell is treated as missing.
func IsMissingToken(s string) bool {
	_, ok := missingTokens[strings.TrimSpace(s)]
	return ok
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// BuildColumn infers the kind of a raw string column and converts it.
// Numeric wins if every non-missing cell is a finite number, temporal if every
// non-missing cell parses with one layout, categorical otherwise.
func BuildColumn(name string, raw []string) *Column {
	cells := make([]string, len(raw))
	present := 0
	for i, s := range raw {
		if IsMissingToken(s) {
			continue
		}
		cells[i] = strings.TrimSpace(s)
		present++
	}
	if present > 0 {
		if c, ok := asNumeric(name, cells); ok {
			return c
		}
		if c, ok := asTemporal(name, cells); ok {
			return c
		}
	}
	return &Column{Name: name, Kind: Categorical, Strs: cells}
}

func asNumeric(name string, cells []string) (*Column, bool) {
	nums := make([]float64, len(cells))
	for i, s := range cells {
		if s == "" {
			nums[i] = math.NaN()
			continue
		}
		f, ok := parseNumber(s)
		if !ok {
			return nil, false
		}
		nums[i] = f
	}
	return &Column{Name: name, Kind: Numeric, Nums: nums}, true
}

func asTemporal(name string, cells []string) (*Column, bool) {
	for _, layout := range timeLayouts {
		times := make([]time.Time, len(cells))
		ok := true
		for i, s := range cells {
			if s == "" {
				continue
			}
			t, err := time.Parse(layout, s)
			if err != nil || t.IsZero() {
				ok = false
				break
			}
			times[i] = t
		}
		if ok {
			return &Column{Name: name, Kind: Temporal, Times: times, Layout: layout}, true
		}
	}
	return nil, false
}

// FromRecords builds a dataset from a header row followed by data rows.
// Short rows are padded with missing cells; extra cells are ignored.
func FromRecords(name string, records [][]string) (*Dataset, error) {
	if len(records) == 0 {
		return New(name, nil)
	}
	header := records[0]
	rows := records[1:]
	cols := make([]*Column, 0, len(header))
	used := map[string]bool{}
	next := map[string]int{}
	for j, h := range header {
		colName := strings.TrimSpace(h)
		if colName == "" {
			colName = "column_" + strconv.Itoa(j+1)
		}
		// duplicates become name.1, name.2...; skip suffixes another header already took
		for base := colName; used[colName]; {
			next[base]++
			colName = base + "." + strconv.Itoa(next[base])
		}
		used[colName] = true
		raw := make([]string, len(rows))
		for i, rec := range rows {
			if j < len(rec) {
				raw[i] = rec[j]
			}
		}
		cols = append(cols, BuildColumn(colName, raw))
	}
	return New(name, cols)
}
