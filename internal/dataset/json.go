package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// jsonLoader reads an array of records ([{"col": v}, ...]) or a column
// oriented object ({"col": {"0": v, "1": v}}). Columns come back sorted by key.
type jsonLoader struct{}

func (jsonLoader) CanLoad(path string) bool { return hasExt(path, ".json") }

func (jsonLoader) Load(path string, _ Options) (*Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open json: %w", err)
	}
	// Load everything as strings; kinds are inferred by BuildColumn.
	opts := []dataframe.LoadOption{
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	}
	var df dataframe.DataFrame
	switch trimmed := bytes.TrimSpace(b); {
	case len(trimmed) > 0 && trimmed[0] == '{':
		maps, err := columnsToRecords(trimmed)
		if err != nil {
			return nil, err
		}
		df = dataframe.LoadMaps(maps, opts...)
	case len(trimmed) > 0 && trimmed[0] == '[':
		df = dataframe.ReadJSON(bytes.NewReader(trimmed), opts...)
	default:
		return nil, fmt.Errorf("parse json: expected an array of records or an object of columns")
	}
	if df.Err != nil {
		return nil, fmt.Errorf("parse json: %w", df.Err)
	}
	return FromRecords(filepath.Base(path), df.Records())
}

// columnsToRecords pivots {"col": {"row": v}} into one map per row. Rows are
// ordered numerically when every row key is an integer, lexically otherwise.
func columnsToRecords(b []byte) ([]map[string]any, error) {
	var cols map[string]map[string]any
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	if err := d.Decode(&cols); err != nil {
		return nil, fmt.Errorf("parse json columns (want {\"col\": {\"0\": value}}): %w", err)
	}
	rows := map[string]map[string]any{}
	for col, cells := range cols {
		for key, v := range cells {
			if rows[key] == nil {
				rows[key] = map[string]any{}
			}
			rows[key][col] = v
		}
	}
	keys := make([]string, 0, len(rows))
	numeric := true
	for k := range rows {
		keys = append(keys, k)
		if _, err := strconv.Atoi(k); err != nil {
			numeric = false
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if numeric {
			a, _ := strconv.Atoi(keys[i])
			b, _ := strconv.Atoi(keys[j])
			return a < b
		}
		return keys[i] < keys[j]
	})
	out := make([]map[string]any, len(keys))
	for i, k := range keys {
		out[i] = rows[k]
	}
	return out, nil
}
