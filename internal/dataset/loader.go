package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat indicates a file extension no loader accepts.
var ErrUnsupportedFormat = errors.New("unsupported file type")

// Options controls how a dataset file is read.
type Options struct {
	// Delimiter for CSV. If 0, picks '\t' for .tsv and ',' otherwise.
	Delimiter rune
	// XLSX sheet selection; SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
	// Index names the row-index column; see Dataset.SetIndex.
	Index string
}

// Loader reads one family of file formats into a Dataset.
type Loader interface {
	CanLoad(path string) bool
	Load(path string, opt Options) (*Dataset, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// Load selects a loader by file extension and resolves the row index.
func Load(path string, opt Options) (*Dataset, error) {
	for _, l := range registry {
		if !l.CanLoad(path) {
			continue
		}
		ds, err := l.Load(path, opt)
		if err != nil {
			return nil, err
		}
		if err := ds.SetIndex(opt.Index); err != nil {
			return nil, err
		}
		return ds, nil
	}
	return nil, fmt.Errorf("%w %q: provide a CSV, JSON, or Excel file", ErrUnsupportedFormat, filepath.Ext(path))
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func init() {
	Register(csvLoader{})
	Register(jsonLoader{})
	Register(xlsxLoader{})
}
