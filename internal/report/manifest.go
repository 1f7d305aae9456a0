package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/dataloom-cli/internal/analysis"
	"github.com/KaramelBytes/dataloom-cli/internal/cleaning"
	"github.com/KaramelBytes/dataloom-cli/internal/utils"
	"github.com/google/uuid"
)

const manifestFileName = "run.json"

// Settings are the options a run was started with.
type Settings struct {
	Mode       string  `json:"mode"`
	Cleaning   string  `json:"cleaning"`
	Impute     string  `json:"impute,omitempty"`
	IQR        float64 `json:"iqr_multiplier"`
	TopN       int     `json:"top_n,omitempty"`
	Target     string  `json:"target,omitempty"`
	ModelType  string  `json:"model_type,omitempty"`
	Index      string  `json:"index,omitempty"`
	Format     string  `json:"chart_format,omitempty"`
	TestRatio  float64 `json:"test_ratio,omitempty"`
	Seed       int64   `json:"seed,omitempty"`
	Estimators int     `json:"n_estimators,omitempty"`
}

// StatRow is one descriptive statistics row. Undefined values are null.
type StatRow struct {
	Column string              `json:"column"`
	Values map[string]*float64 `json:"values"`
}

// Manifest describes one run and is persisted as run.json in the output directory.
type Manifest struct {
	ID         string                  `json:"id"`
	Dataset    string                  `json:"dataset"`
	Rows       int                     `json:"rows"`
	Columns    int                     `json:"columns"`
	Settings   Settings                `json:"settings"`
	Cleaning   *cleaning.Report        `json:"cleaning,omitempty"`
	Stats      []StatRow               `json:"stats,omitempty"`
	Predict    *analysis.PredictResult `json:"predict,omitempty"`
	Charts     []string                `json:"charts,omitempty"`
	ReportPath string                  `json:"report_path,omitempty"`
	Snapshot   string                  `json:"snapshot_path,omitempty"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`

	// Not serialized: output directory holding run.json
	rootDir string `json:"-"`
}

// NewManifest starts an in-memory manifest with a fresh run id. Call Save() to persist.
func NewManifest(dataset, rootDir string, s Settings) *Manifest {
	return &Manifest{
		ID:        uuid.NewString(),
		Dataset:   dataset,
		Settings:  s,
		StartedAt: time.Now(),
		rootDir:   rootDir,
	}
}

// LoadManifest reads run.json from dir.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, manifestFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manifest not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.rootDir = dir
	return &m, nil
}

// RootDir returns the directory the manifest lives in.
func (m *Manifest) RootDir() string { return m.rootDir }

// Path returns the run.json location.
func (m *Manifest) Path() string { return filepath.Join(m.rootDir, manifestFileName) }

// SetSummary records descriptive statistics.
func (m *Manifest) SetSummary(s *analysis.Summary) {
	m.Stats = nil
	if s == nil {
		return
	}
	for _, cs := range s.Stats {
		row := StatRow{Column: cs.Name, Values: make(map[string]*float64, len(analysis.StatNames))}
		for i, v := range cs.Values() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row.Values[analysis.StatNames[i]] = nil
				continue
			}
			v := v
			row.Values[analysis.StatNames[i]] = &v
		}
		m.Stats = append(m.Stats, row)
	}
}

// Save writes run.json using atomic write.
func (m *Manifest) Save() error {
	if m.rootDir == "" {
		return errors.New("manifest directory not set")
	}
	if err := utils.EnsureDir(m.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	m.FinishedAt = time.Now()
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(m.Path(), data)
}
