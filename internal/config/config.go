package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	OutputDir    string  `mapstructure:"output_dir" yaml:"output_dir"`
	ReportFile   string  `mapstructure:"report_file" yaml:"report_file"`
	SnapshotFile string  `mapstructure:"snapshot_file" yaml:"snapshot_file"`
	ImputeType   string  `mapstructure:"impute_type" yaml:"impute_type"`
	IQRMult      float64 `mapstructure:"iqr_multiplier" yaml:"iqr_multiplier"`
	TopN         int     `mapstructure:"top_n" yaml:"top_n"`
	IndexColumn  string  `mapstructure:"index_column" yaml:"index_column"`

	// Charts
	ChartFormat   string  `mapstructure:"chart_format" yaml:"chart_format"`
	ChartWidthIn  float64 `mapstructure:"chart_width_in" yaml:"chart_width_in"`
	ChartHeightIn float64 `mapstructure:"chart_height_in" yaml:"chart_height_in"`

	// Predictive benchmark
	TestRatio   float64 `mapstructure:"test_ratio" yaml:"test_ratio"`
	Seed        int64   `mapstructure:"seed" yaml:"seed"`
	NEstimators int     `mapstructure:"n_estimators" yaml:"n_estimators"`
	MaxDepth    int     `mapstructure:"max_depth" yaml:"max_depth"`

	// Run history
	HistoryDB      string `mapstructure:"history_db" yaml:"history_db"`
	HistoryEnabled bool   `mapstructure:"history_enabled" yaml:"history_enabled"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"output_dir", "report_file", "snapshot_file", "impute_type", "iqr_multiplier", "top_n",
	"index_column", "chart_format", "chart_width_in", "chart_height_in", "test_ratio", "seed",
	"n_estimators", "max_depth", "history_db", "history_enabled",
}

// Dir returns ~/.dataloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".dataloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dataloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DATALOOM")
	v.AutomaticEnv()

	v.SetDefault("output_dir", "Report")
	v.SetDefault("report_file", "analysis_report.txt")
	v.SetDefault("snapshot_file", "cleaned.csv")
	v.SetDefault("impute_type", "mean")
	v.SetDefault("iqr_multiplier", 1.5)
	v.SetDefault("top_n", 5)
	v.SetDefault("index_column", "")
	// Chart defaults
	v.SetDefault("chart_format", "png")
	v.SetDefault("chart_width_in", 10.0)
	v.SetDefault("chart_height_in", 6.0)
	// Benchmark defaults
	v.SetDefault("test_ratio", 0.2)
	v.SetDefault("seed", 42)
	v.SetDefault("n_estimators", 100)
	v.SetDefault("max_depth", 0)
	v.SetDefault("history_db", "")
	v.SetDefault("history_enabled", true)

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve history_db default: ~/.dataloom/history.db
	if c.HistoryDB == "" {
		c.HistoryDB = filepath.Join(dir, "history.db")
	}
	return &c, nil
}

// Get returns the string form of a key.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "output_dir":
		return c.OutputDir, nil
	case "report_file":
		return c.ReportFile, nil
	case "snapshot_file":
		return c.SnapshotFile, nil
	case "impute_type":
		return c.ImputeType, nil
	case "iqr_multiplier":
		return strconv.FormatFloat(c.IQRMult, 'g', -1, 64), nil
	case "top_n":
		return strconv.Itoa(c.TopN), nil
	case "index_column":
		return c.IndexColumn, nil
	case "chart_format":
		return c.ChartFormat, nil
	case "chart_width_in":
		return strconv.FormatFloat(c.ChartWidthIn, 'g', -1, 64), nil
	case "chart_height_in":
		return strconv.FormatFloat(c.ChartHeightIn, 'g', -1, 64), nil
	case "test_ratio":
		return strconv.FormatFloat(c.TestRatio, 'g', -1, 64), nil
	case "seed":
		return strconv.FormatInt(c.Seed, 10), nil
	case "n_estimators":
		return strconv.Itoa(c.NEstimators), nil
	case "max_depth":
		return strconv.Itoa(c.MaxDepth), nil
	case "history_db":
		return c.HistoryDB, nil
	case "history_enabled":
		return strconv.FormatBool(c.HistoryEnabled), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Set parses and assigns a key.
func (c *Global) Set(key, val string) error {
	switch key {
	case "output_dir":
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("output_dir cannot be empty")
		}
		c.OutputDir = val
	case "report_file":
		c.ReportFile = val
	case "snapshot_file":
		c.SnapshotFile = val
	case "impute_type":
		switch val {
		case "mean", "median", "mode":
			c.ImputeType = val
		default:
			return fmt.Errorf("invalid impute_type: %s (use mean, median or mode)", val)
		}
	case "iqr_multiplier":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid float for iqr_multiplier: %v", val)
		}
		c.IQRMult = f
	case "top_n":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for top_n: %v", val)
		}
		c.TopN = i
	case "index_column":
		c.IndexColumn = val
	case "chart_format":
		switch strings.ToLower(val) {
		case "png", "svg", "pdf":
			c.ChartFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid chart_format: %s (use png, svg or pdf)", val)
		}
	case "chart_width_in", "chart_height_in":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid float for %s: %v", key, val)
		}
		if key == "chart_width_in" {
			c.ChartWidthIn = f
		} else {
			c.ChartHeightIn = f
		}
	case "test_ratio":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 || f >= 1 {
			return fmt.Errorf("invalid float for test_ratio: %v (must be between 0 and 1)", val)
		}
		c.TestRatio = f
	case "seed":
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for seed: %w", err)
		}
		c.Seed = i
	case "n_estimators":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for n_estimators: %v", val)
		}
		c.NEstimators = i
	case "max_depth":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for max_depth: %v", val)
		}
		c.MaxDepth = i
	case "history_db":
		c.HistoryDB = val
	case "history_enabled":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for history_enabled: %w", err)
		}
		c.HistoryEnabled = b
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}
