package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/dataloom-cli/internal/analysis"
	"github.com/KaramelBytes/dataloom-cli/internal/dataset"
	"github.com/KaramelBytes/dataloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	pfOutput     string
	pfDelimiter  string
	pfSampleRows int
	pfCorr       bool
	pfOutliers   bool
	pfOutlierThr float64
	pfTopValues  int
	pfIndexCol   string
	pfSheetName  string
	pfSheetIndex int
	pfQuiet      bool
)

var profileCmd = &cobra.Command{
	Use:   "profile <files...>",
	Short: "Write a markdown profile of one or more datasets",
	Long: `Profile CSV/TSV, JSON or Excel datasets: inferred column kinds, missing counts, numeric
statistics with robust outlier counts, temporal ranges, top categorical values, strongest
correlations and sample rows. Arguments may be glob patterns.

Profiles print to stdout, or are written as <name>.profile.md into --output.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}

		opt := analysis.DefaultProfileOptions()
		opt.SampleRows = pfSampleRows
		opt.Correlations = pfCorr
		opt.Outliers = pfOutliers
		if pfOutlierThr > 0 {
			opt.OutlierThreshold = pfOutlierThr
		}
		if pfTopValues > 0 {
			opt.TopValues = pfTopValues
		}
		delim, err := parseDelimiter(pfDelimiter)
		if err != nil {
			return err
		}
		lopt := dataset.Options{Delimiter: delim, SheetName: pfSheetName, SheetIndex: pfSheetIndex, Index: pfIndexCol}

		out := cmd.OutOrStdout()
		total := len(files)
		for i, path := range files {
			if !pfQuiet && pfOutput != "" {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			ds, err := dataset.Load(path, lopt)
			if err != nil {
				return err
			}
			md := analysis.ProfileDataset(ds, opt).Markdown()
			if pfOutput == "" {
				fmt.Fprintln(out, md)
				continue
			}
			dst, err := profilePath(pfOutput, path)
			if err != nil {
				return err
			}
			if err := utils.SafeWriteFile(dst, []byte(md)); err != nil {
				return fmt.Errorf("write profile: %w", err)
			}
			if !pfQuiet {
				success(out, "Wrote profile to %s", dst)
			}
		}
		return nil
	},
}

// expandInputs resolves glob patterns, keeps literal paths that exist, and
// returns the sorted, de-duplicated list.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// profilePath picks <dir>/<name>.profile.md, suffixing __2, __3... instead of overwriting.
func profilePath(dir, src string) (string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	base := filepath.Base(src)
	name := utils.SafeFileName(strings.TrimSuffix(base, filepath.Ext(base)))
	if pfSheetName != "" {
		name += "__sheet-" + utils.SafeFileName(pfSheetName)
	}
	dst := filepath.Join(dir, name+".profile.md")
	for idx := 2; ; idx++ {
		if _, err := os.Stat(dst); os.IsNotExist(err) {
			return dst, nil
		}
		dst = filepath.Join(dir, fmt.Sprintf("%s__%d.profile.md", name, idx))
	}
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&pfOutput, "output", "o", "", "directory for <name>.profile.md files (default stdout)")
	profileCmd.Flags().StringVar(&pfDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe'")
	profileCmd.Flags().IntVar(&pfSampleRows, "sample-rows", 5, "number of sample rows to include")
	profileCmd.Flags().BoolVar(&pfCorr, "correlations", true, "list the strongest Pearson correlations among numeric columns")
	profileCmd.Flags().BoolVar(&pfOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	profileCmd.Flags().Float64Var(&pfOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	profileCmd.Flags().IntVar(&pfTopValues, "top-values", 8, "top categorical values listed per column")
	profileCmd.Flags().StringVar(&pfIndexCol, "index-col", "", "row index column ('none' disables temporal index detection)")
	profileCmd.Flags().StringVar(&pfSheetName, "sheet-name", "", "XLSX: sheet name to profile")
	profileCmd.Flags().IntVar(&pfSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	profileCmd.Flags().BoolVar(&pfQuiet, "quiet", false, "suppress progress output")
}
