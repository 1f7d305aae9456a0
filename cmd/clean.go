package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/dataloom-cli/internal/cleaning"
	"github.com/KaramelBytes/dataloom-cli/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	clCustom     bool
	clImpute     string
	clIQR        float64
	clOutput     string
	clDelimiter  string
	clSheetName  string
	clSheetIndex int
	clQuiet      bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Clean a dataset and write the cleaned CSV snapshot",
	Long: `Drop columns that are at least half empty, impute the remaining missing values and
optionally clip numeric outliers, then write the result as CSV.

The snapshot goes to --output, or to <output_dir>/<snapshot_file> from the config.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		delim, err := parseDelimiter(clDelimiter)
		if err != nil {
			return err
		}
		ds, err := dataset.Load(args[0], dataset.Options{
			Delimiter:  delim,
			SheetName:  clSheetName,
			SheetIndex: clSheetIndex,
			Index:      dataset.IndexNone,
		})
		if err != nil {
			return err
		}

		opt := cleaning.Options{Mode: cleaning.ModeDefault}
		f := cmd.Flags()
		switch {
		case f.Changed("iqr"):
			opt.OutlierMultiplier = clIQR
		case clCustom:
			opt.OutlierMultiplier = c.IQRMult
		}
		if opt.OutlierMultiplier < 0 {
			return fmt.Errorf("IQR multiplier must be >= 0, got %v", opt.OutlierMultiplier)
		}
		if clCustom {
			imp := clImpute
			if !f.Changed("impute") {
				imp = c.ImputeType
			}
			s, err := cleaning.ParseStrategy(strings.ToLower(strings.TrimSpace(imp)))
			if err != nil {
				return err
			}
			opt.Mode = cleaning.ModeCustom
			opt.Impute = s
		}
		opt.SnapshotPath = clOutput
		if opt.SnapshotPath == "" {
			opt.SnapshotPath = filepath.Join(c.OutputDir, c.SnapshotFile)
		}

		rep, err := cleaning.Clean(ds, opt)
		if err != nil {
			return err
		}
		if rep.SnapshotErr != nil {
			return rep.SnapshotErr
		}
		out := cmd.OutOrStdout()
		if clQuiet {
			fmt.Fprintln(out, rep.SnapshotPath)
			return nil
		}
		printCleaning(out, rep)
		fmt.Fprintln(out)
		success(out, "Cleaned dataset saved to %s (%d rows, %d columns)", rep.SnapshotPath, rep.Rows, rep.OutputColumns)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVar(&clCustom, "custom", false, "use custom cleaning (--impute for every column with missing values)")
	cleanCmd.Flags().StringVar(&clImpute, "impute", "mean", "imputation type for custom cleaning: mean|median|mode")
	cleanCmd.Flags().Float64Var(&clIQR, "iqr", 1.5, "IQR multiplier for outlier clipping (0 disables)")
	cleanCmd.Flags().StringVar(&clOutput, "output", "", "snapshot CSV path (default <output_dir>/<snapshot_file>)")
	cleanCmd.Flags().StringVar(&clDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe'")
	cleanCmd.Flags().StringVar(&clSheetName, "sheet-name", "", "XLSX: sheet name to load")
	cleanCmd.Flags().IntVar(&clSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	cleanCmd.Flags().BoolVar(&clQuiet, "quiet", false, "print only the snapshot path")
}
