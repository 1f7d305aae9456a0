package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/KaramelBytes/dataloom-cli/internal/analysis"
	"github.com/KaramelBytes/dataloom-cli/internal/cleaning"
	cfgpkg "github.com/KaramelBytes/dataloom-cli/internal/config"
	"github.com/KaramelBytes/dataloom-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	runCustom      bool
	runImpute      string
	runIQR         float64
	runMode        string
	runTopN        int
	runTarget      string
	runModelType   string
	runOutputDir   string
	runIndexCol    string
	runDelimiter   string
	runSheetName   string
	runSheetIndex  int
	runFormat      string
	runNoHistory   bool
	runQuiet       bool
	runInteractive bool
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Clean a dataset and run descriptive or predictive analysis",
	Long: `Load a CSV/TSV, JSON or Excel dataset, clean it, then either describe it (statistics and
charts) or benchmark two model families on a target column. Outputs land in --output-dir.

Without a file argument on a terminal, or with --interactive, the options are asked for
one by one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		req := runRequest{
			Custom:    runCustom,
			Impute:    runImpute,
			IQR:       runIQR,
			Mode:      runMode,
			TopN:      runTopN,
			Target:    runTarget,
			ModelType: runModelType,
		}
		if len(args) == 1 {
			req.Path = args[0]
		}
		f := cmd.Flags()
		if !f.Changed("impute") {
			req.Impute = c.ImputeType
		}
		if !f.Changed("top-n") {
			req.TopN = c.TopN
		}
		// default cleaning never clips unless a multiplier is given explicitly
		switch {
		case f.Changed("iqr"):
		case req.Custom:
			req.IQR = c.IQRMult
		default:
			req.IQR = 0
		}

		interactive := runInteractive || (req.Path == "" && isTerminal(os.Stdin))
		if interactive {
			if err := promptRun(cmd.InOrStdin(), cmd.OutOrStdout(), &req); err != nil {
				return err
			}
		}
		if req.Path == "" {
			return errors.New("provide a dataset file path (or use --interactive)")
		}

		mode, err := pipeline.ParseMode(req.Mode)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "Invalid analysis mode selected.")
			return err
		}
		opt, err := buildRunOptions(c, req, mode)
		if err != nil {
			return err
		}
		if !runQuiet && isTerminal(os.Stderr) {
			opt.WrapRenderer = newProgressRenderer(os.Stderr)
		}

		res, err := pipeline.Run(cmd.Context(), opt)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, w := range res.Warnings {
			warning(cmd.ErrOrStderr(), "%s", w)
		}
		if runQuiet {
			fmt.Fprintln(out, res.ReportPath)
			return nil
		}
		printCleaning(out, res.Cleaning)
		printSummary(out, res.Summary)
		printScores(out, res.Predict)
		fmt.Fprintln(out)
		if len(res.Charts) > 0 {
			success(out, "Generated %d chart(s) in %s", len(res.Charts), opt.OutputDir)
		}
		if res.SnapshotPath != "" {
			success(out, "Cleaned dataset saved to %s", res.SnapshotPath)
		}
		success(out, "Report written to %s (run %s)", res.ReportPath, res.Manifest.ID)
		return nil
	},
}

// runRequest holds the answers that drive a run, from flags or prompts.
type runRequest struct {
	Path      string
	Custom    bool
	Impute    string
	IQR       float64
	Mode      string
	TopN      int
	Target    string
	ModelType string
}

func buildRunOptions(c *cfgpkg.Global, req runRequest, mode pipeline.Mode) (pipeline.Options, error) {
	delim, err := parseDelimiter(runDelimiter)
	if err != nil {
		return pipeline.Options{}, err
	}
	opt := pipeline.Options{
		Path:          req.Path,
		Mode:          mode,
		TopN:          req.TopN,
		Target:        strings.TrimSpace(req.Target),
		Task:          analysis.Task(strings.ToLower(strings.TrimSpace(req.ModelType))),
		OutputDir:     firstNonEmpty(runOutputDir, c.OutputDir),
		ReportFile:    c.ReportFile,
		SnapshotFile:  c.SnapshotFile,
		ChartFormat:   firstNonEmpty(runFormat, c.ChartFormat),
		ChartWidthIn:  c.ChartWidthIn,
		ChartHeightIn: c.ChartHeightIn,
		Logger:        logger,
		Predict: analysis.PredictOptions{
			TestRatio:   c.TestRatio,
			Seed:        c.Seed,
			NEstimators: c.NEstimators,
			MaxDepth:    c.MaxDepth,
		},
	}
	opt.Load.Delimiter = delim
	opt.Load.SheetName = runSheetName
	opt.Load.SheetIndex = runSheetIndex
	opt.Load.Index = firstNonEmpty(runIndexCol, c.IndexColumn)

	opt.Cleaning = cleaning.Options{Mode: cleaning.ModeDefault, OutlierMultiplier: req.IQR}
	if req.Custom {
		s, err := cleaning.ParseStrategy(strings.ToLower(strings.TrimSpace(req.Impute)))
		if err != nil {
			return pipeline.Options{}, err
		}
		opt.Cleaning.Mode = cleaning.ModeCustom
		opt.Cleaning.Impute = s
	}
	if req.IQR < 0 {
		return pipeline.Options{}, fmt.Errorf("IQR multiplier must be >= 0, got %v", req.IQR)
	}
	if c.HistoryEnabled && !runNoHistory {
		opt.HistoryDB = c.HistoryDB
	}
	return opt, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported --delimiter: %s", s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runCustom, "custom", false, "use custom cleaning (--impute for every column with missing values)")
	runCmd.Flags().StringVar(&runImpute, "impute", "mean", "imputation type for custom cleaning: mean|median|mode")
	runCmd.Flags().Float64Var(&runIQR, "iqr", 1.5, "IQR multiplier for outlier clipping (0 disables)")
	runCmd.Flags().StringVar(&runMode, "mode", "descriptive", "analysis mode: descriptive|predictive (or 1|2)")
	runCmd.Flags().IntVar(&runTopN, "top-n", 5, "number of top items to visualize")
	runCmd.Flags().StringVar(&runTarget, "target", "", "predictive: target column")
	runCmd.Flags().StringVar(&runModelType, "model-type", "", "predictive: classification|regression")
	runCmd.Flags().StringVarP(&runOutputDir, "output-dir", "o", "", "output directory (default from config, Report)")
	runCmd.Flags().StringVar(&runIndexCol, "index-col", "", "row index column ('none' disables temporal index detection)")
	runCmd.Flags().StringVar(&runDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe'")
	runCmd.Flags().StringVar(&runSheetName, "sheet-name", "", "XLSX: sheet name to load")
	runCmd.Flags().IntVar(&runSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	runCmd.Flags().StringVar(&runFormat, "format", "", "chart image format: png|svg|pdf")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "do not record this run in the history database")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "print only the report path")
	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "i", false, "ask for every option interactively")
}
