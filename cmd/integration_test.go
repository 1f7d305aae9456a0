package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/dataloom-cli/internal/pipeline"
	"github.com/KaramelBytes/dataloom-cli/internal/report"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so invocations do not leak state.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		_ = fl.Value.Set(fl.DefValue)
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd executes the root command with args and stdin, returning stdout and stderr.
func execCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, _, err := execCmd(t, "", args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// isolate points HOME at a temp dir so config and history stay local to the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeSales(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,region,units,price,revenue\n")
	regions := []string{"north", "south", "east"}
	for i := 0; i < 30; i++ {
		units := 10 + i%7
		price := 2.5 + float64(i%4)
		units2 := fmt.Sprint(units)
		if i == 5 {
			units2 = ""
		}
		fmt.Fprintf(&b, "2024-01-%02d,%s,%s,%.2f,%.2f\n", i+1, regions[i%3], units2, price, float64(units)*price)
	}
	p := filepath.Join(dir, "sales.csv")
	if err := os.WriteFile(p, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return p
}

func TestCLI_RunDescriptive_History(t *testing.T) {
	home := isolate(t)
	data := writeSales(t, home)
	outDir := filepath.Join(home, "Report")

	out := mustRun(t, "run", data, "--top-n", "2", "-o", outDir)
	for _, want := range []string{"Descriptive Statistics", "Cleaned dataset saved", "Report written to"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	for _, name := range []string{"analysis_report.txt", "cleaned.csv", "run.json"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	m, err := report.LoadManifest(outDir)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if len(m.Charts) == 0 {
		t.Fatalf("expected charts in manifest")
	}

	list := mustRun(t, "history")
	if !strings.Contains(list, m.ID) {
		t.Fatalf("history missing run %s:\n%s", m.ID, list)
	}
	show := mustRun(t, "history", "show", m.ID)
	if !strings.Contains(show, "Mode: descriptive") || !strings.Contains(show, "Charts (") {
		t.Fatalf("unexpected history show output:\n%s", show)
	}
}

func TestCLI_RunPredictive(t *testing.T) {
	home := isolate(t)
	data := writeSales(t, home)
	outDir := filepath.Join(home, "out")

	out := mustRun(t, "run", data, "--mode", "2", "--target", "revenue", "--model-type", "regression", "-o", outDir, "--no-history")
	for _, want := range []string{"Model Performance", "Linear Regression", "Random Forest Regressor"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	b, err := os.ReadFile(filepath.Join(outDir, "analysis_report.txt"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(b), "target: revenue") {
		t.Fatalf("report missing target:\n%s", b)
	}
	if _, err := os.Stat(filepath.Join(home, ".dataloom", "history.db")); !os.IsNotExist(err) {
		t.Fatalf("--no-history should not create the history db, stat err=%v", err)
	}
}

func TestCLI_RunInvalidMode(t *testing.T) {
	home := isolate(t)
	data := writeSales(t, home)
	outDir := filepath.Join(home, "out")

	_, errOut, err := execCmd(t, "", "run", data, "--mode", "3", "-o", outDir)
	if !errors.Is(err, pipeline.ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
	if !strings.Contains(errOut, "Invalid analysis mode selected.") {
		t.Fatalf("stderr missing message: %q", errOut)
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Fatalf("invalid mode should write nothing, stat err=%v", err)
	}
}

func TestCLI_RunInteractive(t *testing.T) {
	home := isolate(t)
	data := writeSales(t, home)
	outDir := filepath.Join(home, "out")

	answers := strings.Join([]string{data, "yes", "median", "0", "1", "2"}, "\n") + "\n"
	out, _, err := execCmd(t, answers, "run", "-i", "-o", outDir)
	if err != nil {
		t.Fatalf("interactive run: %v", err)
	}
	for _, want := range []string{
		"Provide the dataset file path",
		"Use custom data cleaning options? (yes/no)",
		"Enter the imputation type (mean/median/mode)",
		"Enter the IQR multiplier for outlier removal",
		"Choose analysis mode: 1 for Descriptive, 2 for Predictive",
		"Enter the number of top N items to visualize",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing prompt %q:\n%s", want, out)
		}
	}
	m, err := report.LoadManifest(outDir)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if m.Settings.Impute != "median" || m.Settings.TopN != 2 {
		t.Fatalf("answers not applied: %+v", m.Settings)
	}
}

func TestCLI_Clean(t *testing.T) {
	home := isolate(t)
	data := writeSales(t, home)
	dst := filepath.Join(home, "clean", "sales_clean.csv")

	out := mustRun(t, "clean", data, "--output", dst)
	if !strings.Contains(out, "Cleaned dataset saved to "+dst) {
		t.Fatalf("unexpected output:\n%s", out)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 31 || lines[0] != "date,region,units,price,revenue" {
		t.Fatalf("unexpected snapshot header/rows: %d lines, header %q", len(lines), lines[0])
	}
	if strings.Contains(string(b), ",,") {
		t.Fatalf("snapshot still has missing cells")
	}
}

func TestCLI_Profile(t *testing.T) {
	home := isolate(t)
	data := writeSales(t, home)

	out := mustRun(t, "profile", data)
	if !strings.Contains(out, "[DATASET SUMMARY]") || !strings.Contains(out, "Rows: 30") {
		t.Fatalf("unexpected profile:\n%s", out)
	}

	dir := filepath.Join(home, "profiles")
	mustRun(t, "profile", filepath.Join(home, "*.csv"), "-o", dir)
	mustRun(t, "profile", data, "-o", dir, "--quiet")
	for _, name := range []string{"sales.profile.md", "sales__2.profile.md"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolate(t)

	mustRun(t, "config", "set", "top_n", "7")
	if _, err := os.Stat(filepath.Join(home, ".dataloom", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out := mustRun(t, "config", "show")
	if !strings.Contains(out, "top_n: 7") {
		t.Fatalf("config show missing top_n:\n%s", out)
	}
	if _, _, err := execCmd(t, "", "config", "set", "chart_format", "gif"); err == nil {
		t.Fatalf("expected error for unsupported chart format")
	}
}
