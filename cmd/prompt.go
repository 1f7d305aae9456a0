package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/KaramelBytes/dataloom-cli/internal/pipeline"
)

// prompter reads line answers for interactive runs.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// ask prints the question and returns the trimmed answer, or def when the answer is empty.
func (p prompter) ask(question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) && def != "" {
			fmt.Fprintln(p.out)
			return def, nil
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (p prompter) askYesNo(question string, def bool) (bool, error) {
	d := "no"
	if def {
		d = "yes"
	}
	for {
		ans, err := p.ask(question+" (yes/no)", d)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(ans) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer yes or no.")
	}
}

func (p prompter) askFloat(question string, def float64) (float64, error) {
	for {
		ans, err := p.ask(question, strconv.FormatFloat(def, 'f', -1, 64))
		if err != nil {
			return 0, err
		}
		v, perr := strconv.ParseFloat(ans, 64)
		if perr == nil && v >= 0 {
			return v, nil
		}
		fmt.Fprintln(p.out, "Please enter a non-negative number.")
	}
}

func (p prompter) askInt(question string, def int) (int, error) {
	for {
		ans, err := p.ask(question, strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		v, perr := strconv.Atoi(ans)
		if perr == nil && v >= 1 {
			return v, nil
		}
		fmt.Fprintln(p.out, "Please enter a whole number of at least 1.")
	}
}

// promptRun fills req from interactive answers. Values already in req are offered as defaults.
// An unknown analysis mode is not re-asked; it is reported by the caller.
func promptRun(in io.Reader, out io.Writer, req *runRequest) error {
	p := prompter{in: bufio.NewReader(in), out: out}
	fmt.Fprintln(out, "Hello! Let's analyze a dataset.")

	var err error
	for req.Path == "" {
		if req.Path, err = p.ask("Provide the dataset file path", ""); err != nil {
			return err
		}
	}
	if req.Custom, err = p.askYesNo("Use custom data cleaning options?", req.Custom); err != nil {
		return err
	}
	if req.Custom {
		if req.Impute, err = p.ask("Enter the imputation type (mean/median/mode)", req.Impute); err != nil {
			return err
		}
		def := req.IQR
		if def == 0 {
			def = 1.5
		}
		if req.IQR, err = p.askFloat("Enter the IQR multiplier for outlier removal", def); err != nil {
			return err
		}
	}

	if req.Mode, err = p.ask("Choose analysis mode: 1 for Descriptive, 2 for Predictive", "1"); err != nil {
		return err
	}
	mode, err := pipeline.ParseMode(req.Mode)
	if err != nil {
		return nil
	}
	switch mode {
	case pipeline.Descriptive:
		if req.TopN, err = p.askInt("Enter the number of top N items to visualize", req.TopN); err != nil {
			return err
		}
	case pipeline.Predictive:
		for req.Target == "" {
			if req.Target, err = p.ask("Enter the target column", ""); err != nil {
				return err
			}
		}
		if req.ModelType, err = p.ask("Enter model type (classification/regression)", req.ModelType); err != nil {
			return err
		}
	}
	return nil
}
