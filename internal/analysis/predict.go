package analysis

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/dataloom-cli/internal/dataset"
	"github.com/KaramelBytes/dataloom-cli/internal/model"
)

// Task is the predictive problem type.
type Task string

const (
	Classification Task = "classification"
	Regression     Task = "regression"
)

// Model names reported in results.
const (
	ModelLDA                    = "Linear Discriminant Analysis"
	ModelRandomForestClassifier = "Random Forest Classifier"
	ModelLinearRegression       = "Linear Regression"
	ModelRandomForestRegressor  = "Random Forest Regressor"
)

var (
	ErrUnknownTask = errors.New("unknown model type")
	ErrTargetKind  = errors.New("target column kind does not fit the model type")
	ErrTooFewRows  = errors.New("not enough rows to split into train and test sets")
)

// ParseTask normalizes a user supplied model type.
func ParseTask(s string) (Task, error) {
	switch Task(strings.ToLower(strings.TrimSpace(s))) {
	case Classification:
		return Classification, nil
	case Regression:
		return Regression, nil
	}
	return "", fmt.Errorf("%w: %q (use classification or regression)", ErrUnknownTask, s)
}

// PredictOptions controls the train/test benchmark. The zero value means
// DefaultPredictOptions; a zero TestRatio or NEstimators takes the default.
type PredictOptions struct {
	TestRatio   float64
	Seed        int64
	NEstimators int
	MaxDepth    int
}

// DefaultPredictOptions returns an 80/20 split seeded with 42 and 100 trees per forest.
func DefaultPredictOptions() PredictOptions {
	return PredictOptions{TestRatio: 0.2, Seed: 42, NEstimators: 100}
}

// ModelScore holds train and test scores for one model. Scores are accuracy
// for classification and R² for regression.
type ModelScore struct {
	Name  string  `json:"name"`
	Train float64 `json:"train_score"`
	Test  float64 `json:"test_score"`
}

// PredictResult is the outcome of a predictive run.
type PredictResult struct {
	Task      Task         `json:"task"`
	Target    string       `json:"target"`
	Features  []string     `json:"features"`
	TrainRows int          `json:"train_rows"`
	TestRows  int          `json:"test_rows"`
	Scores    []ModelScore `json:"scores"`
}

// Score looks up a model by name.
func (r *PredictResult) Score(name string) (ModelScore, bool) {
	for _, s := range r.Scores {
		if s.Name == name {
			return s, true
		}
	}
	return ModelScore{}, false
}

// Predict encodes features, splits rows, scales with training statistics
// only, fits both model families for the task and scores them.
func Predict(ds *dataset.Dataset, target string, task Task, opt PredictOptions) (*PredictResult, error) {
	tc, ok := ds.Column(target)
	if !ok {
		return nil, fmt.Errorf("target %q: %w", target, dataset.ErrColumnNotFound)
	}
	if _, err := ParseTask(string(task)); err != nil {
		return nil, err
	}
	def := DefaultPredictOptions()
	if opt == (PredictOptions{}) {
		opt = def
	}
	if opt.TestRatio == 0 {
		opt.TestRatio = def.TestRatio
	}
	if opt.NEstimators <= 0 {
		opt.NEstimators = def.NEstimators
	}
	feats, err := EncodeFeatures(ds, target)
	if err != nil {
		return nil, err
	}
	train, test, err := SplitIndices(ds.Rows(), opt.TestRatio, opt.Seed)
	if err != nil {
		return nil, err
	}
	var scaler StandardScaler
	scaler.Fit(Select(feats.Rows, train))
	xTrain := scaler.Transform(Select(feats.Rows, train))
	xTest := scaler.Transform(Select(feats.Rows, test))

	res := &PredictResult{
		Task:      task,
		Target:    target,
		Features:  feats.Names,
		TrainRows: len(train),
		TestRows:  len(test),
	}
	forest := []model.ForestOption{
		model.WithNEstimators(opt.NEstimators),
		model.WithMaxDepth(opt.MaxDepth),
		model.WithRandomState(opt.Seed),
	}
	if task == Classification {
		y, err := classLabels(tc)
		if err != nil {
			return nil, err
		}
		yTrain, yTest := Select(y, train), Select(y, test)
		models := []struct {
			name string
			m    model.Classifier
		}{
			{ModelLDA, model.NewLinearDiscriminant()},
			{ModelRandomForestClassifier, model.NewRandomForestClassifier(forest...)},
		}
		for _, c := range models {
			if err := c.m.Fit(xTrain, yTrain); err != nil {
				return nil, fmt.Errorf("fit %s: %w", c.name, err)
			}
			res.Scores = append(res.Scores, ModelScore{
				Name:  c.name,
				Train: model.Accuracy(yTrain, c.m.Predict(xTrain)),
				Test:  model.Accuracy(yTest, c.m.Predict(xTest)),
			})
		}
		return res, nil
	}

	if tc.Kind != dataset.Numeric {
		return nil, fmt.Errorf("%w: regression needs a numeric target, %q is %s", ErrTargetKind, target, tc.Kind)
	}
	if tc.MissingCount() > 0 {
		return nil, fmt.Errorf("target %q has missing values, clean the dataset first", target)
	}
	yTrain, yTest := Select(tc.Nums, train), Select(tc.Nums, test)
	models := []struct {
		name string
		m    model.Regressor
	}{
		{ModelLinearRegression, model.NewLinearRegression()},
		{ModelRandomForestRegressor, model.NewRandomForestRegressor(forest...)},
	}
	for _, r := range models {
		if err := r.m.Fit(xTrain, yTrain); err != nil {
			return nil, fmt.Errorf("fit %s: %w", r.name, err)
		}
		res.Scores = append(res.Scores, ModelScore{
			Name:  r.name,
			Train: model.R2(yTrain, r.m.Predict(xTrain)),
			Test:  model.R2(yTest, r.m.Predict(xTest)),
		})
	}
	return res, nil
}

// classLabels maps a categorical target to sorted level indices, or an
// integer-valued numeric target to its integers.
func classLabels(c *dataset.Column) ([]int, error) {
	if c.MissingCount() > 0 {
		return nil, fmt.Errorf("target %q has missing values, clean the dataset first", c.Name)
	}
	switch c.Kind {
	case dataset.Categorical:
		index := map[string]int{}
		for k, lv := range Levels(c.Strs) {
			index[lv] = k
		}
		y := make([]int, len(c.Strs))
		for i, s := range c.Strs {
			y[i] = index[s]
		}
		return y, nil
	case dataset.Numeric:
		y := make([]int, len(c.Nums))
		for i, v := range c.Nums {
			if v != math.Trunc(v) || math.Abs(v) > 1<<31 {
				return nil, fmt.Errorf("%w: classification needs discrete labels, %q is continuous", ErrTargetKind, c.Name)
			}
			y[i] = int(v)
		}
		return y, nil
	}
	return nil, fmt.Errorf("%w: %q is %s", ErrTargetKind, c.Name, c.Kind)
}
