// Package train fits the feature extractor and classifier on a labelled corpus
// and evaluates them on a stratified held-out split.
package train

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"truthlens/internal/classifier"
	"truthlens/internal/features"
	"truthlens/internal/linear"
	"truthlens/internal/logging"
	"truthlens/internal/metrics"
	"truthlens/internal/model"
	"truthlens/internal/textnorm"
)

// Options configures one training run.
type Options struct {
	TestFraction float64          `yaml:"testFraction"`
	Seed         int64            `yaml:"seed"`
	Replicate    int              `yaml:"replicate"`
	Features     features.Options `yaml:"features"`
	Linear       linear.Options   `yaml:"linear"`
}

// DefaultOptions is an 80/20 split with seed 42.
func DefaultOptions() Options {
	return Options{
		TestFraction: 0.2,
		Seed:         42,
		Replicate:    1,
		Features:     features.DefaultOptions(),
		Linear:       linear.DefaultOptions(),
	}
}

var ErrTooFewSamples = errors.New("train: need at least two samples of each label")

// Split partitions samples per label with a seeded shuffle, so both splits
// keep the label proportions. Every label keeps at least one training sample.
func Split(samples []model.Sample, testFraction float64, seed int64) (trainSet, testSet []model.Sample) {
	byLabel := map[model.Label][]model.Sample{}
	for _, s := range samples {
		byLabel[s.Label] = append(byLabel[s.Label], s)
	}
	rng := rand.New(rand.NewSource(seed))
	for _, l := range []model.Label{model.LabelFake, model.LabelReal} {
		group := byLabel[l]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		nTest := int(math.Ceil(testFraction * float64(len(group))))
		if nTest >= len(group) {
			nTest = len(group) - 1
		}
		if nTest < 0 {
			nTest = 0
		}
		testSet = append(testSet, group[:nTest]...)
		trainSet = append(trainSet, group[nTest:]...)
	}
	rng.Shuffle(len(trainSet), func(i, j int) { trainSet[i], trainSet[j] = trainSet[j], trainSet[i] })
	rng.Shuffle(len(testSet), func(i, j int) { testSet[i], testSet[j] = testSet[j], testSet[i] })
	return trainSet, testSet
}

// Run trains on samples and returns the artifact and its held-out metrics.
// Non-convergence is recorded in MetricsSummary.Warnings.
func Run(samples []model.Sample, opts Options) (*classifier.Artifact, model.MetricsSummary, error) {
	var summary model.MetricsSummary
	counts := map[model.Label]int{}
	for _, s := range samples {
		counts[s.Label]++
	}
	if counts[model.LabelFake] < 2 || counts[model.LabelReal] < 2 {
		return nil, summary, fmt.Errorf("%w: %d fake, %d real", ErrTooFewSamples, counts[model.LabelFake], counts[model.LabelReal])
	}
	start := time.Now()
	metrics.TrainingRuns.Inc()

	trainSet, testSet := Split(samples, opts.TestFraction, opts.Seed)
	fitSet := trainSet
	for r := 1; r < opts.Replicate; r++ {
		fitSet = append(fitSet, trainSet...)
	}

	corpus := make([][]string, len(fitSet))
	ys := make([]int, len(fitSet))
	for i, s := range fitSet {
		corpus[i] = textnorm.Normalize(s.Text)
		ys[i] = s.Label.Binary()
	}
	vocab, xs := features.Fit(corpus, opts.Features)
	m, rep, err := linear.Train(xs, ys, vocab.Len(), opts.Linear)
	if err != nil {
		return nil, summary, fmt.Errorf("train classifier: %w", err)
	}

	runID := uuid.NewString()
	trainedAt := time.Now().UTC()
	a, err := classifier.NewArtifact(runID, trainedAt, vocab, m)
	if err != nil {
		return nil, summary, err
	}

	summary = Evaluate(a, testSet)
	summary.RunID = runID
	summary.TrainedAt = trainedAt
	summary.TotalSamples = len(samples)
	summary.TrainSamples = len(trainSet)
	summary.TestSamples = len(testSet)
	summary.VocabularySize = vocab.Len()
	summary.Converged = rep.Converged
	summary.Iterations = rep.Iterations
	if !rep.Converged {
		metrics.TrainingNonConvergence.Inc()
		summary.Warnings = append(summary.Warnings, rep.Warning)
		logging.Warn("training_nonconvergence", map[string]any{"run_id": runID, "iterations": rep.Iterations, "status": rep.Status})
	}
	logging.Info("training_done", map[string]any{
		"run_id":     runID,
		"train":      len(trainSet),
		"test":       len(testSet),
		"vocabulary": vocab.Len(),
		"accuracy":   summary.Accuracy,
		"roc_auc":    summary.ROCAUC,
		"took_ms":    time.Since(start).Milliseconds(),
	})
	return a, summary, nil
}

// Evaluate scores testSet against a and fills accuracy, ROC-AUC, per-class
// precision and recall and the confusion matrix (rows: true FAKE, REAL;
// columns: predicted FAKE, REAL).
func Evaluate(a *classifier.Artifact, testSet []model.Sample) model.MetricsSummary {
	var out model.MetricsSummary
	if len(testSet) == 0 {
		out.Warnings = append(out.Warnings, "empty evaluation split")
		return out
	}
	type scored struct {
		p    float64
		real bool
	}
	rows := make([]scored, len(testSet))
	correct := 0
	for i, s := range testSet {
		p := classifier.ScoreReal(a, s.Text)
		pred, _ := linear.Decide(p)
		out.ConfusionMatrix[s.Label.Binary()][pred.Binary()]++
		if pred == s.Label {
			correct++
		}
		rows[i] = scored{p: p, real: s.Label == model.LabelReal}
	}
	out.Accuracy = float64(correct) / float64(len(testSet))

	cm := out.ConfusionMatrix
	out.PrecisionFake = ratio(cm[0][0], cm[0][0]+cm[1][0])
	out.RecallFake = ratio(cm[0][0], cm[0][0]+cm[0][1])
	out.PrecisionReal = ratio(cm[1][1], cm[1][1]+cm[0][1])
	out.RecallReal = ratio(cm[1][1], cm[1][1]+cm[1][0])

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].p < rows[j].p })
	y := make([]float64, len(rows))
	classes := make([]bool, len(rows))
	pos := 0
	for i, r := range rows {
		y[i] = r.p
		classes[i] = r.real
		if r.real {
			pos++
		}
	}
	if pos == 0 || pos == len(rows) {
		out.Warnings = append(out.Warnings, "ROC-AUC undefined: evaluation split has a single label")
		return out
	}
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	out.ROCAUC = integrate.Trapezoidal(fpr, tpr)
	return out
}

func ratio(num, den int) float64 {
	if den < 1 {
		den = 1
	}
	return float64(num) / float64(den)
}

// SaveMetrics writes the metrics artifact. It is kept apart from the model
// artifact and is never read on the inference path.
func SaveMetrics(path string, m model.MetricsSummary) error {
	if path == "" {
		return errors.New("empty metrics path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadMetrics reads a metrics artifact.
func LoadMetrics(path string) (model.MetricsSummary, error) {
	var m model.MetricsSummary
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("decode metrics: %w", err)
	}
	return m, nil
}
