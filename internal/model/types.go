package model

import (
	"strings"
	"time"
)

// Label is the verdict class.
type Label string

const (
	LabelFake Label = "FAKE"
	LabelReal Label = "REAL"
)

// ParseLabel accepts real/fake in any case as well as 1/0 and true/false
// (true meaning real).
func ParseLabel(s string) (Label, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "real", "1", "true":
		return LabelReal, true
	case "fake", "0", "false":
		return LabelFake, true
	}
	return "", false
}

// Binary returns 1 for REAL and 0 for FAKE.
func (l Label) Binary() int {
	if l == LabelReal {
		return 1
	}
	return 0
}

// Source says where a verdict's confidence came from.
type Source string

const (
	// SourceModel means the confidence is a calibrated probability.
	SourceModel Source = "model"
	// SourceFallback means no trained model was loaded and the confidence is a
	// fixed heuristic value.
	SourceFallback Source = "fallback"
)

// Verdict is the result of classifying one document. It is built once and
// never mutated.
type Verdict struct {
	Label        Label    `json:"label"`
	Confidence   float64  `json:"confidence"`
	Signals      []string `json:"signals"`
	TokenCount   int      `json:"token_count"`
	Source       Source   `json:"source"`
	PReal        *float64 `json:"p_real,omitempty"`
	ModelVersion string   `json:"model_version,omitempty"`
}

// Probabilities returns (pFake, pReal) as reported to users. For fallback
// verdicts these are derived from the fixed confidence, not a model.
func (v Verdict) Probabilities() (float64, float64) {
	if v.PReal != nil {
		return 1 - *v.PReal, *v.PReal
	}
	if v.Label == LabelReal {
		return 1 - v.Confidence, v.Confidence
	}
	return v.Confidence, 1 - v.Confidence
}

// Sample is one labelled training document.
type Sample struct {
	Text  string `json:"text"`
	Label Label  `json:"label"`
}

// MetricsSummary is held-out evaluation data for one training run. It is
// reporting data only; inference never reads it.
type MetricsSummary struct {
	RunID           string    `json:"run_id"`
	TrainedAt       time.Time `json:"trained_at"`
	Accuracy        float64   `json:"accuracy"`
	ROCAUC          float64   `json:"roc_auc"`
	PrecisionFake   float64   `json:"precision_fake"`
	RecallFake      float64   `json:"recall_fake"`
	PrecisionReal   float64   `json:"precision_real"`
	RecallReal      float64   `json:"recall_real"`
	ConfusionMatrix [2][2]int `json:"confusion_matrix"`
	TotalSamples    int       `json:"total_samples"`
	TrainSamples    int       `json:"train_samples"`
	TestSamples     int       `json:"test_samples"`
	VocabularySize  int       `json:"vocabulary_size"`
	Converged       bool      `json:"converged"`
	Iterations      int       `json:"iterations"`
	Warnings        []string  `json:"warnings,omitempty"`
}
