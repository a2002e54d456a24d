// Package classifier is the inference boundary: text in, Verdict out.
package classifier

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"truthlens/internal/features"
	"truthlens/internal/linear"
	"truthlens/internal/model"
	"truthlens/internal/signals"
	"truthlens/internal/textnorm"
	"truthlens/internal/util"
)

// MinTextLen is the shortest accepted input, in characters.
const MinTextLen = 20

// ErrInvalidInput rejects empty or too-short text before any processing.
var ErrInvalidInput = errors.New("classifier: invalid input")

// Classifier serves verdicts from the currently loaded artifact. The artifact
// is swapped as one pointer, so concurrent Classify calls always see a
// matching vocabulary and model.
type Classifier struct {
	current atomic.Pointer[Artifact]
}

// New returns a classifier serving a (nil means fallback only).
func New(a *Artifact) *Classifier {
	c := &Classifier{}
	if a != nil {
		c.current.Store(a)
	}
	return c
}

// Swap installs a new artifact and returns the previous one. Passing nil
// drops back to the fallback heuristic.
func (c *Classifier) Swap(a *Artifact) *Artifact {
	return c.current.Swap(a)
}

// Artifact returns the artifact in use, or nil.
func (c *Classifier) Artifact() *Artifact {
	return c.current.Load()
}

// Validate applies the input rules without classifying.
func Validate(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("%w: no text provided", ErrInvalidInput)
	}
	if n := util.RuneLen(trimmed); n < MinTextLen {
		return "", fmt.Errorf("%w: text too short (%d characters, minimum %d)", ErrInvalidInput, n, MinTextLen)
	}
	return trimmed, nil
}

// Classify returns a verdict for text. It fails only with ErrInvalidInput.
func (c *Classifier) Classify(text string) (model.Verdict, error) {
	return ClassifyWith(c.current.Load(), text)
}

// ClassifyWith classifies text against a, which callers load once when the
// verdict must match a version they already hold. A nil a uses the fallback.
func ClassifyWith(a *Artifact, text string) (model.Verdict, error) {
	trimmed, err := Validate(text)
	if err != nil {
		return model.Verdict{}, err
	}
	v := model.Verdict{
		Signals:    signals.Detect(trimmed),
		TokenCount: util.WordCount(trimmed),
	}

	if a == nil {
		v.Label, v.Confidence = model.FallbackVerdict(trimmed)
		v.Source = model.SourceFallback
		return v, nil
	}
	p := ScoreReal(a, trimmed)
	v.Label, v.Confidence = linear.Decide(p)
	v.Source = model.SourceModel
	v.PReal = &p
	v.ModelVersion = a.Version
	return v, nil
}

// PredictProba returns (pFake, pReal) from the loaded model.
func (c *Classifier) PredictProba(text string) (float64, float64, error) {
	a := c.current.Load()
	if a == nil {
		return 0, 0, ErrModelUnavailable
	}
	p := ScoreReal(a, text)
	return 1 - p, p, nil
}

// ScoreReal runs normalize, transform and score against one artifact.
func ScoreReal(a *Artifact, text string) float64 {
	fv := features.Transform(textnorm.Normalize(text), a.Vocab)
	p := a.Model.Score(fv)
	if a.Model.PositiveLabel == model.LabelFake {
		p = 1 - p
	}
	return p
}
