package model

import "truthlens/internal/lexicon"

// Fixed confidences for the degraded path. They are not probabilities.
const (
	FallbackFakeConfidence = 0.78
	FallbackRealConfidence = 0.82
)

// FallbackVerdict labels text without a trained model: any sensational word
// means FAKE. The result is always marked SourceFallback.
func FallbackVerdict(text string) (Label, float64) {
	if lexicon.SensationalMatcher().Any(text) {
		return LabelFake, FallbackFakeConfidence
	}
	return LabelReal, FallbackRealConfidence
}
