package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"truthlens/internal/features"
	"truthlens/internal/linear"
	"truthlens/internal/model"
)

// FormatVersion is bumped whenever the artifact layout or the normalizer
// changes in a way that invalidates trained weights.
const FormatVersion = 1

// ErrModelUnavailable means no trained artifact could be loaded. Callers fall
// back to the heuristic path.
var ErrModelUnavailable = errors.New("classifier: model unavailable")

// ErrIncompatibleArtifact means the vocabulary and model do not belong together.
var ErrIncompatibleArtifact = errors.New("classifier: incompatible artifact")

// Artifact is the inseparable pair of a vocabulary and the model trained on
// it. It is immutable once built.
type Artifact struct {
	Version   string
	TrainedAt time.Time
	Vocab     *features.Vocabulary
	Model     *linear.Model
}

// NewArtifact pairs a vocabulary with its model after checking dimensions.
func NewArtifact(version string, trainedAt time.Time, vocab *features.Vocabulary, m *linear.Model) (*Artifact, error) {
	if vocab == nil || m == nil {
		return nil, fmt.Errorf("%w: missing vocabulary or model", ErrIncompatibleArtifact)
	}
	if vocab.Len() != m.Dim() {
		return nil, fmt.Errorf("%w: vocabulary has %d entries, model has %d weights", ErrIncompatibleArtifact, vocab.Len(), m.Dim())
	}
	if m.PositiveLabel != model.LabelReal && m.PositiveLabel != model.LabelFake {
		return nil, fmt.Errorf("%w: unknown positive label %q", ErrIncompatibleArtifact, m.PositiveLabel)
	}
	return &Artifact{Version: version, TrainedAt: trainedAt, Vocab: vocab, Model: m}, nil
}

type artifactFile struct {
	Format    int               `json:"format"`
	Version   string            `json:"version"`
	TrainedAt time.Time         `json:"trained_at"`
	Vocab     features.Snapshot `json:"vocabulary"`
	Model     linear.Model      `json:"model"`
}

// MarshalJSON writes the artifact as one blob.
func (a *Artifact) MarshalJSON() ([]byte, error) {
	return json.Marshal(artifactFile{
		Format:    FormatVersion,
		Version:   a.Version,
		TrainedAt: a.TrainedAt,
		Vocab:     a.Vocab.Snapshot(),
		Model:     *a.Model,
	})
}

// DecodeArtifact parses and validates an artifact blob.
func DecodeArtifact(b []byte) (*Artifact, error) {
	var f artifactFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if f.Format != FormatVersion {
		return nil, fmt.Errorf("%w: format %d, want %d", ErrIncompatibleArtifact, f.Format, FormatVersion)
	}
	vocab, err := features.FromSnapshot(f.Vocab)
	if err != nil {
		return nil, err
	}
	m := f.Model
	return NewArtifact(f.Version, f.TrainedAt, vocab, &m)
}

// SaveArtifact writes the artifact to path atomically (temp file + rename) so
// a reloading server never reads a partial file.
func SaveArtifact(path string, a *Artifact) error {
	if path == "" {
		return errors.New("empty artifact path")
	}
	b, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadArtifact reads an artifact. A missing file is ErrModelUnavailable.
func LoadArtifact(path string) (*Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, path)
		}
		return nil, err
	}
	return DecodeArtifact(b)
}
