package jobs

import (
	"context"
	"fmt"

	"truthlens/internal/classifier"
	"truthlens/internal/model"
	"truthlens/internal/store"
	"truthlens/internal/train"
)

// TrainResult is what one training job produced.
type TrainResult struct {
	Artifact *classifier.Artifact
	Summary  model.MetricsSummary
}

// RunTrainingOnce trains on the stored corpus, writes the artifact and metrics
// files and records the run. A running server picks the artifact up through
// its Reloader.
func RunTrainingOnce(ctx context.Context, db *store.DB, opts train.Options, artifactPath, metricsPath string) (TrainResult, error) {
	samples, err := db.LoadSamples(ctx)
	if err != nil {
		return TrainResult{}, fmt.Errorf("load samples: %w", err)
	}
	a, sum, err := train.Run(samples, opts)
	if err != nil {
		return TrainResult{}, err
	}
	if err := classifier.SaveArtifact(artifactPath, a); err != nil {
		return TrainResult{}, fmt.Errorf("save artifact: %w", err)
	}
	if metricsPath != "" {
		if err := train.SaveMetrics(metricsPath, sum); err != nil {
			return TrainResult{}, fmt.Errorf("save metrics: %w", err)
		}
	}
	if err := db.PutTrainingRun(ctx, sum); err != nil {
		return TrainResult{}, fmt.Errorf("record run: %w", err)
	}
	return TrainResult{Artifact: a, Summary: sum}, nil
}
