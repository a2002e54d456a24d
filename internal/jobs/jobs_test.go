package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"truthlens/internal/classifier"
	"truthlens/internal/corpus"
	"truthlens/internal/model"
	"truthlens/internal/store"
	"truthlens/internal/train"
)

func seededDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	samples, err := corpus.LoadFile(filepath.Join("..", "..", "data", "sample_corpus.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.PutSamples(context.Background(), samples, "test"); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestTrainThenReload(t *testing.T) {
	ctx := context.Background()
	db := seededDB(t)
	dir := t.TempDir()
	artifactPath := filepath.Join(dir, "model.json")
	metricsPath := filepath.Join(dir, "metrics.json")

	clf := classifier.New(nil)
	r := NewReloader(clf, artifactPath)
	if swapped, err := r.ReloadOnce(ctx); err != nil || swapped {
		t.Fatalf("missing artifact should be a no-op: %v %v", swapped, err)
	}

	res, err := RunTrainingOnce(ctx, db, train.DefaultOptions(), artifactPath, metricsPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(metricsPath); err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	latest, err := db.LatestTrainingRun(ctx)
	if err != nil || latest.RunID != res.Summary.RunID {
		t.Fatalf("training run not recorded: %v %+v", err, latest)
	}

	swapped, err := r.ReloadOnce(ctx)
	if err != nil || !swapped {
		t.Fatalf("expected swap: %v %v", swapped, err)
	}
	if clf.Artifact() == nil || clf.Artifact().Version != res.Artifact.Version {
		t.Fatalf("classifier not serving the new artifact")
	}
	v, err := clf.Classify("Reserve Bank of India kept interest rates unchanged at 6.5 percent")
	if err != nil || v.Source != model.SourceModel {
		t.Fatalf("expected model verdict: %+v %v", v, err)
	}

	if swapped, err := r.ReloadOnce(ctx); err != nil || swapped {
		t.Fatalf("unchanged file must not swap: %v %v", swapped, err)
	}
}

func TestCorruptArtifactKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	res, err := RunTrainingOnce(ctx, seededDB(t), train.DefaultOptions(), path, "")
	if err != nil {
		t.Fatal(err)
	}
	clf := classifier.New(nil)
	r := NewReloader(clf, path)
	if _, err := r.ReloadOnce(ctx); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour)
	_ = os.Chtimes(path, future, future)
	if _, err := r.ReloadOnce(ctx); err == nil {
		t.Fatalf("expected decode error")
	}
	if clf.Artifact() == nil || clf.Artifact().Version != res.Artifact.Version {
		t.Fatalf("previous artifact must stay in service")
	}
}

func TestRunReloadLoopStops(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	r := NewReloader(classifier.New(nil), filepath.Join(t.TempDir(), "absent.json"))
	if err := RunReloadLoop(ctx, r, 10*time.Millisecond); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
