package jobs

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"truthlens/internal/classifier"
	"truthlens/internal/logging"
	"truthlens/internal/metrics"
)

// Reloader watches an artifact file and hot-swaps it into a classifier when
// its modification time or size changes.
type Reloader struct {
	clf  *classifier.Classifier
	path string

	mu      sync.Mutex
	modTime time.Time
	size    int64
}

func NewReloader(clf *classifier.Classifier, path string) *Reloader {
	return &Reloader{clf: clf, path: path}
}

// ReloadOnce swaps in the artifact if the file changed since the last
// successful load. A missing file leaves the classifier untouched. A corrupt
// file is reported and the previous artifact stays in service.
func (r *Reloader) ReloadOnce(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	st, err := os.Stat(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if st.ModTime().Equal(r.modTime) && st.Size() == r.size {
		return false, nil
	}
	a, err := classifier.LoadArtifact(r.path)
	if err != nil {
		return false, err
	}
	prev := r.clf.Swap(a)
	r.modTime, r.size = st.ModTime(), st.Size()
	metrics.ModelSwaps.Inc()
	fields := map[string]any{"path": r.path, "version": a.Version, "vocabulary": a.Vocab.Len()}
	if prev != nil {
		fields["previous"] = prev.Version
	}
	logging.Info("model_swapped", fields)
	return true, nil
}

// RunReloadLoop checks immediately and then every interval until ctx ends.
func RunReloadLoop(ctx context.Context, r *Reloader, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	if _, err := r.ReloadOnce(ctx); err != nil {
		logging.Error("model_reload_error", map[string]any{"error": err.Error()})
	}
	for {
		select {
		case <-ctx.Done():
			logging.Info("reload_loop_stop", nil)
			return ctx.Err()
		case <-t.C:
			if _, err := r.ReloadOnce(ctx); err != nil {
				logging.Error("model_reload_error", map[string]any{"error": err.Error()})
			}
		}
	}
}
