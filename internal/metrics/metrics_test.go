package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposure(t *testing.T) {
	ObserveClassify("FAKE", "model", time.Now().Add(-3*time.Millisecond))
	InvalidInputs.Inc()
	IncSignal("clickbait")
	TrainingRuns.Inc()
	TrainingNonConvergence.Inc()
	ModelSwaps.Inc()
	IncCommandRun("train")
	IncCommandError("train")
	RateLimited.Inc()
	IncFetchRetry("example.com")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		`truthlens_classify_total{label="FAKE",source="model"}`,
		"truthlens_invalid_input_total",
		"truthlens_classify_duration_seconds",
		`truthlens_signals_total{kind="clickbait"}`,
		"truthlens_training_runs_total",
		"truthlens_training_nonconvergence_total",
		"truthlens_model_swaps_total",
		`truthlens_command_runs_total{cmd="train"}`,
		`truthlens_command_errors_total{cmd="train"}`,
		"truthlens_rate_limited_total",
		`truthlens_fetch_retries_total{host="example.com"}`,
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metric %s in body", m)
		}
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status: %d", rec.Code)
	}
}
