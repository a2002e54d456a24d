package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Classifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "truthlens_classify_total",
		Help: "Verdicts returned, by label and source",
	}, []string{"label", "source"})
	InvalidInputs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "truthlens_invalid_input_total",
		Help: "Requests rejected before classification",
	})
	ClassifyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "truthlens_classify_duration_seconds",
		Help:    "Classification latency seconds",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	})
	SignalsRaised = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "truthlens_signals_total",
		Help: "Explanatory signals raised, by kind",
	}, []string{"kind"})
	TrainingRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "truthlens_training_runs_total",
		Help: "Total training runs",
	})
	TrainingNonConvergence = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "truthlens_training_nonconvergence_total",
		Help: "Training runs that hit the iteration limit",
	})
	ModelSwaps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "truthlens_model_swaps_total",
		Help: "Model artifacts hot-swapped into the classifier",
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "truthlens_command_runs_total",
		Help: "CLI command invocations",
	}, []string{"cmd"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "truthlens_command_errors_total",
		Help: "CLI command failures",
	}, []string{"cmd"})
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "truthlens_rate_limited_total",
		Help: "Requests refused by the rate limiter",
	})
	FetchRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "truthlens_fetch_retries_total",
		Help: "Article fetch retry attempts",
	}, []string{"host"})
)

func init() {
	prometheus.MustRegister(Classifications, InvalidInputs, ClassifyDuration, SignalsRaised,
		TrainingRuns, TrainingNonConvergence, ModelSwaps, CommandRuns, CommandErrors, RateLimited, FetchRetries)
}

// Handler serves /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	go func() { _ = http.ListenAndServe(addr, Handler()) }()
}

// ObserveClassify records one classification.
func ObserveClassify(label, source string, start time.Time) {
	Classifications.WithLabelValues(label, source).Inc()
	ClassifyDuration.Observe(time.Since(start).Seconds())
}

func IncSignal(kind string)      { SignalsRaised.WithLabelValues(kind).Inc() }
func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }

// IncFetchRetry increments the retry counter for a host.
func IncFetchRetry(host string) { FetchRetries.WithLabelValues(host).Inc() }
