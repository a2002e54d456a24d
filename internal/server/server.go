// Package server exposes the classifier over HTTP: a JSON prediction API,
// training metrics, verdict statistics and a live verdict feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"truthlens/internal/analytics"
	"truthlens/internal/cache"
	"truthlens/internal/classifier"
	"truthlens/internal/corpus"
	"truthlens/internal/logging"
	"truthlens/internal/metrics"
	"truthlens/internal/model"
	"truthlens/internal/signals"
	"truthlens/internal/store"
	"truthlens/internal/train"
)

const maxBodyBytes = 1 << 20

// ArticleFetcher turns a URL into article text.
type ArticleFetcher interface {
	Article(ctx context.Context, rawURL string) (string, error)
}

// Options wires the server's collaborators. Only Classifier is required.
type Options struct {
	Classifier  *classifier.Classifier
	Store       *store.DB
	Cache       cache.VerdictCache
	Fetcher     ArticleFetcher
	MetricsPath string
	RPS         float64
	Burst       int
	// Delay before answering a prediction
	Latency time.Duration
}

type Server struct {
	clf         *classifier.Classifier
	db          *store.DB
	cache       cache.VerdictCache
	fetcher     ArticleFetcher
	hub         *Hub
	limiter     *clientLimiter
	metricsPath string
	latency     time.Duration
	now         func() time.Time
}

func New(opts Options) *Server {
	c := opts.Cache
	if c == nil {
		c = cache.Nop{}
	}
	return &Server{
		clf:         opts.Classifier,
		db:          opts.Store,
		cache:       c,
		fetcher:     opts.Fetcher,
		hub:         NewHub(),
		limiter:     newClientLimiter(opts.RPS, opts.Burst),
		metricsPath: opts.MetricsPath,
		latency:     opts.Latency,
		now:         time.Now,
	}
}

// Hub returns the live verdict feed.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/api/predict", s.handlePredict)
	mux.HandleFunc("/api/performance", s.handlePerformance)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/ws/verdicts", s.handleVerdictStream)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logging.Info("server_listening", map[string]any{"addr": addr})
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	logging.Info("server_stopped", nil)
	return err
}

type predictRequest struct {
	Text string `json:"text"`
	HTML string `json:"html"`
	URL  string `json:"url"`
}

// PredictResponse is the /api/predict payload. Confidence is a percentage
// with one decimal; the probabilities are fractions with three.
type PredictResponse struct {
	Label           model.Label  `json:"label"`
	Confidence      float64      `json:"confidence"`
	Signals         []string     `json:"signals"`
	ProcessedLength int          `json:"processed_length"`
	FakeProb        float64      `json:"fake_prob"`
	RealProb        float64      `json:"real_prob"`
	Source          model.Source `json:"source"`
	ModelVersion    string       `json:"model_version,omitempty"`
	Cached          bool         `json:"cached,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if !s.limiter.Allow(clientKey(r)) {
		metrics.RateLimited.Inc()
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}
	var req predictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		metrics.InvalidInputs.Inc()
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	text := req.Text
	if strings.TrimSpace(text) == "" && req.HTML != "" {
		extracted, err := corpus.ExtractHTML(strings.NewReader(req.HTML))
		if err != nil {
			metrics.InvalidInputs.Inc()
			writeError(w, http.StatusBadRequest, "Could not read HTML")
			return
		}
		text = extracted
	}
	if strings.TrimSpace(text) == "" && req.URL != "" {
		if s.fetcher == nil {
			writeError(w, http.StatusBadRequest, "URL fetching is disabled")
			return
		}
		fetched, err := s.fetcher.Article(r.Context(), req.URL)
		if err != nil {
			logging.Warn("fetch_error", map[string]any{"url": req.URL, "error": err.Error()})
			writeError(w, http.StatusBadGateway, "Could not fetch URL")
			return
		}
		text = fetched
	}
	trimmed, err := classifier.Validate(text)
	if err != nil {
		metrics.InvalidInputs.Inc()
		msg := "Text too short (minimum 20 characters)"
		if strings.TrimSpace(text) == "" {
			msg = "No text provided"
		}
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-r.Context().Done():
			return
		}
	}

	start := time.Now()
	a := s.clf.Artifact()
	version := "fallback"
	if a != nil {
		version = a.Version
	}
	v, hit, err := s.cache.Get(r.Context(), version, trimmed)
	if err != nil {
		logging.Warn("cache_get_error", map[string]any{"error": err.Error()})
	}
	if !hit {
		v, err = classifier.ClassifyWith(a, trimmed)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.cache.Set(r.Context(), version, trimmed, v); err != nil {
			logging.Warn("cache_set_error", map[string]any{"error": err.Error()})
		}
	}
	metrics.ObserveClassify(string(v.Label), string(v.Source), start)
	for _, msg := range v.Signals {
		if k, ok := signals.KindOf(msg); ok {
			metrics.IncSignal(string(k))
		}
	}
	s.record(r.Context(), trimmed, v)

	pFake, pReal := v.Probabilities()
	writeJSON(w, http.StatusOK, PredictResponse{
		Label:           v.Label,
		Confidence:      round(v.Confidence*100, 1),
		Signals:         v.Signals,
		ProcessedLength: v.TokenCount,
		FakeProb:        round(pFake, 3),
		RealProb:        round(pReal, 3),
		Source:          v.Source,
		ModelVersion:    v.ModelVersion,
		Cached:          hit,
	})
}

// record logs the verdict to the store and the live feed.
func (s *Server) record(ctx context.Context, text string, v model.Verdict) {
	at := s.now().UTC()
	if s.db != nil {
		if _, err := s.db.PutVerdict(ctx, at, text, v); err != nil {
			logging.Error("verdict_store_error", map[string]any{"error": err.Error()})
		}
	}
	excerpt := []rune(text)
	if len(excerpt) > 120 {
		excerpt = excerpt[:120]
	}
	s.hub.Publish(Event{
		At:           at,
		Label:        string(v.Label),
		Confidence:   v.Confidence,
		Signals:      v.Signals,
		Source:       string(v.Source),
		ModelVersion: v.ModelVersion,
		Excerpt:      string(excerpt),
	})
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	if s.metricsPath != "" {
		m, err := train.LoadMetrics(s.metricsPath)
		if err == nil {
			writeJSON(w, http.StatusOK, m)
			return
		}
		if !errors.Is(err, os.ErrNotExist) {
			logging.Error("metrics_read_error", map[string]any{"error": err.Error()})
			writeError(w, http.StatusInternalServerError, "Could not read metrics")
			return
		}
	}
	if s.db != nil {
		m, err := s.db.LatestTrainingRun(r.Context())
		if err == nil {
			writeJSON(w, http.StatusOK, m)
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "Could not read metrics")
			return
		}
	}
	writeError(w, http.StatusNotFound, "No trained model metrics available")
}

type statsResponse struct {
	Verdicts     map[model.Label]int `json:"verdicts"`
	Samples      map[model.Label]int `json:"samples"`
	Hourly       []analytics.Bucket  `json:"hourly"`
	FakeShare    float64             `json:"fake_share"`
	ModelLoaded  bool                `json:"model_loaded"`
	ModelVersion string              `json:"model_version,omitempty"`
	Subscribers  int                 `json:"subscribers"`
}

const statsWindow = 500

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "No store configured")
		return
	}
	verdicts, err := s.db.CountVerdictsByLabel(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	samples, err := s.db.CountSamples(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	recent, err := s.db.RecentVerdicts(r.Context(), statsWindow)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	hourly := analytics.HourlyVerdicts(recent)
	resp := statsResponse{
		Verdicts:    verdicts,
		Samples:     samples,
		Hourly:      hourly,
		FakeShare:   analytics.FakeShare(hourly),
		Subscribers: s.hub.Subscribers(),
	}
	if a := s.clf.Artifact(); a != nil {
		resp.ModelLoaded, resp.ModelVersion = true, a.Version
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok", "model_loaded": false}
	if a := s.clf.Artifact(); a != nil {
		resp["model_loaded"] = true
		resp["model_version"] = a.Version
	}
	writeJSON(w, http.StatusOK, resp)
}
