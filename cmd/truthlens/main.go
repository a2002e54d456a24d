package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"truthlens/internal/analytics"
	"truthlens/internal/cache"
	"truthlens/internal/classifier"
	"truthlens/internal/cmdlog"
	"truthlens/internal/config"
	"truthlens/internal/corpus"
	"truthlens/internal/fetch"
	"truthlens/internal/jobs"
	"truthlens/internal/logging"
	"truthlens/internal/metrics"
	"truthlens/internal/model"
	"truthlens/internal/server"
	"truthlens/internal/store"
	"truthlens/internal/theme"
	"truthlens/internal/train"
)

const defaultConfig = "./truthlens.yaml"

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	var err error
	switch cmd {
	case "init":
		err = cmdlog.Run("init", cmdInit)
	case "import":
		err = cmdlog.Run("import", cmdImport)
	case "train":
		err = cmdlog.Run("train", cmdTrain)
	case "classify":
		err = cmdlog.Run("classify", cmdClassify)
	case "serve":
		err = cmdlog.Run("serve", cmdServe)
	case "performance":
		err = cmdlog.Run("performance", cmdPerformance)
	case "history":
		err = cmdlog.Run("history", cmdHistory)
	default:
		printHelp()
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: truthlens <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init         Create a config file at ./truthlens.yaml")
	fmt.Println("  import       Add a labelled corpus file (.csv or .jsonl) to the store")
	fmt.Println("  train        Train a model on the stored corpus and write the artifact")
	fmt.Println("  classify     Classify text, a file, or stdin")
	fmt.Println("  serve        Run the HTTP API with live model reload")
	fmt.Println("  performance  Show held-out metrics of the latest training run")
	fmt.Println("  history      Show recent verdicts")
}

// loadConfig reads the config file (defaults when absent) and applies the
// logging level.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return cfg, err
	}
	logging.SetLevel(cfg.Logging.Level)
	return cfg, nil
}

func openStore(cfg config.Config) (*store.DB, error) {
	return store.Open(cfg.Storage.Driver, cfg.Storage.DSN)
}

func cmdInit() error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", defaultConfig, "path to write config")
	_ = fs.Parse(os.Args[2:])
	if err := config.Save(*path, config.Default()); err != nil {
		return err
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
	return nil
}

func cmdImport() error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfig, "config path")
	file := fs.String("file", "", "corpus file (.csv with text,label header or .jsonl)")
	_ = fs.Parse(os.Args[2:])
	if *file == "" {
		return errors.New("-file is required")
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	samples, err := corpus.LoadFile(*file)
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	n, err := db.PutSamples(context.Background(), samples, filepath.Base(*file))
	if err != nil {
		return err
	}
	counts, err := db.CountSamples(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d new samples (%d read). Corpus: %d fake, %d real\n",
		n, len(samples), counts[model.LabelFake], counts[model.LabelReal])
	return nil
}

func cmdTrain() error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfig, "config path")
	file := fs.String("file", "", "optional corpus file to import before training")
	replicate := fs.Int("replicate", 0, "repeat the training split this many times (0 = config)")
	_ = fs.Parse(os.Args[2:])
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := context.Background()
	if *file != "" {
		samples, err := corpus.LoadFile(*file)
		if err != nil {
			return err
		}
		if _, err := db.PutSamples(ctx, samples, filepath.Base(*file)); err != nil {
			return err
		}
	}
	opts := cfg.TrainOptions()
	if *replicate > 0 {
		opts.Replicate = *replicate
	}
	res, err := jobs.RunTrainingOnce(ctx, db, opts, cfg.Model.ArtifactPath, cfg.Model.MetricsPath)
	if err != nil {
		return err
	}
	printMetrics(os.Stdout, res.Summary)
	fmt.Println("Model written to:", cfg.Model.ArtifactPath)
	return nil
}

func cmdClassify() error {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfig, "config path")
	text := fs.String("text", "", "text to classify (default: remaining args or stdin)")
	htmlFile := fs.String("html", "", "saved HTML article to classify")
	pageURL := fs.String("url", "", "article URL to download and classify")
	asJSON := fs.Bool("json", false, "print the verdict as JSON")
	record := fs.Bool("record", false, "log the verdict to the store")
	_ = fs.Parse(os.Args[2:])
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}

	input := *text
	switch {
	case input != "":
	case *htmlFile != "":
		f, err := os.Open(*htmlFile)
		if err != nil {
			return err
		}
		input, err = corpus.ExtractHTML(f)
		f.Close()
		if err != nil {
			return err
		}
	case *pageURL != "":
		input, err = fetch.NewClient().Article(context.Background(), *pageURL)
		if err != nil {
			return err
		}
	case fs.NArg() > 0:
		input = strings.Join(fs.Args(), " ")
	default:
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		input = string(b)
	}

	a, err := classifier.LoadArtifact(cfg.Model.ArtifactPath)
	if err != nil {
		if !errors.Is(err, classifier.ErrModelUnavailable) {
			return err
		}
		logging.Warn("model_unavailable", map[string]any{"path": cfg.Model.ArtifactPath, "fallback": true})
	}
	clf := classifier.New(a)
	start := time.Now()
	v, err := clf.Classify(input)
	if err != nil {
		if errors.Is(err, classifier.ErrInvalidInput) {
			metrics.InvalidInputs.Inc()
		}
		return err
	}
	metrics.ObserveClassify(string(v.Label), string(v.Source), start)

	if *record {
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if _, err := db.PutVerdict(context.Background(), time.Now(), strings.TrimSpace(input), v); err != nil {
			return err
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	printVerdict(os.Stdout, v)
	return nil
}

func printVerdict(w io.Writer, v model.Verdict) {
	label := string(v.Label)
	if theme.IsTerminal(w) {
		label = theme.Label(label)
	}
	fmt.Fprintf(w, "%s  %.1f%%  (%s", label, v.Confidence*100, v.Source)
	if v.ModelVersion != "" {
		fmt.Fprintf(w, ", model %s", v.ModelVersion)
	}
	fmt.Fprintf(w, ", %d words)\n", v.TokenCount)
	for _, s := range v.Signals {
		fmt.Fprintln(w, "  -", s)
	}
}

func cmdServe() error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfig, "config path")
	addr := fs.String("addr", "", "listen address (default from config)")
	_ = fs.Parse(os.Args[2:])
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	theme.PrintBanner()
	metrics.StartServer(cfg.Server.MetricsAddr)

	var db *store.DB
	if cfg.Storage.DSN != "" {
		db, err = openStore(cfg)
		if err != nil {
			logging.Warn("store_unavailable", map[string]any{"error": err.Error()})
			db = nil
		} else {
			defer db.Close()
			logging.Info("store_open", map[string]any{"driver": db.Driver()})
		}
	}

	clf := classifier.New(nil)
	reloader := jobs.NewReloader(clf, cfg.Model.ArtifactPath)
	if _, err := reloader.ReloadOnce(ctx); err != nil {
		logging.Error("model_load_error", map[string]any{"error": err.Error()})
	}
	if clf.Artifact() == nil {
		logging.Warn("model_unavailable", map[string]any{"path": cfg.Model.ArtifactPath, "fallback": true})
	}
	if cfg.Model.ReloadInterval > 0 {
		go func() { _ = jobs.RunReloadLoop(ctx, reloader, cfg.Model.ReloadInterval) }()
	}

	verdictCache := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.TTL)
	if c, ok := verdictCache.(io.Closer); ok {
		defer c.Close()
	}

	srv := server.New(server.Options{
		Classifier:  clf,
		Store:       db,
		Cache:       verdictCache,
		Fetcher:     fetch.NewClient(),
		MetricsPath: cfg.Model.MetricsPath,
		RPS:         cfg.Server.RPS,
		Burst:       cfg.Server.Burst,
		Latency:     cfg.Server.SimulatedLatency,
	})
	return srv.Run(ctx, cfg.Server.Addr)
}

func cmdPerformance() error {
	fs := flag.NewFlagSet("performance", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfig, "config path")
	_ = fs.Parse(os.Args[2:])
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	m, err := train.LoadMetrics(cfg.Model.MetricsPath)
	if errors.Is(err, os.ErrNotExist) {
		db, dbErr := openStore(cfg)
		if dbErr != nil {
			return dbErr
		}
		defer db.Close()
		m, err = db.LatestTrainingRun(context.Background())
		if errors.Is(err, store.ErrNotFound) {
			return errors.New("no training run recorded; run `truthlens train` first")
		}
	}
	if err != nil {
		return err
	}
	printMetrics(os.Stdout, m)
	return nil
}

func printMetrics(w io.Writer, m model.MetricsSummary) {
	fmt.Fprintf(w, "Run %s trained %s\n", m.RunID, m.TrainedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Samples: %d total, %d train, %d test, vocabulary %d\n", m.TotalSamples, m.TrainSamples, m.TestSamples, m.VocabularySize)
	fmt.Fprintf(w, "Accuracy %.1f%%  ROC-AUC %.3f\n", m.Accuracy*100, m.ROCAUC)
	fmt.Fprintf(w, "FAKE precision %.3f recall %.3f\n", m.PrecisionFake, m.RecallFake)
	fmt.Fprintf(w, "REAL precision %.3f recall %.3f\n", m.PrecisionReal, m.RecallReal)
	cm := m.ConfusionMatrix
	fmt.Fprintf(w, "Confusion (rows true, cols predicted FAKE/REAL): [%d %d] [%d %d]\n", cm[0][0], cm[0][1], cm[1][0], cm[1][1])
	fmt.Fprintf(w, "Converged: %v after %d iterations\n", m.Converged, m.Iterations)
	for _, warn := range m.Warnings {
		fmt.Fprintln(w, "warning:", warn)
	}
}

func cmdHistory() error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfig, "config path")
	limit := fs.Int("limit", 20, "number of verdicts")
	hourly := fs.Bool("hourly", false, "show per-hour FAKE/REAL counts instead of verdicts")
	_ = fs.Parse(os.Args[2:])
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	recs, err := db.RecentVerdicts(context.Background(), *limit)
	if err != nil {
		return err
	}
	if *hourly {
		buckets := analytics.HourlyVerdicts(recs)
		for _, b := range buckets {
			fmt.Printf("%s  fake=%d real=%d fallback=%d\n", b.Hour.Format("2006-01-02 15:00"), b.Fake, b.Real, b.Fallback)
		}
		fmt.Printf("FAKE share: %.1f%%\n", analytics.FakeShare(buckets)*100)
		return nil
	}
	for _, r := range recs {
		excerpt := []rune(r.Text)
		if len(excerpt) > 60 {
			excerpt = append(excerpt[:60], '…')
		}
		fmt.Printf("%s  %-4s %5.1f%%  %-8s %s\n", r.CreatedAt.Format(time.RFC3339), r.Verdict.Label, r.Verdict.Confidence*100, r.Verdict.Source, string(excerpt))
	}
	return nil
}
