// Package store persists the labelled corpus, the verdict log and training
// run summaries in SQLite or Postgres.
package store

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"truthlens/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// DB wraps a SQL database holding samples, verdicts and training runs.
type DB struct {
	sql    *sql.DB
	driver string
	sb     sq.StatementBuilderType
}

// Open connects to driver ("sqlite" or "postgres") and creates missing tables.
func Open(driver, dsn string) (*DB, error) {
	var ph sq.PlaceholderFormat
	switch driver {
	case "sqlite", "":
		driver, ph = "sqlite", sq.Question
	case "postgres":
		ph = sq.Dollar
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
	d, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		if dsn == ":memory:" {
			// each connection would get its own empty database
			d.SetMaxOpenConns(1)
		}
		if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
			_ = d.Close()
			return nil, err
		}
	}
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d, driver: driver, sb: sq.StatementBuilder.PlaceholderFormat(ph)}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

// Driver reports the database/sql driver name in use.
func (d *DB) Driver() string { return d.driver }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS samples (
	  id TEXT PRIMARY KEY,
	  text_hash TEXT NOT NULL UNIQUE,
	  text TEXT NOT NULL,
	  label TEXT NOT NULL,
	  source TEXT,
	  added_at BIGINT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS verdicts (
	  id TEXT PRIMARY KEY,
	  created_at BIGINT NOT NULL,
	  text TEXT NOT NULL,
	  label TEXT NOT NULL,
	  confidence DOUBLE PRECISION NOT NULL,
	  p_real DOUBLE PRECISION,
	  source TEXT NOT NULL,
	  model_version TEXT,
	  token_count INTEGER NOT NULL,
	  signals TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_verdicts_created ON verdicts(created_at);
	CREATE TABLE IF NOT EXISTS training_runs (
	  id TEXT PRIMARY KEY,
	  trained_at BIGINT NOT NULL,
	  accuracy DOUBLE PRECISION,
	  roc_auc DOUBLE PRECISION,
	  summary TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_trained ON training_runs(trained_at);
	`)
	return err
}

// TextHash identifies a document independent of where it came from.
func TextHash(text string) string {
	h := sha1.Sum([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(h[:])
}

// PutSamples adds labelled documents, skipping texts already stored. It
// returns how many rows were inserted.
func (d *DB) PutSamples(ctx context.Context, samples []model.Sample, source string) (int, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	now := time.Now().UTC().UnixNano()
	inserted := 0
	for _, s := range samples {
		q, args, err := d.sb.Insert("samples").
			Columns("id", "text_hash", "text", "label", "source", "added_at").
			Values(uuid.NewString(), TextHash(s.Text), s.Text, string(s.Label), source, now).
			Suffix("ON CONFLICT (text_hash) DO NOTHING").
			ToSql()
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, fmt.Errorf("insert sample: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// LoadSamples returns every stored sample in a stable order.
func (d *DB) LoadSamples(ctx context.Context) ([]model.Sample, error) {
	q, args, err := d.sb.Select("text", "label").From("samples").OrderBy("text_hash").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Sample
	for rows.Next() {
		var text, label string
		if err := rows.Scan(&text, &label); err != nil {
			return nil, err
		}
		out = append(out, model.Sample{Text: text, Label: model.Label(label)})
	}
	return out, rows.Err()
}

// CountSamples returns the stored corpus size per label.
func (d *DB) CountSamples(ctx context.Context) (map[model.Label]int, error) {
	return d.countByLabel(ctx, "samples")
}

// CountVerdictsByLabel returns how many verdicts of each label were logged.
func (d *DB) CountVerdictsByLabel(ctx context.Context) (map[model.Label]int, error) {
	return d.countByLabel(ctx, "verdicts")
}

func (d *DB) countByLabel(ctx context.Context, table string) (map[model.Label]int, error) {
	q, args, err := d.sb.Select("label", "COUNT(*)").From(table).GroupBy("label").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.Label]int{model.LabelFake: 0, model.LabelReal: 0}
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		out[model.Label(label)] = n
	}
	return out, rows.Err()
}

// VerdictRecord is one logged classification.
type VerdictRecord struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Text      string        `json:"text"`
	Verdict   model.Verdict `json:"verdict"`
}

// PutVerdict logs a verdict and returns its id.
func (d *DB) PutVerdict(ctx context.Context, at time.Time, text string, v model.Verdict) (string, error) {
	sig, _ := json.Marshal(v.Signals)
	id := uuid.NewString()
	q, args, err := d.sb.Insert("verdicts").
		Columns("id", "created_at", "text", "label", "confidence", "p_real", "source", "model_version", "token_count", "signals").
		Values(id, at.UTC().UnixNano(), text, string(v.Label), v.Confidence, v.PReal, string(v.Source), v.ModelVersion, v.TokenCount, string(sig)).
		ToSql()
	if err != nil {
		return "", err
	}
	if _, err := d.sql.ExecContext(ctx, q, args...); err != nil {
		return "", fmt.Errorf("insert verdict: %w", err)
	}
	return id, nil
}

// RecentVerdicts returns up to limit verdicts, newest first.
func (d *DB) RecentVerdicts(ctx context.Context, limit int) ([]VerdictRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	q, args, err := d.sb.
		Select("id", "created_at", "text", "label", "confidence", "p_real", "source", "model_version", "token_count", "signals").
		From("verdicts").
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VerdictRecord
	for rows.Next() {
		var (
			r       VerdictRecord
			ts      int64
			label   string
			source  string
			pReal   sql.NullFloat64
			version sql.NullString
			sig     sql.NullString
		)
		if err := rows.Scan(&r.ID, &ts, &r.Text, &label, &r.Verdict.Confidence, &pReal, &source, &version, &r.Verdict.TokenCount, &sig); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, ts).UTC()
		r.Verdict.Label = model.Label(label)
		r.Verdict.Source = model.Source(source)
		r.Verdict.ModelVersion = version.String
		if pReal.Valid {
			p := pReal.Float64
			r.Verdict.PReal = &p
		}
		r.Verdict.Signals = []string{}
		if sig.Valid && sig.String != "" {
			if err := json.Unmarshal([]byte(sig.String), &r.Verdict.Signals); err != nil {
				return nil, fmt.Errorf("decode signals for %s: %w", r.ID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PutTrainingRun records a run's metrics summary.
func (d *DB) PutTrainingRun(ctx context.Context, m model.MetricsSummary) error {
	if m.RunID == "" {
		m.RunID = uuid.NewString()
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	q, args, err := d.sb.Insert("training_runs").
		Columns("id", "trained_at", "accuracy", "roc_auc", "summary").
		Values(m.RunID, m.TrainedAt.UTC().UnixNano(), m.Accuracy, m.ROCAUC, string(b)).
		ToSql()
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx, q, args...)
	return err
}

// LatestTrainingRun returns the most recently trained run, or ErrNotFound.
func (d *DB) LatestTrainingRun(ctx context.Context) (model.MetricsSummary, error) {
	var m model.MetricsSummary
	q, args, err := d.sb.Select("summary").From("training_runs").OrderBy("trained_at DESC").Limit(1).ToSql()
	if err != nil {
		return m, err
	}
	var raw string
	if err := d.sql.QueryRowContext(ctx, q, args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, ErrNotFound
		}
		return m, err
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return m, fmt.Errorf("decode training run: %w", err)
	}
	return m, nil
}
