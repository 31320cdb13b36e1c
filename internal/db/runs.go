package db

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/cocoeval/internal/dataset"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("evaluation run not found")

// MetricValue is one reported metric. Value is nil when the metric was not
// a finite number.
type MetricValue struct {
	Key   string   `json:"key"`
	Value *float64 `json:"value"`
}

// CategoryAP is the per-category precision of one metric family. AP is nil
// for categories without ground truth.
type CategoryAP struct {
	Family     string   `json:"family"`
	CategoryID int64    `json:"category_id"`
	Name       string   `json:"name"`
	AP         *float64 `json:"ap"`
}

// FamilySummary keeps the printed summary of one COCO family.
type FamilySummary struct {
	Family    string `json:"family"`
	CopyPaste string `json:"copypaste"`
	Summary   string `json:"summary"`
}

// Run is one persisted evaluation.
type Run struct {
	RunID       string          `json:"run_id"`
	AnnFile     string          `json:"ann_file"`
	ResultsFile string          `json:"results_file"`
	Families    []string        `json:"families"`
	Metrics     []MetricValue   `json:"metrics"`
	PerCategory []CategoryAP    `json:"per_category,omitempty"`
	Summaries   []FamilySummary `json:"summaries,omitempty"`
	// Truncated is set when evaluation stopped early on empty predictions.
	Truncated bool   `json:"truncated"`
	Error     string `json:"error,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// Metric returns the value stored under key.
func (r *Run) Metric(key string) (*float64, bool) {
	for _, m := range r.Metrics {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// CategoryAPs returns the per-category entries of family.
func (r *Run) CategoryAPs(family string) []CategoryAP {
	var out []CategoryAP
	for _, c := range r.PerCategory {
		if c.Family == family {
			out = append(out, c)
		}
	}
	return out
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NewRun captures an evaluation result for storage. Families are listed in
// the order they were requested.
func NewRun(annFile, resultsFile string, families []string, res *dataset.EvalResult) *Run {
	run := &Run{
		AnnFile:     annFile,
		ResultsFile: resultsFile,
		Families:    append([]string(nil), families...),
	}
	for _, k := range res.Metrics.Keys() {
		v, _ := res.Metrics.Get(k)
		run.Metrics = append(run.Metrics, MetricValue{Key: k, Value: finite(v)})
	}
	for _, fam := range families {
		for _, c := range res.PerCategory[fam] {
			run.PerCategory = append(run.PerCategory, CategoryAP{
				Family:     fam,
				CategoryID: c.CategoryID,
				Name:       c.Name,
				AP:         finite(c.AP),
			})
		}
		if text, ok := res.Summaries[fam]; ok {
			run.Summaries = append(run.Summaries, FamilySummary{
				Family:    fam,
				CopyPaste: res.CopyPaste[fam],
				Summary:   text,
			})
		}
	}
	if res.Err != nil {
		run.Truncated = true
		run.Error = res.Err.Error()
	}
	return run
}

// RunStore provides persistence for evaluation runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.DB}
}

// Insert persists a run with its metrics. If RunID is empty, a UUID is
// generated.
func (s *RunStore) Insert(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}
	var errText interface{}
	if run.Error != "" {
		errText = run.Error
	}

	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`
			INSERT INTO eval_runs (run_id, ann_file, results_file, families, truncated, error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.AnnFile, run.ResultsFile, strings.Join(run.Families, ","),
			run.Truncated, errText, run.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for i, m := range run.Metrics {
			if _, err := tx.Exec(`INSERT INTO eval_metrics (run_id, position, key, value) VALUES (?, ?, ?, ?)`,
				run.RunID, i, m.Key, nullFloat(m.Value)); err != nil {
				return fmt.Errorf("insert metric %s: %w", m.Key, err)
			}
		}
		for _, c := range run.PerCategory {
			if _, err := tx.Exec(`
				INSERT INTO eval_category_ap (run_id, family, category_id, name, ap)
				VALUES (?, ?, ?, ?, ?)`,
				run.RunID, c.Family, c.CategoryID, c.Name, nullFloat(c.AP)); err != nil {
				return fmt.Errorf("insert category ap %d: %w", c.CategoryID, err)
			}
		}
		for _, f := range run.Summaries {
			if _, err := tx.Exec(`INSERT INTO eval_summaries (run_id, family, copypaste, summary) VALUES (?, ?, ?, ?)`,
				run.RunID, f.Family, f.CopyPaste, f.Summary); err != nil {
				return fmt.Errorf("insert summary %s: %w", f.Family, err)
			}
		}
		return tx.Commit()
	})
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// Get returns a run with its metrics, per-category precision and summaries.
func (s *RunStore) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, ann_file, results_file, families, truncated, error, created_at
		FROM eval_runs
		WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	if err := s.loadDetails(run); err != nil {
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs first, with their metrics. A limit of
// zero or less returns every run.
func (s *RunStore) List(limit int) ([]*Run, error) {
	query := `
		SELECT run_id, ann_file, results_file, families, truncated, error, created_at
		FROM eval_runs
		ORDER BY created_at DESC, run_id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, run := range runs {
		if err := s.loadMetrics(run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Delete removes a run and everything recorded for it.
func (s *RunStore) Delete(runID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM eval_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run      Run
		families string
		errText  sql.NullString
	)
	if err := row.Scan(&run.RunID, &run.AnnFile, &run.ResultsFile, &families,
		&run.Truncated, &errText, &run.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if families != "" {
		run.Families = strings.Split(families, ",")
	}
	run.Error = errText.String
	return &run, nil
}

func (s *RunStore) loadDetails(run *Run) error {
	if err := s.loadMetrics(run); err != nil {
		return err
	}

	rows, err := s.db.Query(`
		SELECT family, category_id, name, ap
		FROM eval_category_ap
		WHERE run_id = ?
		ORDER BY family, category_id`, run.RunID)
	if err != nil {
		return fmt.Errorf("query category ap: %w", err)
	}
	for rows.Next() {
		var c CategoryAP
		var ap sql.NullFloat64
		if err := rows.Scan(&c.Family, &c.CategoryID, &c.Name, &ap); err != nil {
			rows.Close()
			return fmt.Errorf("scan category ap: %w", err)
		}
		c.AP = floatPtr(ap)
		run.PerCategory = append(run.PerCategory, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	rows, err = s.db.Query(`
		SELECT family, copypaste, summary
		FROM eval_summaries
		WHERE run_id = ?
		ORDER BY family`, run.RunID)
	if err != nil {
		return fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f FamilySummary
		if err := rows.Scan(&f.Family, &f.CopyPaste, &f.Summary); err != nil {
			return fmt.Errorf("scan summary: %w", err)
		}
		run.Summaries = append(run.Summaries, f)
	}
	return rows.Err()
}

func (s *RunStore) loadMetrics(run *Run) error {
	rows, err := s.db.Query(`
		SELECT key, value
		FROM eval_metrics
		WHERE run_id = ?
		ORDER BY position`, run.RunID)
	if err != nil {
		return fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()
	run.Metrics = []MetricValue{}
	for rows.Next() {
		var m MetricValue
		var v sql.NullFloat64
		if err := rows.Scan(&m.Key, &v); err != nil {
			return fmt.Errorf("scan metric: %w", err)
		}
		m.Value = floatPtr(v)
		run.Metrics = append(run.Metrics, m)
	}
	return rows.Err()
}
