package db

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cocoeval/internal/cocoeval"
	"github.com/banshee-data/cocoeval/internal/dataset"
)

func ptr(v float64) *float64 { return &v }

func sampleResult() *dataset.EvalResult {
	m := dataset.NewMetrics()
	m.Set("bbox_mAP", 0.5)
	m.Set("bbox_mAP_50", 0.75)
	m.Set("bbox_mAP_s", -1)
	m.Set("bbox_mAP_l", math.NaN())
	return &dataset.EvalResult{
		Metrics:   m,
		CopyPaste: map[string]string{"bbox": "0.500 0.750 0.000 -1.000 0.000 nan"},
		Summaries: map[string]string{"bbox": " Average Precision ...\n"},
		PerCategory: map[string][]cocoeval.CategoryAP{
			"bbox": {
				{CategoryID: 1, Name: "cat", AP: 0.5},
				{CategoryID: 2, Name: "dog", AP: math.NaN()},
			},
		},
	}
}

func TestNewRun(t *testing.T) {
	run := NewRun("ann.json", "results.json", []string{"bbox"}, sampleResult())

	want := &Run{
		AnnFile:     "ann.json",
		ResultsFile: "results.json",
		Families:    []string{"bbox"},
		Metrics: []MetricValue{
			{Key: "bbox_mAP", Value: ptr(0.5)},
			{Key: "bbox_mAP_50", Value: ptr(0.75)},
			{Key: "bbox_mAP_s", Value: ptr(-1)},
			{Key: "bbox_mAP_l"},
		},
		PerCategory: []CategoryAP{
			{Family: "bbox", CategoryID: 1, Name: "cat", AP: ptr(0.5)},
			{Family: "bbox", CategoryID: 2, Name: "dog"},
		},
		Summaries: []FamilySummary{
			{Family: "bbox", CopyPaste: "0.500 0.750 0.000 -1.000 0.000 nan", Summary: " Average Precision ...\n"},
		},
	}
	if diff := cmp.Diff(want, run); diff != "" {
		t.Errorf("NewRun mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRunTruncated(t *testing.T) {
	res := sampleResult()
	res.Err = &dataset.EmptyPredictionsError{Metric: "segm", Err: errors.New("no predictions")}
	run := NewRun("ann.json", "r", []string{"bbox", "segm"}, res)
	assert.True(t, run.Truncated)
	assert.Contains(t, run.Error, "segm")
	// segm never produced output.
	assert.Len(t, run.Summaries, 1)
}

func TestRunStoreInsertGet(t *testing.T) {
	store := NewRunStore(newTestDB(t))
	run := NewRun("ann.json", "results.json", []string{"bbox"}, sampleResult())

	require.NoError(t, store.Insert(run))
	assert.NotEmpty(t, run.RunID)
	assert.NotZero(t, run.CreatedAt)

	got, err := store.Get(run.RunID)
	require.NoError(t, err)
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}

	v, ok := got.Metric("bbox_mAP_l")
	assert.True(t, ok)
	assert.Nil(t, v)
	_, ok = got.Metric("segm_mAP")
	assert.False(t, ok)
	assert.Len(t, got.CategoryAPs("bbox"), 2)
	assert.Empty(t, got.CategoryAPs("segm"))
}

func TestRunStoreInsertKeepsIDs(t *testing.T) {
	store := NewRunStore(newTestDB(t))
	run := &Run{RunID: "fixed", AnnFile: "a", ResultsFile: "b", CreatedAt: 42, Truncated: true, Error: "stopped"}
	require.NoError(t, store.Insert(run))

	got, err := store.Get("fixed")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.CreatedAt)
	assert.True(t, got.Truncated)
	assert.Equal(t, "stopped", got.Error)
	assert.Nil(t, got.Families)
	assert.Empty(t, got.Metrics)

	// Duplicate ids are rejected and leave nothing behind.
	dup := &Run{RunID: "fixed", AnnFile: "x", ResultsFile: "y", Metrics: []MetricValue{{Key: "k", Value: ptr(1)}}}
	assert.Error(t, store.Insert(dup))
	got, err = store.Get("fixed")
	require.NoError(t, err)
	assert.Empty(t, got.Metrics)
}

func TestRunStoreGetNotFound(t *testing.T) {
	store := NewRunStore(newTestDB(t))
	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunStoreList(t *testing.T) {
	store := NewRunStore(newTestDB(t))
	for i := 1; i <= 3; i++ {
		run := NewRun(fmt.Sprintf("ann%d.json", i), "r.json", []string{"bbox"}, sampleResult())
		run.CreatedAt = int64(i)
		require.NoError(t, store.Insert(run))
	}

	runs, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "ann3.json", runs[0].AnnFile)
	assert.Equal(t, "ann1.json", runs[2].AnnFile)
	assert.Len(t, runs[0].Metrics, 4)
	// List leaves the heavy details to Get.
	assert.Empty(t, runs[0].PerCategory)

	runs, err = store.List(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunStoreDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	store := NewRunStore(db)
	run := NewRun("ann.json", "results.json", []string{"bbox"}, sampleResult())
	require.NoError(t, store.Insert(run))

	require.NoError(t, store.Delete(run.RunID))
	_, err := store.Get(run.RunID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	for _, table := range []string{"eval_metrics", "eval_category_ap", "eval_summaries"} {
		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, table)
	}

	assert.ErrorIs(t, store.Delete(run.RunID), ErrRunNotFound)
}

func TestRetryOnBusy(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{name: "success", errs: []error{nil}, wantCalls: 1},
		{name: "busy then success", errs: []error{errors.New("database is locked"), nil}, wantCalls: 2},
		{name: "other error", errs: []error{errors.New("constraint failed")}, wantCalls: 1, wantErr: true},
		{
			name:      "always busy",
			errs:      []error{errors.New("SQLITE_BUSY")},
			wantCalls: busyRetries,
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := retryOnBusy(func() error {
				e := tt.errs[min(calls, len(tt.errs)-1)]
				calls++
				return e
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
