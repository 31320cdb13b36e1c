package dataset

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/cocoeval/internal/coco"
	"github.com/banshee-data/cocoeval/internal/cocoeval"
	"github.com/banshee-data/cocoeval/internal/fsutil"
	"github.com/banshee-data/cocoeval/internal/monitoring"
	"github.com/banshee-data/cocoeval/internal/recall"
	"github.com/banshee-data/cocoeval/internal/serializer"
)

// Metric families.
const (
	MetricBBox         = "bbox"
	MetricSegm         = "segm"
	MetricProposal     = "proposal"
	MetricProposalFast = "proposal_fast"
)

var (
	ErrUnsupportedMetric       = errors.New("metric is not supported")
	ErrUnsupportedMetricItem   = errors.New("metric item is not supported")
	ErrLengthMismatch          = serializer.ErrLengthMismatch
	ErrProposalFastUnsupported = errors.New("proposal_fast does not accept results with masks")
)

// EmptyPredictionsError reports a metric whose prediction artifact held no
// usable records. Evaluation stops at that metric.
type EmptyPredictionsError struct {
	Metric string
	Err    error
}

func (e *EmptyPredictionsError) Error() string {
	return fmt.Sprintf("%s: the testing results of the whole dataset are empty: %v", e.Metric, e.Err)
}

func (e *EmptyPredictionsError) Unwrap() error { return e.Err }

// metricItems maps item names to summary statistics.
var metricItems = map[string]cocoeval.Stat{
	"mAP":       cocoeval.StatMAP,
	"mAP_50":    cocoeval.StatMAP50,
	"mAP_75":    cocoeval.StatMAP75,
	"mAP_s":     cocoeval.StatMAPSmall,
	"mAP_m":     cocoeval.StatMAPMedium,
	"mAP_l":     cocoeval.StatMAPLarge,
	"AR@100":    cocoeval.StatAR1,
	"AR@300":    cocoeval.StatAR2,
	"AR@1000":   cocoeval.StatAR3,
	"AR_s@1000": cocoeval.StatARSmall,
	"AR_m@1000": cocoeval.StatARMedium,
	"AR_l@1000": cocoeval.StatARLarge,
}

var (
	precisionItems = []string{"mAP", "mAP_50", "mAP_75", "mAP_s", "mAP_m", "mAP_l"}
	recallItems    = []string{"AR@100", "AR@300", "AR@1000", "AR_s@1000", "AR_m@1000", "AR_l@1000"}
)

// DefaultProposalNums are the proposal budgets used when none are given.
var DefaultProposalNums = []int{100, 300, 1000}

// EvaluateOptions controls Evaluate. Zero values select defaults.
type EvaluateOptions struct {
	// Metrics defaults to bbox.
	Metrics []string
	// Prefix is where artifacts are written, e.g. "work/results". When empty
	// a temporary directory is used and removed before returning.
	Prefix       string
	Classwise    bool
	ProposalNums []int
	IoUThrs      []float64
	// MetricItems overrides the reported items of every COCO family.
	MetricItems []string
	FS          fsutil.FileSystem
}

// EvalResult holds everything produced by Evaluate.
type EvalResult struct {
	Metrics *Metrics
	// CopyPaste holds the six precision stats of each family as one line.
	CopyPaste map[string]string
	// Summaries holds the text summary of each COCO family.
	Summaries   map[string]string
	PerCategory map[string][]cocoeval.CategoryAP
	// Accumulations keeps the precision and recall arrays of each COCO
	// family for plotting.
	Accumulations map[string]*cocoeval.Accumulation
	// Err is set when evaluation stopped early on empty predictions.
	Err error
}

func newEvalResult() *EvalResult {
	return &EvalResult{
		Metrics:       NewMetrics(),
		CopyPaste:     make(map[string]string),
		Summaries:     make(map[string]string),
		PerCategory:   make(map[string][]cocoeval.CategoryAP),
		Accumulations: make(map[string]*cocoeval.Accumulation),
	}
}

// Evaluate scores results against the active images. Every argument is
// checked before anything is written. If ctx is cancelled between metrics,
// the metrics finished so far are returned along with ctx.Err().
func (d *Dataset) Evaluate(ctx context.Context, results serializer.Results, opts EvaluateOptions) (*EvalResult, error) {
	metrics := opts.Metrics
	if len(metrics) == 0 {
		metrics = []string{MetricBBox}
	}
	for _, m := range metrics {
		switch m {
		case MetricBBox, MetricSegm, MetricProposal, MetricProposalFast:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedMetric, m)
		}
	}
	for _, item := range opts.MetricItems {
		if _, ok := metricItems[item]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedMetricItem, item)
		}
	}
	if results == nil {
		return nil, fmt.Errorf("%w: nil results", serializer.ErrUnsupportedResultShape)
	}
	if results.Len() != d.Len() {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, results.Len(), d.Len())
	}
	needFiles := false
	for _, m := range metrics {
		if m == MetricProposalFast {
			if results.Kind() == serializer.KindDetectionsWithMasks {
				return nil, ErrProposalFastUnsupported
			}
			continue
		}
		needFiles = true
	}

	proposalNums := opts.ProposalNums
	if len(proposalNums) == 0 {
		proposalNums = DefaultProposalNums
	}
	iouThrs := opts.IoUThrs
	if len(iouThrs) == 0 {
		iouThrs = cocoeval.DefaultIoUThresholds()
	}
	fsys := opts.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}

	var artifacts serializer.Artifacts
	if needFiles {
		prefix := opts.Prefix
		if prefix == "" {
			scratch := fsutil.NewScratchDir(fsys, "cocoeval-")
			defer func() {
				if err := scratch.Release(); err != nil {
					monitoring.Logf("dataset: failed to remove scratch directory: %v", err)
				}
			}()
			p, err := scratch.Join("results")
			if err != nil {
				return nil, fmt.Errorf("failed to create scratch directory: %w", err)
			}
			prefix = p
		}
		var err error
		artifacts, err = serializer.WriteArtifacts(fsys, results, d.ImageIDs(), d.catIDs, prefix)
		if err != nil {
			return nil, err
		}
	}

	out := newEvalResult()
	for _, metric := range metrics {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		monitoring.Logf("Evaluating %s...", metric)

		if metric == MetricProposalFast {
			ar, err := d.FastEvalRecall(results, proposalNums, iouThrs)
			if err != nil {
				return nil, err
			}
			var lines []string
			for i, num := range proposalNums {
				out.Metrics.Set(fmt.Sprintf("AR@%d", num), round3(ar[i]))
				lines = append(lines, fmt.Sprintf("AR@%d\t%.4f", num, ar[i]))
			}
			monitoring.Logf("\n%s", strings.Join(lines, "\n"))
			continue
		}

		path, ok := artifacts[metric]
		if !ok {
			return nil, fmt.Errorf("%s is not in results of kind %s", metric, results.Kind())
		}
		stop, err := d.evaluateFamily(metric, path, fsys, proposalNums, iouThrs, opts, out)
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}
	}
	return out, nil
}

// evaluateFamily runs the COCO protocol for one metric. It reports stop when
// the predictions were empty.
func (d *Dataset) evaluateFamily(metric, path string, fsys fsutil.FileSystem, proposalNums []int, iouThrs []float64, opts EvaluateOptions, out *EvalResult) (bool, error) {
	start := time.Now()
	recs, err := serializer.ReadRecords(fsys, path)
	if err == nil && metric == MetricSegm {
		stripped := false
		for i := range recs {
			if recs[i].BBox != nil {
				recs[i].BBox = nil
				stripped = true
			}
		}
		if stripped {
			monitoring.WarnOnce("segm-bbox",
				"boxes are dropped from segm results so that areas and boxes are taken from the masks")
		}
	}
	var dt *coco.Index
	if err == nil {
		dt, err = d.store.LoadResults(recs)
		if err != nil && !errors.Is(err, coco.ErrEmptyResults) {
			return false, fmt.Errorf("%s: %w", metric, err)
		}
	}
	if err != nil {
		out.Err = &EmptyPredictionsError{Metric: metric, Err: err}
		monitoring.Logf("error: %v", out.Err)
		return true, nil
	}

	iouType := cocoeval.IoUType(metric)
	if metric == MetricProposal {
		iouType = cocoeval.IoUBBox
	}
	p := cocoeval.DefaultParams(iouType)
	p.CatIDs = d.CatIDs()
	p.ImgIDs = d.ImageIDs()
	p.MaxDets = append([]int(nil), proposalNums...)
	p.IoUThrs = append([]float64(nil), iouThrs...)
	if metric == MetricProposal {
		p.UseCats = false
	}

	ev, err := cocoeval.New(d.store, dt, p)
	if err != nil {
		return false, err
	}
	if err := ev.Evaluate(); err != nil {
		return false, fmt.Errorf("%s: %w", metric, err)
	}
	acc, err := ev.Accumulate()
	if err != nil {
		return false, err
	}
	stats, err := ev.Summarize()
	if err != nil {
		return false, err
	}
	text, err := ev.SummaryText()
	if err != nil {
		return false, err
	}
	monitoring.Logf("\n%s", text)
	out.Summaries[metric] = text
	out.Accumulations[metric] = acc

	items := opts.MetricItems
	if metric == MetricProposal {
		if len(items) == 0 {
			items = recallItems
		}
		for _, item := range items {
			out.Metrics.Set(item, round3(stats[metricItems[item]]))
		}
		monitoring.Logf("dataset: %s evaluated in %s", metric, time.Since(start).Round(time.Millisecond))
		return false, nil
	}

	if opts.Classwise {
		per, err := ev.PerCategoryAP()
		if err != nil {
			return false, err
		}
		for i := range per {
			per[i].AP = round3(per[i].AP)
		}
		out.PerCategory[metric] = per
		monitoring.Logf("\n%s", categoryTable(per))
	}
	if len(items) == 0 {
		items = precisionItems
	}
	for _, item := range items {
		out.Metrics.Set(metric+"_"+item, round3(stats[metricItems[item]]))
	}
	var cp []string
	for _, s := range stats[:6] {
		cp = append(cp, fmt.Sprintf("%.3f", s))
	}
	out.CopyPaste[metric] = strings.Join(cp, " ")
	monitoring.Logf("dataset: %s evaluated in %s", metric, time.Since(start).Round(time.Millisecond))
	return false, nil
}

// categoryTable lays per-category AP out in up to three name/AP column pairs.
func categoryTable(per []cocoeval.CategoryAP) string {
	cols := min(6, 2*len(per))
	if cols == 0 {
		return ""
	}
	pairs := cols / 2
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	var header []string
	for i := 0; i < pairs; i++ {
		header = append(header, "category", "AP")
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i := 0; i < len(per); i += pairs {
		var row []string
		for j := i; j < i+pairs && j < len(per); j++ {
			row = append(row, per[j].Name, formatAP(per[j].AP))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
	return b.String()
}

func formatAP(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return fmt.Sprintf("%0.3f", v)
}

// FastEvalRecall computes average recall of results, treated as
// class-agnostic proposals, at each budget in proposalNums. Ground truth is
// every non-ignored, non-crowd box of each active image regardless of class.
func (d *Dataset) FastEvalRecall(results serializer.Results, proposalNums []int, iouThrs []float64) ([]float64, error) {
	if results == nil {
		return nil, fmt.Errorf("%w: nil results", serializer.ErrUnsupportedResultShape)
	}
	if results.Kind() == serializer.KindDetectionsWithMasks {
		return nil, ErrProposalFastUnsupported
	}
	if results.Len() != d.Len() {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, results.Len(), d.Len())
	}
	gts := make([][][4]float64, len(d.images))
	for i, img := range d.images {
		gts[i] = [][4]float64{}
		for _, a := range d.store.ImageAnnotations(img.ID) {
			if a.Ignore || a.IsCrowd || len(a.BBox) != 4 {
				continue
			}
			gts[i] = append(gts[i], serializer.XYXY(a.BBox))
		}
	}
	recalls, err := recall.EvalRecalls(gts, serializer.BoxesPerImage(results), proposalNums, iouThrs)
	if err != nil {
		return nil, err
	}
	return recall.AverageRecall(recalls), nil
}
