package cocoeval

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Stat indexes the twelve summary statistics.
type Stat int

const (
	StatMAP Stat = iota
	StatMAP50
	StatMAP75
	StatMAPSmall
	StatMAPMedium
	StatMAPLarge
	StatAR1
	StatAR2
	StatAR3
	StatARSmall
	StatARMedium
	StatARLarge
	NumStats
)

// Stats holds the summary statistics. An entry is -1 when no cell
// contributed to it.
type Stats [NumStats]float64

// summaryLine describes how one statistic is reduced from the arrays.
type summaryLine struct {
	ap      bool
	iouThr  float64 // 0 for the mean over all thresholds
	area    string
	maxDetI int
}

func (e *Evaluator) summaryLines() [NumStats]summaryLine {
	last := len(e.evaluated.MaxDets) - 1
	at := func(i int) int { return min(i, last) }
	return [NumStats]summaryLine{
		{ap: true, area: "all", maxDetI: last},
		{ap: true, iouThr: 0.5, area: "all", maxDetI: at(2)},
		{ap: true, iouThr: 0.75, area: "all", maxDetI: at(2)},
		{ap: true, area: "small", maxDetI: at(2)},
		{ap: true, area: "medium", maxDetI: at(2)},
		{ap: true, area: "large", maxDetI: at(2)},
		{area: "all", maxDetI: at(0)},
		{area: "all", maxDetI: at(1)},
		{area: "all", maxDetI: at(2)},
		{area: "small", maxDetI: at(2)},
		{area: "medium", maxDetI: at(2)},
		{area: "large", maxDetI: at(2)},
	}
}

// Summarize reduces the accumulated arrays to the summary statistics,
// accumulating first if needed.
func (e *Evaluator) Summarize() (Stats, error) {
	if e.acc == nil {
		if _, err := e.Accumulate(); err != nil {
			return Stats{}, err
		}
	}
	var s Stats
	for i, l := range e.summaryLines() {
		s[i] = e.reduce(l)
	}
	e.stats = &s
	return s, nil
}

func (e *Evaluator) reduce(l summaryLine) float64 {
	p := e.acc.Params
	var vals []float64
	for a, rng := range p.AreaRanges {
		if rng.Label != l.area {
			continue
		}
		for t, thr := range p.IoUThrs {
			if l.iouThr != 0 && math.Abs(thr-l.iouThr) > 1e-9 {
				continue
			}
			if l.ap {
				vals = append(vals, e.acc.Precision.Slice(
					Fix{AxisIoU, t}, Fix{AxisArea, a}, Fix{AxisMaxDets, l.maxDetI})...)
			} else {
				vals = append(vals, e.acc.Recall.Slice(
					Fix{AxisIoU, t}, Fix{AxisArea, a}, Fix{AxisMaxDets, l.maxDetI})...)
			}
		}
	}
	return meanValid(vals, -1)
}

// meanValid averages the entries above -1, returning empty when none.
func meanValid(vals []float64, empty float64) float64 {
	valid := vals[:0:0]
	for _, v := range vals {
		if v > -1 {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return empty
	}
	return stat.Mean(valid, nil)
}

// SummaryText renders the statistics in the familiar twelve-line layout.
func (e *Evaluator) SummaryText() (string, error) {
	if e.stats == nil {
		if _, err := e.Summarize(); err != nil {
			return "", err
		}
	}
	p := e.acc.Params
	var b strings.Builder
	for i, l := range e.summaryLines() {
		title, typ := "Average Recall", "(AR)"
		if l.ap {
			title, typ = "Average Precision", "(AP)"
		}
		iou := fmt.Sprintf("%0.2f:%0.2f", p.IoUThrs[0], p.IoUThrs[len(p.IoUThrs)-1])
		if l.iouThr != 0 {
			iou = fmt.Sprintf("%0.2f", l.iouThr)
		}
		fmt.Fprintf(&b, " %-18s %s @[ IoU=%-9s | area=%6s | maxDets=%3d ] = %0.3f\n",
			title, typ, iou, l.area, p.MaxDets[l.maxDetI], e.stats[i])
	}
	return b.String(), nil
}

// CategoryAP is the mean precision of one category over all IoU thresholds
// and recall steps, at area "all" and the largest detection budget.
type CategoryAP struct {
	CategoryID int64
	Name       string
	// AP is NaN when the category has no ground truth.
	AP float64
}

// PerCategoryAP returns one entry per evaluated category, in category id
// order. Only valid when categories were used.
func (e *Evaluator) PerCategoryAP() ([]CategoryAP, error) {
	if e.acc == nil {
		if _, err := e.Accumulate(); err != nil {
			return nil, err
		}
	}
	if !e.evaluated.UseCats {
		return nil, fmt.Errorf("per-category precision needs UseCats")
	}
	m := len(e.evaluated.MaxDets) - 1
	out := make([]CategoryAP, 0, len(e.evaluated.CatIDs))
	for k, id := range e.evaluated.CatIDs {
		vals := e.acc.Precision.Slice(Fix{AxisCategory, k}, Fix{AxisArea, 0}, Fix{AxisMaxDets, m})
		name := ""
		if c, ok := e.gt.Category(id); ok {
			name = c.Name
		}
		out = append(out, CategoryAP{CategoryID: id, Name: name, AP: meanValid(vals, math.NaN())})
	}
	return out, nil
}

// PRCurve returns the precision at each recall step averaged over categories
// with ground truth, at area "all" and the largest budget. iou is an index
// into the IoU thresholds; a negative index averages them all. Steps without
// any contributing category hold -1.
func (a *Accumulation) PRCurve(iou int) (recall, precision []float64) {
	p := a.Params
	m := len(p.MaxDets) - 1
	recall = append([]float64(nil), p.RecThrs...)
	precision = make([]float64, len(p.RecThrs))
	for r := range p.RecThrs {
		fix := []Fix{{AxisRecall, r}, {AxisArea, 0}, {AxisMaxDets, m}}
		if iou >= 0 {
			fix = append(fix, Fix{AxisIoU, iou})
		}
		precision[r] = meanValid(a.Precision.Slice(fix...), -1)
	}
	return recall, precision
}
