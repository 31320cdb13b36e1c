package cocoeval

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// machine epsilon for float64, added to the precision denominator.
const eps = 2.220446049250313e-16

// ErrNotEvaluated is returned when accumulation is requested before Evaluate.
var ErrNotEvaluated = errors.New("cocoeval: Evaluate has not been run")

// Accumulation is the outcome of Accumulate.
type Accumulation struct {
	Params    Params
	Precision *PrecisionArray
	Recall    *RecallArray
}

// Accumulate folds per-image matches into precision and recall arrays.
func (e *Evaluator) Accumulate() (*Accumulation, error) {
	if e.evalImgs == nil {
		return nil, ErrNotEvaluated
	}
	p := e.evaluated
	T, R, K, A, M := len(p.IoUThrs), len(p.RecThrs), len(e.catIDs()), len(p.AreaRanges), len(p.MaxDets)
	acc := &Accumulation{
		Params:    p.clone(),
		Precision: newPrecisionArray(T, R, K, A, M),
		Recall:    newRecallArray(T, K, A, M),
	}

	for k := 0; k < K; k++ {
		for a := 0; a < A; a++ {
			for m, maxDet := range p.MaxDets {
				e.accumulateCell(acc, k, a, m, maxDet)
			}
		}
	}
	e.acc = acc
	return acc, nil
}

func (e *Evaluator) accumulateCell(acc *Accumulation, k, a, m, maxDet int) {
	p := e.evaluated
	var (
		scores []float64
		// per detection, per threshold
		matched [][]bool
		ignored [][]bool
		npig    int
	)
	T := len(p.IoUThrs)
	for _, ev := range e.evalImgs[k][a] {
		if ev == nil {
			continue
		}
		n := min(len(ev.dtScores), maxDet)
		for d := 0; d < n; d++ {
			scores = append(scores, ev.dtScores[d])
			mrow := make([]bool, T)
			irow := make([]bool, T)
			for t := 0; t < T; t++ {
				mrow[t] = ev.dtMatched[t][d]
				irow[t] = ev.dtIgnore[t][d]
			}
			matched = append(matched, mrow)
			ignored = append(ignored, irow)
		}
		for _, ig := range ev.gtIgnore {
			if !ig {
				npig++
			}
		}
	}
	if npig == 0 {
		return
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })

	nd := len(order)
	tp := make([]float64, nd)
	fp := make([]float64, nd)
	rc := make([]float64, nd)
	pr := make([]float64, nd)
	for t := 0; t < T; t++ {
		for i, d := range order {
			tp[i], fp[i] = 0, 0
			if ignored[d][t] {
				continue
			}
			if matched[d][t] {
				tp[i] = 1
			} else {
				fp[i] = 1
			}
		}
		floats.CumSum(tp, tp)
		floats.CumSum(fp, fp)
		for i := 0; i < nd; i++ {
			rc[i] = tp[i] / float64(npig)
			pr[i] = tp[i] / (fp[i] + tp[i] + eps)
		}
		if nd > 0 {
			acc.Recall.set(rc[nd-1], t, k, a, m)
		} else {
			acc.Recall.set(0, t, k, a, m)
		}

		// Precision envelope: non-increasing from right to left.
		for i := nd - 1; i > 0; i-- {
			if pr[i] > pr[i-1] {
				pr[i-1] = pr[i]
			}
		}
		for r, thr := range p.RecThrs {
			pi := sort.SearchFloat64s(rc, thr)
			v := 0.0
			if pi < nd {
				v = pr[pi]
			}
			acc.Precision.set(v, t, r, k, a, m)
		}
	}
}
