// Package recall estimates proposal recall directly from in-memory boxes,
// without the COCO matching protocol: each ground-truth box is greedily paired
// with its best remaining proposal and recall is the fraction of pairs whose
// overlap clears a threshold.
package recall

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/cocoeval/internal/serializer"
)

// overlapEps floors the union so degenerate boxes do not divide by zero.
const overlapEps = 1e-6

// BoxOverlaps returns the IoU of every box in a against every box in b,
// indexed [a][b]. Boxes are x1, y1, x2, y2 and arithmetic is done in single
// precision.
func BoxOverlaps(a, b [][4]float64) [][]float64 {
	out := make([][]float64, len(a))
	areaB := make([]float32, len(b))
	for j, q := range b {
		areaB[j] = (float32(q[2]) - float32(q[0])) * (float32(q[3]) - float32(q[1]))
	}
	for i, p := range a {
		out[i] = make([]float64, len(b))
		x1, y1, x2, y2 := float32(p[0]), float32(p[1]), float32(p[2]), float32(p[3])
		areaA := (x2 - x1) * (y2 - y1)
		for j, q := range b {
			w := min(x2, float32(q[2])) - max(x1, float32(q[0]))
			h := min(y2, float32(q[3])) - max(y1, float32(q[1]))
			overlap := max(w, 0) * max(h, 0)
			union := max(areaA+areaB[j]-overlap, overlapEps)
			out[i][j] = float64(overlap / union)
		}
	}
	return out
}

// EvalRecalls computes recall for every proposal budget and IoU threshold,
// indexed [budget][threshold]. gts holds the ground-truth boxes of each image
// and proposals the scored proposals of the same images. A nil iouThrs means
// a single threshold of 0.5. With no ground truth at all every recall is NaN.
func EvalRecalls(gts [][][4]float64, proposals [][]serializer.Box, proposalNums []int, iouThrs []float64) ([][]float64, error) {
	if len(gts) != len(proposals) {
		return nil, fmt.Errorf("%w: %d ground-truth images, %d proposal images",
			serializer.ErrLengthMismatch, len(gts), len(proposals))
	}
	if len(proposalNums) == 0 {
		return nil, fmt.Errorf("no proposal budgets given")
	}
	if iouThrs == nil {
		iouThrs = []float64{0.5}
	}
	maxNum := proposalNums[len(proposalNums)-1]

	allIoUs := make([][][]float64, len(gts))
	totalGT := 0
	for i := range gts {
		props := append([]serializer.Box(nil), proposals[i]...)
		sort.SliceStable(props, func(a, b int) bool { return props[a].Score() > props[b].Score() })
		if len(props) > maxNum {
			props = props[:maxNum]
		}
		boxes := make([][4]float64, len(props))
		for j, p := range props {
			boxes[j] = [4]float64{p[0], p[1], p[2], p[3]}
		}
		allIoUs[i] = BoxOverlaps(gts[i], boxes)
		totalGT += len(gts[i])
	}

	recalls := make([][]float64, len(proposalNums))
	for k, num := range proposalNums {
		best := make([]float64, 0, totalGT)
		for _, ious := range allIoUs {
			best = append(best, greedyMatch(ious, num)...)
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(best)))
		recalls[k] = make([]float64, len(iouThrs))
		for t, thr := range iouThrs {
			if totalGT == 0 {
				recalls[k][t] = math.NaN()
				continue
			}
			hits := sort.Search(len(best), func(i int) bool { return best[i] < thr })
			recalls[k][t] = float64(hits) / float64(totalGT)
		}
	}
	return recalls, nil
}

// greedyMatch repeatedly takes the ground truth with the highest remaining
// overlap among the first num proposals, records it, and retires both the
// ground truth and the proposal. It returns one overlap per ground truth.
func greedyMatch(ious [][]float64, num int) []float64 {
	out := make([]float64, len(ious))
	if len(ious) == 0 {
		return out
	}
	cols := len(ious[0])
	if num < cols {
		cols = num
	}
	if cols == 0 {
		return out
	}
	work := make([][]float64, len(ious))
	for g := range ious {
		work[g] = append([]float64(nil), ious[g][:cols]...)
	}
	rowBest := make([]float64, len(work))
	for j := range work {
		for g, row := range work {
			rowBest[g] = row[floats.MaxIdx(row)]
		}
		g := floats.MaxIdx(rowBest)
		box := floats.MaxIdx(work[g])
		out[j] = rowBest[g]
		for c := range work[g] {
			work[g][c] = -1
		}
		for r := range work {
			work[r][box] = -1
		}
	}
	return out
}

// AverageRecall averages each budget's recall over the IoU thresholds.
func AverageRecall(recalls [][]float64) []float64 {
	out := make([]float64, len(recalls))
	for k, r := range recalls {
		out[k] = stat.Mean(r, nil)
	}
	return out
}
