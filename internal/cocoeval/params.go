// Package cocoeval implements the COCO detection evaluation protocol: per
// image and category greedy matching at a ladder of IoU thresholds, a
// precision/recall accumulation sliced by IoU, recall step, category, object
// size and detection budget, and the twelve canonical summary statistics.
package cocoeval

import "fmt"

// IoUType selects how detections are compared with ground truth.
type IoUType string

const (
	IoUBBox IoUType = "bbox"
	IoUSegm IoUType = "segm"
)

// AreaRange is a closed interval of object areas in square pixels.
type AreaRange struct {
	Label string
	Min   float64
	Max   float64
}

// Contains reports whether area lies in the closed range.
func (r AreaRange) Contains(area float64) bool {
	return area >= r.Min && area <= r.Max
}

// The canonical size buckets. Small and medium split at 32 and 96 pixels on
// the side of a square object.
var (
	AreaAll    = AreaRange{Label: "all", Min: 0, Max: 1e10}
	AreaSmall  = AreaRange{Label: "small", Min: 0, Max: 32 * 32}
	AreaMedium = AreaRange{Label: "medium", Min: 32 * 32, Max: 96 * 96}
	AreaLarge  = AreaRange{Label: "large", Min: 96 * 96, Max: 1e10}
)

// Params configures an evaluation.
type Params struct {
	ImgIDs     []int64
	CatIDs     []int64
	IoUThrs    []float64
	RecThrs    []float64
	MaxDets    []int
	AreaRanges []AreaRange
	// UseCats matches detections to ground truth of the same category only.
	// When false all categories are pooled, as for class-agnostic proposals.
	UseCats bool
	IoUType IoUType
}

// DefaultParams returns the standard parameters with no images or categories
// selected.
func DefaultParams(t IoUType) Params {
	return Params{
		IoUThrs:    DefaultIoUThresholds(),
		RecThrs:    linspace(0, 1, 101),
		MaxDets:    []int{1, 10, 100},
		AreaRanges: []AreaRange{AreaAll, AreaSmall, AreaMedium, AreaLarge},
		UseCats:    true,
		IoUType:    t,
	}
}

// DefaultIoUThresholds returns 0.50, 0.55, ..., 0.95.
func DefaultIoUThresholds() []float64 {
	return linspace(0.5, 0.95, 10)
}

// linspace matches numpy.linspace with endpoint=True.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

func (p Params) validate() error {
	if len(p.IoUThrs) == 0 {
		return fmt.Errorf("no IoU thresholds")
	}
	if len(p.RecThrs) == 0 {
		return fmt.Errorf("no recall thresholds")
	}
	if len(p.MaxDets) == 0 {
		return fmt.Errorf("no max detections")
	}
	if len(p.AreaRanges) == 0 {
		return fmt.Errorf("no area ranges")
	}
	if p.IoUType != IoUBBox && p.IoUType != IoUSegm {
		return fmt.Errorf("unsupported iou type %q", p.IoUType)
	}
	return nil
}
