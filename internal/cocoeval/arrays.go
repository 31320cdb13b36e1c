package cocoeval

import "fmt"

// Axis names a dimension of the accumulated arrays.
type Axis int

const (
	AxisIoU Axis = iota
	AxisRecall
	AxisCategory
	AxisArea
	AxisMaxDets
)

func (a Axis) String() string {
	switch a {
	case AxisIoU:
		return "iou"
	case AxisRecall:
		return "recall"
	case AxisCategory:
		return "category"
	case AxisArea:
		return "area"
	case AxisMaxDets:
		return "maxdets"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Fix pins one axis to an index when slicing.
type Fix struct {
	Axis  Axis
	Index int
}

// grid is a dense row-major array with named axes.
type grid struct {
	axes []Axis
	dims []int
	data []float64
}

func newGrid(axes []Axis, dims []int, fill float64) grid {
	n := 1
	for _, d := range dims {
		n *= d
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = fill
	}
	return grid{axes: axes, dims: dims, data: data}
}

func (g *grid) offset(idx ...int) int {
	off := 0
	for i, v := range idx {
		if v < 0 || v >= g.dims[i] {
			panic(fmt.Sprintf("cocoeval: index %d out of range for axis %s (size %d)", v, g.axes[i], g.dims[i]))
		}
		off = off*g.dims[i] + v
	}
	return off
}

// Dim returns the length of axis, or 0 when the array has no such axis.
func (g *grid) Dim(axis Axis) int {
	for i, a := range g.axes {
		if a == axis {
			return g.dims[i]
		}
	}
	return 0
}

// Slice returns every value whose coordinates match fixed, in row-major
// order of the remaining axes.
func (g *grid) Slice(fixed ...Fix) []float64 {
	pin := make([]int, len(g.axes))
	for i := range pin {
		pin[i] = -1
	}
	for _, f := range fixed {
		for i, a := range g.axes {
			if a == f.Axis {
				pin[i] = f.Index
			}
		}
	}
	var out []float64
	idx := make([]int, len(g.axes))
	var walk func(level int)
	walk = func(level int) {
		if level == len(g.axes) {
			out = append(out, g.data[g.offset(idx...)])
			return
		}
		if pin[level] >= 0 {
			idx[level] = pin[level]
			walk(level + 1)
			return
		}
		for i := 0; i < g.dims[level]; i++ {
			idx[level] = i
			walk(level + 1)
		}
	}
	walk(0)
	return out
}

// PrecisionArray holds interpolated precision indexed by IoU threshold,
// recall step, category, area range and detection budget. Cells without
// ground truth hold -1.
type PrecisionArray struct{ grid }

func newPrecisionArray(t, r, k, a, m int) *PrecisionArray {
	return &PrecisionArray{newGrid(
		[]Axis{AxisIoU, AxisRecall, AxisCategory, AxisArea, AxisMaxDets},
		[]int{t, r, k, a, m}, -1)}
}

// At returns a single precision value.
func (p *PrecisionArray) At(iou, rec, cat, area, maxDet int) float64 {
	return p.data[p.offset(iou, rec, cat, area, maxDet)]
}

func (p *PrecisionArray) set(v float64, iou, rec, cat, area, maxDet int) {
	p.data[p.offset(iou, rec, cat, area, maxDet)] = v
}

// RecallArray holds the final recall indexed by IoU threshold, category,
// area range and detection budget. Cells without ground truth hold -1.
type RecallArray struct{ grid }

func newRecallArray(t, k, a, m int) *RecallArray {
	return &RecallArray{newGrid(
		[]Axis{AxisIoU, AxisCategory, AxisArea, AxisMaxDets},
		[]int{t, k, a, m}, -1)}
}

// At returns a single recall value.
func (r *RecallArray) At(iou, cat, area, maxDet int) float64 {
	return r.data[r.offset(iou, cat, area, maxDet)]
}

func (r *RecallArray) set(v float64, iou, cat, area, maxDet int) {
	r.data[r.offset(iou, cat, area, maxDet)] = v
}
