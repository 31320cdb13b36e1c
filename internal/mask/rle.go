// Package mask implements column-major run-length encoded binary masks in the
// layout used by COCO annotation files, together with the polygon and box
// rasterisers and the overlap measures the evaluator needs.
package mask

import (
	"math"
	"sort"
)

// RLE is a run-length encoded binary mask of H rows and W columns. Pixels are
// visited column by column (x*H + y) and Counts alternates between runs of
// zeros and runs of ones, always starting with a (possibly empty) zero run.
type RLE struct {
	H      int
	W      int
	Counts []uint32
}

// BBox is an axis-aligned box in [x, y, width, height] form.
type BBox [4]float64

// Encode run-length encodes a column-major mask of h*w bytes. Any non-zero byte
// is treated as foreground.
func Encode(m []byte, h, w int) RLE {
	a := h * w
	counts := make([]uint32, 0, 8)
	var p byte
	var c uint32
	for j := 0; j < a && j < len(m); j++ {
		v := m[j]
		if v != 0 {
			v = 1
		}
		if v != p {
			counts = append(counts, c)
			c = 0
			p = v
		}
		c++
	}
	counts = append(counts, c)
	return RLE{H: h, W: w, Counts: counts}
}

// Decode expands the mask into h*w column-major bytes (0 or 1).
func (r RLE) Decode() []byte {
	out := make([]byte, r.H*r.W)
	var v byte
	j := 0
	for _, c := range r.Counts {
		for k := uint32(0); k < c && j < len(out); k++ {
			out[j] = v
			j++
		}
		v = 1 - v
	}
	return out
}

// Area returns the number of foreground pixels.
func (r RLE) Area() uint32 {
	var a uint32
	for j := 1; j < len(r.Counts); j += 2 {
		a += r.Counts[j]
	}
	return a
}

// ToBBox returns the tight bounding box of the foreground pixels. An empty
// mask yields the zero box.
func (r RLE) ToBBox() BBox {
	m := (len(r.Counts) / 2) * 2
	if m == 0 || r.H == 0 {
		return BBox{}
	}
	h := uint32(r.H)
	xs, ys := uint32(r.W), h
	var xe, ye, xp, cc uint32
	for j := 0; j < m; j++ {
		cc += r.Counts[j]
		t := cc - uint32(j%2)
		y := t % h
		x := (t - y) / h
		if j%2 == 0 {
			xp = x
		} else if xp < x {
			// run wraps a column boundary so it spans every row
			ys = 0
			ye = h - 1
		}
		xs = min(xs, x)
		xe = max(xe, x)
		ys = min(ys, y)
		ye = max(ye, y)
	}
	return BBox{float64(xs), float64(ys), float64(xe - xs + 1), float64(ye - ys + 1)}
}

// FromBBox rasterises a box as a four-vertex polygon.
func FromBBox(bb BBox, h, w int) RLE {
	xs, xe := bb[0], bb[0]+bb[2]
	ys, ye := bb[1], bb[1]+bb[3]
	return FromPolygon([]float64{xs, ys, xs, ye, xe, ye, xe, ys}, h, w)
}

// FromPolygon rasterises a closed polygon given as flat [x0, y0, x1, y1, ...]
// vertex coordinates. The boundary is traced on a 5x upsampled grid and then
// downsampled onto pixel centres so that results match the reference COCO
// rasteriser bit for bit.
func FromPolygon(xy []float64, h, w int) RLE {
	const scale = 5.0
	k := len(xy) / 2
	if k == 0 {
		return RLE{H: h, W: w, Counts: []uint32{uint32(h * w)}}
	}
	x := make([]int, k+1)
	y := make([]int, k+1)
	for j := 0; j < k; j++ {
		x[j] = int(scale*xy[j*2] + .5)
		y[j] = int(scale*xy[j*2+1] + .5)
	}
	x[k], y[k] = x[0], y[0]

	var n int
	for j := 0; j < k; j++ {
		n += max(absInt(x[j]-x[j+1]), absInt(y[j]-y[j+1])) + 1
	}
	u := make([]int, 0, n)
	v := make([]int, 0, n)
	for j := 0; j < k; j++ {
		xs, xe, ys, ye := x[j], x[j+1], y[j], y[j+1]
		dx, dy := absInt(xe-xs), absInt(ys-ye)
		flip := (dx >= dy && xs > xe) || (dx < dy && ys > ye)
		if flip {
			xs, xe = xe, xs
			ys, ye = ye, ys
		}
		var s float64
		if dx >= dy {
			if dx > 0 {
				s = float64(ye-ys) / float64(dx)
			}
			for d := 0; d <= dx; d++ {
				t := d
				if flip {
					t = dx - d
				}
				u = append(u, t+xs)
				v = append(v, int(float64(ys)+s*float64(t)+.5))
			}
		} else {
			s = float64(xe-xs) / float64(dy)
			for d := 0; d <= dy; d++ {
				t := d
				if flip {
					t = dy - d
				}
				v = append(v, t+ys)
				u = append(u, int(float64(xs)+s*float64(t)+.5))
			}
		}
	}

	// Keep only the points where the traced boundary crosses a column
	// centre, clamped to the canvas rows.
	bx := make([]int, 0, len(u))
	by := make([]int, 0, len(u))
	for j := 1; j < len(u); j++ {
		if u[j] == u[j-1] {
			continue
		}
		xd := float64(u[j])
		if u[j] >= u[j-1] {
			xd = float64(u[j] - 1)
		}
		xd = (xd+.5)/scale - .5
		if math.Floor(xd) != xd || xd < 0 || xd > float64(w-1) {
			continue
		}
		yd := float64(min(v[j], v[j-1]))
		yd = (yd+.5)/scale - .5
		if yd < 0 {
			yd = 0
		} else if yd > float64(h) {
			yd = float64(h)
		}
		yd = math.Ceil(yd)
		bx = append(bx, int(xd))
		by = append(by, int(yd))
	}

	a := make([]uint32, 0, len(bx)+1)
	for j := range bx {
		a = append(a, uint32(bx[j]*h+by[j]))
	}
	a = append(a, uint32(h*w))
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
	var p uint32
	for j := range a {
		t := a[j]
		a[j] -= p
		p = t
	}
	b := make([]uint32, 0, len(a))
	j := 0
	b = append(b, a[j])
	j++
	for j < len(a) {
		if a[j] > 0 {
			b = append(b, a[j])
			j++
			continue
		}
		j++
		if j < len(a) {
			b[len(b)-1] += a[j]
			j++
		}
	}
	return RLE{H: h, W: w, Counts: b}
}

// FromPolygons rasterises each polygon and unions the results.
func FromPolygons(polys [][]float64, h, w int) RLE {
	rles := make([]RLE, len(polys))
	for i, p := range polys {
		rles[i] = FromPolygon(p, h, w)
	}
	return Merge(rles, false)
}

// Merge combines masks by union, or by intersection when intersect is set.
// Masks of differing sizes produce an empty 0x0 mask.
func Merge(rles []RLE, intersect bool) RLE {
	switch len(rles) {
	case 0:
		return RLE{}
	case 1:
		return RLE{H: rles[0].H, W: rles[0].W, Counts: append([]uint32(nil), rles[0].Counts...)}
	}
	h, w := rles[0].H, rles[0].W
	cnts := append([]uint32(nil), rles[0].Counts...)
	for i := 1; i < len(rles); i++ {
		B := rles[i]
		if B.H != h || B.W != w {
			return RLE{}
		}
		A := cnts
		if len(A) == 0 || len(B.Counts) == 0 {
			continue
		}
		out := make([]uint32, 0, len(A)+len(B.Counts))
		ca, cb := A[0], B.Counts[0]
		var v, va, vb bool
		a, b := 1, 1
		var cc uint32
		ct := uint32(1)
		for ct > 0 {
			c := min(ca, cb)
			cc += c
			ct = 0
			ca -= c
			if ca == 0 && a < len(A) {
				ca = A[a]
				a++
				va = !va
			}
			ct += ca
			cb -= c
			if cb == 0 && b < len(B.Counts) {
				cb = B.Counts[b]
				b++
				vb = !vb
			}
			ct += cb
			vp := v
			if intersect {
				v = va && vb
			} else {
				v = va || vb
			}
			if v != vp || ct == 0 {
				out = append(out, cc)
				cc = 0
			}
		}
		cnts = out
	}
	return RLE{H: h, W: w, Counts: cnts}
}

// IoU returns overlaps between every detection and ground-truth mask, indexed
// [detection][groundTruth]. For a crowd ground truth the union is replaced by
// the detection area. Masks whose sizes differ get an overlap of -1.
func IoU(dt, gt []RLE, iscrowd []bool) [][]float64 {
	db := make([]BBox, len(dt))
	for i, r := range dt {
		db[i] = r.ToBBox()
	}
	gb := make([]BBox, len(gt))
	for i, r := range gt {
		gb[i] = r.ToBBox()
	}
	o := BoxIoU(db, gb, nil)
	for g := range gt {
		crowd := g < len(iscrowd) && iscrowd[g]
		for d := range dt {
			if o[d][g] <= 0 {
				continue
			}
			if dt[d].H != gt[g].H || dt[d].W != gt[g].W {
				o[d][g] = -1
				continue
			}
			i, u := overlapRuns(dt[d].Counts, gt[g].Counts)
			if i == 0 {
				u = 1
			} else if crowd {
				u = uint64(dt[d].Area())
			}
			o[d][g] = float64(i) / float64(u)
		}
	}
	return o
}

func overlapRuns(da, ga []uint32) (inter, union uint64) {
	if len(da) == 0 || len(ga) == 0 {
		return 0, 0
	}
	ca, cb := da[0], ga[0]
	var va, vb bool
	a, b := 1, 1
	ct := uint32(1)
	for ct > 0 {
		c := min(ca, cb)
		if va || vb {
			union += uint64(c)
			if va && vb {
				inter += uint64(c)
			}
		}
		ct = 0
		ca -= c
		if ca == 0 && a < len(da) {
			ca = da[a]
			a++
			va = !va
		}
		ct += ca
		cb -= c
		if cb == 0 && b < len(ga) {
			cb = ga[b]
			b++
			vb = !vb
		}
		ct += cb
	}
	return inter, union
}

// BoxIoU returns box overlaps indexed [detection][groundTruth]. A crowd ground
// truth divides the intersection by the detection area alone.
func BoxIoU(dt, gt []BBox, iscrowd []bool) [][]float64 {
	o := make([][]float64, len(dt))
	for d := range dt {
		o[d] = make([]float64, len(gt))
	}
	for g, G := range gt {
		ga := G[2] * G[3]
		crowd := g < len(iscrowd) && iscrowd[g]
		for d, D := range dt {
			da := D[2] * D[3]
			w := math.Min(D[2]+D[0], G[2]+G[0]) - math.Max(D[0], G[0])
			if w <= 0 {
				continue
			}
			h := math.Min(D[3]+D[1], G[3]+G[1]) - math.Max(D[1], G[1])
			if h <= 0 {
				continue
			}
			i := w * h
			u := da + ga - i
			if crowd {
				u = da
			}
			o[d][g] = i / u
		}
	}
	return o
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
