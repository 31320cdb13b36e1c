package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	// 3 rows x 2 columns, column-major
	m := []byte{0, 1, 1, 1, 0, 0}
	r := Encode(m, 3, 2)

	assert.Equal(t, []uint32{1, 3, 2}, r.Counts)
	assert.Equal(t, uint32(3), r.Area())
	assert.Equal(t, m, r.Decode())
	assert.Equal(t, BBox{0, 0, 2, 3}, r.ToBBox())
}

func TestEncode_AllZero(t *testing.T) {
	r := Encode(make([]byte, 12), 3, 4)
	assert.Equal(t, []uint32{12}, r.Counts)
	assert.Equal(t, uint32(0), r.Area())
	assert.Equal(t, BBox{}, r.ToBBox())
}

func TestFromBBox(t *testing.T) {
	r := FromBBox(BBox{0, 0, 2, 2}, 4, 4)

	assert.Equal(t, []uint32{0, 2, 2, 2, 10}, r.Counts)
	assert.Equal(t, uint32(4), r.Area())
	assert.Equal(t, BBox{0, 0, 2, 2}, r.ToBBox())

	px := r.Decode()
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			want := byte(0)
			if x < 2 && y < 2 {
				want = 1
			}
			assert.Equal(t, want, px[x*4+y], "pixel x=%d y=%d", x, y)
		}
	}
}

// rows renders a mask row by row, '1' for set pixels.
func rows(r RLE) []string {
	px := r.Decode()
	out := make([]string, r.H)
	for y := 0; y < r.H; y++ {
		b := make([]byte, r.W)
		for x := 0; x < r.W; x++ {
			b[x] = '0' + px[x*r.H+y]
		}
		out[y] = string(b)
	}
	return out
}

func TestFromPolygon_Diagonal(t *testing.T) {
	tests := []struct {
		name   string
		xy     []float64
		h, w   int
		counts []uint32
		rows   []string
	}{
		{
			name:   "right triangle",
			xy:     []float64{0, 0, 4, 0, 0, 4},
			h:      5,
			w:      5,
			counts: []uint32{0, 3, 2, 2, 3, 1, 14},
			rows:   []string{"11100", "11000", "10000", "00000", "00000"},
		},
		{
			name:   "fractional vertices",
			xy:     []float64{0.6, 0.2, 4.3, 1.7, 1.1, 4.4},
			h:      6,
			w:      6,
			counts: []uint32{7, 3, 3, 2, 4, 1, 16},
			rows:   []string{"000000", "011100", "011000", "010000", "000000", "000000"},
		},
		{
			name:   "steep edges",
			xy:     []float64{1, 0, 5, 4, 1, 5},
			h:      6,
			w:      6,
			counts: []uint32{6, 5, 2, 4, 3, 2, 5, 1, 8},
			rows:   []string{"010000", "011000", "011100", "011110", "011000", "000000"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromPolygon(tt.xy, tt.h, tt.w)
			assert.Equal(t, tt.counts, r.Counts)
			assert.Equal(t, tt.rows, rows(r))
		})
	}
}

func TestFromPolygon_VertexOrder(t *testing.T) {
	// Reversing the winding traces the same boundary.
	cw := FromPolygon([]float64{0.6, 0.2, 4.3, 1.7, 1.1, 4.4}, 6, 6)
	ccw := FromPolygon([]float64{1.1, 4.4, 4.3, 1.7, 0.6, 0.2}, 6, 6)
	assert.Equal(t, cw.Counts, ccw.Counts)
}

func TestFromPolygon_Empty(t *testing.T) {
	r := FromPolygon(nil, 3, 3)
	assert.Equal(t, uint32(0), r.Area())
	assert.Equal(t, 3, r.H)
	assert.Equal(t, 3, r.W)
}

func TestMerge(t *testing.T) {
	a := FromBBox(BBox{0, 0, 2, 2}, 4, 4)
	b := FromBBox(BBox{1, 1, 2, 2}, 4, 4)

	union := Merge([]RLE{a, b}, false)
	inter := Merge([]RLE{a, b}, true)

	assert.Equal(t, uint32(7), union.Area())
	assert.Equal(t, uint32(1), inter.Area())
	assert.Equal(t, BBox{1, 1, 1, 1}, inter.ToBBox())

	t.Run("single copies", func(t *testing.T) {
		m := Merge([]RLE{a}, false)
		m.Counts[0] = 99
		assert.Equal(t, uint32(0), a.Counts[0])
	})
	t.Run("size mismatch", func(t *testing.T) {
		m := Merge([]RLE{a, FromBBox(BBox{0, 0, 1, 1}, 5, 5)}, false)
		assert.Equal(t, 0, m.H)
		assert.Empty(t, m.Counts)
	})
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, RLE{}, Merge(nil, false))
	})
}

func TestIoU(t *testing.T) {
	a := FromBBox(BBox{0, 0, 2, 2}, 4, 4)
	b := FromBBox(BBox{1, 1, 2, 2}, 4, 4)
	far := FromBBox(BBox{3, 3, 1, 1}, 4, 4)

	o := IoU([]RLE{a}, []RLE{b, far, a}, nil)
	require.Len(t, o, 1)
	require.Len(t, o[0], 3)
	assert.InDelta(t, 1.0/7.0, o[0][0], 1e-12)
	assert.Equal(t, 0.0, o[0][1])
	assert.Equal(t, 1.0, o[0][2])

	crowd := IoU([]RLE{a}, []RLE{b}, []bool{true})
	assert.InDelta(t, 0.25, crowd[0][0], 1e-12)

	mismatch := IoU([]RLE{a}, []RLE{FromBBox(BBox{0, 0, 2, 2}, 5, 5)}, nil)
	assert.Equal(t, -1.0, mismatch[0][0])
}

func TestBoxIoU(t *testing.T) {
	tests := []struct {
		name  string
		dt    BBox
		gt    BBox
		crowd bool
		want  float64
	}{
		{"identical", BBox{10, 10, 40, 40}, BBox{10, 10, 40, 40}, false, 1},
		{"partial", BBox{0, 0, 2, 2}, BBox{1, 1, 2, 2}, false, 1.0 / 7.0},
		{"crowd uses detection area", BBox{0, 0, 2, 2}, BBox{1, 1, 2, 2}, true, 0.25},
		{"touching edges", BBox{0, 0, 2, 2}, BBox{2, 0, 2, 2}, false, 0},
		{"disjoint", BBox{0, 0, 1, 1}, BBox{5, 5, 1, 1}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := BoxIoU([]BBox{tt.dt}, []BBox{tt.gt}, []bool{tt.crowd})
			assert.InDelta(t, tt.want, o[0][0], 1e-12)
		})
	}

	assert.Len(t, BoxIoU(nil, []BBox{{0, 0, 1, 1}}, nil), 0)
	o := BoxIoU([]BBox{{0, 0, 1, 1}}, nil, nil)
	require.Len(t, o, 1)
	assert.Empty(t, o[0])
}
