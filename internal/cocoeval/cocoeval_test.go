package cocoeval

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cocoeval/internal/coco"
)

const nearlyOne = 1 - 1e-12

func groundTruth(anns ...coco.Annotation) *coco.Index {
	for i := range anns {
		anns[i].ID = int64(i + 1)
		if anns[i].Area == 0 && len(anns[i].BBox) == 4 {
			anns[i].Area = anns[i].BBox[2] * anns[i].BBox[3]
		}
	}
	return coco.NewIndex(&coco.Dataset{
		Images: []coco.Image{
			{ID: 2, Width: 200, Height: 200, FileName: "b.jpg"},
			{ID: 1, Width: 200, Height: 200, FileName: "a.jpg"},
		},
		Categories: []coco.Category{
			{ID: 1, Name: "cat"},
			{ID: 2, Name: "dog"},
		},
		Annotations: anns,
	})
}

func box(img, cat int64, x, y, w, h float64) coco.Annotation {
	return coco.Annotation{ImageID: img, CategoryID: cat, BBox: []float64{x, y, w, h}}
}

func det(img, cat int64, score, x, y, w, h float64) coco.Result {
	return coco.Result{ImageID: img, CategoryID: cat, Score: score, BBox: []float64{x, y, w, h}}
}

func run(t *testing.T, gt *coco.Index, results []coco.Result, p Params) (*Evaluator, Stats) {
	t.Helper()
	dt, err := gt.LoadResults(results)
	require.NoError(t, err)
	ev, err := New(gt, dt, p)
	require.NoError(t, err)
	require.NoError(t, ev.Evaluate())
	stats, err := ev.Summarize()
	require.NoError(t, err)
	return ev, stats
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams(IoUBBox)
	require.Len(t, p.IoUThrs, 10)
	assert.Equal(t, 0.5, p.IoUThrs[0])
	assert.Equal(t, 0.95, p.IoUThrs[9])
	require.Len(t, p.RecThrs, 101)
	assert.Equal(t, 0.0, p.RecThrs[0])
	assert.Equal(t, 1.0, p.RecThrs[100])
	assert.InDelta(t, 0.37, p.RecThrs[37], 1e-12)
	assert.Equal(t, []int{1, 10, 100}, p.MaxDets)
	assert.True(t, p.UseCats)
	assert.Equal(t, []string{"all", "small", "medium", "large"},
		[]string{p.AreaRanges[0].Label, p.AreaRanges[1].Label, p.AreaRanges[2].Label, p.AreaRanges[3].Label})
}

func TestNewValidates(t *testing.T) {
	gt := groundTruth()
	_, err := New(gt, nil, DefaultParams(IoUBBox))
	assert.Error(t, err)

	p := DefaultParams("keypoints")
	_, err = New(gt, gt, p)
	assert.Error(t, err)

	p = DefaultParams(IoUBBox)
	p.MaxDets = nil
	_, err = New(gt, gt, p)
	assert.Error(t, err)
}

func TestPerfectDetections(t *testing.T) {
	gt := groundTruth(
		box(1, 1, 10, 10, 40, 40),
		box(1, 2, 100, 100, 50, 50),
		box(2, 1, 0, 0, 20, 20),
	)
	ev, s := run(t, gt, []coco.Result{
		det(1, 1, 0.9, 10, 10, 40, 40),
		det(1, 2, 0.8, 100, 100, 50, 50),
		det(2, 1, 0.7, 0, 0, 20, 20),
	}, DefaultParams(IoUBBox))

	assert.Greater(t, s[StatMAP], nearlyOne)
	assert.Greater(t, s[StatMAP50], nearlyOne)
	assert.Greater(t, s[StatMAP75], nearlyOne)
	assert.Greater(t, s[StatMAPSmall], nearlyOne)
	assert.Greater(t, s[StatMAPMedium], nearlyOne)
	assert.Equal(t, -1.0, s[StatMAPLarge])
	assert.Equal(t, 1.0, s[StatAR3])

	text, err := ev.SummaryText()
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	require.Len(t, lines, 12)
	assert.Equal(t, " Average Precision  (AP) @[ IoU=0.50:0.95 | area=   all | maxDets=100 ] = 1.000", lines[0])
	assert.Equal(t, " Average Precision  (AP) @[ IoU=0.50      | area=   all | maxDets=100 ] = 1.000", lines[1])
	assert.Equal(t, " Average Precision  (AP) @[ IoU=0.50:0.95 | area= large | maxDets=100 ] = -1.000", lines[5])
	assert.Equal(t, " Average Recall     (AR) @[ IoU=0.50:0.95 | area=   all | maxDets=  1 ] = 1.000", lines[6])
}

func TestNoMatchingDetections(t *testing.T) {
	gt := groundTruth(box(1, 1, 10, 10, 40, 40))
	_, s := run(t, gt, []coco.Result{det(1, 1, 0.9, 150, 150, 40, 40)}, DefaultParams(IoUBBox))
	assert.Equal(t, 0.0, s[StatMAP])
	assert.Equal(t, 0.0, s[StatAR3])
}

func TestFalsePositiveAheadOfMatch(t *testing.T) {
	gt := groundTruth(box(1, 1, 10, 10, 40, 40), box(1, 1, 100, 100, 40, 40))
	_, s := run(t, gt, []coco.Result{
		det(1, 1, 0.9, 150, 0, 40, 40),
		det(1, 1, 0.8, 10, 10, 40, 40),
	}, DefaultParams(IoUBBox))
	// Precision 0.5 is held up to recall 0.5, i.e. for 51 of 101 steps.
	assert.InDelta(t, 25.5/101, s[StatMAP], 1e-9)
	assert.InDelta(t, 0.5, s[StatAR3], 1e-12)
}

func TestCrowdAbsorbsDetections(t *testing.T) {
	crowd := box(1, 1, 100, 100, 60, 60)
	crowd.IsCrowd = true
	gt := groundTruth(box(1, 1, 10, 10, 40, 40), crowd)
	_, s := run(t, gt, []coco.Result{
		det(1, 1, 0.95, 110, 110, 20, 20),
		det(1, 1, 0.9, 120, 120, 20, 20),
		det(1, 1, 0.8, 10, 10, 40, 40),
	}, DefaultParams(IoUBBox))
	assert.Greater(t, s[StatMAP], nearlyOne)
	assert.Equal(t, 1.0, s[StatAR3])
}

func TestRecallGrowsWithBudget(t *testing.T) {
	gt := groundTruth(
		box(1, 1, 0, 0, 40, 40),
		box(1, 1, 50, 50, 40, 40),
		box(1, 1, 100, 100, 40, 40),
	)
	_, s := run(t, gt, []coco.Result{
		det(1, 1, 0.9, 0, 0, 40, 40),
		det(1, 1, 0.8, 50, 50, 40, 40),
		det(1, 1, 0.7, 100, 100, 40, 40),
	}, DefaultParams(IoUBBox))
	assert.InDelta(t, 1.0/3, s[StatAR1], 1e-12)
	assert.Equal(t, 1.0, s[StatAR2])
	assert.Equal(t, 1.0, s[StatAR3])
	assert.LessOrEqual(t, s[StatAR1], s[StatAR2])
	assert.LessOrEqual(t, s[StatAR2], s[StatAR3])
}

func TestPerCategoryAP(t *testing.T) {
	gt := groundTruth(box(1, 1, 10, 10, 40, 40))
	ev, _ := run(t, gt, []coco.Result{det(1, 1, 0.9, 10, 10, 40, 40)}, DefaultParams(IoUBBox))

	per, err := ev.PerCategoryAP()
	require.NoError(t, err)
	require.Len(t, per, 2)
	assert.Equal(t, int64(1), per[0].CategoryID)
	assert.Equal(t, "cat", per[0].Name)
	assert.Greater(t, per[0].AP, nearlyOne)
	assert.Equal(t, "dog", per[1].Name)
	assert.True(t, math.IsNaN(per[1].AP))
}

func TestPooledCategories(t *testing.T) {
	gt := groundTruth(box(1, 1, 10, 10, 40, 40), box(1, 2, 100, 100, 40, 40))
	p := DefaultParams(IoUBBox)
	p.UseCats = false
	p.MaxDets = []int{1000, 100, 300}
	// Proposals all carry category 1 and still match the category 2 object.
	ev, s := run(t, gt, []coco.Result{
		det(1, 1, 0.9, 10, 10, 40, 40),
		det(1, 1, 0.8, 100, 100, 40, 40),
	}, p)
	assert.Equal(t, []int{100, 300, 1000}, ev.Params().MaxDets)
	assert.Equal(t, 1.0, s[StatAR1])
	_, err := ev.PerCategoryAP()
	assert.Error(t, err)

	acc, err := ev.Accumulate()
	require.NoError(t, err)
	assert.Equal(t, 1, acc.Recall.Dim(AxisCategory))
	assert.Equal(t, 0, acc.Recall.Dim(AxisRecall))
}

func TestSegmentationIoU(t *testing.T) {
	square := []float64{10, 10, 10, 50, 50, 50, 50, 10}
	a := box(1, 1, 10, 10, 40, 40)
	a.Segmentation = coco.PolygonSegmentation(square)
	gt := groundTruth(a)

	dt, err := gt.LoadResults([]coco.Result{{
		ImageID: 1, CategoryID: 1, Score: 0.9,
		Segmentation: coco.PolygonSegmentation(square),
	}})
	require.NoError(t, err)
	ev, err := New(gt, dt, DefaultParams(IoUSegm))
	require.NoError(t, err)
	require.NoError(t, ev.Evaluate())
	s, err := ev.Summarize()
	require.NoError(t, err)
	assert.Greater(t, s[StatMAP], nearlyOne)
}

func TestAccumulateBeforeEvaluate(t *testing.T) {
	gt := groundTruth()
	ev, err := New(gt, gt, DefaultParams(IoUBBox))
	require.NoError(t, err)
	_, err = ev.Accumulate()
	assert.ErrorIs(t, err, ErrNotEvaluated)
}

func TestEvaluateNormalisesIDs(t *testing.T) {
	gt := groundTruth(box(1, 1, 10, 10, 40, 40))
	p := DefaultParams(IoUBBox)
	p.ImgIDs = []int64{2, 1, 2}
	p.CatIDs = []int64{2, 1}
	ev, _ := run(t, gt, []coco.Result{det(1, 1, 0.9, 10, 10, 40, 40)}, p)
	assert.Equal(t, []int64{1, 2}, ev.Params().ImgIDs)
	assert.Equal(t, []int64{1, 2}, ev.Params().CatIDs)
}

func TestPRCurve(t *testing.T) {
	gt := groundTruth(box(1, 1, 10, 10, 40, 40), box(1, 1, 100, 100, 40, 40))
	ev, _ := run(t, gt, []coco.Result{
		det(1, 1, 0.9, 150, 0, 40, 40),
		det(1, 1, 0.8, 10, 10, 40, 40),
	}, DefaultParams(IoUBBox))
	acc, err := ev.Accumulate()
	require.NoError(t, err)

	rec, prec := acc.PRCurve(0)
	require.Len(t, rec, 101)
	require.Len(t, prec, 101)
	assert.InDelta(t, 0.5, prec[50], 1e-12)
	assert.Equal(t, 0.0, prec[51])

	_, all := acc.PRCurve(-1)
	assert.InDelta(t, 0.5, all[0], 1e-12)
}

func TestGridSlice(t *testing.T) {
	g := newGrid([]Axis{AxisIoU, AxisCategory}, []int{2, 3}, 0)
	for i := range g.data {
		g.data[i] = float64(i)
	}
	assert.Equal(t, []float64{3, 4, 5}, g.Slice(Fix{AxisIoU, 1}))
	assert.Equal(t, []float64{1, 4}, g.Slice(Fix{AxisCategory, 1}))
	assert.Equal(t, []float64{5}, g.Slice(Fix{AxisIoU, 1}, Fix{AxisCategory, 2}))
	assert.Len(t, g.Slice(), 6)
	assert.Equal(t, "category", AxisCategory.String())
}
