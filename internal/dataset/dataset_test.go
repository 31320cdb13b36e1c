package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cocoeval/internal/coco"
	"github.com/banshee-data/cocoeval/internal/testutil"
)

func TestLoadResolvesLabelsInStoreOrder(t *testing.T) {
	store := testutil.NewFixture().
		Image(1, 100, 100).
		Category(2, "zebra").
		Category(1, "accordion").
		Category(9, "wok").
		Box(1, 2, 0, 0, 10, 10).
		Index()

	d, err := Load(store, []string{"accordion", "zebra", "unicorn"}, Options{TestMode: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, d.CatIDs())
	l, ok := d.Label(2)
	assert.True(t, ok)
	assert.Equal(t, 0, l)
	l, ok = d.Label(1)
	assert.True(t, ok)
	assert.Equal(t, 1, l)
	_, ok = d.Label(9)
	assert.False(t, ok)
	assert.Equal(t, []string{"accordion", "zebra", "unicorn"}, d.Classes())
}

func TestLoadRejectsDuplicateAnnotationIDs(t *testing.T) {
	f := testutil.NewFixture().
		Image(1, 100, 100).
		Image(2, 10, 10).
		Category(1, "accordion")
	f.Add(coco.Annotation{ID: 5, ImageID: 1, CategoryID: 1, BBox: []float64{0, 0, 10, 10}, Area: 100})
	f.Add(coco.Annotation{ID: 5, ImageID: 2, CategoryID: 1, BBox: []float64{0, 0, 5, 5}, Area: 25})

	// Image 2 would be filtered for size; the check runs first.
	_, err := Load(f.Index(), []string{"accordion"}, DefaultOptions())
	assert.ErrorIs(t, err, ErrDuplicateAnnotationIDs)
}

func TestSegMap(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		suffix   string
		want     string
	}{
		{"jpg", "000001.jpg", ".png", "000001.png"},
		{"dotted stem", "a.b.jpg", ".png", "a.b.png"},
		{"no extension", "frame", ".png", "frame.png"},
		{"custom suffix", "x/y.jpeg", "_seg.png", "x/y_seg.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, segMap(tt.filename, tt.suffix))
		})
	}
}

func TestAnnInfo(t *testing.T) {
	seg := coco.PolygonSegmentation([]float64{10, 10, 10, 30, 30, 30, 30, 10})
	f := testutil.NewFixture().
		Image(1, 100, 100).
		Category(1, "accordion").
		Category(2, "zebra").
		Category(3, "wok")
	f.Add(coco.Annotation{ImageID: 1, CategoryID: 1, BBox: []float64{10, 10, 20, 20}, Area: 400, Segmentation: seg})
	f.Add(coco.Annotation{ImageID: 1, CategoryID: 1, BBox: []float64{10, 10, 20, 20}, Area: 400, Ignore: true})
	// Off canvas, too narrow, zero area, class not evaluated.
	f.Box(1, 1, 200, 200, 10, 10)
	f.Box(1, 1, 10, 10, 0.5, 10)
	f.Add(coco.Annotation{ImageID: 1, CategoryID: 1, BBox: []float64{10, 10, 5, 5}, Area: 0})
	f.Box(1, 3, 10, 10, 20, 20)
	f.Crowd(1, 2, 50, 50, 30, 30)
	// Partly off canvas is kept.
	f.Box(1, 2, -5, -5, 10, 10)

	d, err := Load(f.Index(), []string{"accordion", "zebra"}, Options{TestMode: true})
	require.NoError(t, err)
	info, err := d.AnnInfo(0)
	require.NoError(t, err)

	assert.Equal(t, [][4]float64{{10, 10, 30, 30}, {-5, -5, 5, 5}}, info.Boxes)
	assert.Equal(t, []int{0, 1}, info.Labels)
	assert.Equal(t, [][4]float64{{50, 50, 80, 80}}, info.BoxesIgnore)
	require.Len(t, info.Masks, 2)
	assert.Same(t, seg, info.Masks[0])
	assert.Nil(t, info.Masks[1])
	assert.Equal(t, "000000000001.png", info.SegMap)

	cats, err := d.CatIDsOf(0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 3, 2, 2}, cats)

	_, err = d.AnnInfo(1)
	assert.Error(t, err)
}

func TestAnnInfoEmpty(t *testing.T) {
	store := testutil.NewFixture().Image(1, 100, 100).Category(1, "accordion").Index()
	d, err := Load(store, []string{"accordion"}, Options{TestMode: true, SegSuffix: ".tif"})
	require.NoError(t, err)
	info, err := d.AnnInfo(0)
	require.NoError(t, err)
	assert.NotNil(t, info.Boxes)
	assert.Empty(t, info.Boxes)
	assert.Empty(t, info.Labels)
	assert.Empty(t, info.BoxesIgnore)
	assert.Equal(t, "000000000001.tif", info.SegMap)
}

func filterFixture() *coco.Index {
	return testutil.NewFixture().
		Image(1, 640, 480).
		Image(2, 20, 640).
		Image(3, 640, 480).
		Image(4, 640, 480).
		Image(5, 640, 480).
		Category(1, "accordion").
		Category(9, "wok").
		Box(1, 1, 0, 0, 10, 10).
		Box(2, 1, 0, 0, 10, 10).
		Box(4, 9, 0, 0, 10, 10).
		Crowd(5, 1, 0, 0, 10, 10).
		Index()
}

func TestFilterImages(t *testing.T) {
	store := filterFixture()
	d, err := Load(store, []string{"accordion"}, Options{TestMode: true})
	require.NoError(t, err)
	images := make([]ImageInfo, d.Len())
	for i := range images {
		images[i], err = d.ImageInfo(i)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		policy FilterPolicy
		want   []int
	}{
		{"empty gt and size", FilterPolicy{MinSize: 32, FilterEmptyGT: true}, []int{0, 4}},
		{"size only", FilterPolicy{MinSize: 32}, []int{0, 2, 3, 4}},
		{"nothing", FilterPolicy{}, []int{0, 1, 2, 3, 4}},
		{"empty gt only", FilterPolicy{FilterEmptyGT: true}, []int{0, 1, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterImages(images, store, d.CatIDs(), tt.policy))
		})
	}
}

func TestLoadFiltersOutsideTestMode(t *testing.T) {
	d, err := Load(filterFixture(), []string{"accordion"}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []int64{1, 5}, d.ImageIDs())

	all, err := Load(filterFixture(), []string{"accordion"}, Options{TestMode: true})
	require.NoError(t, err)
	assert.Equal(t, 5, all.Len())
	filtered := all.Filtered(FilterPolicy{MinSize: 32})
	assert.Equal(t, []int64{1, 3, 4, 5}, filtered.ImageIDs())
	assert.Equal(t, 5, all.Len())
}

func TestEgoObjectsClasses(t *testing.T) {
	assert.Len(t, EgoObjectsClasses, 638)
	assert.Equal(t, "accordion", EgoObjectsClasses[0])
	assert.Equal(t, "zucchini", EgoObjectsClasses[len(EgoObjectsClasses)-1])
	seen := make(map[string]bool)
	for _, c := range EgoObjectsClasses {
		assert.False(t, seen[c], "duplicate class %q", c)
		seen[c] = true
	}
}
