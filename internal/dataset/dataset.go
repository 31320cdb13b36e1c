// Package dataset adapts a COCO annotation store to the evaluation pipeline:
// it fixes the label space from a class list, turns raw annotations into
// training targets, filters unusable images and evaluates model results
// against the ground truth.
package dataset

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/banshee-data/cocoeval/internal/coco"
	"github.com/banshee-data/cocoeval/internal/monitoring"
)

// ErrDuplicateAnnotationIDs is returned by Load when two annotations in the
// store share an id.
var ErrDuplicateAnnotationIDs = errors.New("annotation ids are not unique")

// DefaultSegSuffix is appended to the file stem to name the semantic map.
const DefaultSegSuffix = ".png"

// Options controls loading.
type Options struct {
	// SegSuffix names the semantic segmentation map; empty means ".png".
	SegSuffix string
	// TestMode keeps every image. Otherwise images are filtered once after
	// loading with MinSize and FilterEmptyGT.
	TestMode      bool
	FilterEmptyGT bool
	MinSize       int
}

// DefaultOptions returns the training-time defaults.
func DefaultOptions() Options {
	return Options{
		SegSuffix:     DefaultSegSuffix,
		FilterEmptyGT: true,
		MinSize:       32,
	}
}

// ImageInfo describes one active image.
type ImageInfo struct {
	ID       int64
	Width    int
	Height   int
	Filename string
	SegMap   string
}

// AnnInfo is the training target for one image. Boxes are x1, y1, x2, y2.
type AnnInfo struct {
	Boxes       [][4]float64
	Labels      []int
	BoxesIgnore [][4]float64
	// Masks holds the raw segmentation of each positive box; nil when absent.
	Masks  []*coco.Segmentation
	SegMap string
}

// Dataset is an immutable view over a store restricted to a class list and a
// set of active images.
type Dataset struct {
	store     *coco.Index
	classes   []string
	catIDs    []int64
	cat2label map[int64]int
	images    []ImageInfo
	segSuffix string
}

// Load builds a dataset over store. Category ids are resolved by name; labels
// are positions in the resolved id list.
func Load(store *coco.Index, classes []string, opts Options) (*Dataset, error) {
	if store == nil {
		return nil, fmt.Errorf("nil annotation store")
	}
	suffix := opts.SegSuffix
	if suffix == "" {
		suffix = DefaultSegSuffix
	}
	d := &Dataset{
		store:     store,
		classes:   slices.Clone(classes),
		catIDs:    store.CategoryIDs(classes),
		cat2label: make(map[int64]int),
		segSuffix: suffix,
	}
	for i, id := range d.catIDs {
		d.cat2label[id] = i
	}
	if len(d.catIDs) < len(classes) {
		monitoring.Logf("dataset: %d of %d classes are not in the annotation store",
			len(classes)-len(d.catIDs), len(classes))
	}

	imgs, err := store.LoadImages(store.ImageIDs())
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool)
	total := 0
	for _, img := range imgs {
		d.images = append(d.images, ImageInfo{
			ID:       img.ID,
			Width:    img.Width,
			Height:   img.Height,
			Filename: img.FileName,
			SegMap:   segMap(img.FileName, suffix),
		})
		for _, id := range store.AnnotationIDs([]int64{img.ID}) {
			seen[id] = true
			total++
		}
	}
	if len(seen) != total {
		return nil, fmt.Errorf("%w: %d annotations, %d distinct ids", ErrDuplicateAnnotationIDs, total, len(seen))
	}

	if !opts.TestMode {
		d = d.Filtered(FilterPolicy{MinSize: opts.MinSize, FilterEmptyGT: opts.FilterEmptyGT})
	}
	return d, nil
}

func segMap(filename, suffix string) string {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		filename = filename[:i]
	}
	return filename + suffix
}

// Len returns the number of active images.
func (d *Dataset) Len() int { return len(d.images) }

// Store returns the underlying annotation store.
func (d *Dataset) Store() *coco.Index { return d.store }

// Classes returns the class list the dataset was loaded with.
func (d *Dataset) Classes() []string { return slices.Clone(d.classes) }

// CatIDs returns the evaluated category ids in label order.
func (d *Dataset) CatIDs() []int64 { return slices.Clone(d.catIDs) }

// ImageIDs returns the active image ids in order.
func (d *Dataset) ImageIDs() []int64 {
	out := make([]int64, len(d.images))
	for i, img := range d.images {
		out[i] = img.ID
	}
	return out
}

// Label returns the label of category id.
func (d *Dataset) Label(catID int64) (int, bool) {
	l, ok := d.cat2label[catID]
	return l, ok
}

// ImageInfo returns the active image at idx.
func (d *Dataset) ImageInfo(idx int) (ImageInfo, error) {
	if idx < 0 || idx >= len(d.images) {
		return ImageInfo{}, fmt.Errorf("image index %d out of range [0, %d)", idx, len(d.images))
	}
	return d.images[idx], nil
}

// CatIDsOf returns the category id of every annotation on the image at idx,
// including categories outside the class list.
func (d *Dataset) CatIDsOf(idx int) ([]int64, error) {
	img, err := d.ImageInfo(idx)
	if err != nil {
		return nil, err
	}
	anns := d.store.ImageAnnotations(img.ID)
	out := make([]int64, len(anns))
	for i, a := range anns {
		out[i] = a.CategoryID
	}
	return out, nil
}

// AnnInfo converts the annotations of the image at idx into a target.
// Annotations are skipped when flagged ignore, when they do not overlap the
// image, when they are degenerate or when their category is not evaluated.
// Crowd boxes go to BoxesIgnore.
func (d *Dataset) AnnInfo(idx int) (AnnInfo, error) {
	img, err := d.ImageInfo(idx)
	if err != nil {
		return AnnInfo{}, err
	}
	info := AnnInfo{
		Boxes:       [][4]float64{},
		Labels:      []int{},
		BoxesIgnore: [][4]float64{},
		Masks:       []*coco.Segmentation{},
		SegMap:      img.SegMap,
	}
	for _, a := range d.store.ImageAnnotations(img.ID) {
		if a.Ignore {
			continue
		}
		if len(a.BBox) != 4 {
			return AnnInfo{}, fmt.Errorf("annotation %d: bbox has %d values, want 4", a.ID, len(a.BBox))
		}
		x, y, w, h := a.BBox[0], a.BBox[1], a.BBox[2], a.BBox[3]
		interW := max(0, min(x+w, float64(img.Width))-max(x, 0))
		interH := max(0, min(y+h, float64(img.Height))-max(y, 0))
		if interW*interH == 0 {
			continue
		}
		if a.Area <= 0 || w < 1 || h < 1 {
			continue
		}
		label, ok := d.cat2label[a.CategoryID]
		if !ok {
			continue
		}
		box := [4]float64{x, y, x + w, y + h}
		if a.IsCrowd {
			info.BoxesIgnore = append(info.BoxesIgnore, box)
			continue
		}
		info.Boxes = append(info.Boxes, box)
		info.Labels = append(info.Labels, label)
		info.Masks = append(info.Masks, a.Segmentation)
	}
	return info, nil
}
