package coco

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/cocoeval/internal/fsutil"
	"github.com/banshee-data/cocoeval/internal/mask"
	"github.com/banshee-data/cocoeval/internal/monitoring"
)

// Index is a read-only query structure over a Dataset. Image and annotation
// order follows the source document.
type Index struct {
	dataset *Dataset

	imageOrder []int64
	images     map[int64]*Image
	anns       map[int64]*Annotation
	cats       map[int64]*Category
	imgToAnns  map[int64][]*Annotation
	catToImgs  map[int64][]int64
}

// NewIndex builds the lookup tables for ds. The dataset must not be modified
// afterwards.
func NewIndex(ds *Dataset) *Index {
	idx := &Index{
		dataset:   ds,
		images:    make(map[int64]*Image, len(ds.Images)),
		anns:      make(map[int64]*Annotation, len(ds.Annotations)),
		cats:      make(map[int64]*Category, len(ds.Categories)),
		imgToAnns: make(map[int64][]*Annotation),
		catToImgs: make(map[int64][]int64),
	}
	for i := range ds.Annotations {
		a := &ds.Annotations[i]
		idx.imgToAnns[a.ImageID] = append(idx.imgToAnns[a.ImageID], a)
		idx.anns[a.ID] = a
	}
	for i := range ds.Images {
		img := &ds.Images[i]
		if _, dup := idx.images[img.ID]; !dup {
			idx.imageOrder = append(idx.imageOrder, img.ID)
		}
		idx.images[img.ID] = img
	}
	for i := range ds.Categories {
		c := &ds.Categories[i]
		idx.cats[c.ID] = c
	}
	for i := range ds.Annotations {
		a := &ds.Annotations[i]
		idx.catToImgs[a.CategoryID] = append(idx.catToImgs[a.CategoryID], a.ImageID)
	}
	return idx
}

// Load decodes a COCO annotation document.
func Load(data []byte) (*Index, error) {
	var ds Dataset
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to decode annotations: %w", err)
	}
	return NewIndex(&ds), nil
}

// LoadFile reads and indexes the annotation file at path.
func LoadFile(fsys fsutil.FileSystem, path string) (*Index, error) {
	start := time.Now()
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations: %w", err)
	}
	idx, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	monitoring.Logf("loaded %s: %d images, %d annotations, %d categories (%s)",
		path, len(idx.dataset.Images), len(idx.dataset.Annotations), len(idx.dataset.Categories),
		time.Since(start).Round(time.Millisecond))
	return idx, nil
}

// Dataset returns the indexed document.
func (x *Index) Dataset() *Dataset { return x.dataset }

// ImageIDs returns every image id in document order.
func (x *Index) ImageIDs() []int64 {
	return append([]int64(nil), x.imageOrder...)
}

// Image returns the image with the given id.
func (x *Index) Image(id int64) (Image, bool) {
	img, ok := x.images[id]
	if !ok {
		return Image{}, false
	}
	return *img, true
}

// LoadImages returns the images for ids, in the order given.
func (x *Index) LoadImages(ids []int64) ([]Image, error) {
	out := make([]Image, 0, len(ids))
	for _, id := range ids {
		img, ok := x.images[id]
		if !ok {
			return nil, fmt.Errorf("unknown image id %d", id)
		}
		out = append(out, *img)
	}
	return out, nil
}

// AnnotationIDs returns the ids of annotations on the given images, image by
// image in the order given. When catIDs is non-empty only annotations in
// those categories are returned.
func (x *Index) AnnotationIDs(imageIDs []int64, catIDs ...int64) []int64 {
	var keep map[int64]bool
	if len(catIDs) > 0 {
		keep = make(map[int64]bool, len(catIDs))
		for _, c := range catIDs {
			keep[c] = true
		}
	}
	var out []int64
	for _, img := range imageIDs {
		for _, a := range x.imgToAnns[img] {
			if keep != nil && !keep[a.CategoryID] {
				continue
			}
			out = append(out, a.ID)
		}
	}
	return out
}

// LoadAnnotations returns copies of the annotations for ids.
func (x *Index) LoadAnnotations(ids []int64) ([]Annotation, error) {
	out := make([]Annotation, 0, len(ids))
	for _, id := range ids {
		a, ok := x.anns[id]
		if !ok {
			return nil, fmt.Errorf("unknown annotation id %d", id)
		}
		out = append(out, *a)
	}
	return out, nil
}

// ImageAnnotations returns copies of every annotation on image id, in
// document order. Duplicate annotation ids are preserved.
func (x *Index) ImageAnnotations(id int64) []Annotation {
	src := x.imgToAnns[id]
	out := make([]Annotation, len(src))
	for i, a := range src {
		out[i] = *a
	}
	return out
}

// CategoryIDs resolves category names to ids. The result follows the order of
// the categories table, not the order of names; unknown names are skipped.
// An empty names list returns every category id.
func (x *Index) CategoryIDs(names []string) []int64 {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []int64
	for _, c := range x.dataset.Categories {
		if len(names) == 0 || want[c.Name] {
			out = append(out, c.ID)
		}
	}
	return out
}

// Category returns the category metadata for id.
func (x *Index) Category(id int64) (Category, bool) {
	c, ok := x.cats[id]
	if !ok {
		return Category{}, false
	}
	return *c, true
}

// Categories returns the categories table.
func (x *Index) Categories() []Category {
	return append([]Category(nil), x.dataset.Categories...)
}

// CategoryImageIDs returns the images holding at least one annotation of
// category id. Images appear once per annotation.
func (x *Index) CategoryImageIDs(id int64) []int64 {
	return append([]int64(nil), x.catToImgs[id]...)
}

// AnnotatedImageIDs returns the set of images that carry any annotation.
func (x *Index) AnnotatedImageIDs() map[int64]bool {
	out := make(map[int64]bool, len(x.imgToAnns))
	for id, anns := range x.imgToAnns {
		if len(anns) > 0 {
			out[id] = true
		}
	}
	return out
}

// AnnotationRLE rasterises an annotation's segmentation on its image canvas.
func (x *Index) AnnotationRLE(a Annotation) (mask.RLE, error) {
	if a.Segmentation == nil {
		return mask.RLE{}, fmt.Errorf("annotation %d has no segmentation", a.ID)
	}
	img, ok := x.images[a.ImageID]
	if !ok {
		return mask.RLE{}, fmt.Errorf("annotation %d: unknown image id %d", a.ID, a.ImageID)
	}
	return a.Segmentation.ToRLE(img.Height, img.Width)
}
