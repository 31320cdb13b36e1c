package coco

import (
	"errors"
	"fmt"
)

// ErrEmptyResults is returned by LoadResults when there are no detections to
// index.
var ErrEmptyResults = errors.New("no results to load")

// LoadResults builds a detection index over the same images and categories as
// x. The first record decides how every record is completed:
//
//   - with a bbox: area is w*h, a box-shaped polygon stands in for a missing
//     segmentation and iscrowd is cleared;
//   - without one: area and bbox are derived from the segmentation mask.
//
// Annotation ids are assigned 1..n in record order.
func (x *Index) LoadResults(results []Result) (*Index, error) {
	if len(results) == 0 {
		return nil, ErrEmptyResults
	}
	for i, r := range results {
		if _, ok := x.images[r.ImageID]; !ok {
			return nil, fmt.Errorf("result %d refers to image %d which is not in the annotation set", i, r.ImageID)
		}
	}

	ds := &Dataset{
		Images:      append([]Image(nil), x.dataset.Images...),
		Categories:  append([]Category(nil), x.dataset.Categories...),
		Annotations: make([]Annotation, len(results)),
	}

	useBox := len(results[0].BBox) > 0
	if !useBox && results[0].Segmentation == nil {
		return nil, errors.New("results carry neither bbox nor segmentation")
	}
	for i, r := range results {
		a := Annotation{
			ID:           int64(i + 1),
			ImageID:      r.ImageID,
			CategoryID:   r.CategoryID,
			Score:        r.Score,
			Segmentation: r.Segmentation,
		}
		if useBox {
			if len(r.BBox) != 4 {
				return nil, fmt.Errorf("result %d: bbox must have 4 values, got %d", i, len(r.BBox))
			}
			bb := r.BBox
			x1, x2, y1, y2 := bb[0], bb[0]+bb[2], bb[1], bb[1]+bb[3]
			if a.Segmentation == nil {
				a.Segmentation = PolygonSegmentation([]float64{x1, y1, x1, y2, x2, y2, x2, y1})
			}
			a.BBox = append([]float64(nil), bb...)
			a.Area = bb[2] * bb[3]
		} else {
			if r.Segmentation == nil {
				return nil, fmt.Errorf("result %d has no segmentation", i)
			}
			img := x.images[r.ImageID]
			rle, err := r.Segmentation.ToRLE(img.Height, img.Width)
			if err != nil {
				return nil, fmt.Errorf("result %d: %w", i, err)
			}
			a.Area = float64(rle.Area())
			if len(r.BBox) == 4 {
				a.BBox = append([]float64(nil), r.BBox...)
			} else {
				bb := rle.ToBBox()
				a.BBox = bb[:]
			}
		}
		ds.Annotations[i] = a
	}
	return NewIndex(ds), nil
}
