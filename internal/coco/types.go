// Package coco provides an in-memory COCO annotation store: the JSON schema,
// a query index over images, annotations and categories, and loading of
// detection results against an existing ground-truth index.
package coco

import (
	"fmt"
	"strconv"
	"strings"
)

// Image is one entry of the "images" table.
type Image struct {
	ID       int64  `json:"id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileName string `json:"file_name"`
}

// Category is one entry of the "categories" table.
type Category struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory,omitempty"`
}

// Annotation is one entry of the "annotations" table. Detection indexes built
// by LoadResults reuse the type and fill Score.
type Annotation struct {
	ID           int64         `json:"id"`
	ImageID      int64         `json:"image_id"`
	CategoryID   int64         `json:"category_id"`
	BBox         []float64     `json:"bbox,omitempty"` // x, y, w, h
	Area         float64       `json:"area"`
	IsCrowd      Flag          `json:"iscrowd"`
	Ignore       Flag          `json:"ignore,omitempty"`
	Segmentation *Segmentation `json:"segmentation,omitempty"`
	Score        float64       `json:"score,omitempty"`
}

// Result is one detection in the flat exchange format shared by result
// artifacts and LoadResults. BBox is x, y, w, h.
type Result struct {
	ImageID      int64         `json:"image_id"`
	BBox         []float64     `json:"bbox,omitempty"`
	Score        float64       `json:"score"`
	CategoryID   int64         `json:"category_id"`
	Segmentation *Segmentation `json:"segmentation,omitempty"`
}

// Dataset is the top-level COCO annotation document.
type Dataset struct {
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Categories  []Category   `json:"categories"`
}

// Flag is a boolean that also accepts the 0/1 integers COCO files use.
type Flag bool

// UnmarshalJSON accepts true, false, null or any number (non-zero is true).
func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch s {
	case "true":
		*f = true
	case "false", "null":
		*f = false
	default:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid flag value %s", s)
		}
		*f = v != 0
	}
	return nil
}

// MarshalJSON writes the flag as 0 or 1.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}
