// Package testutil provides shared test utilities and fixtures.
//
// Fixture builds small COCO ground-truth documents so that loader and
// evaluator tests can describe a scene in a few lines.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/cocoeval/internal/coco"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// Fixture accumulates images, categories and annotations for a COCO
// document. Annotation ids are assigned sequentially from 1 unless set.
type Fixture struct {
	ds      coco.Dataset
	nextAnn int64
}

// NewFixture returns an empty document builder.
func NewFixture() *Fixture {
	return &Fixture{nextAnn: 1}
}

// Image adds an image named after its id.
func (f *Fixture) Image(id int64, width, height int) *Fixture {
	f.ds.Images = append(f.ds.Images, coco.Image{
		ID:       id,
		Width:    width,
		Height:   height,
		FileName: fmt.Sprintf("%012d.jpg", id),
	})
	return f
}

// Category adds a category.
func (f *Fixture) Category(id int64, name string) *Fixture {
	f.ds.Categories = append(f.ds.Categories, coco.Category{ID: id, Name: name})
	return f
}

// Box adds a regular box annotation with area w*h.
func (f *Fixture) Box(img, cat int64, x, y, w, h float64) *Fixture {
	return f.Add(coco.Annotation{
		ImageID:    img,
		CategoryID: cat,
		BBox:       []float64{x, y, w, h},
		Area:       w * h,
	})
}

// Crowd adds a crowd box annotation.
func (f *Fixture) Crowd(img, cat int64, x, y, w, h float64) *Fixture {
	return f.Add(coco.Annotation{
		ImageID:    img,
		CategoryID: cat,
		BBox:       []float64{x, y, w, h},
		Area:       w * h,
		IsCrowd:    true,
	})
}

// Add appends a, assigning the next id when a.ID is zero.
func (f *Fixture) Add(a coco.Annotation) *Fixture {
	if a.ID == 0 {
		a.ID = f.nextAnn
	}
	if a.ID >= f.nextAnn {
		f.nextAnn = a.ID + 1
	}
	f.ds.Annotations = append(f.ds.Annotations, a)
	return f
}

// Dataset returns a copy of the document built so far.
func (f *Fixture) Dataset() *coco.Dataset {
	return &coco.Dataset{
		Images:      append([]coco.Image(nil), f.ds.Images...),
		Annotations: append([]coco.Annotation(nil), f.ds.Annotations...),
		Categories:  append([]coco.Category(nil), f.ds.Categories...),
	}
}

// Index indexes a copy of the document.
func (f *Fixture) Index() *coco.Index {
	return coco.NewIndex(f.Dataset())
}

// JSON encodes the document, failing the test on error.
func (f *Fixture) JSON(t testing.TB) []byte {
	t.Helper()
	b, err := json.Marshal(f.Dataset())
	if err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return b
}
