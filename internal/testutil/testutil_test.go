package testutil

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/banshee-data/cocoeval/internal/coco"
)

func TestAssertHelpersPass(t *testing.T) {
	t.Parallel()

	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertNoError(t, nil)
	AssertError(t, http.ErrNoCookie)
}

func TestNewTestRequest(t *testing.T) {
	t.Parallel()

	req := NewTestRequest(http.MethodGet, "/api/runs")
	if req.Method != http.MethodGet {
		t.Errorf("method = %s, want GET", req.Method)
	}
	if req.URL.Path != "/api/runs" {
		t.Errorf("path = %s, want /api/runs", req.URL.Path)
	}
	if w := NewTestRecorder(); w.Code != http.StatusOK {
		t.Errorf("initial Code = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestFixture(t *testing.T) {
	t.Parallel()

	f := NewFixture().
		Image(1, 640, 480).
		Category(3, "zebra").
		Box(1, 3, 10, 20, 30, 40).
		Crowd(1, 3, 0, 0, 5, 5)

	idx := f.Index()
	anns := idx.ImageAnnotations(1)
	if len(anns) != 2 {
		t.Fatalf("annotations = %d, want 2", len(anns))
	}
	if anns[0].ID != 1 || anns[1].ID != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", anns[0].ID, anns[1].ID)
	}
	if anns[0].Area != 1200 {
		t.Errorf("area = %v, want 1200", anns[0].Area)
	}
	if !bool(anns[1].IsCrowd) {
		t.Error("second annotation should be crowd")
	}
	img, ok := idx.Image(1)
	if !ok || img.FileName != "000000000001.jpg" {
		t.Errorf("image = %+v", img)
	}

	var doc map[string]any
	if err := json.Unmarshal(f.JSON(t), &doc); err != nil {
		t.Fatalf("fixture JSON: %v", err)
	}
	if _, ok := doc["categories"]; !ok {
		t.Error("categories missing from JSON")
	}
}

func TestFixtureExplicitIDs(t *testing.T) {
	t.Parallel()

	f := NewFixture().Image(1, 10, 10)
	f.Add(cocoAnnotation(7))
	f.Box(1, 1, 0, 0, 1, 1)
	ds := f.Dataset()
	if ds.Annotations[1].ID != 8 {
		t.Errorf("next id = %d, want 8", ds.Annotations[1].ID)
	}
}

func cocoAnnotation(id int64) coco.Annotation {
	return coco.Annotation{ID: id, ImageID: 1, CategoryID: 1, BBox: []float64{0, 0, 2, 2}, Area: 4}
}
