package coco

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/banshee-data/cocoeval/internal/mask"
)

// SegmentationKind identifies which of the COCO segmentation encodings a
// Segmentation carries.
type SegmentationKind int

const (
	// Polygons is a list of flat [x0, y0, x1, y1, ...] outlines.
	Polygons SegmentationKind = iota
	// CompressedRLE is {"size": [h, w], "counts": "<string>"}.
	CompressedRLE
	// UncompressedRLE is {"size": [h, w], "counts": [n0, n1, ...]}.
	UncompressedRLE
)

func (k SegmentationKind) String() string {
	switch k {
	case Polygons:
		return "polygons"
	case CompressedRLE:
		return "rle"
	case UncompressedRLE:
		return "uncompressed_rle"
	}
	return fmt.Sprintf("SegmentationKind(%d)", int(k))
}

// ErrUnsupportedSegmentation is returned for segmentation payloads that are
// neither polygons nor run-length encoded.
var ErrUnsupportedSegmentation = errors.New("unsupported segmentation payload")

// Segmentation is a raw segmentation payload. It is stored as found in the
// annotation file and only rasterised when an evaluator asks for a mask.
type Segmentation struct {
	Kind      SegmentationKind
	Polygons  [][]float64
	Size      [2]int // height, width; RLE forms only
	Counts    string
	RawCounts []uint32
}

// PolygonSegmentation wraps polygon outlines.
func PolygonSegmentation(polys ...[]float64) *Segmentation {
	return &Segmentation{Kind: Polygons, Polygons: polys}
}

// RLESegmentation wraps a mask in compressed form.
func RLESegmentation(r mask.RLE) *Segmentation {
	return &Segmentation{Kind: CompressedRLE, Size: [2]int{r.H, r.W}, Counts: r.String()}
}

type rleJSON struct {
	Size   [2]int          `json:"size"`
	Counts json.RawMessage `json:"counts"`
}

// UnmarshalJSON decodes any of the three encodings.
func (s *Segmentation) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ErrUnsupportedSegmentation
	}
	switch b[0] {
	case '[':
		var polys [][]float64
		if err := json.Unmarshal(b, &polys); err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedSegmentation, err)
		}
		*s = Segmentation{Kind: Polygons, Polygons: polys}
		return nil
	case '{':
		var r rleJSON
		if err := json.Unmarshal(b, &r); err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedSegmentation, err)
		}
		counts := bytes.TrimSpace(r.Counts)
		if len(counts) == 0 {
			return fmt.Errorf("%w: rle without counts", ErrUnsupportedSegmentation)
		}
		if counts[0] == '"' {
			var c string
			if err := json.Unmarshal(counts, &c); err != nil {
				return fmt.Errorf("%w: %v", ErrUnsupportedSegmentation, err)
			}
			*s = Segmentation{Kind: CompressedRLE, Size: r.Size, Counts: c}
			return nil
		}
		var raw []uint32
		if err := json.Unmarshal(counts, &raw); err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedSegmentation, err)
		}
		*s = Segmentation{Kind: UncompressedRLE, Size: r.Size, RawCounts: raw}
		return nil
	}
	return ErrUnsupportedSegmentation
}

// MarshalJSON writes the payload back in the encoding it was read in.
func (s Segmentation) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case Polygons:
		if s.Polygons == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(s.Polygons)
	case CompressedRLE:
		return json.Marshal(struct {
			Size   [2]int `json:"size"`
			Counts string `json:"counts"`
		}{s.Size, s.Counts})
	case UncompressedRLE:
		return json.Marshal(struct {
			Size   [2]int   `json:"size"`
			Counts []uint32 `json:"counts"`
		}{s.Size, s.RawCounts})
	}
	return nil, ErrUnsupportedSegmentation
}

// ToRLE rasterises the payload. Polygons are drawn on an h x w canvas and
// unioned; polygon lists whose first outline has exactly four values are
// read as [x, y, w, h] boxes. RLE payloads carry their own size.
func (s *Segmentation) ToRLE(h, w int) (mask.RLE, error) {
	switch s.Kind {
	case Polygons:
		if len(s.Polygons) == 0 {
			return mask.Merge(nil, false), nil
		}
		rles := make([]mask.RLE, len(s.Polygons))
		boxes := len(s.Polygons[0]) == 4
		for i, p := range s.Polygons {
			switch {
			case boxes && len(p) == 4:
				rles[i] = mask.FromBBox(mask.BBox{p[0], p[1], p[2], p[3]}, h, w)
			case !boxes && len(p) > 4:
				rles[i] = mask.FromPolygon(p, h, w)
			default:
				return mask.RLE{}, fmt.Errorf("%w: polygon %d has %d coordinates", ErrUnsupportedSegmentation, i, len(p))
			}
		}
		return mask.Merge(rles, false), nil
	case CompressedRLE:
		return mask.FromString(s.Counts, s.Size[0], s.Size[1])
	case UncompressedRLE:
		return mask.RLE{H: s.Size[0], W: s.Size[1], Counts: append([]uint32(nil), s.RawCounts...)}, nil
	}
	return mask.RLE{}, ErrUnsupportedSegmentation
}
