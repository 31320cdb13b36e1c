// Package serializer turns per-image model outputs into the flat COCO result
// records the evaluator consumes, and persists them as JSON artifacts.
package serializer

import (
	"errors"
	"fmt"

	"github.com/banshee-data/cocoeval/internal/coco"
)

var (
	// ErrUnsupportedResultShape is returned when model output matches none of
	// the result shapes.
	ErrUnsupportedResultShape = errors.New("unsupported result shape")

	// ErrLengthMismatch is returned when the number of per-image results does
	// not match the number of images.
	ErrLengthMismatch = errors.New("results length does not match dataset length")
)

// ProposalCategoryID is the category assigned to class-agnostic proposals.
const ProposalCategoryID = 1

// Kind names one of the result shapes.
type Kind int

const (
	KindProposals Kind = iota
	KindDetections
	KindDetectionsWithMasks
)

func (k Kind) String() string {
	switch k {
	case KindProposals:
		return "proposals"
	case KindDetections:
		return "detections"
	case KindDetectionsWithMasks:
		return "detections_with_masks"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Box is one scored box in x1, y1, x2, y2, score order.
type Box [5]float64

// XYWH converts the box corners to x, y, width, height.
func (b Box) XYWH() []float64 {
	return []float64{b[0], b[1], b[2] - b[0], b[3] - b[1]}
}

// Score returns the confidence column.
func (b Box) Score() float64 { return b[4] }

// XYXY converts an x, y, width, height box back to corner form.
func XYXY(xywh []float64) [4]float64 {
	return [4]float64{xywh[0], xywh[1], xywh[0] + xywh[2], xywh[1] + xywh[3]}
}

// Mask is one instance mask in compressed RLE form. Encoders that emit raw
// bytes may set CountsBytes instead of Counts; the bytes are written out as
// text.
type Mask struct {
	Size        [2]int `json:"size"`
	Counts      string `json:"counts"`
	CountsBytes []byte `json:"-"`
}

// Segmentation returns the mask as an exchange payload.
func (m Mask) Segmentation() *coco.Segmentation {
	counts := m.Counts
	if counts == "" && m.CountsBytes != nil {
		counts = string(m.CountsBytes)
	}
	return &coco.Segmentation{Kind: coco.CompressedRLE, Size: m.Size, Counts: counts}
}

// Results is the model output for a whole dataset, one entry per image. It is
// one of Proposals, Detections or DetectionsWithMasks.
type Results interface {
	Kind() Kind
	Len() int
	isResults()
}

// Proposals holds class-agnostic boxes per image.
type Proposals [][]Box

// Detections holds boxes per image, indexed by label.
type Detections [][][]Box

// MaskedImage is the output for one image of an instance segmentation model.
// Masks parallels Boxes label by label. When MaskScores is set it parallels
// Masks and replaces the box score for segmentation records.
type MaskedImage struct {
	Boxes      [][]Box     `json:"bboxes"`
	Masks      [][]Mask    `json:"segms"`
	MaskScores [][]float64 `json:"mask_scores,omitempty"`
}

// DetectionsWithMasks holds boxes and masks per image.
type DetectionsWithMasks []MaskedImage

func (Proposals) Kind() Kind           { return KindProposals }
func (Detections) Kind() Kind          { return KindDetections }
func (DetectionsWithMasks) Kind() Kind { return KindDetectionsWithMasks }

func (r Proposals) Len() int           { return len(r) }
func (r Detections) Len() int          { return len(r) }
func (r DetectionsWithMasks) Len() int { return len(r) }

func (Proposals) isResults()           {}
func (Detections) isResults()          {}
func (DetectionsWithMasks) isResults() {}

// BoxesPerImage flattens the boxes of each image across labels. Proposals are
// returned as is; masks are ignored.
func BoxesPerImage(r Results) [][]Box {
	switch v := r.(type) {
	case Proposals:
		return v
	case Detections:
		out := make([][]Box, len(v))
		for i, labels := range v {
			for _, boxes := range labels {
				out[i] = append(out[i], boxes...)
			}
		}
		return out
	case DetectionsWithMasks:
		out := make([][]Box, len(v))
		for i, img := range v {
			for _, boxes := range img.Boxes {
				out[i] = append(out[i], boxes...)
			}
		}
		return out
	}
	return nil
}
