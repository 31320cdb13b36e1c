package serializer

import (
	"fmt"

	"github.com/banshee-data/cocoeval/internal/coco"
)

// Records holds the flat result lists produced from one set of model outputs.
// Which lists are populated depends on Kind.
type Records struct {
	Kind     Kind
	BBox     []coco.Result
	Segm     []coco.Result
	Proposal []coco.Result
}

// ToRecords flattens results into exchange records. imageIDs gives the image
// of each per-image entry and catIDs maps labels to category ids.
func ToRecords(res Results, imageIDs, catIDs []int64) (*Records, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: nil results", ErrUnsupportedResultShape)
	}
	if res.Len() != len(imageIDs) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, res.Len(), len(imageIDs))
	}
	out := &Records{Kind: res.Kind()}
	switch v := res.(type) {
	case Proposals:
		out.Proposal = proposalRecords(v, imageIDs)
	case Detections:
		recs, err := detectionRecords(v, imageIDs, catIDs)
		if err != nil {
			return nil, err
		}
		out.BBox = recs
	case DetectionsWithMasks:
		bbox, segm, err := maskRecords(v, imageIDs, catIDs)
		if err != nil {
			return nil, err
		}
		out.BBox, out.Segm = bbox, segm
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedResultShape, res)
	}
	return out, nil
}

func proposalRecords(res Proposals, imageIDs []int64) []coco.Result {
	out := []coco.Result{}
	for i, boxes := range res {
		for _, b := range boxes {
			out = append(out, coco.Result{
				ImageID:    imageIDs[i],
				BBox:       b.XYWH(),
				Score:      b.Score(),
				CategoryID: ProposalCategoryID,
			})
		}
	}
	return out
}

func labelCategory(label int, catIDs []int64) (int64, error) {
	if label >= len(catIDs) {
		return 0, fmt.Errorf("label %d has no category (%d categories)", label, len(catIDs))
	}
	return catIDs[label], nil
}

func detectionRecords(res Detections, imageIDs, catIDs []int64) ([]coco.Result, error) {
	out := []coco.Result{}
	for i, labels := range res {
		for label, boxes := range labels {
			if len(boxes) == 0 {
				continue
			}
			cat, err := labelCategory(label, catIDs)
			if err != nil {
				return nil, fmt.Errorf("image %d: %w", imageIDs[i], err)
			}
			for _, b := range boxes {
				out = append(out, coco.Result{
					ImageID:    imageIDs[i],
					BBox:       b.XYWH(),
					Score:      b.Score(),
					CategoryID: cat,
				})
			}
		}
	}
	return out, nil
}

func maskRecords(res DetectionsWithMasks, imageIDs, catIDs []int64) (bbox, segm []coco.Result, err error) {
	bbox, segm = []coco.Result{}, []coco.Result{}
	for i, img := range res {
		for label, boxes := range img.Boxes {
			if len(boxes) == 0 {
				continue
			}
			cat, err := labelCategory(label, catIDs)
			if err != nil {
				return nil, nil, fmt.Errorf("image %d: %w", imageIDs[i], err)
			}
			if label >= len(img.Masks) || len(img.Masks[label]) < len(boxes) {
				return nil, nil, fmt.Errorf("image %d label %d: %d boxes but fewer masks", imageIDs[i], label, len(boxes))
			}
			var scores []float64
			if img.MaskScores != nil {
				if label >= len(img.MaskScores) || len(img.MaskScores[label]) < len(boxes) {
					return nil, nil, fmt.Errorf("image %d label %d: %d boxes but fewer mask scores", imageIDs[i], label, len(boxes))
				}
				scores = img.MaskScores[label]
			}
			for j, b := range boxes {
				bbox = append(bbox, coco.Result{
					ImageID:    imageIDs[i],
					BBox:       b.XYWH(),
					Score:      b.Score(),
					CategoryID: cat,
				})
				score := b.Score()
				if scores != nil {
					score = scores[j]
				}
				segm = append(segm, coco.Result{
					ImageID:      imageIDs[i],
					BBox:         b.XYWH(),
					Score:        score,
					CategoryID:   cat,
					Segmentation: img.Masks[label][j].Segmentation(),
				})
			}
		}
	}
	return bbox, segm, nil
}
