package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnmarshalJSON requires exactly five numbers.
func (b *Box) UnmarshalJSON(data []byte) error {
	var row []float64
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	if len(row) != 5 {
		return fmt.Errorf("box must have 5 values (x1, y1, x2, y2, score), got %d", len(row))
	}
	copy(b[:], row)
	return nil
}

type leaf int

const (
	leafNone leaf = iota
	leafNumber
	leafObject
	leafOther
)

// firstLeaf walks arrays depth first and reports the first non-array value
// along with how many arrays enclose it.
func firstLeaf(raw json.RawMessage, depth int) (int, leaf) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, leafNone
	}
	switch c := raw[0]; {
	case c == '{':
		return depth, leafObject
	case c == '-' || (c >= '0' && c <= '9'):
		return depth, leafNumber
	case c != '[':
		return depth, leafOther
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return depth, leafOther
	}
	for _, it := range items {
		if d, l := firstLeaf(it, depth+1); l != leafNone {
			return d, l
		}
	}
	return 0, leafNone
}

// classify infers the result shape of a single image's output.
func classify(elem json.RawMessage) (Kind, bool, error) {
	elem = bytes.TrimSpace(elem)
	if len(elem) > 0 && elem[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(elem, &probe); err != nil {
			return 0, false, fmt.Errorf("%w: %v", ErrUnsupportedResultShape, err)
		}
		if _, ok := probe["bboxes"]; ok {
			return KindDetectionsWithMasks, true, nil
		}
		return 0, false, fmt.Errorf("%w: object without \"bboxes\"", ErrUnsupportedResultShape)
	}
	depth, l := firstLeaf(elem, 0)
	switch {
	case l == leafNone:
		return 0, false, nil
	case l == leafNumber && depth == 2:
		return KindProposals, true, nil
	case l == leafNumber && depth == 3:
		return KindDetections, true, nil
	case (l == leafNumber && depth == 4) || (l == leafObject && depth >= 3):
		return KindDetectionsWithMasks, true, nil
	}
	return 0, false, fmt.Errorf("%w: leaf at depth %d", ErrUnsupportedResultShape, depth)
}

// Decode parses a JSON array of per-image outputs. The shape is taken from
// the first image whose output is not empty; if every image is empty the
// results are read as proposals with no rows. Masked results may be given as
// {"bboxes", "segms", "mask_scores"} objects or as [bboxes, segms] pairs,
// where segms may itself be a [segms, mask_scores] pair.
func Decode(data []byte) (Results, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedResultShape, err)
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("%w: no per-image results", ErrUnsupportedResultShape)
	}

	kind := KindProposals
	for _, e := range elems {
		k, ok, err := classify(e)
		if err != nil {
			return nil, err
		}
		if ok {
			kind = k
			break
		}
	}

	switch kind {
	case KindProposals:
		var out Proposals
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("%w: proposals: %v", ErrUnsupportedResultShape, err)
		}
		return out, nil
	case KindDetections:
		var out Detections
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("%w: detections: %v", ErrUnsupportedResultShape, err)
		}
		return out, nil
	}

	out := make(DetectionsWithMasks, len(elems))
	for i, e := range elems {
		img, err := decodeMasked(e)
		if err != nil {
			return nil, fmt.Errorf("%w: image %d: %v", ErrUnsupportedResultShape, i, err)
		}
		out[i] = img
	}
	return out, nil
}

func decodeMasked(e json.RawMessage) (MaskedImage, error) {
	var img MaskedImage
	e = bytes.TrimSpace(e)
	if len(e) > 0 && e[0] == '{' {
		err := json.Unmarshal(e, &img)
		return img, err
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(e, &pair); err != nil {
		return img, err
	}
	if len(pair) == 0 {
		return img, nil
	}
	if len(pair) != 2 {
		return img, fmt.Errorf("expected [bboxes, segms], got %d items", len(pair))
	}
	if err := json.Unmarshal(pair[0], &img.Boxes); err != nil {
		return img, fmt.Errorf("bboxes: %w", err)
	}

	var segs []json.RawMessage
	if err := json.Unmarshal(pair[1], &segs); err != nil {
		return img, fmt.Errorf("segms: %w", err)
	}
	if len(segs) == 2 {
		if _, l := firstLeaf(segs[1], 0); l == leafNumber {
			if err := json.Unmarshal(segs[0], &img.Masks); err != nil {
				return img, fmt.Errorf("segms: %w", err)
			}
			if err := json.Unmarshal(segs[1], &img.MaskScores); err != nil {
				return img, fmt.Errorf("mask scores: %w", err)
			}
			return img, nil
		}
	}
	if err := json.Unmarshal(pair[1], &img.Masks); err != nil {
		return img, fmt.Errorf("segms: %w", err)
	}
	return img, nil
}
