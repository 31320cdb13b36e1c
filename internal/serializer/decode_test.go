package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Shapes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Kind
	}{
		{"proposals", `[[[10,10,50,50,0.9],[0,0,5,5,0.1]], []]`, KindProposals},
		{"proposals leading empty image", `[[], [[1,2,3,4,0.5]]]`, KindProposals},
		{"all empty", `[[], []]`, KindProposals},
		{"detections", `[[[[10,10,50,50,0.9]], []], [[], []]]`, KindDetections},
		{"detections empty first label", `[[[], [[1,1,2,2,0.3]]]]`, KindDetections},
		{"masks object", `[{"bboxes": [[[0,0,2,2,0.8]]], "segms": [[{"size":[4,4],"counts":"02208"}]]}]`, KindDetectionsWithMasks},
		{"masks pair", `[[[[[0,0,2,2,0.8]]], [[{"size":[4,4],"counts":"02208"}]]]]`, KindDetectionsWithMasks},
		{"masks pair with scores", `[[[[[0,0,2,2,0.8]]], [[[{"size":[4,4],"counts":"02208"}]], [[0.7]]]]]`, KindDetectionsWithMasks},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Decode([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Kind())
			assert.Equal(t, 0, countOtherKinds(res))
		})
	}
}

// countOtherKinds guards against a value satisfying more than one shape.
func countOtherKinds(r Results) int {
	n := 0
	if _, ok := r.(Proposals); ok && r.Kind() != KindProposals {
		n++
	}
	if _, ok := r.(Detections); ok && r.Kind() != KindDetections {
		n++
	}
	if _, ok := r.(DetectionsWithMasks); ok && r.Kind() != KindDetectionsWithMasks {
		n++
	}
	return n
}

func TestDecode_MaskPayloads(t *testing.T) {
	res, err := Decode([]byte(`[[[[[0,0,2,2,0.8]]], [[[{"size":[4,4],"counts":"02208"}]], [[0.7]]]]]`))
	require.NoError(t, err)
	m := res.(DetectionsWithMasks)
	require.Len(t, m, 1)
	assert.Equal(t, Box{0, 0, 2, 2, 0.8}, m[0].Boxes[0][0])
	assert.Equal(t, "02208", m[0].Masks[0][0].Counts)
	assert.Equal(t, [][]float64{{0.7}}, m[0].MaskScores)

	res, err = Decode([]byte(`[{"bboxes": [[[0,0,2,2,0.8]]], "segms": [[{"size":[4,4],"counts":"02208"}]]}]`))
	require.NoError(t, err)
	assert.Nil(t, res.(DetectionsWithMasks)[0].MaskScores)
}

func TestDecode_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `{`},
		{"not an array", `{"bboxes": []}`},
		{"empty", `[]`},
		{"flat numbers", `[1, 2, 3]`},
		{"strings", `[["a"]]`},
		{"object without bboxes", `[{"boxes": []}]`},
		{"too deep", `[[[[[[1]]]]]]`},
		{"short row", `[[[1, 2, 3, 4]]]`},
		{"mixed shapes", `[[[1,2,3,4,0.5]], [[[1,2,3,4,0.5]]]]`},
		{"bad pair", `[[[[[0,0,2,2,0.8]]], [], []]]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.in))
			assert.ErrorIs(t, err, ErrUnsupportedResultShape)
		})
	}
}
