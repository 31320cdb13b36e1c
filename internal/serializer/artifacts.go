package serializer

import (
	"fmt"

	"github.com/banshee-data/cocoeval/internal/coco"
	"github.com/banshee-data/cocoeval/internal/fsutil"
)

// Artifact names, which double as the metric families that read them.
const (
	ArtifactBBox     = "bbox"
	ArtifactSegm     = "segm"
	ArtifactProposal = "proposal"
)

// Artifacts maps artifact names to the files written for them.
type Artifacts map[string]string

// ArtifactPaths returns the files WriteArtifacts would produce for kind.
// Detection results also serve as proposals, so both names point at the
// bbox file.
func ArtifactPaths(kind Kind, prefix string) Artifacts {
	switch kind {
	case KindProposals:
		return Artifacts{ArtifactProposal: prefix + ".proposal.json"}
	case KindDetections:
		return Artifacts{
			ArtifactBBox:     prefix + ".bbox.json",
			ArtifactProposal: prefix + ".bbox.json",
		}
	case KindDetectionsWithMasks:
		return Artifacts{
			ArtifactBBox:     prefix + ".bbox.json",
			ArtifactProposal: prefix + ".bbox.json",
			ArtifactSegm:     prefix + ".segm.json",
		}
	}
	return Artifacts{}
}

// WriteArtifacts converts results to records and writes them under prefix,
// e.g. "work/results" produces "work/results.bbox.json".
func WriteArtifacts(fsys fsutil.FileSystem, res Results, imageIDs, catIDs []int64, prefix string) (Artifacts, error) {
	recs, err := ToRecords(res, imageIDs, catIDs)
	if err != nil {
		return nil, err
	}
	paths := ArtifactPaths(recs.Kind, prefix)
	switch recs.Kind {
	case KindProposals:
		err = fsutil.DumpJSON(fsys, recs.Proposal, paths[ArtifactProposal])
	case KindDetections:
		err = fsutil.DumpJSON(fsys, recs.BBox, paths[ArtifactBBox])
	case KindDetectionsWithMasks:
		if err = fsutil.DumpJSON(fsys, recs.BBox, paths[ArtifactBBox]); err == nil {
			err = fsutil.DumpJSON(fsys, recs.Segm, paths[ArtifactSegm])
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write %s artifacts: %w", recs.Kind, err)
	}
	return paths, nil
}

// ReadRecords loads an artifact written by WriteArtifacts.
func ReadRecords(fsys fsutil.FileSystem, path string) ([]coco.Result, error) {
	var recs []coco.Result
	if err := fsutil.LoadJSON(fsys, path, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
