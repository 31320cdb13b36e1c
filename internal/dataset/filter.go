package dataset

// Source is the part of the annotation store the image filter reads.
type Source interface {
	CategoryImageIDs(catID int64) []int64
	AnnotatedImageIDs() map[int64]bool
}

// FilterPolicy selects images for training.
type FilterPolicy struct {
	MinSize       int
	FilterEmptyGT bool
}

// FilterImages returns the indices of images to keep: the shorter side must
// be at least MinSize and, with FilterEmptyGT, the image must carry an
// annotation in one of catIDs. Crowd annotations count.
func FilterImages(images []ImageInfo, src Source, catIDs []int64, p FilterPolicy) []int {
	annotated := src.AnnotatedImageIDs()
	inCat := make(map[int64]bool)
	for _, c := range catIDs {
		for _, id := range src.CategoryImageIDs(c) {
			if annotated[id] {
				inCat[id] = true
			}
		}
	}
	keep := []int{}
	for i, img := range images {
		if p.FilterEmptyGT && !inCat[img.ID] {
			continue
		}
		if min(img.Width, img.Height) >= p.MinSize {
			keep = append(keep, i)
		}
	}
	return keep
}

// Filtered returns a dataset restricted to the images FilterImages keeps.
func (d *Dataset) Filtered(p FilterPolicy) *Dataset {
	keep := FilterImages(d.images, d.store, d.catIDs, p)
	out := *d
	out.images = make([]ImageInfo, len(keep))
	for i, k := range keep {
		out.images[i] = d.images[k]
	}
	return &out
}
