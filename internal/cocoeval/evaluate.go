package cocoeval

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/banshee-data/cocoeval/internal/coco"
	"github.com/banshee-data/cocoeval/internal/mask"
	"github.com/banshee-data/cocoeval/internal/monitoring"
)

type cellKey struct {
	img int64
	cat int64
}

// instance is an annotation prepared for matching.
type instance struct {
	id     int64
	area   float64
	box    mask.BBox
	rle    mask.RLE
	crowd  bool
	ignore bool
	score  float64
}

// imageEval is the matching outcome for one (category, area range, image).
type imageEval struct {
	dtScores  []float64
	dtMatched [][]bool // [iou][detection]
	dtIgnore  [][]bool // [iou][detection]
	gtIgnore  []bool
}

// Evaluator runs the COCO protocol over a ground-truth and a detection index
// that share images and categories.
type Evaluator struct {
	gt, dt *coco.Index
	params Params

	gts  map[cellKey][]instance
	dts  map[cellKey][]instance
	ious map[cellKey][][]float64

	// evalImgs is laid out [category][area range][image].
	evalImgs  [][][]*imageEval
	evaluated Params

	acc   *Accumulation
	stats *Stats
}

// New returns an evaluator. Params are copied; ImgIDs defaults to every
// ground-truth image and CatIDs to every category.
func New(gt, dt *coco.Index, p Params) (*Evaluator, error) {
	if gt == nil || dt == nil {
		return nil, fmt.Errorf("ground truth and detections are both required")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	p = p.clone()
	if p.ImgIDs == nil {
		p.ImgIDs = gt.ImageIDs()
	}
	if p.CatIDs == nil {
		p.CatIDs = gt.CategoryIDs(nil)
	}
	return &Evaluator{gt: gt, dt: dt, params: p}, nil
}

// Params returns the parameters in effect. After Evaluate, ImgIDs and CatIDs
// are in their normalised order.
func (e *Evaluator) Params() Params {
	if e.evalImgs != nil {
		return e.evaluated.clone()
	}
	return e.params.clone()
}

func (p Params) clone() Params {
	q := p
	q.ImgIDs = slices.Clone(p.ImgIDs)
	q.CatIDs = slices.Clone(p.CatIDs)
	q.IoUThrs = slices.Clone(p.IoUThrs)
	q.RecThrs = slices.Clone(p.RecThrs)
	q.MaxDets = slices.Clone(p.MaxDets)
	q.AreaRanges = slices.Clone(p.AreaRanges)
	return q
}

// Evaluate matches detections to ground truth for every image, category,
// area range and IoU threshold.
func (e *Evaluator) Evaluate() error {
	start := time.Now()
	p := e.params.clone()
	p.ImgIDs = uniqueSorted(p.ImgIDs)
	if p.UseCats {
		p.CatIDs = uniqueSorted(p.CatIDs)
	}
	slices.Sort(p.MaxDets)
	e.evaluated = p

	if err := e.prepare(); err != nil {
		return err
	}

	catIDs := e.catIDs()
	e.ious = make(map[cellKey][][]float64)
	for _, img := range p.ImgIDs {
		for _, cat := range catIDs {
			e.ious[cellKey{img, cat}] = e.computeIoU(img, cat)
		}
	}

	maxDet := p.MaxDets[len(p.MaxDets)-1]
	e.evalImgs = make([][][]*imageEval, len(catIDs))
	for k, cat := range catIDs {
		e.evalImgs[k] = make([][]*imageEval, len(p.AreaRanges))
		for a, rng := range p.AreaRanges {
			row := make([]*imageEval, len(p.ImgIDs))
			for i, img := range p.ImgIDs {
				row[i] = e.evaluateImage(img, cat, rng, maxDet)
			}
			e.evalImgs[k][a] = row
		}
	}
	e.acc = nil
	e.stats = nil
	monitoring.Logf("cocoeval: evaluated %s over %d images, %d categories (%s)",
		p.IoUType, len(p.ImgIDs), len(catIDs), time.Since(start).Round(time.Millisecond))
	return nil
}

// catIDs returns the category axis: the evaluated categories, or a single
// pooled slot when categories are ignored.
func (e *Evaluator) catIDs() []int64 {
	if e.evaluated.UseCats {
		return e.evaluated.CatIDs
	}
	return []int64{-1}
}

func (e *Evaluator) prepare() error {
	p := e.evaluated
	var catFilter []int64
	if p.UseCats {
		catFilter = p.CatIDs
	}
	gts, err := e.gt.LoadAnnotations(e.gt.AnnotationIDs(p.ImgIDs, catFilter...))
	if err != nil {
		return fmt.Errorf("failed to load ground truth: %w", err)
	}
	dts, err := e.dt.LoadAnnotations(e.dt.AnnotationIDs(p.ImgIDs, catFilter...))
	if err != nil {
		return fmt.Errorf("failed to load detections: %w", err)
	}

	e.gts = make(map[cellKey][]instance)
	for _, a := range gts {
		in, err := e.instance(e.gt, a)
		if err != nil {
			return fmt.Errorf("ground truth: %w", err)
		}
		in.ignore = in.crowd
		k := cellKey{a.ImageID, a.CategoryID}
		e.gts[k] = append(e.gts[k], in)
	}
	e.dts = make(map[cellKey][]instance)
	for _, a := range dts {
		in, err := e.instance(e.dt, a)
		if err != nil {
			return fmt.Errorf("detection: %w", err)
		}
		k := cellKey{a.ImageID, a.CategoryID}
		e.dts[k] = append(e.dts[k], in)
	}
	return nil
}

func (e *Evaluator) instance(idx *coco.Index, a coco.Annotation) (instance, error) {
	in := instance{
		id:    a.ID,
		area:  a.Area,
		crowd: bool(a.IsCrowd),
		score: a.Score,
	}
	if len(a.BBox) == 4 {
		copy(in.box[:], a.BBox)
	}
	if e.evaluated.IoUType == IoUSegm {
		rle, err := idx.AnnotationRLE(a)
		if err != nil {
			return instance{}, err
		}
		in.rle = rle
	}
	return in, nil
}

// cell returns the ground truth and detections compared for (img, cat). With
// categories pooled, every evaluated category of the image is concatenated.
func (e *Evaluator) cell(img, cat int64) (gt, dt []instance) {
	if e.evaluated.UseCats {
		k := cellKey{img, cat}
		return e.gts[k], e.dts[k]
	}
	for _, c := range e.evaluated.CatIDs {
		k := cellKey{img, c}
		gt = append(gt, e.gts[k]...)
		dt = append(dt, e.dts[k]...)
	}
	return gt, dt
}

// byScore returns detections stably ordered by descending score, truncated
// to maxDet.
func byScore(dt []instance, maxDet int) []instance {
	out := slices.Clone(dt)
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	if len(out) > maxDet {
		out = out[:maxDet]
	}
	return out
}

func (e *Evaluator) computeIoU(img, cat int64) [][]float64 {
	gt, dt := e.cell(img, cat)
	if len(gt) == 0 || len(dt) == 0 {
		return nil
	}
	maxDets := e.evaluated.MaxDets
	dt = byScore(dt, maxDets[len(maxDets)-1])
	crowd := make([]bool, len(gt))
	for i, g := range gt {
		crowd[i] = g.crowd
	}
	if e.evaluated.IoUType == IoUSegm {
		d := make([]mask.RLE, len(dt))
		for i := range dt {
			d[i] = dt[i].rle
		}
		g := make([]mask.RLE, len(gt))
		for i := range gt {
			g[i] = gt[i].rle
		}
		return mask.IoU(d, g, crowd)
	}
	d := make([]mask.BBox, len(dt))
	for i := range dt {
		d[i] = dt[i].box
	}
	g := make([]mask.BBox, len(gt))
	for i := range gt {
		g[i] = gt[i].box
	}
	return mask.BoxIoU(d, g, crowd)
}

// evaluateImage greedily matches detections, in descending score order, to
// the best remaining ground truth at each IoU threshold. Non-crowd ground
// truth is matched at most once; a detection prefers regular ground truth
// over ignored ground truth.
func (e *Evaluator) evaluateImage(img, cat int64, rng AreaRange, maxDet int) *imageEval {
	gt, dt := e.cell(img, cat)
	if len(gt) == 0 && len(dt) == 0 {
		return nil
	}

	ignored := make([]bool, len(gt))
	for i, g := range gt {
		ignored[i] = g.ignore || !rng.Contains(g.area)
	}
	order := make([]int, len(gt))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return !ignored[order[i]] && ignored[order[j]]
	})
	gtIg := make([]bool, len(gt))
	crowd := make([]bool, len(gt))
	for i, o := range order {
		gtIg[i] = ignored[o]
		crowd[i] = gt[o].crowd
	}

	dt = byScore(dt, maxDet)
	ious := e.ious[cellKey{img, cat}]

	thrs := e.evaluated.IoUThrs
	res := &imageEval{
		dtScores:  make([]float64, len(dt)),
		dtMatched: make([][]bool, len(thrs)),
		dtIgnore:  make([][]bool, len(thrs)),
		gtIgnore:  gtIg,
	}
	for d := range dt {
		res.dtScores[d] = dt[d].score
	}
	for t, thr := range thrs {
		gtm := make([]bool, len(gt))
		dtm := make([]bool, len(dt))
		dtIg := make([]bool, len(dt))
		if len(ious) > 0 {
			for d := range dt {
				best := min(thr, 1-1e-10)
				m := -1
				for g := range order {
					if gtm[g] && !crowd[g] {
						continue
					}
					if m > -1 && !gtIg[m] && gtIg[g] {
						break
					}
					iou := ious[d][order[g]]
					if iou < best {
						continue
					}
					best = iou
					m = g
				}
				if m == -1 {
					continue
				}
				dtIg[d] = gtIg[m]
				dtm[d] = true
				gtm[m] = true
			}
		}
		for d := range dt {
			if !dtm[d] && !rng.Contains(dt[d].area) {
				dtIg[d] = true
			}
		}
		res.dtMatched[t] = dtm
		res.dtIgnore[t] = dtIg
	}
	return res
}

func uniqueSorted(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
