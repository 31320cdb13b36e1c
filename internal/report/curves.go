// Package report renders evaluation results as precision-recall plots and
// per-category charts.
package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/cocoeval/internal/cocoeval"
	"github.com/banshee-data/cocoeval/internal/security"
)

// Curve is one precision-recall series. Recall steps where no category
// contributed are left out.
type Curve struct {
	Label     string
	Recall    []float64
	Precision []float64
}

// PRCurves extracts the curves at IoU 0.50 and 0.75, when those thresholds
// were evaluated, followed by the mean over every threshold.
func PRCurves(acc *cocoeval.Accumulation) []Curve {
	var curves []Curve
	for _, thr := range []float64{0.5, 0.75} {
		idx := iouIndex(acc.Params.IoUThrs, thr)
		if idx < 0 {
			continue
		}
		curves = append(curves, curve(acc, idx, fmt.Sprintf("IoU=%.2f", thr)))
	}
	return append(curves, curve(acc, -1, "IoU=mean"))
}

func iouIndex(thrs []float64, want float64) int {
	for i, t := range thrs {
		if math.Abs(t-want) < 1e-9 {
			return i
		}
	}
	return -1
}

func curve(acc *cocoeval.Accumulation, iou int, label string) Curve {
	rec, prec := acc.PRCurve(iou)
	c := Curve{Label: label}
	for i := range rec {
		if prec[i] < 0 {
			continue
		}
		c.Recall = append(c.Recall, rec[i])
		c.Precision = append(c.Precision, prec[i])
	}
	return c
}

// WritePRCurves saves the curves of family as <family>_pr.png under dir and
// returns the file path.
func WritePRCurves(dir, family string, curves []Curve) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create plot dir: %w", err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s precision-recall", family)
	p.X.Label.Text = "Recall"
	p.Y.Label.Text = "Precision"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1.05

	colors := generateColors(len(curves))
	for i, c := range curves {
		if len(c.Recall) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(c.Recall))
		for j := range c.Recall {
			pts[j] = plotter.XY{X: c.Recall[j], Y: c.Precision[j]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return "", err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(c.Label, line)
	}
	p.Legend.Top = false
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = 10

	path := filepath.Join(dir, security.SanitizeFilename(family)+"_pr.png")
	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

// generateColors spreads n hues around the colour wheel.
func generateColors(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.45)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	q := l * (1 + s)
	if l >= 0.5 {
		q = l + s - l*s
	}
	p := 2*l - q
	toByte := func(v float64) uint8 { return uint8(math.Round(v * 255)) }
	return toByte(hueToRGB(p, q, h+1.0/3)), toByte(hueToRGB(p, q, h)), toByte(hueToRGB(p, q, h-1.0/3))
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}
