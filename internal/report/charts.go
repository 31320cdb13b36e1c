package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/cocoeval/internal/cocoeval"
)

// CategoryBar is one bar of the per-category chart. A nil AP is drawn as a
// gap.
type CategoryBar struct {
	Name string
	AP   *float64
}

// BarsFromAP converts evaluator output, mapping NaN to a gap.
func BarsFromAP(aps []cocoeval.CategoryAP) []CategoryBar {
	bars := make([]CategoryBar, len(aps))
	for i, c := range aps {
		bars[i].Name = c.Name
		if !math.IsNaN(c.AP) {
			v := c.AP
			bars[i].AP = &v
		}
	}
	return bars
}

// RenderCategoryChart writes an HTML page with a bar chart of per-category
// AP for family.
func RenderCategoryChart(w io.Writer, family string, bars []CategoryBar) error {
	names := make([]string, len(bars))
	data := make([]opts.BarData, len(bars))
	for i, b := range bars {
		names[i] = b.Name
		if b.AP == nil {
			// echarts skips "-" values.
			data[i] = opts.BarData{Value: "-"}
			continue
		}
		data[i] = opts.BarData{Value: math.Round(*b.AP*1000) / 1000}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Per-category AP", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s per-category AP", family), Subtitle: fmt.Sprintf("categories=%d", len(bars))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "AP"}),
	)
	bar.SetXAxis(names).
		AddSeries("AP", data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(len(bars) <= 30), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
