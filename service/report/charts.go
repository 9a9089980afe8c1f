package report

import (
	"bytes"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/graygillman/CapmAnalysis/service/core"
)

const fittedLinePoints = 100

// RegressionChart scatters benchmark excess against asset excess returns and draws the fitted line
// across the observed benchmark range
func (rp *Reporter) RegressionChart(res *core.AnalysisResult) ([]byte, error) {
	req := res.Request
	x := res.Frame.BenchmarkExcess()
	y := res.Frame.AssetExcess()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s Returns: Asset vs. Benchmark", req.Frequency.Word())
	p.X.Label.Text = core.ExcessLabel(req.Benchmark)
	p.Y.Label.Text = core.ExcessLabel(req.Ticker)
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	points := make(plotter.XYs, len(x))
	for i := range x {
		points[i] = plotter.XY{X: x[i], Y: y[i]}
	}
	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return nil, fmt.Errorf("error building scatter: %w", err)
	}
	scatter.GlyphStyle.Color = plotutil.Color(0)
	scatter.GlyphStyle.Radius = vg.Points(2)

	alpha, beta := res.Regression.Alpha.Value, res.Regression.Beta.Value
	lo, hi := floats.Min(x), floats.Max(x)
	fitted := make(plotter.XYs, fittedLinePoints)
	step := (hi - lo) / float64(fittedLinePoints-1)
	for i := range fitted {
		fx := lo + float64(i)*step
		fitted[i] = plotter.XY{X: fx, Y: alpha + beta*fx}
	}
	line, err := plotter.NewLine(fitted)
	if err != nil {
		return nil, fmt.Errorf("error building regression line: %w", err)
	}
	line.LineStyle.Color = plotutil.Color(1)
	line.LineStyle.Width = vg.Points(1.5)

	p.Add(scatter, line)
	p.Legend.Add("Data Points", scatter)
	p.Legend.Add("Regression Line", line)

	return rp.render(p)
}

// RollingBetaChart draws one line per window width over the frame dates. Rows without a beta break
// the line instead of being drawn as zero.
func (rp *Reporter) RollingBetaChart(res *core.AnalysisResult) ([]byte, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Rolling Beta Comparison of %s relative to %s", res.Request.Ticker, res.Request.Benchmark)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Rolling Beta"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	dates := res.Frame.Dates()
	for i, w := range res.RollingWindows {
		segments := splitSegments(dates, res.RollingBetas[w], func(j int) float64 {
			return float64(dates[j].Unix())
		})
		if len(segments) == 0 {
			rp.log.Debug().Int("window", w).Msg("no rolling beta to draw")
			continue
		}

		for k, seg := range segments {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return nil, fmt.Errorf("error building rolling beta line %d: %w", w, err)
			}
			line.LineStyle.Color = plotutil.Color(i)
			line.LineStyle.Width = vg.Points(1.2)
			p.Add(line)
			if k == 0 {
				p.Legend.Add(core.RollingBetaLabel(w), line)
			}
		}
	}

	return rp.render(p)
}

func (rp *Reporter) render(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(rp.width, rp.height, "png")
	if err != nil {
		return nil, fmt.Errorf("error creating png writer: %w", err)
	}

	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("error rendering png: %w", err)
	}
	return buf.Bytes(), nil
}
