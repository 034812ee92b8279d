// Package plotting renders fit diagnostics: predicted-versus-actual
// scatter plots and per-iteration training curves.
package plotting

import (
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

// PredictionScatter writes a predicted-versus-actual scatter plot with
// the identity line to path (format from the file extension).
func PredictionScatter(yTrue, yPred *mat.VecDense, path string) error {
	if yTrue.Len() != yPred.Len() {
		return errors.NewDimensionError("plotting.PredictionScatter", yTrue.Len(), yPred.Len(), 0)
	}
	if yTrue.Len() == 0 {
		return errors.NewModelError("plotting.PredictionScatter", "no points", errors.ErrEmptyData)
	}

	p := plot.New()
	p.Title.Text = "Predicted vs actual"
	p.X.Label.Text = "Actual"
	p.Y.Label.Text = "Predicted"

	pts := make(plotter.XYs, yTrue.Len())
	lo, hi := yTrue.AtVec(0), yTrue.AtVec(0)
	for i := 0; i < yTrue.Len(); i++ {
		pts[i].X = yTrue.AtVec(i)
		pts[i].Y = yPred.AtVec(i)
		if pts[i].X < lo {
			lo = pts[i].X
		}
		if pts[i].X > hi {
			hi = pts[i].X
		}
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "scatter")
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(scatter)

	identity, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "identity line")
	}
	identity.LineStyle.Color = plotutil.Color(1)
	p.Add(identity)

	return p.Save(5*vg.Inch, 5*vg.Inch, path)
}

// TrainingCurve writes the per-iteration evaluation history (one series
// per metric, e.g. training_rmse and valid_rmse) to path.
func TrainingCurve(history map[string][]float64, path string) error {
	if len(history) == 0 {
		return errors.NewModelError("plotting.TrainingCurve", "empty history", errors.ErrEmptyData)
	}

	p := plot.New()
	p.Title.Text = "Training curve"
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Metric"
	p.Legend.Top = true

	names := make([]string, 0, len(history))
	for name := range history {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		values := history[name]
		pts := make(plotter.XYs, len(values))
		for j, v := range values {
			pts[j].X = float64(j)
			pts[j].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrap(err, name)
		}
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(name, line)
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
