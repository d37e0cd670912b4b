package artifacts

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/scigolab/experiment"
	"github.com/YuminosukeSato/scigolab/metrics"
)

// Canvas size of every plot.
const (
	Width  = 4 * vg.Inch
	Height = 4 * vg.Inch
)

var (
	pointColor = color.RGBA{R: 31, G: 119, B: 180, A: 153}
	refColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	dashes     = []vg.Length{vg.Points(4), vg.Points(4)}
)

func encodePNG(p *plot.Plot) ([]byte, error) {
	w, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func scatter(pts plotter.XYs) (*plotter.Scatter, error) {
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	s.GlyphStyle.Color = pointColor
	s.GlyphStyle.Radius = vg.Points(2.5)
	return s, nil
}

func referenceLine(pts plotter.XYs) (*plotter.Line, error) {
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	l.LineStyle.Color = refColor
	l.LineStyle.Dashes = dashes
	return l, nil
}

// renderResidual plots actual−predicted against predicted.
func renderResidual(res *experiment.Result) ([]byte, error) {
	if len(res.Predictions) == 0 {
		return nil, skip("no predictions")
	}
	pts := make(plotter.XYs, len(res.Predictions))
	for i, p := range res.Predictions {
		pts[i].X = p
		pts[i].Y = res.YTest[i] - p
	}
	p := plot.New()
	p.Title.Text = "Residual Plot"
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "Residuals"

	s, err := scatter(pts)
	if err != nil {
		return nil, err
	}
	lo, hi := floats.Min(res.Predictions), floats.Max(res.Predictions)
	zero, err := referenceLine(plotter.XYs{{X: lo, Y: 0}, {X: hi, Y: 0}})
	if err != nil {
		return nil, err
	}
	p.Add(s, zero)
	return encodePNG(p)
}

// renderPredictedVsActual plots predicted against actual with the identity
// line for reference.
func renderPredictedVsActual(res *experiment.Result) ([]byte, error) {
	if len(res.Predictions) == 0 {
		return nil, skip("no predictions")
	}
	pts := make(plotter.XYs, len(res.YTest))
	for i, y := range res.YTest {
		pts[i].X = y
		pts[i].Y = res.Predictions[i]
	}
	p := plot.New()
	p.Title.Text = "Predicted vs Actual"
	p.X.Label.Text = "Actual"
	p.Y.Label.Text = "Predicted"

	s, err := scatter(pts)
	if err != nil {
		return nil, err
	}
	lo := math.Min(floats.Min(res.YTest), floats.Min(res.Predictions))
	hi := math.Max(floats.Max(res.YTest), floats.Max(res.Predictions))
	diag, err := referenceLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return nil, err
	}
	p.Add(s, diag)
	return encodePNG(p)
}

// confusionGrid adapts a confusion matrix to plotter.GridXYZ. Row 0 (the
// first true label) is drawn at the top.
type confusionGrid struct {
	cm *mat.Dense
	k  int
}

func (g confusionGrid) Dims() (c, r int)   { return g.k, g.k }
func (g confusionGrid) Z(c, r int) float64 { return g.cm.At(g.k-1-r, c) }
func (g confusionGrid) X(c int) float64    { return float64(c) }
func (g confusionGrid) Y(r int) float64    { return float64(r) }

// presentLabels returns the sorted class codes occurring in a or b.
func presentLabels(k int, a, b []float64) []int {
	seen := make([]bool, k)
	for _, v := range a {
		seen[int(v)] = true
	}
	for _, v := range b {
		seen[int(v)] = true
	}
	var out []int
	for c, ok := range seen {
		if ok {
			out = append(out, c)
		}
	}
	return out
}

// renderConfusionMatrix draws counts over the labels present in the
// held-out targets or predictions.
func renderConfusionMatrix(res *experiment.Result) ([]byte, error) {
	if len(res.YTest) == 0 {
		return nil, skip("no predictions")
	}
	nClasses := len(res.Classes)
	full, err := metrics.ConfusionMatrix(
		mat.NewVecDense(len(res.YTest), append([]float64(nil), res.YTest...)),
		mat.NewVecDense(len(res.Predictions), append([]float64(nil), res.Predictions...)),
		nClasses,
	)
	if err != nil {
		return nil, err
	}
	labels := presentLabels(nClasses, res.YTest, res.Predictions)
	k := len(labels)
	cm := mat.NewDense(k, k, nil)
	for i, a := range labels {
		for j, b := range labels {
			cm.Set(i, j, full.At(a, b))
		}
	}

	cmap := moreland.Kindlmann()
	cmap.SetMin(0)
	cmap.SetMax(1)
	pal := palette.Reverse(cmap).Palette(64)

	p := plot.New()
	p.Title.Text = "Confusion Matrix"
	p.X.Label.Text = "Predicted label"
	p.Y.Label.Text = "True label"

	grid := confusionGrid{cm: cm, k: k}
	hm := plotter.NewHeatMap(grid, pal)
	if mat.Max(cm) == 0 {
		hm.Max = 1
	}
	p.Add(hm)

	maxCount := mat.Max(cm)
	var annot plotter.XYLabels
	for r := 0; r < k; r++ {
		for c := 0; c < k; c++ {
			annot.XYs = append(annot.XYs, plotter.XY{X: grid.X(c), Y: grid.Y(r)})
			annot.Labels = append(annot.Labels, strconv.Itoa(int(grid.Z(c, r))))
		}
	}
	counts, err := plotter.NewLabels(annot)
	if err != nil {
		return nil, err
	}
	for i := range counts.TextStyle {
		counts.TextStyle[i].XAlign = text.XCenter
		counts.TextStyle[i].YAlign = text.YCenter
		r, c := i/k, i%k
		if maxCount > 0 && grid.Z(c, r) > maxCount/2 {
			counts.TextStyle[i].Color = color.White
		}
	}
	p.Add(counts)

	xTicks := make(plot.ConstantTicks, k)
	yTicks := make(plot.ConstantTicks, k)
	for i, code := range labels {
		name := res.ClassLabel(code)
		xTicks[i] = plot.Tick{Value: float64(i), Label: name}
		yTicks[k-1-i] = plot.Tick{Value: float64(k - 1 - i), Label: name}
	}
	p.X.Tick.Marker = xTicks
	p.Y.Tick.Marker = yTicks
	p.X.Min, p.X.Max = -0.5, float64(k)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(k)-0.5
	return encodePNG(p)
}

type rocSeries struct {
	name     string
	fpr, tpr []float64
}

// rocCurves builds one curve for two classes and one-vs-rest curves
// otherwise. Classes absent from the held-out set get no curve.
func rocCurves(res *experiment.Result) ([]rocSeries, error) {
	distinct := make(map[float64]bool)
	for _, y := range res.YTest {
		distinct[y] = true
	}
	if len(distinct) < 2 {
		return nil, skip("single-class test set")
	}

	scores, err := res.Pipeline.Scores(res.XTest)
	if err != nil {
		return nil, err
	}
	classes := res.Pipeline.ScoreClasses()
	_, cols := scores.Dims()

	curve := func(positive int, col int) ([]float64, []float64, bool, error) {
		n := len(res.YTest)
		yBin := mat.NewVecDense(n, nil)
		pos := 0
		for i, y := range res.YTest {
			if int(y) == positive {
				yBin.SetVec(i, 1)
				pos++
			}
		}
		if pos == 0 || pos == n {
			return nil, nil, false, nil
		}
		fpr, tpr, _, err := metrics.ROCCurve(yBin, mat.NewVecDense(n, mat.Col(nil, col, scores)))
		if err != nil {
			return nil, nil, false, err
		}
		return fpr, tpr, true, nil
	}

	if len(classes) == 2 {
		col := cols - 1 // n×1 decision values or the positive probability column
		fpr, tpr, ok, err := curve(classes[1], col)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, skip("single-class test set")
		}
		return []rocSeries{{name: fmt.Sprintf("AUC = %.2f", metrics.AreaUnderCurve(fpr, tpr)), fpr: fpr, tpr: tpr}}, nil
	}

	var out []rocSeries
	for k, c := range classes {
		if k >= cols {
			break
		}
		fpr, tpr, ok, err := curve(c, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, rocSeries{
			name: fmt.Sprintf("%s (AUC = %.2f)", res.ClassLabel(c), metrics.AreaUnderCurve(fpr, tpr)),
			fpr:  fpr,
			tpr:  tpr,
		})
	}
	if len(out) == 0 {
		return nil, skip("no class has both positives and negatives in the test set")
	}
	return out, nil
}

func renderROC(res *experiment.Result) ([]byte, error) {
	series, err := rocCurves(res)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = "ROC Curve"
	p.X.Label.Text = "False Positive Rate"
	p.Y.Label.Text = "True Positive Rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Legend.Top = false

	chance, err := referenceLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return nil, err
	}
	chance.LineStyle.Color = color.Gray{Y: 128}
	p.Add(chance)

	for i, s := range series {
		pts := make(plotter.XYs, len(s.fpr))
		for j := range s.fpr {
			pts[j] = plotter.XY{X: s.fpr[j], Y: s.tpr[j]}
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		l.LineStyle.Color = plotutil.Color(i)
		l.LineStyle.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(s.name, l)
	}
	return encodePNG(p)
}
