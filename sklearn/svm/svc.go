// Package svm provides an RBF-kernel support vector classifier trained with
// SMO. Multiclass problems are decomposed one-vs-one; probabilities come
// from Platt scaling of each pairwise machine followed by pairwise coupling.
package svm

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/metrics"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SVC is a C-support vector classifier with an RBF kernel.
type SVC struct {
	state *model.StateManager

	C       float64
	gamma   float64 // <= 0 selects 1 / (n_features · Var(X))
	tol     float64
	maxIter int

	X_       *mat.Dense
	gamma_   float64
	classes_ []int
	// machines_ holds one binary machine per class pair (a, b), a < b, in
	// lexicographic order.
	machines_ []*binaryMachine
}

// binaryMachine separates class b (positive) from class a (negative).
type binaryMachine struct {
	a, b    int
	support []int     // rows of X_
	coef    []float64 // α_i · y_i
	rho     float64
	probA   float64
	probB   float64
}

// SVCOption configures an SVC.
type SVCOption func(*SVC)

// WithC sets the soft-margin penalty.
func WithC(c float64) SVCOption {
	return func(s *SVC) {
		s.C = c
	}
}

// WithGamma sets a fixed RBF width. Non-positive values use the "scale"
// heuristic.
func WithGamma(gamma float64) SVCOption {
	return func(s *SVC) {
		s.gamma = gamma
	}
}

// WithTol sets the SMO stopping tolerance on the maximal KKT violation.
func WithTol(tol float64) SVCOption {
	return func(s *SVC) {
		s.tol = tol
	}
}

// WithMaxIter caps the SMO iterations per pairwise machine.
func WithMaxIter(n int) SVCOption {
	return func(s *SVC) {
		s.maxIter = n
	}
}

// NewSVC creates a classifier with C=1, gamma="scale" and tol=1e-3.
func NewSVC(opts ...SVCOption) *SVC {
	s := &SVC{
		state:   model.NewStateManager(),
		C:       1.0,
		tol:     1e-3,
		maxIter: 1_000_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fit trains one machine per class pair and calibrates its probabilities.
func (s *SVC) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "SVC.Fit")

	if s.C <= 0 {
		return errors.NewValidationError("C", "must be positive", s.C)
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.ErrEmptyData
	}
	if yRows, _ := y.Dims(); yRows != rows {
		return errors.NewDimensionError("SVC.Fit", rows, yRows, 0)
	}
	s.state.Reset()

	Xd := mat.DenseCopyOf(X)
	classes, labels := encodeLabels(mat.Col(nil, 0, y))
	if len(classes) < 2 {
		return errors.NewValueError("SVC.Fit",
			fmt.Sprintf("needs samples of at least 2 classes, got %d", len(classes)))
	}

	gamma := s.gamma
	if gamma <= 0 {
		_, v := stat.PopMeanVariance(Xd.RawMatrix().Data, nil)
		gamma = 1
		if v > 0 {
			gamma = 1 / (float64(cols) * v)
		}
	}
	s.X_ = Xd
	s.gamma_ = gamma
	kernel := s.gramMatrix(Xd)

	var machines []*binaryMachine
	for a := 0; a < len(classes); a++ {
		for b := a + 1; b < len(classes); b++ {
			var idx []int
			var sign []float64
			for i, l := range labels {
				switch l {
				case a:
					idx = append(idx, i)
					sign = append(sign, -1)
				case b:
					idx = append(idx, i)
					sign = append(sign, 1)
				}
			}
			m := s.solve(kernel, idx, sign)
			m.a, m.b = a, b
			dec := make([]float64, len(idx))
			for t, i := range idx {
				dec[t] = m.decisionFromKernel(kernel, i)
			}
			m.probA, m.probB = plattScaling(dec, sign)
			machines = append(machines, m)
		}
	}

	s.classes_ = classes
	s.machines_ = machines
	s.state.SetDimensions(cols, rows)
	s.state.SetFitted()
	return nil
}

func (s *SVC) rbf(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return math.Exp(-s.gamma_ * d * d)
}

func (s *SVC) gramMatrix(X *mat.Dense) *mat.SymDense {
	rows, _ := X.Dims()
	K := mat.NewSymDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := i; j < rows; j++ {
			K.SetSym(i, j, s.rbf(X.RawRowView(i), X.RawRowView(j)))
		}
	}
	return K
}

// solve runs SMO with maximal-violating-pair selection on the rows idx
// with labels sign (±1).
func (s *SVC) solve(K *mat.SymDense, idx []int, sign []float64) *binaryMachine {
	n := len(idx)
	C := s.C
	alpha := make([]float64, n)
	grad := make([]float64, n)
	for t := range grad {
		grad[t] = -1
	}
	q := func(t, u int) float64 {
		return sign[t] * sign[u] * K.At(idx[t], idx[u])
	}
	isUp := func(t int) bool {
		return (sign[t] > 0 && alpha[t] < C) || (sign[t] < 0 && alpha[t] > 0)
	}
	isLow := func(t int) bool {
		return (sign[t] > 0 && alpha[t] > 0) || (sign[t] < 0 && alpha[t] < C)
	}

	converged := false
	for iter := 0; iter < s.maxIter; iter++ {
		i, j := -1, -1
		gMax, gMin := math.Inf(-1), math.Inf(1)
		for t := 0; t < n; t++ {
			v := -sign[t] * grad[t]
			if isUp(t) && v > gMax {
				gMax, i = v, t
			}
			if isLow(t) && v < gMin {
				gMin, j = v, t
			}
		}
		if i < 0 || j < 0 || gMax-gMin < s.tol {
			converged = true
			break
		}

		oldI, oldJ := alpha[i], alpha[j]
		quad := K.At(idx[i], idx[i]) + K.At(idx[j], idx[j]) - 2*K.At(idx[i], idx[j])
		if quad <= 0 {
			quad = 1e-12
		}
		if sign[i] != sign[j] {
			delta := (-grad[i] - grad[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j] = 0
					alpha[i] = diff
				}
			} else if alpha[i] < 0 {
				alpha[i] = 0
				alpha[j] = -diff
			}
			if diff > 0 {
				if alpha[i] > C {
					alpha[i] = C
					alpha[j] = C - diff
				}
			} else if alpha[j] > C {
				alpha[j] = C
				alpha[i] = C + diff
			}
		} else {
			delta := (grad[i] - grad[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > C {
				if alpha[i] > C {
					alpha[i] = C
					alpha[j] = sum - C
				}
			} else if alpha[j] < 0 {
				alpha[j] = 0
				alpha[i] = sum
			}
			if sum > C {
				if alpha[j] > C {
					alpha[j] = C
					alpha[i] = sum - C
				}
			} else if alpha[i] < 0 {
				alpha[i] = 0
				alpha[j] = sum
			}
		}

		dI, dJ := alpha[i]-oldI, alpha[j]-oldJ
		for t := 0; t < n; t++ {
			grad[t] += q(t, i)*dI + q(t, j)*dJ
		}
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("SVC", s.maxIter,
			"SMO reached the iteration limit; the solution may be inaccurate"))
	}

	m := &binaryMachine{rho: computeRho(alpha, grad, sign, C)}
	for t, a := range alpha {
		if a > 0 {
			m.support = append(m.support, idx[t])
			m.coef = append(m.coef, a*sign[t])
		}
	}
	return m
}

// computeRho averages y·G over free vectors, falling back to the midpoint
// of the feasible interval.
func computeRho(alpha, grad, sign []float64, C float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	sumFree, nFree := 0.0, 0
	for t, a := range alpha {
		yG := sign[t] * grad[t]
		switch {
		case a >= C:
			if sign[t] < 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		case a <= 0:
			if sign[t] > 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		default:
			nFree++
			sumFree += yG
		}
	}
	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}

func (m *binaryMachine) decisionFromKernel(K *mat.SymDense, row int) float64 {
	f := -m.rho
	for t, sv := range m.support {
		f += m.coef[t] * K.At(sv, row)
	}
	return f
}

func (s *SVC) decision(m *binaryMachine, x []float64) float64 {
	f := -m.rho
	for t, sv := range m.support {
		f += m.coef[t] * s.rbf(s.X_.RawRowView(sv), x)
	}
	return f
}

func (s *SVC) pairwise(X mat.Matrix, method string) ([][]float64, error) {
	if err := s.state.RequireFitted("SVC", method); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := s.state.CheckFeatures("SVC."+method, cols); err != nil {
		return nil, err
	}
	out := make([][]float64, rows)
	x := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(x, i, X)
		out[i] = make([]float64, len(s.machines_))
		for k, m := range s.machines_ {
			out[i][k] = s.decision(m, x)
		}
	}
	return out, nil
}

// DecisionFunction returns n×1 scores for two classes (positive means the
// second class) and one-vs-rest shaped n×k scores otherwise: pairwise
// votes plus a bounded confidence term.
func (s *SVC) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	dec, err := s.pairwise(X, "DecisionFunction")
	if err != nil {
		return nil, err
	}
	k := len(s.classes_)
	if k == 2 {
		out := mat.NewDense(len(dec), 1, nil)
		for i, d := range dec {
			out.Set(i, 0, d[0])
		}
		return out, nil
	}
	out := mat.NewDense(len(dec), k, nil)
	for i, d := range dec {
		votes := make([]float64, k)
		conf := make([]float64, k)
		for p, m := range s.machines_ {
			if d[p] > 0 {
				votes[m.b]++
			} else {
				votes[m.a]++
			}
			conf[m.b] += d[p]
			conf[m.a] -= d[p]
		}
		for c := 0; c < k; c++ {
			out.Set(i, c, votes[c]+conf[c]/(3*(math.Abs(conf[c])+1)))
		}
	}
	return out, nil
}

// Predict returns the class winning the pairwise vote. Ties go to the
// lower class.
func (s *SVC) Predict(X mat.Matrix) (mat.Matrix, error) {
	dec, err := s.pairwise(X, "Predict")
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(dec), 1, nil)
	for i, d := range dec {
		votes := make([]int, len(s.classes_))
		for p, m := range s.machines_ {
			if d[p] > 0 {
				votes[m.b]++
			} else {
				votes[m.a]++
			}
		}
		best := 0
		for c := 1; c < len(votes); c++ {
			if votes[c] > votes[best] {
				best = c
			}
		}
		out.Set(i, 0, float64(s.classes_[best]))
	}
	return out, nil
}

// PredictProba returns calibrated class probabilities.
func (s *SVC) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	dec, err := s.pairwise(X, "PredictProba")
	if err != nil {
		return nil, err
	}
	k := len(s.classes_)
	out := mat.NewDense(len(dec), k, nil)
	for i, d := range dec {
		// r[a][b] = P(a | a or b)
		r := make([][]float64, k)
		for c := range r {
			r[c] = make([]float64, k)
		}
		for p, m := range s.machines_ {
			pb := errors.ClipValue(sigmoidPredict(d[p], m.probA, m.probB), 1e-7, 1-1e-7)
			r[m.b][m.a] = pb
			r[m.a][m.b] = 1 - pb
		}
		if k == 2 {
			out.Set(i, 0, r[0][1])
			out.Set(i, 1, r[1][0])
			continue
		}
		out.SetRow(i, couple(r))
	}
	return out, nil
}

// Score returns the mean accuracy on (X, y).
func (s *SVC) Score(X, y mat.Matrix) (float64, error) {
	pred, err := s.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	return metrics.Accuracy(mat.NewVecDense(rows, mat.Col(nil, 0, y)), mat.NewVecDense(rows, mat.Col(nil, 0, pred)))
}

// Classes returns the sorted class labels seen during Fit.
func (s *SVC) Classes() []int {
	return append([]int(nil), s.classes_...)
}

// NSupport returns the number of distinct support vectors.
func (s *SVC) NSupport() int {
	seen := make(map[int]bool)
	for _, m := range s.machines_ {
		for _, sv := range m.support {
			seen[sv] = true
		}
	}
	return len(seen)
}

// GetParams returns the hyperparameters.
func (s *SVC) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"C":        s.C,
		"gamma":    s.gamma,
		"kernel":   "rbf",
		"tol":      s.tol,
		"max_iter": s.maxIter,
	}
}

func (s *SVC) String() string {
	return fmt.Sprintf("SVC(C=%g, kernel=rbf, fitted=%t)", s.C, s.state.IsFitted())
}

func encodeLabels(y []float64) ([]int, []int) {
	seen := make(map[int]bool)
	for _, v := range y {
		seen[int(v)] = true
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	labels := make([]int, len(y))
	for i, v := range y {
		labels[i] = index[int(v)]
	}
	return classes, labels
}
