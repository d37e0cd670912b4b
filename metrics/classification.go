package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigolab/pkg/errors"
)

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ConfusionMatrix returns an nClasses × nClasses matrix C where C[i][j] counts
// samples of true class i predicted as class j. Labels must be integers in
// [0, nClasses).
func ConfusionMatrix(yTrue, yPred *mat.VecDense, nClasses int) (*mat.Dense, error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if nClasses < 1 {
		return nil, errors.NewValueError("ConfusionMatrix", "nClasses must be positive")
	}
	cm := mat.NewDense(nClasses, nClasses, nil)
	for i := 0; i < n; i++ {
		t, ok1 := classIndex(yTrue.AtVec(i), nClasses)
		p, ok2 := classIndex(yPred.AtVec(i), nClasses)
		if !ok1 || !ok2 {
			return nil, errors.NewValueError("ConfusionMatrix", "label outside [0, nClasses)")
		}
		cm.Set(t, p, cm.At(t, p)+1)
	}
	return cm, nil
}

// PrecisionRecallF1 computes precision, recall and F1 over the labels present
// in yTrue or yPred, weighted by true-class support. A class whose denominator
// is zero scores 0 and an UndefinedMetricWarning is emitted.
func PrecisionRecallF1(yTrue, yPred *mat.VecDense) (precision, recall, f1 float64, err error) {
	n, err := checkPair("PrecisionRecallF1", yTrue, yPred)
	if err != nil {
		return 0, 0, 0, err
	}

	type counts struct{ tp, fp, fn, support float64 }
	per := make(map[float64]*counts)
	get := func(label float64) *counts {
		c, ok := per[label]
		if !ok {
			c = &counts{}
			per[label] = c
		}
		return c
	}
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		get(t).support++
		if t == p {
			get(t).tp++
			continue
		}
		get(p).fp++
		get(t).fn++
	}

	labels := make([]float64, 0, len(per))
	for l := range per {
		labels = append(labels, l)
	}
	sort.Float64s(labels)

	var totalWeight float64
	warnedP, warnedR := false, false
	for _, l := range labels {
		c := per[l]
		if c.tp+c.fp == 0 && !warnedP {
			errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples for a label", 0))
			warnedP = true
		}
		if c.tp+c.fn == 0 && !warnedR {
			errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true samples for a label", 0))
			warnedR = true
		}
		p := errors.SafeDivide(c.tp, c.tp+c.fp)
		r := errors.SafeDivide(c.tp, c.tp+c.fn)
		f := errors.SafeDivide(2*p*r, p+r)

		w := c.support
		precision += w * p
		recall += w * r
		f1 += w * f
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0, 0, 0, nil
	}
	return precision / totalWeight, recall / totalWeight, f1 / totalWeight, nil
}

// ROCCurve computes the receiver operating characteristic for binary labels
// (0 = negative, 1 = positive) and scores where larger means more positive.
// Points are ordered by decreasing threshold, start at (0, 0) with threshold
// +Inf and end at (1, 1). Tied scores form a single point.
func ROCCurve(yTrue, score *mat.VecDense) (fpr, tpr, thresholds []float64, err error) {
	n, err := checkPair("ROCCurve", yTrue, score)
	if err != nil {
		return nil, nil, nil, err
	}
	var pos, neg float64
	for i := 0; i < n; i++ {
		switch yTrue.AtVec(i) {
		case 1:
			pos++
		case 0:
			neg++
		default:
			return nil, nil, nil, errors.NewValueError("ROCCurve", "labels must be 0 or 1")
		}
	}
	if pos == 0 || neg == 0 {
		return nil, nil, nil, errors.NewValueError("ROCCurve", "only one class present in y_true")
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return score.AtVec(order[a]) > score.AtVec(order[b])
	})

	fpr = []float64{0}
	tpr = []float64{0}
	thresholds = []float64{math.Inf(1)}
	var tp, fp float64
	for k, i := range order {
		if yTrue.AtVec(i) == 1 {
			tp++
		} else {
			fp++
		}
		s := score.AtVec(i)
		if k+1 < n && score.AtVec(order[k+1]) == s {
			continue
		}
		fpr = append(fpr, fp/neg)
		tpr = append(tpr, tp/pos)
		thresholds = append(thresholds, s)
	}
	return fpr, tpr, thresholds, nil
}

// AUC computes the area under the ROC curve for binary labels. When y_true
// holds a single class the area is undefined and 0.5 is returned.
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var pos int
	for i := 0; i < n; i++ {
		switch yTrue.AtVec(i) {
		case 1:
			pos++
		case 0:
		default:
			return 0, errors.NewValueError("AUC", "labels must be 0 or 1")
		}
	}
	if pos == 0 || pos == n {
		errors.Warn(errors.NewUndefinedMetricWarning("auc", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	fpr, tpr, _, err := ROCCurve(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return AreaUnderCurve(fpr, tpr), nil
}

// AUCMatrix は行列入力に対してAUCを計算する（先頭列を使用）
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil matrix")
	}
	r, c := yTrue.Dims()
	if r == 0 || c == 0 {
		return 0, errors.NewValueError("AUCMatrix", "empty matrix")
	}
	rp, cp := yPred.Dims()
	if rp != r || cp == 0 {
		return 0, errors.NewDimensionError("AUCMatrix", r, rp, 0)
	}
	return AUC(mat.NewVecDense(r, mat.Col(nil, 0, yTrue)), mat.NewVecDense(r, mat.Col(nil, 0, yPred)))
}

// AreaUnderCurve integrates y over x with the trapezoidal rule. x must be
// non-decreasing.
func AreaUnderCurve(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return integrate.Trapezoidal(x, y)
}

func classIndex(v float64, nClasses int) (int, bool) {
	i := int(v)
	if float64(i) != v || i < 0 || i >= nClasses {
		return 0, false
	}
	return i, true
}
