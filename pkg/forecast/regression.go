package forecast

import (
	"math"

	"github.com/ecosphere/forecast/pkg/types"
)

// RegressionCoefficients are the per-feature weights of a fitted model.
// Cloud cover enters inverted (100 - cover) so higher always means more
// output.
type RegressionCoefficients struct {
	DirectRadiation    float64 `json:"directRadiation"`
	Temperature        float64 `json:"temperature"`
	CloudCoverInverted float64 `json:"cloudCoverInverted"`
}

// RegressionModel maps a day's weather aggregate to a predicted daily output.
// Fit once per forecast call and immutable afterwards.
type RegressionModel struct {
	Coefficients RegressionCoefficients `json:"coefficients"`
	Intercept    float64                `json:"intercept"`
	RSquared     float64                `json:"rSquared"`
	TrainingDays int                    `json:"trainingDays"`
}

// TrainingPair couples one day's weather with the observed output total.
type TrainingPair struct {
	Weather types.DailyWeatherAggregate
	Output  float64
}

func regressionFeatures(w types.DailyWeatherAggregate) [3]float64 {
	return [3]float64{w.TotalDirectRadiation, w.AvgTemperature, 100 - w.AvgCloudCover}
}

// TrainWeatherRegression fits a multiple least-squares regression from daily
// weather features to daily output. Collinear or constant features are
// tolerated: their coefficient is pinned to zero and the intercept absorbs
// the mean, so two identical training days still produce a usable model.
// Fewer than 2 pairs returns RegressionUndefinedError.
func TrainWeatherRegression(pairs []TrainingPair) (*RegressionModel, error) {
	if len(pairs) < 2 {
		return nil, &RegressionUndefinedError{TrainingDays: len(pairs)}
	}

	// normal equations over [1, direct, temp, 100-cloud]
	const dims = 4
	a := make([][]float64, dims)
	for i := range a {
		a[i] = make([]float64, dims)
	}
	b := make([]float64, dims)
	var meanY float64
	for _, p := range pairs {
		f := regressionFeatures(p.Weather)
		row := [dims]float64{1, f[0], f[1], f[2]}
		for i := 0; i < dims; i++ {
			for j := 0; j < dims; j++ {
				a[i][j] += row[i] * row[j]
			}
			b[i] += row[i] * p.Output
		}
		meanY += p.Output
	}
	meanY /= float64(len(pairs))

	x := solveNormal(a, b)
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			// pathological inputs, fall back to predicting the mean
			x = []float64{meanY, 0, 0, 0}
			break
		}
	}

	m := &RegressionModel{
		Intercept: x[0],
		Coefficients: RegressionCoefficients{
			DirectRadiation:    x[1],
			Temperature:        x[2],
			CloudCoverInverted: x[3],
		},
		TrainingDays: len(pairs),
	}

	var ssRes, ssTot float64
	for _, p := range pairs {
		res := p.Output - m.fit(p.Weather)
		dev := p.Output - meanY
		ssRes += res * res
		ssTot += dev * dev
	}
	if ssTot == 0 {
		// constant output: perfect if the fit reproduces it
		if ssRes <= 1e-9*math.Max(1, meanY*meanY) {
			m.RSquared = 1
		}
	} else {
		m.RSquared = 1 - ssRes/ssTot
		if m.RSquared < 0 {
			m.RSquared = 0
		}
	}
	return m, nil
}

// fit is the raw linear combination without the non-negativity clamp.
func (m *RegressionModel) fit(w types.DailyWeatherAggregate) float64 {
	f := regressionFeatures(w)
	return m.Intercept +
		m.Coefficients.DirectRadiation*f[0] +
		m.Coefficients.Temperature*f[1] +
		m.Coefficients.CloudCoverInverted*f[2]
}

// Predict applies the model to one day's forecast weather. Output is a daily
// magnitude so it is clamped at zero.
func (m *RegressionModel) Predict(w types.DailyWeatherAggregate) float64 {
	return math.Max(0, m.fit(w))
}

// solveNormal solves the symmetric system a·x = b by Gaussian elimination
// with partial pivoting. Singular directions (pivot below a scale-relative
// threshold) get a zero solution instead of failing, which is what lets
// degenerate training sets collapse into the intercept.
func solveNormal(a [][]float64, b []float64) []float64 {
	n := len(b)
	var maxEntry float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			maxEntry = math.Max(maxEntry, math.Abs(a[i][j]))
		}
	}
	eps := 1e-9 * math.Max(1, maxEntry)

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]
		if math.Abs(a[col][col]) < eps {
			continue
		}
		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		if math.Abs(a[i][i]) < eps {
			x[i] = 0
			continue
		}
		sum := b[i]
		for j := i + 1; j < n; j++ {
			sum -= a[i][j] * x[j]
		}
		x[i] = sum / a[i][i]
	}
	return x
}
