package analysis

import (
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"pvcapacity/domain/core"
	"pvcapacity/domain/montecarlo"
)

// DefaultPercentiles are the box-plot quantiles used to pick representative runs
var DefaultPercentiles = []float64{1, 25, 50, 75, 99}

// Summary describes the distribution of national capacity over the runs
type Summary struct {
	Runs     int     `json:"runs"`
	Mean     float64 `json:"mean_mw"`
	StdDev   float64 `json:"std_dev_mw"`
	Min      float64 `json:"min_mw"`
	Max      float64 `json:"max_mw"`
	Median   float64 `json:"median_mw"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`

	Quantiles []QuantileSeed `json:"quantiles"`
}

// QuantileSeed is the run standing for one percentile: the largest sample
// not above the percentile value. Replaying its seed regenerates the site
// list behind that capacity.
type QuantileSeed struct {
	Percent float64           `json:"percent"`
	ValueMW float64           `json:"value_mw"`
	Sample  montecarlo.Sample `json:"sample"`
}

// Summarize computes summary statistics and quantile seeds. percents default
// to DefaultPercentiles and must lie in (0, 100].
func Summarize(samples []montecarlo.Sample, percents []float64) (*Summary, error) {
	if len(samples) == 0 {
		return nil, core.NewConfigurationError("no samples to summarize")
	}
	if percents == nil {
		percents = DefaultPercentiles
	}

	data := make(stats.Float64Data, len(samples))
	for i, s := range samples {
		data[i] = s.NationalCapacityMW
	}

	mean, err := stats.Mean(data)
	if err != nil {
		return nil, err
	}
	stdDev := 0.0
	if len(data) > 1 {
		if stdDev, err = stats.StandardDeviationSample(data); err != nil {
			return nil, err
		}
	}
	min, err := stats.Min(data)
	if err != nil {
		return nil, err
	}
	max, err := stats.Max(data)
	if err != nil {
		return nil, err
	}
	median, err := stats.Median(data)
	if err != nil {
		return nil, err
	}

	quantiles, err := QuantileSeeds(samples, percents)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Runs:      len(samples),
		Mean:      mean,
		StdDev:    stdDev,
		Min:       min,
		Max:       max,
		Median:    median,
		Skewness:  skewness(data, stdDev),
		Kurtosis:  kurtosis(data, stdDev),
		Quantiles: quantiles,
	}, nil
}

// QuantileSeeds picks, for each percent, the nearest-rank percentile and the
// sample holding it. Ties on capacity go to the lowest index.
func QuantileSeeds(samples []montecarlo.Sample, percents []float64) ([]QuantileSeed, error) {
	data := make(stats.Float64Data, len(samples))
	for i, s := range samples {
		data[i] = s.NationalCapacityMW
	}

	sorted := make([]montecarlo.Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].NationalCapacityMW < sorted[j].NationalCapacityMW
	})

	out := make([]QuantileSeed, 0, len(percents))
	for _, p := range percents {
		if p <= 0 || p > 100 {
			return nil, core.NewConfigurationError("percentile %g outside (0, 100]", p)
		}
		v, err := stats.PercentileNearestRank(data, p)
		if err != nil {
			return nil, err
		}
		// last position whose capacity is <= v, then back up to the first of equal capacities
		i := sort.Search(len(sorted), func(i int) bool { return sorted[i].NationalCapacityMW > v }) - 1
		if i < 0 {
			i = 0
		}
		pick := sorted[i]
		for j := i; j >= 0 && sorted[j].NationalCapacityMW == pick.NationalCapacityMW; j-- {
			if sorted[j].Index < pick.Index {
				pick = sorted[j]
			}
		}
		out = append(out, QuantileSeed{Percent: p, ValueMW: v, Sample: pick})
	}
	return out, nil
}

// skewness is the adjusted Fisher-Pearson coefficient G1
func skewness(data []float64, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}
	return stat.Skew(data, nil)
}

// kurtosis is the bias-corrected sample excess kurtosis G2
func kurtosis(data []float64, stdDev float64) float64 {
	if len(data) < 4 || stdDev == 0 {
		return 0
	}
	return stat.ExKurtosis(data, nil)
}
