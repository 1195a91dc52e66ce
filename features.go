// Copyright 2025 Matthew Gall <me@matthewgall.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Lag offsets and rolling window sizes used for both the import and
// export series. Changing these invalidates previously stored models,
// which is why the feature list travels with each saved bundle.
var (
	lagOffsets     = []int{1, 2, 3, 6, 12, 24}
	rollingWindows = []int{3, 6, 12, 24}
)

// recentWindow is how many trailing readings the predictor summarises
// when approximating lag and rolling features for future hours.
const recentWindow = 50

// FeatureRow is one derived training example. Values holds every
// feature by name; entries are NaN where history is too short to
// compute a lag or rolling statistic.
type FeatureRow struct {
	MeterID   int
	Timestamp time.Time
	Import    float64
	Export    float64
	Values    map[string]float64
}

// Complete reports whether every feature value is defined
func (r FeatureRow) Complete() bool {
	for _, v := range r.Values {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// featureNames returns the canonical feature ordering. Model inputs
// are always vectorized in this order; stored bundles carry a copy so
// older models keep working if the set changes.
func featureNames() []string {
	names := []string{
		"hour", "day_of_week", "day_of_month", "month", "quarter",
		"is_weekend",
		"hour_sin", "hour_cos",
		"day_sin", "day_cos",
		"month_sin", "month_cos",
	}
	for _, lag := range lagOffsets {
		names = append(names,
			fmt.Sprintf("import_consumption_lag_%d", lag),
			fmt.Sprintf("export_consumption_lag_%d", lag),
		)
	}
	for _, window := range rollingWindows {
		names = append(names,
			fmt.Sprintf("import_consumption_rolling_mean_%d", window),
			fmt.Sprintf("import_consumption_rolling_std_%d", window),
			fmt.Sprintf("export_consumption_rolling_mean_%d", window),
			fmt.Sprintf("export_consumption_rolling_std_%d", window),
		)
	}
	names = append(names, "temp_estimate", "is_business_day")
	return names
}

// timeFeatures computes the calendar features for a timestamp
func timeFeatures(ts time.Time) map[string]float64 {
	hour := float64(ts.Hour())
	// Weekday numbering puts Monday at 0, Sunday at 6
	dow := float64((int(ts.Weekday()) + 6) % 7)
	month := float64(int(ts.Month()))

	values := map[string]float64{
		"hour":         hour,
		"day_of_week":  dow,
		"day_of_month": float64(ts.Day()),
		"month":        month,
		"quarter":      math.Ceil(month / 3),
		"is_weekend":   0,
		"hour_sin":     math.Sin(2 * math.Pi * hour / 24),
		"hour_cos":     math.Cos(2 * math.Pi * hour / 24),
		"day_sin":      math.Sin(2 * math.Pi * dow / 7),
		"day_cos":      math.Cos(2 * math.Pi * dow / 7),
		"month_sin":    math.Sin(2 * math.Pi * month / 12),
		"month_cos":    math.Cos(2 * math.Pi * month / 12),
		"temp_estimate": 15 +
			10*math.Sin(2*math.Pi*(float64(ts.YearDay())-80)/365) +
			5*math.Sin(2*math.Pi*hour/24),
		"is_business_day": 1,
	}
	if dow >= 5 {
		values["is_weekend"] = 1
		values["is_business_day"] = 0
	}
	return values
}

// DeriveFeatures builds feature rows for one meter's chronologically
// sorted readings. Lags and rolling statistics are computed within the
// meter's own history only; rows too close to the start carry NaN for
// those entries until enough history accumulates.
func DeriveFeatures(readings []Reading) []FeatureRow {
	rows := make([]FeatureRow, 0, len(readings))

	imports := make([]float64, len(readings))
	exports := make([]float64, len(readings))
	for i, r := range readings {
		imports[i] = r.Import
		exports[i] = r.Export
	}

	for i, r := range readings {
		values := timeFeatures(r.Timestamp)

		for _, lag := range lagOffsets {
			impKey := fmt.Sprintf("import_consumption_lag_%d", lag)
			expKey := fmt.Sprintf("export_consumption_lag_%d", lag)
			if i >= lag {
				values[impKey] = imports[i-lag]
				values[expKey] = exports[i-lag]
			} else {
				values[impKey] = math.NaN()
				values[expKey] = math.NaN()
			}
		}

		for _, window := range rollingWindows {
			impMean := fmt.Sprintf("import_consumption_rolling_mean_%d", window)
			impStd := fmt.Sprintf("import_consumption_rolling_std_%d", window)
			expMean := fmt.Sprintf("export_consumption_rolling_mean_%d", window)
			expStd := fmt.Sprintf("export_consumption_rolling_std_%d", window)
			if i+1 >= window {
				impWin := imports[i+1-window : i+1]
				expWin := exports[i+1-window : i+1]
				values[impMean] = stat.Mean(impWin, nil)
				values[impStd] = sampleStd(impWin)
				values[expMean] = stat.Mean(expWin, nil)
				values[expStd] = sampleStd(expWin)
			} else {
				values[impMean] = math.NaN()
				values[impStd] = math.NaN()
				values[expMean] = math.NaN()
				values[expStd] = math.NaN()
			}
		}

		rows = append(rows, FeatureRow{
			MeterID:   r.MeterID,
			Timestamp: r.Timestamp,
			Import:    r.Import,
			Export:    r.Export,
			Values:    values,
		})
	}

	return rows
}

// completeRows filters out rows with undefined features
func completeRows(rows []FeatureRow) []FeatureRow {
	kept := make([]FeatureRow, 0, len(rows))
	for _, row := range rows {
		if row.Complete() {
			kept = append(kept, row)
		}
	}
	return kept
}

// ApproxFutureFeatures builds the feature map for a future timestamp
// from a window of recent readings. Without observed values to lag
// against, lag_k is approximated by the mean of the last k readings
// and rolling statistics by the trailing window, so every step of the
// horizon shares the same history summary.
func ApproxFutureFeatures(ts time.Time, recent []Reading) map[string]float64 {
	values := timeFeatures(ts)

	imports := make([]float64, len(recent))
	exports := make([]float64, len(recent))
	for i, r := range recent {
		imports[i] = r.Import
		exports[i] = r.Export
	}

	for _, lag := range lagOffsets {
		values[fmt.Sprintf("import_consumption_lag_%d", lag)] = tailMean(imports, lag)
		values[fmt.Sprintf("export_consumption_lag_%d", lag)] = tailMean(exports, lag)
	}

	for _, window := range rollingWindows {
		impTail := tail(imports, window)
		expTail := tail(exports, window)
		values[fmt.Sprintf("import_consumption_rolling_mean_%d", window)] = stat.Mean(impTail, nil)
		values[fmt.Sprintf("import_consumption_rolling_std_%d", window)] = sampleStd(impTail)
		values[fmt.Sprintf("export_consumption_rolling_mean_%d", window)] = stat.Mean(expTail, nil)
		values[fmt.Sprintf("export_consumption_rolling_std_%d", window)] = sampleStd(expTail)
	}

	return values
}

// vectorize orders a feature map according to names. Missing or
// undefined entries become zero, so models trained with a different
// feature set still receive a full-width input.
func vectorize(values map[string]float64, names []string) []float64 {
	vec := make([]float64, len(names))
	for i, name := range names {
		if v, ok := values[name]; ok && !math.IsNaN(v) {
			vec[i] = v
		}
	}
	return vec
}

// sampleStd is the n-1 standard deviation; zero for a single value
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return math.Sqrt(stat.Variance(xs, nil))
}

// tail returns the last n elements, or all of them if fewer
func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

// tailMean averages the last n elements
func tailMean(xs []float64, n int) float64 {
	t := tail(xs, n)
	if len(t) == 0 {
		return 0
	}
	return stat.Mean(t, nil)
}

// round3 rounds to three decimal places, matching the precision of
// every externally visible consumption figure.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
