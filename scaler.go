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
	"math"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each feature column to zero mean and unit
// variance. Fit on training rows only; test and future rows reuse the
// training statistics.
type StandardScaler struct {
	Means  []float64 `json:"means"`
	Scales []float64 `json:"scales"`
}

// Fit computes per-column mean and population standard deviation.
// Constant columns get a scale of 1 so transforming them is a no-op
// shift rather than a division by zero.
func (s *StandardScaler) Fit(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	width := len(rows[0])
	s.Means = make([]float64, width)
	s.Scales = make([]float64, width)

	column := make([]float64, len(rows))
	for j := 0; j < width; j++ {
		for i, row := range rows {
			column[i] = row[j]
		}
		s.Means[j] = stat.Mean(column, nil)
		scale := math.Sqrt(stat.PopVariance(column, nil))
		if scale == 0 {
			scale = 1
		}
		s.Scales[j] = scale
	}
}

// Transform returns scaled copies of the input rows
func (s *StandardScaler) Transform(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = s.TransformRow(row)
	}
	return out
}

// TransformRow scales a single feature vector
func (s *StandardScaler) TransformRow(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if j < len(s.Means) {
			out[j] = (v - s.Means[j]) / s.Scales[j]
		} else {
			out[j] = v
		}
	}
	return out
}

// FitTransform fits the scaler and returns the scaled training rows
func (s *StandardScaler) FitTransform(rows [][]float64) [][]float64 {
	s.Fit(rows)
	return s.Transform(rows)
}
