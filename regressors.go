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
	"math/rand"
	"runtime"
	"sync"
)

const (
	// ensembleSeed fixes every random choice made during training so
	// retraining on the same data reproduces the same model
	ensembleSeed = 42

	forestTrees    = 100
	forestMaxDepth = 25

	boostTrees        = 100
	boostMaxDepth     = 3
	boostLearningRate = 0.1
)

// RandomForestRegressor averages bootstrap-sampled regression trees.
// Each tree draws its own seeded source from the forest seed, so trees
// can be fitted concurrently without losing determinism.
type RandomForestRegressor struct {
	NEstimators int         `json:"n_estimators"`
	MaxDepth    int         `json:"max_depth"`
	Seed        int64       `json:"seed"`
	Trees       []*treeNode `json:"trees"`
}

// NewRandomForestRegressor returns a forest with the default settings
func NewRandomForestRegressor() *RandomForestRegressor {
	return &RandomForestRegressor{
		NEstimators: forestTrees,
		MaxDepth:    forestMaxDepth,
		Seed:        ensembleSeed,
	}
}

// Fit trains the forest on scaled feature rows. Trees are grown in
// parallel across a fixed worker pool.
func (f *RandomForestRegressor) Fit(features [][]float64, targets []float64) {
	if len(features) == 0 {
		f.Trees = nil
		return
	}
	f.Trees = make([]*treeNode, f.NEstimators)

	// Each split considers a third of the features
	maxFeatures := len(features[0]) / 3
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	workers := runtime.NumCPU()
	if workers > f.NEstimators {
		workers = f.NEstimators
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				rng := rand.New(rand.NewSource(f.Seed + int64(t)))
				indices := make([]int, len(features))
				for i := range indices {
					indices[i] = rng.Intn(len(features))
				}
				f.Trees[t] = growTree(features, targets, indices, 0, treeConfig{
					maxDepth:        f.MaxDepth,
					minSamplesSplit: 2,
					maxFeatures:     maxFeatures,
					rng:             rng,
				})
			}
		}()
	}
	for t := 0; t < f.NEstimators; t++ {
		jobs <- t
	}
	close(jobs)
	wg.Wait()
}

// PredictRow averages the trees for one feature vector
func (f *RandomForestRegressor) PredictRow(row []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, tree := range f.Trees {
		sum += tree.predict(row)
	}
	return sum / float64(len(f.Trees))
}

// GradientBoostingRegressor fits shallow trees to the running residual,
// starting from the target mean.
type GradientBoostingRegressor struct {
	NEstimators  int         `json:"n_estimators"`
	MaxDepth     int         `json:"max_depth"`
	LearningRate float64     `json:"learning_rate"`
	Init         float64     `json:"init"`
	Trees        []*treeNode `json:"trees"`
}

// NewGradientBoostingRegressor returns a booster with the default settings
func NewGradientBoostingRegressor() *GradientBoostingRegressor {
	return &GradientBoostingRegressor{
		NEstimators:  boostTrees,
		MaxDepth:     boostMaxDepth,
		LearningRate: boostLearningRate,
	}
}

// Fit trains the boosting stages sequentially; each stage depends on
// the previous one's residuals so there is nothing to parallelise here.
func (g *GradientBoostingRegressor) Fit(features [][]float64, targets []float64) {
	g.Trees = make([]*treeNode, 0, g.NEstimators)
	if len(features) == 0 {
		return
	}

	var sum float64
	for _, y := range targets {
		sum += y
	}
	g.Init = sum / float64(len(targets))

	indices := make([]int, len(features))
	for i := range indices {
		indices[i] = i
	}

	current := make([]float64, len(targets))
	for i := range current {
		current[i] = g.Init
	}

	residuals := make([]float64, len(targets))
	for t := 0; t < g.NEstimators; t++ {
		for i := range residuals {
			residuals[i] = targets[i] - current[i]
		}
		tree := growTree(features, residuals, indices, 0, treeConfig{
			maxDepth:        g.MaxDepth,
			minSamplesSplit: 2,
		})
		g.Trees = append(g.Trees, tree)
		for i, row := range features {
			current[i] += g.LearningRate * tree.predict(row)
		}
	}
}

// PredictRow sums the boosted stages for one feature vector
func (g *GradientBoostingRegressor) PredictRow(row []float64) float64 {
	pred := g.Init
	for _, tree := range g.Trees {
		pred += g.LearningRate * tree.predict(row)
	}
	return pred
}

// EnsembleModel pairs the two regressors; predictions are the mean of
// both, which smooths the forest's step artefacts against the
// booster's bias.
type EnsembleModel struct {
	Forest *RandomForestRegressor     `json:"random_forest"`
	Boost  *GradientBoostingRegressor `json:"gradient_boosting"`
}

// NewEnsembleModel returns an untrained ensemble with default settings
func NewEnsembleModel() *EnsembleModel {
	return &EnsembleModel{
		Forest: NewRandomForestRegressor(),
		Boost:  NewGradientBoostingRegressor(),
	}
}

// Fit trains both members on the same scaled rows
func (e *EnsembleModel) Fit(features [][]float64, targets []float64) {
	e.Forest.Fit(features, targets)
	e.Boost.Fit(features, targets)
}

// PredictRow averages both members for one feature vector
func (e *EnsembleModel) PredictRow(row []float64) float64 {
	return (e.Forest.PredictRow(row) + e.Boost.PredictRow(row)) / 2
}

// Predict averages both members across a batch of rows
func (e *EnsembleModel) Predict(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = e.PredictRow(row)
	}
	return out
}
