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
	"sort"
)

// treeNode is one node of a regression tree. Leaves carry the mean
// target of their training samples; internal nodes route on a single
// feature threshold.
type treeNode struct {
	Leaf      bool      `json:"leaf"`
	Value     float64   `json:"value,omitempty"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
}

// treeConfig controls tree growth
type treeConfig struct {
	maxDepth        int
	minSamplesSplit int
	// maxFeatures limits how many features each split considers;
	// zero means all of them
	maxFeatures int
	rng         *rand.Rand
}

// growTree recursively fits a regression tree on the rows selected by
// indices, splitting on the threshold that minimises the summed
// within-child variance.
func growTree(features [][]float64, targets []float64, indices []int, depth int, cfg treeConfig) *treeNode {
	if len(indices) == 0 {
		return &treeNode{Leaf: true}
	}

	var sum float64
	for _, i := range indices {
		sum += targets[i]
	}
	mean := sum / float64(len(indices))

	if depth >= cfg.maxDepth || len(indices) < cfg.minSamplesSplit {
		return &treeNode{Leaf: true, Value: mean}
	}

	feature, threshold, ok := bestSplit(features, targets, indices, cfg)
	if !ok {
		return &treeNode{Leaf: true, Value: mean}
	}

	var left, right []int
	for _, i := range indices {
		if features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{Leaf: true, Value: mean}
	}

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      growTree(features, targets, left, depth+1, cfg),
		Right:     growTree(features, targets, right, depth+1, cfg),
	}
}

// bestSplit scans candidate thresholds for each considered feature.
// For a fixed parent, minimising child variance is the same as
// maximising leftSum²/leftN + rightSum²/rightN, which a single sorted
// pass with running sums can evaluate for every cut point.
func bestSplit(features [][]float64, targets []float64, indices []int, cfg treeConfig) (int, float64, bool) {
	width := len(features[indices[0]])

	candidates := make([]int, width)
	for j := range candidates {
		candidates[j] = j
	}
	if cfg.maxFeatures > 0 && cfg.maxFeatures < width && cfg.rng != nil {
		cfg.rng.Shuffle(width, func(a, b int) {
			candidates[a], candidates[b] = candidates[b], candidates[a]
		})
		candidates = candidates[:cfg.maxFeatures]
		sort.Ints(candidates)
	}

	var totalSum float64
	for _, i := range indices {
		totalSum += targets[i]
	}
	total := float64(len(indices))

	sorted := make([]int, len(indices))
	bestScore := totalSum * totalSum / total
	bestFeature, bestThreshold := -1, 0.0

	for _, j := range candidates {
		copy(sorted, indices)
		sort.Slice(sorted, func(a, b int) bool {
			return features[sorted[a]][j] < features[sorted[b]][j]
		})

		var leftSum float64
		for k := 0; k < len(sorted)-1; k++ {
			leftSum += targets[sorted[k]]
			v, next := features[sorted[k]][j], features[sorted[k+1]][j]
			if v == next {
				continue
			}
			leftN := float64(k + 1)
			rightSum := totalSum - leftSum
			rightN := total - leftN
			score := leftSum*leftSum/leftN + rightSum*rightSum/rightN
			if score > bestScore {
				bestScore = score
				bestFeature = j
				bestThreshold = (v + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// predict walks the tree for a single feature vector
func (n *treeNode) predict(row []float64) float64 {
	node := n
	for !node.Leaf {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}
