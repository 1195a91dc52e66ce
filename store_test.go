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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallBundle(t *testing.T) *ModelBundle {
	t.Helper()
	features, targets := stepData(80)

	model := NewEnsembleModel()
	model.Forest.NEstimators = 5
	model.Boost.NEstimators = 5
	model.Fit(features, targets)

	scaler := &StandardScaler{}
	scaler.Fit(features)

	return &ModelBundle{Model: model, Scaler: scaler, Features: []string{"a", "b"}}
}

func TestFileBundleStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileBundleStore(dir, NewLogger(false))
	require.NoError(t, err)

	assert.False(t, store.Has(1, TargetImport))

	bundle := smallBundle(t)
	require.NoError(t, store.Store(1, TargetImport, bundle))

	assert.True(t, store.Has(1, TargetImport))
	assert.False(t, store.Has(1, TargetExport))
	assert.False(t, store.Has(2, TargetImport))

	// Three artifacts per bundle
	for _, kind := range []string{"model", "scaler", "features"} {
		_, err := os.Stat(filepath.Join(dir, kind+"_1_import.json"))
		assert.NoError(t, err, kind)
	}

	loaded, err := store.Load(1, TargetImport)
	require.NoError(t, err)
	assert.Equal(t, bundle.Features, loaded.Features)
	assert.Equal(t, bundle.Scaler.Means, loaded.Scaler.Means)

	row := []float64{0.4, 0.6}
	assert.InDelta(t, bundle.Model.PredictRow(row), loaded.Model.PredictRow(row), 1e-9)
}

func TestFileBundleStoreLoadMissing(t *testing.T) {
	store, err := NewFileBundleStore(t.TempDir(), NewLogger(false))
	require.NoError(t, err)

	_, err = store.Load(5, TargetExport)
	var notFound *ModelNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 5, notFound.MeterID)
	assert.Equal(t, TargetExport, notFound.Target)
}

func TestFileBundleStoreMissingFeatureList(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileBundleStore(dir, NewLogger(false))
	require.NoError(t, err)

	require.NoError(t, store.Store(1, TargetImport, smallBundle(t)))
	require.NoError(t, os.Remove(filepath.Join(dir, "features_1_import.json")))

	// Missing feature artifact falls back to the canonical ordering
	loaded, err := store.Load(1, TargetImport)
	require.NoError(t, err)
	assert.Equal(t, featureNames(), loaded.Features)
}

func TestMemoryBundleStore(t *testing.T) {
	store := NewMemoryBundleStore()

	assert.False(t, store.Has(1, TargetImport))
	_, err := store.Load(1, TargetImport)
	var notFound *ModelNotFoundError
	require.ErrorAs(t, err, &notFound)

	bundle := &ModelBundle{Features: []string{"x"}}
	require.NoError(t, store.Store(1, TargetImport, bundle))

	assert.True(t, store.Has(1, TargetImport))
	loaded, err := store.Load(1, TargetImport)
	require.NoError(t, err)
	assert.Same(t, bundle, loaded)
}

func TestBundleRegistryCachesLoads(t *testing.T) {
	backing := NewMemoryBundleStore()
	registry := NewBundleRegistry(backing)

	bundle := &ModelBundle{Features: []string{"x"}}
	require.NoError(t, registry.Put(2, TargetExport, bundle))

	// The backing store saw the write
	assert.True(t, backing.Has(2, TargetExport))

	loaded, err := registry.Get(2, TargetExport)
	require.NoError(t, err)
	assert.Same(t, bundle, loaded)

	// A cached bundle survives removal from the backing store
	require.NoError(t, backing.Store(2, TargetExport, &ModelBundle{}))
	cached, err := registry.Get(2, TargetExport)
	require.NoError(t, err)
	assert.Same(t, bundle, cached)

	// Invalidate forces a re-read
	registry.Invalidate(2, TargetExport)
	fresh, err := registry.Get(2, TargetExport)
	require.NoError(t, err)
	assert.NotSame(t, bundle, fresh)
}

func TestBundleRegistryMissingModel(t *testing.T) {
	registry := NewBundleRegistry(NewMemoryBundleStore())

	assert.False(t, registry.Has(9, TargetImport))
	_, err := registry.Get(9, TargetImport)
	var notFound *ModelNotFoundError
	require.ErrorAs(t, err, &notFound)
}
