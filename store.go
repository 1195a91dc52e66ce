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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ModelBundle is everything needed to forecast one (meter, target)
// pair: the trained ensemble, the scaler fitted on its training rows,
// and the feature list the model was trained against.
type ModelBundle struct {
	Model    *EnsembleModel  `json:"model"`
	Scaler   *StandardScaler `json:"scaler"`
	Features []string        `json:"features"`
}

// BundleStore persists model bundles keyed by meter and target
type BundleStore interface {
	Has(meterID int, target Target) bool
	Load(meterID int, target Target) (*ModelBundle, error)
	Store(meterID int, target Target, bundle *ModelBundle) error
}

// FileBundleStore keeps each bundle as three JSON artifacts in a
// directory: model_<meter>_<target>.json, scaler_<meter>_<target>.json
// and features_<meter>_<target>.json.
type FileBundleStore struct {
	dir    string
	logger *Logger
}

// NewFileBundleStore creates the storage directory if needed
func NewFileBundleStore(dir string, logger *Logger) (*FileBundleStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &StorageError{Operation: "create directory", Path: dir, Err: err}
	}
	return &FileBundleStore{dir: dir, logger: logger}, nil
}

func (s *FileBundleStore) artifactPath(kind string, meterID int, target Target) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%d_%s.json", kind, meterID, target))
}

// Has reports whether a complete bundle exists. The feature list can
// be absent in older layouts, so only the model and scaler artifacts
// are required.
func (s *FileBundleStore) Has(meterID int, target Target) bool {
	for _, kind := range []string{"model", "scaler"} {
		if _, err := os.Stat(s.artifactPath(kind, meterID, target)); err != nil {
			return false
		}
	}
	return true
}

// Load reads a bundle's artifacts from disk
func (s *FileBundleStore) Load(meterID int, target Target) (*ModelBundle, error) {
	if !s.Has(meterID, target) {
		return nil, &ModelNotFoundError{MeterID: meterID, Target: target}
	}

	bundle := &ModelBundle{}

	if err := s.readArtifact("model", meterID, target, &bundle.Model); err != nil {
		return nil, err
	}
	if err := s.readArtifact("scaler", meterID, target, &bundle.Scaler); err != nil {
		return nil, err
	}

	// Missing feature list falls back to the current canonical order
	featuresPath := s.artifactPath("features", meterID, target)
	if _, err := os.Stat(featuresPath); err == nil {
		if err := s.readArtifact("features", meterID, target, &bundle.Features); err != nil {
			return nil, err
		}
	} else {
		bundle.Features = featureNames()
	}

	return bundle, nil
}

func (s *FileBundleStore) readArtifact(kind string, meterID int, target Target, v interface{}) error {
	path := s.artifactPath(kind, meterID, target)
	data, err := os.ReadFile(path)
	if err != nil {
		return &StorageError{Operation: "read " + kind, Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &StorageError{Operation: "parse " + kind, Path: path, Err: err}
	}
	return nil
}

// Store writes all three artifacts; a failure partway leaves earlier
// artifacts on disk, but Has only reports true once model and scaler
// are both present.
func (s *FileBundleStore) Store(meterID int, target Target, bundle *ModelBundle) error {
	if err := s.writeArtifact("scaler", meterID, target, bundle.Scaler); err != nil {
		return err
	}
	if err := s.writeArtifact("features", meterID, target, bundle.Features); err != nil {
		return err
	}
	if err := s.writeArtifact("model", meterID, target, bundle.Model); err != nil {
		return err
	}
	return nil
}

func (s *FileBundleStore) writeArtifact(kind string, meterID int, target Target, v interface{}) error {
	path := s.artifactPath(kind, meterID, target)
	data, err := json.Marshal(v)
	if err != nil {
		return &StorageError{Operation: "encode " + kind, Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &StorageError{Operation: "write " + kind, Path: path, Err: err}
	}
	if s.logger != nil {
		s.logger.LogStorageOperation("write "+kind, path)
	}
	return nil
}

// MemoryBundleStore keeps bundles in memory, mainly for tests and
// short-lived API use where nothing should touch the filesystem.
type MemoryBundleStore struct {
	mu      sync.RWMutex
	bundles map[string]*ModelBundle
}

// NewMemoryBundleStore returns an empty in-memory store
func NewMemoryBundleStore() *MemoryBundleStore {
	return &MemoryBundleStore{bundles: make(map[string]*ModelBundle)}
}

func bundleKey(meterID int, target Target) string {
	return fmt.Sprintf("%d_%s", meterID, target)
}

// Has reports whether a bundle exists for the meter and target
func (s *MemoryBundleStore) Has(meterID int, target Target) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bundles[bundleKey(meterID, target)]
	return ok
}

// Load returns the stored bundle or ModelNotFoundError
func (s *MemoryBundleStore) Load(meterID int, target Target) (*ModelBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bundle, ok := s.bundles[bundleKey(meterID, target)]
	if !ok {
		return nil, &ModelNotFoundError{MeterID: meterID, Target: target}
	}
	return bundle, nil
}

// Store saves a bundle, replacing any previous one
func (s *MemoryBundleStore) Store(meterID int, target Target, bundle *ModelBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[bundleKey(meterID, target)] = bundle
	return nil
}
