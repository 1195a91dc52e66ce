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

import "sync"

// BundleRegistry caches loaded model bundles in front of a BundleStore
// so repeated forecasts don't re-read and re-decode the JSON artifacts.
// All methods are safe for concurrent use.
type BundleRegistry struct {
	mu      sync.RWMutex
	store   BundleStore
	bundles map[string]*ModelBundle
}

// NewBundleRegistry creates a registry backed by the given store
func NewBundleRegistry(store BundleStore) *BundleRegistry {
	return &BundleRegistry{
		store:   store,
		bundles: make(map[string]*ModelBundle),
	}
}

// Get returns the bundle for a meter and target, loading it from the
// backing store on first use.
func (r *BundleRegistry) Get(meterID int, target Target) (*ModelBundle, error) {
	key := bundleKey(meterID, target)

	r.mu.RLock()
	bundle, ok := r.bundles[key]
	r.mu.RUnlock()
	if ok {
		return bundle, nil
	}

	bundle, err := r.store.Load(meterID, target)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.bundles[key] = bundle
	r.mu.Unlock()
	return bundle, nil
}

// Put persists a bundle to the backing store and caches it
func (r *BundleRegistry) Put(meterID int, target Target, bundle *ModelBundle) error {
	if err := r.store.Store(meterID, target, bundle); err != nil {
		return err
	}
	r.mu.Lock()
	r.bundles[bundleKey(meterID, target)] = bundle
	r.mu.Unlock()
	return nil
}

// Has reports whether a bundle is cached or persisted
func (r *BundleRegistry) Has(meterID int, target Target) bool {
	r.mu.RLock()
	_, ok := r.bundles[bundleKey(meterID, target)]
	r.mu.RUnlock()
	if ok {
		return true
	}
	return r.store.Has(meterID, target)
}

// Invalidate drops a cached bundle so the next Get re-reads the store
func (r *BundleRegistry) Invalidate(meterID int, target Target) {
	r.mu.Lock()
	delete(r.bundles, bundleKey(meterID, target))
	r.mu.Unlock()
}
