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
)

// DataLoadError represents a failure to read or parse the source dataset
type DataLoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *DataLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("error loading data from %s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("error loading data from %s: %s", e.Path, e.Message)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// InsufficientDataError means a meter has too few usable rows to train on
type InsufficientDataError struct {
	MeterID int
	Rows    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for meter %d: %d records", e.MeterID, e.Rows)
}

// ModelNotFoundError means predict was requested before a successful train
// or load for the given meter and target
type ModelNotFoundError struct {
	MeterID int
	Target  Target
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model not found for meter %d target %s, train the model first", e.MeterID, e.Target)
}

// MeterNotFoundError means the dataset holds no rows for the meter
type MeterNotFoundError struct {
	MeterID int
}

func (e *MeterNotFoundError) Error() string {
	return fmt.Sprintf("no data found for meter %d", e.MeterID)
}

// StorageError represents a model store operation error
type StorageError struct {
	Operation string
	Path      string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s at %s: %v", e.Operation, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("validation error for %s (%s): %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}
