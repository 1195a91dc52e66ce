// Copyright 2025 Matthew Gall <me@matthewgall.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with domain-specific methods
type Logger struct {
	*slog.Logger
}

// NewLogger creates a text-formatted logger
func NewLogger(debug bool) *Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	return &Logger{slog.New(handler)}
}

// NewJSONLogger creates a JSON-formatted logger
func NewJSONLogger(debug bool) *Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(os.Stderr, opts)
	return &Logger{slog.New(handler)}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{l.With("component", component)}
}

// WithMeter adds a meter field to the logger
func (l *Logger) WithMeter(meterID int) *Logger {
	return &Logger{l.With("meter_id", meterID)}
}

// LogTrainStage logs completion of a training stage for a target
func (l *Logger) LogTrainStage(stage string, meterID int, target Target) {
	l.Info("Training stage completed",
		"stage", stage,
		"meter_id", meterID,
		"target", string(target),
	)
}

// LogTrainMetrics logs held-out evaluation metrics
func (l *Logger) LogTrainMetrics(meterID int, target Target, report *TrainReport) {
	l.Info("Model evaluated",
		"meter_id", meterID,
		"target", string(target),
		"mae", fmt.Sprintf("%.3f", report.MAE),
		"rmse", fmt.Sprintf("%.3f", report.RMSE),
		"mape", fmt.Sprintf("%.2f%%", report.MAPE),
		"train_samples", report.TrainingSamples,
		"test_samples", report.TestSamples,
	)
}

// LogForecast logs a generated forecast horizon
func (l *Logger) LogForecast(meterID int, target Target, hours int) {
	l.Info("Forecast generated",
		"meter_id", meterID,
		"target", string(target),
		"hours", hours,
	)
}

// LogStorageOperation logs model store operations
func (l *Logger) LogStorageOperation(operation, path string) {
	l.Debug("Storage operation",
		"operation", operation,
		"path", path,
	)
}

// LogDataLoad logs dataset loading progress
func (l *Logger) LogDataLoad(path string, readings, meters int) {
	l.Info("Dataset loaded",
		"path", path,
		"readings", readings,
		"meters", meters,
	)
}

// UserMessage outputs a message directly to stdout (bypassing structured logging)
func (l *Logger) UserMessage(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}
