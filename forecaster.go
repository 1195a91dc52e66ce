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
	"strconv"
	"time"
)

const (
	// trainSplit is the chronological share of usable rows used for
	// fitting; the remainder is held out for evaluation
	trainSplit = 0.8

	// maxForecastHours bounds the requested horizon
	maxForecastHours = 168

	// mapeEpsilon keeps the percentage error finite on zero readings
	mapeEpsilon = 1e-8
)

// Forecaster trains per-meter consumption models and produces
// multi-step hourly forecasts from them.
type Forecaster struct {
	dataset  *Dataset
	registry *BundleRegistry
	config   *Config
	logger   *Logger
}

// NewForecaster creates a forecaster over a loaded dataset
func NewForecaster(dataset *Dataset, registry *BundleRegistry, config *Config, logger *Logger) *Forecaster {
	return &Forecaster{
		dataset:  dataset,
		registry: registry,
		config:   config,
		logger:   logger.WithComponent("forecaster"),
	}
}

// expandTargets resolves "both" into the concrete series
func expandTargets(target Target) []Target {
	return target.Targets()
}

// Train fits and persists models for a meter. A failure on one target
// is recorded in its outcome and never blocks the other target.
func (f *Forecaster) Train(meterID int, target Target) (*TrainResult, error) {
	if !target.Valid() {
		return nil, &ValidationError{Field: "target", Value: string(target), Message: "must be import, export or both"}
	}
	if !f.dataset.HasMeter(meterID) {
		return nil, &MeterNotFoundError{MeterID: meterID}
	}

	result := &TrainResult{}
	for _, t := range expandTargets(target) {
		report, err := f.trainTarget(meterID, t)
		if err != nil {
			f.logger.Warn("Training failed", "meter", meterID, "target", t, "error", err)
			result.setOutcome(t, &TrainOutcome{Error: err.Error()})
			continue
		}
		result.setOutcome(t, &TrainOutcome{TrainReport: report})
	}
	return result, nil
}

// TrainAll trains every meter in the dataset and returns results keyed
// by meter ID. Per-meter failures are embedded, never fatal.
func (f *Forecaster) TrainAll(target Target) (map[int]*TrainResult, error) {
	if !target.Valid() {
		return nil, &ValidationError{Field: "target", Value: string(target), Message: "must be import, export or both"}
	}

	results := make(map[int]*TrainResult)
	for _, meterID := range f.dataset.Meters() {
		result, err := f.Train(meterID, target)
		if err != nil {
			result = &TrainResult{}
			for _, t := range expandTargets(target) {
				result.setOutcome(t, &TrainOutcome{Error: err.Error()})
			}
		}
		results[meterID] = result
	}
	return results, nil
}

// trainTarget derives features, fits the ensemble on a chronological
// split and persists the resulting bundle.
func (f *Forecaster) trainTarget(meterID int, target Target) (*TrainReport, error) {
	f.logger.LogTrainStage("deriving features", meterID, target)

	readings := f.dataset.ForMeter(meterID)
	usable := completeRows(DeriveFeatures(readings))
	if len(usable) < f.config.MinTrainingRows {
		return nil, &InsufficientDataError{MeterID: meterID, Rows: len(usable)}
	}

	names := featureNames()
	features := make([][]float64, len(usable))
	targets := make([]float64, len(usable))
	for i, row := range usable {
		features[i] = vectorize(row.Values, names)
		if target == TargetExport {
			targets[i] = row.Export
		} else {
			targets[i] = row.Import
		}
	}

	// Chronological split, never shuffled
	split := int(trainSplit * float64(len(usable)))
	trainX, testX := features[:split], features[split:]
	trainY, testY := targets[:split], targets[split:]

	scaler := &StandardScaler{}
	scaledTrain := scaler.FitTransform(trainX)
	scaledTest := scaler.Transform(testX)

	f.logger.LogTrainStage("fitting ensemble", meterID, target)
	model := NewEnsembleModel()
	model.Fit(scaledTrain, trainY)

	predictions := model.Predict(scaledTest)
	report := &TrainReport{
		MAE:             meanAbsoluteError(testY, predictions),
		RMSE:            rootMeanSquaredError(testY, predictions),
		MAPE:            meanAbsolutePercentageError(testY, predictions),
		TrainingSamples: len(trainY),
		TestSamples:     len(testY),
	}
	f.logger.LogTrainMetrics(meterID, target, report)

	bundle := &ModelBundle{Model: model, Scaler: scaler, Features: names}
	if err := f.registry.Put(meterID, target, bundle); err != nil {
		return nil, err
	}

	return report, nil
}

// Predict forecasts the next hours of consumption for a meter. Each
// step reuses the same flat summary of recent history rather than
// feeding predictions back in, so errors never compound across the
// horizon.
func (f *Forecaster) Predict(meterID int, hours int, target Target) (*PredictResult, error) {
	if !target.Valid() {
		return nil, &ValidationError{Field: "target", Value: string(target), Message: "must be import, export or both"}
	}
	if hours < 1 || hours > maxForecastHours {
		return nil, &ValidationError{Field: "hours", Value: strconv.Itoa(hours), Message: "must be between 1 and 168"}
	}

	readings := f.dataset.ForMeter(meterID)
	if len(readings) == 0 {
		return &PredictResult{Error: (&MeterNotFoundError{MeterID: meterID}).Error()}, nil
	}

	recent := readings
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	lastObserved := readings[len(readings)-1].Timestamp

	result := &PredictResult{}
	for _, t := range expandTargets(target) {
		series, err := f.predictTarget(meterID, t, hours, lastObserved, recent)
		if err != nil {
			f.logger.Warn("Forecast failed", "meter", meterID, "target", t, "error", err)
			result.setOutcome(t, &ForecastOutcome{Error: err.Error()})
			continue
		}
		result.setOutcome(t, &ForecastOutcome{ForecastSeries: series})
	}
	return result, nil
}

func (f *Forecaster) predictTarget(meterID int, target Target, hours int, lastObserved time.Time, recent []Reading) (*ForecastSeries, error) {
	bundle, err := f.registry.Get(meterID, target)
	if err != nil {
		return nil, err
	}

	f.logger.LogForecast(meterID, target, hours)

	forecasts := make([]ForecastPoint, 0, hours)
	total := 0.0
	maxPred := math.Inf(-1)
	minPred := math.Inf(1)

	for h := 1; h <= hours; h++ {
		ts := lastObserved.Add(time.Duration(h) * time.Hour)
		values := ApproxFutureFeatures(ts, recent)
		row := bundle.Scaler.TransformRow(vectorize(values, bundle.Features))

		// Model space is Wh; results are reported in kWh
		predicted := bundle.Model.PredictRow(row) / 1000
		if predicted < 0 {
			predicted = 0
		}
		predicted = round3(predicted)

		forecasts = append(forecasts, ForecastPoint{
			Timestamp:            ts,
			HourAhead:            h,
			PredictedConsumption: predicted,
		})
		total += predicted
		if predicted > maxPred {
			maxPred = predicted
		}
		if predicted < minPred {
			minPred = predicted
		}
	}

	return &ForecastSeries{
		Forecasts: forecasts,
		Summary: ForecastSummary{
			TotalPredicted: round3(total),
			AverageHourly:  round3(total / float64(hours)),
			MaxPredicted:   maxPred,
			MinPredicted:   minPred,
		},
	}, nil
}

// meanAbsoluteError is the average magnitude of the residuals
func meanAbsoluteError(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// rootMeanSquaredError penalises large residuals more heavily than MAE
func rootMeanSquaredError(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		diff := actual[i] - predicted[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(actual)))
}

// meanAbsolutePercentageError reports the relative error as a
// percentage, with a small epsilon so zero readings don't blow up.
func meanAbsolutePercentageError(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		sum += math.Abs((actual[i] - predicted[i]) / (actual[i] + mapeEpsilon))
	}
	return sum / float64(len(actual)) * 100
}
