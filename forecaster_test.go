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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		DataPath:        "test.csv",
		ModelsDir:       "models",
		MinTrainingRows: 50,
		PricePerKWh:     2.5,
		AnalysisWeeks:   1,
	}
}

func newTestForecaster(readings []Reading) (*Forecaster, *BundleRegistry) {
	registry := NewBundleRegistry(NewMemoryBundleStore())
	dataset := NewDataset("test", readings)
	return NewForecaster(dataset, registry, testConfig(), NewLogger(false)), registry
}

func TestTrainAndPredict(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	readings := hourlyReadings(1, 180, start)
	forecaster, registry := newTestForecaster(readings)

	result, err := forecaster.Train(1, TargetImport)
	require.NoError(t, err)
	require.NotNil(t, result.Import)
	require.Empty(t, result.Import.Error)
	assert.Nil(t, result.Export, "only the requested target is trained")

	// 180 readings lose the first 24 to lag depth; 80/20 split
	assert.Equal(t, 124, result.Import.TrainingSamples)
	assert.Equal(t, 32, result.Import.TestSamples)
	assert.GreaterOrEqual(t, result.Import.MAE, 0.0)
	assert.GreaterOrEqual(t, result.Import.RMSE, result.Import.MAE)

	require.True(t, registry.Has(1, TargetImport))

	predict, err := forecaster.Predict(1, 24, TargetImport)
	require.NoError(t, err)
	require.NotNil(t, predict.Import)
	require.Empty(t, predict.Import.Error)

	series := predict.Import.ForecastSeries
	require.NotNil(t, series)
	require.Len(t, series.Forecasts, 24)

	lastObserved := readings[len(readings)-1].Timestamp
	var total float64
	for i, point := range series.Forecasts {
		assert.Equal(t, i+1, point.HourAhead)
		assert.Equal(t, lastObserved.Add(time.Duration(i+1)*time.Hour), point.Timestamp)
		assert.GreaterOrEqual(t, point.PredictedConsumption, 0.0)
		assert.Equal(t, round3(point.PredictedConsumption), point.PredictedConsumption, "values carry three decimals")
		total += point.PredictedConsumption
	}

	assert.InDelta(t, total, series.Summary.TotalPredicted, 0.001)
	assert.InDelta(t, total/24, series.Summary.AverageHourly, 0.001)
	assert.GreaterOrEqual(t, series.Summary.MaxPredicted, series.Summary.MinPredicted)
}

func TestTrainInsufficientData(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	// 60 readings leave only 36 usable rows after lag warm-up
	forecaster, registry := newTestForecaster(hourlyReadings(1, 60, start))

	result, err := forecaster.Train(1, TargetImport)
	require.NoError(t, err)
	require.NotNil(t, result.Import)
	assert.Contains(t, result.Import.Error, "insufficient data for meter 1: 36 records")

	assert.False(t, registry.Has(1, TargetImport), "failed training stores nothing")
}

func TestTrainUnknownMeter(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	forecaster, _ := newTestForecaster(hourlyReadings(1, 100, start))

	_, err := forecaster.Train(99, TargetImport)
	var notFound *MeterNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestTrainInvalidTarget(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	forecaster, _ := newTestForecaster(hourlyReadings(1, 100, start))

	_, err := forecaster.Train(1, Target("solar"))
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "target", invalid.Field)
}

// failingStore rejects writes for one target to exercise per-target
// error isolation.
type failingStore struct {
	BundleStore
	failTarget Target
}

func (s *failingStore) Store(meterID int, target Target, bundle *ModelBundle) error {
	if target == s.failTarget {
		return &StorageError{Operation: "write model", Path: "test", Err: fmt.Errorf("disk full")}
	}
	return s.BundleStore.Store(meterID, target, bundle)
}

func TestTrainBothTargetsIsolated(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	dataset := NewDataset("test", hourlyReadings(1, 180, start))
	registry := NewBundleRegistry(&failingStore{
		BundleStore: NewMemoryBundleStore(),
		failTarget:  TargetExport,
	})
	forecaster := NewForecaster(dataset, registry, testConfig(), NewLogger(false))

	result, err := forecaster.Train(1, TargetBoth)
	require.NoError(t, err)

	require.NotNil(t, result.Import)
	assert.Empty(t, result.Import.Error, "import survives the export failure")

	require.NotNil(t, result.Export)
	assert.Contains(t, result.Export.Error, "storage error")
}

func TestTrainAll(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	readings := append(hourlyReadings(1, 180, start), hourlyReadings(2, 40, start)...)
	forecaster, _ := newTestForecaster(readings)

	results, err := forecaster.TrainAll(TargetImport)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Empty(t, results[1].Import.Error)
	assert.Contains(t, results[2].Import.Error, "insufficient data")
}

func TestPredictWithoutModel(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	forecaster, _ := newTestForecaster(hourlyReadings(1, 100, start))

	result, err := forecaster.Predict(1, 24, TargetImport)
	require.NoError(t, err)
	assert.Empty(t, result.Error)
	require.NotNil(t, result.Import)
	assert.Contains(t, result.Import.Error, "model not found for meter 1 target import")
}

func TestPredictUnknownMeter(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	forecaster, _ := newTestForecaster(hourlyReadings(1, 100, start))

	result, err := forecaster.Predict(42, 24, TargetBoth)
	require.NoError(t, err)
	assert.Contains(t, result.Error, "no data found for meter 42")
	assert.Nil(t, result.Import)
	assert.Nil(t, result.Export)
}

func TestPredictValidation(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	forecaster, _ := newTestForecaster(hourlyReadings(1, 100, start))

	var invalid *ValidationError

	_, err := forecaster.Predict(1, 0, TargetImport)
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "hours", invalid.Field)

	_, err = forecaster.Predict(1, 200, TargetImport)
	require.ErrorAs(t, err, &invalid)

	_, err = forecaster.Predict(1, 24, Target("gas"))
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "target", invalid.Field)
}

func TestErrorMetrics(t *testing.T) {
	actual := []float64{10, 20, 30}
	predicted := []float64{12, 18, 33}

	assert.InDelta(t, 7.0/3, meanAbsoluteError(actual, predicted), 1e-9)
	assert.InDelta(t, 2.3804, rootMeanSquaredError(actual, predicted), 1e-3)

	// (2/10 + 2/20 + 3/30) / 3 * 100
	assert.InDelta(t, 13.333, meanAbsolutePercentageError(actual, predicted), 1e-2)

	assert.Equal(t, 0.0, meanAbsoluteError(nil, nil))
	assert.Equal(t, 0.0, rootMeanSquaredError(nil, nil))
	assert.Equal(t, 0.0, meanAbsolutePercentageError(nil, nil))
}
