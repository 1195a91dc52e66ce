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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDataset(t *testing.T) {
	path := writeCSV(t, `meter_id,datetime,import_consumption,export_consumption
2,2025-06-01 01:00:00,0.5,0.1
1,2025-06-01 00:00:00,1.25,0.0
1,2025-06-01 01:00:00,2.0,0.5
`)

	ds, err := LoadDataset(path)
	require.NoError(t, err)
	require.Len(t, ds.Readings, 3)

	// Sorted by meter then timestamp, values scaled to Wh
	assert.Equal(t, 1, ds.Readings[0].MeterID)
	assert.Equal(t, 1250.0, ds.Readings[0].Import)
	assert.Equal(t, 500.0, ds.Readings[2].Import)
	assert.Equal(t, []int{1, 2}, ds.Meters())

	readings := ds.ForMeter(1)
	require.Len(t, readings, 2)
	assert.True(t, readings[0].Timestamp.Before(readings[1].Timestamp))

	assert.True(t, ds.HasMeter(2))
	assert.False(t, ds.HasMeter(99))
}

func TestLoadDatasetColumnOrderIndependent(t *testing.T) {
	path := writeCSV(t, `datetime,export_consumption,import_consumption,meter_id,extra
2025-06-01 00:00:00,0.2,1.0,7,ignored
`)

	ds, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, 7, ds.Readings[0].MeterID)
	assert.Equal(t, 1000.0, ds.Readings[0].Import)
	assert.Equal(t, 200.0, ds.Readings[0].Export)
}

func TestLoadDatasetMissingFile(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "nope.csv"))

	var loadErr *DataLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.NotNil(t, errors.Unwrap(loadErr))
}

func TestLoadDatasetMissingColumn(t *testing.T) {
	path := writeCSV(t, `meter_id,datetime,import_consumption
1,2025-06-01 00:00:00,1.0
`)

	_, err := LoadDataset(path)
	var loadErr *DataLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Error(), "export_consumption")
}

func TestLoadDatasetBadValue(t *testing.T) {
	path := writeCSV(t, `meter_id,datetime,import_consumption,export_consumption
1,2025-06-01 00:00:00,not-a-number,0.0
`)

	_, err := LoadDataset(path)
	var loadErr *DataLoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestLoadDatasetEmpty(t *testing.T) {
	path := writeCSV(t, "meter_id,datetime,import_consumption,export_consumption\n")

	_, err := LoadDataset(path)
	var loadErr *DataLoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestParseDatasetTimeLayouts(t *testing.T) {
	for _, value := range []string{
		"2025-06-01 13:00:00",
		"2025-06-01T13:00:00Z",
		"2025-06-01T13:00:00",
		"2025-06-01 13:00",
	} {
		ts, err := parseDatasetTime(value)
		require.NoError(t, err, value)
		assert.Equal(t, 13, ts.Hour())
	}

	_, err := parseDatasetTime("yesterday")
	assert.Error(t, err)
}

func TestDatasetReferenceTime(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ds := NewDataset("test", hourlyReadings(1, 48, start))

	assert.Equal(t, start.Add(47*time.Hour), ds.ReferenceTime())
}

func TestMeterDetails(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	readings := []Reading{
		{MeterID: 3, Timestamp: start, Import: 1500, Export: 250},
		{MeterID: 3, Timestamp: start.Add(time.Hour), Import: 500, Export: 250},
	}
	ds := NewDataset("test", readings)

	info, err := ds.MeterDetails(3)
	require.NoError(t, err)
	assert.Equal(t, 2, info.RecordCount)
	assert.Equal(t, 2.0, info.TotalImport, "totals reported in kWh")
	assert.Equal(t, 0.5, info.TotalExport)
	assert.Equal(t, start, info.DateRange.Start)

	_, err = ds.MeterDetails(42)
	var notFound *MeterNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 42, notFound.MeterID)
}
