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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// datasetTimeLayouts lists the timestamp formats accepted in the input CSV,
// tried in order.
var datasetTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Dataset holds meter readings loaded from a CSV file, sorted by
// (meter_id, timestamp), with a per-meter index for fast lookup.
// Consumption values are stored in Wh (the CSV is in kWh).
type Dataset struct {
	Path     string
	Readings []Reading

	byMeter map[int][]Reading
}

// LoadDataset reads meter readings from a CSV file.
//
// The file must have a header row with meter_id, datetime,
// import_consumption and export_consumption columns (any order,
// extra columns ignored). kWh values are scaled to Wh on load.
func LoadDataset(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Message: "failed to open data file", Err: err}
	}
	defer file.Close()

	ds, err := readDataset(file, path)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// readDataset parses CSV records into a sorted, indexed Dataset.
func readDataset(r io.Reader, path string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &DataLoadError{Path: path, Message: "failed to read CSV header", Err: err}
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"meter_id", "datetime", "import_consumption", "export_consumption"} {
		if _, ok := cols[required]; !ok {
			return nil, &DataLoadError{Path: path, Message: fmt.Sprintf("missing required column %q", required)}
		}
	}

	var readings []Reading

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &DataLoadError{Path: path, Message: fmt.Sprintf("failed to read record at line %d", line), Err: err}
		}

		meterID, err := strconv.Atoi(strings.TrimSpace(record[cols["meter_id"]]))
		if err != nil {
			return nil, &DataLoadError{Path: path, Message: fmt.Sprintf("invalid meter_id at line %d", line), Err: err}
		}

		ts, err := parseDatasetTime(record[cols["datetime"]])
		if err != nil {
			return nil, &DataLoadError{Path: path, Message: fmt.Sprintf("invalid datetime at line %d", line), Err: err}
		}

		imp, err := strconv.ParseFloat(strings.TrimSpace(record[cols["import_consumption"]]), 64)
		if err != nil {
			return nil, &DataLoadError{Path: path, Message: fmt.Sprintf("invalid import_consumption at line %d", line), Err: err}
		}

		exp, err := strconv.ParseFloat(strings.TrimSpace(record[cols["export_consumption"]]), 64)
		if err != nil {
			return nil, &DataLoadError{Path: path, Message: fmt.Sprintf("invalid export_consumption at line %d", line), Err: err}
		}

		// Convert kWh to Wh, models work in Wh throughout
		readings = append(readings, Reading{
			MeterID:   meterID,
			Timestamp: ts,
			Import:    imp * 1000,
			Export:    exp * 1000,
		})
	}

	if len(readings) == 0 {
		return nil, &DataLoadError{Path: path, Message: "data file contains no readings"}
	}

	return NewDataset(path, readings), nil
}

// NewDataset builds a sorted, indexed dataset from readings that are
// already in Wh.
func NewDataset(path string, readings []Reading) *Dataset {
	ds := &Dataset{
		Path:     path,
		Readings: readings,
		byMeter:  make(map[int][]Reading),
	}

	sort.SliceStable(ds.Readings, func(i, j int) bool {
		a, b := ds.Readings[i], ds.Readings[j]
		if a.MeterID != b.MeterID {
			return a.MeterID < b.MeterID
		}
		return a.Timestamp.Before(b.Timestamp)
	})

	for _, reading := range ds.Readings {
		ds.byMeter[reading.MeterID] = append(ds.byMeter[reading.MeterID], reading)
	}

	return ds
}

// parseDatasetTime parses a timestamp using the accepted layouts
func parseDatasetTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range datasetTimeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// Meters returns the distinct meter IDs in ascending order
func (d *Dataset) Meters() []int {
	ids := make([]int, 0, len(d.byMeter))
	for id := range d.byMeter {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ForMeter returns the chronologically sorted readings for a meter.
// The returned slice shares backing storage with the dataset and must
// not be modified.
func (d *Dataset) ForMeter(meterID int) []Reading {
	return d.byMeter[meterID]
}

// HasMeter reports whether the dataset contains readings for a meter
func (d *Dataset) HasMeter(meterID int) bool {
	_, ok := d.byMeter[meterID]
	return ok
}

// ReferenceTime returns the latest timestamp across all readings.
// Aggregations over "recent" periods anchor on this instead of the
// wall clock so historical exports remain reproducible.
func (d *Dataset) ReferenceTime() time.Time {
	var latest time.Time
	for _, r := range d.Readings {
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}
	return latest
}

// MeterDetails returns summary information for a meter
func (d *Dataset) MeterDetails(meterID int) (*MeterInfo, error) {
	readings := d.byMeter[meterID]
	if len(readings) == 0 {
		return nil, &MeterNotFoundError{MeterID: meterID}
	}

	var totalImport, totalExport float64
	for _, r := range readings {
		totalImport += r.Import
		totalExport += r.Export
	}

	return &MeterInfo{
		MeterID:     meterID,
		RecordCount: len(readings),
		DateRange: DateRange{
			Start: readings[0].Timestamp,
			End:   readings[len(readings)-1].Timestamp,
		},
		TotalImport: round3(totalImport / 1000),
		TotalExport: round3(totalExport / 1000),
	}, nil
}
