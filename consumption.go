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
	"sort"
	"strconv"
	"time"
)

// Aggregation periods and consumption types accepted by the analyzer
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"

	ConsumptionImport = "import"
	ConsumptionExport = "export"
	ConsumptionNet    = "net"
)

// ConsumptionAnalyzer aggregates historical readings into the bucketed
// series the reports and API expose. All windows anchor on the
// dataset's reference time, not the wall clock.
type ConsumptionAnalyzer struct {
	dataset *Dataset
	logger  *Logger
}

// NewConsumptionAnalyzer creates an analyzer over a loaded dataset
func NewConsumptionAnalyzer(dataset *Dataset, logger *Logger) *ConsumptionAnalyzer {
	return &ConsumptionAnalyzer{
		dataset: dataset,
		logger:  logger.WithComponent("consumption"),
	}
}

// value extracts the requested consumption type from a reading, in kWh
func consumptionValue(r Reading, ctype string) float64 {
	switch ctype {
	case ConsumptionExport:
		return r.Export / 1000
	case ConsumptionNet:
		return (r.Import - r.Export) / 1000
	default:
		return r.Import / 1000
	}
}

// Aggregate buckets a meter's recent consumption by the given period.
// Every bucket in the period appears even when no reading fell into
// it, so charts get a complete axis.
func (a *ConsumptionAnalyzer) Aggregate(meterID int, period, ctype string) (*ConsumptionSeries, error) {
	switch ctype {
	case ConsumptionImport, ConsumptionExport, ConsumptionNet:
	default:
		return nil, &ValidationError{Field: "type", Value: ctype, Message: "must be import, export or net"}
	}

	readings := a.dataset.ForMeter(meterID)
	if len(readings) == 0 {
		return nil, &MeterNotFoundError{MeterID: meterID}
	}

	ref := a.dataset.ReferenceTime()

	var points []ConsumptionPoint
	switch period {
	case PeriodDay, "24h":
		period = PeriodDay
		points = a.aggregateDay(readings, ref, ctype)
	case PeriodWeek:
		points = a.aggregateWeek(readings, ref, ctype)
	case PeriodMonth:
		points = a.aggregateMonth(readings, ref, ctype)
	case PeriodYear:
		points = a.aggregateYear(readings, ref, ctype)
	default:
		return nil, &ValidationError{Field: "period", Value: period, Message: "must be day, week, month or year"}
	}

	var total float64
	for i := range points {
		points[i].Consumption = round3(points[i].Consumption)
		total += points[i].Consumption
	}

	return &ConsumptionSeries{
		Data:   points,
		Period: period,
		Total:  round3(total),
	}, nil
}

// aggregateDay buckets the last 24 hours by hour of day
func (a *ConsumptionAnalyzer) aggregateDay(readings []Reading, ref time.Time, ctype string) []ConsumptionPoint {
	cutoff := ref.Add(-24 * time.Hour)
	byHour := make(map[int]float64, 24)
	for _, r := range readings {
		if r.Timestamp.After(cutoff) && !r.Timestamp.After(ref) {
			byHour[r.Timestamp.Hour()] += consumptionValue(r, ctype)
		}
	}

	points := make([]ConsumptionPoint, 0, 24)
	for h := 0; h < 24; h++ {
		hour := h
		points = append(points, ConsumptionPoint{Hour: &hour, Consumption: byHour[h]})
	}
	return points
}

// aggregateWeek buckets the last seven days by calendar date
func (a *ConsumptionAnalyzer) aggregateWeek(readings []Reading, ref time.Time, ctype string) []ConsumptionPoint {
	cutoff := ref.AddDate(0, 0, -7)
	byDate := make(map[string]float64)
	for _, r := range readings {
		if r.Timestamp.After(cutoff) && !r.Timestamp.After(ref) {
			byDate[r.Timestamp.Format("2006-01-02")] += consumptionValue(r, ctype)
		}
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	// A window ending mid-day touches eight calendar dates; keep the
	// most recent seven
	if len(dates) > 7 {
		dates = dates[len(dates)-7:]
	}

	points := make([]ConsumptionPoint, 0, len(dates))
	for _, date := range dates {
		day, _ := time.Parse("2006-01-02", date)
		points = append(points, ConsumptionPoint{
			Day:         day.Weekday().String(),
			Date:        date,
			Consumption: byDate[date],
		})
	}
	return points
}

// aggregateMonth buckets the last 30 days by day of month, with one
// bucket for every day of the reference month.
func (a *ConsumptionAnalyzer) aggregateMonth(readings []Reading, ref time.Time, ctype string) []ConsumptionPoint {
	cutoff := ref.AddDate(0, 0, -30)
	byDay := make(map[int]float64)
	for _, r := range readings {
		if r.Timestamp.After(cutoff) && !r.Timestamp.After(ref) {
			byDay[r.Timestamp.Day()] += consumptionValue(r, ctype)
		}
	}

	daysInMonth := time.Date(ref.Year(), ref.Month()+1, 0, 0, 0, 0, 0, ref.Location()).Day()
	points := make([]ConsumptionPoint, 0, daysInMonth)
	for d := 1; d <= daysInMonth; d++ {
		points = append(points, ConsumptionPoint{
			Date:        strconv.Itoa(d),
			Consumption: byDay[d],
		})
	}
	return points
}

// aggregateYear buckets the last year by calendar month
func (a *ConsumptionAnalyzer) aggregateYear(readings []Reading, ref time.Time, ctype string) []ConsumptionPoint {
	cutoff := ref.AddDate(-1, 0, 0)
	byMonth := make(map[time.Month]float64)
	for _, r := range readings {
		if r.Timestamp.After(cutoff) && !r.Timestamp.After(ref) {
			byMonth[r.Timestamp.Month()] += consumptionValue(r, ctype)
		}
	}

	points := make([]ConsumptionPoint, 0, 12)
	for m := time.January; m <= time.December; m++ {
		points = append(points, ConsumptionPoint{
			Month:       m.String(),
			Consumption: byMonth[m],
		})
	}
	return points
}

// DailyTotals sums a meter's import consumption per calendar date
// across its whole history, in kWh. Used by the charts and report.
func (a *ConsumptionAnalyzer) DailyTotals(meterID int) ([]string, []float64, error) {
	readings := a.dataset.ForMeter(meterID)
	if len(readings) == 0 {
		return nil, nil, &MeterNotFoundError{MeterID: meterID}
	}

	byDate := make(map[string]float64)
	for _, r := range readings {
		byDate[r.Timestamp.Format("2006-01-02")] += r.Import / 1000
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	totals := make([]float64, len(dates))
	for i, date := range dates {
		totals[i] = round3(byDate[date])
	}
	return dates, totals, nil
}

// HourlyProfile averages a meter's import consumption by hour of day
// across its whole history, in kWh.
func (a *ConsumptionAnalyzer) HourlyProfile(meterID int) ([]float64, error) {
	readings := a.dataset.ForMeter(meterID)
	if len(readings) == 0 {
		return nil, &MeterNotFoundError{MeterID: meterID}
	}

	sums := make([]float64, 24)
	counts := make([]int, 24)
	for _, r := range readings {
		h := r.Timestamp.Hour()
		sums[h] += r.Import / 1000
		counts[h]++
	}

	profile := make([]float64, 24)
	for h := range profile {
		if counts[h] > 0 {
			profile[h] = round3(sums[h] / float64(counts[h]))
		}
	}
	return profile, nil
}
