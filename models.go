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
	"time"
)

// Target selects which consumption series a model is trained on
type Target string

const (
	TargetImport Target = "import"
	TargetExport Target = "export"
	TargetBoth   Target = "both"
)

// Targets expands a requested target into the concrete series to process
func (t Target) Targets() []Target {
	switch t {
	case TargetBoth:
		return []Target{TargetImport, TargetExport}
	case TargetImport, TargetExport:
		return []Target{t}
	default:
		return nil
	}
}

// Valid reports whether the target is one of import, export or both
func (t Target) Valid() bool {
	return t == TargetImport || t == TargetExport || t == TargetBoth
}

// Reading is one hourly import/export measurement for a meter, in Wh
type Reading struct {
	MeterID   int       `json:"meter_id"`
	Timestamp time.Time `json:"datetime"`
	Import    float64   `json:"import_consumption"`
	Export    float64   `json:"export_consumption"`
}

// Value returns the reading's value for the given target series
func (r Reading) Value(target Target) float64 {
	if target == TargetExport {
		return r.Export
	}
	return r.Import
}

// MeterInfo summarises one meter's coverage in the dataset
type MeterInfo struct {
	MeterID     int       `json:"meter_id"`
	RecordCount int       `json:"record_count"`
	DateRange   DateRange `json:"date_range"`
	TotalImport float64   `json:"total_import"`
	TotalExport float64   `json:"total_export"`
}

// DateRange is an inclusive timestamp range
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TrainReport holds held-out evaluation metrics for one trained target
type TrainReport struct {
	MAE             float64 `json:"mae"`
	RMSE            float64 `json:"rmse"`
	MAPE            float64 `json:"mape"`
	TrainingSamples int     `json:"training_samples"`
	TestSamples     int     `json:"test_samples"`
}

// TrainOutcome is either a metrics report or an error for one target
type TrainOutcome struct {
	*TrainReport
	Error string `json:"error,omitempty"`
}

// TrainResult groups per-target training outcomes; a failure for one target
// never clears the other
type TrainResult struct {
	Import *TrainOutcome `json:"import,omitempty"`
	Export *TrainOutcome `json:"export,omitempty"`
}

// Outcome returns the outcome slot for a target
func (r *TrainResult) Outcome(target Target) *TrainOutcome {
	if target == TargetExport {
		return r.Export
	}
	return r.Import
}

func (r *TrainResult) setOutcome(target Target, o *TrainOutcome) {
	if target == TargetExport {
		r.Export = o
	} else {
		r.Import = o
	}
}

// ForecastPoint is a single predicted hourly value
type ForecastPoint struct {
	Timestamp            time.Time `json:"timestamp"`
	HourAhead            int       `json:"hour_ahead"`
	PredictedConsumption float64   `json:"predicted_consumption"`
}

// ForecastSummary aggregates a forecast horizon
type ForecastSummary struct {
	TotalPredicted float64 `json:"total_predicted"`
	AverageHourly  float64 `json:"average_hourly"`
	MaxPredicted   float64 `json:"max_predicted"`
	MinPredicted   float64 `json:"min_predicted"`
}

// ForecastSeries is a full forecast for one target
type ForecastSeries struct {
	Forecasts []ForecastPoint `json:"forecasts"`
	Summary   ForecastSummary `json:"summary"`
}

// ForecastOutcome is either a forecast series or an error for one target
type ForecastOutcome struct {
	*ForecastSeries
	Error string `json:"error,omitempty"`
}

// PredictResult groups per-target forecast outcomes. Error is set only for
// failures that precede any per-target work, such as an unknown meter.
type PredictResult struct {
	Error  string           `json:"error,omitempty"`
	Import *ForecastOutcome `json:"import,omitempty"`
	Export *ForecastOutcome `json:"export,omitempty"`
}

// Outcome returns the outcome slot for a target
func (r *PredictResult) Outcome(target Target) *ForecastOutcome {
	if target == TargetExport {
		return r.Export
	}
	return r.Import
}

func (r *PredictResult) setOutcome(target Target, o *ForecastOutcome) {
	if target == TargetExport {
		r.Export = o
	} else {
		r.Import = o
	}
}

// ConsumptionPoint is one aggregated bucket of historical consumption.
// Which label field is set depends on the aggregation period.
type ConsumptionPoint struct {
	Hour        *int    `json:"hour,omitempty"`
	Day         string  `json:"day,omitempty"`
	Date        string  `json:"date,omitempty"`
	Month       string  `json:"month,omitempty"`
	Consumption float64 `json:"consumption"`
}

// ConsumptionSeries is the aggregated history for one meter and period
type ConsumptionSeries struct {
	Data   []ConsumptionPoint `json:"data"`
	Period string             `json:"period"`
	Total  float64            `json:"total"`
	Error  string             `json:"error,omitempty"`
}

// TariffCost holds weighted-consumption cost projections for one schedule
type TariffCost struct {
	WeeklyWeightedConsumption  float64 `json:"weekly_weighted_consumption"`
	MonthlyWeightedConsumption float64 `json:"monthly_weighted_consumption"`
	MonthlyCost                float64 `json:"monthly_cost"`
}

// TariffVerdict compares the two schedules for a meter
type TariffVerdict struct {
	SavingsAmount     float64 `json:"savings_amount"`
	SavingsPercentage float64 `json:"savings_percentage"`
	Recommendation    string  `json:"recommendation"`
	BetterBy          float64 `json:"better_by"`
}

// HourlyTariffImpact is the per-hour breakdown row of a tariff comparison
type HourlyTariffImpact struct {
	Hour           int     `json:"hour"`
	ConsumptionKWh float64 `json:"consumption_kwh"`
	OldCoefficient float64 `json:"old_coefficient"`
	NewCoefficient float64 `json:"new_coefficient"`
	OldWeighted    float64 `json:"old_weighted"`
	NewWeighted    float64 `json:"new_weighted"`
	Difference     float64 `json:"difference"`
}

// TariffComparison is the full old-vs-new comparison for one meter
type TariffComparison struct {
	MeterID         int                  `json:"meter_id"`
	PricePerKWh     float64              `json:"price_per_kwh"`
	AnalysisPeriod  string               `json:"analysis_period"`
	DataPoints      int                  `json:"data_points"`
	OldTariff       TariffCost           `json:"old_tariff"`
	NewTariff       TariffCost           `json:"new_tariff"`
	Comparison      TariffVerdict        `json:"comparison"`
	HourlyBreakdown []HourlyTariffImpact `json:"hourly_breakdown"`
	Error           string               `json:"error,omitempty"`
}

// TariffFleetSummary counts which schedule wins across all meters
type TariffFleetSummary struct {
	TotalMeters           int     `json:"total_meters"`
	NewTariffBetter       int     `json:"new_tariff_better"`
	OldTariffBetter       int     `json:"old_tariff_better"`
	TotalPotentialSavings float64 `json:"total_potential_savings"`
}

// TariffFleetComparison compares tariffs for every meter in the dataset
type TariffFleetComparison struct {
	Summary     TariffFleetSummary           `json:"summary"`
	Results     map[string]*TariffComparison `json:"results"`
	PricePerKWh float64                      `json:"price_per_kwh"`
}
