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

import "time"

// APIResponse is the uniform envelope every EnergyAPI call returns
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func apiOK(data interface{}, message string) *APIResponse {
	return &APIResponse{Success: true, Data: data, Message: message}
}

func apiError(err error) *APIResponse {
	return &APIResponse{Success: false, Error: err.Error()}
}

// EnergyAPI fronts the forecaster, analyzer and tariff calculator with
// a uniform response envelope. Callers never see raw errors; failures
// come back as unsuccessful envelopes.
type EnergyAPI struct {
	dataset    *Dataset
	forecaster *Forecaster
	analyzer   *ConsumptionAnalyzer
	tariffs    *TariffCalculator
	logger     *Logger
}

// NewEnergyAPI wires the façade over a loaded dataset
func NewEnergyAPI(dataset *Dataset, forecaster *Forecaster, analyzer *ConsumptionAnalyzer, tariffs *TariffCalculator, logger *Logger) *EnergyAPI {
	return &EnergyAPI{
		dataset:    dataset,
		forecaster: forecaster,
		analyzer:   analyzer,
		tariffs:    tariffs,
		logger:     logger.WithComponent("api"),
	}
}

// HealthCheck reports service liveness and dataset coverage
func (a *EnergyAPI) HealthCheck() *APIResponse {
	return apiOK(map[string]interface{}{
		"status":   "healthy",
		"meters":   len(a.dataset.Meters()),
		"readings": len(a.dataset.Readings),
	}, "service is healthy")
}

// Info describes the service and its dataset
func (a *EnergyAPI) Info() *APIResponse {
	ref := a.dataset.ReferenceTime()
	return apiOK(map[string]interface{}{
		"name":           "wattson",
		"version":        GetVersion(),
		"data_path":      a.dataset.Path,
		"meters":         a.dataset.Meters(),
		"reference_time": ref.Format(time.RFC3339),
	}, "")
}

// Meters lists the meter IDs present in the dataset
func (a *EnergyAPI) Meters() *APIResponse {
	meters := a.dataset.Meters()
	return apiOK(map[string]interface{}{
		"meters": meters,
		"count":  len(meters),
	}, "")
}

// MeterDetails summarises one meter's coverage
func (a *EnergyAPI) MeterDetails(meterID int) *APIResponse {
	info, err := a.dataset.MeterDetails(meterID)
	if err != nil {
		return apiError(err)
	}
	return apiOK(info, "")
}

// HistoricalConsumption returns bucketed consumption for a meter
func (a *EnergyAPI) HistoricalConsumption(meterID int, period, ctype string) *APIResponse {
	series, err := a.analyzer.Aggregate(meterID, period, ctype)
	if err != nil {
		return apiError(err)
	}
	return apiOK(series, "")
}

// TrainModel trains and persists models for one meter
func (a *EnergyAPI) TrainModel(meterID int, target Target) *APIResponse {
	result, err := a.forecaster.Train(meterID, target)
	if err != nil {
		return apiError(err)
	}
	return apiOK(result, "training completed")
}

// TrainAllMeters trains every meter in the dataset
func (a *EnergyAPI) TrainAllMeters(target Target) *APIResponse {
	results, err := a.forecaster.TrainAll(target)
	if err != nil {
		return apiError(err)
	}
	return apiOK(results, "training completed for all meters")
}

// Forecast predicts the next hours of consumption for a meter
func (a *EnergyAPI) Forecast(meterID int, hours int, target Target) *APIResponse {
	result, err := a.forecaster.Predict(meterID, hours, target)
	if err != nil {
		return apiError(err)
	}
	return apiOK(result, "")
}

// DailyForecast predicts the next 24 hours for a meter
func (a *EnergyAPI) DailyForecast(meterID int, target Target) *APIResponse {
	return a.Forecast(meterID, 24, target)
}

// WeeklyForecast predicts the next week and adds per-day totals
// alongside the hourly series.
func (a *EnergyAPI) WeeklyForecast(meterID int, target Target) *APIResponse {
	result, err := a.forecaster.Predict(meterID, 7*24, target)
	if err != nil {
		return apiError(err)
	}

	dailyTotals := make(map[string]map[string]float64)
	for _, t := range expandTargets(target) {
		outcome := result.Outcome(t)
		if outcome == nil || outcome.ForecastSeries == nil {
			continue
		}
		totals := make(map[string]float64)
		for _, p := range outcome.Forecasts {
			totals[p.Timestamp.Format("2006-01-02")] += p.PredictedConsumption
		}
		for date, total := range totals {
			totals[date] = round3(total)
		}
		dailyTotals[string(t)] = totals
	}

	return apiOK(map[string]interface{}{
		"forecast":     result,
		"daily_totals": dailyTotals,
	}, "")
}

// ForecastSummary returns only the aggregate figures of a forecast
func (a *EnergyAPI) ForecastSummary(meterID int, hours int, target Target) *APIResponse {
	result, err := a.forecaster.Predict(meterID, hours, target)
	if err != nil {
		return apiError(err)
	}

	summaries := make(map[string]interface{})
	for _, t := range expandTargets(target) {
		outcome := result.Outcome(t)
		if outcome == nil {
			continue
		}
		if outcome.Error != "" {
			summaries[string(t)] = map[string]string{"error": outcome.Error}
			continue
		}
		summaries[string(t)] = outcome.Summary
	}
	if result.Error != "" {
		return &APIResponse{Success: false, Error: result.Error}
	}
	return apiOK(summaries, "")
}

// CompareTariffs projects both tariff schedules for one meter
func (a *EnergyAPI) CompareTariffs(meterID int) *APIResponse {
	comparison, err := a.tariffs.Compare(meterID)
	if err != nil {
		return apiError(err)
	}
	return apiOK(comparison, "")
}

// CompareAllTariffs projects both schedules for every meter
func (a *EnergyAPI) CompareAllTariffs() *APIResponse {
	return apiOK(a.tariffs.CompareAllMeters(), "")
}
