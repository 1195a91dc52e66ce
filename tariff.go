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
	"math"
	"strconv"
)

// TariffBand applies a coefficient to the half-open hour range
// [StartHour, EndHour).
type TariffBand struct {
	StartHour   int     `json:"start_hour"`
	EndHour     int     `json:"end_hour"`
	Coefficient float64 `json:"coefficient"`
}

// TariffSchedule is a named set of hourly coefficient bands covering
// the full day.
type TariffSchedule struct {
	Name  string       `json:"name"`
	Bands []TariffBand `json:"bands"`
}

// Coefficient returns the multiplier for an hour of day
func (s *TariffSchedule) Coefficient(hour int) float64 {
	for _, band := range s.Bands {
		if hour >= band.StartHour && hour < band.EndHour {
			return band.Coefficient
		}
	}
	return 1
}

// OldTariffSchedule is the two-band day/night schedule: peak hours
// carry a 1.2 multiplier, night hours 0.8.
func OldTariffSchedule() *TariffSchedule {
	return &TariffSchedule{
		Name: "old",
		Bands: []TariffBand{
			{StartHour: 0, EndHour: 7, Coefficient: 0.8},
			{StartHour: 7, EndHour: 23, Coefficient: 1.2},
			{StartHour: 23, EndHour: 24, Coefficient: 0.8},
		},
	}
}

// NewTariffSchedule is the three-band schedule with a cheap overnight
// window, a flat midday window and peak pricing morning and evening.
func NewTariffSchedule() *TariffSchedule {
	return &TariffSchedule{
		Name: "new",
		Bands: []TariffBand{
			{StartHour: 0, EndHour: 6, Coefficient: 0.5},
			{StartHour: 6, EndHour: 11, Coefficient: 1.2},
			{StartHour: 11, EndHour: 16, Coefficient: 1.0},
			{StartHour: 16, EndHour: 24, Coefficient: 1.2},
		},
	}
}

// TariffCalculator projects monthly costs for a meter under both
// schedules from its recent hourly consumption.
type TariffCalculator struct {
	dataset *Dataset
	config  *Config
	logger  *Logger

	oldSchedule *TariffSchedule
	newSchedule *TariffSchedule
}

// NewTariffCalculator creates a calculator over a loaded dataset
func NewTariffCalculator(dataset *Dataset, config *Config, logger *Logger) *TariffCalculator {
	return &TariffCalculator{
		dataset:     dataset,
		config:      config,
		logger:      logger.WithComponent("tariff"),
		oldSchedule: OldTariffSchedule(),
		newSchedule: NewTariffSchedule(),
	}
}

// minTariffRows is the least hourly history a comparison needs
const minTariffRows = 24

// Compare projects both schedules for one meter. The analysis window
// is the last N weeks of the meter's own hourly history; a week of
// weighted consumption is scaled by four to a month.
func (c *TariffCalculator) Compare(meterID int) (*TariffComparison, error) {
	readings := c.dataset.ForMeter(meterID)
	if len(readings) == 0 {
		return nil, &MeterNotFoundError{MeterID: meterID}
	}

	window := c.config.AnalysisWeeks * 7 * 24
	if len(readings) > window {
		readings = readings[len(readings)-window:]
	}
	if len(readings) < minTariffRows {
		return &TariffComparison{
			MeterID: meterID,
			Error:   fmt.Sprintf("insufficient data for meter %d", meterID),
		}, nil
	}
	dataPoints := len(readings)

	// Import consumption per hour of day over the analysis window, kWh
	hourlySum := make([]float64, 24)
	hourlyCount := make([]int, 24)
	for _, r := range readings {
		h := r.Timestamp.Hour()
		hourlySum[h] += r.Import / 1000
		hourlyCount[h]++
	}

	weeks := float64(c.config.AnalysisWeeks)
	var oldWeekly, newWeekly float64
	breakdown := make([]HourlyTariffImpact, 0, 24)
	for hour := 0; hour < 24; hour++ {
		oldCoeff := c.oldSchedule.Coefficient(hour)
		newCoeff := c.newSchedule.Coefficient(hour)
		oldWeekly += hourlySum[hour] * oldCoeff / weeks
		newWeekly += hourlySum[hour] * newCoeff / weeks

		// Breakdown rows show the mean per occurrence of each
		// hour, with a positive difference meaning the old
		// schedule charges more
		var consumption float64
		if hourlyCount[hour] > 0 {
			consumption = hourlySum[hour] / float64(hourlyCount[hour])
		}
		oldWeighted := consumption * oldCoeff
		newWeighted := consumption * newCoeff

		breakdown = append(breakdown, HourlyTariffImpact{
			Hour:           hour,
			ConsumptionKWh: round3(consumption),
			OldCoefficient: oldCoeff,
			NewCoefficient: newCoeff,
			OldWeighted:    round3(oldWeighted),
			NewWeighted:    round3(newWeighted),
			Difference:     round3(oldWeighted - newWeighted),
		})
	}

	oldMonthly := oldWeekly * 4
	newMonthly := newWeekly * 4
	oldCost := oldMonthly * c.config.PricePerKWh
	newCost := newMonthly * c.config.PricePerKWh

	savings := oldCost - newCost
	savingsPct := 0.0
	if oldCost != 0 {
		savingsPct = savings / oldCost * 100
	}
	recommendation := "Old Tariff"
	if savings > 0 {
		recommendation = "New Tariff"
	}

	c.logger.Debug("Tariff comparison computed",
		"meter", meterID,
		"old_cost", round3(oldCost),
		"new_cost", round3(newCost),
	)

	return &TariffComparison{
		MeterID:        meterID,
		PricePerKWh:    c.config.PricePerKWh,
		AnalysisPeriod: fmt.Sprintf("last %d week(s)", c.config.AnalysisWeeks),
		DataPoints:     dataPoints,
		OldTariff: TariffCost{
			WeeklyWeightedConsumption:  round3(oldWeekly),
			MonthlyWeightedConsumption: round3(oldMonthly),
			MonthlyCost:                round3(oldCost),
		},
		NewTariff: TariffCost{
			WeeklyWeightedConsumption:  round3(newWeekly),
			MonthlyWeightedConsumption: round3(newMonthly),
			MonthlyCost:                round3(newCost),
		},
		Comparison: TariffVerdict{
			SavingsAmount:     round3(savings),
			SavingsPercentage: round3(savingsPct),
			Recommendation:    recommendation,
			BetterBy:          round3(math.Abs(savings)),
		},
		HourlyBreakdown: breakdown,
	}, nil
}

// CompareAllMeters runs the comparison for every meter and totals the
// fleet-level outcome. Per-meter failures are embedded in that meter's
// entry.
func (c *TariffCalculator) CompareAllMeters() *TariffFleetComparison {
	fleet := &TariffFleetComparison{
		Results:     make(map[string]*TariffComparison),
		PricePerKWh: c.config.PricePerKWh,
	}

	for _, meterID := range c.dataset.Meters() {
		comparison, err := c.Compare(meterID)
		if err != nil {
			comparison = &TariffComparison{MeterID: meterID, Error: err.Error()}
		}
		fleet.Results[strconv.Itoa(meterID)] = comparison
		fleet.Summary.TotalMeters++

		if comparison.Error != "" {
			continue
		}
		if comparison.Comparison.SavingsAmount > 0 {
			fleet.Summary.NewTariffBetter++
			fleet.Summary.TotalPotentialSavings += comparison.Comparison.SavingsAmount
		} else {
			fleet.Summary.OldTariffBetter++
		}
	}

	fleet.Summary.TotalPotentialSavings = round3(fleet.Summary.TotalPotentialSavings)
	return fleet
}
