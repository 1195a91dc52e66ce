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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTariffScheduleCoefficients(t *testing.T) {
	old := OldTariffSchedule()
	assert.Equal(t, 0.8, old.Coefficient(0))
	assert.Equal(t, 0.8, old.Coefficient(6))
	assert.Equal(t, 1.2, old.Coefficient(7))
	assert.Equal(t, 1.2, old.Coefficient(22))
	assert.Equal(t, 0.8, old.Coefficient(23))

	schedule := NewTariffSchedule()
	assert.Equal(t, 0.5, schedule.Coefficient(0))
	assert.Equal(t, 0.5, schedule.Coefficient(5))
	assert.Equal(t, 1.2, schedule.Coefficient(6))
	assert.Equal(t, 1.2, schedule.Coefficient(10))
	assert.Equal(t, 1.0, schedule.Coefficient(11))
	assert.Equal(t, 1.0, schedule.Coefficient(15))
	assert.Equal(t, 1.2, schedule.Coefficient(16))
	assert.Equal(t, 1.2, schedule.Coefficient(23))
}

// flatWeek builds a week of readings at exactly 1 kWh per hour
func flatWeek(meterID int, start time.Time) []Reading {
	readings := make([]Reading, 7*24)
	for i := range readings {
		readings[i] = Reading{
			MeterID:   meterID,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Import:    1000,
		}
	}
	return readings
}

func newTestCalculator(readings []Reading) *TariffCalculator {
	return NewTariffCalculator(NewDataset("test", readings), testConfig(), NewLogger(false))
}

func TestTariffCompareFlatConsumption(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	calc := newTestCalculator(flatWeek(1, start))

	comparison, err := calc.Compare(1)
	require.NoError(t, err)
	require.Empty(t, comparison.Error)

	assert.Equal(t, 1, comparison.MeterID)
	assert.Equal(t, 2.5, comparison.PricePerKWh)
	assert.Equal(t, 168, comparison.DataPoints)

	// Flat 1 kWh/h: old weekly = 16h*1.2 + 8h*0.8 = 25.6 kWh weighted
	// per day; new weekly = 6h*0.5 + 13h*1.2 + 5h*1.0 = 23.6
	assert.InDelta(t, 25.6*7, comparison.OldTariff.WeeklyWeightedConsumption, 0.4)
	assert.InDelta(t, 23.6*7, comparison.NewTariff.WeeklyWeightedConsumption, 0.4)

	assert.InDelta(t, comparison.OldTariff.WeeklyWeightedConsumption*4,
		comparison.OldTariff.MonthlyWeightedConsumption, 0.01)
	assert.InDelta(t, comparison.OldTariff.MonthlyWeightedConsumption*2.5,
		comparison.OldTariff.MonthlyCost, 0.01)

	// The new schedule is cheaper for flat consumption
	assert.Greater(t, comparison.Comparison.SavingsAmount, 0.0)
	assert.Equal(t, "New Tariff", comparison.Comparison.Recommendation)
	assert.InDelta(t, comparison.Comparison.SavingsAmount, comparison.Comparison.BetterBy, 0.001)

	// Breakdown rows carry the mean consumption per occurrence of
	// each hour, so a flat 1 kWh/h week shows 1.0 everywhere
	require.Len(t, comparison.HourlyBreakdown, 24)
	for h, row := range comparison.HourlyBreakdown {
		assert.Equal(t, h, row.Hour)
		assert.InDelta(t, 1.0, row.ConsumptionKWh, 0.001)
		assert.InDelta(t, row.OldWeighted-row.NewWeighted, row.Difference, 0.002)
	}
	midnight := comparison.HourlyBreakdown[0]
	assert.InDelta(t, 0.8-0.5, midnight.Difference, 0.002)
}

func TestTariffCompareNightHeavyConsumption(t *testing.T) {
	// All consumption between midnight and 05:00, where the new
	// schedule is at its cheapest
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	var readings []Reading
	for d := 0; d < 7; d++ {
		for h := 0; h < 5; h++ {
			readings = append(readings, Reading{
				MeterID:   1,
				Timestamp: start.AddDate(0, 0, d).Add(time.Duration(h) * time.Hour),
				Import:    2000,
			})
		}
	}

	calc := newTestCalculator(readings)
	comparison, err := calc.Compare(1)
	require.NoError(t, err)

	// Old pays 0.8 per night kWh, new pays 0.5
	assert.Greater(t, comparison.Comparison.SavingsAmount, 0.0)
	assert.Equal(t, "New Tariff", comparison.Comparison.Recommendation)
}

func TestTariffCompareUnknownMeter(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	calc := newTestCalculator(flatWeek(1, start))

	_, err := calc.Compare(12)
	var notFound *MeterNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestTariffCompareInsufficientData(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	readings := flatWeek(1, start)
	for h := 0; h < 10; h++ {
		readings = append(readings, Reading{
			MeterID:   2,
			Timestamp: start.Add(time.Duration(h) * time.Hour),
			Import:    1000,
		})
	}

	calc := newTestCalculator(readings)

	// Ten hours of history is not enough to project a week
	comparison, err := calc.Compare(2)
	require.NoError(t, err)
	assert.Contains(t, comparison.Error, "insufficient data for meter 2")
	assert.Zero(t, comparison.DataPoints)
}

func TestTariffCompareStaleHistory(t *testing.T) {
	// Meter 2's week of data ends months before meter 1's newest
	// reading; each comparison uses the meter's own recent history
	readings := append(flatWeek(1, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)),
		flatWeek(2, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))...)

	calc := newTestCalculator(readings)

	comparison, err := calc.Compare(2)
	require.NoError(t, err)
	require.Empty(t, comparison.Error)
	assert.Equal(t, 168, comparison.DataPoints)
	assert.Equal(t, "New Tariff", comparison.Comparison.Recommendation)
}

func TestTariffCompareWindowTail(t *testing.T) {
	// Two weeks of history with a one week analysis window: only the
	// most recent 168 rows count
	start := time.Date(2025, 5, 26, 0, 0, 0, 0, time.UTC)
	readings := make([]Reading, 0, 2*168)
	for i := 0; i < 2*168; i++ {
		value := 500.0
		if i >= 168 {
			value = 2000.0
		}
		readings = append(readings, Reading{
			MeterID:   1,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Import:    value,
		})
	}

	calc := newTestCalculator(readings)
	comparison, err := calc.Compare(1)
	require.NoError(t, err)

	// Flat 2 kWh/h over the kept week: old weekly weighted is
	// 2 * (16*1.2 + 8*0.8) * 7 = 358.4
	assert.Equal(t, 168, comparison.DataPoints)
	assert.InDelta(t, 358.4, comparison.OldTariff.WeeklyWeightedConsumption, 0.01)
}

func TestCompareAllMeters(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	readings := append(flatWeek(1, start), flatWeek(2, start)...)

	calc := newTestCalculator(readings)
	fleet := calc.CompareAllMeters()

	assert.Equal(t, 2, fleet.Summary.TotalMeters)
	assert.Equal(t, 2, fleet.Summary.NewTariffBetter)
	assert.Equal(t, 0, fleet.Summary.OldTariffBetter)
	assert.Greater(t, fleet.Summary.TotalPotentialSavings, 0.0)
	assert.Equal(t, 2.5, fleet.PricePerKWh)

	require.Len(t, fleet.Results, 2)
	require.Contains(t, fleet.Results, "1")
	require.Contains(t, fleet.Results, "2")
	assert.InDelta(t,
		fleet.Results["1"].Comparison.SavingsAmount+fleet.Results["2"].Comparison.SavingsAmount,
		fleet.Summary.TotalPotentialSavings, 0.001)
}
