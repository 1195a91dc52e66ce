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
	"encoding/base64"
	"fmt"
	"strconv"

	charts "github.com/vicanso/go-charts/v2"
)

// ChartGenerator renders consumption and forecast charts as base64
// PNGs for embedding in reports
type ChartGenerator struct {
	theme string
}

// NewChartGenerator creates a new chart generator
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{
		theme: "light",
	}
}

// GenerateDailyConsumptionChart creates a line chart of a meter's
// daily import totals across its history
func (cg *ChartGenerator) GenerateDailyConsumptionChart(meterID int, dates []string, totals []float64) (string, error) {
	if len(dates) == 0 {
		return "", fmt.Errorf("no consumption data available for meter %d", meterID)
	}

	p, err := charts.LineRender(
		[][]float64{totals},
		charts.TitleTextOptionFunc(fmt.Sprintf("Meter %d Daily Consumption", meterID)),
		charts.XAxisDataOptionFunc(dates),
		charts.LegendLabelsOptionFunc([]string{"Import (kWh)"}, charts.PositionRight),
		charts.ThemeOptionFunc(cg.getTheme()),
		charts.WidthOptionFunc(1200),
		charts.HeightOptionFunc(400),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render daily consumption chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return "", fmt.Errorf("failed to generate chart bytes: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}

// GenerateHourlyProfileChart creates a bar chart of a meter's average
// consumption by hour of day
func (cg *ChartGenerator) GenerateHourlyProfileChart(meterID int, profile []float64) (string, error) {
	if len(profile) == 0 {
		return "", fmt.Errorf("no hourly profile available for meter %d", meterID)
	}

	labels := make([]string, len(profile))
	for h := range labels {
		labels[h] = fmt.Sprintf("%02d:00", h)
	}

	p, err := charts.BarRender(
		[][]float64{profile},
		charts.TitleTextOptionFunc(fmt.Sprintf("Meter %d Hourly Profile", meterID)),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc([]string{"Average (kWh)"}, charts.PositionRight),
		charts.ThemeOptionFunc(cg.getTheme()),
		charts.WidthOptionFunc(1200),
		charts.HeightOptionFunc(400),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render hourly profile chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return "", fmt.Errorf("failed to generate chart bytes: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}

// GenerateForecastChart creates a line chart of the predicted horizon,
// optionally overlaid with the trailing observed values
func (cg *ChartGenerator) GenerateForecastChart(meterID int, target Target, observed []Reading, series *ForecastSeries) (string, error) {
	if series == nil || len(series.Forecasts) == 0 {
		return "", fmt.Errorf("no forecast available for meter %d", meterID)
	}

	// Trailing observed values lead into the forecast horizon; the
	// forecast series is padded with zeroes underneath them so the
	// two lines share one axis.
	var labels []string
	var observedValues []float64
	for _, r := range observed {
		labels = append(labels, r.Timestamp.Format("Jan 2 15:04"))
		observedValues = append(observedValues, round3(r.Value(target)/1000))
	}

	forecastValues := make([]float64, len(observed), len(observed)+len(series.Forecasts))
	for _, p := range series.Forecasts {
		labels = append(labels, p.Timestamp.Format("Jan 2 15:04"))
		observedValues = append(observedValues, 0)
		forecastValues = append(forecastValues, p.PredictedConsumption)
	}

	values := [][]float64{forecastValues}
	legendLabels := []string{"Forecast (kWh)"}
	if len(observed) > 0 {
		values = append(values, observedValues)
		legendLabels = append(legendLabels, "Observed (kWh)")
	}

	p, err := charts.LineRender(
		values,
		charts.TitleTextOptionFunc(fmt.Sprintf("Meter %d %s Forecast", meterID, target)),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc(legendLabels, charts.PositionRight),
		charts.ThemeOptionFunc(cg.getTheme()),
		charts.WidthOptionFunc(1200),
		charts.HeightOptionFunc(400),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render forecast chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return "", fmt.Errorf("failed to generate chart bytes: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}

// GenerateTariffChart creates a bar chart comparing the hourly
// weighted consumption under both tariff schedules
func (cg *ChartGenerator) GenerateTariffChart(comparison *TariffComparison) (string, error) {
	if comparison == nil || len(comparison.HourlyBreakdown) == 0 {
		return "", fmt.Errorf("no tariff breakdown available")
	}

	labels := make([]string, 0, len(comparison.HourlyBreakdown))
	oldValues := make([]float64, 0, len(comparison.HourlyBreakdown))
	newValues := make([]float64, 0, len(comparison.HourlyBreakdown))
	for _, row := range comparison.HourlyBreakdown {
		labels = append(labels, strconv.Itoa(row.Hour))
		oldValues = append(oldValues, row.OldWeighted)
		newValues = append(newValues, row.NewWeighted)
	}

	p, err := charts.BarRender(
		[][]float64{oldValues, newValues},
		charts.TitleTextOptionFunc(fmt.Sprintf("Meter %d Tariff Comparison", comparison.MeterID)),
		charts.XAxisDataOptionFunc(labels),
		charts.LegendLabelsOptionFunc([]string{"Old tariff (weighted kWh)", "New tariff (weighted kWh)"}, charts.PositionRight),
		charts.ThemeOptionFunc(cg.getTheme()),
		charts.WidthOptionFunc(1200),
		charts.HeightOptionFunc(400),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render tariff chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return "", fmt.Errorf("failed to generate chart bytes: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}

// getTheme returns the chart theme name
func (cg *ChartGenerator) getTheme() string {
	return cg.theme
}
