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
	"io"
	"os"
	"sort"
	"time"
)

// ReportData aggregates everything the markdown report covers
type ReportData struct {
	GeneratedAt time.Time
	DataPath    string
	Meters      []*MeterInfo
	Training    map[int]*TrainResult
	Forecasts   map[int]*PredictResult
	Tariffs     *TariffFleetComparison
	Charts      map[int][]string
}

// Reporter generates markdown reports from forecasting results
type Reporter struct {
	logger *Logger
}

// NewReporter creates a new report generator
func NewReporter(logger *Logger) *Reporter {
	return &Reporter{
		logger: logger,
	}
}

// GenerateReport creates a markdown report from the collected results
func (r *Reporter) GenerateReport(data *ReportData, outputPath string) error {
	r.logger.Info("Generating report")

	var writer io.Writer
	if outputPath == "" {
		writer = os.Stdout
	} else {
		file, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer file.Close()
		writer = file
	}

	r.writeHeader(writer, data)
	r.writeMeterOverview(writer, data)
	r.writeTrainingResults(writer, data)
	r.writeForecasts(writer, data)
	r.writeTariffComparison(writer, data)
	r.writeCharts(writer, data)
	r.writeFooter(writer)

	if outputPath != "" {
		r.logger.Info("Report saved", "path", outputPath)
	}

	return nil
}

// writeHeader writes the report header
func (r *Reporter) writeHeader(w io.Writer, data *ReportData) {
	fmt.Fprintf(w, "# Energy Consumption Forecast Report\n\n")
	fmt.Fprintf(w, "**Generated:** %s\n\n", data.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "**Dataset:** %s\n\n", data.DataPath)
	fmt.Fprintf(w, "**wattson version:** %s\n\n", GetVersion())
	fmt.Fprintf(w, "---\n\n")
}

// writeMeterOverview writes the per-meter coverage table
func (r *Reporter) writeMeterOverview(w io.Writer, data *ReportData) {
	if len(data.Meters) == 0 {
		return
	}

	fmt.Fprintf(w, "## 📊 Meters\n\n")
	fmt.Fprintf(w, "| Meter | Records | From | To | Total Import (kWh) | Total Export (kWh) |\n")
	fmt.Fprintf(w, "|-------|---------|------|----|--------------------|--------------------|\n")
	for _, info := range data.Meters {
		fmt.Fprintf(w, "| %d | %d | %s | %s | %.3f | %.3f |\n",
			info.MeterID,
			info.RecordCount,
			info.DateRange.Start.Format("2006-01-02"),
			info.DateRange.End.Format("2006-01-02"),
			info.TotalImport,
			info.TotalExport,
		)
	}
	fmt.Fprintf(w, "\n")
}

// writeTrainingResults writes held-out evaluation metrics per meter
func (r *Reporter) writeTrainingResults(w io.Writer, data *ReportData) {
	if len(data.Training) == 0 {
		return
	}

	fmt.Fprintf(w, "## 🎯 Model Training\n\n")
	fmt.Fprintf(w, "| Meter | Target | MAE (Wh) | RMSE (Wh) | MAPE (%%) | Train | Test |\n")
	fmt.Fprintf(w, "|-------|--------|----------|-----------|----------|-------|------|\n")

	for _, meterID := range sortedMeterKeys(data.Training) {
		result := data.Training[meterID]
		for _, target := range TargetBoth.Targets() {
			outcome := result.Outcome(target)
			if outcome == nil {
				continue
			}
			if outcome.Error != "" {
				fmt.Fprintf(w, "| %d | %s | - | - | - | - | - |\n", meterID, target)
				continue
			}
			fmt.Fprintf(w, "| %d | %s | %.2f | %.2f | %.2f | %d | %d |\n",
				meterID, target,
				outcome.MAE, outcome.RMSE, outcome.MAPE,
				outcome.TrainingSamples, outcome.TestSamples,
			)
		}
	}
	fmt.Fprintf(w, "\n")

	// Failures get their own list so they aren't buried in the table
	for _, meterID := range sortedMeterKeys(data.Training) {
		result := data.Training[meterID]
		for _, target := range TargetBoth.Targets() {
			outcome := result.Outcome(target)
			if outcome != nil && outcome.Error != "" {
				fmt.Fprintf(w, "- ⚠️ Meter %d (%s): %s\n", meterID, target, outcome.Error)
			}
		}
	}
	fmt.Fprintf(w, "\n")
}

// writeForecasts writes the forecast summaries
func (r *Reporter) writeForecasts(w io.Writer, data *ReportData) {
	if len(data.Forecasts) == 0 {
		return
	}

	fmt.Fprintf(w, "## 🔮 Forecasts (next 24 hours)\n\n")
	fmt.Fprintf(w, "| Meter | Target | Total (kWh) | Avg Hourly (kWh) | Max (kWh) | Min (kWh) |\n")
	fmt.Fprintf(w, "|-------|--------|-------------|------------------|-----------|-----------|\n")

	for _, meterID := range sortedForecastKeys(data.Forecasts) {
		result := data.Forecasts[meterID]
		if result.Error != "" {
			fmt.Fprintf(w, "| %d | - | - | - | - | - |\n", meterID)
			continue
		}
		for _, target := range TargetBoth.Targets() {
			outcome := result.Outcome(target)
			if outcome == nil || outcome.ForecastSeries == nil {
				continue
			}
			s := outcome.Summary
			fmt.Fprintf(w, "| %d | %s | %.3f | %.3f | %.3f | %.3f |\n",
				meterID, target,
				s.TotalPredicted, s.AverageHourly, s.MaxPredicted, s.MinPredicted,
			)
		}
	}
	fmt.Fprintf(w, "\n")
}

// writeTariffComparison writes the fleet tariff projection
func (r *Reporter) writeTariffComparison(w io.Writer, data *ReportData) {
	if data.Tariffs == nil {
		return
	}

	summary := data.Tariffs.Summary
	fmt.Fprintf(w, "## 💰 Tariff Comparison\n\n")
	fmt.Fprintf(w, "**Price per kWh:** %.2f\n\n", data.Tariffs.PricePerKWh)
	fmt.Fprintf(w, "- Meters analysed: %d\n", summary.TotalMeters)
	fmt.Fprintf(w, "- New tariff cheaper for: %d\n", summary.NewTariffBetter)
	fmt.Fprintf(w, "- Old tariff cheaper for: %d\n", summary.OldTariffBetter)
	fmt.Fprintf(w, "- Total potential monthly savings: %.3f\n\n", summary.TotalPotentialSavings)

	fmt.Fprintf(w, "| Meter | Old Monthly Cost | New Monthly Cost | Savings | Recommendation |\n")
	fmt.Fprintf(w, "|-------|------------------|------------------|---------|----------------|\n")

	keys := make([]string, 0, len(data.Tariffs.Results))
	for key := range data.Tariffs.Results {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		comparison := data.Tariffs.Results[key]
		if comparison.Error != "" {
			fmt.Fprintf(w, "| %s | - | - | - | %s |\n", key, comparison.Error)
			continue
		}
		fmt.Fprintf(w, "| %s | %.3f | %.3f | %.3f | %s |\n",
			key,
			comparison.OldTariff.MonthlyCost,
			comparison.NewTariff.MonthlyCost,
			comparison.Comparison.SavingsAmount,
			comparison.Comparison.Recommendation,
		)
	}
	fmt.Fprintf(w, "\n")
}

// writeCharts embeds the rendered charts as data URIs
func (r *Reporter) writeCharts(w io.Writer, data *ReportData) {
	if len(data.Charts) == 0 {
		return
	}

	fmt.Fprintf(w, "## 📈 Charts\n\n")
	meters := make([]int, 0, len(data.Charts))
	for meterID := range data.Charts {
		meters = append(meters, meterID)
	}
	sort.Ints(meters)

	for _, meterID := range meters {
		fmt.Fprintf(w, "### Meter %d\n\n", meterID)
		for _, chart := range data.Charts[meterID] {
			fmt.Fprintf(w, "![Meter %d](data:image/png;base64,%s)\n\n", meterID, chart)
		}
	}
}

// writeFooter writes the report footer
func (r *Reporter) writeFooter(w io.Writer) {
	fmt.Fprintf(w, "---\n\n")
	fmt.Fprintf(w, "*Report generated by wattson %s*\n", GetVersion())
}

func sortedMeterKeys(m map[int]*TrainResult) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedForecastKeys(m map[int]*PredictResult) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
