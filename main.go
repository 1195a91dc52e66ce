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
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

func main() {
	// Define command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	dataPath := flag.String("data", "", "Path to CSV dataset (overrides config)")
	modelsDir := flag.String("models", "", "Directory for stored models (overrides config)")
	mode := flag.String("mode", "report", "Operation: train, predict, history, meters, tariff or report")
	meterID := flag.Int("meter", 0, "Meter ID (0 means all meters where supported)")
	target := flag.String("target", "both", "Target series: import, export or both")
	hours := flag.Int("hours", 24, "Forecast horizon in hours")
	period := flag.String("period", "day", "History period: day, week, month or year")
	ctype := flag.String("type", "import", "Consumption type: import, export or net")
	price := flag.Float64("price", 0, "Price per kWh for tariff comparison (overrides config)")
	outputPath := flag.String("output", "", "Output file for report (default: stdout)")
	jsonLogs := flag.Bool("json", false, "Emit JSON-formatted logs")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("wattson %s\n", GetVersion())
		os.Exit(0)
	}

	// Initialize logger
	newLogger := NewLogger
	if *jsonLogs {
		newLogger = NewJSONLogger
	}
	logger := newLogger(*debug)
	logger.Info("Starting wattson", "version", GetVersion())

	// Load configuration
	config, err := LoadConfig(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Override with command-line flags
	if *dataPath != "" {
		config.DataPath = *dataPath
	}
	if *modelsDir != "" {
		config.ModelsDir = *modelsDir
	}
	if *price > 0 {
		config.PricePerKWh = *price
	}
	if *debug {
		config.Debug = true
		logger = newLogger(true)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Load the dataset
	logger.Info("Loading dataset", "path", config.DataPath)
	dataset, err := LoadDataset(config.DataPath)
	if err != nil {
		logger.Error("Failed to load dataset", "error", err)
		os.Exit(1)
	}
	logger.LogDataLoad(config.DataPath, len(dataset.Readings), len(dataset.Meters()))

	// Initialize model storage
	store, err := NewFileBundleStore(config.ModelsDir, logger)
	if err != nil {
		logger.Error("Failed to initialize model storage", "error", err)
		os.Exit(1)
	}
	registry := NewBundleRegistry(store)

	forecaster := NewForecaster(dataset, registry, config, logger)
	analyzer := NewConsumptionAnalyzer(dataset, logger)
	tariffs := NewTariffCalculator(dataset, config, logger)
	api := NewEnergyAPI(dataset, forecaster, analyzer, tariffs, logger)

	switch *mode {
	case "train":
		var response *APIResponse
		if *meterID == 0 {
			response = api.TrainAllMeters(Target(*target))
		} else {
			response = api.TrainModel(*meterID, Target(*target))
		}
		printResponse(response, logger)

	case "predict":
		if *meterID == 0 {
			logger.Error("A meter ID is required for prediction")
			os.Exit(1)
		}
		printResponse(api.Forecast(*meterID, *hours, Target(*target)), logger)

	case "history":
		if *meterID == 0 {
			logger.Error("A meter ID is required for history")
			os.Exit(1)
		}
		printResponse(api.HistoricalConsumption(*meterID, *period, *ctype), logger)

	case "meters":
		if *meterID == 0 {
			printResponse(api.Meters(), logger)
		} else {
			printResponse(api.MeterDetails(*meterID), logger)
		}

	case "tariff":
		if *meterID == 0 {
			printResponse(api.CompareAllTariffs(), logger)
		} else {
			printResponse(api.CompareTariffs(*meterID), logger)
		}

	case "report":
		if err := generateReport(dataset, api, analyzer, tariffs, config, logger, *outputPath, Target(*target)); err != nil {
			logger.Error("Failed to generate report", "error", err)
			os.Exit(1)
		}

	default:
		logger.Error("Unknown mode", "mode", *mode)
		os.Exit(1)
	}

	logger.Info("Completed successfully")
}

// printResponse writes an API envelope as indented JSON to stdout
func printResponse(response *APIResponse, logger *Logger) {
	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		logger.Error("Failed to encode response", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
	if !response.Success {
		os.Exit(1)
	}
}

// generateReport trains any missing models, forecasts every meter and
// writes the full markdown report.
func generateReport(dataset *Dataset, api *EnergyAPI, analyzer *ConsumptionAnalyzer, tariffs *TariffCalculator, config *Config, logger *Logger, outputPath string, target Target) error {
	data := &ReportData{
		GeneratedAt: time.Now(),
		DataPath:    config.DataPath,
		Training:    make(map[int]*TrainResult),
		Forecasts:   make(map[int]*PredictResult),
		Charts:      make(map[int][]string),
	}

	charts := NewChartGenerator()
	data.Tariffs = tariffs.CompareAllMeters()

	for _, meterID := range dataset.Meters() {
		info, err := dataset.MeterDetails(meterID)
		if err != nil {
			continue
		}
		data.Meters = append(data.Meters, info)

		response := api.TrainModel(meterID, target)
		if result, ok := response.Data.(*TrainResult); ok {
			data.Training[meterID] = result
		}

		response = api.Forecast(meterID, 24, target)
		if result, ok := response.Data.(*PredictResult); ok {
			data.Forecasts[meterID] = result
		}

		data.Charts[meterID] = renderMeterCharts(meterID, dataset, analyzer, charts, data, logger)
	}

	reporter := NewReporter(logger)
	return reporter.GenerateReport(data, outputPath)
}

// renderMeterCharts renders every chart the report embeds for one
// meter, skipping whichever cannot be produced.
func renderMeterCharts(meterID int, dataset *Dataset, analyzer *ConsumptionAnalyzer, charts *ChartGenerator, data *ReportData, logger *Logger) []string {
	var rendered []string

	if dates, totals, err := analyzer.DailyTotals(meterID); err == nil {
		if chart, err := charts.GenerateDailyConsumptionChart(meterID, dates, totals); err == nil {
			rendered = append(rendered, chart)
		} else {
			logger.Warn("Failed to render daily chart", "meter", meterID, "error", err)
		}
	}

	if profile, err := analyzer.HourlyProfile(meterID); err == nil {
		if chart, err := charts.GenerateHourlyProfileChart(meterID, profile); err == nil {
			rendered = append(rendered, chart)
		} else {
			logger.Warn("Failed to render hourly profile chart", "meter", meterID, "error", err)
		}
	}

	if result, ok := data.Forecasts[meterID]; ok && result.Import != nil && result.Import.ForecastSeries != nil {
		readings := dataset.ForMeter(meterID)
		if len(readings) > 48 {
			readings = readings[len(readings)-48:]
		}
		if chart, err := charts.GenerateForecastChart(meterID, TargetImport, readings, result.Import.ForecastSeries); err == nil {
			rendered = append(rendered, chart)
		} else {
			logger.Warn("Failed to render forecast chart", "meter", meterID, "error", err)
		}
	}

	if data.Tariffs != nil {
		if comparison, ok := data.Tariffs.Results[strconv.Itoa(meterID)]; ok && comparison.Error == "" {
			if chart, err := charts.GenerateTariffChart(comparison); err == nil {
				rendered = append(rendered, chart)
			} else {
				logger.Warn("Failed to render tariff chart", "meter", meterID, "error", err)
			}
		}
	}

	return rendered
}
