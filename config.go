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
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// Input dataset
	DataPath string `yaml:"data_path"`

	// Model storage
	ModelsDir string `yaml:"models_dir"`

	// Training settings
	MinTrainingRows int `yaml:"min_training_rows"`

	// Tariff settings
	PricePerKWh   float64 `yaml:"price_per_kwh"`
	AnalysisWeeks int     `yaml:"analysis_weeks"`

	// Debugging
	Debug bool `yaml:"debug"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	// Set defaults
	config := &Config{
		DataPath:        "cleaned_filtered_data.csv",
		ModelsDir:       "models",
		MinTrainingRows: 50,
		PricePerKWh:     2.5,
		AnalysisWeeks:   1,
		Debug:           false,
	}

	// If no path provided, return defaults with env var overrides
	if path == "" {
		config.applyEnvironmentVariables()
		return config, nil
	}

	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentVariables()

	return config, nil
}

// applyEnvironmentVariables overrides config with environment variables
func (c *Config) applyEnvironmentVariables() {
	if val := os.Getenv("WATTSON_DATA_PATH"); val != "" {
		c.DataPath = val
	}
	if val := os.Getenv("WATTSON_MODELS_DIR"); val != "" {
		c.ModelsDir = val
	}
	if val := os.Getenv("WATTSON_PRICE_PER_KWH"); val != "" {
		if price, err := strconv.ParseFloat(val, 64); err == nil {
			c.PricePerKWh = price
		}
	}
	if val := os.Getenv("WATTSON_DEBUG"); val == "true" || val == "1" {
		c.Debug = true
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errors []string

	if c.DataPath == "" {
		errors = append(errors, "data_path is required")
	}

	if c.ModelsDir == "" {
		errors = append(errors, "models_dir is required")
	}

	if c.MinTrainingRows < 2 {
		errors = append(errors, "min_training_rows must be at least 2")
	}

	if c.PricePerKWh <= 0 {
		errors = append(errors, "price_per_kwh must be positive")
	}

	if c.AnalysisWeeks < 1 || c.AnalysisWeeks > 52 {
		errors = append(errors, "analysis_weeks must be between 1 and 52")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}
