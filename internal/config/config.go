// Package config loads default run parameters for the plot front ends
// from a .env file and the environment, the same two-layer precedence
// the driver tooling uses for device credentials.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PlotDefaults holds the front-end defaults that a .env file or the
// environment may supply, so an operator doesn't have to repeat the
// same flags on every invocation.
type PlotDefaults struct {
	OutputDir    string
	MemoryBudget uint64
	DirectIO     bool
	ListenAddr   string
}

var (
	plotDefaults *PlotDefaults
	loaded       bool
)

// LoadPlotDefaults reads .env from the project root (if present) and
// then applies PLOT_* environment variable overrides on top of it.
func LoadPlotDefaults() (*PlotDefaults, error) {
	if plotDefaults != nil && loaded {
		return plotDefaults, nil
	}

	cfg := &PlotDefaults{OutputDir: "."}

	projectRoot := findProjectRoot()
	envPath := filepath.Join(projectRoot, ".env")
	if data, err := os.ReadFile(envPath); err == nil {
		parseEnvFile(string(data), cfg)
	}

	if v := os.Getenv("PLOT_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("PLOT_MEMORY_BUDGET"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.MemoryBudget = n
		}
	}
	if v := os.Getenv("PLOT_DIRECT_IO"); v != "" {
		cfg.DirectIO = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("PLOT_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	plotDefaults = cfg
	loaded = true
	return cfg, nil
}

func parseEnvFile(content string, cfg *PlotDefaults) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "PLOT_OUTPUT_DIR":
			cfg.OutputDir = value
		case "PLOT_MEMORY_BUDGET":
			if n, err := strconv.ParseUint(value, 10, 64); err == nil {
				cfg.MemoryBudget = n
			}
		case "PLOT_DIRECT_IO":
			cfg.DirectIO = value == "1" || strings.EqualFold(value, "true")
		case "PLOT_LISTEN_ADDR":
			cfg.ListenAddr = value
		}
	}
}

func findProjectRoot() string {
	cwd, _ := os.Getwd()
	if _, err := os.Stat(filepath.Join(cwd, ".env")); err == nil {
		return cwd
	}
	for {
		if _, err := os.Stat(filepath.Join(cwd, "go.mod")); err == nil {
			return cwd
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return cwd
		}
		cwd = parent
	}
}
