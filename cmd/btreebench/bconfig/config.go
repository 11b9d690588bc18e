// Package bconfig loads btreebench's run configuration from built-in
// defaults, a YAML file, and environment variables, in that order of
// increasing precedence.
package bconfig

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config controls one benchmark run.
type Config struct {
	// NumKeys is the number of distinct keys loaded before workloads run.
	NumKeys int `mapstructure:"num_keys"`
	// ValueSize is the fixed value width, in bytes, for the tree under
	// test (ValueLayout.Size).
	ValueSize int `mapstructure:"value_size"`
	// Workload selects the access pattern: oltp, olap, reporting, or
	// duplicates.
	Workload string `mapstructure:"workload"`
	// WorkloadOps is how many operations the selected workload runs.
	WorkloadOps int `mapstructure:"workload_ops"`
	// OutputCSV is where per-phase latency/memory samples are written.
	OutputCSV string `mapstructure:"output_csv"`
	// ChartPath is where the rendered latency chart is written; empty
	// skips chart rendering.
	ChartPath string `mapstructure:"chart_path"`
	// ComparePebble, when true, runs the same workload a second time
	// against a Pebble-backed LSM for a latency comparison.
	ComparePebble bool `mapstructure:"compare_pebble"`
	// PebbleDir is the on-disk directory Pebble uses when ComparePebble
	// is set.
	PebbleDir string `mapstructure:"pebble_dir"`
	// LogLevel is the zap level name: debug, info, warn, or error.
	LogLevel string `mapstructure:"log_level"`
}

func defaults() *viper.Viper {
	v := viper.New()
	v.SetDefault("num_keys", 100000)
	v.SetDefault("value_size", 8)
	v.SetDefault("workload", "oltp")
	v.SetDefault("workload_ops", 50000)
	v.SetDefault("output_csv", "btreebench_results.csv")
	v.SetDefault("chart_path", "")
	v.SetDefault("compare_pebble", false)
	v.SetDefault("pebble_dir", "btreebench_pebble")
	v.SetDefault("log_level", "info")
	return v
}

// Load reads configuration from path (if non-empty; a missing or
// unreadable file is an error), overlays BTREEBENCH_-prefixed
// environment variables, and returns the merged result.
func Load(path string) (*Config, error) {
	v := defaults()
	v.SetEnvPrefix("btreebench")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("bconfig: reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("bconfig: unmarshal: %w", err)
	}
	return &cfg, nil
}
