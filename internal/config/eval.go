package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is the path to the canonical evaluation defaults file.
const DefaultConfigPath = "config/eval.defaults.json"

// EvalConfig is the on-disk evaluation configuration. Every field is optional;
// the Get* accessors supply the protocol defaults for anything left unset, so
// partial files are safe.
type EvalConfig struct {
	// Evaluation
	Metrics        []string  `json:"metrics,omitempty"`
	Classwise      *bool     `json:"classwise,omitempty"`
	ProposalNums   []int     `json:"proposal_nums,omitempty"`
	IoUThresholds  []float64 `json:"iou_thrs,omitempty"`
	MetricItems    []string  `json:"metric_items,omitempty"`
	JSONFilePrefix *string   `json:"jsonfile_prefix,omitempty"`

	// Dataset
	FilterEmptyGT *bool   `json:"filter_empty_gt,omitempty"`
	MinSize       *int    `json:"min_size,omitempty"`
	SegSuffix     *string `json:"seg_suffix,omitempty"`
	TestMode      *bool   `json:"test_mode,omitempty"`

	// Outputs
	PlotsDir *string `json:"plots_dir,omitempty"`
	DBPath   *string `json:"db_path,omitempty"`
}

var knownMetrics = map[string]bool{"bbox": true, "segm": true, "proposal": true, "proposal_fast": true}

// LoadEvalConfig loads an EvalConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadEvalConfig(path string) (*EvalConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &EvalConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file cannot
// be loaded, intended for test setup.
func MustLoadDefaultConfig() *EvalConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadEvalConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *EvalConfig) Validate() error {
	for _, m := range c.Metrics {
		if !knownMetrics[m] {
			return fmt.Errorf("metric %q is not supported", m)
		}
	}
	for _, n := range c.ProposalNums {
		if n <= 0 {
			return fmt.Errorf("proposal_nums must be positive, got %d", n)
		}
	}
	for _, t := range c.IoUThresholds {
		if t < 0 || t > 1 {
			return fmt.Errorf("iou_thrs must be between 0 and 1, got %f", t)
		}
	}
	if c.MinSize != nil && *c.MinSize < 0 {
		return fmt.Errorf("min_size must be non-negative, got %d", *c.MinSize)
	}
	if c.SegSuffix != nil && *c.SegSuffix != "" && !strings.HasPrefix(*c.SegSuffix, ".") {
		return fmt.Errorf("seg_suffix must start with '.', got %q", *c.SegSuffix)
	}
	return nil
}

// GetMetrics returns the metric families to evaluate or the default.
func (c *EvalConfig) GetMetrics() []string {
	if len(c.Metrics) == 0 {
		return []string{"bbox"}
	}
	return append([]string(nil), c.Metrics...)
}

// GetClasswise returns the classwise value or the default.
func (c *EvalConfig) GetClasswise() bool {
	if c.Classwise == nil {
		return false
	}
	return *c.Classwise
}

// GetProposalNums returns the max-detections list or the default.
func (c *EvalConfig) GetProposalNums() []int {
	if len(c.ProposalNums) == 0 {
		return []int{100, 300, 1000}
	}
	return append([]int(nil), c.ProposalNums...)
}

// GetIoUThresholds returns the configured IoU thresholds, or nil to use the
// evaluator's 0.50:0.95 ladder.
func (c *EvalConfig) GetIoUThresholds() []float64 {
	if len(c.IoUThresholds) == 0 {
		return nil
	}
	return append([]float64(nil), c.IoUThresholds...)
}

// GetMetricItems returns the requested summary items, or nil for the
// per-family defaults.
func (c *EvalConfig) GetMetricItems() []string {
	if len(c.MetricItems) == 0 {
		return nil
	}
	return append([]string(nil), c.MetricItems...)
}

// GetJSONFilePrefix returns the artifact prefix; empty means a scratch directory.
func (c *EvalConfig) GetJSONFilePrefix() string {
	if c.JSONFilePrefix == nil {
		return ""
	}
	return *c.JSONFilePrefix
}

// GetFilterEmptyGT returns the filter_empty_gt value or the default.
func (c *EvalConfig) GetFilterEmptyGT() bool {
	if c.FilterEmptyGT == nil {
		return true
	}
	return *c.FilterEmptyGT
}

// GetMinSize returns the min_size value or the default.
func (c *EvalConfig) GetMinSize() int {
	if c.MinSize == nil {
		return 32
	}
	return *c.MinSize
}

// GetSegSuffix returns the seg_suffix value or the default.
func (c *EvalConfig) GetSegSuffix() string {
	if c.SegSuffix == nil || *c.SegSuffix == "" {
		return ".png"
	}
	return *c.SegSuffix
}

// GetTestMode returns the test_mode value or the default. Evaluation runs
// normally keep every image, so the default is true.
func (c *EvalConfig) GetTestMode() bool {
	if c.TestMode == nil {
		return true
	}
	return *c.TestMode
}

// GetPlotsDir returns the plot output directory; empty disables plots.
func (c *EvalConfig) GetPlotsDir() string {
	if c.PlotsDir == nil {
		return ""
	}
	return *c.PlotsDir
}

// GetDBPath returns the run history database path; empty disables it.
func (c *EvalConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}
