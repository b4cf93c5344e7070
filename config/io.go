package config

import "fmt"

// InputConfig locates the demand table.
type InputConfig struct {
	Path string `json:"path"`
	// Area keeps only the stations of one area when set.
	Area              string `json:"area"`
	AllowZeroCapacity bool   `json:"allow_zero_capacity"`
}

// OutputConfig controls where result files are written.
type OutputConfig struct {
	Dir string `json:"dir"`
	// Prefix is prepended to every file name, e.g. "batched_".
	Prefix string `json:"prefix"`
	// JSON additionally writes the full plan as plan.json.
	JSON bool `json:"json"`
}

// SetDefaults applies sane defaults.
func (c *OutputConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "results"
	}
}

// Validate checks mandatory fields.
func (c OutputConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("output dir is required")
	}
	return nil
}
