package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/eric2969/OR2025-Final/core/engine"
)

// SolverConfig selects the planning strategy and the engine limits.
type SolverConfig struct {
	// Strategy is one of "batched", "full" or "greedy".
	Strategy string `json:"strategy"`
	// BatchSize is the number of periods per window in batched mode.
	BatchSize        int     `json:"batch_size"`
	TimeLimitSeconds float64 `json:"time_limit_seconds"`
	Gap              float64 `json:"gap"`
	// MaxNodes caps the branch-and-bound tree per window; 0 is unlimited.
	MaxNodes     int  `json:"max_nodes"`
	StrictLedger bool `json:"strict_ledger"`
}

// SetDefaults applies sane defaults.
func (c *SolverConfig) SetDefaults() {
	if c.Strategy == "" {
		c.Strategy = "batched"
	}
	c.Strategy = strings.ToLower(c.Strategy)
	if c.BatchSize == 0 {
		c.BatchSize = 12
	}
	if c.TimeLimitSeconds == 0 {
		c.TimeLimitSeconds = 120
	}
}

// Validate checks the strategy name and limits.
func (c SolverConfig) Validate() error {
	switch c.Strategy {
	case "batched", "full", "greedy":
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must be >= 0, got %d", c.BatchSize)
	}
	if c.Strategy == "batched" && c.BatchSize == 0 {
		return fmt.Errorf("batch_size must be positive for strategy batched; use strategy full to solve the horizon as one window")
	}
	if c.TimeLimitSeconds < 0 || c.Gap < 0 || c.MaxNodes < 0 {
		return fmt.Errorf("time_limit_seconds, gap and max_nodes must be >= 0")
	}
	return nil
}

// Limits converts the section into engine limits.
func (c SolverConfig) Limits() engine.Params {
	return engine.Params{
		TimeLimit: time.Duration(c.TimeLimitSeconds * float64(time.Second)),
		Gap:       c.Gap,
		MaxNodes:  c.MaxNodes,
	}
}
