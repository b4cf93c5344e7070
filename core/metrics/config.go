package metrics

import (
	"fmt"

	"github.com/eric2969/OR2025-Final/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// Listen exposes the Prometheus registry over HTTP while a command runs
	// when non-empty, e.g. ":9102".
	Listen string `json:"listen"`
}

// Validate checks that every sink names a type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics sink %d has no type", i)
		}
	}
	return nil
}
