// Package report collects data warnings raised while mapping rows. Warnings
// never abort a run; they are flushed to the phase log.
package report

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gobusters/ectologger"
)

type WarningKind string

const (
	WarningTruncated   WarningKind = "truncated"
	WarningClamped     WarningKind = "clamped"
	WarningNullToEmpty WarningKind = "null_to_empty"
	WarningFKDropped   WarningKind = "fk_dropped"
	WarningUnresolved  WarningKind = "unresolved_value"
	WarningRowSkipped  WarningKind = "row_skipped"
	WarningGeometry    WarningKind = "geometry"
	WarningHook        WarningKind = "hook_failed"
)

type Warning struct {
	Kind    WarningKind `json:"kind"`
	Class   string      `json:"class"`
	Field   string      `json:"field,omitempty"`
	Object  string      `json:"object,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s.%s (%s): %s", w.Kind, w.Class, w.Field, w.Object, w.Message)
}

// Collector gathers warnings for one phase.
type Collector struct {
	mu       sync.Mutex
	warnings []Warning
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Add(w Warning) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, w)
}

func (c *Collector) Addf(kind WarningKind, class, field, object, format string, args ...any) {
	c.Add(Warning{Kind: kind, Class: class, Field: field, Object: object, Message: fmt.Sprintf(format, args...)})
}

func (c *Collector) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.warnings)
}

// Counts returns the number of warnings per kind.
func (c *Collector) Counts() map[WarningKind]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := map[WarningKind]int{}
	for _, w := range c.warnings {
		counts[w.Kind]++
	}
	return counts
}

// Flush writes every collected warning to logger and empties the collector.
func (c *Collector) Flush(ctx context.Context, logger ectologger.Logger) []Warning {
	c.mu.Lock()
	warnings := c.warnings
	c.warnings = nil
	c.mu.Unlock()

	for _, w := range warnings {
		logger.WithContext(ctx).WithFields(map[string]any{
			"kind":   string(w.Kind),
			"class":  w.Class,
			"field":  w.Field,
			"object": w.Object,
		}).Warn(w.Message)
	}
	if len(warnings) > 0 {
		logger.WithContext(ctx).Infof("%d data warnings recorded", len(warnings))
	}
	return warnings
}
