// Package featureflags implements ports.FeatureFlags over static
// configuration. Flags are loaded once at startup; there is no remote
// provider and no runtime refresh.
package featureflags

import (
	"context"
)

// StaticFlags evaluates flags from an in-memory map.
type StaticFlags struct {
	flags map[string]bool
}

// NewStaticFlags creates a flag evaluator over the given values. A nil map
// is valid and resolves every flag to its default.
func NewStaticFlags(flags map[string]bool) *StaticFlags {
	return &StaticFlags{flags: flags}
}

// IsEnabled implements ports.FeatureFlags.
func (s *StaticFlags) IsEnabled(_ context.Context, flag string, defaultValue bool) bool {
	if v, ok := s.flags[flag]; ok {
		return v
	}

	return defaultValue
}
