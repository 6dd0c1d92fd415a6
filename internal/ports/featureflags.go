package ports

import (
	"context"
)

// FeatureFlags is the contract for runtime feature gating. Adapters may be
// backed by static configuration or a remote flag service. Evaluation must
// be cheap and must never fail: a missing flag resolves to the caller's
// default.
type FeatureFlags interface {
	// IsEnabled checks a boolean flag. Returns defaultValue when the flag
	// is not defined.
	IsEnabled(ctx context.Context, flag string, defaultValue bool) bool
}
