package approval

import (
	"context"

	"github.com/aegisrail/govkernel/pkg/ratelimit"
)

// CheckRateLimit reports whether a new approval request for sessionID is
// within approval.max_approvals_per_hour / burst_threshold. It never
// blocks issuance of the approval challenge itself (spec §4.5 step 3 is
// unconditional); the executor consults this separately to decide whether
// to flag the request as rate_limited.
func CheckRateLimit(ctx context.Context, limiter ratelimit.Limiter, sessionID string) (bool, error) {
	if limiter == nil {
		return true, nil
	}
	return limiter.Allow(ctx, sessionID)
}
