package executor

import (
	"context"
	"time"

	"github.com/aegisrail/govkernel/pkg/approval"
	"github.com/aegisrail/govkernel/pkg/ledger"
	"github.com/aegisrail/govkernel/pkg/ratelimit"
	"github.com/aegisrail/govkernel/pkg/registry"
	"github.com/aegisrail/govkernel/pkg/smuggling"
	"github.com/aegisrail/govkernel/pkg/vault"
)

// ToolDriver dispatches an allowed call to its real side effect. The
// kernel never performs the side effect itself (spec §1 non-goal: "tool
// side-effects... real dispatch is the host's responsibility") — it hands
// the resolved, approved call to whatever host-supplied driver is wired
// in for ToolCallRequest.ToolName.
type ToolDriver interface {
	Dispatch(ctx context.Context, toolName string, params map[string]interface{}) (output interface{}, err error)
}

// ToolDriverFunc adapts a plain function to a ToolDriver.
type ToolDriverFunc func(ctx context.Context, toolName string, params map[string]interface{}) (interface{}, error)

func (f ToolDriverFunc) Dispatch(ctx context.Context, toolName string, params map[string]interface{}) (interface{}, error) {
	return f(ctx, toolName, params)
}

// ToolCallRequest is one call offered to a session's Execute method.
type ToolCallRequest struct {
	ToolName string
	Params   map[string]interface{}
	// Token is the caller-supplied approval token, if any (spec §4.5 step 2).
	Token *approval.ApprovalToken
	Now   time.Time
}

// ToolCallResult is the outcome of one Execute call: Action is exactly one
// of ALLOW, BLOCK, or REQUIRE_APPROVAL, matching spec §4.5's three
// terminal actions.
type ToolCallResult struct {
	Action registry.Action

	// Output/OutputSensitivity are populated only when Action == ALLOW.
	Output            interface{}
	OutputSensitivity registry.Sensitivity
	SmugglingResult   smuggling.Result

	// BlockReason is populated only when Action == BLOCK.
	BlockReason string

	// ApprovalRequest is populated only when Action == REQUIRE_APPROVAL.
	ApprovalRequest *approval.ApprovalRequest
	RateLimited     bool

	Record ledger.ToolCallRecord
}

// Dependencies are the collaborators an Execute pipeline needs, shared
// across every session in a process (spec §5: "shared: Nonce Database,
// Key Vault, Tool Registry, Signed Release").
type Dependencies struct {
	Registry     *registry.Registry
	Vault        *vault.Vault
	NonceDB      approval.NonceDB
	RateLimiter  ratelimit.Limiter
	Driver       ToolDriver
	Passphrase   string // approver passphrase; not read by the Execute pipeline, whose challenges are unsigned
	ApprovalTTL  time.Duration
}
