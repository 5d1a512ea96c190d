package executor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aegisrail/govkernel/pkg/approval"
	"github.com/aegisrail/govkernel/pkg/canonicalize"
	"github.com/aegisrail/govkernel/pkg/ledger"
	"github.com/aegisrail/govkernel/pkg/registry"
	"github.com/aegisrail/govkernel/pkg/smuggling"
	"github.com/aegisrail/govkernel/pkg/telemetry"
)

// execute runs the 12-step pipeline of spec.md §4.5, stopping at the first
// terminal outcome. It must only ever be called from the session's own
// loop goroutine.
func (s *Session) execute(ctx context.Context, req ToolCallRequest) (*ToolCallResult, error) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	ctx, span := telemetry.StartToolSpan(ctx, req.ToolName)
	var result *ToolCallResult
	defer func() {
		if result != nil {
			telemetry.EndToolSpan(span, string(result.Action), result.Record.Status)
		} else {
			telemetry.EndToolSpan(span, "", "error")
		}
	}()

	// Step 1: resolve definition.
	def := s.deps.Registry.Lookup(req.ToolName)

	// Step 2: token pre-check, if supplied.
	tokenValid := false
	if req.Token != nil {
		vr := approval.Validate(*req.Token, approval.ValidateParams{
			ExpectedReleaseRootHash: s.state.ReleaseRootHash,
			ExpectedSessionID:       s.state.SessionID,
			ExpectedSequence:        s.state.SequenceNumber,
			ExpectedTool:            req.ToolName,
			Params:                  req.Params,
			NonceDB:                 s.deps.NonceDB,
			NowUnixMilli:            now.UnixMilli(),
		})
		if !vr.Valid {
			result = s.blockResult(strings.Join(vr.Errors, "; "))
			return result, nil
		}
		tokenValid = true
	}

	// CEL condition, when present, decides whether the tool's static
	// approval_required is actually in force for this call (registry
	// §4.4 expansion).
	conditionTrue := registry.EvaluateCondition(def.Condition, req.Params, s.state.CurrentSensitivity)

	// Step 3: approval gate.
	if def.ApprovalRequired && conditionTrue && !tokenValid {
		var err error
		result, err = s.requireApproval(ctx, def, req, now, "tool requires approval")
		return result, err
	}

	// Step 4: egress-after-sensitive gate.
	if def.Egress && registry.Rank(s.state.CurrentSensitivity) > registry.Rank(registry.SensitivityInternal) && !tokenValid {
		reason := fmt.Sprintf("egress requested while session sensitivity is %s", s.state.CurrentSensitivity)
		var err error
		result, err = s.requireApproval(ctx, def, req, now, reason)
		return result, err
	}

	// Step 5: path rule gate.
	var matchedPathSensitivity registry.Sensitivity
	if len(def.PathRules) > 0 {
		if path, ok := req.Params["path"].(string); ok {
			matched := false
			for _, rule := range def.PathRules {
				if matchGlob(rule.Glob, path) {
					matchedPathSensitivity = rule.Sensitivity
					matched = true
					break
				}
			}
			if !matched {
				result = s.blockResult(fmt.Sprintf("Path %q not allowed", path))
				return result, nil
			}
		}
	}

	// Step 6: domain allowlist gate (egress tools with a URL parameter).
	if def.Egress && !tokenValid {
		if rawURL, ok := req.Params["url"].(string); ok {
			u, parseErr := url.Parse(rawURL)
			if parseErr != nil || !hostAllowed(u.Hostname(), def.DomainAllowlist) {
				reason := fmt.Sprintf("domain %q not allowed; effective risk raised to CRITICAL", hostOrRaw(u, rawURL))
				var err error
				result, err = s.requireApproval(ctx, def, req, now, reason)
				return result, err
			}
		}
	}

	// Step 7: size limit gate.
	for _, limit := range def.SizeLimits {
		if v, ok := req.Params[limit.Field].(string); ok && len(v) > limit.MaxBytes {
			result = s.blockResult(fmt.Sprintf("parameters.%s exceeds max_bytes (%d > %d)", limit.Field, len(v), limit.MaxBytes))
			return result, nil
		}
	}

	// Step 8: execute.
	started := now
	output, dispatchErr := s.deps.Driver.Dispatch(ctx, req.ToolName, req.Params)
	completed := time.Now()

	inputHash, _ := canonicalize.CanonicalHash(req.Params, nil)

	if dispatchErr != nil {
		record := ledger.ToolCallRecord{
			ToolName:    req.ToolName,
			InputHash:   inputHash,
			Timestamp:   started,
			DurationMillis: completed.Sub(started).Milliseconds(),
			Status:      "error",
			BlockReason: dispatchErr.Error(),
		}
		s.toolCalls = append(s.toolCalls, record)
		result = &ToolCallResult{Action: registry.ActionBlock, BlockReason: dispatchErr.Error(), Record: record}
		return result, nil
	}

	// Step 9: output sensitivity derivation (§4.5.1).
	outputSensitivity := resolveOutputSensitivity(def, matchedPathSensitivity, s.state.CurrentSensitivity)

	// Step 10: smuggling scan.
	scanCfg := smugglingConfig(def)
	scanResult := smuggling.ScanValue(output, scanCfg)

	outputHash, _ := canonicalize.CanonicalHash(map[string]interface{}{"output": output}, nil)

	// Step 11: taint update (monotonic).
	updated := registry.Max(s.state.CurrentSensitivity, outputSensitivity)
	if updated != s.state.CurrentSensitivity {
		s.state.TaintSource = req.ToolName
	}
	s.state.CurrentSensitivity = updated

	// Step 12: append record; consume token; increment sequence_number.
	record := ledger.ToolCallRecord{
		ToolName:          req.ToolName,
		InputHash:         inputHash,
		OutputHash:        outputHash,
		OutputSensitivity: string(outputSensitivity),
		OutputSize:        outputSize(output),
		Timestamp:         started,
		DurationMillis:    completed.Sub(started).Milliseconds(),
		Status:            "success",
		SmugglingFlags: map[string]bool{
			"size_exceeded":  scanResult.Flags.SizeExceeded,
			"high_entropy":   scanResult.Flags.HighEntropy,
			"secret_pattern": scanResult.Flags.SecretPattern,
		},
	}
	s.toolCalls = append(s.toolCalls, record)

	if tokenValid {
		approvalHash, _ := canonicalize.CanonicalHash(req.Token, nil)
		s.approvals = append(s.approvals, approvalHash)
		if err := approval.Consume(*req.Token, s.deps.NonceDB, now.UnixMilli()); err != nil {
			result = s.blockResult(fmt.Sprintf("replay: nonce consume failed: %v", err))
			return result, nil
		}
	}
	s.state.SequenceNumber++

	result = &ToolCallResult{
		Action:            registry.ActionAllow,
		Output:            output,
		OutputSensitivity: outputSensitivity,
		SmugglingResult:   scanResult,
		Record:            record,
	}
	return result, nil
}

func (s *Session) blockResult(reason string) *ToolCallResult {
	return &ToolCallResult{
		Action:      registry.ActionBlock,
		BlockReason: reason,
		Record:      ledger.ToolCallRecord{Status: "blocked", BlockReason: reason},
	}
}

func (s *Session) requireApproval(ctx context.Context, def registry.ToolDefinition, req ToolCallRequest, now time.Time, summary string) (*ToolCallResult, error) {
	actionHash, err := canonicalize.ActionHash(s.state.ReleaseRootHash, req.ToolName, req.Params)
	if err != nil {
		return nil, fmt.Errorf("executor: compute action hash: %w", err)
	}

	rateOK, rlErr := approval.CheckRateLimit(ctx, s.deps.RateLimiter, s.state.SessionID)
	if rlErr != nil {
		rateOK = true
	}

	ttl := s.deps.ApprovalTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &ToolCallResult{
		Action: registry.ActionRequireApproval,
		ApprovalRequest: &approval.ApprovalRequest{
			ActionHash: actionHash,
			Summary:    summary,
			ExpiresAt:  now.Add(ttl).UnixMilli(),
			ToolName:   req.ToolName,
			SessionID:  s.state.SessionID,
			Sequence:   s.state.SequenceNumber,
			Params:     req.Params,
		},
		RateLimited: !rateOK,
		Record:      ledger.ToolCallRecord{ToolName: req.ToolName, Status: "awaiting_approval"},
	}, nil
}

// resolveOutputSensitivity implements §4.5.1 in the exact priority order
// the spec lists: INHERIT-with-match, then CONTEXT, then taints_session,
// then the explicit (or default INTERNAL) sensitivity.
func resolveOutputSensitivity(def registry.ToolDefinition, matchedPathSensitivity registry.Sensitivity, currentSensitivity registry.Sensitivity) registry.Sensitivity {
	if def.OutputSensitivity == registry.SensitivityInherit && matchedPathSensitivity != "" {
		return matchedPathSensitivity
	}
	if def.OutputSensitivity == registry.SensitivityContext {
		return currentSensitivity
	}
	if def.TaintsSession {
		return registry.SensitivitySecret
	}
	if def.OutputSensitivity == "" {
		return registry.SensitivityInternal
	}
	return def.OutputSensitivity
}

func smugglingConfig(def registry.ToolDefinition) smuggling.Config {
	cfg := smuggling.DefaultConfig()
	if def.Egress {
		cfg = smuggling.EgressConfig()
	}
	if def.Smuggling != nil {
		if def.Smuggling.MaxBytes > 0 {
			cfg.MaxBytes = def.Smuggling.MaxBytes
		}
		if def.Smuggling.EntropyMinLen > 0 {
			cfg.EntropyMinLen = def.Smuggling.EntropyMinLen
		}
		if def.Smuggling.EntropyThresh > 0 {
			cfg.EntropyThresh = def.Smuggling.EntropyThresh
		}
	}
	return cfg
}

func hostAllowed(host string, allowlist []string) bool {
	for _, h := range allowlist {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

func hostOrRaw(u *url.URL, raw string) string {
	if u != nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return raw
}

func outputSize(v interface{}) int {
	if s, ok := v.(string); ok {
		return len(s)
	}
	raw, err := canonicalize.Canonicalize(v)
	if err != nil {
		return 0
	}
	return len(raw)
}
