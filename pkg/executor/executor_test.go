package executor

import (
	"context"
	"testing"
	"time"

	"github.com/aegisrail/govkernel/pkg/approval"
	"github.com/aegisrail/govkernel/pkg/registry"
	"github.com/aegisrail/govkernel/pkg/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeps(t *testing.T, tools map[string]registry.ToolDefinition) (Dependencies, *vault.Vault) {
	t.Helper()
	v := vault.New(vault.NewInMemoryBackend())
	_, err := v.Generate(vault.RoleApprover, "pw")
	require.NoError(t, err)

	return Dependencies{
		Registry:    registry.NewStatic(tools),
		Vault:       v,
		NonceDB:     approval.NewInMemoryNonceDB(),
		Driver:      ToolDriverFunc(func(ctx context.Context, tool string, params map[string]interface{}) (interface{}, error) { return "ok", nil }),
		Passphrase:  "pw",
		ApprovalTTL: 5 * time.Minute,
	}, v
}

func TestExecute_HappyPathAllow(t *testing.T) {
	deps, _ := testDeps(t, map[string]registry.ToolDefinition{
		"list_files": {Name: "list_files", RiskLevel: registry.RiskLow, FailMode: registry.FailOpen, OutputSensitivity: registry.SensitivityPublic},
	})
	s := NewSession("session-1", "0xroot", deps, time.Now())
	defer s.Close()

	res, err := s.Execute(context.Background(), ToolCallRequest{ToolName: "list_files", Params: map[string]interface{}{}})
	require.NoError(t, err)
	assert.Equal(t, registry.ActionAllow, res.Action)
	assert.Equal(t, registry.SensitivityPublic, res.OutputSensitivity)
	assert.Equal(t, int64(1), s.State().SequenceNumber)
}

// Scenario 3 (spec §8): blocked tool via path rules with no catch-all.
func TestExecute_BlockedByPathRule(t *testing.T) {
	deps, _ := testDeps(t, map[string]registry.ToolDefinition{
		"read_file": {
			Name: "read_file", RiskLevel: registry.RiskLow, OutputSensitivity: registry.SensitivityInherit,
			PathRules: []registry.PathRule{
				{Glob: "workspace/**", Sensitivity: registry.SensitivityPublic},
				{Glob: "config/**", Sensitivity: registry.SensitivityInternal},
			},
		},
	})
	s := NewSession("session-1", "0xroot", deps, time.Now())
	defer s.Close()

	res, err := s.Execute(context.Background(), ToolCallRequest{
		ToolName: "read_file",
		Params:   map[string]interface{}{"path": "/etc/shadow"},
	})
	require.NoError(t, err)
	assert.Equal(t, registry.ActionBlock, res.Action)
	assert.Contains(t, res.BlockReason, "not allowed")
	assert.Equal(t, int64(0), s.State().SequenceNumber, "blocked calls must not advance sequence_number")
}

// Scenario 4 (spec §8): approval required, then replay after consumption.
func TestExecute_ApprovalThenReplay(t *testing.T) {
	deps, v := testDeps(t, map[string]registry.ToolDefinition{
		"send_email": {Name: "send_email", RiskLevel: registry.RiskHigh, ApprovalRequired: true, OutputSensitivity: registry.SensitivityInternal},
	})
	s := NewSession("session-1", "0xroot", deps, time.Now())
	defer s.Close()

	params := map[string]interface{}{"to": "a@b"}
	res, err := s.Execute(context.Background(), ToolCallRequest{ToolName: "send_email", Params: params})
	require.NoError(t, err)
	require.Equal(t, registry.ActionRequireApproval, res.Action)
	require.NotNil(t, res.ApprovalRequest)

	token, err := approval.Create(approval.CreateOptions{
		ReleaseRootHash: "0xroot",
		ActionHash:      res.ApprovalRequest.ActionHash,
		ToolName:        "send_email",
		SessionID:       "session-1",
		SequenceNumber:  0,
		Summary:         res.ApprovalRequest.Summary,
		Vault:           v,
		Passphrase:      "pw",
	})
	require.NoError(t, err)

	res, err = s.Execute(context.Background(), ToolCallRequest{ToolName: "send_email", Params: params, Token: token})
	require.NoError(t, err)
	require.Equal(t, registry.ActionAllow, res.Action)
	assert.Equal(t, int64(1), s.State().SequenceNumber)

	// Re-presenting the same (now-consumed) token for a fresh call must
	// fail with a replay-tagged reason, even though its sequence_number no
	// longer matches the session's current counter either.
	res, err = s.Execute(context.Background(), ToolCallRequest{ToolName: "send_email", Params: params, Token: token})
	require.NoError(t, err)
	assert.Equal(t, registry.ActionBlock, res.Action)
	assert.Contains(t, res.BlockReason, "replay")
}

// Scenario 7 (spec §8): egress taint escalation.
func TestExecute_EgressAfterSensitiveRequiresApproval(t *testing.T) {
	deps, _ := testDeps(t, map[string]registry.ToolDefinition{
		"read_secret": {Name: "read_secret", RiskLevel: registry.RiskCritical, TaintsSession: true, OutputSensitivity: registry.SensitivitySecret},
		"post_webhook": {Name: "post_webhook", RiskLevel: registry.RiskHigh, Egress: true, DomainAllowlist: []string{"example.com"}, OutputSensitivity: registry.SensitivityInternal},
	})
	s := NewSession("session-1", "0xroot", deps, time.Now())
	defer s.Close()

	res, err := s.Execute(context.Background(), ToolCallRequest{ToolName: "read_secret", Params: map[string]interface{}{}})
	require.NoError(t, err)
	require.Equal(t, registry.ActionAllow, res.Action)
	assert.Equal(t, registry.SensitivitySecret, s.State().CurrentSensitivity)

	res, err = s.Execute(context.Background(), ToolCallRequest{
		ToolName: "post_webhook",
		Params:   map[string]interface{}{"url": "https://example.com/hook"},
	})
	require.NoError(t, err)
	assert.Equal(t, registry.ActionRequireApproval, res.Action)
	assert.Contains(t, res.ApprovalRequest.Summary, "egress")
	assert.Contains(t, res.ApprovalRequest.Summary, "SECRET")
}

func TestExecute_SizeLimitBlocks(t *testing.T) {
	deps, _ := testDeps(t, map[string]registry.ToolDefinition{
		"write_note": {
			Name: "write_note", RiskLevel: registry.RiskLow, OutputSensitivity: registry.SensitivityInternal,
			SizeLimits: []registry.SizeLimit{{Field: "body", MaxBytes: 8}},
		},
	})
	s := NewSession("session-1", "0xroot", deps, time.Now())
	defer s.Close()

	res, err := s.Execute(context.Background(), ToolCallRequest{
		ToolName: "write_note",
		Params:   map[string]interface{}{"body": "this body is far too long"},
	})
	require.NoError(t, err)
	assert.Equal(t, registry.ActionBlock, res.Action)
	assert.Contains(t, res.BlockReason, "max_bytes")
}

func TestExecute_SensitivityNeverDecreases(t *testing.T) {
	deps, _ := testDeps(t, map[string]registry.ToolDefinition{
		"touch_secret":  {Name: "touch_secret", RiskLevel: registry.RiskCritical, TaintsSession: true, OutputSensitivity: registry.SensitivitySecret},
		"touch_public":  {Name: "touch_public", RiskLevel: registry.RiskLow, OutputSensitivity: registry.SensitivityPublic},
	})
	s := NewSession("session-1", "0xroot", deps, time.Now())
	defer s.Close()

	_, err := s.Execute(context.Background(), ToolCallRequest{ToolName: "touch_secret", Params: map[string]interface{}{}})
	require.NoError(t, err)
	_, err = s.Execute(context.Background(), ToolCallRequest{ToolName: "touch_public", Params: map[string]interface{}{}})
	require.NoError(t, err)

	assert.Equal(t, registry.SensitivitySecret, s.State().CurrentSensitivity)
}
