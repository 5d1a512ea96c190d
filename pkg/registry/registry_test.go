package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRegistry = `
version: "1"
defaults:
  risk_level: MEDIUM
  fail_mode: CLOSED
  approval_required: false
  egress: false
  output_sensitivity: INTERNAL
risk_levels:
  LOW:
    fail_mode: OPEN
    approval_required: false
  HIGH:
    fail_mode: CLOSED
    approval_required: true
  CRITICAL:
    fail_mode: CLOSED
    approval_required: true
tools:
  read_file:
    risk_level: LOW
    output_sensitivity: PUBLIC
    path_rules:
      - glob: "workspace/**"
        sensitivity: PUBLIC
      - glob: "config/**"
        sensitivity: INTERNAL
  send_email:
    risk_level: HIGH
    egress: true
    approval_required: true
  delete_repo:
    risk_level: CRITICAL
`

func writeSampleRegistry(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRegistry), 0600))
	return path
}

func TestLookup_MergesRiskLevelBeneathToolOverride(t *testing.T) {
	path := writeSampleRegistry(t)
	reg, err := Load(path, "")
	require.NoError(t, err)

	def := reg.Lookup("read_file")
	assert.Equal(t, RiskLow, def.RiskLevel)
	assert.Equal(t, FailOpen, def.FailMode)
	assert.False(t, def.ApprovalRequired)
	assert.Equal(t, SensitivityPublic, def.OutputSensitivity)
	assert.Len(t, def.PathRules, 2)
}

func TestLookup_ToolOverrideWinsOverRiskDefault(t *testing.T) {
	path := writeSampleRegistry(t)
	reg, err := Load(path, "")
	require.NoError(t, err)

	def := reg.Lookup("send_email")
	assert.Equal(t, RiskHigh, def.RiskLevel)
	assert.True(t, def.ApprovalRequired)
	assert.True(t, def.Egress)
}

func TestLookup_UnknownToolReturnsDefensiveDefault(t *testing.T) {
	path := writeSampleRegistry(t)
	reg, err := Load(path, "")
	require.NoError(t, err)

	def := reg.Lookup("does_not_exist")
	assert.Equal(t, UnknownToolDefault, def)
	assert.Equal(t, RiskCritical, def.RiskLevel)
	assert.Equal(t, FailClosed, def.FailMode)
	assert.True(t, def.ApprovalRequired)
	assert.False(t, def.Egress)
	assert.Equal(t, SensitivityInternal, def.OutputSensitivity)
}

func TestLookup_DefaultsApplyWhenToolOmitsFields(t *testing.T) {
	path := writeSampleRegistry(t)
	reg, err := Load(path, "")
	require.NoError(t, err)

	def := reg.Lookup("delete_repo")
	assert.Equal(t, RiskCritical, def.RiskLevel)
	assert.True(t, def.ApprovalRequired)
	assert.Equal(t, SensitivityInternal, def.OutputSensitivity)
}

func TestEvaluateCondition_EmptyIsAlwaysTrue(t *testing.T) {
	assert.True(t, EvaluateCondition("", nil, SensitivityInternal))
}

func TestEvaluateCondition_EvaluatesAgainstParams(t *testing.T) {
	expr := `params.amount > 1000.0`
	assert.True(t, EvaluateCondition(expr, map[string]interface{}{"amount": 5000.0}, SensitivityInternal))
	assert.False(t, EvaluateCondition(expr, map[string]interface{}{"amount": 10.0}, SensitivityInternal))
}

func TestEvaluateCondition_MalformedExpressionFailsClosed(t *testing.T) {
	assert.True(t, EvaluateCondition("this is not valid CEL (((", nil, SensitivityInternal))
}

func TestMax_IsMonotonic(t *testing.T) {
	assert.Equal(t, SensitivitySecret, Max(SensitivityInternal, SensitivitySecret))
	assert.Equal(t, SensitivityConfidential, Max(SensitivityConfidential, SensitivityPublic))
}
