// Package registry implements the Tool Registry (spec §4.4): a structured,
// schema-validated document of ToolDefinitions with risk-level defaults
// merged beneath per-tool overrides, and a defensive default for unknown
// tools.
package registry

// Sensitivity is the totally ordered PUBLIC < INTERNAL < CONFIDENTIAL <
// SECRET enumeration of spec §3.
type Sensitivity string

const (
	SensitivityPublic       Sensitivity = "PUBLIC"
	SensitivityInternal     Sensitivity = "INTERNAL"
	SensitivityConfidential Sensitivity = "CONFIDENTIAL"
	SensitivitySecret       Sensitivity = "SECRET"

	// SensitivityInherit and SensitivityContext are the two output_sensitivity
	// sentinel values resolved at call time per spec §4.5.1, not ordered
	// sensitivities in their own right.
	SensitivityInherit Sensitivity = "INHERIT"
	SensitivityContext Sensitivity = "CONTEXT"
)

var sensitivityRank = map[Sensitivity]int{
	SensitivityPublic:       0,
	SensitivityInternal:     1,
	SensitivityConfidential: 2,
	SensitivitySecret:       3,
}

// Rank returns s's position in the total order, or -1 if s is not a ranked
// sensitivity (e.g. INHERIT/CONTEXT, which must be resolved before ranking).
func Rank(s Sensitivity) int {
	if r, ok := sensitivityRank[s]; ok {
		return r
	}
	return -1
}

// Max returns the higher of a and b in the total order.
func Max(a, b Sensitivity) Sensitivity {
	if Rank(b) > Rank(a) {
		return b
	}
	return a
}

// RiskLevel is {LOW, MEDIUM, HIGH, CRITICAL}.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// FailMode is {OPEN, OPEN_WITH_WARNING, CLOSED}.
type FailMode string

const (
	FailOpen            FailMode = "OPEN"
	FailOpenWithWarning FailMode = "OPEN_WITH_WARNING"
	FailClosed          FailMode = "CLOSED"
)

// Action is {ALLOW, BLOCK, REQUIRE_APPROVAL}.
type Action string

const (
	ActionAllow            Action = "ALLOW"
	ActionBlock            Action = "BLOCK"
	ActionRequireApproval  Action = "REQUIRE_APPROVAL"
)

// PathRule is one `{glob, sensitivity}` entry of a tool's path_rules.
type PathRule struct {
	Glob        string      `json:"glob" yaml:"glob"`
	Sensitivity Sensitivity `json:"sensitivity" yaml:"sensitivity"`
}

// SizeLimit caps one named parameter field's byte length.
type SizeLimit struct {
	Field    string `json:"field" yaml:"field"`
	MaxBytes int    `json:"max_bytes" yaml:"max_bytes"`
}

// SmugglingThresholds overrides the smuggling scanner's defaults for one
// tool's output.
type SmugglingThresholds struct {
	MaxBytes      int     `json:"max_bytes,omitempty" yaml:"max_bytes,omitempty"`
	EntropyMinLen int     `json:"entropy_min_length,omitempty" yaml:"entropy_min_length,omitempty"`
	EntropyThresh float64 `json:"entropy_threshold,omitempty" yaml:"entropy_threshold,omitempty"`
}

// RateLimit overrides the approval rate limiter for one tool.
type RateLimit struct {
	MaxPerHour int `json:"max_per_hour,omitempty" yaml:"max_per_hour,omitempty"`
}

// ToolDefinition is a tool's fully resolved governance contract, as
// returned by Registry.Lookup: defaults and risk-level defaults already
// merged beneath any per-tool override.
type ToolDefinition struct {
	Name              string               `json:"name" yaml:"name"`
	RiskLevel         RiskLevel            `json:"risk_level" yaml:"risk_level"`
	FailMode          FailMode             `json:"fail_mode" yaml:"fail_mode"`
	ApprovalRequired  bool                 `json:"approval_required" yaml:"approval_required"`
	Egress            bool                 `json:"egress" yaml:"egress"`
	OutputSensitivity Sensitivity          `json:"output_sensitivity" yaml:"output_sensitivity"`
	TaintsSession     bool                 `json:"taints_session" yaml:"taints_session"`
	PathRules         []PathRule           `json:"path_rules,omitempty" yaml:"path_rules,omitempty"`
	DomainAllowlist   []string             `json:"domain_allowlist,omitempty" yaml:"domain_allowlist,omitempty"`
	SizeLimits        []SizeLimit          `json:"size_limits,omitempty" yaml:"size_limits,omitempty"`
	Smuggling         *SmugglingThresholds `json:"smuggling,omitempty" yaml:"smuggling,omitempty"`
	RateLimit         *RateLimit           `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	// Condition is an optional CEL expression evaluated over the request's
	// parameters and the session's current sensitivity; a tool with no
	// Condition behaves exactly as spec.md §4.4/§4.5 describe.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// toolOverride is the as-authored, per-tool document shape. Boolean fields
// are pointers so an unset override is distinguishable from an explicit
// false when merging beneath defaults and risk-level defaults.
type toolOverride struct {
	RiskLevel         RiskLevel            `json:"risk_level" yaml:"risk_level"`
	FailMode          FailMode             `json:"fail_mode" yaml:"fail_mode"`
	ApprovalRequired  *bool                `json:"approval_required,omitempty" yaml:"approval_required,omitempty"`
	Egress            *bool                `json:"egress,omitempty" yaml:"egress,omitempty"`
	OutputSensitivity Sensitivity          `json:"output_sensitivity" yaml:"output_sensitivity"`
	TaintsSession     *bool                `json:"taints_session,omitempty" yaml:"taints_session,omitempty"`
	PathRules         []PathRule           `json:"path_rules,omitempty" yaml:"path_rules,omitempty"`
	DomainAllowlist   []string             `json:"domain_allowlist,omitempty" yaml:"domain_allowlist,omitempty"`
	SizeLimits        []SizeLimit          `json:"size_limits,omitempty" yaml:"size_limits,omitempty"`
	Smuggling         *SmugglingThresholds `json:"smuggling,omitempty" yaml:"smuggling,omitempty"`
	RateLimit         *RateLimit           `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	Condition         string               `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// riskDefaults is the {fail_mode, approval_required} pair merged beneath a
// tool's own fields for a given risk level.
type riskDefaults struct {
	FailMode         FailMode `json:"fail_mode" yaml:"fail_mode"`
	ApprovalRequired bool     `json:"approval_required" yaml:"approval_required"`
}

// Defaults is the registry-wide fallback block applied before risk-level
// and per-tool overrides.
type Defaults struct {
	RiskLevel         RiskLevel   `json:"risk_level" yaml:"risk_level"`
	FailMode          FailMode    `json:"fail_mode" yaml:"fail_mode"`
	ApprovalRequired  bool        `json:"approval_required" yaml:"approval_required"`
	Egress            bool        `json:"egress" yaml:"egress"`
	OutputSensitivity Sensitivity `json:"output_sensitivity" yaml:"output_sensitivity"`
}

// Document is the on-disk/YAML shape of a tool registry.
type Document struct {
	Version    string                     `json:"version" yaml:"version"`
	Defaults   Defaults                   `json:"defaults" yaml:"defaults"`
	RiskLevels map[RiskLevel]riskDefaults `json:"risk_levels" yaml:"risk_levels"`
	Tools      map[string]toolOverride    `json:"tools" yaml:"tools"`
}

// UnknownToolDefault is the defensive default returned by Lookup for any
// tool_name absent from the registry (spec §4.4).
var UnknownToolDefault = ToolDefinition{
	Name:              "",
	RiskLevel:         RiskCritical,
	FailMode:          FailClosed,
	ApprovalRequired:  true,
	Egress:            false,
	OutputSensitivity: SensitivityInternal,
}
