package registry

import (
	"fmt"
	"os"

	"github.com/aegisrail/govkernel/pkg/kernelerr"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Registry is the loaded, immutable tool registry.
type Registry struct {
	doc      Document
	resolved map[string]ToolDefinition // set only by NewStatic
}

// Load reads a YAML registry document from path, validates it against
// schemaPath (a JSON Schema document), and returns an immutable Registry.
// A schema violation or malformed document fails closed with a SchemaError
// rather than silently ignoring unknown fields.
func Load(path, schemaPath string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindSchema, "read registry document", err)
	}

	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindSchema, "parse registry YAML", err)
	}

	if schemaPath != "" {
		if err := validateAgainstSchema(raw, schemaPath); err != nil {
			return nil, err
		}
	}

	return &Registry{doc: doc}, nil
}

func validateAgainstSchema(raw []byte, schemaPath string) error {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaPath)
	if err != nil {
		return kernelerr.Wrap(kernelerr.KindSchema, "compile registry schema", err)
	}

	var generic interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return kernelerr.Wrap(kernelerr.KindSchema, "decode registry for schema validation", err)
	}
	generic = stringifyKeys(generic)

	if err := schema.Validate(generic); err != nil {
		return kernelerr.Wrap(kernelerr.KindSchema, "registry document fails schema validation", err)
	}
	return nil
}

// stringifyKeys converts map[interface{}]interface{} nodes (yaml.v3 decodes
// into map[string]interface{} already for string keys, but nested generic
// decode of arbitrary YAML may still surface non-string keys) into
// map[string]interface{} so jsonschema's validator can walk it.
func stringifyKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = stringifyKeys(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = stringifyKeys(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = stringifyKeys(val)
		}
		return out
	default:
		return v
	}
}

// Lookup resolves toolName to its effective ToolDefinition: registry
// defaults, then risk-level defaults for that tool's risk_level, then the
// tool's own fields, with the tool's explicit fields always winning.
// Absent tools resolve to UnknownToolDefault (spec §4.4).
func (r *Registry) Lookup(toolName string) ToolDefinition {
	if r.resolved != nil {
		if def, ok := r.resolved[toolName]; ok {
			return def
		}
		return UnknownToolDefault
	}

	def, ok := r.doc.Tools[toolName]
	if !ok {
		return UnknownToolDefault
	}

	resolved := ToolDefinition{
		Name:              toolName,
		RiskLevel:         orDefaultRisk(def.RiskLevel, r.doc.Defaults.RiskLevel),
		FailMode:          r.doc.Defaults.FailMode,
		ApprovalRequired:  r.doc.Defaults.ApprovalRequired,
		Egress:            r.doc.Defaults.Egress,
		OutputSensitivity: orDefaultSensitivity(def.OutputSensitivity, r.doc.Defaults.OutputSensitivity),
	}

	if rd, ok := r.doc.RiskLevels[resolved.RiskLevel]; ok {
		resolved.FailMode = rd.FailMode
		resolved.ApprovalRequired = rd.ApprovalRequired
	}

	resolved.FailMode = orDefaultFailMode(def.FailMode, resolved.FailMode)
	if def.ApprovalRequired != nil {
		resolved.ApprovalRequired = *def.ApprovalRequired
	}
	if def.Egress != nil {
		resolved.Egress = *def.Egress
	}
	if def.TaintsSession != nil {
		resolved.TaintsSession = *def.TaintsSession
	}
	resolved.PathRules = def.PathRules
	resolved.DomainAllowlist = def.DomainAllowlist
	resolved.SizeLimits = def.SizeLimits
	resolved.Smuggling = def.Smuggling
	resolved.RateLimit = def.RateLimit
	resolved.Condition = def.Condition

	return resolved
}

// Version returns the registry document's declared version string.
func (r *Registry) Version() string { return r.doc.Version }

// NewStatic builds a Registry directly from already-resolved
// ToolDefinitions, bypassing the YAML/schema load path. Intended for
// programmatic construction (tests, embedding hosts that assemble policy
// from another source) where every field is already fully merged — Lookup
// returns tools verbatim rather than re-applying defaults/risk-levels.
func NewStatic(tools map[string]ToolDefinition) *Registry {
	return &Registry{resolved: tools}
}

func orDefaultRisk(v, fallback RiskLevel) RiskLevel {
	if v == "" {
		return fallback
	}
	return v
}

func orDefaultFailMode(v, fallback FailMode) FailMode {
	if v == "" {
		return fallback
	}
	return v
}

func orDefaultSensitivity(v, fallback Sensitivity) Sensitivity {
	if v == "" {
		return fallback
	}
	return v
}
