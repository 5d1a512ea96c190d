package canonicalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// SHA256 hashes bytes and returns "0x"-prefixed lowercase hex, per spec §4.1.
func SHA256(data []byte) string {
	h := sha256.Sum256(data)
	return "0x" + hex.EncodeToString(h[:])
}

// CanonicalHash canonicalizes obj (after stripping excludeKeys from its
// top-level map form) and returns its SHA-256 hash.
//
// excludeKeys lets callers compute a hash that excludes specific top-level
// fields — e.g. a Receipt's own receipt_hash and signature fields, which
// cannot be inputs to their own hash.
func CanonicalHash(obj interface{}, excludeKeys []string) (string, error) {
	generic, err := toGeneric(obj)
	if err != nil {
		return "", err
	}

	if len(excludeKeys) > 0 {
		if m, ok := generic.(map[string]interface{}); ok {
			stripped := make(map[string]interface{}, len(m))
			for k, v := range m {
				stripped[k] = v
			}
			for _, k := range excludeKeys {
				delete(stripped, k)
			}
			generic = stripped
		}
	}

	b, err := Canonicalize(generic)
	if err != nil {
		return "", err
	}
	return SHA256(b), nil
}

// ActionHash computes the binding hash over a release, a tool name, and a
// parameter set: H(release_root_hash || "||" || tool_name || "||" || canonical(params)).
//
// It is invariant under key-reordering of params and changes under any
// addition, deletion, or value change within params.
func ActionHash(releaseRootHash, toolName string, params map[string]interface{}) (string, error) {
	canonParams, err := Canonicalize(toGenericParams(params))
	if err != nil {
		return "", err
	}

	preimage := append([]byte(releaseRootHash), []byte("||")...)
	preimage = append(preimage, []byte(toolName)...)
	preimage = append(preimage, []byte("||")...)
	preimage = append(preimage, canonParams...)

	return SHA256(preimage), nil
}

// toGenericParams normalizes a parameter map (which may contain nested Go
// values rather than decoded JSON values) to the canonicalizer's generic
// value space in one pass, so ActionHash sees exactly the same bytes
// regardless of whether params arrived via json.Unmarshal or were built by
// Go code directly.
func toGenericParams(params map[string]interface{}) map[string]interface{} {
	raw, err := json.Marshal(params)
	if err != nil {
		return params
	}
	var generic map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return params
	}
	return generic
}
