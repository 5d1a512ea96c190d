// Package canonicalize implements the kernel's deterministic JSON
// canonicalization and hashing (spec §4.1). This is a project-defined
// canonical form, not RFC 8785 — do not substitute a standard JCS library
// without re-verifying every test vector (see DESIGN.md).
package canonicalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/aegisrail/govkernel/pkg/kernelerr"
	"golang.org/x/text/unicode/norm"
)

// absentType is the sentinel for "this key is not present". A map value
// equal to Absent is omitted entirely from canonical output.
type absentType struct{}

// Absent marks a map key for omission from the canonical form.
var Absent = absentType{}

// Canonicalize serializes v into the unique canonical byte sequence.
//
// v may be a Go native value (nil, bool, number, string, []interface{},
// map[string]interface{}) or any JSON-tagged struct/slice/map — structs are
// first passed through a standard json.Marshal so field tags are honored,
// then re-walked in canonical form.
func Canonicalize(v interface{}) ([]byte, error) {
	generic, err := toGeneric(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// toGeneric normalizes v into the canonicalizer's generic value space.
// map[string]interface{} and []interface{} are walked recursively so that
// a caller may freely mix already-generic values (including the Absent
// sentinel) with nested Go-native structs/slices at any depth within a
// hand-built map — every non-generic value is normalized via a
// marshal/decode round trip so struct tags and embedded types resolve the
// same way json.Marshal would see them.
func toGeneric(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case nil, bool, string, json.Number:
		return v, nil
	case absentType:
		return v, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			g, err := toGeneric(val)
			if err != nil {
				return nil, err
			}
			out[k] = g
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			g, err := toGeneric(val)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindEncodingError, "pre-marshal failed", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindEncodingError, "intermediate decode failed", err)
	}
	return generic, nil
}

func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		return writeNumber(buf, t)
	case float64:
		return writeNumber(buf, json.Number(strconv.FormatFloat(t, 'g', -1, 64)))
	case int:
		buf.WriteString(strconv.Itoa(t))
		return nil
	case string:
		writeString(buf, normalizeString(t))
		return nil
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]interface{}:
		return writeMap(buf, t)
	default:
		return kernelerr.New(kernelerr.KindEncodingError, fmt.Sprintf("unsupported type %T", v))
	}
}

func writeMap(buf *bytes.Buffer, m map[string]interface{}) error {
	type entry struct {
		original   string
		normalized string
	}
	entries := make([]entry, 0, len(m))
	for k, val := range m {
		if _, absent := val.(absentType); absent {
			continue
		}
		entries = append(entries, entry{original: k, normalized: normalizeString(k)})
	}
	sort.Slice(entries, func(i, j int) bool {
		return lessByCodePoint(entries[i].normalized, entries[j].normalized)
	})

	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, e.normalized)
		buf.WriteByte(':')
		if err := writeCanonical(buf, m[e.original]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// lessByCodePoint orders strings by Unicode code point, which for valid
// UTF-8 coincides with byte-wise ordering.
func lessByCodePoint(a, b string) bool {
	return a < b
}

// normalizeString applies Unicode NFC normalization before hashing or
// signing so that two byte-distinct but visually/semantically identical
// representations of the same string (e.g. a precomposed vs. combining
// accent sequence) always canonicalize to the same bytes. Malformed UTF-8
// is passed through unchanged rather than rejected here; writeString's
// underlying json.Encoder already handles invalid runes consistently.
func normalizeString(s string) string {
	return norm.NFC.String(s)
}

func writeNumber(buf *bytes.Buffer, n json.Number) error {
	f, err := n.Float64()
	if err == nil {
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return kernelerr.New(kernelerr.KindEncodingError, "Infinity/NaN is not representable")
		}
	}
	buf.WriteString(n.String())
	return nil
}

// writeString builds a fresh json.Encoder per call; encoding/json's
// Encoder is the only stdlib path that can disable HTML escaping, which
// RFC-8785-style canonicalization (and this project-defined variant)
// requires so the canonical bytes match the literal input characters.
func writeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // encoding a string value cannot fail
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
}
