package canonicalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_NFCNormalizesEquivalentStrings(t *testing.T) {
	// the precomposed rune vs. the base letter plus a combining acute accent
	precomposed := map[string]interface{}{"name": "café"}
	decomposed := map[string]interface{}{"name": "café"}

	a, err := Canonicalize(precomposed)
	require.NoError(t, err)
	b, err := Canonicalize(decomposed)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestCanonicalize_NFCNormalizesMapKeys(t *testing.T) {
	precomposed := map[string]interface{}{"café": 1}
	decomposed := map[string]interface{}{"café": 1}

	a, err := Canonicalize(precomposed)
	require.NoError(t, err)
	b, err := Canonicalize(decomposed)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestCanonicalize_Sorting(t *testing.T) {
	input := map[string]interface{}{"c": 3, "a": 1, "b": 2}
	b, err := Canonicalize(input)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(b))
}

func TestCanonicalize_RecursiveSorting(t *testing.T) {
	input := map[string]interface{}{
		"z": map[string]interface{}{"y": "foo", "x": "bar"},
		"a": 1,
	}
	b, err := Canonicalize(input)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"z":{"x":"bar","y":"foo"}}`, string(b))
}

func TestCanonicalize_NoHTMLEscaping(t *testing.T) {
	input := map[string]string{"html": "<script>alert('xss')</script> &"}
	b, err := Canonicalize(input)
	require.NoError(t, err)
	assert.Equal(t, `{"html":"<script>alert('xss')</script> &"}`, string(b))
}

func TestCanonicalize_ListsPreserveOrder(t *testing.T) {
	input := []interface{}{3, 1, 2}
	b, err := Canonicalize(input)
	require.NoError(t, err)
	assert.Equal(t, `[3,1,2]`, string(b))
}

func TestCanonicalize_AbsentKeyOmitted(t *testing.T) {
	input := map[string]interface{}{"a": 1, "b": Absent}
	b, err := Canonicalize(input)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(b))
}

func TestCanonicalize_NullBoolNumber(t *testing.T) {
	b, err := Canonicalize(map[string]interface{}{"n": nil, "t": true, "f": false, "x": 42})
	require.NoError(t, err)
	assert.Equal(t, `{"f":false,"n":null,"t":true,"x":42}`, string(b))
}

func TestCanonicalize_RejectsNaN(t *testing.T) {
	_, err := Canonicalize(map[string]interface{}{"x": math.NaN()})
	require.Error(t, err)
}

func TestCanonicalHash_KeyOrderInvariant(t *testing.T) {
	h1, err := CanonicalHash(map[string]interface{}{"a": 1, "b": 2}, nil)
	require.NoError(t, err)
	h2, err := CanonicalHash(map[string]interface{}{"b": 2, "a": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestCanonicalHash_ExcludesKeys(t *testing.T) {
	obj := map[string]interface{}{"a": 1, "receipt_hash": "should-not-count", "signature": "also-excluded"}
	h1, err := CanonicalHash(obj, []string{"receipt_hash", "signature"})
	require.NoError(t, err)

	obj2 := map[string]interface{}{"a": 1, "receipt_hash": "different", "signature": "still-different"}
	h2, err := CanonicalHash(obj2, []string{"receipt_hash", "signature"})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
}

func TestActionHash_InvariantUnderKeyReorder(t *testing.T) {
	h1, err := ActionHash("0xroot", "send_email", map[string]interface{}{"to": "a@b", "subject": "hi"})
	require.NoError(t, err)
	h2, err := ActionHash("0xroot", "send_email", map[string]interface{}{"subject": "hi", "to": "a@b"})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestActionHash_ChangesWithValue(t *testing.T) {
	h1, err := ActionHash("0xroot", "send_email", map[string]interface{}{"to": "a@b"})
	require.NoError(t, err)
	h2, err := ActionHash("0xroot", "send_email", map[string]interface{}{"to": "c@d"})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestActionHash_ChangesWithToolName(t *testing.T) {
	h1, err := ActionHash("0xroot", "send_email", map[string]interface{}{"to": "a@b"})
	require.NoError(t, err)
	h2, err := ActionHash("0xroot", "delete_file", map[string]interface{}{"to": "a@b"})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestSHA256_Format(t *testing.T) {
	h := SHA256([]byte("hello"))
	assert.Len(t, h, 66) // "0x" + 64 hex chars
	assert.Equal(t, "0x", h[:2])
}
