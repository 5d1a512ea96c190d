//go:build property
// +build property

package canonicalize

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_CanonicalizationPermutationInvariant verifies
// canonicalize(π(m)) == canonicalize(m) for any key permutation π (spec §8).
func TestProperty_CanonicalizationPermutationInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("map canonicalization is key-order invariant", prop.ForAll(
		func(keys []string, values []int) bool {
			m1 := map[string]interface{}{}
			m2 := map[string]interface{}{}
			n := len(keys)
			if len(values) < n {
				n = len(values)
			}
			for i := 0; i < n; i++ {
				if keys[i] == "" {
					continue
				}
				m1[keys[i]] = values[i]
			}
			// same entries as m1, inserted in reverse order
			for i := n - 1; i >= 0; i-- {
				if keys[i] == "" {
					continue
				}
				m2[keys[i]] = m1[keys[i]]
			}
			b1, err1 := Canonicalize(m1)
			b2, err2 := Canonicalize(m2)
			if err1 != nil || err2 != nil {
				return err1 != nil && err2 != nil
			}
			return string(b1) == string(b2)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.Int()),
	))

	properties.TestingRun(t)
}

// TestProperty_ActionHashStability verifies action_hash is stable under
// repeated computation and under key reordering of params, and changes
// whenever a value changes (spec §8).
func TestProperty_ActionHashStability(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("action hash is stable and key-order invariant", prop.ForAll(
		func(root, tool, a, b string) bool {
			params1 := map[string]interface{}{"a": a, "b": b}
			params2 := map[string]interface{}{"b": b, "a": a}

			h1, err1 := ActionHash(root, tool, params1)
			h2, err2 := ActionHash(root, tool, params1)
			h3, err3 := ActionHash(root, tool, params2)
			if err1 != nil || err2 != nil || err3 != nil {
				return false
			}
			if h1 != h2 || h1 != h3 {
				return false
			}

			if a != b {
				params3 := map[string]interface{}{"a": b, "b": b}
				h4, err4 := ActionHash(root, tool, params3)
				if err4 != nil {
					return false
				}
				return h4 != h1
			}
			return true
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
