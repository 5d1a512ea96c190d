// Package merkle builds Bitcoin-style Merkle trees over receipt hashes for
// batch anchoring (spec §4.7), and generates/verifies inclusion proofs.
package merkle

import (
	"github.com/aegisrail/govkernel/pkg/canonicalize"
)

// Tree holds every level of a constructed Merkle tree, leaves first.
type Tree struct {
	Leaves []string   // leaf hashes ("0x"-prefixed hex), in original order
	Levels [][]string // Levels[0] == duplicated leaves, ..., Levels[last] == [Root]
	Root   string
}

// Build constructs a Tree from an ordered list of receipt hashes.
//
// Odd-count levels duplicate the last element before pairing (spec §4.7).
// A batch of size 0 has root sha256(""); a batch of size 1 has root equal
// to that single hash, with no internal levels.
func Build(hashes []string) *Tree {
	if len(hashes) == 0 {
		return &Tree{Root: canonicalize.SHA256(nil)}
	}
	if len(hashes) == 1 {
		return &Tree{Leaves: hashes, Root: hashes[0]}
	}

	t := &Tree{Leaves: hashes}
	level := append([]string(nil), hashes...)
	for {
		if len(level) > 1 && len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		t.Levels = append(t.Levels, level)
		if len(level) == 1 {
			break
		}
		level = nextLevel(level)
	}
	t.Root = t.Levels[len(t.Levels)-1][0]
	return t
}

// nextLevel pair-hashes adjacent elements: parent = sha256(left_hex || right_hex),
// where || is literal string concatenation of the hex representations.
func nextLevel(level []string) []string {
	next := make([]string, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		next = append(next, pairHash(level[i], level[i+1]))
	}
	return next
}

func pairHash(left, right string) string {
	return canonicalize.SHA256([]byte(left + right))
}
