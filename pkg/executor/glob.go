package executor

import "strings"

// matchGlob implements the path-rule glob dialect spec §4.5 step 5 relies
// on but leaves undefined in detail (see DESIGN.md open question): "*"
// matches one path segment and never crosses a "/", "**" matches zero or
// more whole segments. This is the same two-token dialect used by most
// path-rule engines in the corpus's domain (gitignore-style, Kubernetes
// admission path matchers); no third-party glob library in the example
// pack implements this "**" segment-crossing semantic directly, so it is
// hand-rolled here (see DESIGN.md).
func matchGlob(pattern, path string) bool {
	patSegs := strings.Split(pattern, "/")
	pathSegs := strings.Split(path, "/")
	return matchSegments(patSegs, pathSegs)
}

func matchSegments(pat, path []string) bool {
	if len(pat) == 0 {
		return len(path) == 0
	}

	if pat[0] == "**" {
		if matchSegments(pat[1:], path) {
			return true
		}
		if len(path) == 0 {
			return false
		}
		return matchSegments(pat, path[1:])
	}

	if len(path) == 0 {
		return false
	}
	if !matchSegment(pat[0], path[0]) {
		return false
	}
	return matchSegments(pat[1:], path[1:])
}

// matchSegment matches a single path segment against a pattern segment
// containing "*" wildcards (each "*" matches zero or more characters
// within the segment, never "/").
func matchSegment(pat, seg string) bool {
	parts := strings.Split(pat, "*")
	if len(parts) == 1 {
		return pat == seg
	}

	if !strings.HasPrefix(seg, parts[0]) {
		return false
	}
	seg = seg[len(parts[0]):]
	if !strings.HasSuffix(seg, parts[len(parts)-1]) {
		return false
	}
	if len(parts) > 2 {
		seg = seg[:len(seg)-len(parts[len(parts)-1])]
	} else {
		seg = ""
	}
	middle := parts[1 : len(parts)-1]

	for _, m := range middle {
		idx := strings.Index(seg, m)
		if idx < 0 {
			return false
		}
		seg = seg[idx+len(m):]
	}
	return true
}
