// Package smuggling implements the smuggling/secret-leak defense (spec
// §4.8): a size check, a sliding-window Shannon entropy scan, and a fixed
// catalog of secret-pattern regular expressions. No third-party dependency
// is warranted for regex/entropy scanning over a string — see DESIGN.md.
package smuggling

import "regexp"

// namedPattern is one entry in the secret catalog.
type namedPattern struct {
	name string
	re   *regexp.Regexp
}

// catalog is the fixed, ordered set of secret-pattern detectors.
var catalog = []namedPattern{
	{"aws_access_key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"aws_secret_key", regexp.MustCompile(`(?i)aws_secret_access_key\s*[:=]\s*['"]?[A-Za-z0-9/+=]{40}['"]?`)},
	{"github_token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,}`)},
	{"gitlab_token", regexp.MustCompile(`glpat-[A-Za-z0-9\-_]{20,}`)},
	{"slack_token", regexp.MustCompile(`xox[baprs]-[A-Za-z0-9-]{10,}`)},
	{"stripe_key", regexp.MustCompile(`sk_(live|test)_[A-Za-z0-9]{16,}`)},
	{"basic_auth_header", regexp.MustCompile(`(?i)\bBasic\s+[A-Za-z0-9+/=]{8,}`)},
	{"bearer_token", regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-_.~+/=]{8,}`)},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`)},
	{"pem_private_key", regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH |DSA |)PRIVATE KEY-----`)},
	{"url_userinfo", regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.\-]*://[^\s/:@]+:[^\s/@]+@[^\s/]+`)},
	{"postgres_uri", regexp.MustCompile(`postgres(?:ql)?://[^\s]+`)},
	{"mongodb_uri", regexp.MustCompile(`mongodb(?:\+srv)?://[^\s]+`)},
	{"redis_uri", regexp.MustCompile(`redis://[^\s]+`)},
	{"ssh_public_key", regexp.MustCompile(`ssh-(rsa|ed25519|dss|ecdsa[a-zA-Z0-9-]*)\s+[A-Za-z0-9+/]{20,}={0,2}`)},
	{"env_assignment", regexp.MustCompile(`(?im)^[A-Z][A-Z0-9_]*_(?:KEY|SECRET|TOKEN|PASSWORD)\s*=\s*\S+`)},
}

// Match is one occurrence of a named pattern within a scanned string.
type Match struct {
	Pattern string
	Start   int
	End     int
	Text    string
}

// scanPatterns runs the full catalog against s and de-duplicates
// overlapping matches, keeping the longest one at each overlapping span.
func scanPatterns(s string) []Match {
	var all []Match
	for _, p := range catalog {
		for _, loc := range p.re.FindAllStringIndex(s, -1) {
			all = append(all, Match{Pattern: p.name, Start: loc[0], End: loc[1], Text: s[loc[0]:loc[1]]})
		}
	}
	return dedupeOverlaps(all)
}

// dedupeOverlaps keeps, among any set of mutually-overlapping matches, only
// the longest; ties keep the earliest-starting match.
func dedupeOverlaps(matches []Match) []Match {
	if len(matches) <= 1 {
		return matches
	}

	sortMatches(matches)

	var out []Match
	for _, m := range matches {
		overlapped := false
		for i, kept := range out {
			if overlaps(m, kept) {
				overlapped = true
				if length(m) > length(kept) {
					out[i] = m
				}
				break
			}
		}
		if !overlapped {
			out = append(out, m)
		}
	}
	sortMatches(out)
	return out
}

func overlaps(a, b Match) bool {
	return a.Start < b.End && b.Start < a.End
}

func length(m Match) int { return m.End - m.Start }

func sortMatches(matches []Match) {
	for i := 1; i < len(matches); i++ {
		j := i
		for j > 0 && matches[j-1].Start > matches[j].Start {
			matches[j-1], matches[j] = matches[j], matches[j-1]
			j--
		}
	}
}

// Redact replaces each matched span in s with prefix+"****"+suffix, where
// prefix/suffix are the first and last two characters of the match.
func Redact(s string) string {
	matches := scanPatterns(s)
	if len(matches) == 0 {
		return s
	}

	var out []byte
	last := 0
	for _, m := range matches {
		out = append(out, s[last:m.Start]...)
		out = append(out, redactOne(m.Text)...)
		last = m.End
	}
	out = append(out, s[last:]...)
	return string(out)
}

func redactOne(text string) string {
	if len(text) <= 4 {
		return "****"
	}
	return text[:2] + "****" + text[len(text)-2:]
}
