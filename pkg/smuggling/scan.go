package smuggling

import "github.com/aegisrail/govkernel/pkg/canonicalize"

// Config tunes the thresholds of one scan. Zero values fall back to the
// spec's defaults.
type Config struct {
	MaxBytes       int     // default 10000; stricter (e.g. 5000) for egress-capable tools
	EntropyMinLen  int     // default 20
	EntropyThresh  float64 // default 4.5 bits/char
	EgressCapable  bool    // tightens defaults when true
}

// DefaultConfig returns the non-egress thresholds of spec §4.8.
func DefaultConfig() Config {
	return Config{MaxBytes: 10000, EntropyMinLen: 20, EntropyThresh: 4.5}
}

// EgressConfig returns the stricter thresholds applied to egress-capable
// tool output.
func EgressConfig() Config {
	return Config{MaxBytes: 5000, EntropyMinLen: 20, EntropyThresh: 4.0, EgressCapable: true}
}

func (c Config) resolved() Config {
	def := DefaultConfig()
	if c.EgressCapable {
		def = EgressConfig()
	}
	if c.MaxBytes == 0 {
		c.MaxBytes = def.MaxBytes
	}
	if c.EntropyMinLen == 0 {
		c.EntropyMinLen = def.EntropyMinLen
	}
	if c.EntropyThresh == 0 {
		c.EntropyThresh = def.EntropyThresh
	}
	return c
}

// Flags reports which checks tripped.
type Flags struct {
	SizeExceeded  bool `json:"size_exceeded,omitempty"`
	HighEntropy   bool `json:"high_entropy,omitempty"`
	SecretPattern bool `json:"secret_pattern,omitempty"`
}

// Result is the full outcome of scanning one value.
type Result struct {
	Flagged         bool            `json:"flagged"`
	Flags           Flags           `json:"flags"`
	MatchedPatterns []string        `json:"matched_patterns,omitempty"`
	Entropy         float64         `json:"entropy,omitempty"`
	EntropyRegions  []EntropyRegion `json:"entropy_regions,omitempty"`
	PatternMatches  []Match         `json:"-"`
	Details         string          `json:"details,omitempty"`
}

// Scan runs the size, entropy, and pattern checks over s.
func Scan(s string, cfg Config) Result {
	cfg = cfg.resolved()

	var result Result

	if len(s) > cfg.MaxBytes {
		result.Flags.SizeExceeded = true
		result.Details = "output exceeds max_bytes"
	}

	regions := scanEntropy(s, cfg.EntropyMinLen, cfg.EntropyThresh)
	if len(regions) > 0 {
		result.Flags.HighEntropy = true
		result.EntropyRegions = regions
		max := 0.0
		for _, r := range regions {
			if r.Entropy > max {
				max = r.Entropy
			}
		}
		result.Entropy = max
	}

	matches := scanPatterns(s)
	if len(matches) > 0 {
		result.Flags.SecretPattern = true
		result.PatternMatches = matches
		seen := map[string]bool{}
		for _, m := range matches {
			if !seen[m.Pattern] {
				seen[m.Pattern] = true
				result.MatchedPatterns = append(result.MatchedPatterns, m.Pattern)
			}
		}
	}

	result.Flagged = result.Flags.SizeExceeded || result.Flags.HighEntropy || result.Flags.SecretPattern
	return result
}

// ScanValue stringifies a non-string output via canonical JSON marshaling
// before scanning, per spec §4.8 ("or the canonical serialization of a
// non-string output").
func ScanValue(v interface{}, cfg Config) Result {
	if s, ok := v.(string); ok {
		return Scan(s, cfg)
	}
	raw, err := canonicalize.Canonicalize(v)
	if err != nil {
		return Scan("", cfg)
	}
	return Scan(string(raw), cfg)
}
