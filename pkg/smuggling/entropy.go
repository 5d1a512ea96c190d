package smuggling

import "math"

// EntropyRegion is a contiguous high-entropy span found by the sliding
// window scan.
type EntropyRegion struct {
	Start   int
	End     int
	Entropy float64
}

// shannonEntropy computes the Shannon entropy, in bits per character, of s.
func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	var counts [256]int
	for i := 0; i < len(s); i++ {
		counts[s[i]]++
	}
	n := float64(len(s))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

// scanEntropy slides a window of size minLength across s, flags windows
// whose entropy exceeds threshold, and merges overlapping/adjacent flagged
// windows into single regions.
func scanEntropy(s string, minLength int, threshold float64) []EntropyRegion {
	if minLength <= 0 {
		minLength = 20
	}
	if len(s) < minLength {
		return nil
	}

	var flagged []EntropyRegion
	for start := 0; start+minLength <= len(s); start++ {
		window := s[start : start+minLength]
		h := shannonEntropy(window)
		if h > threshold {
			flagged = append(flagged, EntropyRegion{Start: start, End: start + minLength, Entropy: h})
		}
	}
	return mergeRegions(flagged)
}

// mergeRegions merges overlapping or touching regions, keeping the maximum
// entropy observed within the merged span.
func mergeRegions(regions []EntropyRegion) []EntropyRegion {
	if len(regions) == 0 {
		return nil
	}

	merged := []EntropyRegion{regions[0]}
	for _, r := range regions[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			if r.Entropy > last.Entropy {
				last.Entropy = r.Entropy
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
