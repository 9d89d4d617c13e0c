// Package redact scrubs credentials from code snippets before they are
// stored in journeys, reports or the archive.
package redact

import (
	"math"
	"strings"
)

// Marker replaces a redacted value; the pattern name follows the colon.
const Marker = "[REDACTED:"

var placeholders = []string{
	"example", "placeholder", "your_", "xxx", "changeme", "dummy",
	"sample", "test123", "abc123", "foobar", "<your", "${", "{{",
	"replace", "insert",
}

// Snippet returns s with every recognized secret replaced by
// "[REDACTED:<pattern>]", and the names of the patterns that fired.
// Text without secrets is returned unchanged.
func Snippet(s string) (string, []string) {
	var fired []string
	for _, p := range builtinPatterns {
		matches := p.Regex.FindAllStringSubmatchIndex(s, -1)
		if len(matches) == 0 {
			continue
		}

		var b strings.Builder
		last := 0
		hit := false
		for _, m := range matches {
			start, end := m[0], m[1]
			if len(m) >= 4 && m[2] >= 0 {
				start, end = m[2], m[3]
			}
			value := s[start:end]
			if p.MinEntropy > 0 && !probablySecret(value, p.MinEntropy) {
				continue
			}
			b.WriteString(s[last:start])
			b.WriteString(Marker + p.Name + "]")
			last = end
			hit = true
		}
		if !hit {
			continue
		}
		b.WriteString(s[last:])
		s = b.String()
		fired = append(fired, p.Name)
	}
	return s, fired
}

// probablySecret rejects short, low-entropy and placeholder values.
func probablySecret(s string, minEntropy float64) bool {
	if len(s) < 8 || shannonEntropy(s) < minEntropy {
		return false
	}
	lower := strings.ToLower(s)
	for _, p := range placeholders {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

// shannonEntropy is the per-character Shannon entropy of s in bits.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	n := 0
	for _, r := range s {
		freq[r]++
		n++
	}
	var entropy float64
	for _, count := range freq {
		p := float64(count) / float64(n)
		entropy -= p * math.Log2(p)
	}
	return entropy
}
