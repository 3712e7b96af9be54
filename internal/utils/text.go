// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "unicode/utf8"

// Ellipsis is appended to text cut by Ellipsize and FitLines.
const Ellipsis = "…"

// TruncateRunes returns the first max runes of s. It never splits a
// multi-byte character.
//
// Example:
//
//	utils.TruncateRunes("héllo", 2) // "hé"
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// Ellipsize shortens s to at most max runes, replacing the tail with
// Ellipsis when it had to cut.
func Ellipsize(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 1 {
		return TruncateRunes(Ellipsis, max)
	}
	return TruncateRunes(s, max-1) + Ellipsis
}

// FitLines joins head, as many lines as fit, and tail so that the result
// stays within max runes. Lines are kept whole; when some are dropped an
// Ellipsis line takes their place. head and tail are always kept.
func FitLines(head string, lines []string, tail string, max int) string {
	const marker = Ellipsis + "\n"
	budget := max - utf8.RuneCountInString(head) - utf8.RuneCountInString(tail)
	out := head
	for i, line := range lines {
		cost := utf8.RuneCountInString(line) + 1
		last := i == len(lines)-1
		if (last && cost > budget) || (!last && cost+utf8.RuneCountInString(marker) > budget) {
			out += marker
			break
		}
		out += line + "\n"
		budget -= cost
	}
	return out + tail
}
