// Package censor masks forbidden words in message content. Matching is
// case-insensitive and whole-word only: a word is masked when it is not
// adjacent to another letter or digit on either side, so "badwordish"
// survives a "badword" entry untouched.
package censor

import (
	"sort"
	"strings"
	"unicode"
)

const maskRune = '*'

type span struct {
	start, end int // rune offsets, end exclusive
}

// Mask replaces every whole-word occurrence of the given words with a
// placeholder. The placeholder length is proportional to the match length
// rather than equal to it, so the exact length of the censored word does
// not leak. Matches are masked independently; the words slice is expected
// to be lowercase.
func Mask(text string, words []string) string {
	if len(words) == 0 || text == "" {
		return text
	}

	runes := []rune(text)
	lowered := make([]rune, len(runes))
	for i, r := range runes {
		lowered[i] = unicode.ToLower(r)
	}

	var spans []span
	for _, w := range words {
		pattern := []rune(w)
		if len(pattern) == 0 {
			continue
		}
		for i := 0; i+len(pattern) <= len(lowered); i++ {
			if !matchAt(lowered, pattern, i) {
				continue
			}
			spans = append(spans, span{start: i, end: i + len(pattern)})
		}
	}
	if len(spans) == 0 {
		return text
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var b strings.Builder
	next := 0
	for _, s := range spans {
		if s.start < next {
			// Overlaps a span already masked; the earlier mask covers it.
			continue
		}
		b.WriteString(string(runes[next:s.start]))
		b.WriteString(placeholder(s.end - s.start))
		next = s.end
	}
	b.WriteString(string(runes[next:]))
	return b.String()
}

// matchAt reports whether pattern occurs at rune offset i with word
// boundaries on both sides.
func matchAt(lowered, pattern []rune, i int) bool {
	for j, p := range pattern {
		if lowered[i+j] != p {
			return false
		}
	}
	if i > 0 && isWordRune(lowered[i-1]) {
		return false
	}
	if end := i + len(pattern); end < len(lowered) && isWordRune(lowered[end]) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// placeholder sizes the mask roughly to the match without revealing its
// exact length.
func placeholder(matchLen int) string {
	n := matchLen/2 + 3
	return strings.Repeat(string(maskRune), n)
}
