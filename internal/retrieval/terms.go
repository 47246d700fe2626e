package retrieval

import (
	"strings"
	"unicode"
)

// Terms splits text into lowercased letter/digit runs. Runs of CJK
// characters, which carry no spaces, are further split into overlapping
// bigrams. Duplicates are removed, first occurrence wins.
func Terms(text string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(t string) {
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
	}

	for _, run := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		rs := []rune(run)
		if !hasCJK(rs) {
			if len(rs) >= 2 {
				add(run)
			}
			continue
		}
		if len(rs) == 1 {
			add(run)
			continue
		}
		for i := 0; i+1 < len(rs); i++ {
			add(string(rs[i : i+2]))
		}
	}
	return out
}

func termSet(text string) map[string]bool {
	terms := Terms(text)
	set := make(map[string]bool, len(terms))
	for _, t := range terms {
		set[t] = true
	}
	return set
}

func hasCJK(rs []rune) bool {
	for _, r := range rs {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			return true
		}
	}
	return false
}
