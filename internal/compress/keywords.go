package compress

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Strip leading list bullets so "- Kira, a pilot" does not keep the dash.
	bulletRe = regexp.MustCompile(`(?m)^\s*-\s*`)

	emojiRe = regexp.MustCompile(`[\x{1F300}-\x{1F6FF}\x{1F900}-\x{1F9FF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}]`)

	// A candidate with any character outside letters, digits, spaces,
	// hyphens, or apostrophes is noise (stray punctuation, markup).
	// \p classes rather than \w, which only covers ASCII.
	dirtyRe = regexp.MustCompile(`[^\p{L}\p{N}\s\-']`)

	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// extractKeywords pulls proper-noun-like terms from text: maximal runs of
// capitalised words that survive stopword filtering and cleanup, in order
// of first appearance, at most limit entries.
func extractKeywords(text, lang string, limit int) []string {
	stop := stopwordsFor(lang)

	cleaned := bulletRe.ReplaceAllString(norm.NFC.String(text), "")
	cleaned = strings.NewReplacer("\n", " ", "\t", " ").Replace(cleaned)
	cleaned = multiSpaceRe.ReplaceAllString(cleaned, " ")

	var out []string
	seen := map[string]bool{}
	var run []string

	flush := func() {
		if len(run) == 0 {
			return
		}
		candidate := cleanCandidate(strings.Join(run, " "))
		run = run[:0]
		if candidate == "" {
			return
		}
		key := strings.ToLower(candidate)
		if seen[key] || stop[key] {
			return
		}
		seen[key] = true
		out = append(out, candidate)
	}

	for _, word := range strings.Fields(cleaned) {
		trimmed := strings.Trim(word, "!?',.:;…—–-\"()")
		if isCapitalized(trimmed) && !stop[strings.ToLower(trimmed)] {
			run = append(run, trimmed)
			continue
		}
		flush()
	}
	flush()

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// cleanCandidate applies the post-filters: strip emojis and edge
// punctuation, drop short or dirty candidates.
func cleanCandidate(name string) string {
	name = emojiRe.ReplaceAllString(name, "")
	name = strings.Trim(name, " \t\n!?',.:;…—–-")
	if len([]rune(name)) < 3 {
		return ""
	}
	if dirtyRe.MatchString(name) {
		return ""
	}
	return name
}

func isCapitalized(word string) bool {
	for _, r := range word {
		return unicode.IsUpper(r)
	}
	return false
}

// stopwordsFor returns words that start sentences often enough that their
// capitalisation carries no signal. German capitalises every noun, so its
// list is limited to function words.
func stopwordsFor(lang string) map[string]bool {
	if strings.HasPrefix(lang, "de") {
		return stopDE
	}
	return stopEN
}

var stopEN = toSet("the a an and or but if then so i you he she it we they this that these those my your his her its our their what when where who why how yes no not is are was were be been am do does did have has had will would can could should there here")

var stopDE = toSet("der die das ein eine und oder aber wenn dann also ich du er sie es wir ihr mein dein sein ihre unser euer was wann wo wer warum wie ja nein nicht ist sind war waren bin bist habe hat hatte wird würde kann könnte sollte es gibt hier da")

func toSet(words string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}
