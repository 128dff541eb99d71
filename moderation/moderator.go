package moderation

import (
	"log/slog"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator masks censored words in chat content.
type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
	log          *slog.Logger
}

// folded is chat text reduced to matchable runes, with the rune index in the
// original text of each kept rune.
type folded struct {
	runes  []rune
	origin []int
}

// leet maps look-alike characters to the letter they stand for.
var leet = map[rune]rune{
	'4': 'a', '@': 'a',
	'3': 'e', '€': 'e',
	'1': 'i', '!': 'i', '|': 'i',
	'0': 'o',
	'5': 's', '$': 's',
}

// fold lowercases text, undoes leet substitutions and drops separators
// so "S.p-4_m" and "spam" compare equal.
func fold(text []rune) folded {
	out := folded{runes: make([]rune, 0, len(text)), origin: make([]int, 0, len(text))}
	for i, r := range text {
		if l, ok := leet[r]; ok {
			r = l
		}
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		out.runes = append(out.runes, unicode.ToLower(r))
		out.origin = append(out.origin, i)
	}
	return out
}

// NewModerator builds the automaton over the folded censored words.
// Words that fold to nothing (pure punctuation) are ignored.
func NewModerator(censoredWords []string, censoredChar rune, log *slog.Logger) (*Moderator, error) {
	patterns := make([][]rune, 0, len(censoredWords))
	for _, word := range censoredWords {
		if f := fold([]rune(word)); len(f.runes) > 0 {
			patterns = append(patterns, f.runes)
		}
	}
	if len(patterns) == 0 {
		log.Debug("No censored word, moderation is a no-op")
		return &Moderator{censoredChar: censoredChar, log: log}, nil
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	log.Debug("Moderator ready", "patterns", len(patterns))
	return &Moderator{matcher: machine, censoredChar: censoredChar, log: log}, nil
}

// Censor masks every rune of the original text covered by a censored word,
// separators inside the word included. It also returns the folded words hit,
// in order of appearance.
func (m *Moderator) Censor(original string) (string, []string) {
	if m == nil || m.matcher == nil {
		return original, nil
	}
	text := []rune(original)
	f := fold(text)
	if len(f.runes) == 0 {
		return original, nil
	}

	hits := m.matcher.MultiPatternSearch(f.runes, false)
	if len(hits) == 0 {
		return original, nil
	}

	words := make([]string, 0, len(hits))
	for _, hit := range hits {
		last := hit.Pos + len(hit.Word) - 1
		if hit.Pos < 0 || last >= len(f.origin) {
			continue
		}
		for i := f.origin[hit.Pos]; i <= f.origin[last]; i++ {
			text[i] = m.censoredChar
		}
		words = append(words, string(hit.Word))
	}
	return string(text), words
}

// Language returns the ISO 639-1 code of the most likely language of text, or "" when unsure.
func (m *Moderator) Language(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
