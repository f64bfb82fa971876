package chunker

import (
	"strings"
	"unicode"

	"github.com/dshills/webcontext-mcp/pkg/types"
)

// abbreviations that end in a period without terminating a sentence.
// Keys are lowercased with the final period stripped; multi-dot forms
// like "e.g." keep their internal dots ("e.g").
var abbreviations = map[string]bool{
	"dr": true, "mr": true, "mrs": true, "ms": true, "prof": true,
	"rev": true, "hon": true, "st": true, "sr": true, "jr": true,
	"vs": true, "etc": true, "approx": true, "dept": true, "est": true,
	"fig": true, "inc": true, "ltd": true, "co": true, "corp": true,
	"no": true, "vol": true, "al": true, "ed": true, "pp": true,
	"e.g": true, "i.e": true, "cf": true, "ca": true,
	"u.s": true, "u.k": true, "u.n": true, "a.m": true, "p.m": true,
	"ph.d": true, "m.d": true, "b.a": true, "m.a": true, "d.c": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "sept": true, "oct": true,
	"nov": true, "dec": true,
}

// splitSentences segments text at sentence boundaries. A period only ends a
// sentence when the word before it is not a known abbreviation or single
// initial, and the following text starts a new sentence (uppercase, digit,
// or end of input).
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		// Consume a run of terminal punctuation ("...", "?!").
		end := i
		for end+1 < len(runes) && isTerminal(runes[end+1]) {
			end++
		}
		// Include a trailing closing quote or paren in the sentence.
		for end+1 < len(runes) && (runes[end+1] == '"' || runes[end+1] == '\'' || runes[end+1] == ')') {
			end++
		}

		if r == '.' && end == i && isAbbreviation(runes[start:i]) {
			continue
		}

		if !startsNewSentence(runes, end+1) {
			i = end
			continue
		}

		s := strings.TrimSpace(string(runes[start : end+1]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = end + 1
		i = end
	}

	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		sentences = append(sentences, rest)
	}
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed != "" {
			sentences = []string{trimmed}
		}
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// isAbbreviation checks whether the word ending at the current period is a
// known abbreviation or a single-letter initial ("J." in "J. Smith").
func isAbbreviation(before []rune) bool {
	j := len(before)
	for j > 0 && !unicode.IsSpace(before[j-1]) {
		j--
	}
	word := strings.ToLower(string(before[j:]))
	word = strings.TrimLeft(word, "(\"'")
	if word == "" {
		return false
	}
	if len([]rune(word)) == 1 && unicode.IsLetter([]rune(word)[0]) {
		return true
	}
	return abbreviations[word]
}

// startsNewSentence checks whether the text at pos (after skipping spaces)
// plausibly begins a new sentence.
func startsNewSentence(runes []rune, pos int) bool {
	for pos < len(runes) && unicode.IsSpace(runes[pos]) {
		pos++
	}
	if pos >= len(runes) {
		return true
	}
	r := runes[pos]
	return unicode.IsUpper(r) || unicode.IsDigit(r) || r == '"' || r == '\'' || r == '(' || r == '#' || r == '-' || r == '*'
}

// packSentences greedily joins sentences into pieces of at most budget
// tokens. A single sentence over budget is force-split at word boundaries.
func packSentences(sentences []string, budget int) []string {
	var pieces []string
	var cur strings.Builder
	curTokens := 0

	flush := func() {
		if cur.Len() > 0 {
			pieces = append(pieces, cur.String())
			cur.Reset()
			curTokens = 0
		}
	}

	for _, s := range sentences {
		st := types.EstimateTokens(s)
		if st > budget {
			flush()
			pieces = append(pieces, forceSplitWords(s, budget)...)
			continue
		}
		if curTokens+st > budget {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(s)
		curTokens += st
	}
	flush()
	return pieces
}

// forceSplitWords splits text at word boundaries into pieces of at most
// budget tokens. Last resort for pathological unbroken runs.
func forceSplitWords(text string, budget int) []string {
	maxChars := budget * 4
	words := strings.Fields(text)

	var pieces []string
	var cur strings.Builder
	for _, w := range words {
		if cur.Len() > 0 && cur.Len()+1+len(w) > maxChars {
			pieces = append(pieces, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		pieces = append(pieces, cur.String())
	}
	return pieces
}

// tailText returns a suffix of text of at most targetTokens tokens,
// preferring whole sentences and falling back to whole words.
func tailText(text string, targetTokens int) string {
	if targetTokens <= 0 {
		return ""
	}

	// Budget by the length of the joined result, separators included:
	// summing per-sentence estimates can round a token short of what the
	// space-joined string actually measures.
	maxChars := targetTokens * 4

	sentences := splitSentences(text)
	var tail []string
	chars := 0
	for i := len(sentences) - 1; i >= 0; i-- {
		add := len(sentences[i])
		if len(tail) > 0 {
			add++ // joining space
		}
		if chars+add > maxChars {
			break
		}
		tail = append([]string{sentences[i]}, tail...)
		chars += add
	}
	if len(tail) > 0 {
		return strings.Join(tail, " ")
	}

	// No whole sentence fits; take whole words from the end instead.
	words := strings.Fields(text)
	var wtail []string
	chars = 0
	for i := len(words) - 1; i >= 0; i-- {
		if chars+len(words[i])+1 > maxChars {
			break
		}
		wtail = append([]string{words[i]}, wtail...)
		chars += len(words[i]) + 1
	}
	return strings.Join(wtail, " ")
}
