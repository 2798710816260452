package textHandling

import (
	"strings"
	"unicode"

	"github.com/blevesearch/segment"
)

// ToSentences splits a paragraph on terminal punctuation followed by
// whitespace. Closing quotes and brackets stay with their sentence.
func ToSentences(text string) []string {
	var (
		sentences []string
		current   strings.Builder
	)
	runes := []rune(text)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if !isTerminal(runes[i]) {
			continue
		}
		for i+1 < len(runes) && (isTerminal(runes[i+1]) || isCloser(runes[i+1])) {
			i++
			current.WriteRune(runes[i])
		}
		if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
			flush()
		}
	}
	flush()
	return sentences
}

// ToTokens splits a sentence on unicode word boundaries. Punctuation comes
// back as its own token, whitespace is dropped.
func ToTokens(sentence string) []string {
	tokens := make([]string, 0)
	seg := segment.NewWordSegmenter(strings.NewReader(sentence))
	for seg.Segment() {
		tok := seg.Text()
		if strings.TrimSpace(tok) == "" {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// IsAllSymbols reports whether token has no letter or digit.
func IsAllSymbols(token string) bool {
	for _, r := range token {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}
