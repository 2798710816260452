package textHandling

import "strings"

// Token is one indexable word of a paragraph. Surface is empty when the
// lowered word already equals its stem.
type Token struct {
	Stem     string
	Surface  string
	Sentence int
	Position int
}

// AnalyzeParagraph splits text into sentences and tokens, drops symbol-only
// tokens and stopwords, and stems the rest. Positions are counted after the
// symbol filter, so stopwords still occupy a position.
func AnalyzeParagraph(text string) []Token {
	var out []Token
	for s, sentence := range ToSentences(text) {
		pos := 0
		for _, raw := range ToTokens(sentence) {
			if IsAllSymbols(raw) {
				continue
			}
			word := strings.ToLower(raw)
			if !IsStopWord(word) {
				stem := Stem(word)
				surface := word
				if stem == word {
					surface = ""
				}
				out = append(out, Token{Stem: stem, Surface: surface, Sentence: s, Position: pos})
			}
			pos++
		}
	}
	return out
}

// Terms returns the stems of text in order, without stopwords or symbols.
func Terms(text string) []string {
	var out []string
	for _, raw := range ToTokens(text) {
		if IsAllSymbols(raw) {
			continue
		}
		word := strings.ToLower(raw)
		if IsStopWord(word) {
			continue
		}
		out = append(out, Stem(word))
	}
	return out
}
