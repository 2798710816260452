package textHandling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSentences(t *testing.T) {
	got := ToSentences("Machines learn fast. Do they? Yes!  ")
	assert.Equal(t, []string{"Machines learn fast.", "Do they?", "Yes!"}, got)

	assert.Equal(t, []string{"version 3.14 is out"}, ToSentences("version 3.14 is out"))
	assert.Equal(t, []string{`He said "stop."`, "Then left."}, ToSentences(`He said "stop." Then left.`))
	assert.Empty(t, ToSentences("   "))
	assert.Empty(t, ToSentences(""))
}

func TestToTokens(t *testing.T) {
	assert.Equal(t, []string{"Hello", ",", "world", "!"}, ToTokens("Hello, world!"))
	assert.Empty(t, ToTokens(" \t "))
}

func TestIsAllSymbols(t *testing.T) {
	assert.True(t, IsAllSymbols("--"))
	assert.True(t, IsAllSymbols("!?"))
	assert.False(t, IsAllSymbols("a-"))
	assert.False(t, IsAllSymbols("42"))
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("The"))
	assert.True(t, IsStopWord("don't"))
	assert.False(t, IsStopWord("machine"))
}

func TestAnalyzeParagraph(t *testing.T) {
	tokens := AnalyzeParagraph("The machines are learning. Fast!")
	require.Len(t, tokens, 3)

	assert.Equal(t, Token{Stem: "machin", Surface: "machines", Sentence: 0, Position: 1}, tokens[0])
	assert.Equal(t, Token{Stem: "learn", Surface: "learning", Sentence: 0, Position: 3}, tokens[1])
	assert.Equal(t, Token{Stem: "fast", Surface: "", Sentence: 1, Position: 0}, tokens[2])
}

func TestAnalyzeParagraphEmpty(t *testing.T) {
	assert.Empty(t, AnalyzeParagraph(""))
	assert.Empty(t, AnalyzeParagraph("... !!!"))
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"machin", "learn"}, Terms("the Machine, learning"))
	assert.Empty(t, Terms("the of and"))
}
