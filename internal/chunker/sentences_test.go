package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/webcontext-mcp/pkg/types"
)

func TestSplitSentences_Basic(t *testing.T) {
	got := splitSentences("First sentence here. Second sentence follows. Third one ends it.")
	require.Len(t, got, 3)
	assert.Equal(t, "First sentence here.", got[0])
	assert.Equal(t, "Third one ends it.", got[2])
}

func TestSplitSentences_Abbreviations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"title", "Dr. Smith went to Washington. He arrived late.", 2},
		{"country", "The U.S. Government announced changes. Markets reacted.", 2},
		{"latin", "Use common tools, e.g. The standard ones. Then continue.", 2},
		{"initial", "J. Smith wrote the paper. It was published.", 2},
		{"time", "He arrived at 3 p.m. yesterday and left soon after.", 1},
		{"etc", "Bring pens, paper, etc. and whatever else you need today.", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.text)
			assert.Len(t, got, tt.want, "sentences: %q", got)
		})
	}
}

func TestSplitSentences_NoTerminator(t *testing.T) {
	got := splitSentences("a fragment without any terminal punctuation")
	require.Len(t, got, 1)
}

func TestSplitSentences_QuestionAndExclamation(t *testing.T) {
	got := splitSentences("Is this working? Yes! It handles both.")
	assert.Len(t, got, 3)
}

func TestPackSentences_RespectsBudget(t *testing.T) {
	sentences := []string{
		"A short sentence.",
		"Another short sentence here.",
		"Yet another sentence to pack in.",
		"And one final sentence for the test.",
	}

	pieces := packSentences(sentences, 10)
	require.NotEmpty(t, pieces)
	for _, p := range pieces {
		assert.LessOrEqual(t, types.EstimateTokens(p), 10)
	}
}

func TestForceSplitWords(t *testing.T) {
	text := strings.Repeat("word ", 100)
	pieces := forceSplitWords(text, 10)

	require.Greater(t, len(pieces), 1)
	for _, p := range pieces {
		assert.LessOrEqual(t, len(p), 40)
		assert.False(t, strings.HasPrefix(p, " "))
	}
}

func TestTailText_PreferWholeSentences(t *testing.T) {
	text := "First part of the text. The tail sentence is right here."
	tail := tailText(text, types.EstimateTokens("The tail sentence is right here.")+1)

	assert.Equal(t, "The tail sentence is right here.", tail)
}

func TestTailText_JoinedLengthWithinTarget(t *testing.T) {
	// Two sentences whose token estimates sum exactly to the target but
	// whose space-joined form measures one token over. The tail must stay
	// within the target as measured on the returned string.
	text := "Their opening sentence runs forty chars. Their closing sentence runs forty chars."
	tail := tailText(text, 20)

	assert.LessOrEqual(t, types.EstimateTokens(tail), 20)
	assert.True(t, strings.HasSuffix(text, tail))
}

func TestTailText_FallbackToWords(t *testing.T) {
	text := "one single extremely long sentence that cannot fit in the target budget at all"
	tail := tailText(text, 3)

	assert.NotEmpty(t, tail)
	assert.LessOrEqual(t, types.EstimateTokens(tail), 3)
	assert.True(t, strings.HasSuffix(text, tail))
}

func TestTailText_ZeroTarget(t *testing.T) {
	assert.Empty(t, tailText("anything at all", 0))
}
