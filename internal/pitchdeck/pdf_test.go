package pitchdeck

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamText(t *testing.T) {
	t.Parallel()

	stream := []byte("BT\n/F1 24 Tf\n(SpaceCode) Tj\nT*\n[(Orbital) -100 (logistics)] TJ\n(copilots) '\nET\n")
	got := streamText(stream)
	require.Equal(t, "SpaceCode Orbital logistics copilots", got)
}

func TestDecodeLiteral(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a(b)c", decodeLiteral([]byte(`a\(b\)c`)))
	require.Equal(t, "tab\there", decodeLiteral([]byte(`tab\there`)))
	require.Equal(t, " ", decodeLiteral([]byte(`\040`)))
	require.Equal(t, `back\slash`, decodeLiteral([]byte(`back\\slash`)))
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()

	require.Equal(t, "one two three", collapseWhitespace("  one \n\n two\t three  "))
	require.Empty(t, collapseWhitespace("   \n\t "))
}

func TestFirstLine(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Title Slide", firstLine("\n  Title Slide\nsecond line"))
	require.Empty(t, firstLine("  \n "))
}

func TestDeckSummaryCapped(t *testing.T) {
	t.Parallel()

	deck := Deck{Slides: []Slide{
		{Number: 1, Text: "Problem: shipping to orbit is slow."},
		{Number: 2, Text: "Solution: AI copilots for logistics."},
	}}

	full := deck.Summary(0)
	require.Contains(t, full, "Problem")
	require.Contains(t, full, "Solution")

	short := deck.Summary(10)
	require.Len(t, short, 10)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load("testdata/does-not-exist.pdf")
	require.Error(t, err)
	require.Contains(t, err.Error(), "open pitch deck")
}
