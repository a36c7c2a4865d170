package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify_NoKeywordsMeansNotInvestor(t *testing.T) {
	t.Parallel()

	c := Classify(Signals{
		Headline:   "Staff Software Engineer",
		About:      "I build distributed systems.",
		Experience: []string{"Senior Engineer at Initech", "Engineer at Globex"},
	})

	require.False(t, c.IsInvestor)
	require.Zero(t, c.Confidence)
	require.Zero(t, c.KeywordMatches)
	require.Empty(t, c.KeywordsFound)
}

func TestClassify_GeneralPartnerHeadline(t *testing.T) {
	t.Parallel()

	c := Classify(Signals{Headline: "General Partner at Acme Ventures"})

	require.True(t, c.IsInvestor)
	require.GreaterOrEqual(t, c.SectionsWithMatches, 1)
	require.GreaterOrEqual(t, c.StrongMatches, 1)
	require.Greater(t, c.Confidence, 0.5)
	require.LessOrEqual(t, c.Confidence, 0.95)
	require.Contains(t, c.KeywordsFound, "general partner")
}

func TestClassify_ConfidenceFormula(t *testing.T) {
	t.Parallel()

	// "partner at", "general partner", "partner" -> 3 matches, 1 section,
	// 1 strong: base = 0.3 + 0.2 = 0.5, bonus = 0.15.
	c := Classify(Signals{Headline: "General Partner at Acme Ventures"})
	require.InDelta(t, 0.65, c.Confidence, 1e-9)
	require.Equal(t, 3, c.KeywordMatches)
	require.Equal(t, 1, c.StrongMatches)
	require.Equal(t, 1, c.SectionsWithMatches)
}

func TestClassify_ConfidenceCappedAt095(t *testing.T) {
	t.Parallel()

	loaded := "Angel investor and general partner, venture capital fund, seed and early stage investing, portfolio principal"
	c := Classify(Signals{
		Headline:   loaded,
		About:      loaded,
		Experience: []string{loaded, loaded},
	})

	require.True(t, c.IsInvestor)
	require.Equal(t, 0.95, c.Confidence)
	require.Equal(t, 3, c.SectionsWithMatches)
}

func TestClassify_ExperienceCountsAsOneSection(t *testing.T) {
	t.Parallel()

	c := Classify(Signals{
		Experience: []string{"Partner at Fund One", "Partner at Fund Two", "Partner at Fund Three"},
	})

	require.True(t, c.IsInvestor)
	require.Equal(t, 1, c.SectionsWithMatches)
}

func TestClassify_Deterministic(t *testing.T) {
	t.Parallel()

	sig := Signals{
		Headline:   "Seed investor and angel",
		About:      "Investing in early stage companies.",
		Experience: []string{"Managing Director at Capital Partners"},
	}

	first := Classify(sig)
	for i := 0; i < 50; i++ {
		require.Equal(t, first, Classify(sig))
	}
}

func TestComposite_ZeroForNonInvestor(t *testing.T) {
	t.Parallel()

	score := Composite(Classification{}, WebSignals{
		RecentInvestments: []string{"a", "b", "c", "d", "e"},
		InvestmentStages:  []string{"Seed"},
	})
	require.Zero(t, score)
}

func TestComposite_MonotonicInInvestmentCount(t *testing.T) {
	t.Parallel()

	c := Classification{IsInvestor: true, Confidence: 0.6}
	investments := []string{"one", "two", "three", "four", "five", "six", "seven"}

	prev := -1.0
	for n := 0; n <= len(investments); n++ {
		score := Composite(c, WebSignals{RecentInvestments: investments[:n]})
		require.GreaterOrEqual(t, score, prev, "score decreased at n=%d", n)
		prev = score
	}
}

func TestComposite_InvestmentCountTiers(t *testing.T) {
	t.Parallel()

	c := Classification{IsInvestor: true, Confidence: 0.8}
	base := c.Confidence * 0.5

	require.InDelta(t, base, Composite(c, WebSignals{}), 1e-9)
	require.InDelta(t, base+0.1, Composite(c, WebSignals{RecentInvestments: make([]string, 2)}), 1e-9)
	require.InDelta(t, base+0.15, Composite(c, WebSignals{RecentInvestments: make([]string, 4)}), 1e-9)
	require.InDelta(t, base+0.2, Composite(c, WebSignals{RecentInvestments: make([]string, 5)}), 1e-9)
}

func TestComposite_StageAndSectorBonuses(t *testing.T) {
	t.Parallel()

	c := Classification{IsInvestor: true, Confidence: 0.8}

	withStage := Composite(c, WebSignals{InvestmentStages: []string{"Seed", "Series A"}})
	require.InDelta(t, 0.4+0.15, withStage, 1e-9)

	withEarly := Composite(c, WebSignals{InvestmentStages: []string{"Early Stage"}})
	require.InDelta(t, 0.4+0.15, withEarly, 1e-9)

	// 1 of 2 investor sectors overlap: 0.5 capped to 0.15.
	withSectors := Composite(c, WebSignals{
		InvestmentSectors: []string{"fintech", "healthcare"},
		StartupSectors:    []string{"fintech"},
	})
	require.InDelta(t, 0.4+0.15, withSectors, 1e-9)
}

func TestComposite_ClampedAtOne(t *testing.T) {
	t.Parallel()

	c := Classification{IsInvestor: true, Confidence: 0.95}
	score := Composite(c, WebSignals{
		RecentInvestments: make([]string, 9),
		InvestmentStages:  []string{"seed", "early"},
		InvestmentSectors: []string{"ai"},
		StartupSectors:    []string{"ai"},
	})
	require.LessOrEqual(t, score, 1.0)
}

func TestBreakdownFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, Breakdown{}, BreakdownFor(Classification{}))

	b := BreakdownFor(Classification{
		IsInvestor:    true,
		Confidence:    0.65,
		KeywordsFound: []string{"partner", "partner at", "general partner"},
	})
	require.InDelta(t, 0.65, b.ConfidenceComponent, 1e-9)
	require.InDelta(t, 0.15, b.KeywordBonus, 1e-9)
	require.InDelta(t, 0.80, b.FinalScore, 1e-9)

	capped := BreakdownFor(Classification{
		IsInvestor:    true,
		Confidence:    0.95,
		KeywordsFound: make([]string, 8),
	})
	require.InDelta(t, 0.2, capped.KeywordBonus, 1e-9)
	require.InDelta(t, 0.95, capped.FinalScore, 1e-9)
}
