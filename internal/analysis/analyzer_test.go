package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacecode-ai/SeedPitcher/internal/linkedin"
	"github.com/spacecode-ai/SeedPitcher/internal/scoring"
)

func TestDisabledAnalyzer(t *testing.T) {
	t.Parallel()

	var a Analyzer = Disabled{}

	_, err := a.AnalyzeProfile(context.Background(), linkedin.Profile{})
	require.ErrorIs(t, err, ErrDisabled)

	_, err = a.DraftMessage(context.Background(), DraftRequest{})
	require.ErrorIs(t, err, ErrDisabled)
}

func TestAnalyzePromptIncludesSignals(t *testing.T) {
	t.Parallel()

	prompt := analyzePrompt(linkedin.Profile{
		Name:       "Jane Doe",
		Headline:   "Partner at Acme Ventures",
		About:      "Backing pre-seed founders.",
		Experience: []string{"Partner, Acme Ventures"},
		Investor: scoring.Classification{
			IsInvestor:    true,
			Confidence:    0.65,
			KeywordsFound: []string{"partner", "venture"},
		},
	})

	require.Contains(t, prompt, "Jane Doe")
	require.Contains(t, prompt, "Partner at Acme Ventures")
	require.Contains(t, prompt, "Backing pre-seed founders.")
	require.Contains(t, prompt, "investor=true confidence=0.65")
	require.Contains(t, prompt, "partner, venture")
}

func TestDraftPromptIncludesPitchAndRecipient(t *testing.T) {
	t.Parallel()

	prompt := draftPrompt(DraftRequest{
		Profile:       linkedin.Profile{Name: "Jane Doe", Headline: "GP at Acme"},
		StartupName:   "SpaceCode",
		ElevatorPitch: "AI copilots for orbital logistics.",
		DeckSummary:   "Series of slides about market size.",
	})

	require.Contains(t, prompt, "SpaceCode")
	require.Contains(t, prompt, "AI copilots for orbital logistics.")
	require.Contains(t, prompt, "Jane Doe, GP at Acme")
	require.Contains(t, prompt, "Deck summary")
}

func TestNewOpenAIOptions(t *testing.T) {
	t.Parallel()

	a := NewOpenAI("test-key", WithModel("gpt-4o-mini"), WithBaseURL("http://localhost:8080/v1"))
	require.Equal(t, "gpt-4o-mini", a.model)
}
