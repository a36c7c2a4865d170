package linkedin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spacecode-ai/SeedPitcher/internal/gateway"
)

// fakeExec scripts gateway results per action and selector.
type fakeExec struct {
	mu           sync.Mutex
	calls        []gateway.Action
	navFailures  int
	found        map[string]bool
	texts        map[string]string
	counts       map[string]int
	elementTexts map[string][]string
}

func (f *fakeExec) Execute(ctx context.Context, action gateway.Action, params map[string]any, deadline time.Duration) (gateway.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, action)
	f.mu.Unlock()

	sel, _ := params["selector"].(string)
	switch action {
	case gateway.ActionNavigate:
		if f.navFailures > 0 {
			f.navFailures--
			return gateway.Result{Error: "net::ERR_TIMED_OUT"}, nil
		}
		return gateway.Result{Success: true, Data: map[string]any{"url": params["url"]}}, nil

	case gateway.ActionFindElement:
		found := f.found[sel]
		return gateway.Result{Success: found, Data: map[string]any{"found": found}}, nil

	case gateway.ActionGetText:
		if text, ok := f.texts[sel]; ok {
			return gateway.Result{Success: true, Data: map[string]any{"text": text}}, nil
		}
		return gateway.Result{Error: "no element matches " + sel}, nil

	case gateway.ActionFindElements:
		count := f.counts[sel]
		return gateway.Result{Success: count > 0, Data: map[string]any{"count": count}}, nil

	case gateway.ActionGetElementText:
		index, _ := params["index"].(int)
		entries := f.elementTexts[sel]
		if index < 0 || index >= len(entries) {
			return gateway.Result{Error: "index out of range"}, nil
		}
		return gateway.Result{Success: true, Data: map[string]any{"text": entries[index]}}, nil
	}
	return gateway.Result{Error: "unsupported action"}, nil
}

func testExtractorConfig() Config {
	return Config{
		NavAttempts:     3,
		SettleBase:      time.Millisecond,
		SettleStep:      time.Millisecond,
		MaxExperience:   5,
		CommandDeadline: time.Second,
	}
}

func TestExtractInvestorProfile(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{
		found: map[string]bool{
			"h1.text-heading-xlarge": true,
			"div.text-body-medium":   true,
		},
		texts: map[string]string{
			"h1.text-heading-xlarge": "Jane Doe",
			"div.text-body-medium":   "Partner at Acme Ventures",
		},
		counts: map[string]int{
			"section.experience-section li": 3,
		},
		elementTexts: map[string][]string{
			"section.experience-section li": {
				"Partner at Acme Ventures, leading seed stage investments",
				"VC",
				"Board member at FooBar Inc since 2021",
			},
		},
	}

	x := NewExtractor(exec, testExtractorConfig(), zap.NewNop())
	profile, err := x.Extract(context.Background(), "https://www.linkedin.com/in/janedoe")
	require.NoError(t, err)

	require.Equal(t, "Jane Doe", profile.Name)
	require.Equal(t, "Partner at Acme Ventures", profile.Headline)
	require.Empty(t, profile.About, "missing section stays empty, not an error")

	// Entries of 10 characters or fewer are dropped as list chrome.
	require.Equal(t, []string{
		"Partner at Acme Ventures, leading seed stage investments",
		"Board member at FooBar Inc since 2021",
	}, profile.Experience)

	require.True(t, profile.Investor.IsInvestor)
	require.Greater(t, profile.Investor.Confidence, 0.5)
	require.Contains(t, profile.InvestmentRoles, "partner")
	require.Contains(t, profile.InvestmentRoles, "seed")
}

func TestExtractNavigationRetries(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{
		navFailures: 2,
		found:       map[string]bool{"h1.text-heading-xlarge": true},
		texts:       map[string]string{"h1.text-heading-xlarge": "Jane Doe"},
	}

	x := NewExtractor(exec, testExtractorConfig(), zap.NewNop())
	profile, err := x.Extract(context.Background(), "https://www.linkedin.com/in/janedoe")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", profile.Name)
}

func TestExtractNavigationExhausted(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{navFailures: 3}

	x := NewExtractor(exec, testExtractorConfig(), zap.NewNop())
	_, err := x.Extract(context.Background(), "https://www.linkedin.com/in/janedoe")
	require.Error(t, err)
	require.Contains(t, err.Error(), "after 3 attempts")
}

func TestExtractSelectorFallback(t *testing.T) {
	t.Parallel()

	// Only the oldest name layout matches; the table walks down to it.
	exec := &fakeExec{
		found: map[string]bool{"h1.pv-top-card-section__name": true},
		texts: map[string]string{"h1.pv-top-card-section__name": "John Smith"},
	}

	x := NewExtractor(exec, testExtractorConfig(), zap.NewNop())
	profile, err := x.Extract(context.Background(), "https://www.linkedin.com/in/jsmith")
	require.NoError(t, err)
	require.Equal(t, "John Smith", profile.Name)
	require.False(t, profile.Investor.IsInvestor)
	require.InDelta(t, 0, profile.Investor.Confidence, 1e-9)
}

func TestExtractExperienceCapped(t *testing.T) {
	t.Parallel()

	many := make([]string, 20)
	for i := range many {
		many[i] = "Investment Principal position number one"
	}
	exec := &fakeExec{
		counts:       map[string]int{"section#experience-section li": 20},
		elementTexts: map[string][]string{"section#experience-section li": many},
	}

	cfg := testExtractorConfig()
	cfg.MaxExperience = 5
	x := NewExtractor(exec, cfg, zap.NewNop())
	profile, err := x.Extract(context.Background(), "https://www.linkedin.com/in/busy")
	require.NoError(t, err)
	require.Len(t, profile.Experience, 5)
}
