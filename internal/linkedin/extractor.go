// Package linkedin extracts structured profile data through the command
// gateway and classifies it with the investor scoring engine.
package linkedin

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spacecode-ai/SeedPitcher/internal/gateway"
	"github.com/spacecode-ai/SeedPitcher/internal/scoring"
)

// Executor runs one browser command to completion. *gateway.Gateway
// satisfies this.
type Executor interface {
	Execute(ctx context.Context, action gateway.Action, params map[string]any, deadline time.Duration) (gateway.Result, error)
}

// Profile is the extracted view of a LinkedIn profile page.
// InvestmentRoles are the investor keywords matched anywhere in the
// profile text, deduplicated.
type Profile struct {
	URL             string                 `json:"url"`
	Name            string                 `json:"name"`
	Headline        string                 `json:"headline"`
	About           string                 `json:"about"`
	Experience      []string               `json:"experience"`
	InvestmentRoles []string               `json:"investment_roles"`
	Investor        scoring.Classification `json:"investor"`
}

// Config tunes the extraction flow.
type Config struct {
	// NavAttempts bounds navigation retries; the settle pause grows by
	// SettleStep on each attempt to let lazy-loaded sections render.
	NavAttempts     int
	SettleBase      time.Duration
	SettleStep      time.Duration
	MaxExperience   int
	CommandDeadline time.Duration
}

func (c Config) withDefaults() Config {
	if c.NavAttempts <= 0 {
		c.NavAttempts = 3
	}
	if c.SettleBase <= 0 {
		c.SettleBase = 3 * time.Second
	}
	if c.SettleStep <= 0 {
		c.SettleStep = 2 * time.Second
	}
	if c.MaxExperience <= 0 {
		c.MaxExperience = 5
	}
	if c.CommandDeadline <= 0 {
		c.CommandDeadline = 10 * time.Second
	}
	return c
}

// Extractor drives profile extraction over an Executor.
type Extractor struct {
	exec   Executor
	cfg    Config
	logger *zap.Logger
}

// NewExtractor builds an Extractor.
func NewExtractor(exec Executor, cfg Config, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{exec: exec, cfg: cfg.withDefaults(), logger: logger}
}

// Extract navigates to the profile URL, pulls each field through its
// selector fallback table and classifies the result. Partial profiles
// are normal: missing sections come back empty, never as errors.
func (x *Extractor) Extract(ctx context.Context, url string) (Profile, error) {
	profile := Profile{URL: url, Experience: []string{}}

	if err := x.navigate(ctx, url); err != nil {
		return profile, err
	}

	profile.Name = x.firstText(ctx, nameSelectors)
	profile.Headline = x.firstText(ctx, headlineSelectors)
	profile.About = x.firstText(ctx, aboutSelectors)
	profile.Experience = x.experienceEntries(ctx)

	profile.Investor = scoring.Classify(scoring.Signals{
		Headline:   profile.Headline,
		About:      profile.About,
		Experience: profile.Experience,
	})
	profile.InvestmentRoles = append([]string{}, profile.Investor.KeywordsFound...)

	x.logger.Info("profile extracted",
		zap.String("url", url),
		zap.String("name", profile.Name),
		zap.Int("experience_entries", len(profile.Experience)),
		zap.Bool("is_investor", profile.Investor.IsInvestor),
		zap.Float64("confidence", profile.Investor.Confidence),
	)
	return profile, nil
}

func (x *Extractor) navigate(ctx context.Context, url string) error {
	var lastErr error
	for attempt := 0; attempt < x.cfg.NavAttempts; attempt++ {
		res, err := x.exec.Execute(ctx, gateway.ActionNavigate, map[string]any{"url": url}, x.cfg.CommandDeadline)
		if err != nil {
			lastErr = err
		} else if !res.Success {
			lastErr = fmt.Errorf("navigate to %s: %s", url, res.Error)
		} else {
			// Let dynamic sections settle; profile pages hydrate after load.
			settle := x.cfg.SettleBase + time.Duration(attempt)*x.cfg.SettleStep
			select {
			case <-time.After(settle):
			case <-ctx.Done():
				return fmt.Errorf("extraction canceled: %w", ctx.Err())
			}
			return nil
		}
		x.logger.Warn("profile navigation attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}
	return fmt.Errorf("navigate to profile after %d attempts: %w", x.cfg.NavAttempts, lastErr)
}

// firstText probes selectors in order and returns the first non-empty
// text. Presence is checked first so a missing layout variant costs one
// cheap query instead of an extraction error.
func (x *Extractor) firstText(ctx context.Context, selectors []string) string {
	for _, sel := range selectors {
		res, err := x.exec.Execute(ctx, gateway.ActionFindElement, map[string]any{"selector": sel}, x.cfg.CommandDeadline)
		if err != nil || !res.Success {
			continue
		}
		res, err = x.exec.Execute(ctx, gateway.ActionGetText, map[string]any{"selector": sel}, x.cfg.CommandDeadline)
		if err != nil || !res.Success {
			continue
		}
		if text, ok := res.Data["text"].(string); ok && text != "" {
			return text
		}
	}
	return ""
}

// experienceEntries walks the experience selector table and returns up
// to MaxExperience entries from the first selector that matches. Very
// short entries are icon labels and list chrome, not positions.
func (x *Extractor) experienceEntries(ctx context.Context) []string {
	for _, sel := range experienceSelectors {
		res, err := x.exec.Execute(ctx, gateway.ActionFindElements, map[string]any{"selector": sel}, x.cfg.CommandDeadline)
		if err != nil || !res.Success {
			continue
		}
		count := intFromData(res.Data, "count")
		if count == 0 {
			continue
		}
		if count > x.cfg.MaxExperience {
			count = x.cfg.MaxExperience
		}

		entries := make([]string, 0, count)
		for i := 0; i < count; i++ {
			res, err := x.exec.Execute(ctx, gateway.ActionGetElementText, map[string]any{
				"selector": sel,
				"index":    i,
			}, x.cfg.CommandDeadline)
			if err != nil || !res.Success {
				continue
			}
			if text, ok := res.Data["text"].(string); ok && len(text) > 10 {
				entries = append(entries, text)
			}
		}
		if len(entries) > 0 {
			return entries
		}
	}
	return []string{}
}

func intFromData(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
