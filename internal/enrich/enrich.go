// Package enrich scrapes public fund websites for investment signals
// that feed the composite relevance score.
package enrich

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/spacecode-ai/SeedPitcher/internal/scoring"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	Timeout       time.Duration
	MaxPortfolio  int
	RespectRobots bool
}

var stageKeywords = []string{
	"pre-seed",
	"seed",
	"early stage",
	"series a",
	"series b",
	"angel",
}

var sectorKeywords = []string{
	"ai",
	"machine learning",
	"fintech",
	"healthcare",
	"biotech",
	"saas",
	"climate",
	"cybersecurity",
	"developer tools",
	"consumer",
	"marketplace",
	"deep tech",
}

// Collector scrapes fund websites into scoring.WebSignals.
type Collector struct {
	cfg    Config
	base   *colly.Collector
	logger *zap.Logger
}

// New builds a Collector. The base collector is cloned per fetch so
// callbacks never accumulate across requests.
func New(cfg Config, logger *zap.Logger) *Collector {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "seedpitcher-bot/0.1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxPortfolio <= 0 {
		cfg.MaxPortfolio = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		cfg:    cfg,
		base:   colly.NewCollector(colly.Async(false)),
		logger: logger,
	}
}

// FundSignals fetches one fund page and extracts stage, sector and
// portfolio signals from its visible text and portfolio links.
func (c *Collector) FundSignals(ctx context.Context, url string) (scoring.WebSignals, error) {
	if err := ctx.Err(); err != nil {
		return scoring.WebSignals{}, fmt.Errorf("enrich canceled: %w", err)
	}

	collector := c.base.Clone()
	collector.UserAgent = c.cfg.UserAgent
	collector.IgnoreRobotsTxt = !c.cfg.RespectRobots
	collector.SetRequestTimeout(c.cfg.Timeout)

	var (
		signals   scoring.WebSignals
		portfolio []string
		fetchErr  error
	)

	collector.OnHTML("body", func(e *colly.HTMLElement) {
		text := strings.ToLower(e.Text)
		signals.InvestmentStages = matchKeywords(text, stageKeywords)
		signals.InvestmentSectors = matchKeywords(text, sectorKeywords)
	})

	collector.OnHTML("a[href*='portfolio'], section.portfolio a, div.portfolio a, ul.portfolio li", func(e *colly.HTMLElement) {
		name := strings.TrimSpace(e.Text)
		if name == "" || strings.EqualFold(name, "portfolio") {
			return
		}
		portfolio = append(portfolio, name)
	})

	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch %s: %w", url, err)
	})

	if err := collector.Visit(url); err != nil {
		return scoring.WebSignals{}, fmt.Errorf("visit %s: %w", url, err)
	}
	collector.Wait()
	if fetchErr != nil {
		return scoring.WebSignals{}, fetchErr
	}

	signals.RecentInvestments = dedupe(portfolio, c.cfg.MaxPortfolio)
	c.logger.Debug("fund signals collected",
		zap.String("url", url),
		zap.Int("portfolio", len(signals.RecentInvestments)),
		zap.Strings("stages", signals.InvestmentStages),
	)
	return signals, nil
}

func matchKeywords(text string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func dedupe(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	sort.Strings(out)
	return out
}
