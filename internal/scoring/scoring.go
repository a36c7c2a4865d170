// Package scoring implements deterministic investor-relevance scoring
// over extracted profile signals. All functions are pure: identical
// inputs yield identical outputs, no I/O, no shared state.
package scoring

import (
	"sort"
	"strings"
)

// investorKeywords are scanned against headline, experience entries and
// the about section. Matching is a lowercase substring scan.
var investorKeywords = []string{
	"investor", "venture capital", "vc", "angel", "investment", "investing",
	"fund", "capital", "partner at", "seed", "early stage", "managing director",
	"general partner", "principal", "partner", "portfolio",
}

// strongIndicators carry extra weight in the confidence formula.
var strongIndicators = []string{
	"venture capital", "vc", "angel investor", "general partner", "seed investor",
}

// Signals is the profile text consumed by the keyword classifier.
type Signals struct {
	Headline   string
	About      string
	Experience []string
}

// Classification is the keyword-mode output.
type Classification struct {
	IsInvestor          bool     `json:"is_investor"`
	Confidence          float64  `json:"confidence"`
	KeywordMatches      int      `json:"keyword_matches"`
	StrongMatches       int      `json:"strong_matches"`
	SectionsWithMatches int      `json:"sections_with_matches"`
	KeywordsFound       []string `json:"keywords_found"`
}

// WebSignals are secondary signals derived from public web sources,
// consumed by the composite score.
type WebSignals struct {
	RecentInvestments []string `json:"recent_investments"`
	InvestmentStages  []string `json:"investment_stages"`
	InvestmentSectors []string `json:"investment_sectors"`
	StartupSectors    []string `json:"startup_sectors"`
}

// Breakdown decomposes a final score into its components. Derived per
// request, never persisted.
type Breakdown struct {
	ConfidenceComponent float64 `json:"confidence_component"`
	KeywordBonus        float64 `json:"keyword_bonus"`
	FinalScore          float64 `json:"final_score"`
}

// Classify scans the three profile sections for investor keywords and
// derives a confidence in [0, 0.95].
//
// base  = min(0.7, matches*0.1 + sectionsWithMatches*0.2)
// bonus = min(0.3, strongMatches*0.15)
// conf  = min(0.95, base+bonus)
//
// Zero matches anywhere means not an investor, confidence 0.
func Classify(sig Signals) Classification {
	var c Classification
	found := make(map[string]struct{})

	// Experience entries count as one logical section no matter how many
	// entries matched.
	headlineHit := scanSection(sig.Headline, &c, found)
	experienceHit := false
	for _, exp := range sig.Experience {
		if scanSection(exp, &c, found) {
			experienceHit = true
		}
	}
	aboutHit := scanSection(sig.About, &c, found)

	for _, hit := range []bool{headlineHit, experienceHit, aboutHit} {
		if hit {
			c.SectionsWithMatches++
		}
	}

	if c.KeywordMatches == 0 {
		return Classification{}
	}

	c.IsInvestor = true
	base := min(0.7, float64(c.KeywordMatches)*0.1+float64(c.SectionsWithMatches)*0.2)
	bonus := min(0.3, float64(c.StrongMatches)*0.15)
	c.Confidence = min(0.95, base+bonus)

	c.KeywordsFound = make([]string, 0, len(found))
	for kw := range found {
		c.KeywordsFound = append(c.KeywordsFound, kw)
	}
	sort.Strings(c.KeywordsFound)
	return c
}

func scanSection(text string, c *Classification, found map[string]struct{}) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	hit := false
	for _, kw := range investorKeywords {
		if strings.Contains(lower, kw) {
			c.KeywordMatches++
			found[kw] = struct{}{}
			hit = true
		}
	}
	for _, kw := range strongIndicators {
		if strings.Contains(lower, kw) {
			c.StrongMatches++
		}
	}
	return hit
}

// Composite combines a classification with web-derived signals into a
// final score in [0, 1]. A profile not classified as an investor scores 0.
//
// score = confidence*0.5
//       + {>=5: 0.2, 3-4: 0.15, 1-2: 0.1} for recent investments
//       + 0.15 if any stage mentions seed/early
//       + min(overlap/len(investorSectors), 0.15) for sector overlap
func Composite(c Classification, web WebSignals) float64 {
	if !c.IsInvestor {
		return 0
	}

	score := c.Confidence * 0.5

	switch n := len(web.RecentInvestments); {
	case n >= 5:
		score += 0.2
	case n >= 3:
		score += 0.15
	case n >= 1:
		score += 0.1
	}

	stages := strings.ToLower(strings.Join(web.InvestmentStages, " "))
	if strings.Contains(stages, "seed") || strings.Contains(stages, "early") {
		score += 0.15
	}

	if overlap := sectorOverlap(web.InvestmentSectors, web.StartupSectors); overlap > 0 {
		denom := len(web.InvestmentSectors)
		if denom < 1 {
			denom = 1
		}
		score += min(float64(overlap)/float64(denom), 0.15)
	}

	return clamp01(score)
}

// BreakdownFor derives the keyword-bonus score breakdown for an already
// classified profile: confidence plus up to 0.2 for found keywords,
// capped at 0.95.
func BreakdownFor(c Classification) Breakdown {
	if !c.IsInvestor {
		return Breakdown{}
	}
	bonus := min(0.2, float64(len(c.KeywordsFound))*0.05)
	return Breakdown{
		ConfidenceComponent: c.Confidence,
		KeywordBonus:        bonus,
		FinalScore:          min(0.95, c.Confidence+bonus),
	}
}

func sectorOverlap(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	seen := make(map[string]struct{}, len(b))
	overlap := 0
	for _, s := range b {
		key := strings.ToLower(strings.TrimSpace(s))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := set[key]; ok {
			overlap++
		}
	}
	return overlap
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
