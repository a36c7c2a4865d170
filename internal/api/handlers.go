package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spacecode-ai/SeedPitcher/internal/analysis"
	"github.com/spacecode-ai/SeedPitcher/internal/gateway"
	"github.com/spacecode-ai/SeedPitcher/internal/linkedin"
	"github.com/spacecode-ai/SeedPitcher/internal/scoring"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	report := s.gw.Health()
	status := http.StatusOK
	if !report.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": report.State,
		"ready":  report.Ready,
		"detail": report.Detail,
	})
}

type navigateRequest struct {
	URL string `json:"url"`
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	s.runCommand(w, r, gateway.ActionNavigate, map[string]any{"url": req.URL})
}

type selectorRequest struct {
	Selector  string `json:"selector"`
	By        string `json:"by"`
	Text      string `json:"text"`
	Attribute string `json:"attribute"`
	TimeoutMs int    `json:"timeout_ms"`
}

// findElement checks presence, then follows up with a text or attribute
// read so one round trip answers "is it there and what does it say".
func (s *Server) findElement(w http.ResponseWriter, r *http.Request) {
	var req selectorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Selector == "" {
		writeError(w, http.StatusBadRequest, "selector is required")
		return
	}
	params := map[string]any{"selector": req.Selector}
	if req.By != "" {
		params["by"] = req.By
	}

	res, err := s.run(r.Context(), gateway.ActionFindElement, params)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	if found, _ := res.Data["found"].(bool); found {
		// Follow-up reads are best effort: a stale handle between the
		// two commands leaves the response at bare presence.
		if req.Attribute != "" {
			params["attribute"] = req.Attribute
			if attr, err := s.run(r.Context(), gateway.ActionGetAttribute, params); err == nil && attr.Success {
				res.Data["attribute_value"] = attr.Data["attribute_value"]
			}
		} else if text, err := s.run(r.Context(), gateway.ActionGetText, params); err == nil && text.Success {
			res.Data["text"] = text.Data["text"]
		}
	}
	s.writeResult(w, res)
}

func (s *Server) findElements(w http.ResponseWriter, r *http.Request) {
	s.selectorCommand(w, r, gateway.ActionFindElements, func(req selectorRequest, params map[string]any) {
		if req.Attribute != "" {
			params["attribute"] = req.Attribute
		}
	})
}

func (s *Server) click(w http.ResponseWriter, r *http.Request) {
	s.selectorCommand(w, r, gateway.ActionClick, nil)
}

func (s *Server) typeText(w http.ResponseWriter, r *http.Request) {
	s.selectorCommand(w, r, gateway.ActionTypeText, func(req selectorRequest, params map[string]any) {
		params["text"] = req.Text
	})
}

func (s *Server) waitForElement(w http.ResponseWriter, r *http.Request) {
	s.selectorCommand(w, r, gateway.ActionWaitForSelector, func(req selectorRequest, params map[string]any) {
		if req.TimeoutMs > 0 {
			params["timeout"] = req.TimeoutMs
		}
	})
}

func (s *Server) selectorCommand(
	w http.ResponseWriter,
	r *http.Request,
	action gateway.Action,
	extend func(selectorRequest, map[string]any),
) {
	var req selectorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Selector == "" {
		writeError(w, http.StatusBadRequest, "selector is required")
		return
	}
	params := map[string]any{"selector": req.Selector}
	if req.By != "" {
		params["by"] = req.By
	}
	if extend != nil {
		extend(req, params)
	}
	s.runCommand(w, r, action, params)
}

type scrollRequest struct {
	Amount int `json:"amount"`
}

func (s *Server) scroll(w http.ResponseWriter, r *http.Request) {
	var req scrollRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	params := map[string]any{}
	if req.Amount != 0 {
		params["amount"] = req.Amount
	}
	s.runCommand(w, r, gateway.ActionScroll, params)
}

func (s *Server) pageSource(w http.ResponseWriter, r *http.Request) {
	s.runCommand(w, r, gateway.ActionGetPageSource, nil)
}

func (s *Server) closeBrowser(w http.ResponseWriter, r *http.Request) {
	res, err := s.gw.Close(r.Context())
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	s.writeResult(w, res)
}

func (s *Server) runCommand(w http.ResponseWriter, r *http.Request, action gateway.Action, params map[string]any) {
	res, err := s.run(r.Context(), action, params)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	s.writeResult(w, res)
}

// run executes one command, recycling the engine and retrying once when
// a failure coincides with a lost session handle.
func (s *Server) run(ctx context.Context, action gateway.Action, params map[string]any) (gateway.Result, error) {
	res, err := s.execute(ctx, action, params)
	if err == nil && res.Error != "" && !s.gw.Health().Detail.Connected {
		s.logger.Warn("engine disconnected, recycling", zap.String("action", string(action)))
		if rerr := s.gw.Recycle(ctx); rerr != nil {
			s.logger.Error("engine recycle failed", zap.Error(rerr))
		} else {
			res, err = s.execute(ctx, action, params)
		}
	}
	return res, err
}

type profileRequest struct {
	URL string `json:"url"`
}

func (s *Server) linkedinProfile(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" && r.Method == http.MethodPost {
		var req profileRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		url = req.URL
	}
	if url == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if !strings.Contains(url, "linkedin.com/in") {
		writeError(w, http.StatusBadRequest, "url must be a linkedin.com profile")
		return
	}

	profile, err := s.extractProfile(r.Context(), url)
	if err != nil {
		if errors.Is(err, gateway.ErrEngineUnavailable) && s.cfg.Scoring.FallbackConfidence > 0 {
			// Degraded answer: no extraction, just the configured floor.
			writeJSON(w, http.StatusOK, map[string]any{
				"status":   "success",
				"success":  true,
				"degraded": true,
				"profile":  map[string]any{"url": url},
				"analysis": map[string]any{
					"is_investor":             false,
					"confidence":              s.cfg.Scoring.FallbackConfidence,
					"url":                     url,
					"investor_keywords_found": []string{},
				},
				"score": map[string]any{
					"final_score": s.cfg.Scoring.FallbackConfidence,
				},
			})
			return
		}
		s.writeCommandError(w, err)
		return
	}

	breakdown := scoring.BreakdownFor(profile.Investor)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"success": true,
		"profile": profile,
		"analysis": map[string]any{
			"is_investor":             profile.Investor.IsInvestor,
			"confidence":              profile.Investor.Confidence,
			"url":                     url,
			"investor_keywords_found": profile.InvestmentRoles,
		},
		"score":           breakdown,
		"meets_threshold": breakdown.FinalScore >= s.cfg.Scoring.InvestorThreshold,
	})
}

// extractProfile runs the composite extraction flow with the longer
// profile deadline, restarting a dead gateway once first.
func (s *Server) extractProfile(ctx context.Context, url string) (linkedin.Profile, error) {
	if !s.gw.Running() {
		if err := s.gw.Start(ctx); err != nil {
			return linkedin.Profile{URL: url}, gateway.ErrEngineUnavailable
		}
	}
	deadline := time.Duration(s.cfg.Gateway.ProfileDeadlineSec) * time.Second
	if deadline <= 0 {
		deadline = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	return s.extractor.Extract(ctx, url)
}

type scoreRequest struct {
	Headline       string   `json:"headline"`
	About          string   `json:"about"`
	Experience     []string `json:"experience"`
	FundURL        string   `json:"fund_url"`
	StartupSectors []string `json:"startup_sectors"`
}

func (s *Server) scoreInvestor(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Headline == "" && req.About == "" && len(req.Experience) == 0 {
		writeError(w, http.StatusBadRequest, "at least one of headline, about or experience is required")
		return
	}

	classification := scoring.Classify(scoring.Signals{
		Headline:   req.Headline,
		About:      req.About,
		Experience: req.Experience,
	})

	web := scoring.WebSignals{StartupSectors: req.StartupSectors}
	if req.FundURL != "" && s.enricher != nil {
		signals, err := s.enricher.FundSignals(r.Context(), req.FundURL)
		if err != nil {
			s.logger.Warn("fund enrichment failed", zap.String("fund_url", req.FundURL), zap.Error(err))
		} else {
			signals.StartupSectors = req.StartupSectors
			web = signals
		}
	}

	composite := scoring.Composite(classification, web)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"classification":  classification,
		"breakdown":       scoring.BreakdownFor(classification),
		"composite_score": composite,
		"is_relevant":     composite >= s.cfg.Scoring.InvestorThreshold,
	})
}

type draftRequest struct {
	URL           string `json:"url"`
	StartupName   string `json:"startup_name"`
	ElevatorPitch string `json:"elevator_pitch"`
}

func (s *Server) draftMessage(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.StartupName == "" {
		req.StartupName = s.cfg.Startup.Name
	}
	if req.ElevatorPitch == "" {
		req.ElevatorPitch = s.cfg.Startup.ElevatorPitch
	}

	profile, err := s.extractProfile(r.Context(), req.URL)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}

	message, err := s.analyzer.DraftMessage(r.Context(), analysis.DraftRequest{
		Profile:       profile,
		StartupName:   req.StartupName,
		ElevatorPitch: req.ElevatorPitch,
		DeckSummary:   s.deckSummary,
	})
	if err != nil {
		if errors.Is(err, analysis.ErrDisabled) {
			writeError(w, http.StatusNotImplemented, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"profile": profile,
	})
}
