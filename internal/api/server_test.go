package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spacecode-ai/SeedPitcher/internal/config"
	"github.com/spacecode-ai/SeedPitcher/internal/gateway"
	"github.com/spacecode-ai/SeedPitcher/internal/linkedin"
)

// fakeEngine serves canned page content keyed by selector.
type fakeEngine struct {
	texts        map[string]string
	lists        map[string][]string
	source       string
	navErr       error
	disconnected bool
}

func (f *fakeEngine) Navigate(url string) error { return f.navErr }

func (f *fakeEngine) Find(selector, by string) (bool, error) {
	_, ok := f.texts[selector]
	return ok, nil
}

func (f *fakeEngine) FindAll(selector, by string) (int, error) {
	return len(f.lists[selector]), nil
}

func (f *fakeEngine) Text(selector, by string) (string, error) {
	if text, ok := f.texts[selector]; ok {
		return text, nil
	}
	return "", fmt.Errorf("no element matches %s", selector)
}

func (f *fakeEngine) TextAt(selector, by string, index int) (string, error) {
	entries := f.lists[selector]
	if index < 0 || index >= len(entries) {
		return "", fmt.Errorf("index %d out of range for %s", index, selector)
	}
	return entries[index], nil
}

func (f *fakeEngine) Attribute(selector, by, name string) (string, error) {
	return "https://example.com", nil
}

func (f *fakeEngine) AttributeAt(selector, by, name string, index int) (string, error) {
	if entries := f.lists[selector]; index < 0 || index >= len(entries) {
		return "", fmt.Errorf("index %d out of range for %s", index, selector)
	}
	return fmt.Sprintf("https://example.com/%d", index), nil
}

func (f *fakeEngine) Source() (string, error) { return f.source, nil }

func (f *fakeEngine) WaitFor(selector, by string, timeout time.Duration) error { return nil }

func (f *fakeEngine) Click(selector, by string) error { return nil }

func (f *fakeEngine) TypeText(selector, by, text string) error { return nil }

func (f *fakeEngine) Scroll(amount int) error { return nil }

func (f *fakeEngine) Health() gateway.EngineHealth {
	return gateway.EngineHealth{HasBrowser: true, HasContext: true, HasPage: true, Connected: !f.disconnected}
}

func (f *fakeEngine) Close() error { return nil }

func testServer(t *testing.T, engine *fakeEngine, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	return testServerWithFactory(t, func() (gateway.Engine, error) { return engine, nil }, mutate)
}

func testServerWithFactory(t *testing.T, factory gateway.EngineFactory, mutate func(*config.Config)) *httptest.Server {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Gateway.PollIntervalMs = 20
	cfg.Gateway.DefaultDeadlineSec = 2
	cfg.Gateway.StartTimeoutSec = 5
	if mutate != nil {
		mutate(&cfg)
	}

	gw := gateway.New(gateway.Config{
		QueueDepth:      cfg.Gateway.QueueDepth,
		PollInterval:    cfg.Gateway.PollInterval(),
		DefaultDeadline: cfg.Gateway.DefaultDeadline(),
		StartTimeout:    cfg.Gateway.StartTimeout(),
		StartAttempts:   cfg.Gateway.StartAttempts,
		StartRetryDelay: 10 * time.Millisecond,
	}, factory, zap.NewNop())
	require.NoError(t, gw.Start(context.Background()))
	t.Cleanup(func() { _, _ = gw.Close(context.Background()) })

	extractor := linkedin.NewExtractor(gw, linkedin.Config{
		NavAttempts:     2,
		SettleBase:      time.Millisecond,
		SettleStep:      time.Millisecond,
		MaxExperience:   5,
		CommandDeadline: 2 * time.Second,
	}, zap.NewNop())

	srv := httptest.NewServer(NewServer(gw, extractor, cfg, zap.NewNop(), Options{}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp, decodeResponse(t, resp)
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	return resp, decodeResponse(t, resp)
}

func decodeResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestNavigateEndpoint(t *testing.T) {
	srv := testServer(t, &fakeEngine{}, nil)

	resp, body := postJSON(t, srv.URL+"/navigate", map[string]any{"url": "https://example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	require.Equal(t, "https://example.com", body["url"])

	resp, body = postJSON(t, srv.URL+"/navigate", map[string]any{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body["error"], "url is required")
}

func TestFindElementEndpoint(t *testing.T) {
	srv := testServer(t, &fakeEngine{texts: map[string]string{"h1": "Hello"}}, nil)

	resp, body := postJSON(t, srv.URL+"/find_element", map[string]any{"selector": "h1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["found"])
	require.Equal(t, "Hello", body["text"], "presence is followed by a text read")

	resp, body = postJSON(t, srv.URL+"/find_element", map[string]any{"selector": "#missing"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, false, body["success"])
	require.Equal(t, false, body["found"])

	resp, _ = postJSON(t, srv.URL+"/find_element", map[string]any{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFindElementAttributeMode(t *testing.T) {
	srv := testServer(t, &fakeEngine{texts: map[string]string{"a.profile": "Profile"}}, nil)

	resp, body := postJSON(t, srv.URL+"/find_element", map[string]any{
		"selector":  "a.profile",
		"attribute": "href",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["found"])
	require.Equal(t, "https://example.com", body["attribute_value"])
	require.NotContains(t, body, "text", "attribute mode skips the text read")
}

func TestFindElementsEndpoint(t *testing.T) {
	engine := &fakeEngine{lists: map[string][]string{
		"li.result": {"first entry", "second entry"},
	}}
	srv := testServer(t, engine, nil)

	resp, body := postJSON(t, srv.URL+"/find_elements", map[string]any{"selector": "li.result"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", body["status"])
	require.Equal(t, float64(2), body["count"])
	elements, ok := body["elements"].([]any)
	require.True(t, ok)
	require.Len(t, elements, 2)
	first, ok := elements[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "first entry", first["text"])
}

func TestFindElementsZeroMatchesReturns404(t *testing.T) {
	srv := testServer(t, &fakeEngine{}, nil)

	resp, body := postJSON(t, srv.URL+"/find_elements", map[string]any{"selector": ".absent"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, false, body["success"])
	require.Equal(t, "not_found", body["status"])
	require.Contains(t, body["message"], ".absent")
}

func TestFindElementsAttributeMode(t *testing.T) {
	engine := &fakeEngine{lists: map[string][]string{
		"a.card": {"one", "two"},
	}}
	srv := testServer(t, engine, nil)

	resp, body := postJSON(t, srv.URL+"/find_elements", map[string]any{
		"selector":  "a.card",
		"attribute": "href",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	elements, ok := body["elements"].([]any)
	require.True(t, ok)
	require.Len(t, elements, 2)
	second, ok := elements[1].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "https://example.com/1", second["attribute_value"])
}

func TestPageSourceEndpoint(t *testing.T) {
	srv := testServer(t, &fakeEngine{source: "<html><body>hi</body></html>"}, nil)

	resp, body := getJSON(t, srv.URL+"/page_source")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "<html><body>hi</body></html>", body["content"])
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t, &fakeEngine{}, nil)

	resp, body := getJSON(t, srv.URL+"/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ready", body["status"])
	require.Equal(t, true, body["ready"])

	detail, ok := body["detail"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, detail["has_browser_object"])
	require.Equal(t, true, detail["is_connected"])
}

func TestLinkedinProfileEndpoint(t *testing.T) {
	engine := &fakeEngine{
		texts: map[string]string{
			"h1.text-heading-xlarge": "Jane Doe",
			"div.text-body-medium":   "Angel investor backing seed stage founders",
		},
		lists: map[string][]string{
			"section#experience-section li": {
				"General Partner at Acme Ventures since 2019",
			},
		},
	}
	srv := testServer(t, engine, nil)

	resp, body := getJSON(t, srv.URL+"/linkedin_profile?url=https://www.linkedin.com/in/janedoe")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "success", body["status"])
	require.Equal(t, true, body["success"])
	require.Equal(t, true, body["meets_threshold"])

	profile, ok := body["profile"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Jane Doe", profile["name"])
	require.Equal(t, "Angel investor backing seed stage founders", profile["headline"])
	require.NotEmpty(t, profile["investment_roles"])

	analysis, ok := body["analysis"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, analysis["is_investor"])
	require.Greater(t, analysis["confidence"].(float64), 0.0)
	require.NotEmpty(t, analysis["investor_keywords_found"])

	score, ok := body["score"].(map[string]any)
	require.True(t, ok)
	require.Greater(t, score["final_score"].(float64), 0.5)
}

func TestLinkedinProfileInvestorAnalysis(t *testing.T) {
	engine := &fakeEngine{
		texts: map[string]string{
			"h1.text-heading-xlarge": "Pat Example",
			"div.text-body-medium":   "Partner at Early Stage Ventures",
		},
	}
	srv := testServer(t, engine, nil)

	resp, body := postJSON(t, srv.URL+"/linkedin_profile", map[string]any{
		"url": "https://www.linkedin.com/in/example",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	analysis, ok := body["analysis"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, analysis["is_investor"])
	confidence := analysis["confidence"].(float64)
	require.GreaterOrEqual(t, confidence, 0.5)
	require.LessOrEqual(t, confidence, 0.95)

	keywords, ok := analysis["investor_keywords_found"].([]any)
	require.True(t, ok)
	require.Contains(t, keywords, "partner")
	require.Contains(t, keywords, "early stage")

	profile, ok := body["profile"].(map[string]any)
	require.True(t, ok)
	require.ElementsMatch(t, keywords, profile["investment_roles"])
}

func TestLinkedinProfileRejectsNonProfileURL(t *testing.T) {
	srv := testServer(t, &fakeEngine{}, nil)

	resp, body := getJSON(t, srv.URL+"/linkedin_profile?url=https://example.com")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body["error"], "linkedin.com")

	resp, _ = getJSON(t, srv.URL+"/linkedin_profile")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScoreInvestorEndpoint(t *testing.T) {
	srv := testServer(t, &fakeEngine{}, nil)

	resp, body := postJSON(t, srv.URL+"/score_investor", map[string]any{
		"headline": "General Partner at Acme Ventures",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])

	classification, ok := body["classification"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, classification["is_investor"])
	require.Greater(t, body["composite_score"].(float64), 0.0)

	resp, _ = postJSON(t, srv.URL+"/score_investor", map[string]any{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDraftMessageDisabled(t *testing.T) {
	engine := &fakeEngine{texts: map[string]string{"h1.text-heading-xlarge": "Jane Doe"}}
	srv := testServer(t, engine, nil)

	resp, body := postJSON(t, srv.URL+"/draft_message", map[string]any{
		"url": "https://www.linkedin.com/in/janedoe",
	})
	require.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	require.Contains(t, body["error"], "disabled")
}

func TestCloseThenAutoRestart(t *testing.T) {
	srv := testServer(t, &fakeEngine{}, nil)

	resp, body := postJSON(t, srv.URL+"/close", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])

	// Closing twice stays successful.
	resp, _ = postJSON(t, srv.URL+"/close", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The next command restarts the gateway inline.
	resp, body = postJSON(t, srv.URL+"/navigate", map[string]any{"url": "https://example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
}

func TestEngineFailureTriggersRecycle(t *testing.T) {
	broken := &fakeEngine{navErr: errors.New("target closed"), disconnected: true}
	healthy := &fakeEngine{}
	var built atomic.Int32
	factory := func() (gateway.Engine, error) {
		if built.Add(1) == 1 {
			return broken, nil
		}
		return healthy, nil
	}
	srv := testServerWithFactory(t, factory, nil)

	resp, body := postJSON(t, srv.URL+"/navigate", map[string]any{"url": "https://example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	require.Equal(t, int32(2), built.Load(), "disconnected engine must be replaced")
}

func TestAPIKeyMiddleware(t *testing.T) {
	srv := testServer(t, &fakeEngine{}, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.Auth.APIKey = "secret"
	})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	decodeResponse(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	decodeResponse(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
