// Package analysis provides optional LLM-backed profile analysis and
// outreach drafting on top of the extraction pipeline.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/spacecode-ai/SeedPitcher/internal/linkedin"
)

// ErrDisabled is returned when no LLM backend is configured.
var ErrDisabled = errors.New("llm analysis disabled")

// DraftRequest carries everything the drafting prompt needs.
type DraftRequest struct {
	Profile       linkedin.Profile
	StartupName   string
	ElevatorPitch string
	DeckSummary   string
}

// Analyzer produces free-text analyses and outreach drafts.
type Analyzer interface {
	AnalyzeProfile(ctx context.Context, profile linkedin.Profile) (string, error)
	DraftMessage(ctx context.Context, req DraftRequest) (string, error)
}

// OpenAI is the chat-completions backed Analyzer.
type OpenAI struct {
	client openai.Client
	model  string
}

// Option configures an OpenAI analyzer.
type Option func(*settings)

type settings struct {
	model   string
	baseURL string
}

// WithModel sets the completion model.
func WithModel(model string) Option {
	return func(s *settings) {
		s.model = model
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) {
		s.baseURL = baseURL
	}
}

// NewOpenAI builds an analyzer. An empty API key falls back to the
// OPENAI_API_KEY environment variable inside the client.
func NewOpenAI(apiKey string, opts ...Option) *OpenAI {
	s := settings{model: "gpt-4o"}
	for _, opt := range opts {
		opt(&s)
	}

	var reqOpts []option.RequestOption
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	if s.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.baseURL))
	}

	return &OpenAI{
		client: openai.NewClient(reqOpts...),
		model:  s.model,
	}
}

// AnalyzeProfile asks the model whether the profile belongs to an
// active investor and what their likely focus is.
func (a *OpenAI) AnalyzeProfile(ctx context.Context, profile linkedin.Profile) (string, error) {
	return a.complete(ctx,
		"You are an analyst helping a founder qualify potential investors. Answer in at most four sentences.",
		analyzePrompt(profile),
	)
}

// DraftMessage produces a short personalized outreach message.
func (a *OpenAI) DraftMessage(ctx context.Context, req DraftRequest) (string, error) {
	return a.complete(ctx,
		"You draft concise, personal LinkedIn outreach messages for a founder raising a seed round. Stay under 120 words, no subject line, no placeholders.",
		draftPrompt(req),
	)
}

func (a *OpenAI) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func analyzePrompt(profile linkedin.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Profile of %s\nHeadline: %s\n", profile.Name, profile.Headline)
	if profile.About != "" {
		fmt.Fprintf(&b, "About: %s\n", profile.About)
	}
	if len(profile.Experience) > 0 {
		b.WriteString("Experience:\n")
		for _, exp := range profile.Experience {
			fmt.Fprintf(&b, "- %s\n", exp)
		}
	}
	fmt.Fprintf(&b, "\nKeyword screen: investor=%t confidence=%.2f matches=%s\n",
		profile.Investor.IsInvestor,
		profile.Investor.Confidence,
		strings.Join(profile.Investor.KeywordsFound, ", "),
	)
	b.WriteString("\nIs this person likely an active startup investor, and what do they appear to invest in?")
	return b.String()
}

func draftPrompt(req DraftRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Startup: %s\nPitch: %s\n", req.StartupName, req.ElevatorPitch)
	if req.DeckSummary != "" {
		fmt.Fprintf(&b, "Deck summary: %s\n", req.DeckSummary)
	}
	fmt.Fprintf(&b, "\nRecipient: %s, %s\n", req.Profile.Name, req.Profile.Headline)
	if req.Profile.About != "" {
		fmt.Fprintf(&b, "About them: %s\n", req.Profile.About)
	}
	b.WriteString("\nDraft the outreach message.")
	return b.String()
}

// Disabled is the no-backend Analyzer used when llm.enabled is false.
type Disabled struct{}

func (Disabled) AnalyzeProfile(context.Context, linkedin.Profile) (string, error) {
	return "", ErrDisabled
}

func (Disabled) DraftMessage(context.Context, DraftRequest) (string, error) {
	return "", ErrDisabled
}
