// Package openai provides an LLM service adapter using OpenAI API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "gpt-4o-mini"
	DefaultTimeout    = 120 * time.Second
	DefaultBurst      = 1
	DefaultReqsPerMin = 30
)

const providerName = "openai-llm"

// Config holds configuration for the OpenAI LLM service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// RequestsPerMinute caps the outbound request rate (default: 30).
	RequestsPerMinute int
}

// LLMService scores note pairs and suggests tags using OpenAI API.
type LLMService struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	apiKey  string
	model   string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w: API key", domain.ErrMissingCredentials)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = DefaultReqsPerMin
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), DefaultBurst),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// scorePairsPrompt asks for a strict JSON array so the response parses
// without heuristics. The excerpts are truncated upstream.
const scorePairsPrompt = `You are rating how related pairs of personal notes are.
For each numbered pair below, rate the semantic relatedness of the two notes
on a scale of 0 to 10, where 0 means unrelated and 10 means they cover the
same topic. Consider shared concepts, not shared phrasing.

Respond with ONLY a JSON array of numbers, one score per pair, in order.
Example response for three pairs: [7.5, 2.0, 9.0]

%s`

// suggestTagsPrompt asks for a strict JSON array of tag strings.
const suggestTagsPrompt = `Suggest up to %d topic tags for the following note.
Tags must be lowercase, single words or hyphenated phrases, and describe the
note's subject matter. Respond with ONLY a JSON array of strings.
Example response: ["distributed-systems", "consensus"]

Note:
%s`

// ScorePairs asks the model to rate each candidate pair on a 0-10 scale.
// Results come back in submission order with scores clamped to range.
func (s *LLMService) ScorePairs(ctx context.Context, candidates []domain.PairCandidate) ([]driven.PairScoreResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var pairs strings.Builder
	for i, candidate := range candidates {
		fmt.Fprintf(&pairs, "Pair %d:\nNote A (%s):\n%s\n\nNote B (%s):\n%s\n\n",
			i+1, candidate.Title1, candidate.Excerpt1, candidate.Title2, candidate.Excerpt2)
	}

	content, err := s.chatCompletion(ctx, fmt.Sprintf(scorePairsPrompt, pairs.String()), 256)
	if err != nil {
		return nil, err
	}

	var scores []float64
	if err := json.Unmarshal([]byte(extractJSON(content)), &scores); err != nil {
		return nil, &domain.ProviderError{
			Provider: providerName,
			Message:  fmt.Sprintf("unparseable score response: %v", err),
			Kind:     domain.ErrorKindContent,
		}
	}
	if len(scores) != len(candidates) {
		return nil, &domain.ProviderError{
			Provider: providerName,
			Message:  fmt.Sprintf("expected %d scores, got %d", len(candidates), len(scores)),
			Kind:     domain.ErrorKindContent,
		}
	}

	results := make([]driven.PairScoreResult, len(candidates))
	for i, candidate := range candidates {
		results[i] = driven.PairScoreResult{
			ID1:   candidate.ID1,
			ID2:   candidate.ID2,
			Score: clampScore(scores[i]),
		}
	}
	return results, nil
}

// SuggestTags proposes up to maxTags topic tags for note content.
func (s *LLMService) SuggestTags(ctx context.Context, content string, maxTags int) ([]string, error) {
	if maxTags <= 0 {
		return nil, nil
	}

	response, err := s.chatCompletion(ctx, fmt.Sprintf(suggestTagsPrompt, maxTags, content), 128)
	if err != nil {
		return nil, err
	}

	var tags []string
	if err := json.Unmarshal([]byte(extractJSON(response)), &tags); err != nil {
		return nil, &domain.ProviderError{
			Provider: providerName,
			Message:  fmt.Sprintf("unparseable tag response: %v", err),
			Kind:     domain.ErrorKindContent,
		}
	}

	cleaned := make([]string, 0, maxTags)
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		cleaned = append(cleaned, tag)
		if len(cleaned) >= maxTags {
			break
		}
	}
	return cleaned, nil
}

// chatCompletion sends a single-turn chat request and returns the message
// content. Failures come back as *domain.ProviderError.
func (s *LLMService) chatCompletion(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	reqBody := chatCompletionRequest{
		Model:       s.model,
		Messages:    []chatCompletionMsg{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: 0.1,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &domain.ProviderError{
			Provider: providerName,
			Message:  err.Error(),
			Kind:     domain.ErrorKindTransient,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := string(body)
		if chatResp.Error != nil {
			message = chatResp.Error.Message
		}
		return "", &domain.ProviderError{
			Provider:   providerName,
			Message:    message,
			StatusCode: resp.StatusCode,
			Kind:       domain.ClassifyStatus(resp.StatusCode),
		}
	}

	if chatResp.Error != nil {
		return "", &domain.ProviderError{
			Provider: providerName,
			Message:  chatResp.Error.Message,
			Kind:     domain.ErrorKindContent,
		}
	}

	if len(chatResp.Choices) == 0 {
		return "", &domain.ProviderError{
			Provider: providerName,
			Message:  "no response choices returned",
			Kind:     domain.ErrorKindContent,
		}
	}

	return chatResp.Choices[0].Message.Content, nil
}

// extractJSON strips markdown code fences and surrounding prose from a
// model response, returning the first JSON array found.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}

// clampScore bounds a model score to the 0-10 range.
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return &domain.ProviderError{
			Provider:   providerName,
			Message:    string(body),
			StatusCode: resp.StatusCode,
			Kind:       domain.ClassifyStatus(resp.StatusCode),
		}
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
