// Package gemini implements the generation.Generator port using Google's
// Gemini API to propose distractor candidates for multiple-choice questions.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"text/template"
	"time"

	"google.golang.org/genai"

	"github.com/prepforge/practice-api/internal/config"
	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/generation"
)

// defaultPromptTemplate asks the model for wrong-but-plausible options in a
// strict JSON shape so the response can be unmarshaled directly.
const defaultPromptTemplate = `You are generating answer options for a multiple-choice exam question.

Question: {{.QuestionText}}
Topic: {{.Topic}}
Difficulty: {{.Difficulty}}
Correct answer: {{.CorrectAnswer}}

Produce exactly {{.Count}} distinct distractors. Each must be:
- factually wrong but plausible to a student who partially knows the topic
- similar in length and register to the correct answer
- free of absolute qualifiers like "always", "never", or "impossible"
- not a restatement of the correct answer

Respond with JSON only, no prose, in this shape:
{"distractors": ["...", "..."]}`

// responseSchema is the JSON shape the prompt instructs the model to emit.
type responseSchema struct {
	Distractors []string `json:"distractors"`
}

// promptData carries template parameters for a single generation request.
type promptData struct {
	QuestionText  string
	Topic         string
	Difficulty    string
	CorrectAnswer string
	Count         int
}

// Generator calls the Gemini API to propose distractor candidates. It
// implements generation.Generator with exponential backoff on transient
// failures.
type Generator struct {
	logger         *slog.Logger
	config         config.LLMConfig
	promptTemplate *template.Template
	client         *genai.Client
	model          string
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Gemini-backed distractor generator.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model name cannot be empty")
	}

	promptTemplate, err := template.New("distractors").Parse(defaultPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Generator{
		logger:         logger.With(slog.String("component", "gemini_generator")),
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// ProposeDistractors implements generation.Generator.
func (g *Generator) ProposeDistractors(
	ctx context.Context,
	question *domain.Question,
	count int,
) ([]string, error) {
	if question == nil {
		return nil, fmt.Errorf("%w: question is nil", generation.ErrInvalidResponse)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", generation.ErrInvalidResponse)
	}

	prompt, err := g.buildPrompt(question, count)
	if err != nil {
		return nil, generation.NewGenerationError(question.Topic, err)
	}

	response, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, generation.NewGenerationError(question.Topic, err)
	}

	candidates := make([]string, 0, len(response.Distractors))
	for _, d := range response.Distractors {
		d = strings.TrimSpace(d)
		if d != "" {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil, generation.NewGenerationError(question.Topic, generation.ErrEmptyResponse)
	}

	g.logger.DebugContext(ctx, "Gemini proposed distractor candidates",
		slog.String("question_id", question.ID.String()),
		slog.Int("candidate_count", len(candidates)))

	return candidates, nil
}

// buildPrompt renders the prompt template for a question.
func (g *Generator) buildPrompt(question *domain.Question, count int) (string, error) {
	data := promptData{
		QuestionText:  question.Text,
		Topic:         question.Topic,
		Difficulty:    string(question.Difficulty),
		CorrectAnswer: question.CorrectAnswer,
		Count:         count,
	}

	var buf bytes.Buffer
	if err := g.promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// callWithRetry makes the Gemini API call with exponential backoff and
// jitter. Permanent errors (blocked content, unparseable output) return
// immediately; transient errors retry up to config.MaxRetries times.
func (g *Generator) callWithRetry(ctx context.Context, prompt string) (*responseSchema, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	baseDelaySeconds := g.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		response, transient, err := g.callOnce(ctx, prompt)
		if err == nil {
			return response, nil
		}

		g.logger.WarnContext(ctx, "Gemini API call failed",
			slog.Int("attempt", attempt+1),
			slog.Bool("transient", transient),
			slog.String("error", err.Error()))

		if !transient {
			return nil, err
		}
		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrGenerationFailed, maxRetries, err)
		}

		// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5))
		backoff := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitter := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoff * jitter * float64(time.Second))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// callOnce performs a single API call. The bool return reports whether a
// failure is worth retrying.
func (g *Generator) callOnce(ctx context.Context, prompt string) (*responseSchema, bool, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, false, fmt.Errorf("%w: no candidates returned", generation.ErrEmptyResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, false, fmt.Errorf("%w: safety filters rejected the prompt", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return nil, false, fmt.Errorf("%w: candidate has no content", generation.ErrEmptyResponse)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" {
			text.WriteString(part.Text)
		}
	}

	parsed, err := parseResponseText(text.String())
	if err != nil {
		return nil, false, err
	}
	return parsed, false, nil
}

// parseResponseText unmarshals the model output, tolerating markdown code
// fences around the JSON body.
func parseResponseText(text string) (*responseSchema, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if text == "" {
		return nil, fmt.Errorf("%w: empty response body", generation.ErrEmptyResponse)
	}

	var parsed responseSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON: %v", generation.ErrInvalidResponse, err)
	}
	if len(parsed.Distractors) == 0 {
		return nil, fmt.Errorf("%w: no distractors in response", generation.ErrEmptyResponse)
	}
	return &parsed, nil
}
