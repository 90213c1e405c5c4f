// Package llm grades essay answers through an OpenAI-compatible chat API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stemsi/exam-portal/internal/grading"
	"golang.org/x/time/rate"
)

const DefaultTemperature = 0.3

var (
	ErrNoChoices     = errors.New("LLM returned no choices")
	ErrEmptyResponse = errors.New("LLM returned an empty response")
)

var promptTmpl = template.Must(template.New("grade").Parse(`You are an expert teacher assistant.
Task: Grade the following student answer for an exam question based on the provided model answer.

Question: "{{.QuestionText}}"
Max Points: {{.MaxPoints}}
Model Answer: "{{.ModelAnswer}}"
Student Answer: "{{.StudentAnswer}}"

Instructions:
1. Evaluate the student answer accuracy against the model answer.
2. Assign a score between 0 and {{.MaxPoints}}.
3. Provide brief, constructive feedback in {{.Language}}.

Respond ONLY with a JSON object: {"score": <number 0 to {{.MaxPoints}}>, "feedback": "<feedback>"}
`))

// Config configures the grader client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	// RequestsPerSecond limits outgoing calls; zero disables limiting.
	RequestsPerSecond float64
	// FeedbackLanguage is the language the model should answer in.
	FeedbackLanguage string
}

// Grader implements grading.EssayGrader.
type Grader struct {
	api         *openai.Client
	model       string
	temperature float32
	language    string
	limiter     *rate.Limiter
	log         zerolog.Logger
}

// New creates a grader for an OpenAI-compatible endpoint.
func New(cfg Config, log zerolog.Logger) *Grader {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	temp := cfg.Temperature
	if temp == 0 {
		temp = DefaultTemperature
	}
	lang := cfg.FeedbackLanguage
	if lang == "" {
		lang = "Arabic"
	}

	g := &Grader{
		api:         openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: temp,
		language:    lang,
		log:         log.With().Str("component", "llm_grader").Logger(),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return g
}

// GradeEssay asks the model for a score and feedback.
func (g *Grader) GradeEssay(ctx context.Context, req grading.EssayRequest) (grading.EssayGrade, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return grading.EssayGrade{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	prompt, err := buildPrompt(req, g.language)
	if err != nil {
		return grading.EssayGrade{}, err
	}

	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: g.temperature,
	})
	if err != nil {
		return grading.EssayGrade{}, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return grading.EssayGrade{}, ErrNoChoices
	}

	raw := resp.Choices[0].Message.Content
	g.log.Debug().Str("raw", raw).Msg("LLM grading response")

	return parseGrade(raw)
}

func buildPrompt(req grading.EssayRequest, language string) (string, error) {
	var buf bytes.Buffer
	err := promptTmpl.Execute(&buf, map[string]any{
		"QuestionText":  req.QuestionText,
		"ModelAnswer":   req.ModelAnswer,
		"StudentAnswer": req.StudentAnswer,
		"MaxPoints":     req.MaxPoints,
		"Language":      language,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// parseGrade decodes the model's JSON. Both fields are required.
func parseGrade(raw string) (grading.EssayGrade, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return grading.EssayGrade{}, ErrEmptyResponse
	}

	var out struct {
		Score    *float64 `json:"score"`
		Feedback *string  `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return grading.EssayGrade{}, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	if out.Score == nil || out.Feedback == nil {
		return grading.EssayGrade{}, fmt.Errorf("%w: missing score or feedback", grading.ErrMalformedGrade)
	}
	return grading.EssayGrade{Score: *out.Score, Feedback: *out.Feedback}, nil
}
