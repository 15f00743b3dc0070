package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/500AN/Question-Bank/config"
	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

var ErrCoachUnavailable = errors.New("coaching service is not configured")

// WeakQuestion is a question the student keeps getting wrong.
type WeakQuestion struct {
	QuestionText  string
	CorrectAnswer string
	Explanation   string
	SuccessRate   float64
}

// CoachingService writes a short study note for the improvement report.
type CoachingService interface {
	Enabled() bool
	StudyNote(ctx context.Context, testTitle string, weak []WeakQuestion) (string, error)
}

type geminiCoach struct {
	generate func(ctx context.Context, prompt string) (string, error)
}

// NewGeminiClient returns nil without an API key; the coach then stays disabled.
func NewGeminiClient(cfg *config.Config) (*genai.Client, error) {
	if cfg.Gemini.ApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. Improvement coaching notes are disabled.")
		return nil, nil
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.Gemini.ApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	return client, nil
}

func NewCoachingService(client *genai.Client, cfg *config.Config) CoachingService {
	if client == nil {
		return &geminiCoach{}
	}
	model := client.GenerativeModel(cfg.Gemini.Model)
	return &geminiCoach{
		generate: func(ctx context.Context, prompt string) (string, error) {
			resp, err := model.GenerateContent(ctx, genai.Text(prompt))
			if err != nil {
				return "", err
			}
			return responseText(resp), nil
		},
	}
}

func (c *geminiCoach) Enabled() bool { return c.generate != nil }

func (c *geminiCoach) StudyNote(ctx context.Context, testTitle string, weak []WeakQuestion) (string, error) {
	if c.generate == nil {
		return "", ErrCoachUnavailable
	}
	if len(weak) == 0 {
		return "", nil
	}
	text, err := c.generate(ctx, buildCoachingPrompt(testTitle, weak))
	if err != nil {
		log.Error().Err(err).Str("test", testTitle).Msg("Gemini API error while writing study note")
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("gemini returned no text content")
	}
	return text, nil
}

func buildCoachingPrompt(testTitle string, weak []WeakQuestion) string {
	var b strings.Builder
	b.WriteString("You are a patient tutor helping a student prepare for a multiple-choice test.\n")
	fmt.Fprintf(&b, "The test is titled %q. Across repeated attempts the student struggled with these questions:\n\n", testTitle)
	for i, q := range weak {
		fmt.Fprintf(&b, "%d. %s\n   Correct answer: %s\n", i+1, q.QuestionText, q.CorrectAnswer)
		if q.Explanation != "" {
			fmt.Fprintf(&b, "   Explanation: %s\n", q.Explanation)
		}
		fmt.Fprintf(&b, "   Success rate so far: %.0f%%\n", q.SuccessRate)
	}
	b.WriteString("\nWrite a short study note of at most 120 words. Name the concepts to revise and one concrete tip for each. ")
	b.WriteString("Do not restate the questions and do not use headings.\n")
	return b.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
