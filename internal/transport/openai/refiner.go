package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain/language"
	"github.com/kailas-cloud/askdex/internal/metrics"
)

const systemPrompt = "You are a careful medical information assistant. " +
	"You are given a user question and a verified answer retrieved from a curated Q&A corpus. " +
	"Rephrase the verified answer so it directly addresses the question, in clear language a patient can understand. " +
	"Do not add facts that are not in the verified answer. Do not give a diagnosis."

var languageInstructions = map[language.Language]string{
	language.English: "Respond in English.",
	language.French:  "Respond in French (français).",
	language.Arabic:  "Respond in Arabic (العربية).",
	language.Spanish: "Respond in Spanish (español).",
}

// Refiner rewrites stored answers with an OpenAI-compatible chat model.
type Refiner struct {
	client   *openai.Client
	model    string
	provider string
	timeout  time.Duration
	logger   *zap.Logger
}

// RefinerConfig holds the refinement provider settings.
type RefinerConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewRefiner creates an OpenAI-compatible answer refiner.
func NewRefiner(cfg *RefinerConfig) *Refiner {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &Refiner{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
}

// Refine asks the chat model to rewrite the stored answer for the question
// in the requested language. Unknown languages were normalized to English
// upstream, but the lookup falls back to English here as well.
func (r *Refiner) Refine(
	ctx context.Context, question, storedAnswer string,
	lang language.Language, temperature float32,
) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	instruction, ok := languageInstructions[lang]
	if !ok {
		instruction = languageInstructions[language.English]
	}

	userPrompt := fmt.Sprintf(
		"Question: %s\n\nVerified answer: %s\n\n%s",
		question, storedAnswer, instruction,
	)

	// go-openai marshals Temperature with omitempty, which would drop an
	// explicit 0 and let the provider default apply.
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	start := time.Now()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})

	duration := time.Since(start)

	if err != nil {
		r.logger.Warn("Refinement request failed",
			zap.String("provider", r.provider),
			zap.String("model", r.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", parseRefineError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty refinement response from %s", r.model)
	}

	metrics.RefineRequestDuration.WithLabelValues(r.provider, r.model).Observe(duration.Seconds())

	return resp.Choices[0].Message.Content, nil
}

func parseRefineError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("refinement API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("refinement API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("refinement request failed: %w", err)
}
