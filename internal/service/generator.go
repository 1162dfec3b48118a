// Package service provides the question/answer logic of the consultant.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/sales-consultant/internal/cache"
	"github.com/capitalize-ai/sales-consultant/internal/llm"
	"github.com/capitalize-ai/sales-consultant/internal/prompt"
	"github.com/capitalize-ai/sales-consultant/pkg/logger"
	"github.com/capitalize-ai/sales-consultant/pkg/metrics"
	"github.com/capitalize-ai/sales-consultant/pkg/tokens"
	"github.com/capitalize-ai/sales-consultant/pkg/tracing"
)

// ApologyMessage is shown instead of an answer when the model call fails.
const ApologyMessage = "Ocorreu um erro ao gerar a resposta. Por favor, tente novamente."

var errEmptyReply = errors.New("model returned no reply")

// GeneratorConfig fixes the model parameters for every call.
type GeneratorConfig struct {
	Model                 string
	Temperature           float64
	MaxTokens             int
	IncludeErrorInApology bool
}

// Result is the outcome of one generation.
type Result struct {
	Text           string
	CacheHit       bool
	Failed         bool
	PromptTokens   int
	ResponseTokens int
	PromptChars    int
	ResponseChars  int
	LatencyMs      int64
}

// GeneratorService turns a question plus the system context into an answer.
type GeneratorService struct {
	client llm.Client
	cfg    GeneratorConfig
	logger *logger.Logger
	tracer trace.Tracer
}

// NewGeneratorService creates a generator around a ready model client.
func NewGeneratorService(client llm.Client, cfg GeneratorConfig, log *logger.Logger) *GeneratorService {
	return &GeneratorService{
		client: client,
		cfg:    cfg,
		logger: log,
		tracer: tracing.Tracer("sales-consultant/service"),
	}
}

// Generate answers userInput. Repeated questions are served from store.
// Model failures never surface as errors: the apology text is returned with
// Failed set, and nothing is cached.
func (s *GeneratorService) Generate(ctx context.Context, store cache.Store, userInput, systemContext string) Result {
	key := cache.Fingerprint(userInput, systemContext)

	if cached, ok := s.lookup(ctx, store, key); ok {
		metrics.RecordCacheLookup(true)
		s.logger.Info("response served from cache", zap.String("cache_key", key))
		return Result{
			Text:           cached,
			CacheHit:       true,
			ResponseTokens: tokens.Estimate(cached),
			ResponseChars:  tokens.Chars(cached),
		}
	}
	metrics.RecordCacheLookup(false)

	fullPrompt := prompt.BuildPrompt(systemContext, userInput)
	res := Result{
		PromptTokens: tokens.Estimate(fullPrompt),
		PromptChars:  tokens.Chars(fullPrompt),
	}
	s.logger.Info("prompt built",
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Int("prompt_chars", res.PromptChars),
	)

	start := time.Now()
	text, err := s.complete(ctx, fullPrompt)
	res.LatencyMs = time.Since(start).Milliseconds()

	if err != nil {
		metrics.RecordLLMRequest(s.client.Name(), "error", time.Since(start).Seconds(), res.PromptTokens, 0)
		s.logger.Error("failed to generate response",
			zap.String("provider", s.client.Name()),
			zap.Int64("latency_ms", res.LatencyMs),
			zap.Error(err),
		)
		res.Failed = true
		res.Text = s.apology(err)
		return res
	}

	res.Text = text
	res.ResponseTokens = tokens.Estimate(text)
	res.ResponseChars = tokens.Chars(text)
	metrics.RecordLLMRequest(s.client.Name(), "success", time.Since(start).Seconds(), res.PromptTokens, res.ResponseTokens)

	s.logger.Info("response generated",
		zap.Int("response_tokens", res.ResponseTokens),
		zap.Int("response_chars", res.ResponseChars),
		zap.Int("interaction_tokens", res.PromptTokens+res.ResponseTokens),
		zap.Int("interaction_chars", res.PromptChars+res.ResponseChars),
		zap.Int64("latency_ms", res.LatencyMs),
	)

	if err := store.Put(ctx, key, text); err != nil {
		s.logger.Warn("failed to cache response", zap.String("cache_key", key), zap.Error(err))
	}

	return res
}

func (s *GeneratorService) lookup(ctx context.Context, store cache.Store, key string) (string, bool) {
	cached, ok, err := store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache lookup failed, treating as miss", zap.String("cache_key", key), zap.Error(err))
		return "", false
	}
	return cached, ok
}

// complete performs the model call, converting panics from provider SDKs
// into errors.
func (s *GeneratorService) complete(ctx context.Context, fullPrompt string) (text string, err error) {
	ctx, span := s.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.provider", s.client.Name()),
		attribute.String("llm.model", s.cfg.Model),
	))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model client panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	resp, err := s.client.Complete(ctx, &llm.CompletionRequest{
		Model:       s.cfg.Model,
		Messages:    []llm.ChatMessage{{Role: "user", Content: fullPrompt}},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errEmptyReply
	}

	span.SetAttributes(
		attribute.Int("llm.tokens_in", resp.TokensIn),
		attribute.Int("llm.tokens_out", resp.TokensOut),
	)

	return llm.ExtractText(resp), nil
}

func (s *GeneratorService) apology(err error) string {
	if s.cfg.IncludeErrorInApology {
		return fmt.Sprintf("%s (%v)", ApologyMessage, err)
	}
	return ApologyMessage
}
