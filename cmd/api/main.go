// Package main is the entry point for the consultant chat server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/capitalize-ai/sales-consultant/internal/config"
	"github.com/capitalize-ai/sales-consultant/internal/handler"
	"github.com/capitalize-ai/sales-consultant/internal/llm"
	"github.com/capitalize-ai/sales-consultant/internal/materials"
	"github.com/capitalize-ai/sales-consultant/internal/middleware"
	natsclient "github.com/capitalize-ai/sales-consultant/internal/nats"
	"github.com/capitalize-ai/sales-consultant/internal/prompt"
	"github.com/capitalize-ai/sales-consultant/internal/service"
	"github.com/capitalize-ai/sales-consultant/internal/session"
	"github.com/capitalize-ai/sales-consultant/pkg/logger"
	"github.com/capitalize-ai/sales-consultant/pkg/metrics"
	"github.com/capitalize-ai/sales-consultant/pkg/tokens"
	"github.com/capitalize-ai/sales-consultant/pkg/tracing"
)

const serviceName = "sales-consultant"

func main() {
	envName := flag.String("env", "", "environment name; loads .env.<name> when set")
	flag.Parse()

	cfg, err := config.Load(*envName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting consultant server", zap.String("provider", cfg.LLM.Provider))

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, serviceName, cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Build the shared system context
	corpus := materials.NewLoader(log.Named("materials")).Load(ctx, cfg.Materials.Dir)
	metrics.RecordMaterials(len(corpus.Files), len(corpus.Skipped))

	persona, err := prompt.LoadPersona(cfg.PersonaFile)
	if err != nil {
		log.Fatal("failed to load persona", zap.Error(err))
	}

	systemContext := prompt.BuildContext(persona, corpus.Text)
	log.Info("context ready",
		zap.Int("files", len(corpus.Files)),
		zap.Int("skipped", len(corpus.Skipped)),
		zap.Int("context_tokens", tokens.Estimate(systemContext)),
		zap.Int("context_chars", tokens.Chars(systemContext)),
	)

	// Initialize LLM client
	llmClient, err := newLLMClient(cfg)
	if err != nil {
		log.Fatal("failed to create LLM client", zap.Error(err))
	}
	llmClient = llm.WithRetry(llmClient, llm.RetryConfig{
		Attempts: cfg.LLM.RetryAttempts,
		Delay:    cfg.LLM.RetryDelay,
		MaxDelay: cfg.LLM.RetryMaxDelay,
	})

	modelName := cfg.LLM.Model
	if modelName == "" {
		modelName = llmClient.Models()[0]
	}

	// Per-session response caches
	storeFactory := session.MemoryStoreFactory(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	if cfg.Cache.Driver == "redis" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		storeFactory = session.RedisStoreFactory(rdb, cfg.Cache.TTL)
	}

	sessions := session.NewManager(cfg.Session.IdleTimeout, storeFactory, log.Named("session"))
	defer sessions.Close()

	// Interaction events are optional
	var natsClient *natsclient.Client
	var events service.EventPublisher
	if cfg.NATSURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		natsClient, err = natsclient.Connect(connectCtx, natsclient.Config{
			URL:   cfg.NATSURL,
			Token: cfg.NATSToken,
			Name:  serviceName,
		}, log.Named("nats"))
		cancel()
		if err != nil {
			log.Warn("failed to connect to NATS, interaction events disabled", zap.Error(err))
			natsClient = nil
		} else {
			defer natsClient.Close()
			events = natsClient
		}
	}

	// Initialize services
	generator := service.NewGeneratorService(llmClient, service.GeneratorConfig{
		Model:                 modelName,
		Temperature:           cfg.LLM.Temperature,
		MaxTokens:             cfg.LLM.MaxTokens,
		IncludeErrorInApology: cfg.ApologyIncludeError,
	}, log.Named("generator"))
	chat := service.NewChatService(generator, systemContext, events, log.Named("chat"))

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient, sessions)
	conversationHandler := handler.NewConversationHandler(sessions, log)
	messageHandler := handler.NewMessageHandler(sessions, chat, log)
	streamHandler := handler.NewStreamHandler(sessions, chat, cfg.TypingDelay, log)
	uiHandler := handler.NewUIHandler(sessions, chat, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Correlation-ID"},
		ExposedHeaders:   []string{"X-Correlation-ID", middleware.SessionTokenHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(middleware.SessionConfig{
			Secret:     cfg.Session.Secret,
			CookieName: cfg.Session.CookieName,
			Secure:     cfg.Session.CookieSecure,
		}))
		r.Use(middleware.Logging(log.Named("http")))

		// Chat page
		r.Get("/", uiHandler.Index)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
			r.Post("/chat/new", uiHandler.NewChat)
			r.Post("/chat/select", uiHandler.Select)
			r.Post("/chat/send", uiHandler.Send)
		})

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.Get("/prompts", messageHandler.Prompts)
			r.Get("/usage", messageHandler.Usage)

			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", conversationHandler.Create)
				r.Get("/", conversationHandler.List)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", conversationHandler.Get)
					r.Put("/select", conversationHandler.Select)
					r.Get("/turns", conversationHandler.Turns)
					r.Post("/messages", messageHandler.Send)
					r.Post("/stream", streamHandler.StreamWithMessage)
				})
			})
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	if cfg.LogFormat == "console" {
		return logger.NewDevelopment()
	}
	return logger.New(cfg.LogLevel)
}

func newLLMClient(cfg *config.Config) (llm.Client, error) {
	provider := llm.Provider(strings.ToLower(cfg.LLM.Provider))
	if provider == llm.ProviderOpenAI && cfg.OpenAIBaseURL != "" {
		clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
		clientCfg.BaseURL = cfg.OpenAIBaseURL
		return llm.NewOpenAIClientWithConfig(clientCfg), nil
	}
	return llm.NewClient(provider, cfg.APIKey())
}
