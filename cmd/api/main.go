package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/audio"
	"voiceagent-platform/internal/auth"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/config"
	"voiceagent-platform/internal/conversations"
	"voiceagent-platform/internal/httpapi"
	"voiceagent-platform/internal/telephony"
	"voiceagent-platform/internal/transcript"
	"voiceagent-platform/internal/tts"
	"voiceagent-platform/pkg/logger"
	"voiceagent-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const janitorInterval = time.Minute

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Live call state: transcript fan-out, session registry, greeting audio.
	// All process-local; a call's webhooks must land on this instance.
	bus := transcript.NewBus(log)

	registry := calls.NewRegistry(bus)
	registry.SetRetention(cfg.Calls.Retention)
	go registry.RunJanitor(rootCtx, janitorInterval)

	audioStore := audio.NewStore(cfg.Calls.AudioTTL)
	go audioStore.RunJanitor(rootCtx, janitorInterval)

	directory := agents.NewPostgresDirectory(db)
	history := conversations.NewPostgresRepo(db)

	var synth tts.Synthesizer
	if cfg.TTS.APIKey != "" {
		synth = tts.NewElevenLabsClient(cfg.TTS.BaseURL, cfg.TTS.APIKey)
	} else {
		log.Warn("ELEVENLABS_API_KEY not set; greetings use provider speech")
	}

	var gate calls.ConcurrencyGate
	if cfg.Calls.MaxConcurrentPerAgent > 0 {
		g, err := calls.NewRedisGate(rdb, cfg.Calls.MaxConcurrentPerAgent, 0)
		if err != nil {
			log.Error("concurrency gate init failed", "err", err)
			os.Exit(1)
		}
		gate = g
	}

	provider := telephony.NewTwilioProvider(cfg.Calls.TwilioBaseURL)

	orchestrator, err := calls.NewOrchestrator(calls.OrchestratorDeps{
		Registry:       registry,
		Directory:      directory,
		Provider:       provider,
		AudioStore:     audioStore,
		Synthesizer:    synth,
		Recorder:       history,
		Gate:           gate,
		ServerURL:      cfg.App.ServerURL,
		MediaStreamURL: cfg.MediaStreamURL(),
	})
	if err != nil {
		log.Error("orchestrator init failed", "err", err)
		os.Exit(1)
	}

	ingestor := calls.NewIngestor(registry, bus).
		WithRecorder(history).
		WithAgentResolver(directory.ResolveAgentByNumber)
	if gate != nil {
		ingestor.WithGate(gate)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	deps := routeDeps{
		api: httpapi.Handlers{
			Orchestrator: orchestrator,
			Registry:     registry,
			Bus:          bus,
			Audio:        audioStore,
			History:      history,
		},
		webhooks: telephony.WebhookHandler{
			Sink:           ingestor,
			MediaStreamURL: cfg.MediaStreamURL(),
		},
		media: telephony.MediaStreamHandler{Sink: ingestor},
		authN: auth.RequireAccessToken(authManager),
		db:    db,
	}
	registerRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// SSE transcript streams outlive any sane write timeout; per-write
		// deadlines are not used so streaming responses stay open.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
