package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pathwise/learnbot/internal/ai"
	"github.com/pathwise/learnbot/internal/chat"
	"github.com/pathwise/learnbot/internal/course"
	"github.com/pathwise/learnbot/internal/platform/cache"
	"github.com/pathwise/learnbot/internal/platform/config"
	"github.com/pathwise/learnbot/internal/platform/database"
	"github.com/pathwise/learnbot/internal/report"
)

// turnTimeout bounds one full conversation turn, including AI calls.
const turnTimeout = 2 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer app.close()

	if err := app.gateway.StartAll(ctx, app.handleInbound); err != nil {
		slog.Error("failed to start chat channels", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.mux(cfg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "telegram_mode", cfg.Telegram.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// app holds the wired application components.
type app struct {
	engine   *course.Engine
	gateway  *chat.Gateway
	telegram *chat.TelegramChannel
	ws       *chat.WebSocketChannel
	store    course.SessionStore

	db *database.DB
	ch *cache.Cache
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.db = db
	}
	if cfg.Cache.URL != "" {
		ch, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, fmt.Errorf("connecting to cache: %w", err)
		}
		a.ch = ch
	}

	router := ai.NewRouter()
	if cfg.AI.Google.APIKey != "" {
		var opts []ai.GoogleOption
		if cfg.AI.Google.Model != "" {
			opts = append(opts, ai.WithGoogleModel(cfg.AI.Google.Model))
		}
		router.Register("google", ai.NewGoogleProvider(cfg.AI.Google.APIKey, opts...))
	}
	if cfg.AI.OpenAI.APIKey != "" {
		var opts []ai.OpenAIOption
		if cfg.AI.OpenAI.Model != "" {
			opts = append(opts, ai.WithModel(cfg.AI.OpenAI.Model))
		}
		if cfg.AI.OpenAI.BaseURL != "" {
			opts = append(opts, ai.WithBaseURL(cfg.AI.OpenAI.BaseURL))
		}
		router.Register("openai", ai.NewOpenAIProvider(cfg.AI.OpenAI.APIKey, opts...))
	}

	prompts, err := course.LoadPrompts(cfg.Course.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}

	store, err := a.buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = store

	var events course.EventLogger = course.NopEventLogger{}
	if a.db != nil {
		events = course.NewPostgresEventLogger(a.db.Pool)
	}

	a.engine = course.NewEngine(course.EngineConfig{
		AIRouter:            router,
		Store:               store,
		Prompts:             prompts,
		Events:              events,
		FinalProjectEnabled: cfg.Course.FinalProjectEnabled,
	})

	a.gateway = chat.NewGateway()
	tg, err := chat.NewTelegramChannel(cfg.Telegram.BotToken)
	if err != nil {
		return nil, err
	}
	a.telegram = tg
	a.ws = chat.NewWebSocketChannel()

	if cfg.Telegram.Mode == "polling" {
		a.gateway.Register("telegram", tg)
	} else {
		// Webhook mode: outbound only via the gateway, inbound via the
		// webhook endpoint on the HTTP mux.
		a.gateway.Register("telegram", webhookOnly{tg})
	}
	a.gateway.Register("websocket", a.ws)

	return a, nil
}

func (a *app) buildStore(ctx context.Context, cfg *config.Config) (course.SessionStore, error) {
	switch cfg.Course.Store {
	case "redis":
		return course.NewRedisStore(a.ch.Client, cfg.Course.SessionTTL), nil
	case "postgres":
		return course.NewPostgresStore(ctx, a.db.Pool)
	default:
		store := course.NewMemoryStore(cfg.Course.SessionTTL)
		store.StartJanitor(ctx, time.Hour)
		return store, nil
	}
}

// webhookOnly wraps the Telegram channel so StartAll does not begin polling
// when updates arrive over the webhook instead.
type webhookOnly struct {
	*chat.TelegramChannel
}

func (webhookOnly) Start(context.Context, func(chat.InboundMessage)) error { return nil }

// handleInbound processes one chat message end to end.
func (a *app) handleInbound(msg chat.InboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	if err := a.gateway.SendTyping(ctx, msg.Channel, msg.UserID); err != nil {
		slog.Debug("typing indicator failed", "channel", msg.Channel, "error", err)
	}

	reply, err := a.engine.ProcessMessage(ctx, msg)
	if err != nil {
		slog.Error("message processing failed", "user_id", msg.UserID, "error", err)
		reply = "Something went wrong on my side. Please try again."
	}
	if reply == "" {
		return
	}

	err = a.gateway.Send(ctx, chat.OutboundMessage{
		Channel: msg.Channel,
		UserID:  msg.UserID,
		Text:    reply,
	})
	if err != nil {
		slog.Error("sending reply failed", "channel", msg.Channel, "user_id", msg.UserID, "error", err)
	}
}

// mux creates the HTTP router.
func (a *app) mux(cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", a.handleReadyz)
	mux.Handle("GET /ws", a.ws.Handler())

	if cfg.Telegram.Mode == "webhook" {
		mux.Handle("POST /telegram/webhook", a.telegram.WebhookHandler(cfg.Telegram.WebhookSecret, a.handleInbound))
	}
	if cfg.Report.TokenHash != "" {
		mux.Handle("GET /admin/report", report.NewHandler(cfg.Report.TokenHash, a.store))
	}
	return mux
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (a *app) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if a.db != nil {
		if err := a.db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"database unavailable"}`))
			return
		}
	}
	if a.ch != nil {
		if err := a.ch.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"cache unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (a *app) close() {
	if a.ws != nil {
		_ = a.ws.Stop()
	}
	if a.ch != nil {
		_ = a.ch.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
