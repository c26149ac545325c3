package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/race-to-moscow/internal/auth"
	"github.com/freeeve/race-to-moscow/internal/config"
	"github.com/freeeve/race-to-moscow/internal/events"
	"github.com/freeeve/race-to-moscow/internal/handler"
	"github.com/freeeve/race-to-moscow/internal/logger"
	"github.com/freeeve/race-to-moscow/internal/middleware"
	"github.com/freeeve/race-to-moscow/internal/repository"
	"github.com/freeeve/race-to-moscow/internal/repository/local"
	"github.com/freeeve/race-to-moscow/internal/repository/postgres"
	redisrepo "github.com/freeeve/race-to-moscow/internal/repository/redis"
	"github.com/freeeve/race-to-moscow/internal/service"
	"github.com/freeeve/race-to-moscow/internal/telemetry"
	"github.com/freeeve/race-to-moscow/pkg/campaign"
)

// stores bundles the repositories the server runs on.
type stores struct {
	users     repository.UserRepository
	sessions  repository.SessionRepository
	snapshots repository.SnapshotRepository
	close     func()
}

// openStores connects to Postgres, falling back to the local SQLite store
// when the database is unreachable.
func openStores(cfg *config.Config) (*stores, error) {
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err == nil {
		log.Info().Msg("Using Postgres store")
		return &stores{
			users:     postgres.NewUserRepo(db),
			sessions:  postgres.NewSessionRepo(db),
			snapshots: postgres.NewSnapshotRepo(db),
			close:     func() { db.Close() },
		}, nil
	}
	log.Warn().Err(err).Msg("Postgres unavailable, falling back to local store")

	store, err := local.Open(cfg.LocalStorePath, log.Logger)
	if err != nil {
		return nil, err
	}
	return &stores{
		users:     store.Users(),
		sessions:  store.Sessions(),
		snapshots: store.Snapshots(),
		close:     func() { store.Close() },
	}, nil
}

func loadContent(dir string) (*campaign.Map, *campaign.CardSet, error) {
	if dir == "" {
		return campaign.StandardMap(), campaign.StandardCards(), nil
	}
	return campaign.LoadContentDir(dir)
}

func main() {
	logger.Init()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}
	log.Info().Str("port", cfg.Port).Bool("devMode", cfg.DevMode).Msg("Config loaded")

	m, cards, err := loadContent(cfg.ContentDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.ContentDir).Msg("Content load failed")
	}
	log.Info().Int("areas", len(m.AreaIDs())).Int("cards", len(cards.All())).Msg("Content loaded")

	st, err := openStores(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Store setup failed")
	}
	defer st.close()

	// Redis is optional; without it every load reads the latest snapshot.
	var cache repository.StateCache
	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without state cache")
	} else {
		defer redisClient.Close()
		cache = redisClient
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telem, err := telemetry.New(ctx, telemetry.Config{
		Enabled:     cfg.MetricsEnabled,
		ServiceName: "race-to-moscow",
		Interval:    cfg.MetricsInterval,
		Writer:      os.Stdout,
		Endpoint:    cfg.MetricsEndpoint,
		Insecure:    cfg.MetricsInsecure,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Metrics setup failed")
	}
	if telem.Enabled() {
		log.Info().Str("endpoint", cfg.MetricsEndpoint).Dur("interval", cfg.MetricsInterval).Msg("Metrics export enabled")
	}

	// WebSocket hub, plus NATS fan-out when several nodes share sessions.
	wsHub := handler.NewHub()
	broadcaster := service.Broadcasters{wsHub}
	var nc *nats.Conn
	var relay *events.Relay
	if cfg.NATSURL != "" {
		node := uuid.NewString()
		nc, err = events.Connect(cfg.NATSURL, "race-to-moscow-"+node[:8])
		if err != nil {
			log.Fatal().Err(err).Msg("NATS connection failed")
		}
		defer nc.Close()
		broadcaster = append(broadcaster, events.NewPublisher(nc, node))
		relay = events.NewRelay(nc, node, wsHub, events.RelayConfig{})
		if err := relay.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("NATS relay start failed")
		}
		defer relay.Stop()
		log.Info().Str("node", node).Msg("Cross-node events enabled")
	}

	engine := campaign.NewEngine(m, cards, nil)
	sessionSvc := service.NewSessionService(engine, st.sessions, st.snapshots, cache, broadcaster, cfg.StateTTL)
	if err := sessionSvc.SetMeterProvider(telem.MeterProvider()); err != nil {
		log.Warn().Err(err).Msg("Session metrics partially disabled")
	}

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)
	var googleOAuth *auth.OAuthProvider
	if cfg.GoogleEnabled() {
		googleOAuth = auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}

	// Handlers
	authHandler := handler.NewAuthHandler(googleOAuth, jwtMgr, st.users, cfg.DevMode)
	userHandler := handler.NewUserHandler(st.users, sessionSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	contentHandler := handler.NewContentHandler(m, cards)
	wsHandler := handler.NewWSHandler(wsHub, sessionSvc)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth (public)
	if googleOAuth != nil {
		mux.HandleFunc("GET /auth/google/login", authHandler.GoogleLogin)
		mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleCallback)
	}
	mux.HandleFunc("POST /auth/refresh", authHandler.RefreshToken)
	mux.HandleFunc("GET /auth/dev", authHandler.DevLogin)

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /users/me", userHandler.GetMe)
	api.HandleFunc("PATCH /users/me", userHandler.UpdateMe)
	api.HandleFunc("POST /sessions", sessionHandler.CreateSession)
	api.HandleFunc("GET /sessions", sessionHandler.ListSessions)
	api.HandleFunc("GET /sessions/recent", sessionHandler.RecentSessions)
	api.HandleFunc("GET /sessions/{id}", sessionHandler.GetSession)
	api.HandleFunc("DELETE /sessions/{id}", sessionHandler.DeleteSession)
	api.HandleFunc("GET /sessions/{id}/history", sessionHandler.History)
	api.HandleFunc("GET /sessions/{id}/history/{version}", sessionHandler.StateAt)
	api.HandleFunc("GET /sessions/{id}/decks/{deck}", sessionHandler.PeekDeck)
	api.HandleFunc("POST /sessions/{id}/ops/{op}", sessionHandler.Apply)
	api.HandleFunc("GET /content/map", contentHandler.GetMap)
	api.HandleFunc("GET /content/cards", contentHandler.GetCards)
	api.HandleFunc("GET /content/cards/{id}", contentHandler.GetCard)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket; browsers pass the token as a query parameter on the upgrade.
	mux.Handle("GET /api/v1/ws", authMw(http.HandlerFunc(wsHandler.ServeWS)))

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Recover, middleware.Logger, middleware.CORS(cfg.FrontendURL))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	if err := telem.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Metrics shutdown error")
	}
	log.Info().Msg("Server stopped")
}
