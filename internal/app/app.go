package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"verdict_backend/internal/auth"
	"verdict_backend/internal/config"
	"verdict_backend/internal/events"
	"verdict_backend/internal/handlers"
	"verdict_backend/internal/logger"
	"verdict_backend/internal/middleware"
	"verdict_backend/internal/moderation"
	"verdict_backend/internal/repositories"
	"verdict_backend/internal/routes"
	"verdict_backend/internal/services"
	"verdict_backend/internal/tiers"
	"verdict_backend/internal/validator"
	"verdict_backend/internal/workers"
	"verdict_backend/pkg/apperrors"
	"verdict_backend/ws"

	"github.com/gin-gonic/gin"
)

type App struct {
	cfg     *config.Config
	store   *storage
	catalog *tiers.Catalog

	services   *services.ServiceContainer
	dispatcher *events.Dispatcher
	wsManager  *ws.WebSocketManager
	router     *gin.Engine
	routing    *workers.RoutingWorker
}

// New собирает приложение. Фоновые части запускает Run.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	apperrors.SetDebug(!cfg.IsProduction())
	auth.Configure(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)

	catalog, err := BuildCatalog(cfg)
	if err != nil {
		return nil, err
	}

	store, err := openStorage(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:        cfg,
		store:      store,
		catalog:    catalog,
		dispatcher: events.NewDispatcher(cfg.Events.Buffer),
		wsManager:  ws.NewWebSocketManager(),
	}

	// 1. Сервисы
	a.services = a.initializeServices()

	// 2. Подписчики событий
	a.routing = workers.NewRoutingWorker(
		a.services.RoutingService,
		store.requests,
		catalog.ExpertPoolTiers(),
		cfg.Routing.SweepInterval,
		cfg.Routing.StaleAfter,
	)
	a.routing.Subscribe(a.dispatcher)
	ws.NewNotifier(a.wsManager).Subscribe(a.dispatcher)

	// 3. Хэндлеры и роутер
	appHandlers := a.initializeHandlers()
	wsHandler := ws.NewWebSocketHandler(a.wsManager, cfg.Server.AllowedOrigins...)

	a.router = a.initializeGinRouter()
	routes.RegisterRoutes(a.router, appHandlers, wsHandler)

	return a, nil
}

// BuildCatalog - каталог тиров из конфига или встроенный
func BuildCatalog(cfg *config.Config) (*tiers.Catalog, error) {
	entries := cfg.Tiers
	if len(entries) == 0 {
		entries = tiers.DefaultTiers()
	}
	legacy := cfg.LegacyTiers
	if len(legacy) == 0 {
		legacy = tiers.DefaultLegacyTiers()
	}
	catalog, err := tiers.NewCatalog(entries, legacy)
	if err != nil {
		return nil, fmt.Errorf("tier catalog: %w", err)
	}
	return catalog, nil
}

func (a *App) initializeServices() *services.ServiceContainer {
	creditService := services.NewCreditService(a.store.tx, a.store.credits)
	consensusService := services.NewConsensusService(a.store.tx, a.store.requests, a.store.verdicts)

	return &services.ServiceContainer{
		CreditService: creditService,
		RequestService: services.NewRequestService(
			a.store.tx,
			a.store.requests,
			a.store.verdicts,
			creditService,
			a.catalog,
			buildModerationGate(a.cfg.Moderation),
			a.dispatcher,
		),
		VerdictService: services.NewVerdictService(
			a.store.tx,
			a.store.requests,
			a.store.verdicts,
			consensusService,
			validator.New(),
			a.dispatcher,
			services.VerdictRules{
				MinReasoningLength: a.cfg.Verdicts.MinReasoningLength,
				MinFeedbackLength:  a.cfg.Verdicts.MinFeedbackLength,
			},
		),
		ConsensusService: consensusService,
		RoutingService: services.NewRoutingService(
			a.store.requests,
			a.store.experts,
			a.store.routing,
			a.catalog,
			a.dispatcher,
			a.cfg.Routing.Timeout,
		),
	}
}

// buildModerationGate: без ключа OpenAI работают только правила
func buildModerationGate(cfg config.ModerationConfig) *moderation.Gate {
	rules := moderation.NewRuleClassifier(moderation.RuleOptions{
		BlockedTerms:     cfg.BlockedTerms,
		MaxContextLength: cfg.MaxContextLength,
	})

	if !cfg.Enabled || cfg.APIKey == "" {
		logger.Warn("OpenAI moderation disabled, using rule classifier only")
		return moderation.NewGate(nil, rules, cfg.Timeout)
	}

	primary := moderation.NewOpenAIClassifier(moderation.OpenAIOptions{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	logger.Info("OpenAI moderation enabled", "model", cfg.Model, "timeout", cfg.Timeout)
	return moderation.NewGate(primary, rules, cfg.Timeout)
}

func (a *App) initializeHandlers() *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(validator.New())

	var rateLimit gin.HandlerFunc
	if a.cfg.RateLimit.Enabled {
		rateLimit = middleware.RateLimitMiddleware(middleware.NewRateLimiter(a.cfg.RateLimit))
	}

	return &handlers.AppHandlers{
		RequestHandler: handlers.NewRequestHandler(baseHandler, a.services.RequestService, a.services.ConsensusService, rateLimit),
		VerdictHandler: handlers.NewVerdictHandler(baseHandler, a.services.VerdictService),
		CreditHandler:  handlers.NewCreditHandler(baseHandler, a.services.CreditService),
		HealthHandler:  handlers.NewHealthHandler(map[string]handlers.Pinger{"database": a.store.ping}),
	}
}

func (a *App) initializeGinRouter() *gin.Engine {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(a.cfg.Server.AllowedOrigins...))
	return router
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Services() *services.ServiceContainer {
	return a.services
}

// Experts - реестр экспертов (наполняется извне, здесь только для сидов)
func (a *App) Experts() repositories.ExpertRepository {
	return a.store.experts
}

// StartBackground запускает диспетчер событий, websocket-хаб и
// sweep маршрутизации. Возвращает функцию остановки.
func (a *App) StartBackground(ctx context.Context) func() {
	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	a.dispatcher.Start(bgCtx, a.cfg.Events.Workers)
	go a.wsManager.Run()
	a.routing.Start(bgCtx)

	return func() {
		cancel()
		a.dispatcher.Stop()
		a.wsManager.Stop()
	}
}

// Run поднимает HTTP-сервер и фоновые части, ждет ctx и
// корректно останавливается.
func (a *App) Run(ctx context.Context) error {
	stopBackground := a.StartBackground(ctx)

	address := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := &http.Server{
		Addr:              address,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server starting on %s", address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		runErr = fmt.Errorf("server startup error: %w", err)
	}

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), timeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	stopBackground()
	if err := a.store.close(); err != nil {
		logger.Error("Failed to close storage", "error", err)
	}
	logger.Info("Server stopped")
	return runErr
}
