// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"better-together-service/internal/config"
	"better-together-service/internal/db"
	authHandler "better-together-service/internal/handlers/auth"
	"better-together-service/internal/idp"
	"better-together-service/internal/middleware"
	"better-together-service/internal/pkg/session"
	"better-together-service/internal/repository/postgres"
	authUsecase "better-together-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	http   *http.Server
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL (application profile table) -----
	pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// ----- Redis (attempt rate limiting) -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Println("[REDIS] connected")

	// ----- Identity provider client -----
	idpClient := idp.NewClient(s.cfg.IdP)

	// ----- Session plumbing -----
	codec := session.NewCodec()
	resolver := session.NewResolver(idpClient, codec)
	rateLimiter := session.NewRateLimiter(redisClient)

	// ----- Repositories -----
	profileRepo := postgres.NewProfileRepository(pool)

	// ----- Services -----
	authService := authUsecase.NewAuthService(idpClient, rateLimiter, profileRepo, logger)

	// ----- Handlers -----
	authHandlerInst := authHandler.NewAuthHandler(authService, codec, logger)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(resolver)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(s.cfg.AllowedOrigins),
	)

	// ----- Router -----
	SetupRouter(s.engine, &Handlers{
		AuthHandler:    authHandlerInst,
		AuthMiddleware: authMiddleware,
	})

	// ----- Start HTTP -----
	s.http = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("server running on %s", s.cfg.HTTPAddr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
