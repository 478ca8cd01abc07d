package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/study-room/internal/config"
	"github.com/thereayou/study-room/internal/database"
	"github.com/thereayou/study-room/internal/handlers"
	"github.com/thereayou/study-room/internal/messages"
	"github.com/thereayou/study-room/internal/rooms"
	"github.com/thereayou/study-room/internal/services"
	"github.com/thereayou/study-room/internal/websocket"
	"github.com/thereayou/study-room/pkg/auth"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Router *gin.Engine
	HTTP   *http.Server
	DB     *database.Database
	Redis  *redis.Client
	Hub    *websocket.Hub

	cancel context.CancelFunc
	done   chan error
}

func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database connect failed: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("redis connect failed: %w", err)
	}

	clk := clock.New()
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	hub := websocket.NewHub()

	authSvc := services.NewAuthService(db, jwtMgr, rdb, clk)
	repo := rooms.NewRepository(db, clk)
	stream := messages.NewStream(db, messages.NewRedisBroker(rdb), clk)

	h := &Handlers{
		Auth:      handlers.NewAuthHandler(authSvc),
		User:      handlers.NewUserHandler(authSvc),
		Room:      handlers.NewRoomHandler(repo, hub, clk),
		Message:   handlers.NewHTTPMessageHandler(repo, stream),
		WebSocket: handlers.NewWebSocketHandler(hub, repo, stream, clk, cfg.PomodoroDuration, cfg.AllowedOrigins),
		Health:    healthCheck(db, rdb),
	}

	router := gin.Default()
	APIEndpoints(router, cfg, authSvc, h)

	return &Server{
		Router: router,
		HTTP:   &http.Server{Addr: ":" + cfg.Port, Handler: router},
		DB:     db,
		Redis:  rdb,
		Hub:    hub,
	}, nil
}

// Start runs the websocket hub and the HTTP listener in the background.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan error, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Hub.Run(gctx)
	})
	g.Go(func() error {
		log.Printf("Server starting on %s", s.HTTP.Addr)
		if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	go func() {
		err := g.Wait()
		if err != nil {
			log.Printf("Server run error: %v", err)
		}
		s.done <- err
		close(s.done)
	}()
}

// Done delivers the run error once the hub and the HTTP listener have both
// stopped, then is closed. A listener that fails to bind ends the run early.
func (s *Server) Done() <-chan error {
	return s.done
}

// Shutdown stops accepting requests, disconnects websockets and releases
// Redis and the database.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.HTTP.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	if s.cancel != nil {
		s.cancel()
		select {
		case <-s.done:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	if err := s.Redis.Close(); err != nil {
		errs = append(errs, fmt.Errorf("redis close: %w", err))
	}
	if err := s.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database close: %w", err))
	}
	return errors.Join(errs...)
}

func healthCheck(db *database.Database, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
