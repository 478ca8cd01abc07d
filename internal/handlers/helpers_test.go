package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/study-room/internal/database"
	"github.com/thereayou/study-room/internal/messages"
	"github.com/thereayou/study-room/internal/middleware"
	"github.com/thereayou/study-room/internal/rooms"
	"github.com/thereayou/study-room/internal/services"
	"github.com/thereayou/study-room/internal/session"
	"github.com/thereayou/study-room/internal/websocket"
	"github.com/thereayou/study-room/pkg/auth"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"
)

var testEpoch = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	router *gin.Engine
	clock  *clock.Mock
	auth   *services.AuthService
	hub    *websocket.Hub
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(sqlite.Open(":memory:"), logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	mock := clock.NewMock()
	mock.Set(testEpoch)

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	authSvc := services.NewAuthService(db, auth.NewJWTManager("test-secret", time.Hour), rdb, mock)
	repo := rooms.NewRepository(db, mock)
	stream := messages.NewStream(db, messages.NewRedisBroker(rdb), mock)

	authH := NewAuthHandler(authSvc)
	userH := NewUserHandler(authSvc)
	roomH := NewRoomHandler(repo, hub, mock)
	msgH := NewHTTPMessageHandler(repo, stream)
	wsH := NewWebSocketHandler(hub, repo, stream, mock, 25*time.Minute, []string{"*"})

	r := gin.New()
	r.POST("/auth/register", authH.Register)
	r.POST("/auth/login", authH.Login)
	r.POST("/auth/logout", middleware.AuthMiddleware(authSvc), authH.Logout)

	api := r.Group("/api/v1", middleware.AuthMiddleware(authSvc))
	api.GET("/me", userH.GetMe)
	api.GET("/rooms", roomH.ListRooms)
	api.POST("/rooms", roomH.CreateRoom)
	api.POST("/rooms/join", roomH.JoinRoom)
	api.GET("/rooms/:id", roomH.GetRoom)
	api.GET("/rooms/:id/messages", msgH.GetRoomMessages)
	api.POST("/rooms/:id/messages", msgH.SendMessage)

	r.GET("/ws/rooms/:id", middleware.WSAuthMiddleware(authSvc), wsH.HandleRoom)

	return &testEnv{router: r, clock: mock, auth: authSvc, hub: hub}
}

// signIn registers a user and returns a token for it.
func (e *testEnv) signIn(t *testing.T, username string) string {
	t.Helper()
	ctx := context.Background()
	email := username + "@example.com"

	_, err := e.auth.Register(ctx, services.RegisterRequest{Username: username, Email: email, Password: "password123"})
	require.NoError(t, err)

	_, token, err := e.auth.SignIn(ctx, session.Credentials{Email: email, Password: "password123"})
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (e *testEnv) createRoom(t *testing.T, token, name string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/rooms", token, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var room struct {
		ID string `json:"id"`
	}
	decode(t, w, &room)
	return room.ID
}
