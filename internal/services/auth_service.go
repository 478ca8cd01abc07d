package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/thereayou/study-room/internal/apperrors"
	"github.com/thereayou/study-room/internal/models"
	"github.com/thereayou/study-room/internal/session"
	"github.com/thereayou/study-room/pkg/auth"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token is blacklisted")
	ErrUserExists         = errors.New("user already exists")
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// AuthService is the identity collaborator: password sign-in, JWT sessions and
// a Redis blacklist for signed-out tokens.
type AuthService struct {
	users      UserStore
	jwtManager *auth.JWTManager
	redis      *redis.Client
	clock      clock.Clock
}

func NewAuthService(users UserStore, jwtMgr *auth.JWTManager, rdb *redis.Client, clk clock.Clock) *AuthService {
	return &AuthService{users: users, jwtManager: jwtMgr, redis: rdb, clock: clk}
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("cannot hash password: %w", err)
	}

	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now().UTC(),
	}

	if _, err := s.users.FindUserByEmail(ctx, user.Email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Transient("find user", err)
	}

	if err := s.users.SaveUser(ctx, user); err != nil {
		// unique index on username, or a concurrent registration of the email
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, apperrors.Transient("save user", err)
	}
	return user, nil
}

// SignIn checks the password and issues a token.
func (s *AuthService) SignIn(ctx context.Context, creds session.Credentials) (session.Session, string, error) {
	user, err := s.users.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(creds.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return session.Anonymous, "", ErrInvalidCredentials
		}
		return session.Anonymous, "", apperrors.Transient("find user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return session.Anonymous, "", ErrInvalidCredentials
	}

	if err := s.users.UpdateLastSeen(ctx, user.ID.String(), s.clock.Now().UTC()); err != nil {
		log.Printf("Failed to update last seen for %s: %v", user.ID, err)
	}

	token, err := s.jwtManager.Generate(user.ID.String(), user.Username)
	if err != nil {
		return session.Anonymous, "", fmt.Errorf("could not generate token: %w", err)
	}

	return session.New(user.ID, user.Username), token, nil
}

// SignOut blacklists the token until it would have expired anyway.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	exp, err := s.jwtManager.Expiry(token)
	if err != nil {
		return ErrInvalidToken
	}

	ttl := exp.Sub(s.clock.Now())
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, blacklistKey(token), 1, ttl).Err(); err != nil {
		return apperrors.Transient("blacklist token", err)
	}
	return nil
}

// Resolve turns a token back into a session.
func (s *AuthService) Resolve(ctx context.Context, token string) (session.Session, error) {
	exists, err := s.redis.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return session.Anonymous, apperrors.Transient("check blacklist", err)
	}
	if exists > 0 {
		return session.Anonymous, ErrTokenRevoked
	}

	claims, err := s.jwtManager.Verify(token)
	if err != nil {
		return session.Anonymous, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return session.Anonymous, ErrInvalidToken
	}

	return session.New(userID, claims.Name), nil
}

// Me loads the full user record behind a session.
func (s *AuthService) Me(ctx context.Context, sess session.Session) (*models.User, error) {
	user, err := s.users.GetUser(ctx, sess.UserID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user")
		}
		return nil, apperrors.Transient("get user", err)
	}
	return user, nil
}

