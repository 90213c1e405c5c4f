package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/session"
	"golang.org/x/crypto/bcrypt"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	UserID string     `json:"user_id"`
	Name   string     `json:"name"`
	Role   model.Role `json:"role"`
}

// IsStaff reports whether the token belongs to a teacher or admin.
func (c *Claims) IsStaff() bool {
	return c.Role == model.RoleAdmin || c.Role == model.RoleTeacher
}

// UserStore reads portal accounts.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// AuthService handles authentication, JWT, and session management.
type AuthService struct {
	cfg   *config.Config
	users UserStore
	rdb   *redis.Client
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, users UserStore, rdb *redis.Client) *AuthService {
	return &AuthService{cfg: cfg, users: users, rdb: rdb}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login verifies credentials and issues a token. A new login replaces any
// earlier session for the same user.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := s.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	token, jti, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		sessionKey := config.CacheKey.UserSessionKey(user.ID.String())
		if err := s.rdb.Set(ctx, sessionKey, jti, s.cfg.JWTExpiry).Err(); err != nil {
			return nil, fmt.Errorf("store session: %w", err)
		}
	}

	return &model.LoginResponse{Token: token, User: *user}, nil
}

// GenerateToken creates a signed JWT for the user and returns it with its ID.
func (s *AuthService) GenerateToken(user *model.User) (string, string, error) {
	jti := uuid.New().String()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		UserID: user.ID.String(),
		Name:   user.Name,
		Role:   user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", "", fmt.Errorf("sign token: %w", err)
	}
	return signed, jti, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// ValidateSession checks that the token's JTI is the user's current session.
func (s *AuthService) ValidateSession(ctx context.Context, claims *Claims) error {
	if s.rdb == nil {
		return nil
	}
	stored, err := s.rdb.Get(ctx, config.CacheKey.UserSessionKey(claims.UserID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionInvalidated
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != claims.ID {
		return ErrSessionInvalidated
	}
	return nil
}

// Logout removes the user's session so existing tokens stop working.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, config.CacheKey.UserSessionKey(userID)).Err()
}

// Me returns the account behind a token.
func (s *AuthService) Me(ctx context.Context, claims *Claims) (*model.User, error) {
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.users.GetByID(ctx, id)
}

// GuestID is the identity given to a guest who enters by name.
func GuestID(now time.Time) string {
	return fmt.Sprintf("guest-%d", now.UnixMilli())
}

// CandidateFor builds the session candidate. Authenticated users keep their
// account name; guests get a generated ID and the name they typed.
func CandidateFor(claims *Claims, guestName string, now time.Time) session.Candidate {
	if claims != nil {
		return session.Candidate{ID: claims.UserID, Name: claims.Name, Authenticated: true}
	}
	return session.Candidate{ID: GuestID(now), Name: guestName}
}
