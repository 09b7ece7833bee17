package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/tileworld/internal/dependencies/clock"
	"github.com/mcoot/tileworld/internal/dependencies/idgen"
	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("username must be 3-20 characters")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

const (
	minUsernameLen = 3
	maxUsernameLen = 20
	minPasswordLen = 6
)

// Claims are the identity claims carried by a signed token
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SubjectID returns the profile id the token was issued for
func (c *Claims) SubjectID() model.ProfileID {
	return model.ProfileID(c.Subject)
}

// Session is the result of a successful register or login
type Session struct {
	Token     string
	Profile   model.Profile
	ExpiresAt time.Time
}

// Service registers users, checks passwords and issues identity tokens
type Service struct {
	storage storage.ProfileStore
	clock   clock.Clock
	ids     idgen.Generator

	secret   []byte
	tokenTTL time.Duration
}

// Config holds configuration for the auth service
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		JWTSecret: "change-me",
		TokenTTL:  7 * 24 * time.Hour,
	}
}

// New creates a new auth Service
func New(storage storage.ProfileStore, clock clock.Clock, ids idgen.Generator, cfg Config) *Service {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = DefaultConfig().TokenTTL
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DefaultConfig().JWTSecret
	}
	return &Service{
		storage:  storage,
		clock:    clock,
		ids:      ids,
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: cfg.TokenTTL,
	}
}

// Register creates a profile with a hashed password and returns a session for it
func (s *Service) Register(ctx context.Context, username, password, displayName string) (*Session, error) {
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return nil, ErrInvalidUsername
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	if displayName == "" {
		displayName = username
	}

	// Check if username exists
	_, err := s.storage.GetProfileByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrProfileNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	profile := &model.Profile{
		ID:           model.ProfileID(s.ids.NewID("p_")),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Appearance:   model.DefaultAppearance(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveProfile(ctx, profile); err != nil {
		// Lost a race with another registration for the same name
		if errors.Is(err, model.ErrUsernameTaken) {
			return nil, ErrUsernameExists
		}
		return nil, err
	}

	return s.newSession(profile)
}

// Login checks a username and password and returns a fresh session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	profile, err := s.storage.GetProfileByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrProfileNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.newSession(profile)
}

// IssueToken signs a token for the profile, valid for the configured TTL
func (s *Service) IssueToken(profile *model.Profile) (string, time.Time, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.tokenTTL)

	claims := &Claims{
		Username: profile.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(profile.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the token's signature and expiry and returns its claims
func (s *Service) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate verifies the token and loads the profile it names.
// Returns ErrInvalidToken or model.ErrProfileNotFound so callers can tell them apart.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Profile, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return nil, err
	}
	return s.storage.GetProfile(ctx, claims.SubjectID())
}

// UpdateAppearance validates and stores a new appearance on the profile
func (s *Service) UpdateAppearance(ctx context.Context, id model.ProfileID, appearance model.Appearance) (*model.Profile, error) {
	if err := appearance.Validate(); err != nil {
		return nil, err
	}
	if err := s.storage.UpdateAppearance(ctx, id, appearance); err != nil {
		return nil, err
	}
	return s.storage.GetProfile(ctx, id)
}

func (s *Service) newSession(profile *model.Profile) (*Session, error) {
	token, expiresAt, err := s.IssueToken(profile)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		Profile:   *profile,
		ExpiresAt: expiresAt,
	}, nil
}
