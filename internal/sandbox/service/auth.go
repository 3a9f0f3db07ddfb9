package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/repository"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/passhash"
)

const (
	maxFailedLogins = 5
	lockoutPeriod   = 15 * time.Minute
)

// AuthService verifies passwords, issues JWT access tokens and rotates
// refresh tokens.
type AuthService struct {
	repo       Repository
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

func (a *AuthService) Login(ctx context.Context, email, password string) (models.TokenResponse, error) {
	u, err := a.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return models.TokenResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.TokenResponse{}, err
	}
	now := a.now()
	if now.Before(u.LockedUntil) {
		return models.TokenResponse{}, ErrAccountLocked
	}
	ok, err := passhash.VerifyPassword(string(u.PasswordHash), password)
	if err != nil || !ok {
		failed := u.FailedLogins + 1
		var until time.Time
		if failed >= maxFailedLogins {
			until = now.Add(lockoutPeriod)
			failed = 0
			a.log.Warn().Str("email", u.Email).Time("until", until).Msg("account locked")
		}
		if err := a.repo.SetLoginState(ctx, u.ID, failed, until); err != nil {
			return models.TokenResponse{}, err
		}
		if !until.IsZero() {
			return models.TokenResponse{}, ErrAccountLocked
		}
		return models.TokenResponse{}, ErrInvalidCredentials
	}
	if !u.Verified {
		return models.TokenResponse{}, ErrNotVerified
	}
	if u.FailedLogins > 0 || !u.LockedUntil.IsZero() {
		if err := a.repo.SetLoginState(ctx, u.ID, 0, time.Time{}); err != nil {
			return models.TokenResponse{}, err
		}
	}
	return a.issue(ctx, u)
}

// issue returns a fresh access and refresh token pair for u.
func (a *AuthService) issue(ctx context.Context, u repository.User) (models.TokenResponse, error) {
	access, err := a.IssueAccessToken(u.ID, a.accessTTL)
	if err != nil {
		return models.TokenResponse{}, err
	}
	refresh, err := a.IssueRefreshToken(ctx, u.ID, a.refreshTTL)
	if err != nil {
		return models.TokenResponse{}, err
	}
	user := publicUser(u)
	return models.TokenResponse{AccessToken: access, RefreshToken: refresh, User: &user}, nil
}

func publicUser(u repository.User) models.User {
	return models.User{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		Role:      u.Role,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

func (a *AuthService) ParseToken(_ context.Context, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.jwtSecret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

func (a *AuthService) IssueAccessToken(userID string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := jwt.MapClaims{"sub": userID, "iat": now.Unix(), "exp": now.Add(ttl).Unix()}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.jwtSecret)
}

func (a *AuthService) IssueRefreshToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	if err := a.repo.CreateRefreshToken(ctx, userID, token, a.now().Add(ttl)); err != nil {
		return "", err
	}
	return token, nil
}

// Refresh exchanges a refresh token for a new pair. The old refresh token is
// spent whether or not the exchange succeeds.
func (a *AuthService) Refresh(ctx context.Context, refreshToken string) (models.TokenResponse, error) {
	userID, exp, err := a.repo.GetRefreshToken(ctx, refreshToken)
	if errors.Is(err, repository.ErrNotFound) {
		return models.TokenResponse{}, ErrInvalidToken
	}
	if err != nil {
		return models.TokenResponse{}, err
	}
	if err := a.repo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return models.TokenResponse{}, err
	}
	if a.now().After(exp) {
		return models.TokenResponse{}, ErrInvalidToken
	}
	u, err := a.repo.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.TokenResponse{}, ErrInvalidToken
	}
	if err != nil {
		return models.TokenResponse{}, err
	}
	return a.issue(ctx, u)
}

func (a *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return a.repo.DeleteRefreshToken(ctx, refreshToken)
}

func (a *AuthService) User(ctx context.Context, id string) (models.User, error) {
	u, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	return publicUser(u), nil
}
