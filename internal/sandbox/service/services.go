package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/config"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/repository"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/passhash"
)

type Repository interface {
	CreateUser(ctx context.Context, u repository.User) (repository.User, error)
	GetUser(ctx context.Context, id string) (repository.User, error)
	GetUserByEmail(ctx context.Context, email string) (repository.User, error)
	SetLoginState(ctx context.Context, userID string, failed int, lockedUntil time.Time) error

	CreateRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, token string) (userID string, expiresAt time.Time, err error)
	DeleteRefreshToken(ctx context.Context, token string) error

	SaveRegistration(ctx context.Context, reg repository.Registration) error
	GetRegistration(ctx context.Context, id string) (repository.Registration, error)
	DeleteRegistrations(ctx context.Context, id, email string) error

	CreateDocument(ctx context.Context, d repository.Document) (repository.Document, error)
	UpdateDocument(ctx context.Context, d repository.Document) (repository.Document, error)
	GetDocument(ctx context.Context, ownerID, collection, id string) (repository.Document, error)
	ListDocuments(ctx context.Context, q repository.DocumentQuery) ([]repository.Document, int, error)
	DeleteDocument(ctx context.Context, ownerID, collection, id string) error

	CreateUpload(ctx context.Context, u repository.Upload) (repository.Upload, error)
	GetUpload(ctx context.Context, id string) (repository.Upload, error)
}

// Publisher receives a change event after every document mutation. Events
// are delivered only to connections of the owning user.
type Publisher interface {
	Publish(ownerID string, ev models.ChangeEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, models.ChangeEvent) {}

// Error carries the HTTP status the handler answers with.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrInvalidCredentials  = &Error{http.StatusUnauthorized, "Invalid email or password"}
	ErrAccountLocked       = &Error{http.StatusLocked, "Too many failed attempts. Try again later."}
	ErrNotVerified         = &Error{http.StatusForbidden, "Please verify your email before signing in"}
	ErrInvalidToken        = &Error{http.StatusUnauthorized, "Session expired"}
	ErrEmailTaken          = &Error{http.StatusConflict, "Email already registered"}
	ErrRegistrationExpired = &Error{http.StatusGone, "Registration session expired"}
	ErrInvalidCode         = &Error{http.StatusBadRequest, "Invalid verification code"}
	ErrStepOrder           = &Error{http.StatusConflict, "Complete the previous registration step first"}
)

type Services struct {
	Auth         *AuthService
	Registration *RegistrationService
	Documents    *DocumentsService
}

type options struct {
	now    func() time.Time
	code   func() string
	pub    Publisher
	log    zerolog.Logger
	params passhash.Params
}

type Option func(*options)

// WithClock replaces time.Now for token, lock and registration expiry.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithCodeGenerator replaces the random six digit verification code.
func WithCodeGenerator(code func() string) Option { return func(o *options) { o.code = code } }

func WithPublisher(p Publisher) Option { return func(o *options) { o.pub = p } }

func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.log = l } }

// WithHashParams sets the Argon2id cost for new passwords.
func WithHashParams(p passhash.Params) Option { return func(o *options) { o.params = p } }

func randomCode() string { return fmt.Sprintf("%06d", rand.IntN(1_000_000)) }

func NewServices(repo Repository, cfg config.Config, opts ...Option) *Services {
	o := options{
		now:    time.Now,
		code:   randomCode,
		pub:    nopPublisher{},
		log:    zerolog.Nop(),
		params: passhash.Interactive,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.RegistrationTTL <= 0 {
		cfg.RegistrationTTL = 30 * time.Minute
	}
	auth := &AuthService{
		repo:       repo,
		jwtSecret:  []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        o.now,
		log:        o.log,
	}
	docs := &DocumentsService{repo: repo, pub: o.pub, now: o.now, log: o.log}
	return &Services{
		Auth: auth,
		Registration: &RegistrationService{
			repo:          repo,
			auth:          auth,
			docs:          docs,
			ttl:           cfg.RegistrationTTL,
			requireVerify: cfg.RequireVerification,
			params:        o.params,
			now:           o.now,
			code:          o.code,
			log:           o.log,
		},
		Documents: docs,
	}
}
