package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/repository"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/passhash"
)

// Step names returned as next_step.
const (
	StepVerification = "verification"
	StepLocation     = "location"
	StepBusiness     = "business"
	StepComplete     = "complete"
)

const ownerRole = "garage_owner"

type PersonalInput struct {
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone_number" validate:"required,e164"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type LocationInput struct {
	SessionID string  `json:"session_id" validate:"required"`
	Address   string  `json:"address" validate:"required,max=300"`
	City      string  `json:"city" validate:"required,max=100"`
	Area      string  `json:"area" validate:"max=100"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

type BusinessInput struct {
	SessionID    string   `json:"session_id" validate:"required"`
	GarageName   string   `json:"garage_name" validate:"required,min=2,max=100"`
	TradeLicense string   `json:"trade_license" validate:"required,max=50"`
	VATNumber    string   `json:"vat_number" validate:"max=30"`
	Specialties  []string `json:"specialties" validate:"dive,max=50"`
	LogoURL      string   `json:"logo_url" validate:"omitempty,url"`
}

type VerifyInput struct {
	SessionID string `json:"session_id" validate:"required"`
	Code      string `json:"code" validate:"required,numeric,min=4,max=8"`
}

type SessionInput struct {
	SessionID string `json:"session_id" validate:"required"`
}

// RegistrationService runs the garage sign-up: personal details, an optional
// emailed code, location, then business details which create the account.
type RegistrationService struct {
	repo          Repository
	auth          *AuthService
	docs          *DocumentsService
	ttl           time.Duration
	requireVerify bool
	params        passhash.Params
	now           func() time.Time
	code          func() string
	log           zerolog.Logger
}

func (s *RegistrationService) Start(ctx context.Context, in PersonalInput) (models.RegistrationStep, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return models.RegistrationStep{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return models.RegistrationStep{}, err
	}
	hash, err := s.params.Hash(in.Password)
	if err != nil {
		return models.RegistrationStep{}, err
	}
	reg := repository.Registration{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        in.Phone,
		PasswordHash: []byte(hash),
		Verified:     !s.requireVerify,
		Step:         StepLocation,
		Location:     map[string]any{},
	}
	if s.requireVerify {
		reg.Step = StepVerification
		reg.Code = s.code()
	}
	// A new start replaces any unfinished registration for the same email.
	if err := s.repo.DeleteRegistrations(ctx, reg.ID, email); err != nil {
		return models.RegistrationStep{}, err
	}
	return s.save(ctx, reg)
}

func (s *RegistrationService) save(ctx context.Context, reg repository.Registration) (models.RegistrationStep, error) {
	reg.ExpiresAt = s.now().Add(s.ttl).UTC()
	if err := s.repo.SaveRegistration(ctx, reg); err != nil {
		return models.RegistrationStep{}, err
	}
	if reg.Code != "" && !reg.Verified {
		s.log.Info().Str("email", reg.Email).Str("code", reg.Code).Msg("verification code issued")
	}
	return models.RegistrationStep{
		SessionID:            reg.ID,
		ExpiresAt:            reg.ExpiresAt,
		NextStep:             reg.Step,
		RequiresVerification: !reg.Verified,
	}, nil
}

// load returns the live registration for id. Unknown and expired sessions
// are both reported as expired so the client starts over.
func (s *RegistrationService) load(ctx context.Context, id string) (repository.Registration, error) {
	reg, err := s.repo.GetRegistration(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return reg, ErrRegistrationExpired
	}
	if err != nil {
		return reg, err
	}
	if !s.now().Before(reg.ExpiresAt) {
		_ = s.repo.DeleteRegistrations(ctx, reg.ID, reg.Email)
		return reg, ErrRegistrationExpired
	}
	return reg, nil
}

func (s *RegistrationService) Verify(ctx context.Context, in VerifyInput) (models.RegistrationStep, error) {
	reg, err := s.load(ctx, in.SessionID)
	if err != nil {
		return models.RegistrationStep{}, err
	}
	if reg.Step != StepVerification {
		return models.RegistrationStep{}, ErrStepOrder
	}
	if strings.TrimSpace(in.Code) != reg.Code {
		return models.RegistrationStep{}, ErrInvalidCode
	}
	reg.Verified, reg.Step = true, StepLocation
	return s.save(ctx, reg)
}

// Resend issues a new code and extends the session.
func (s *RegistrationService) Resend(ctx context.Context, in SessionInput) (models.RegistrationStep, error) {
	reg, err := s.load(ctx, in.SessionID)
	if err != nil {
		return models.RegistrationStep{}, err
	}
	if reg.Step != StepVerification {
		return models.RegistrationStep{}, ErrStepOrder
	}
	reg.Code = s.code()
	return s.save(ctx, reg)
}

func (s *RegistrationService) Location(ctx context.Context, in LocationInput) (models.RegistrationStep, error) {
	reg, err := s.load(ctx, in.SessionID)
	if err != nil {
		return models.RegistrationStep{}, err
	}
	if reg.Step != StepLocation && reg.Step != StepBusiness {
		return models.RegistrationStep{}, ErrStepOrder
	}
	reg.Location = map[string]any{
		"address":   in.Address,
		"city":      in.City,
		"area":      in.Area,
		"latitude":  in.Latitude,
		"longitude": in.Longitude,
	}
	reg.Step = StepBusiness
	return s.save(ctx, reg)
}

// Complete creates the account and its garage profile, then signs the owner
// in.
func (s *RegistrationService) Complete(ctx context.Context, in BusinessInput) (models.RegistrationStep, error) {
	reg, err := s.load(ctx, in.SessionID)
	if err != nil {
		return models.RegistrationStep{}, err
	}
	if reg.Step != StepBusiness {
		return models.RegistrationStep{}, ErrStepOrder
	}
	u, err := s.repo.CreateUser(ctx, repository.User{
		Email:        reg.Email,
		FullName:     reg.FullName,
		Phone:        reg.Phone,
		PasswordHash: reg.PasswordHash,
		Role:         ownerRole,
		Verified:     true,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return models.RegistrationStep{}, ErrEmailTaken
	}
	if err != nil {
		return models.RegistrationStep{}, err
	}
	profile := map[string]any{
		"garage_name":   in.GarageName,
		"owner_name":    reg.FullName,
		"email":         reg.Email,
		"phone_number":  reg.Phone,
		"trade_license": in.TradeLicense,
		"vat_number":    in.VATNumber,
		"specialties":   in.Specialties,
		"logo_url":      in.LogoURL,
		"working_hours": map[string]string{},
		"rating":        0,
	}
	for k, v := range reg.Location {
		profile[k] = v
	}
	if _, err := s.docs.Upsert(ctx, u.ID, Profiles, u.ID, profile); err != nil {
		return models.RegistrationStep{}, err
	}
	if err := s.repo.DeleteRegistrations(ctx, reg.ID, reg.Email); err != nil {
		return models.RegistrationStep{}, err
	}
	tokens, err := s.auth.issue(ctx, u)
	if err != nil {
		return models.RegistrationStep{}, err
	}
	s.log.Info().Str("email", u.Email).Str("garage", in.GarageName).Msg("garage registered")
	return models.RegistrationStep{NextStep: StepComplete, Tokens: &tokens}, nil
}
