// Package registration drives the multi-step garage sign-up:
//
//	personal -> [verification] -> location -> business -> complete
//
// Each step is acknowledged by the server with a session id that must be
// presented on the next step and that expires at a server-given time. The
// current step and the non-secret form fields are kept in the session draft
// so an interrupted sign-up can resume.
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/session"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
)

type Step string

const (
	StepPersonal     Step = "personal"
	StepVerification Step = "verification"
	StepLocation     Step = "location"
	StepBusiness     Step = "business"
	StepComplete     Step = "complete"
)

var (
	ErrSessionExpired = errors.New("registration session expired, start again")
	ErrOutOfOrder     = errors.New("registration step out of order")
)

const (
	step1Path  = "/auth/register/step1"
	step2Path  = "/auth/register/step2"
	step3Path  = "/auth/register/step3"
	verifyPath = "/auth/verify"
	resendPath = "/auth/verify/resend"

	// statusLoginTimeout is the non-standard "login time-out" some gateways
	// use for expired sessions.
	statusLoginTimeout = 440
)

// Doer performs one API call. *api.Client implements it.
type Doer interface {
	Do(ctx context.Context, req api.Request) (json.RawMessage, error)
}

// SessionStarter stores the tokens issued on completion.
type SessionStarter interface {
	StartSession(models.TokenResponse) (models.User, error)
}

type PersonalInfo struct {
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone_number" validate:"required,e164"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type LocationInfo struct {
	Address   string  `json:"address" validate:"required,max=300"`
	City      string  `json:"city" validate:"required,max=100"`
	Area      string  `json:"area,omitempty" validate:"max=100"`
	Latitude  float64 `json:"latitude,omitempty" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude,omitempty" validate:"gte=-180,lte=180"`
}

type BusinessInfo struct {
	GarageName   string   `json:"garage_name" validate:"required,min=2,max=100"`
	TradeLicense string   `json:"trade_license" validate:"required,max=50"`
	VATNumber    string   `json:"vat_number,omitempty" validate:"max=30"`
	Specialties  []string `json:"specialties,omitempty" validate:"dive,max=50"`
	LogoURL      string   `json:"logo_url,omitempty" validate:"omitempty,url"`
}

// Flow is the registration state machine. It is meant for one interactive
// user and is not safe for concurrent use.
type Flow struct {
	api      Doer
	store    *session.Store
	sessions SessionStarter
	validate *validator.Validate
	now      func() time.Time
	log      zerolog.Logger
}

type Option func(*Flow)

func WithClock(now func() time.Time) Option { return func(f *Flow) { f.now = now } }

func WithLogger(l zerolog.Logger) Option { return func(f *Flow) { f.log = l } }

func New(doer Doer, store *session.Store, sessions SessionStarter, opts ...Option) *Flow {
	f := &Flow{
		api:      doer,
		store:    store,
		sessions: sessions,
		validate: validator.New(),
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Current returns the step the user is on. Without a draft, or with an
// expired one, that is StepPersonal.
func (f *Flow) Current() (session.Draft, error) {
	d, ok, err := f.store.Draft()
	if err != nil {
		return session.Draft{}, err
	}
	if !ok || f.expired(d) {
		return session.Draft{Step: string(StepPersonal)}, nil
	}
	return d, nil
}

// SubmitPersonal starts a new registration, replacing any draft.
func (f *Flow) SubmitPersonal(ctx context.Context, in PersonalInfo) (Step, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := f.validate.Struct(in); err != nil {
		return StepPersonal, err
	}
	res, err := f.post(ctx, step1Path, in)
	if err != nil {
		return StepPersonal, err
	}
	next := StepLocation
	if res.RequiresVerification {
		next = StepVerification
	}
	d := session.Draft{
		SessionID: res.SessionID,
		Step:      string(next),
		ExpiresAt: res.ExpiresAt,
		Email:     in.Email,
		Fields:    map[string]string{"full_name": in.FullName, "phone_number": in.Phone},
	}
	return next, f.store.SaveDraft(d)
}

// Verify submits the code sent to the user's email or phone.
func (f *Flow) Verify(ctx context.Context, code string) (Step, error) {
	code = strings.TrimSpace(code)
	if err := f.validate.Var(code, "required,numeric,min=4,max=8"); err != nil {
		return StepVerification, err
	}
	return f.advance(ctx, StepVerification, verifyPath, map[string]string{"code": code}, StepLocation, nil)
}

// ResendCode asks for a new verification code. The step does not change.
func (f *Flow) ResendCode(ctx context.Context) error {
	d, err := f.at(StepVerification)
	if err != nil {
		return err
	}
	body, err := withSession(d.SessionID, nil)
	if err != nil {
		return err
	}
	_, err = f.post(ctx, resendPath, body)
	return f.expireOn(err)
}

func (f *Flow) SubmitLocation(ctx context.Context, in LocationInfo) (Step, error) {
	if err := f.validate.Struct(in); err != nil {
		return StepLocation, err
	}
	fields := map[string]string{"address": in.Address, "city": in.City, "area": in.Area}
	return f.advance(ctx, StepLocation, step2Path, in, StepBusiness, fields)
}

// SubmitBusiness finishes the registration. The issued tokens start the
// user's session and the draft is removed.
func (f *Flow) SubmitBusiness(ctx context.Context, in BusinessInfo) (models.User, error) {
	if err := f.validate.Struct(in); err != nil {
		return models.User{}, err
	}
	d, err := f.at(StepBusiness)
	if err != nil {
		return models.User{}, err
	}
	body, err := withSession(d.SessionID, in)
	if err != nil {
		return models.User{}, err
	}
	res, err := f.post(ctx, step3Path, body)
	if err != nil {
		return models.User{}, f.expireOn(err)
	}
	if err := f.store.ClearDraft(); err != nil {
		f.log.Warn().Err(err).Msg("clear registration draft")
	}
	if res.Tokens == nil {
		// Accounts that need manual approval get no tokens yet.
		return models.User{Email: d.Email}, nil
	}
	return f.sessions.StartSession(*res.Tokens)
}

// Reset abandons the current registration.
func (f *Flow) Reset() error {
	return f.store.ClearDraft()
}

// advance runs a mid-flow step: it must be the current step, the session id
// is attached, and on success the draft moves to next.
func (f *Flow) advance(ctx context.Context, want Step, path string, body any, next Step, fields map[string]string) (Step, error) {
	d, err := f.at(want)
	if err != nil {
		return want, err
	}
	payload, err := withSession(d.SessionID, body)
	if err != nil {
		return want, err
	}
	res, err := f.post(ctx, path, payload)
	if err != nil {
		return want, f.expireOn(err)
	}
	d.Step = string(next)
	if res.SessionID != "" {
		d.SessionID = res.SessionID
	}
	if !res.ExpiresAt.IsZero() {
		d.ExpiresAt = res.ExpiresAt
	}
	if d.Fields == nil {
		d.Fields = map[string]string{}
	}
	for k, v := range fields {
		d.Fields[k] = v
	}
	return next, f.store.SaveDraft(d)
}

// at loads the draft and checks that it is on step want and not expired.
func (f *Flow) at(want Step) (session.Draft, error) {
	d, ok, err := f.store.Draft()
	if err != nil {
		return d, err
	}
	if !ok {
		return d, fmt.Errorf("%w: start with personal details", ErrOutOfOrder)
	}
	if f.expired(d) {
		f.resetExpired()
		return d, ErrSessionExpired
	}
	if Step(d.Step) != want {
		return d, fmt.Errorf("%w: expected %s, at %s", ErrOutOfOrder, want, d.Step)
	}
	return d, nil
}

func (f *Flow) expired(d session.Draft) bool {
	return !d.ExpiresAt.IsZero() && !f.now().Before(d.ExpiresAt)
}

// expireOn maps a server-side session expiry to ErrSessionExpired and
// restarts the flow. Other errors pass through.
func (f *Flow) expireOn(err error) error {
	if err == nil {
		return nil
	}
	var ae *api.Error
	if !errors.As(err, &ae) {
		return err
	}
	msg := strings.ToLower(ae.Message)
	if ae.Status == http.StatusGone || ae.Status == statusLoginTimeout ||
		(strings.Contains(msg, "session") && strings.Contains(msg, "expired")) {
		f.resetExpired()
		return ErrSessionExpired
	}
	return err
}

func (f *Flow) resetExpired() {
	f.log.Info().Msg("registration session expired, restarting")
	if err := f.store.ClearDraft(); err != nil {
		f.log.Warn().Err(err).Msg("clear registration draft")
	}
}

func (f *Flow) post(ctx context.Context, path string, body any) (models.RegistrationStep, error) {
	data, err := f.api.Do(ctx, api.Request{Method: http.MethodPost, Path: path, Body: body, NoRefresh: true})
	if err != nil {
		return models.RegistrationStep{}, err
	}
	return api.Decode[models.RegistrationStep](data)
}

// withSession merges session_id into the JSON object body. A body that does
// not encode as a JSON object is an error.
func withSession(id string, body any) (map[string]any, error) {
	out := map[string]any{}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode registration step: %w", err)
		}
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, fmt.Errorf("registration step body is not an object: %w", err)
		}
	}
	out["session_id"] = id
	return out, nil
}
