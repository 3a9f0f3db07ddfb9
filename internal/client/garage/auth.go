package garage

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/session"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
)

var errNoSession = errors.New("garage: service has no session store")

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// Login exchanges credentials for a token pair and stores it with the user
// record. A 401 here is a wrong password and is returned as is.
func (s *Service) Login(ctx context.Context, c Credentials) (models.User, error) {
	if s.session == nil {
		return models.User{}, errNoSession
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if err := s.check(c); err != nil {
		return models.User{}, err
	}
	data, err := s.api.Do(ctx, api.Request{Method: http.MethodPost, Path: api.LoginPath, Body: c, NoRefresh: true})
	if err != nil {
		return models.User{}, err
	}
	tr, err := api.Decode[models.TokenResponse](data)
	if err != nil {
		return models.User{}, err
	}
	return s.StartSession(tr)
}

// StartSession stores a token response from login or registration. The
// previous user's cached responses are dropped.
func (s *Service) StartSession(tr models.TokenResponse) (models.User, error) {
	if s.session == nil {
		return models.User{}, errNoSession
	}
	if tr.AccessToken == "" {
		return models.User{}, errors.New("login response has no access token")
	}
	s.cache.Clear(context.Background())
	if err := s.session.SaveTokens(session.TokenPair{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}); err != nil {
		return models.User{}, err
	}
	var u models.User
	if tr.User != nil {
		u = *tr.User
		if err := s.session.SaveUser(u); err != nil {
			return u, err
		}
	}
	s.log.Info().Str("user", u.Email).Msg("signed in")
	return u, nil
}

// Logout revokes the refresh token on the server when it can, then clears
// the session and the response cache. A server failure does not keep the
// user signed in.
func (s *Service) Logout(ctx context.Context) error {
	if s.session == nil {
		return errNoSession
	}
	if rt := s.session.Tokens().RefreshToken; rt != "" {
		req := api.Request{Method: http.MethodPost, Path: "/auth/logout", Body: map[string]string{"refresh_token": rt}, NoRefresh: true}
		if _, err := s.api.Do(ctx, req); err != nil {
			s.log.Warn().Err(err).Msg("server logout failed")
		}
	}
	s.cache.Clear(ctx)
	return s.session.Clear()
}

// CurrentUser returns the stored user record.
func (s *Service) CurrentUser() (models.User, error) {
	if s.session == nil {
		return models.User{}, errNoSession
	}
	if !s.session.SignedIn() {
		return models.User{}, ErrNotSignedIn
	}
	u, _, err := s.session.User()
	return u, err
}
