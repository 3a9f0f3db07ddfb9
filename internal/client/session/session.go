// Package session persists the client-side state that outlives one command:
// the token pair, the signed-in user, the profile record and the in-progress
// registration draft. Each category has its own file under the data
// directory, apart from the response cache, so clearing one never touches
// the other.
package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	cryptohelper "github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/crypto"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
)

const (
	tokensFile  = "tokens"
	userFile    = "user"
	profileFile = "profile"
	draftFile   = "registration"
)

// TokenPair is the end-user credential pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Draft is the state of a multi-step registration between steps.
type Draft struct {
	SessionID string            `json:"session_id"`
	Step      string            `json:"step"`
	ExpiresAt time.Time         `json:"expires_at"`
	Email     string            `json:"email,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Store is safe for concurrent use. The token pair is kept in memory after
// the first load so header builders read it synchronously at call time.
type Store struct {
	dir    string
	sealer *cryptohelper.Sealer

	mu     sync.RWMutex
	tokens TokenPair
}

// Open prepares dir and loads the token pair if one is stored. With a nil
// sealer files are written in clear, which tests use.
func Open(dir string, sealer *cryptohelper.Sealer) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	s := &Store{dir: dir, sealer: sealer}
	var tp TokenPair
	ok, err := s.read(tokensFile, &tp)
	if err != nil {
		return nil, err
	}
	if ok {
		s.tokens = tp
	}
	return s, nil
}

// Tokens returns the current pair; both fields are empty when signed out.
func (s *Store) Tokens() TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

func (s *Store) AccessToken() string {
	return s.Tokens().AccessToken
}

func (s *Store) SignedIn() bool {
	return s.AccessToken() != ""
}

// SaveTokens replaces the pair. An empty RefreshToken keeps the stored one,
// matching refresh responses that rotate only the access token.
func (s *Store) SaveTokens(tp TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tp.RefreshToken == "" {
		tp.RefreshToken = s.tokens.RefreshToken
	}
	if err := s.write(tokensFile, tp); err != nil {
		return err
	}
	s.tokens = tp
	return nil
}

func (s *Store) User() (models.User, bool, error) {
	var u models.User
	ok, err := s.read(userFile, &u)
	return u, ok, err
}

func (s *Store) SaveUser(u models.User) error {
	return s.write(userFile, u)
}

// LoadProfile decodes the stored profile record into v.
func (s *Store) LoadProfile(v any) (bool, error) {
	return s.read(profileFile, v)
}

func (s *Store) SaveProfile(v any) error {
	return s.write(profileFile, v)
}

func (s *Store) Draft() (Draft, bool, error) {
	var d Draft
	ok, err := s.read(draftFile, &d)
	return d, ok, err
}

func (s *Store) SaveDraft(d Draft) error {
	return s.write(draftFile, d)
}

func (s *Store) ClearDraft() error {
	return s.remove(draftFile)
}

// Clear signs out: tokens, user and profile records go; the registration
// draft and the response cache are left alone.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.tokens = TokenPair{}
	s.mu.Unlock()
	return errors.Join(s.remove(tokensFile), s.remove(userFile), s.remove(profileFile))
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *Store) write(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if s.sealer != nil {
		if b, err = s.sealer.Seal(b, []byte(name)); err != nil {
			return err
		}
	}
	tmp := s.path(name) + ".tmp"
	if err := os.WriteFile(tmp, b, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(name))
}

func (s *Store) read(name string, v any) (bool, error) {
	b, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if s.sealer != nil {
		if b, err = s.sealer.Open(b, []byte(name)); err != nil {
			return false, err
		}
	}
	return true, json.Unmarshal(b, v)
}

func (s *Store) remove(name string) error {
	err := os.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
