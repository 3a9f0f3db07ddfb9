package cryptohelper_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	cryptohelper "github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/crypto"
)

func newSealer(t *testing.T) *cryptohelper.Sealer {
	t.Helper()
	key := make([]byte, cryptohelper.KeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	s, err := cryptohelper.NewSealer(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSealer_RoundTrip(t *testing.T) {
	s := newSealer(t)
	plaintext := []byte(`{"access_token":"a"}`)
	sealed, err := s.Seal(plaintext, []byte("session/tokens"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Fatalf("sealed blob leaks plaintext")
	}
	opened, err := s.Open(sealed, []byte("session/tokens"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("got %q want %q", opened, plaintext)
	}
}

func TestSealer_WrongAAD(t *testing.T) {
	s := newSealer(t)
	sealed, err := s.Seal([]byte("x"), []byte("/bookings"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Open(sealed, []byte("/profile")); err == nil {
		t.Fatalf("expected auth error for blob moved to another key")
	}
}

func TestSealer_WrongKey(t *testing.T) {
	sealed, err := newSealer(t).Seal([]byte("data"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := newSealer(t).Open(sealed, nil); err == nil {
		t.Fatalf("expected auth error with wrong key")
	}
}

func TestSealer_Errors(t *testing.T) {
	if _, err := cryptohelper.NewSealer(make([]byte, 15)); err != cryptohelper.ErrKeySize {
		t.Fatalf("want ErrKeySize, got %v", err)
	}
	if _, err := newSealer(t).Open([]byte("short"), nil); err != cryptohelper.ErrCiphertextTooShort {
		t.Fatalf("want ErrCiphertextTooShort, got %v", err)
	}
}
