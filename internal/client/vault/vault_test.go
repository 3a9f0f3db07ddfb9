package vault

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateLoadDestroy(t *testing.T) {
	v := New(filepath.Join(t.TempDir(), "nested"))

	if v.Exists() {
		t.Fatalf("key should not exist")
	}
	key, err := v.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if !v.Exists() {
		t.Fatalf("key must exist after generate")
	}
	if _, err := v.Generate(); !errors.Is(err, ErrExists) {
		t.Fatalf("second generate: want ErrExists, got %v", err)
	}
	loaded, err := v.Load()
	if err != nil {
		t.Fatal(err)
	}
	if string(loaded) != string(key) {
		t.Fatalf("loaded key differs")
	}
	if err := v.Destroy(); err != nil {
		t.Fatal(err)
	}
	if err := v.Destroy(); err != nil {
		t.Fatalf("destroy must be idempotent: %v", err)
	}
}

func TestSealerCreatesKeyOnFirstUse(t *testing.T) {
	v := New(t.TempDir())
	s1, err := v.Sealer()
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := s1.Seal([]byte("x"), nil)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := v.Sealer()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s2.Open(sealed, nil); err != nil {
		t.Fatalf("second sealer must reuse the stored key: %v", err)
	}
}

func TestLoadRejectsBadKey(t *testing.T) {
	v := New(t.TempDir())
	if err := os.WriteFile(v.Path(), []byte("c2hvcnQ="), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Load(); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("want ErrInvalidLength, got %v", err)
	}
}
