package passhash

import (
	"errors"
	"testing"
)

var fast = Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestHashAndVerify(t *testing.T) {
	h, err := HashPassword("password123")
	if err != nil {
		t.Fatal(err)
	}
	ok, err := VerifyPassword(h, "password123")
	if err != nil || !ok {
		t.Fatalf("verify failed: %v", err)
	}
	ok, err = VerifyPassword(h, "wrong")
	if err != nil || ok {
		t.Fatalf("expected mismatch")
	}
}

func TestVerify_ReadsParamsFromHash(t *testing.T) {
	h, err := fast.Hash("garage")
	if err != nil {
		t.Fatal(err)
	}
	ok, err := VerifyPassword(h, "garage")
	if err != nil || !ok {
		t.Fatalf("verify with custom params failed: %v", err)
	}
}

func TestVerify_Errors(t *testing.T) {
	if _, err := VerifyPassword("", "x"); !errors.Is(err, ErrEmptyHash) {
		t.Fatalf("want ErrEmptyHash, got %v", err)
	}
	if _, err := VerifyPassword("$argon2id$bad", "x"); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("want ErrInvalidFormat, got %v", err)
	}
	if _, err := VerifyPassword("$bcrypt$v=19$m=1,t=1,p=1$AA$AA", "x"); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("want ErrInvalidFormat for other algorithms, got %v", err)
	}
}
