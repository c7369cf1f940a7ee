package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordVerifies(t *testing.T) {
	hash, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "pw1" {
		t.Fatal("expected hash to differ from plaintext")
	}
	if !VerifyPassword("pw1", hash) {
		t.Fatal("expected password to verify")
	}
	if VerifyPassword("pw2", hash) {
		t.Fatal("expected different password to fail")
	}
}

func TestHashPasswordIsSalted(t *testing.T) {
	first, err := HashPassword("same")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	second, err := HashPassword("same")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct salts")
	}
	if !VerifyPassword("same", first) || !VerifyPassword("same", second) {
		t.Fatal("expected both hashes to verify")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for _, hash := range []string{"", "plaintext", "$2a$10$short", "$9z$10$" + strings.Repeat("a", 53)} {
		if VerifyPassword("pw", hash) {
			t.Fatalf("expected malformed hash %q to fail", hash)
		}
	}
}

func TestHashPasswordTooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("x", 73))
	if !errors.Is(err, bcrypt.ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}
