package service

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// fastHasher skips the cost floor so tests don't spend seconds in bcrypt.
func fastHasher() *PasswordHasher {
	return &PasswordHasher{cost: bcrypt.MinCost}
}

func TestNewPasswordHasherCost(t *testing.T) {
	h, err := NewPasswordHasher(0)
	if err != nil {
		t.Fatalf("NewPasswordHasher(0): %v", err)
	}
	if h.Cost() != MinBcryptCost {
		t.Errorf("Cost() = %d, want %d", h.Cost(), MinBcryptCost)
	}

	for _, cost := range []int{4, 10, 11, bcrypt.MaxCost + 1} {
		if _, err := NewPasswordHasher(cost); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("NewPasswordHasher(%d): expected ErrInvalidParameter, got %v", cost, err)
		}
	}
}

func TestHashUsesConfiguredCost(t *testing.T) {
	h, _ := NewPasswordHasher(12)
	hash, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost: %v", err)
	}
	if cost != 12 {
		t.Errorf("hash cost = %d, want 12", cost)
	}
}

func TestHashVerify(t *testing.T) {
	h := fastHasher()

	first, err := h.Hash("s3cret!Pass")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	second, _ := h.Hash("s3cret!Pass")
	if first == second {
		t.Error("hashing the same input twice should produce different hashes")
	}
	if first == "s3cret!Pass" {
		t.Error("hash must not equal the plaintext")
	}

	if !h.Verify("s3cret!Pass", first) || !h.Verify("s3cret!Pass", second) {
		t.Error("Verify should accept the original password")
	}
	if h.Verify("s3cret!pass", first) {
		t.Error("Verify should reject a different password")
	}
	if h.Verify("", first) {
		t.Error("Verify should reject an empty password")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := fastHasher()
	for _, stored := range []string{"", "not-a-hash", "$2a$12$short"} {
		if h.Verify("anything", stored) {
			t.Errorf("Verify accepted malformed hash %q", stored)
		}
	}
}
