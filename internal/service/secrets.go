package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"

	"github.com/google/uuid"
)

// MinPasswordLength is the shortest password that can hold one character of
// every class.
const MinPasswordLength = 4

// TokenBytes is the entropy of a session token: 256 bits.
const TokenBytes = 32

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	punctChars  = "!@#$%^&*()-_=+[]{}|;:,.<>?"
	secretChars = lowerChars + upperChars + digitChars + punctChars
)

// SecretGenerator produces passwords and session tokens from a
// cryptographically secure source. A read failure is returned as an error;
// there is no fallback to a weaker generator.
type SecretGenerator struct {
	rand io.Reader
}

// NewSecretGenerator returns a generator reading from r, or from
// crypto/rand when r is nil.
func NewSecretGenerator(r io.Reader) *SecretGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &SecretGenerator{rand: r}
}

// GeneratePassword returns a password of exactly length characters holding at
// least one lowercase letter, uppercase letter, digit and punctuation mark.
func (g *SecretGenerator) GeneratePassword(length int) (string, error) {
	if length < MinPasswordLength {
		return "", fmt.Errorf("%w: password length %d is below %d", ErrInvalidParameter, length, MinPasswordLength)
	}

	buf := make([]byte, 0, length)
	for _, class := range []string{lowerChars, upperChars, digitChars, punctChars} {
		c, err := g.pick(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < length {
		c, err := g.pick(secretChars)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	// Fisher-Yates, so the seeded classes land anywhere.
	for i := len(buf) - 1; i > 0; i-- {
		j, err := g.intn(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

// GenerateToken returns an opaque URL-safe session token.
func (g *SecretGenerator) GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := io.ReadFull(g.rand, b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateID returns a random (version 4) UUID.
func (g *SecretGenerator) GenerateID() string {
	return uuid.NewString()
}

func (g *SecretGenerator) pick(set string) (byte, error) {
	i, err := g.intn(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func (g *SecretGenerator) intn(n int) (int, error) {
	v, err := rand.Int(g.rand, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random bytes: %w", err)
	}
	return int(v.Int64()), nil
}
