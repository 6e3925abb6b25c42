// internal/auth/token.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks bearer tokens at the HTTP boundary. Token issuance belongs
// to the external identity provider; this side only verifies signatures and
// extracts the subject. Lobby membership is never gated on identity.
type Verifier struct {
	publicKey ed25519.PublicKey
}

// Signer issues tokens. Only used by tests and local tooling; production
// tokens come from the external provider.
type Signer struct {
	privateKey ed25519.PrivateKey
}

// NewVerifierFromPath reads an ed25519 public key from file.
func NewVerifierFromPath(publicPath string) (*Verifier, error) {
	data, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("read public key file: %w", err)
	}
	if len(data) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key file %s: expected %d bytes, got %d", publicPath, ed25519.PublicKeySize, len(data))
	}
	return &Verifier{publicKey: ed25519.PublicKey(data)}, nil
}

// NewEphemeralPair generates a fresh in-memory key pair.
func NewEphemeralPair() (*Signer, *Verifier, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("generate ed25519 key pair: %w", err)
	}
	return &Signer{privateKey: priv}, &Verifier{publicKey: pub}, nil
}

// CreateJWT signs a token with "sub" = userID and no expiry.
func (s *Signer) CreateJWT(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{
		"sub": userID,
	})
	return token.SignedString(s.privateKey)
}

// Verify parses a token string and returns its subject, or an error if the
// signature or claims are invalid.
func (v *Verifier) Verify(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid jwt claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("missing sub in jwt")
	}
	return sub, nil
}
