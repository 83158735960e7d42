package api

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// GenerateKey generates a P-521 key for signing ES512 access tokens.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ecdsa key: %w", err)
	}
	return key, nil
}

// WriteKeyPair writes `key` and then its public key to `w` as PEM blocks.
// The public key block is the value for the `accessKey` setting.
func WriteKeyPair(w io.Writer, key *ecdsa.PrivateKey) error {
	data, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("x509 marshaling ecdsa private key: %w", err)
	}
	if err := pem.Encode(
		w,
		&pem.Block{Type: "PRIVATE KEY", Bytes: data},
	); err != nil {
		return fmt.Errorf("encoding private key as pem: %w", err)
	}

	data, err = x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return fmt.Errorf("x509 marshaling ecdsa public key: %w", err)
	}
	if err := pem.Encode(
		w,
		&pem.Block{Type: "PUBLIC KEY", Bytes: data},
	); err != nil {
		return fmt.Errorf("encoding public key as pem: %w", err)
	}
	return nil
}

// ParsePrivateKey decodes the first private key block of PEM `data`, such as
// the output of `WriteKeyPair`.
func ParsePrivateKey(data []byte) (*ecdsa.PrivateKey, error) {
	for {
		block, rest := pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("PEM data is missing a 'PRIVATE KEY' block")
		}
		if block.Type != "PRIVATE KEY" && block.Type != "EC PRIVATE KEY" {
			data = rest
			continue
		}
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing x509 ec private key: %w", err)
		}
		return key, nil
	}
}

// SignAccessToken issues an ES512 access token for `subject`. A zero `ttl`
// issues a token which never expires.
func SignAccessToken(
	key *ecdsa.PrivateKey,
	subject string,
	now time.Time,
	ttl time.Duration,
) (string, error) {
	claims := jwt.StandardClaims{
		Subject:  subject,
		IssuedAt: now.Unix(),
	}
	if ttl > 0 {
		claims.ExpiresAt = now.Add(ttl).Unix()
	}
	token, err := jwt.NewWithClaims(
		jwt.SigningMethodES512,
		&claims,
	).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return token, nil
}
