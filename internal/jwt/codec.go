// Package jwt implements the session TokenCodec: HMAC-signed JWTs carrying
// the session payload plus an exp claim computed from the configured TTL.
package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Decode failures. Callers match them with errors.Is.
var (
	ErrInvalidSignature = errors.New("jwt: invalid signature")
	ErrExpired          = errors.New("jwt: token expired")
	ErrMalformed        = errors.New("jwt: malformed token")
)

// SupportedAlgorithms lists the HMAC algorithms the codec accepts.
var SupportedAlgorithms = []string{"HS256", "HS384", "HS512"}

// Codec signs and verifies session tokens. It is immutable after construction
// and safe for concurrent use.
type Codec struct {
	secret []byte
	method *jwtv5.SigningMethodHMAC
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec builds a codec for the given secret, algorithm name and token TTL.
func NewCodec(secret, algorithm string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("jwt: empty secret")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("jwt: ttl must be positive, got %s", ttl)
	}
	var m *jwtv5.SigningMethodHMAC
	switch strings.ToUpper(algorithm) {
	case "", "HS256":
		m = jwtv5.SigningMethodHS256
	case "HS384":
		m = jwtv5.SigningMethodHS384
	case "HS512":
		m = jwtv5.SigningMethodHS512
	default:
		return nil, fmt.Errorf("jwt: unsupported algorithm %q", algorithm)
	}
	return &Codec{secret: []byte(secret), method: m, ttl: ttl, now: time.Now}, nil
}

// Algorithm returns the JWS alg name.
func (c *Codec) Algorithm() string { return c.method.Alg() }

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Create merges exp = now + ttl into a copy of payload and signs it.
func (c *Codec) Create(payload map[string]any) (string, error) {
	tok, _, err := c.CreateWithExpiry(payload)
	return tok, err
}

// CreateWithExpiry is Create that also reports the exp it stamped.
func (c *Codec) CreateWithExpiry(payload map[string]any) (string, time.Time, error) {
	exp := c.now().Add(c.ttl).Truncate(time.Second)

	claims := jwtv5.MapClaims{}
	for k, v := range payload {
		claims[k] = v
	}
	claims["exp"] = exp.Unix()

	tk := jwtv5.NewWithClaims(c.method, claims)
	signed, err := tk.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Decode verifies signature and expiry and returns the payload, exp included.
// A token is valid iff the signature verifies and exp > now.
func (c *Codec) Decode(token string) (map[string]any, error) {
	parser := jwtv5.NewParser(
		jwtv5.WithValidMethods([]string{c.method.Alg()}),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(c.now),
	)

	claims := jwtv5.MapClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwtv5.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	// jwt/v5 acepta exp == now; acá exp debe ser estrictamente futuro.
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrMalformed
	}
	if !exp.Time.After(c.now()) {
		return nil, ErrExpired
	}

	out := make(map[string]any, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	return out, nil
}

// ExpiresAt extracts exp from a decoded payload.
func ExpiresAt(payload map[string]any) time.Time {
	switch v := payload["exp"].(type) {
	case float64:
		return time.Unix(int64(v), 0)
	case int64:
		return time.Unix(v, 0)
	case int:
		return time.Unix(int64(v), 0)
	}
	return time.Time{}
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwtv5.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwtv5.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrMalformed
	}
}
