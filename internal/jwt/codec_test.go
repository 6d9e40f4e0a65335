package jwt

import (
	"strings"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func fixedCodec(t *testing.T, alg string, at time.Time) *Codec {
	t.Helper()
	c, err := NewCodec("s3cret-for-tests", alg, time.Hour)
	require.NoError(t, err)
	c.now = func() time.Time { return at }
	return c
}

func TestCodec_RoundTripAddsExp(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, alg := range SupportedAlgorithms {
		t.Run(alg, func(t *testing.T) {
			c := fixedCodec(t, alg, now)
			tok, exp, err := c.CreateWithExpiry(map[string]any{
				"id":       "u-1",
				"identity": "github:42",
				"email":    "ana@example.com",
			})
			require.NoError(t, err)
			require.Equal(t, now.Add(time.Hour), exp)

			got, err := c.Decode(tok)
			require.NoError(t, err)
			require.Equal(t, "u-1", got["id"])
			require.Equal(t, "github:42", got["identity"])
			require.Equal(t, "ana@example.com", got["email"])
			require.Equal(t, exp.Unix(), ExpiresAt(got).Unix())
		})
	}
}

func TestCodec_CreateDoesNotMutatePayload(t *testing.T) {
	c := fixedCodec(t, "HS256", time.Now())
	p := map[string]any{"id": "x"}
	_, err := c.Create(p)
	require.NoError(t, err)
	_, has := p["exp"]
	require.False(t, has)
}

func TestCodec_ExpiredTokenFails(t *testing.T) {
	now := time.Now()
	issuer := fixedCodec(t, "HS256", now.Add(-2*time.Hour))
	tok, err := issuer.Create(map[string]any{"id": "u"})
	require.NoError(t, err)

	verifier := fixedCodec(t, "HS256", now)
	_, err = verifier.Decode(tok)
	require.ErrorIs(t, err, ErrExpired)
}

func TestCodec_ExpEqualToNowIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := fixedCodec(t, "HS256", now)
	tok, err := c.Create(map[string]any{"id": "u"})
	require.NoError(t, err)

	c.now = func() time.Time { return now.Add(time.Hour) }
	_, err = c.Decode(tok)
	require.ErrorIs(t, err, ErrExpired)
}

func TestCodec_TamperedSignature(t *testing.T) {
	c := fixedCodec(t, "HS256", time.Now())
	tok, err := c.Create(map[string]any{"id": "u"})
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	parts[2] = string(sig)
	_, err = c.Decode(strings.Join(parts, "."))
	require.ErrorIs(t, err, ErrInvalidSignature)

	other, err := NewCodec("another-secret", "HS256", time.Hour)
	require.NoError(t, err)
	_, err = other.Decode(tok)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_ExpiredAndTamperedReportsSignature(t *testing.T) {
	now := time.Now()
	old := fixedCodec(t, "HS256", now.Add(-2*time.Hour))
	tok, err := old.Create(map[string]any{"id": "u"})
	require.NoError(t, err)

	other, err := NewCodec("another-secret", "HS256", time.Hour)
	require.NoError(t, err)
	_, err = other.Decode(tok)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_AlgorithmMismatchIsInvalidSignature(t *testing.T) {
	c512 := fixedCodec(t, "HS512", time.Now())
	tok, err := c512.Create(map[string]any{"id": "u"})
	require.NoError(t, err)

	c256 := fixedCodec(t, "HS256", time.Now())
	_, err = c256.Decode(tok)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_Malformed(t *testing.T) {
	c := fixedCodec(t, "HS256", time.Now())
	for _, in := range []string{"", "abc", "a.b.c", "only.two"} {
		_, err := c.Decode(in)
		require.ErrorIs(t, err, ErrMalformed, in)
	}

	// firmado correctamente pero sin exp
	raw := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{"id": "u"})
	tok, err := raw.SignedString([]byte("s3cret-for-tests"))
	require.NoError(t, err)
	_, err = c.Decode(tok)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestNewCodec_Validation(t *testing.T) {
	_, err := NewCodec("", "HS256", time.Hour)
	require.Error(t, err)
	_, err = NewCodec("x", "RS256", time.Hour)
	require.Error(t, err)
	_, err = NewCodec("x", "HS256", 0)
	require.Error(t, err)

	c, err := NewCodec("x", "hs384", time.Minute)
	require.NoError(t, err)
	require.Equal(t, "HS384", c.Algorithm())
	require.Equal(t, time.Minute, c.TTL())
}
