package tokenx

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// mintToken signs a real HS256 token for decode tests. The signature is
// irrelevant to the codec; it only needs the three-segment shape.
func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestDecodeSubjectAndExpiry(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := mintToken(t, jwt.MapClaims{
		"sub": "jdoe@pancaran.example",
		"exp": exp.Unix(),
	})

	p, err := Decode(token)
	require.NoError(t, err)
	require.Equal(t, "jdoe@pancaran.example", p.Subject)
	require.NotNil(t, p.ExpiresAt)
	require.True(t, p.ExpiresAt.Equal(exp))
}

func TestDecodeNoExpiry(t *testing.T) {
	t.Parallel()

	p, err := Decode(mintToken(t, jwt.MapClaims{"sub": "jdoe"}))
	require.NoError(t, err)
	require.Equal(t, "jdoe", p.Subject)
	require.Nil(t, p.ExpiresAt)
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":            "",
		"one segment":      "abcdef",
		"two segments":     "header.payload",
		"four segments":    "a.b.c.d",
		"payload not json": "h." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".s",
		"payload garbage":  "h.!!!.s",
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(token)
			require.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestDecodeToleratesBase64Variants(t *testing.T) {
	t.Parallel()

	// Payload chosen so the encoding contains characters that differ
	// between the standard and URL-safe alphabets.
	payload := `{"sub":"????>>>~~~","exp":4102444800}`

	std := base64.StdEncoding.EncodeToString([]byte(payload))
	require.True(t, strings.ContainsAny(std, "+/"))

	variants := map[string]string{
		"standard padded":  std,
		"standard trimmed": strings.TrimRight(std, "="),
		"urlsafe padded":   base64.URLEncoding.EncodeToString([]byte(payload)),
		"urlsafe raw":      base64.RawURLEncoding.EncodeToString([]byte(payload)),
	}

	for name, seg := range variants {
		t.Run(name, func(t *testing.T) {
			p, err := Decode("header." + seg + ".sig")
			require.NoError(t, err)
			require.Equal(t, "????>>>~~~", p.Subject)
			require.NotNil(t, p.ExpiresAt)
		})
	}
}

func TestSubject(t *testing.T) {
	t.Parallel()

	sub, err := Subject(mintToken(t, jwt.MapClaims{"sub": "jdoe"}))
	require.NoError(t, err)
	require.Equal(t, "jdoe", sub)

	_, err = Subject(mintToken(t, jwt.MapClaims{"aud": "portal"}))
	require.ErrorIs(t, err, ErrMissingSubject)

	_, err = Subject("not-a-token")
	require.ErrorIs(t, err, ErrMalformedToken)
}

func TestIsExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()

	require.True(t, IsExpired(mintToken(t, jwt.MapClaims{"sub": "a", "exp": now.Add(-time.Second).Unix()})))
	require.False(t, IsExpired(mintToken(t, jwt.MapClaims{"sub": "a", "exp": now.Add(time.Hour).Unix()})))

	// Fail-safe: no exp claim and undecodable tokens count as expired.
	require.True(t, IsExpired(mintToken(t, jwt.MapClaims{"sub": "a"})))
	require.True(t, IsExpired("garbage"))
}
