// Package tokenx decodes identity-token payloads without verifying
// signatures.
//
// The portal never validates token signatures locally; it only needs the
// subject claim (to look up the default role) and the expiry claim (to
// decide whether a stored session is still worth presenting). Verification
// is the backend's job.
package tokenx

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken is returned when a token does not have the
	// three-segment structure or its payload is not valid encoded JSON.
	ErrMalformedToken = errors.New("malformed token")

	// ErrMissingSubject is returned when the payload carries no sub claim.
	ErrMissingSubject = errors.New("token missing sub claim")
)

// Payload holds the claims the portal cares about.
type Payload struct {
	Subject   string
	ExpiresAt *time.Time // nil when the token carries no exp claim
}

// Decode extracts the payload from a three-segment token. The payload
// segment may use either the standard or URL-safe base64 alphabet, with or
// without padding.
func Decode(token string) (*Payload, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}

	raw, err := decodeSegment(parts[1])
	if err != nil {
		return nil, ErrMalformedToken
	}

	// RegisteredClaims handles both integer and fractional exp forms.
	var claims jwt.RegisteredClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, ErrMalformedToken
	}

	p := &Payload{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		p.ExpiresAt = &exp
	}

	return p, nil
}

// Subject returns the sub claim of the token.
func Subject(token string) (string, error) {
	p, err := Decode(token)
	if err != nil {
		return "", err
	}
	if p.Subject == "" {
		return "", ErrMissingSubject
	}
	return p.Subject, nil
}

// IsExpired reports whether the token should be treated as expired. It is
// fail-safe: undecodable tokens and tokens without an exp claim count as
// expired.
func IsExpired(token string) bool {
	p, err := Decode(token)
	if err != nil || p.ExpiresAt == nil {
		return true
	}
	return p.ExpiresAt.Before(time.Now())
}

// decodeSegment normalises the segment to the standard alphabet and pads it
// before decoding, so both base64 variants and truncated padding round-trip.
func decodeSegment(seg string) ([]byte, error) {
	s := strings.ReplaceAll(seg, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}
	return base64.StdEncoding.DecodeString(s)
}
