package organization

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"traceroot/pkg/ulid"
)

// InviteTokenIssuer mints and verifies the signed tokens carried by
// invitation emails. The token is self-contained: HMAC-signed, expiring,
// with the invitation id as subject, so the invitations table needs no token
// column.
type InviteTokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewInviteTokenIssuer creates an issuer with the given HMAC secret and
// token lifetime.
func NewInviteTokenIssuer(secret string, ttl time.Duration) *InviteTokenIssuer {
	return &InviteTokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Sign returns a token redeemable for the invitation until the TTL elapses.
func (i *InviteTokenIssuer) Sign(invitationID ulid.ULID) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   invitationID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign invitation token: %w", err)
	}
	return token, nil
}

// Verify validates the signature and expiry and returns the invitation id.
func (i *InviteTokenIssuer) Verify(token string) (ulid.ULID, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("parse invitation token: %w", err)
	}
	if !parsed.Valid {
		return ulid.ULID{}, fmt.Errorf("invalid invitation token")
	}
	id, err := ulid.Parse(claims.Subject)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("invitation token subject: %w", err)
	}
	return id, nil
}
