package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultSessionTTL = 24 * time.Hour

var errInvalidToken = errors.New("invalid session token")

// SessionClaims are the claims carried by a session token. The role is not
// part of the token; it is resolved from the profile on every request.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for userID together with its session id.
func (t *TokenIssuer) Issue(userID string) (token string, claims SessionClaims, err error) {
	now := t.now().UTC()
	claims = SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", SessionClaims{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, claims, nil
}

// Parse verifies signature, algorithm and expiry.
func (t *TokenIssuer) Parse(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !tkn.Valid {
		return nil, errors.Join(errInvalidToken, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}
