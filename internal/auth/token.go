// Package auth issues and verifies the HS256 bearer tokens that carry the
// caller's account identity into the websocket transport. The core never
// sees a token, only the verified domain.Account.
package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"secretquiz-service/internal/domain"
)

// ErrInvalidToken covers expired, malformed and wrongly-signed tokens.
var ErrInvalidToken = errors.New("invalid auth token")

// Claims binds an account to the standard registered claims.
type Claims struct {
	Account string `json:"account"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies account tokens with a shared secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for account. Accounts are case-normalized so creator
// and owner checks compare reliably.
func (t *Tokens) Issue(account domain.Account) (string, error) {
	now := time.Now()
	claims := Claims{
		Account: normalize(account),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses a token and returns the account it carries.
func (t *Tokens) Verify(raw string) (domain.Account, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Account == "" {
		return "", ErrInvalidToken
	}
	return domain.Account(claims.Account), nil
}

func normalize(account domain.Account) string {
	return strings.ToLower(strings.TrimSpace(string(account)))
}
