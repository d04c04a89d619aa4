// Package token issues and verifies the stateless bearer tokens used to
// authenticate API calls.  Tokens are HS256 JWTs whose subject is the account
// id.  Nothing is stored server-side: a token stays valid for its full TTL,
// even if the account is deleted in the meantime.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/omamori-api/internal/apperr"
)

// Issued is a signed token together with its expiry.
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// Service signs and verifies tokens with a process-wide secret.
type Service struct {
	secret []byte
	now    func() time.Time
}

func NewService(secret string) *Service {
	return &Service{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for accountID that expires ttl from now.
func (s *Service) Issue(accountID uint64, ttl time.Duration) (Issued, error) {
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(accountID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Issued{}, err
	}
	return Issued{Token: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks the signature and expiry of raw and returns the account id
// it was issued for.  Every failure is reported as Unauthenticated.
func (s *Service) Verify(raw string) (uint64, error) {
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, &apperr.Error{Kind: apperr.KindUnauthenticated, Message: "Token expired", Err: err}
		}
		return 0, &apperr.Error{Kind: apperr.KindUnauthenticated, Message: "Invalid token", Err: err}
	}
	if !tok.Valid {
		return 0, apperr.Unauthenticated("Invalid token")
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Unauthenticated("Invalid token subject")
	}
	return id, nil
}
