package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultAccessTokenTTL matches the 30 day session lifetime of the web client.
const DefaultAccessTokenTTL = 30 * 24 * time.Hour

// clockSkew tolerated on exp/nbf when replicas disagree slightly on time.
const clockSkew = 30 * time.Second

type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	Clock          func() time.Time
}

// Claims carry tenant and role for convenience only; Authenticator.Resolve re-reads both
// from the store on every request.
type Claims struct {
	UserID    string `json:"uid"`
	CompanyID string `json:"cid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

type AccessTokenInput struct {
	UserID    string
	CompanyID string
	Role      string
}

// JWTService signs and verifies HS256 session tokens.
type JWTService struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	svc := &JWTService{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTokenTTL,
		now:    cfg.Clock,
	}
	if svc.ttl <= 0 {
		svc.ttl = DefaultAccessTokenTTL
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	svc.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(func() time.Time { return svc.now() }),
	)
	return svc, nil
}

func (s *JWTService) TTL() time.Duration { return s.ttl }

// GenerateAccessToken signs a token for the user and returns it with its expiry.
func (s *JWTService) GenerateAccessToken(in AccessTokenInput) (string, time.Time, error) {
	switch {
	case in.UserID == "":
		return "", time.Time{}, errors.New("jwt: user id is required")
	case in.CompanyID == "":
		return "", time.Time{}, errors.New("jwt: company id is required")
	}

	issued := s.now()
	expires := issued.Add(s.ttl)
	claims := Claims{
		UserID:    in.UserID,
		CompanyID: in.CompanyID,
		Role:      in.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   in.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, expires, nil
}

// ValidateAccessToken verifies signature, algorithm and time claims. Parse failures wrap
// the jwt package sentinels (jwt.ErrTokenExpired and friends).
func (s *JWTService) ValidateAccessToken(raw string) (*Claims, error) {
	if raw == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	claims := new(Claims)
	if _, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return s.key, nil }); err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	switch {
	case s.issuer != "" && claims.Issuer != s.issuer:
		return nil, errors.New("jwt: invalid issuer")
	case claims.UserID == "" || claims.CompanyID == "" || claims.Subject != claims.UserID:
		return nil, errors.New("jwt: missing identity claims")
	}
	return claims, nil
}
