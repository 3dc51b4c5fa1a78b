// Package jwttoken issues and validates the HS256 bearer tokens that guard
// the verification API.
package jwttoken

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "nameguard/pkg/domain-errors"
	authmw "nameguard/pkg/platform/middleware/auth"
)

// Issuer and Audience are stamped on and required of every API token.
const (
	Issuer   = "nameguard"
	Audience = "nameguard-api"
)

// Claims are the access token claims. The subject names the calling system
// and is recorded as the actor on audit events.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// GenerateAccessToken signs a token for caller valid for expiresIn.
func (s *JWTService) GenerateAccessToken(caller string, expiresIn time.Duration) (string, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return "", dErrors.New(dErrors.CodeValidation, "caller is required")
	}
	now := s.now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(s.signingKey)
}

// ValidateToken checks signature, expiry, issuer and audience.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no subject")
	}
	return claims, nil
}

// Validator adapts JWTService to the auth middleware.
type Validator struct {
	service *JWTService
}

func NewValidator(service *JWTService) *Validator {
	return &Validator{service: service}
}

func (v *Validator) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{
		Caller: claims.Subject,
		JTI:    claims.ID,
	}, nil
}
