package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is what a session token vouches for.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Session is a validated token: the identity plus the data needed to revoke it.
type Session struct {
	Identity
	TokenID   string
	ExpiresAt time.Time
}

type claims struct {
	Identity
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 session tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret, issuer string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for id that expires after the configured TTL.
func (s *TokenService) Issue(id Identity) (string, error) {
	now := s.now()
	c := claims{
		Identity: id,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, issuer and expiry and returns the session it encodes.
func (s *TokenService) Validate(tokenStr string) (*Session, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.UserID == "" {
		return nil, fmt.Errorf("auth: token has no user")
	}

	return &Session{
		Identity:  c.Identity,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
