package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/AnshRaj112/todo-backend/pkg/utils"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims is the JWT payload: the account id plus the registered claims.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens. Tokens are stateless:
// validity depends only on the signature and the expiry.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a signed token for accountID that expires after the configured TTL.
func (s *TokenService) Issue(accountID int64) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify returns the account id asserted by token. Any malformed, tampered or
// expired token yields an error wrapping utils.ErrUnauthorized.
func (s *TokenService) Verify(token string) (int64, error) {
	if token == "" {
		return 0, fmt.Errorf("empty token: %w", utils.ErrUnauthorized)
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("token expired: %w", utils.ErrUnauthorized)
		}
		return 0, fmt.Errorf("invalid token: %v: %w", err, utils.ErrUnauthorized)
	}

	if claims.UserID <= 0 {
		return 0, fmt.Errorf("token without account: %w", utils.ErrUnauthorized)
	}
	return claims.UserID, nil
}
