package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the admin session payload. StoreID is nil until a store is selected.
type Claims struct {
	UserID  int64  `json:"uid"`
	StoreID *int64 `json:"store_id,omitempty"`
	jwt.RegisteredClaims
}

// Sessions signs and verifies admin session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	if secret == "" {
		return nil, errors.New("JWT secret not set")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue creates a signed token for userID, optionally bound to storeID.
func (s *Sessions) Issue(userID int64, storeID *int64) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:  userID,
		StoreID: storeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and verifies a token string.
func (s *Sessions) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
