package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid token")

const issuer = "albumshelf"

// Claims 会话令牌载荷
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	IsStaff  bool   `json:"staff"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies session tokens with a shared HMAC secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. ttl bounds the lifetime of every token it signs.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the token lifetime, used for cookie expiry.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// GenerateToken signs a token for the actor.
func (i *TokenIssuer) GenerateToken(actor Actor) (string, error) {
	now := i.now()
	claims := Claims{
		UserID:   actor.UserID,
		Username: actor.Username,
		IsStaff:  actor.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   fmt.Sprintf("%d", actor.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates the token and returns its claims.
func (i *TokenIssuer) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Actor returns the identity carried by the claims.
func (c *Claims) Actor() *Actor {
	return &Actor{UserID: c.UserID, Username: c.Username, IsStaff: c.IsStaff}
}
