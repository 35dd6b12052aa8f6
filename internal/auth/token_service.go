package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Claims are the session token claims: identity id and role plus the
// registered set. Validity is signature + expiry only; there is no
// server-side revocation list.
type Claims struct {
	jwt.RegisteredClaims
	UID      int64  `json:"uid,omitempty"`
	UserRole string `json:"role,omitempty"`
}

// UserID returns the identity id carried by the token.
func (c *Claims) UserID() int64 {
	if c.UID != 0 {
		return c.UID
	}
	if id, err := strconv.ParseInt(c.Subject, 10, 64); err == nil {
		return id
	}
	return 0
}

// Role returns the role carried by the token.
func (c *Claims) Role() string {
	return c.UserRole
}

// TokenService signs and verifies the compact session tokens used by every
// protected request and by the realtime handshake.
type TokenService struct {
	signingKey []byte
	expiration time.Duration
	issuer     string
}

// NewTokenService creates a new TokenService instance.
func NewTokenService(signingKey []byte, expiration time.Duration, issuer string) *TokenService {
	if expiration <= 0 {
		expiration = time.Hour
	}
	return &TokenService{
		signingKey: signingKey,
		expiration: expiration,
		issuer:     issuer,
	}
}

// Issue creates a signed token embedding identity id, role, and expiry.
func (ts *TokenService) Issue(userID int64, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.expiration)),
		},
		UID:      userID,
		UserRole: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	return signed, nil
}

// Validate parses and verifies a token string, returning structured claims.
// Bad signature, malformed payload, and past expiry all fail closed.
func (ts *TokenService) Validate(tokenString string) (*Claims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(goerrors.CodeUnauthorized)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrTokenMalformed
}
