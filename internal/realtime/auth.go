package realtime

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errMissingToken = errors.New("handshake carried no token")

// Claims is the bearer-token payload accepted on the WebSocket handshake.
// The subject holds the numeric user id; the name, when present, labels
// typing indicators.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the numeric user id out of the token subject.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("token subject is not a user id: %q", c.Subject)
	}
	return id, nil
}

// TokenVerifier checks handshake tokens against a shared HS256 secret.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier builds a verifier. An empty secret yields nil, which
// disables the realtime endpoint rather than accepting unsigned tokens.
func NewTokenVerifier(secret string) *TokenVerifier {
	if secret == "" {
		return nil
	}
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify validates signature and expiry. Tokens without an expiry are
// rejected.
func (v *TokenVerifier) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, errors.New("missing token")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// MintToken signs a token the verifier will accept. Used by the token CLI
// command and by tests.
func MintToken(secret string, userID int64, name string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("token secret is not configured")
	}
	if userID <= 0 {
		return "", errors.New("user id must be positive")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	now := time.Now()
	claims := &Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
