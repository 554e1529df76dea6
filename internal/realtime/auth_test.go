package realtime

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handshake-test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestMintAndVerifyRoundTrip(t *testing.T) {
	token, err := MintToken(testSecret, 42, "Alice", time.Hour)
	require.NoError(t, err)

	verifier := NewTokenVerifier(testSecret)
	require.NotNil(t, verifier)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "Alice", claims.Name)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.EqualValues(t, 42, userID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := MintToken("other-secret", 42, "", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenVerifier(testSecret).Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	token := signToken(t, jwt.SigningMethodHS256, testSecret, claims)

	_, err := NewTokenVerifier(testSecret).Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsTokenWithoutExpiry(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "42"}}
	token := signToken(t, jwt.SigningMethodHS256, testSecret, claims)

	_, err := NewTokenVerifier(testSecret).Verify(token)
	assert.Error(t, err, "expiry is mandatory")
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token := signToken(t, jwt.SigningMethodHS512, testSecret, claims)

	_, err := NewTokenVerifier(testSecret).Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)

	_, err := verifier.Verify("")
	assert.Error(t, err)

	_, err = verifier.Verify("not.a.token")
	assert.Error(t, err)
}

func TestUserIDRejectsBadSubject(t *testing.T) {
	for _, subject := range []string{"", "abc", "-3", "0"} {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: subject}}
		_, err := claims.UserID()
		assert.Error(t, err, "subject %q", subject)
	}

	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.FormatInt(123, 10)}}
	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.EqualValues(t, 123, userID)
}

func TestNewTokenVerifierRequiresSecret(t *testing.T) {
	assert.Nil(t, NewTokenVerifier(""))
}

func TestMintTokenValidation(t *testing.T) {
	_, err := MintToken("", 42, "", time.Hour)
	assert.Error(t, err)

	_, err = MintToken(testSecret, 0, "", time.Hour)
	assert.Error(t, err)
}
