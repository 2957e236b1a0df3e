package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPasswordAndMatch(t *testing.T) {
	user := &User{}

	err := user.SetPassword("correct-horse-battery")
	require.NoError(t, err)
	assert.NotEmpty(t, user.Password)
	assert.NotEqual(t, []byte("correct-horse-battery"), user.Password)

	match, err := user.IsPasswordMatch("correct-horse-battery")
	require.NoError(t, err)
	assert.True(t, match)

	match, err = user.IsPasswordMatch("wrong-password")
	require.NoError(t, err)
	assert.False(t, match)
}

func TestGenerateAndAuthenticateToken(t *testing.T) {
	a := New("test-secret", time.Hour)

	user := &User{
		ID:       42,
		Username: "jacob",
		Email:    "jake@jake.jake",
	}

	token, err := a.GenerateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claim, err := a.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claim.UserID)
	assert.Equal(t, "jacob", claim.Username)
	assert.Equal(t, "jake@jake.jake", claim.Email)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	a := New("test-secret", -time.Minute)

	token, err := a.GenerateToken(&User{ID: 1, Username: "jacob", Email: "jake@jake.jake"})
	require.NoError(t, err)

	_, err = a.Authenticate(token)
	assert.Error(t, err)
}

func TestAuthenticateWrongSecret(t *testing.T) {
	issuer := New("secret-one", time.Hour)
	verifier := New("secret-two", time.Hour)

	token, err := issuer.GenerateToken(&User{ID: 1, Username: "jacob", Email: "jake@jake.jake"})
	require.NoError(t, err)

	_, err = verifier.Authenticate(token)
	assert.Error(t, err)
}

func TestAuthenticateGarbageToken(t *testing.T) {
	a := New("test-secret", time.Hour)

	_, err := a.Authenticate("not-a-jwt")
	assert.Error(t, err)
}
