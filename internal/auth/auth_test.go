package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     string
		wantErr  error
	}{
		{"valid", "a@b.com", "1234", "a@b.com", nil},
		{"trims email", "  a@b.com ", "1234", "a@b.com", nil},
		{"empty email", "", "1234", "", ErrEmptyFields},
		{"blank email", "   ", "1234", "", ErrEmptyFields},
		{"empty password", "a@b.com", "", "", ErrEmptyFields},
		{"missing at", "ab.com", "1234", "", ErrInvalidEmail},
		{"missing tld", "a@b", "1234", "", ErrInvalidEmail},
		{"space inside", "a b@c.com", "1234", "", ErrInvalidEmail},
		{"wrong password", "a@b.com", "4321", "", ErrWrongPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Check(tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionsLoginLookupLogout(t *testing.T) {
	sessions := NewSessions()

	session, err := sessions.Login("a@b.com", Password)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "a@b.com", session.Email)

	email, err := sessions.Lookup(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", email)

	sessions.Logout(session.Token)
	_, err = sessions.Lookup(session.Token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionsAreIndependent(t *testing.T) {
	sessions := NewSessions()

	first, err := sessions.Login("a@b.com", Password)
	require.NoError(t, err)
	second, err := sessions.Login("x@y.com", Password)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	sessions.Logout(first.Token)
	email, err := sessions.Lookup(second.Token)
	require.NoError(t, err)
	assert.Equal(t, "x@y.com", email)
}

func TestSessionsLoginFailureOpensNoSession(t *testing.T) {
	sessions := NewSessions()

	_, err := sessions.Login("a@b.com", "nope")
	assert.ErrorIs(t, err, ErrWrongPassword)
	assert.Empty(t, sessions.byToken)
}
