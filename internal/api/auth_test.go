package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/npezzotti/blend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key")

func createToken(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func userToken(t *testing.T, user types.User) string {
	return createToken(t, testSigningKey, jwt.MapClaims{
		userIdClaim: user.Id,
		emailClaim:  user.Email,
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
}

func TestUserFromContext(t *testing.T) {
	tcases := []struct {
		name     string
		ctx      context.Context
		user     types.User
		expected bool
	}{
		{
			name:     "no user",
			ctx:      context.Background(),
			expected: false,
		},
		{
			name:     "user set",
			ctx:      WithUser(context.Background(), types.User{Id: "alice"}),
			user:     types.User{Id: "alice"},
			expected: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			user, ok := UserFromContext(tc.ctx)
			assert.Equal(t, tc.expected, ok)
			assert.Equal(t, tc.user, user)
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "abc"})
		token, err := tokenFromRequest(req)
		require.NoError(t, err)
		assert.Equal(t, "abc", token)
	})
	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer xyz")
		token, err := tokenFromRequest(req)
		require.NoError(t, err)
		assert.Equal(t, "xyz", token)
	})
	t.Run("other scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic xyz")
		_, err := tokenFromRequest(req)
		assert.Error(t, err)
	})
}

func TestUserFromToken(t *testing.T) {
	app := &BlendApp{signingKey: testSigningKey}

	tcases := []struct {
		name    string
		token   string
		want    types.User
		wantErr bool
	}{
		{
			name:  "valid",
			token: userToken(t, types.User{Id: "alice", Email: "alice@example.com"}),
			want:  types.User{Id: "alice", Email: "alice@example.com"},
		},
		{
			name:  "no email",
			token: createToken(t, testSigningKey, jwt.MapClaims{userIdClaim: "bob"}),
			want:  types.User{Id: "bob"},
		},
		{
			name:    "numeric user id",
			token:   createToken(t, testSigningKey, jwt.MapClaims{userIdClaim: 42}),
			wantErr: true,
		},
		{
			name: "expired",
			token: createToken(t, testSigningKey, jwt.MapClaims{
				userIdClaim: "alice",
				"exp":       time.Now().Add(-time.Minute).Unix(),
			}),
			wantErr: true,
		},
		{
			name:    "wrong key",
			token:   createToken(t, []byte("other"), jwt.MapClaims{userIdClaim: "alice"}),
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not-a-token",
			wantErr: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			user, err := app.userFromToken(tc.token)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, user)
		})
	}
}
