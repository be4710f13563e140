package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"

	"github.com/supchat-io/notifyhub/internal/config"
	"github.com/supchat-io/notifyhub/internal/store"
)

func signToken(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	assert.NoError(t, err, "expected token signing to succeed")
	return token
}

func Test_authMiddleware(t *testing.T) {
	signingKey := []byte("test-signing-key")

	tcases := []struct {
		name           string
		cookie         *http.Cookie
		expectedCode   int
		expectedUserId string
	}{
		{
			name: "valid token",
			cookie: &http.Cookie{
				Name: tokenCookieKey,
				Value: signToken(t, signingKey, jwt.MapClaims{
					userIdClaim: "u1",
					"exp":       time.Now().Add(time.Hour).Unix(),
				}),
			},
			expectedCode:   http.StatusOK,
			expectedUserId: "u1",
		},
		{
			name:         "missing cookie",
			cookie:       nil,
			expectedCode: http.StatusUnauthorized,
		},
		{
			name: "expired token",
			cookie: &http.Cookie{
				Name: tokenCookieKey,
				Value: signToken(t, signingKey, jwt.MapClaims{
					userIdClaim: "u1",
					"exp":       time.Now().Add(-time.Hour).Unix(),
				}),
			},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name: "wrong signing key",
			cookie: &http.Cookie{
				Name: tokenCookieKey,
				Value: signToken(t, []byte("other-key"), jwt.MapClaims{
					userIdClaim: "u1",
					"exp":       time.Now().Add(time.Hour).Unix(),
				}),
			},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name: "missing user id claim",
			cookie: &http.Cookie{
				Name: tokenCookieKey,
				Value: signToken(t, signingKey, jwt.MapClaims{
					"exp": time.Now().Add(time.Hour).Unix(),
				}),
			},
			expectedCode: http.StatusUnauthorized,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &store.MockNotifyRepository{}
			app, _ := newTestApp(t, repo, &config.Config{SigningKey: signingKey})

			var gotUserId string
			handler := app.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
				gotUserId, _ = UserId(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
			if tc.cookie != nil {
				req.AddCookie(tc.cookie)
			}

			rr := httptest.NewRecorder()
			handler(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code, "unexpected status code")
			if tc.expectedCode == http.StatusOK {
				assert.Equal(t, tc.expectedUserId, gotUserId, "expected the user id on the request context")
				assert.NotEmpty(t, rr.Header().Get("Cache-Control"), "expected a no-store cache header")
			}
		})
	}
}
