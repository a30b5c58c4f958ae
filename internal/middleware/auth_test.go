package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func runAuth(t *testing.T, authorization string) (*httptest.ResponseRecorder, string, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var caller string
	err := AuthMiddleware("secret")(func(c echo.Context) error {
		caller = UserID(c)
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, caller, err
}

func TestAuthMiddleware(t *testing.T) {
	valid := signToken(t, "secret", jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	expired := signToken(t, "secret", jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	wrongKey := signToken(t, "other", jwt.RegisteredClaims{Subject: "u1"})
	noSubject := signToken(t, "secret", jwt.RegisteredClaims{})

	testCases := []struct {
		name          string
		authorization string
		wantCaller    string
		wantCode      int
	}{
		{name: "valid token", authorization: "Bearer " + valid, wantCaller: "u1"},
		{name: "missing header", wantCode: http.StatusUnauthorized},
		{name: "not bearer", authorization: "Basic abc", wantCode: http.StatusUnauthorized},
		{name: "expired", authorization: "Bearer " + expired, wantCode: http.StatusUnauthorized},
		{name: "wrong key", authorization: "Bearer " + wrongKey, wantCode: http.StatusUnauthorized},
		{name: "no subject", authorization: "Bearer " + noSubject, wantCode: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, caller, err := runAuth(t, tc.authorization)
			if tc.wantCode == 0 {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Equal(t, tc.wantCaller, caller)
				return
			}

			var he *echo.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, tc.wantCode, he.Code)
			assert.Empty(t, caller)
		})
	}
}

func TestRequireRole(t *testing.T) {
	customer := signClaims(t, "secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	})
	operator := signClaims(t, "secret", Claims{
		Role:             RoleOperator,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "ops-1"},
	})

	testCases := []struct {
		name     string
		token    string
		wantCode int
	}{
		{name: "operator", token: operator, wantCode: http.StatusOK},
		{name: "customer", token: customer, wantCode: http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+tc.token)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			called := false
			h := AuthMiddleware("secret")(RequireRole(RoleOperator)(func(c echo.Context) error {
				called = true
				return c.NoContent(http.StatusOK)
			}))
			err := h(c)

			if tc.wantCode == http.StatusOK {
				require.NoError(t, err)
				assert.True(t, called)
				return
			}
			var he *echo.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, tc.wantCode, he.Code)
			assert.False(t, called)
		})
	}
}

func signClaims(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}
