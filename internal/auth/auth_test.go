package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	httperr "github.com/the-tatanka/product-vas-fraud-api/internal/core/errors"
	"github.com/stretchr/testify/require"
)

func performRequest(t *testing.T, middleware gin.HandlerFunc, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/guarded", middleware, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	for key, values := range header {
		req.Header[key] = values
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) httperr.ErrorResponse {
	t.Helper()
	var body httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func TestAPIKey(t *testing.T) {
	tests := []struct {
		name        string
		header      http.Header
		wantStatus  int
		wantMessage string
	}{
		{
			name:       "valid key passes",
			header:     http.Header{"X-Api-Key": {"secret"}},
			wantStatus: http.StatusOK,
		},
		{
			name:        "missing key is unauthorized",
			header:      http.Header{},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "no API authorization provided (X-API-KEY)",
		},
		{
			name:        "wrong key is forbidden",
			header:      http.Header{"X-Api-Key": {"nope"}},
			wantStatus:  http.StatusForbidden,
			wantMessage: "authorization insufficient for this request",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := performRequest(t, APIKey("secret"), tc.header)

			require.Equal(t, tc.wantStatus, resp.Code)
			if tc.wantMessage != "" {
				body := decodeError(t, resp)
				require.Equal(t, tc.wantStatus, body.StatusCode)
				require.Equal(t, tc.wantMessage, body.Message)
			}
		})
	}
}

type fakeVerifier struct {
	roles []string
	err   error
}

func (f fakeVerifier) Verify(context.Context, string) ([]string, error) {
	return f.roles, f.err
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		header     http.Header
		verifier   fakeVerifier
		wantStatus int
	}{
		{
			name:       "role granted",
			header:     http.Header{"Authorization": {"Bearer token"}},
			verifier:   fakeVerifier{roles: []string{"user"}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			header:     http.Header{},
			verifier:   fakeVerifier{roles: []string{"user"}},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a bearer token",
			header:     http.Header{"Authorization": {"Basic Zm9vOmJhcg=="}},
			verifier:   fakeVerifier{roles: []string{"user"}},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "verification failure",
			header:     http.Header{"Authorization": {"Bearer token"}},
			verifier:   fakeVerifier{err: errors.New("expired")},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "role missing",
			header:     http.Header{"Authorization": {"Bearer token"}},
			verifier:   fakeVerifier{roles: []string{"viewer"}},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := performRequest(t, RequireRole(tc.verifier, "user"), tc.header)
			require.Equal(t, tc.wantStatus, resp.Code)

			if tc.wantStatus != http.StatusOK {
				body := decodeError(t, resp)
				require.Equal(t, "access denied", body.Message)
			}
		})
	}
}

func TestClientRoles(t *testing.T) {
	claims := jwt.MapClaims{
		"resource_access": map[string]interface{}{
			"catenax-api": map[string]interface{}{
				"roles": []interface{}{"user", "admin"},
			},
		},
	}

	require.Equal(t, []string{"user", "admin"}, clientRoles(claims, "catenax-api"))
	require.Empty(t, clientRoles(claims, "other-client"))
	require.Empty(t, clientRoles(jwt.MapClaims{}, "catenax-api"))
}
