package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	httperr "github.com/the-tatanka/product-vas-fraud-api/internal/core/errors"
)

// The two authorization mechanisms are deliberately independent: worker
// endpoints compare a static shared secret, dashboard endpoints need a
// bearer token carrying a Keycloak client role.

const apiKeyHeader = "X-API-KEY"

// APIKey guards the worker endpoints. Missing header is 401, mismatch 403.
func APIKey(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(apiKeyHeader)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				httperr.New(http.StatusUnauthorized, "no API authorization provided (X-API-KEY)"))
			return
		}
		if provided != expected {
			c.AbortWithStatusJSON(http.StatusForbidden,
				httperr.New(http.StatusForbidden, "authorization insufficient for this request"))
			return
		}
		c.Next()
	}
}

// TokenVerifier checks a raw bearer token and returns the client roles it
// grants. Kept narrow so handlers never see token internals.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) ([]string, error)
}

// RequireRole guards the dashboard endpoints: a bearer token must verify and
// carry the given role.
func RequireRole(verifier TokenVerifier, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				httperr.New(http.StatusUnauthorized, "access denied"))
			return
		}

		rawToken, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				httperr.New(http.StatusUnauthorized, "access denied"))
			return
		}

		roles, err := verifier.Verify(c.Request.Context(), rawToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden,
				httperr.New(http.StatusForbidden, "access denied"))
			return
		}
		for _, granted := range roles {
			if granted == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden,
			httperr.New(http.StatusForbidden, "access denied"))
	}
}

// KeycloakVerifier validates RS256 tokens against the realm public key and
// reads client roles from the resource_access claim. Token issuance and
// revocation stay with Keycloak; this only checks what the identity provider
// already signed.
type KeycloakVerifier struct {
	publicKey      *rsa.PublicKey
	clientResource string
}

func NewKeycloakVerifier(publicKeyPEM, clientResource string) (*KeycloakVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse keycloak realm public key: %w", err)
	}
	return &KeycloakVerifier{
		publicKey:      key,
		clientResource: clientResource,
	}, nil
}

func (v *KeycloakVerifier) Verify(_ context.Context, rawToken string) ([]string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(rawToken, claims,
		func(*jwt.Token) (interface{}, error) { return v.publicKey, nil },
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	return clientRoles(claims, v.clientResource), nil
}

// clientRoles digs resource_access.<client>.roles out of the claim map.
func clientRoles(claims jwt.MapClaims, clientResource string) []string {
	access, ok := claims["resource_access"].(map[string]interface{})
	if !ok {
		return nil
	}
	client, ok := access[clientResource].(map[string]interface{})
	if !ok {
		return nil
	}
	rawRoles, ok := client["roles"].([]interface{})
	if !ok {
		return nil
	}

	roles := make([]string, 0, len(rawRoles))
	for _, raw := range rawRoles {
		if role, ok := raw.(string); ok {
			roles = append(roles, role)
		}
	}
	return roles
}
