package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// FetchRealmPublicKey asks the Keycloak server for the realm's RSA public
// key and returns it in PEM form, ready for NewKeycloakVerifier. Keycloak
// publishes the key base64-encoded on the realm document.
func FetchRealmPublicKey(ctx context.Context, authURL, realm string) (string, error) {
	target := fmt.Sprintf("%s/realms/%s", strings.TrimSuffix(authURL, "/"), realm)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach keycloak at %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("keycloak realm lookup returned status %d", resp.StatusCode)
	}

	var realmDoc struct {
		PublicKey string `json:"public_key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&realmDoc); err != nil {
		return "", fmt.Errorf("failed to decode keycloak realm document: %w", err)
	}
	if realmDoc.PublicKey == "" {
		return "", fmt.Errorf("keycloak realm %q carries no public key", realm)
	}

	return wrapPEM(realmDoc.PublicKey), nil
}

// wrapPEM folds the base64 key material into a PEM block.
func wrapPEM(base64Key string) string {
	var b strings.Builder
	b.WriteString("-----BEGIN PUBLIC KEY-----\n")
	for len(base64Key) > 64 {
		b.WriteString(base64Key[:64])
		b.WriteString("\n")
		base64Key = base64Key[64:]
	}
	b.WriteString(base64Key)
	b.WriteString("\n-----END PUBLIC KEY-----\n")
	return b.String()
}
