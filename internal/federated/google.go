package federated

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pennywise/pennywise/backend/go-services/internal/models"
)

const (
	GoogleIssuer  = "https://accounts.google.com"
	GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// GoogleVerifier validates Google ID tokens (signature, issuer, audience and
// expiry) with go-oidc.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier builds a verifier whose signing keys are fetched lazily
// from jwksURL and cached. ctx must outlive the verifier.
func NewGoogleVerifier(ctx context.Context, issuer, jwksURL, clientID string, client *http.Client) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, fmt.Errorf("google client id is required")
	}
	if issuer == "" {
		issuer = GoogleIssuer
	}
	if jwksURL == "" {
		jwksURL = GoogleJWKSURL
	}
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}
	keys := oidc.NewRemoteKeySet(ctx, jwksURL)
	return NewGoogleVerifierWithKeySet(issuer, clientID, keys), nil
}

// NewGoogleVerifierWithKeySet builds a verifier over a fixed key set.
func NewGoogleVerifierWithKeySet(issuer, clientID string, keys oidc.KeySet) *GoogleVerifier {
	return &GoogleVerifier{verifier: oidc.NewVerifier(issuer, keys, &oidc.Config{ClientID: clientID})}
}

func (g *GoogleVerifier) Provider() models.Provider { return models.ProviderGoogle }

func (g *GoogleVerifier) Verify(ctx context.Context, rawIDToken string) (*ExternalIdentity, error) {
	if strings.TrimSpace(rawIDToken) == "" {
		return nil, fmt.Errorf("%w: empty id token", ErrVerificationFailed)
	}
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: google id token: %v", ErrVerificationFailed, err)
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: google claims: %v", ErrVerificationFailed, err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrMissingClaims
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return nil, fmt.Errorf("%w: google email not verified", ErrVerificationFailed)
	}

	return &ExternalIdentity{
		Provider:    models.ProviderGoogle,
		ExternalID:  claims.Subject,
		Email:       models.NormalizeEmail(claims.Email),
		DisplayName: claims.Name,
	}, nil
}
