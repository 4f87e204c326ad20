// Package federated verifies identity artifacts issued by external providers
// and normalizes them to an ExternalIdentity. It makes no account decisions.
package federated

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/pennywise/pennywise/backend/go-services/internal/models"
)

var (
	ErrVerificationFailed = errors.New("external identity verification failed")
	// ErrMissingClaims is returned when the provider accepted the artifact but
	// did not supply a subject or an email.
	ErrMissingClaims   = fmt.Errorf("%w: provider did not return required claims", ErrVerificationFailed)
	ErrUnknownProvider = errors.New("identity provider not configured")
)

// ExternalIdentity is the normalized result of a successful verification.
type ExternalIdentity struct {
	Provider    models.Provider
	ExternalID  string
	Email       string
	DisplayName string
}

// Verifier checks one provider's artifact (an ID token or an authorization
// code) against that provider.
type Verifier interface {
	Provider() models.Provider
	Verify(ctx context.Context, artifact string) (*ExternalIdentity, error)
}

// Registry holds the configured verifiers by provider.
type Registry struct {
	verifiers map[models.Provider]Verifier
}

func NewRegistry(list ...Verifier) *Registry {
	m := make(map[models.Provider]Verifier, len(list))
	for _, v := range list {
		m[v.Provider()] = v
	}
	return &Registry{verifiers: m}
}

// Get returns the verifier for p or ErrUnknownProvider.
func (r *Registry) Get(p models.Provider) (Verifier, error) {
	if r != nil {
		if v, ok := r.verifiers[p]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, p)
}

// Providers lists the configured providers in stable order.
func (r *Registry) Providers() []models.Provider {
	if r == nil {
		return nil
	}
	out := make([]models.Provider, 0, len(r.verifiers))
	for p := range r.verifiers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NewHTTPClient returns the client used for provider calls.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
