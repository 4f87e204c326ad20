// Package auth resolves identities: local registration and login, federated
// login with provider exclusivity, and credential changes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pennywise/pennywise/backend/go-services/internal/federated"
	"github.com/pennywise/pennywise/backend/go-services/internal/forecast"
	"github.com/pennywise/pennywise/backend/go-services/internal/models"
	"github.com/pennywise/pennywise/backend/go-services/internal/password"
	"github.com/pennywise/pennywise/backend/go-services/internal/tokens"
	"github.com/pennywise/pennywise/backend/go-services/internal/users"
	"github.com/pennywise/pennywise/backend/go-services/pkg/logger"
	"github.com/pennywise/pennywise/backend/go-services/pkg/metrics"
	"github.com/samber/lo"
)

// Result is returned by every successful authentication.
type Result struct {
	User  *models.User
	Token string
}

// ProfileUpdate carries the optional fields of a profile edit. Nil or empty
// fields are left untouched.
type ProfileUpdate struct {
	Name            *string
	Email           *string
	CurrentPassword string
	Password        *string
	MonthlyBudget   *float64
	UserType        *string
}

type Service struct {
	store     users.Store
	hasher    password.Hasher
	tokens    *tokens.Codec
	providers *federated.Registry
	waker     forecast.Waker
}

func NewService(store users.Store, hasher password.Hasher, codec *tokens.Codec, providers *federated.Registry, waker forecast.Waker) *Service {
	if waker == nil {
		waker = forecast.NoopWaker{}
	}
	return &Service{store: store, hasher: hasher, tokens: codec, providers: providers, waker: waker}
}

// Register creates a local identity and signs it in.
func (s *Service) Register(ctx context.Context, name, email, plain string) (res *Result, err error) {
	defer observe("register", &err)

	name = strings.TrimSpace(name)
	email = models.NormalizeEmail(email)
	if name == "" || email == "" || plain == "" {
		return nil, invalidInput("Name, email and password are required")
	}
	existing, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return nil, err
	}
	u, err := s.store.Create(ctx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Provider:     models.ProviderLocal,
	})
	if errors.Is(err, users.ErrDuplicateEmail) {
		// lost a concurrent registration race; the index decided
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.signIn(u)
}

// Login authenticates a local identity by password. Federated identities are
// refused with WrongProvider naming their provider.
func (s *Service) Login(ctx context.Context, email, plain string) (res *Result, err error) {
	defer observe("login", &err)

	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if u.Provider != models.ProviderLocal {
		return nil, wrongProvider(u.Provider)
	}
	if !s.hasher.Verify(plain, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.signIn(u)
}

// FederatedLogin verifies artifact with the provider's verifier and resolves
// the identity it names, creating it on first sight.
func (s *Service) FederatedLogin(ctx context.Context, provider models.Provider, artifact string) (res *Result, err error) {
	defer observe("federated_"+string(provider), &err)

	v, err := s.providers.Get(provider)
	if err != nil {
		return nil, verificationFailed(err)
	}
	ext, err := v.Verify(ctx, artifact)
	if err != nil {
		logger.Warnf("%s verification failed: %v", provider, err)
		return nil, verificationFailed(err)
	}
	if ext.Email == "" || ext.ExternalID == "" {
		return nil, verificationFailed(federated.ErrMissingClaims)
	}

	u, err := s.resolveExternal(ctx, ext)
	if err != nil {
		return nil, err
	}
	return s.signIn(u)
}

func (s *Service) resolveExternal(ctx context.Context, ext *federated.ExternalIdentity) (*models.User, error) {
	// a second pass only happens when a concurrent login created the record
	// between our read and our insert
	for attempt := 0; attempt < 2; attempt++ {
		u, err := s.store.FindByEmail(ctx, ext.Email)
		if err != nil {
			return nil, fmt.Errorf("find user by email: %w", err)
		}
		if u != nil {
			return s.linkExisting(ctx, u, ext)
		}

		created, err := s.store.Create(ctx, &models.User{
			Name:       displayName(ext),
			Email:      ext.Email,
			Provider:   ext.Provider,
			ExternalID: ext.ExternalID,
		})
		switch {
		case err == nil:
			logger.Infof("created %s identity %s", ext.Provider, created.ID)
			return created, nil
		case errors.Is(err, users.ErrDuplicateEmail):
			continue
		case errors.Is(err, users.ErrDuplicateExternalID):
			return nil, newError(KindEmailTaken, "This account is already linked to another user")
		default:
			return nil, fmt.Errorf("create user: %w", err)
		}
	}
	return nil, fmt.Errorf("resolve %s identity: store kept rejecting %s", ext.Provider, ext.Email)
}

func (s *Service) linkExisting(ctx context.Context, u *models.User, ext *federated.ExternalIdentity) (*models.User, error) {
	if u.Provider != ext.Provider {
		return nil, wrongProvider(u.Provider)
	}
	if u.ExternalID != "" {
		return u, nil
	}
	u.ExternalID = ext.ExternalID
	saved, err := s.store.Save(ctx, u)
	if errors.Is(err, users.ErrDuplicateExternalID) {
		return nil, newError(KindEmailTaken, "This account is already linked to another user")
	}
	if err != nil {
		return nil, fmt.Errorf("backfill external id: %w", err)
	}
	return saved, nil
}

func displayName(ext *federated.ExternalIdentity) string {
	if n := strings.TrimSpace(ext.DisplayName); n != "" {
		return n
	}
	local, _, _ := strings.Cut(ext.Email, "@")
	return local
}

func (s *Service) signIn(u *models.User) (*Result, error) {
	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	s.waker.Wake()
	return &Result{User: u.Public(), Token: tok}, nil
}

// GetProfile returns the current record for id.
func (s *Service) GetProfile(ctx context.Context, id string) (*models.User, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

// ChangePassword rotates a local identity's password. Existing tokens stay
// valid and no new token is issued.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) (err error) {
	defer observe("change_password", &err)

	u, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.applyPassword(u, current, next); err != nil {
		return err
	}
	return s.save(ctx, u)
}

// ChangeEmail moves an identity to a new email. No re-authentication is
// required.
func (s *Service) ChangeEmail(ctx context.Context, id, email string) (_ *models.User, err error) {
	defer observe("change_email", &err)

	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyEmail(ctx, u, email); err != nil {
		return nil, err
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, id)
}

// UpdateProfile applies every provided field and persists them in one write;
// any failing field aborts the whole update.
func (s *Service) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (_ *models.User, err error) {
	defer observe("update_profile", &err)

	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		if n := strings.TrimSpace(*upd.Name); n != "" {
			u.Name = n
		}
	}
	if upd.Email != nil && strings.TrimSpace(*upd.Email) != "" {
		if err := s.applyEmail(ctx, u, *upd.Email); err != nil {
			return nil, err
		}
	}
	if upd.Password != nil && *upd.Password != "" {
		if err := s.applyPassword(u, upd.CurrentPassword, *upd.Password); err != nil {
			return nil, err
		}
	}
	if upd.MonthlyBudget != nil {
		mb := *upd.MonthlyBudget
		if math.IsNaN(mb) || math.IsInf(mb, 0) || mb < 0 {
			return nil, invalidInput("monthlyBudget must be a non-negative number")
		}
		u.MonthlyBudget = mb
	}
	if upd.UserType != nil {
		if !lo.Contains(models.UserTypes, *upd.UserType) {
			return nil, invalidInput("userType must be one of: " + strings.Join(models.UserTypes, ", "))
		}
		u.UserType = *upd.UserType
	}

	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, id)
}

// DeleteAccount removes the identity. Tokens already issued for it keep
// verifying until expiry but the Session Guard no longer finds the record.
func (s *Service) DeleteAccount(ctx context.Context, id string) (err error) {
	defer observe("delete_account", &err)

	err = s.store.Delete(ctx, id)
	if errors.Is(err, users.ErrNotFound) {
		return ErrIdentityNotFound
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	logger.Infof("deleted identity %s", id)
	return nil
}

func (s *Service) applyPassword(u *models.User, current, next string) error {
	if u.Provider != models.ProviderLocal {
		return ErrUnsupportedOperation
	}
	if u.PasswordHash == "" {
		return ErrNoPasswordSet
	}
	if current == "" {
		return newError(KindIncorrectCurrentPassword, "Current password is required to set a new password")
	}
	if !s.hasher.Verify(current, u.PasswordHash) {
		return ErrIncorrectCurrentPassword
	}
	if next == "" {
		return invalidInput("New password is required")
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (s *Service) applyEmail(ctx context.Context, u *models.User, email string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return invalidInput("Email is required")
	}
	if email == u.Email {
		return nil
	}
	other, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user by email: %w", err)
	}
	if other != nil && other.ID != u.ID {
		return newError(KindEmailTaken, "Email already in use")
	}
	u.Email = email
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	if u == nil {
		return nil, ErrIdentityNotFound
	}
	return u, nil
}

func (s *Service) save(ctx context.Context, u *models.User) error {
	_, err := s.store.Save(ctx, u)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, users.ErrDuplicateEmail):
		return newError(KindEmailTaken, "Email already in use")
	case errors.Is(err, users.ErrNotFound):
		return ErrIdentityNotFound
	}
	return fmt.Errorf("save user: %w", err)
}

func observe(op string, errp *error) {
	outcome := "success"
	if *errp != nil {
		if k := KindOf(*errp); k != "" {
			outcome = string(k)
		} else {
			outcome = "error"
		}
	}
	metrics.ObserveAuth(op, outcome)
}
