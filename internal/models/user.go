package models

import (
	"fmt"
	"strings"
	"time"
)

// Provider is the authentication method that created (and owns) an identity.
type Provider string

const (
	ProviderLocal   Provider = "local"
	ProviderGoogle  Provider = "google"
	ProviderDiscord Provider = "discord"
)

// ParseProvider maps a provider tag to one of the known providers.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderLocal, ProviderGoogle, ProviderDiscord:
		return p, nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// Federated reports whether the provider is an external identity provider.
func (p Provider) Federated() bool {
	return p == ProviderGoogle || p == ProviderDiscord
}

// UserTypes lists the spending profiles a user may pick.
var UserTypes = []string{
	"college_student",
	"young_professional",
	"family_moderate",
	"family_high",
	"luxury_lifestyle",
	"senior_retired",
}

const DefaultUserType = "college_student"

// User is the durable identity record. PasswordHash is stored but never
// serialized to JSON.
type User struct {
	ID            string    `bson:"_id" json:"id"`
	Name          string    `bson:"name" json:"name"`
	Email         string    `bson:"email" json:"email"`
	PasswordHash  string    `bson:"passwordHash,omitempty" json:"-"`
	Provider      Provider  `bson:"authProvider" json:"authProvider"`
	ExternalID    string    `bson:"externalId,omitempty" json:"-"`
	MonthlyBudget float64   `bson:"monthlyBudget" json:"monthlyBudget"`
	UserType      string    `bson:"userType" json:"userType"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NormalizeEmail lower-cases and trims an email for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Clone returns a copy safe to hand out of a store.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Public returns a copy with the credential fields cleared.
func (u *User) Public() *User {
	c := u.Clone()
	if c != nil {
		c.PasswordHash = ""
	}
	return c
}
