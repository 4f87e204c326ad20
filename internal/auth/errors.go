package auth

import (
	"errors"
	"fmt"

	"github.com/pennywise/pennywise/backend/go-services/internal/models"
	"github.com/pennywise/pennywise/backend/go-services/internal/tokens"
)

// Kind is the stable machine-readable error code surfaced to clients.
type Kind string

const (
	KindEmailTaken                 Kind = "email_taken"
	KindInvalidCredentials         Kind = "invalid_credentials"
	KindWrongProvider              Kind = "wrong_provider"
	KindUnsupportedOperation       Kind = "unsupported_operation"
	KindNoPasswordSet              Kind = "no_password_set"
	KindIncorrectCurrentPassword   Kind = "incorrect_current_password"
	KindIdentityNotFound           Kind = "identity_not_found"
	KindExternalVerificationFailed Kind = "external_verification_failed"
	KindInvalidInput               Kind = "invalid_input"
	KindMissingToken               Kind = "missing_token"
	KindTokenExpired               Kind = "token_expired"
	KindTokenMalformed             Kind = "token_malformed"
	KindTokenInvalidSignature      Kind = "token_invalid_signature"
)

// Error is a domain failure with a user-facing message. Two errors are equal
// under errors.Is when their kinds match.
type Error struct {
	Kind     Kind
	Message  string
	Provider models.Provider
	cause    error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func (e *Error) Unwrap() error { return e.cause }

var (
	ErrEmailTaken                 = &Error{Kind: KindEmailTaken, Message: "Email already registered"}
	ErrInvalidCredentials         = &Error{Kind: KindInvalidCredentials, Message: "Invalid email or password"}
	ErrWrongProvider              = &Error{Kind: KindWrongProvider, Message: "This email is registered with another sign-in method"}
	ErrUnsupportedOperation       = &Error{Kind: KindUnsupportedOperation, Message: "Cannot change password for OAuth accounts"}
	ErrNoPasswordSet              = &Error{Kind: KindNoPasswordSet, Message: "No password set for this account"}
	ErrIncorrectCurrentPassword   = &Error{Kind: KindIncorrectCurrentPassword, Message: "Current password is incorrect"}
	ErrIdentityNotFound           = &Error{Kind: KindIdentityNotFound, Message: "User not found"}
	ErrExternalVerificationFailed = &Error{Kind: KindExternalVerificationFailed, Message: "External identity verification failed"}
	ErrInvalidInput               = &Error{Kind: KindInvalidInput, Message: "Invalid input"}
	ErrMissingToken               = &Error{Kind: KindMissingToken, Message: "Missing authorization token"}
	ErrTokenExpired               = &Error{Kind: KindTokenExpired, Message: "Token expired"}
	ErrTokenMalformed             = &Error{Kind: KindTokenMalformed, Message: "Invalid token"}
	ErrTokenInvalidSignature      = &Error{Kind: KindTokenInvalidSignature, Message: "Invalid token"}
)

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrongProvider(p models.Provider) *Error {
	return &Error{
		Kind:     KindWrongProvider,
		Message:  fmt.Sprintf("This email is registered with %s. Please use that to log in.", p),
		Provider: p,
	}
}

func invalidInput(msg string) *Error {
	return newError(KindInvalidInput, msg)
}

func verificationFailed(cause error) *Error {
	return &Error{Kind: KindExternalVerificationFailed, Message: ErrExternalVerificationFailed.Message, cause: cause}
}

// TokenError translates a tokens package failure into the matching kind.
func TokenError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, tokens.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, tokens.ErrTokenInvalidSignature):
		return ErrTokenInvalidSignature
	default:
		return ErrTokenMalformed
	}
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
