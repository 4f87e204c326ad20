package tokens

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret-32-bytes-should-be-long-enough"

func TestIssueVerify_RoundTrip(t *testing.T) {
	c := NewCodec(secret, 2*time.Minute)
	tok, err := c.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	id, err := c.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if id != "user-123" {
		t.Fatalf("unexpected sub: got=%v want=user-123", id)
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(tok, jwt.MapClaims{})
	if err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	for _, k := range []string{"sub", "iat", "exp"} {
		if _, ok := claims[k]; !ok {
			t.Fatalf("missing claim %s", k)
		}
	}
	if _, ok := claims["email"]; ok {
		t.Fatalf("token should only carry the identity id")
	}
}

func TestDefaultTTL(t *testing.T) {
	if NewCodec(secret, 0).TTL() != 7*24*time.Hour {
		t.Fatalf("expected 7 day default lifetime")
	}
}

func TestVerify_Expiry(t *testing.T) {
	issuedAt := time.Now()
	c := NewCodec(secret, time.Hour).WithClock(func() time.Time { return issuedAt })
	tok, err := c.Issue("u2")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	later := c.WithClock(func() time.Time { return issuedAt.Add(59 * time.Minute) })
	if _, err := later.Verify(tok); err != nil {
		t.Fatalf("token should still be valid: %v", err)
	}

	expired := c.WithClock(func() time.Time { return issuedAt.Add(61 * time.Minute) })
	if _, err := expired.Verify(tok); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerify_WrongSecretFails(t *testing.T) {
	tok, err := NewCodec("secret-one-32-bytes-xxxxxxxxxxxxxxxx", time.Minute).Issue("u3")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	_, err = NewCodec("different-secret-xxxxxxxxxxxxxxxx", time.Minute).Verify(tok)
	if !errors.Is(err, ErrTokenInvalidSignature) {
		t.Fatalf("expected ErrTokenInvalidSignature, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	c := NewCodec(secret, time.Minute)
	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		if _, err := c.Verify(tok); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("expected ErrTokenMalformed for %q, got %v", tok, err)
		}
	}
}

// Rejected when alg=none (unsigned token)
func TestVerify_AlgNoneRejected(t *testing.T) {
	headerEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payloadEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u-none","exp":9999999999}`))
	tok := headerEnc + "." + payloadEnc + "."
	_, err := NewCodec(secret, time.Minute).Verify(tok)
	if !errors.Is(err, ErrTokenInvalidSignature) {
		t.Fatalf("expected alg=none to be rejected as invalid signature, got %v", err)
	}
}

func TestVerify_OtherAlgorithmRejected(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "u-512",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewCodec(secret, time.Minute).Verify(tok); !errors.Is(err, ErrTokenInvalidSignature) {
		t.Fatalf("expected HS512 to be rejected, got %v", err)
	}
}

// Tampering with payload must fail signature verification
func TestVerify_TamperedPayload(t *testing.T) {
	c := NewCodec(secret, 5*time.Minute)
	tok, err := c.Issue("user-t")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token parts")
	}
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(strings.Replace(string(payloadBytes), "user-t", "attacker", 1)))
	if _, err := c.Verify(strings.Join(parts, ".")); !errors.Is(err, ErrTokenInvalidSignature) {
		t.Fatalf("expected signature verification to fail for tampered token, got %v", err)
	}
}

func TestVerify_MissingSubject(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewCodec(secret, time.Minute).Verify(tok); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}
