package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, s *testServer, email string) string {
	t.Helper()
	rw, body := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "Ann", "email": email, "password": "Secret1!"})
	require.Equal(t, http.StatusCreated, rw.Code, rw.Body.String())
	return body["token"].(string)
}

func TestProfileRequiresToken(t *testing.T) {
	s := newTestServer(t, nil)

	rw, body := s.do(t, http.MethodGet, "/api/user/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	assert.Equal(t, "missing_token", body["code"])

	rw, body = s.do(t, http.MethodGet, "/api/user/profile", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	assert.Equal(t, "token_malformed", body["code"])
}

func TestGetAndUpdateProfile(t *testing.T) {
	s := newTestServer(t, nil)
	tok := register(t, s, "ann@x.com")
	register(t, s, "taken@x.com")

	rw, body := s.do(t, http.MethodGet, "/api/user/profile", tok, nil)
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "ann@x.com", body["user"].(map[string]interface{})["email"])

	rw, body = s.do(t, http.MethodPatch, "/api/user/profile", tok, gin.H{"email": "taken@x.com"})
	require.Equal(t, http.StatusBadRequest, rw.Code)
	assert.Equal(t, "email_taken", body["code"])
	assert.Equal(t, "Email already in use", body["message"])

	rw, body = s.do(t, http.MethodPatch, "/api/user/profile", tok, gin.H{"monthlyBudget": -1})
	require.Equal(t, http.StatusBadRequest, rw.Code)
	assert.Equal(t, "invalid_input", body["code"])

	rw, body = s.do(t, http.MethodPatch, "/api/user/profile", tok, gin.H{"password": "NewSecret1"})
	require.Equal(t, http.StatusBadRequest, rw.Code)
	assert.Equal(t, "incorrect_current_password", body["code"])

	rw, body = s.do(t, http.MethodPatch, "/api/user/profile", tok, gin.H{
		"name":          "Annie",
		"monthlyBudget": 2500,
		"userType":      "family_moderate",
	})
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	assert.Equal(t, "User updated successfully", body["message"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "Annie", user["name"])
	assert.Equal(t, 2500.0, user["monthlyBudget"])
	assert.Equal(t, "family_moderate", user["userType"])
}

func TestChangePasswordEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	tok := register(t, s, "ann@x.com")

	rw, body := s.do(t, http.MethodPut, "/api/user/password", tok, gin.H{"currentPassword": "nope", "newPassword": "NewSecret1"})
	require.Equal(t, http.StatusBadRequest, rw.Code)
	assert.Equal(t, "incorrect_current_password", body["code"])

	rw, _ = s.do(t, http.MethodPut, "/api/user/password", tok, gin.H{"currentPassword": "Secret1!", "newPassword": "NewSecret1"})
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())

	rw, _ = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ann@x.com", "password": "NewSecret1"})
	require.Equal(t, http.StatusOK, rw.Code)

	// federated accounts have no password to rotate
	rw, body = s.do(t, http.MethodPost, "/api/auth/google", "", gin.H{"idToken": "google-bob"})
	require.Equal(t, http.StatusOK, rw.Code)
	rw, body = s.do(t, http.MethodPut, "/api/user/password", body["token"].(string), gin.H{"currentPassword": "x", "newPassword": "NewSecret1"})
	require.Equal(t, http.StatusBadRequest, rw.Code)
	assert.Equal(t, "unsupported_operation", body["code"])
}

func TestDeleteProfile(t *testing.T) {
	s := newTestServer(t, nil)
	tok := register(t, s, "ann@x.com")

	rw, body := s.do(t, http.MethodDelete, "/api/user/profile", tok, nil)
	require.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "User deleted successfully", body["message"])

	// the token still verifies but the guard no longer finds the identity
	rw, body = s.do(t, http.MethodGet, "/api/user/profile", tok, nil)
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	assert.Equal(t, "identity_not_found", body["code"])
}
