package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/pennywise/pennywise/backend/go-services/internal/models"
	"github.com/pennywise/pennywise/backend/go-services/internal/tokens"
	"github.com/pennywise/pennywise/backend/go-services/internal/users"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const guardSecret = "guard-test-secret-0123456789abcdef"

type failingLoader struct{}

func (failingLoader) FindByID(context.Context, string) (*models.User, error) {
	return nil, errors.New("mongo down")
}

func guardRouter(t *testing.T, codec *tokens.Codec, loader IdentityLoader) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	g := gin.New()
	g.GET("/", SessionGuard(codec, loader), func(c *gin.Context) {
		u, ok := CurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user": u})
	})
	return g
}

func call(g *gin.Engine, header string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	var body map[string]interface{}
	_ = json.Unmarshal(rw.Body.Bytes(), &body)
	return rw, body
}

func seed(t *testing.T) (*users.MemoryStore, *models.User) {
	t.Helper()
	store := users.NewMemoryStore()
	u, err := store.Create(context.Background(), &models.User{Name: "Ann", Email: "ann@x.com", Provider: models.ProviderLocal, PasswordHash: "secret-hash"})
	require.NoError(t, err)
	return store, u
}

func TestSessionGuard_ValidToken(t *testing.T) {
	store, u := seed(t)
	codec := tokens.NewCodec(guardSecret, time.Hour)
	tok, err := codec.Issue(u.ID)
	require.NoError(t, err)

	rw, body := call(guardRouter(t, codec, store), "Bearer "+tok)
	require.Equal(t, http.StatusOK, rw.Code)
	user := body["user"].(map[string]interface{})
	require.Equal(t, u.ID, user["id"])
	require.NotContains(t, rw.Body.String(), "secret-hash")
}

func TestSessionGuard_CachedProfiles(t *testing.T) {
	store, u := seed(t)
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	cached := users.NewCachedStore(store, redis.NewClient(&redis.Options{Addr: m.Addr()}), "", time.Minute)
	codec := tokens.NewCodec(guardSecret, time.Hour)
	tok, err := codec.Issue(u.ID)
	require.NoError(t, err)

	g := guardRouter(t, codec, cached.Profiles())
	for i := 0; i < 2; i++ {
		rw, body := call(g, "Bearer "+tok)
		require.Equal(t, http.StatusOK, rw.Code)
		require.Equal(t, u.ID, body["user"].(map[string]interface{})["id"])
	}
	require.True(t, m.Exists("user:"+u.ID))

	require.NoError(t, cached.Delete(context.Background(), u.ID))
	rw, body := call(g, "Bearer "+tok)
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.Equal(t, "identity_not_found", body["code"])
}

func TestSessionGuard_Rejections(t *testing.T) {
	store, u := seed(t)
	codec := tokens.NewCodec(guardSecret, time.Hour)

	past := time.Now().Add(-2 * time.Hour)
	expired, err := codec.WithClock(func() time.Time { return past }).Issue(u.ID)
	require.NoError(t, err)
	foreign, err := tokens.NewCodec("some-other-secret-0123456789abcdef", time.Hour).Issue(u.ID)
	require.NoError(t, err)
	ghost, err := codec.Issue("no-such-user")
	require.NoError(t, err)
	tok, err := codec.Issue(u.ID)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		code   string
	}{
		{"no header", "", "missing_token"},
		{"wrong scheme", "Basic abc", "missing_token"},
		{"bare bearer", "Bearer", "missing_token"},
		{"empty bearer", "Bearer ", "missing_token"},
		{"two words", "Bearer " + tok + " extra", "missing_token"},
		{"double space", "Bearer  " + tok, "missing_token"},
		{"lowercase scheme", "bearer " + tok, "missing_token"},
		{"garbage", "Bearer not.a.jwt", "token_malformed"},
		{"expired", "Bearer " + expired, "token_expired"},
		{"wrong secret", "Bearer " + foreign, "token_invalid_signature"},
		{"deleted identity", "Bearer " + ghost, "identity_not_found"},
	}
	g := guardRouter(t, codec, store)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rw, body := call(g, tc.header)
			require.Equal(t, http.StatusUnauthorized, rw.Code)
			require.Equal(t, false, body["success"])
			require.Equal(t, tc.code, body["code"])
			require.NotEmpty(t, body["message"])
		})
	}
}

func TestSessionGuard_LoaderFailure(t *testing.T) {
	codec := tokens.NewCodec(guardSecret, time.Hour)
	tok, err := codec.Issue("u-1")
	require.NoError(t, err)

	rw, _ := call(guardRouter(t, codec, failingLoader{}), "Bearer "+tok)
	require.Equal(t, http.StatusInternalServerError, rw.Code)
	require.NotContains(t, rw.Body.String(), "mongo down")
}

func TestCurrentUser_Absent(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := CurrentUser(c)
	require.False(t, ok)
}
