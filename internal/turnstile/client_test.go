package turnstile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func siteverify(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "shh", r.PostForm.Get("secret"))
		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("response") {
		case "pass":
			assert.Equal(t, "203.0.113.7", r.PostForm.Get("remoteip"))
			_, _ = w.Write([]byte(`{"success":true}`))
		case "boom":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientVerify(t *testing.T) {
	srv := siteverify(t)
	c := NewClient("shh", srv.URL, srv.Client())
	ctx := context.Background()

	assert.NoError(t, c.Verify(ctx, "pass", "203.0.113.7"))
	assert.ErrorIs(t, c.Verify(ctx, "nope", ""), ErrRejected)
	assert.ErrorIs(t, c.Verify(ctx, "", ""), ErrMissingToken)
	assert.Error(t, c.Verify(ctx, "boom", ""))
}
