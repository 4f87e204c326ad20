package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pennywise/pennywise/backend/go-services/internal/turnstile"
	"github.com/pennywise/pennywise/backend/go-services/pkg/logger"
)

// Challenger verifies a bot-challenge token.
type Challenger interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Turnstile rejects requests whose JSON body lacks a valid turnstileToken.
// The body is restored so the next handler can bind it again.
func Turnstile(ch Challenger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			challengeFailed(c, "Turnstile verification required")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))

		var body struct {
			TurnstileToken string `json:"turnstileToken"`
		}
		_ = json.Unmarshal(raw, &body)
		if body.TurnstileToken == "" {
			challengeFailed(c, "Turnstile verification required")
			return
		}

		if err := ch.Verify(c.Request.Context(), body.TurnstileToken, c.ClientIP()); err != nil {
			logger.Warnf("turnstile rejected request from %s: %v", c.ClientIP(), err)
			msg := "Invalid Turnstile token"
			if errors.Is(err, turnstile.ErrRejected) {
				msg = "Turnstile verification failed"
			}
			challengeFailed(c, msg)
			return
		}
		c.Next()
	}
}

func challengeFailed(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": msg, "code": "turnstile_failed"})
}
