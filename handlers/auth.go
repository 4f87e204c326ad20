package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/pennywise/pennywise/backend/go-services/internal/auth"
	"github.com/pennywise/pennywise/backend/go-services/internal/config"
	"github.com/pennywise/pennywise/backend/go-services/internal/federated"
	"github.com/pennywise/pennywise/backend/go-services/internal/models"
	"github.com/pennywise/pennywise/backend/go-services/pkg/logger"
	"github.com/pennywise/pennywise/backend/go-services/pkg/middleware"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type googleRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

type discordRequest struct {
	Code string `json:"code" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg        *config.Config
	svc        *auth.Service
	challenger middleware.Challenger
}

// NewAuthHandler creates the handler. challenger may be nil, which disables
// the bot challenge on register and login.
func NewAuthHandler(cfg *config.Config, svc *auth.Service, challenger middleware.Challenger) *AuthHandler {
	return &AuthHandler{cfg: cfg, svc: svc, challenger: challenger}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	var pre []gin.HandlerFunc
	if h.challenger != nil {
		pre = append(pre, middleware.Turnstile(h.challenger))
	}
	a.POST("/register", append(pre, h.SignUp)...)
	a.POST("/login", append(pre, h.Login)...)
	a.POST("/google", h.Google)
	a.POST("/discord", h.Discord)
	a.GET("/discord/callback", h.DiscordCallback)
}

func authenticated(c *gin.Context, status int, res *auth.Result) {
	c.JSON(status, gin.H{"success": true, "user": res.User, "token": res.Token})
}

// SignUp creates a local account.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	authenticated(c, http.StatusCreated, res)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	authenticated(c, http.StatusOK, res)
}

// Google signs in with a Google ID token obtained by the client.
func (h *AuthHandler) Google(c *gin.Context) {
	var req googleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := h.svc.FederatedLogin(c.Request.Context(), models.ProviderGoogle, req.IDToken)
	if err != nil {
		respondError(c, err)
		return
	}
	authenticated(c, http.StatusOK, res)
}

// Discord signs in with a Discord authorization code relayed by the client.
func (h *AuthHandler) Discord(c *gin.Context) {
	var req discordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := h.svc.FederatedLogin(c.Request.Context(), models.ProviderDiscord, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	authenticated(c, http.StatusOK, res)
}

// DiscordCallback is the OAuth redirect target. It always answers with a
// redirect to the frontend carrying either token and user or an error code.
func (h *AuthHandler) DiscordCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		h.redirectFrontend(c, url.Values{"error": {"no_code"}})
		return
	}

	res, err := h.svc.FederatedLogin(c.Request.Context(), models.ProviderDiscord, code)
	if err != nil {
		q := url.Values{}
		var e *auth.Error
		switch {
		case errors.As(err, &e) && e.Kind == auth.KindWrongProvider:
			q.Set("error", "wrong_provider")
			q.Set("provider", string(e.Provider))
		case errors.Is(err, federated.ErrMissingClaims):
			q.Set("error", "missing_data")
		default:
			logger.Warnf("discord callback failed: %v", err)
			q.Set("error", "auth_failed")
		}
		h.redirectFrontend(c, q)
		return
	}

	user, err := json.Marshal(res.User)
	if err != nil {
		h.redirectFrontend(c, url.Values{"error": {"auth_failed"}})
		return
	}
	h.redirectFrontend(c, url.Values{"token": {res.Token}, "user": {string(user)}})
}

func (h *AuthHandler) redirectFrontend(c *gin.Context, q url.Values) {
	target, err := url.Parse(h.cfg.Discord.FrontendCallbackURL)
	if err != nil || h.cfg.Discord.FrontendCallbackURL == "" {
		logger.Errorf("DISCORD_FRONTEND_CALLBACK_URL is not a usable URL: %q", h.cfg.Discord.FrontendCallbackURL)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal Server Error"})
		return
	}
	existing := target.Query()
	for k, vs := range q {
		existing[k] = vs
	}
	target.RawQuery = existing.Encode()
	c.Redirect(http.StatusFound, target.String())
}
