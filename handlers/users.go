package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pennywise/pennywise/backend/go-services/internal/auth"
	"github.com/pennywise/pennywise/backend/go-services/pkg/middleware"
)

type updateProfileRequest struct {
	Name            *string  `json:"name" binding:"omitempty,max=100"`
	Email           *string  `json:"email" binding:"omitempty,email"`
	CurrentPassword string   `json:"currentPassword"`
	Password        *string  `json:"password" binding:"omitempty,min=6,max=100"`
	MonthlyBudget   *float64 `json:"monthlyBudget"`
	UserType        *string  `json:"userType"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" binding:"required,min=6,max=100"`
}

// UserHandler serves the authenticated profile endpoints.
type UserHandler struct {
	svc   *auth.Service
	guard gin.HandlerFunc
}

func NewUserHandler(svc *auth.Service, guard gin.HandlerFunc) *UserHandler {
	return &UserHandler{svc: svc, guard: guard}
}

// Register routes under /user, all behind the session guard
func (h *UserHandler) Register(rg *gin.RouterGroup) {
	u := rg.Group("/user", h.guard)
	u.GET("/profile", h.GetProfile)
	u.PATCH("/profile", h.UpdateProfile)
	u.DELETE("/profile", h.DeleteProfile)
	u.PUT("/password", h.ChangePassword)
}

func currentID(c *gin.Context) (string, bool) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, auth.ErrMissingToken)
		return "", false
	}
	return u.ID, true
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	id, ok := currentID(c)
	if !ok {
		return
	}
	u, err := h.svc.GetProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	id, ok := currentID(c)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), id, auth.ProfileUpdate{
		Name:            req.Name,
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		Password:        req.Password,
		MonthlyBudget:   req.MonthlyBudget,
		UserType:        req.UserType,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User updated successfully", "user": u})
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	id, ok := currentID(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated successfully"})
}

func (h *UserHandler) DeleteProfile(c *gin.Context) {
	id, ok := currentID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteAccount(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted successfully"})
}
