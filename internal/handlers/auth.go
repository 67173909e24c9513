package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roomchat/internal/services"
	"roomchat/internal/telemetry"
)

// AuthHandler serves registration, login and the current identity.
type AuthHandler struct {
	accounts *services.AccountService
	audit    *telemetry.AuditEmitter
}

func NewAuthHandler(accounts *services.AccountService, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{accounts: accounts, audit: audit}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("userID", session.ID)
	emitAudit(c, h.audit, "INFO", "user registered", nil)
	c.JSON(http.StatusCreated, session)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		EmailOrUsername string `json:"emailOrUsername" binding:"required"`
		Password        string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.accounts.Login(c.Request.Context(), req.EmailOrUsername, req.Password)
	if err != nil {
		emitAudit(c, h.audit, "WARN", "login failed", nil)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.accounts.Me(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
