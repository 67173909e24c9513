package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roomchat/internal/services"
)

type UserHandler struct {
	accounts *services.AccountService
}

func NewUserHandler(accounts *services.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// Search handles GET /api/users?search=.
func (h *UserHandler) Search(c *gin.Context) {
	users, err := h.accounts.Search(c.Request.Context(), c.GetString("userID"), c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// UpdateAvatar handles PATCH /api/users/me.
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	var req struct {
		Avatar string `json:"avatar" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.UpdateAvatar(c.Request.Context(), c.GetString("userID"), req.Avatar)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
