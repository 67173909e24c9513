package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"roomchat/internal/services"
	"roomchat/internal/telemetry"
)

// RoomHandler manages room endpoints.
type RoomHandler struct {
	rooms *services.RoomService
	audit *telemetry.AuditEmitter
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(rooms *services.RoomService, audit *telemetry.AuditEmitter) *RoomHandler {
	return &RoomHandler{rooms: rooms, audit: audit}
}

// ListRooms returns the rooms visible to the authenticated user.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.List(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// StartPrivate creates or returns the direct room with another user.
func (h *RoomHandler) StartPrivate(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.Direct(c.Request.Context(), c.GetString("userID"), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// CreateGroup handles POST /api/rooms/group.
func (h *RoomHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name  string   `json:"name" binding:"required"`
		Users []string `json:"users" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload", nil)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.Group(c.Request.Context(), c.GetString("userID"), req.Name, req.Users)
	if err != nil {
		writeError(c, err)
		return
	}
	emitAudit(c, h.audit, "INFO", "group room created", map[string]string{"room_id": room.ID})
	c.JSON(http.StatusCreated, room)
}

// GetMessages returns one chronological page of a room's history.
func (h *RoomHandler) GetMessages(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	messages, err := h.rooms.History(c.Request.Context(), c.GetString("userID"), c.Param("room_id"), c.Query("before"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
