package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dkeye/Lounge/internal/adapters/signal"
	"github.com/dkeye/Lounge/internal/app"
	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPair),
		errors.Is(err, domain.ErrUserIDEmpty),
		errors.Is(err, domain.ErrUserIDTooLong),
		errors.Is(err, app.ErrNoReceivers):
		status = http.StatusBadRequest
	case errors.Is(err, app.ErrNotMember), errors.Is(err, app.ErrNotReceiver):
		status = http.StatusForbidden
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": h.Signal.Hub.Count(),
		"online":      len(h.Orch.Registry.Online()),
	})
}

type sessionRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// bindSession stores the identity asserted by the auth layer in front of
// this service.
func (h *Handlers) bindSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	uid, err := domain.ParseUserID(req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	s := sessions.Default(c)
	s.Set(signal.SessionUserKey, string(uid))
	if err := s.Save(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": uid})
}

func (h *Handlers) presence(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.Orch.Registry.Online()})
}

func (h *Handlers) rtcConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": h.ICE.ICEServers})
}

func (h *Handlers) getRoom(c *gin.Context) {
	uid, _ := userOf(c)
	room, err := h.Orch.Rooms.GetByID(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	if !room.HasMember(uid) {
		writeError(c, app.ErrNotMember)
		return
	}
	c.JSON(http.StatusOK, room)
}

type directRequest struct {
	UserA domain.UserID `json:"userA" binding:"required"`
	UserB domain.UserID `json:"userB" binding:"required"`
}

func (h *Handlers) resolveDirect(c *gin.Context) {
	uid, _ := userOf(c)
	var req directRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if uid != req.UserA && uid != req.UserB {
		writeError(c, app.ErrNotMember)
		return
	}
	room, err := h.Orch.Rooms.ResolveDirect(c.Request.Context(), req.UserA, req.UserB)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handlers) callInfo(c *gin.Context) {
	uid, _ := userOf(c)
	room, err := h.Orch.Rooms.GetByID(c.Request.Context(), domain.RoomID(c.Param("roomId")))
	if err != nil {
		writeError(c, err)
		return
	}
	if !room.HasMember(uid) {
		writeError(c, app.ErrNotMember)
		return
	}
	c.JSON(http.StatusOK, h.Orch.CallInfo(room.ID))
}

func (h *Handlers) listNotifications(c *gin.Context) {
	uid, _ := userOf(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	items, total, err := h.Orch.Notifications.List(c.Request.Context(), uid, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

type markReadRequest struct {
	IDs []domain.NotificationID `json:"ids" binding:"required,min=1,max=500"`
}

func (h *Handlers) markReadBulk(c *gin.Context) {
	uid, _ := userOf(c)
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Orch.Notifications.MarkReadBulk(c.Request.Context(), uid, req.IDs); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) markRead(c *gin.Context) {
	uid, _ := userOf(c)
	if err := h.Orch.Notifications.MarkRead(c.Request.Context(), uid, domain.NotificationID(c.Param("id"))); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) deleteAllNotifications(c *gin.Context) {
	uid, _ := userOf(c)
	n, err := h.Orch.Notifications.DeleteAll(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *Handlers) deleteNotification(c *gin.Context) {
	uid, _ := userOf(c)
	if err := h.Orch.Notifications.Delete(c.Request.Context(), uid, domain.NotificationID(c.Param("id"))); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
