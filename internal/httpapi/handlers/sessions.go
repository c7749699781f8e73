package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"streamchat/internal/common"
	"streamchat/internal/session"
)

type createSessionReq struct {
	Name string `json:"name"`
}

func sessionPayload(s *session.Session, messageCount int64) gin.H {
	return gin.H{
		"session_id":    s.SessionID,
		"name":          s.Name,
		"created_at":    s.CreatedAt,
		"message_count": messageCount,
	}
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionReq
	_ = c.ShouldBindJSON(&req) // allow empty {}

	sess, err := h.Sessions.CreateSession(c.Request.Context(), req.Name)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create session")
		return
	}
	common.OK(c, sessionPayload(sess, 0))
}

func (h *Handler) ListSessions(c *gin.Context) {
	summaries, err := h.Sessions.ListSessions(c.Request.Context(), 0)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list sessions")
		return
	}
	common.OK(c, gin.H{"sessions": summaries})
}

func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.Sessions.GetSession(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	msgs, err := h.Sessions.ListMessages(c.Request.Context(), sess.SessionID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.OK(c, sessionPayload(sess, int64(len(msgs))))
}

func (h *Handler) ListMessages(c *gin.Context) {
	msgs, err := h.Sessions.ListMessages(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}
	common.OK(c, gin.H{"messages": msgs})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	err := h.Sessions.DeleteSession(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to delete session")
		return
	}
	common.OK(c, gin.H{"message": "Session deleted successfully"})
}

type renameSessionReq struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) RenameSession(c *gin.Context) {
	var req renameSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	sess, err := h.Sessions.RenameSession(c.Request.Context(), c.Param("session_id"), req.Name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to rename session")
		return
	}

	msgs, _ := h.Sessions.ListMessages(c.Request.Context(), sess.SessionID)
	common.OK(c, sessionPayload(sess, int64(len(msgs))))
}

func (h *Handler) DuplicateSession(c *gin.Context) {
	sess, err := h.Sessions.DuplicateSession(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50005, "failed to duplicate session")
		return
	}

	msgs, _ := h.Sessions.ListMessages(c.Request.Context(), sess.SessionID)
	common.OK(c, sessionPayload(sess, int64(len(msgs))))
}
