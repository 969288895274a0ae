package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/mockview/internal/services"
	"github.com/yoockh/mockview/internal/utils"
)

type SessionHandler struct {
	sessions  services.SessionService
	lifecycle services.LifecycleService
	now       func() time.Time
}

func NewSessionHandler(sessions services.SessionService, lifecycle services.LifecycleService) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		lifecycle: lifecycle,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Get opens the session on first use and returns its header view. A session
// whose load failed is still rendered, with its error, so the UI can offer a
// reload.
func (h *SessionHandler) Get(c *gin.Context) {
	sess, err := h.sessions.Open(c.Request.Context(), c.Param("session_id"))
	if sess == nil {
		writeError(c, err)
		return
	}
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(http.StatusOK, sess.View(h.now()))
}

func (h *SessionHandler) Reload(c *gin.Context) {
	sess, ok := openSession(c, h.sessions)
	if !ok {
		return
	}
	if err := h.lifecycle.Reload(c.Request.Context(), sess); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.View(h.now()))
}

func (h *SessionHandler) End(c *gin.Context) {
	sess, ok := openSession(c, h.sessions)
	if !ok {
		return
	}
	if err := h.lifecycle.End(c.Request.Context(), sess); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.View(h.now()))
}

// Close abandons the session in this process. The remote interview is left
// as it is.
func (h *SessionHandler) Close(c *gin.Context) {
	if !h.sessions.Close(c.Param("session_id")) {
		writeError(c, utils.E(utils.CodeNotFound, "SessionHandler.Close", "session is not open", nil))
		return
	}
	c.Status(http.StatusNoContent)
}
