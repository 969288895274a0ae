package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/mockview/internal/models"
	"github.com/yoockh/mockview/internal/services"
	"github.com/yoockh/mockview/internal/utils"
)

type ConversationHandler struct {
	sessions services.SessionService
	turns    services.TurnService
}

func NewConversationHandler(sessions services.SessionService, turns services.TurnService) *ConversationHandler {
	return &ConversationHandler{sessions: sessions, turns: turns}
}

type ConversationResponse struct {
	SessionID string          `json:"session_id"`
	Phase     models.Phase    `json:"phase"`
	Turns     []models.Turn   `json:"turns"`
	Draft     *services.Draft `json:"draft,omitempty"`
}

type SubmitAnswerRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *ConversationHandler) List(c *gin.Context) {
	sess, ok := openSession(c, h.sessions)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, conversation(sess))
}

func (h *ConversationHandler) Submit(c *gin.Context) {
	sess, ok := openSession(c, h.sessions)
	if !ok {
		return
	}

	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ConversationHandler.Submit", "invalid request body", err))
		return
	}

	if _, err := h.turns.Submit(c.Request.Context(), sess, req.Text); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conversation(sess))
}

func (h *ConversationHandler) Retry(c *gin.Context) {
	sess, ok := openSession(c, h.sessions)
	if !ok {
		return
	}
	if _, err := h.turns.Retry(c.Request.Context(), sess); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conversation(sess))
}

func conversation(sess *services.InterviewSession) ConversationResponse {
	out := ConversationResponse{
		SessionID: sess.ID(),
		Phase:     sess.Phase(),
		Turns:     sess.Snapshot(),
	}
	if d, ok := sess.FailedDraft(); ok {
		out.Draft = &d
	}
	return out
}
