package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/mockview/internal/services"
	"github.com/yoockh/mockview/internal/utils"
)

type APIError struct {
	Code    utils.Code      `json:"code"`
	Message string          `json:"message"`
	Draft   *services.Draft `json:"draft,omitempty"`
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(utils.HTTPStatus(err), apiError(err))
}

func apiError(err error) APIError {
	out := APIError{
		Code:    utils.CodeOf(err),
		Message: utils.Message(err),
	}

	// a failed answer hands its text back so the UI can restore the input
	var se *services.SubmitError
	if errors.As(err, &se) {
		d := se.Draft
		out.Draft = &d
	}
	return out
}

// openSession looks up a session that an earlier GET /session opened.
func openSession(c *gin.Context, svc services.SessionService) (*services.InterviewSession, bool) {
	sess, err := svc.Get(c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return sess, true
}
