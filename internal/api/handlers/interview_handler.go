package handlers

import (
	"bytes"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/mockview/internal/providers/interview"
	"github.com/yoockh/mockview/internal/services"
	"github.com/yoockh/mockview/internal/utils"
)

const maxResumeSize = 10 << 20

type InterviewHandler struct {
	sessions services.SessionService
}

func NewInterviewHandler(sessions services.SessionService) *InterviewHandler {
	return &InterviewHandler{sessions: sessions}
}

type StartInterviewResponse struct {
	SessionID string `json:"session_id"`
}

// Start forwards the resume form to the interview service, which creates the
// session and asks the first question.
func (h *InterviewHandler) Start(c *gin.Context) {
	const op = "InterviewHandler.Start"

	fh, err := c.FormFile("resume")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'resume'", err))
		return
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != ".pdf" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "only .pdf is allowed", nil))
		return
	}
	if fh.Size <= 0 || fh.Size > maxResumeSize {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "file too large (max 10MB)", nil))
		return
	}

	position := strings.TrimSpace(c.PostForm("position"))
	jobDescription := strings.TrimSpace(c.PostForm("jobDescription"))
	if position == "" || jobDescription == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "position and jobDescription are required", nil))
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	// sniff content type (read 512 bytes)
	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	head = head[:n]
	if http.DetectContentType(head) != "application/pdf" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid content type (must be pdf)", nil))
		return
	}

	id, err := h.sessions.Start(c.Request.Context(), interview.StartRequest{
		ResumeName:     filepath.Base(fh.Filename),
		Resume:         io.MultiReader(bytes.NewReader(head), file),
		Position:       position,
		Company:        strings.TrimSpace(c.PostForm("company")),
		JobDescription: jobDescription,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, StartInterviewResponse{SessionID: id})
}
