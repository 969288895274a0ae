package interview

import (
	"context"
	"io"

	"github.com/yoockh/mockview/internal/models"
)

// Client is the remote interview service. It asks the questions, records
// the answers and scores the session; this process only relays.
type Client interface {
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	GetTranscript(ctx context.Context, sessionID string) ([]models.Turn, error)
	PostAnswer(ctx context.Context, sessionID string, req AnswerRequest) (*models.Exchange, error)
	EndSession(ctx context.Context, sessionID string) error
	GetReport(ctx context.Context, sessionID string) (*models.Report, error)
	StartInterview(ctx context.Context, req StartRequest) (sessionID string, err error)
}

// AnswerRequest carries one candidate answer. ClientTurnID is sent as the
// idempotency key so a deduplicating server can drop resubmissions.
type AnswerRequest struct {
	ClientTurnID string
	Text         string
}

// StartRequest is the resume ingestion form.
type StartRequest struct {
	ResumeName     string
	Resume         io.Reader
	Position       string
	Company        string
	JobDescription string
}
