package interview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yoockh/mockview/internal/models"
	"github.com/yoockh/mockview/internal/utils"
)

const maxResponseBytes = 4 << 20

var _ Client = (*HTTPClient)(nil)

// HTTPClient talks to the interview service REST API.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
}

func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), hc: hc}
}

func (c *HTTPClient) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	const op = "InterviewClient.GetSession"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	var out getInterviewResponse
	if err := c.do(ctx, op, http.MethodGet, "/interviews/"+url.PathEscape(sessionID), nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Interview == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "response has no interview", nil)
	}
	return out.Interview.toModel(sessionID), nil
}

func (c *HTTPClient) GetTranscript(ctx context.Context, sessionID string) ([]models.Turn, error) {
	const op = "InterviewClient.GetTranscript"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	var out listMessagesResponse
	if err := c.do(ctx, op, http.MethodGet, "/messages/"+url.PathEscape(sessionID), nil, nil, &out); err != nil {
		return nil, err
	}

	turns := make([]models.Turn, 0, len(out.Messages))
	for i := range out.Messages {
		t, ok := out.Messages[i].toTurn("")
		if !ok {
			return nil, utils.E(utils.CodeUnavailable, op, fmt.Sprintf("malformed message at index %d", i), nil)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (c *HTTPClient) PostAnswer(ctx context.Context, sessionID string, req AnswerRequest) (*models.Exchange, error) {
	const op = "InterviewClient.PostAnswer"

	if sessionID == "" || strings.TrimSpace(req.Text) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id and text are required", nil)
	}

	body, err := json.Marshal(postAnswerRequest{Message: req.Text, ClientMessageID: req.ClientTurnID})
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to encode answer", err)
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	if req.ClientTurnID != "" {
		header.Set("Idempotency-Key", req.ClientTurnID)
	}

	var out postAnswerResponse
	if err := c.do(ctx, op, http.MethodPost, "/messages/"+url.PathEscape(sessionID), bytes.NewReader(body), header, &out); err != nil {
		return nil, err
	}
	if out.UserMessage == nil || out.AIMessage == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "response is missing one side of the exchange", nil)
	}

	candidate, ok := out.UserMessage.toTurn(models.SpeakerCandidate)
	if !ok {
		return nil, utils.E(utils.CodeUnavailable, op, "malformed candidate message", nil)
	}
	interviewer, ok := out.AIMessage.toTurn(models.SpeakerInterviewer)
	if !ok {
		return nil, utils.E(utils.CodeUnavailable, op, "malformed interviewer message", nil)
	}
	return &models.Exchange{Candidate: candidate, Interviewer: interviewer}, nil
}

func (c *HTTPClient) EndSession(ctx context.Context, sessionID string) error {
	const op = "InterviewClient.EndSession"

	if sessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	return c.do(ctx, op, http.MethodPost, "/interviews/"+url.PathEscape(sessionID)+"/end", nil, nil, nil)
}

func (c *HTTPClient) GetReport(ctx context.Context, sessionID string) (*models.Report, error) {
	const op = "InterviewClient.GetReport"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	var out feedbackResponse
	if err := c.do(ctx, op, http.MethodGet, "/feedback/"+url.PathEscape(sessionID), nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Feedback == nil {
		return nil, utils.E(utils.CodePreconditionFailed, op, "report is not available yet", nil)
	}
	return out.Feedback.toModel(sessionID), nil
}

func (c *HTTPClient) StartInterview(ctx context.Context, req StartRequest) (string, error) {
	const op = "InterviewClient.StartInterview"

	if req.Resume == nil || strings.TrimSpace(req.Position) == "" || strings.TrimSpace(req.JobDescription) == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "resume, position and job description are required", nil)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	name := req.ResumeName
	if name == "" {
		name = "resume.pdf"
	}
	fw, err := mw.CreateFormFile("resume", name)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to build upload", err)
	}
	if _, err := io.Copy(fw, req.Resume); err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to read resume", err)
	}
	fields := [][2]string{
		{"position", req.Position},
		{"company", req.Company},
		{"jobDescription", req.JobDescription},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return "", utils.E(utils.CodeInternal, op, "failed to build upload", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to build upload", err)
	}

	header := http.Header{}
	header.Set("Content-Type", mw.FormDataContentType())

	var out startResponse
	if err := c.do(ctx, op, http.MethodPost, "/interviews/start", &buf, header, &out); err != nil {
		return "", err
	}
	if out.InterviewID == "" {
		return "", utils.E(utils.CodeUnavailable, op, "response has no interview id", nil)
	}
	return string(out.InterviewID), nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body io.Reader, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to build request", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return utils.E(utils.CodeUnavailable, op, "malformed response from interview service", err)
	}
	return nil
}

func transportError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return utils.E(utils.CodeTimeout, op, "interview service timed out", err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return utils.E(utils.CodeTimeout, op, "interview service timed out", err)
	}
	return utils.E(utils.CodeUnavailable, op, "interview service unreachable", err)
}

func statusError(op string, status int, raw []byte) error {
	msg := remoteMessage(raw)
	if msg == "" {
		msg = http.StatusText(status)
	}

	code := utils.CodeInternal
	switch {
	case status == http.StatusNotFound:
		code = utils.CodeNotFound
	case status == http.StatusConflict:
		code = utils.CodeSessionNotActive
	case status == http.StatusPreconditionFailed || status == http.StatusTooEarly:
		code = utils.CodePreconditionFailed
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		code = utils.CodeInvalidArgument
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		code = utils.CodeTimeout
	case status == http.StatusTooManyRequests || status >= 500:
		code = utils.CodeUnavailable
	}
	return utils.E(code, op, msg, fmt.Errorf("interview service returned status %d", status))
}

func remoteMessage(raw []byte) string {
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err != nil {
		return ""
	}
	if er.Error != "" {
		return er.Error
	}
	return er.Message
}
