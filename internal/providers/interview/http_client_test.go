package interview

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/mockview/internal/models"
	"github.com/yoockh/mockview/internal/utils"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/api/", srv.Client())
}

func TestGetSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/interviews/17", r.URL.Path)
		_, _ = io.WriteString(w, `{"interview":{"id":17,"position":"Backend Engineer","company":"Acme","createdAt":"2026-03-01T10:00:00Z","duration":30,"questionsAsked":4}}`)
	})

	s, err := c.GetSession(context.Background(), "17")
	require.NoError(t, err)
	assert.Equal(t, "17", s.ID)
	assert.Equal(t, "Backend Engineer", s.Position)
	assert.Equal(t, "Acme", s.Company)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), s.StartedAt)
	require.NotNil(t, s.DurationMinutes)
	assert.Equal(t, 30, *s.DurationMinutes)
	require.NotNil(t, s.QuestionsAsked)
	assert.Equal(t, 4, *s.QuestionsAsked)
}

func TestGetTranscriptMapsRoles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/messages/abc", r.URL.Path)
		_, _ = io.WriteString(w, `{"messages":[{"id":1,"role":"AI","content":"Hello, introduce yourself"},{"id":"2","role":"USER","content":"Hi"}]}`)
	})

	turns, err := c.GetTranscript(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, models.SpeakerInterviewer, turns[0].Speaker)
	assert.Equal(t, "1", turns[0].ID)
	assert.Equal(t, models.SpeakerCandidate, turns[1].Speaker)
	assert.Equal(t, models.TurnCommitted, turns[1].Status)
}

func TestGetTranscriptRejectsUnknownRole(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"messages":[{"id":1,"role":"SYSTEM","content":"x"}]}`)
	})

	_, err := c.GetTranscript(context.Background(), "abc")
	require.Error(t, err)
	assert.Equal(t, utils.CodeUnavailable, utils.CodeOf(err))
}

func TestPostAnswerSendsClientTurnID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/messages/abc", r.URL.Path)
		assert.Equal(t, "local-1", r.Header.Get("Idempotency-Key"))

		var body postAnswerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "I like Go", body.Message)
		assert.Equal(t, "local-1", body.ClientMessageID)

		_, _ = io.WriteString(w, `{"userMessage":{"id":10,"content":"I like Go"},"aiMessage":{"id":11,"content":"Why?"}}`)
	})

	ex, err := c.PostAnswer(context.Background(), "abc", AnswerRequest{ClientTurnID: "local-1", Text: "I like Go"})
	require.NoError(t, err)
	assert.Equal(t, "10", ex.Candidate.ID)
	assert.Equal(t, models.SpeakerCandidate, ex.Candidate.Speaker)
	assert.Equal(t, "11", ex.Interviewer.ID)
	assert.Equal(t, models.SpeakerInterviewer, ex.Interviewer.Speaker)
}

func TestPostAnswerRejectsHalfExchange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"userMessage":{"id":10,"content":"hi"}}`)
	})

	_, err := c.PostAnswer(context.Background(), "abc", AnswerRequest{Text: "hi"})
	require.Error(t, err)
	assert.Equal(t, utils.CodeUnavailable, utils.CodeOf(err))
}

func TestEndSession(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/interviews/abc/end", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.EndSession(context.Background(), "abc"))
	assert.True(t, called)
}

func TestGetReport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/feedback/abc", r.URL.Path)
		_, _ = io.WriteString(w, `{"feedback":{"overallRating":7.5,"technicalScore":8,"communicationScore":7,"problemSolving":6.5,"cultureFit":9,"strengths":["clear"],"recommendations":[{"title":"Go Tour","url":"https://go.dev/tour"}]}}`)
	})

	rep, err := c.GetReport(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", rep.SessionID)
	assert.Equal(t, 7.5, rep.OverallRating)
	assert.Equal(t, []string{"clear"}, rep.Strengths)
	assert.Equal(t, []string{}, rep.Improvements)
	assert.Equal(t, []models.Recommendation{{Title: "Go Tour", URL: "https://go.dev/tour"}}, rep.Recommendations)
}

func TestGetReportNotReady(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"feedback":null}`)
	})

	_, err := c.GetReport(context.Background(), "abc")
	assert.Equal(t, utils.CodePreconditionFailed, utils.CodeOf(err))
}

func TestStartInterviewSendsMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/interviews/start", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Backend Engineer", r.FormValue("position"))
		assert.Equal(t, "Acme", r.FormValue("company"))
		assert.Equal(t, "Build APIs", r.FormValue("jobDescription"))

		f, fh, err := r.FormFile("resume")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "cv.pdf", fh.Filename)
		b, _ := io.ReadAll(f)
		assert.Equal(t, "%PDF-1.4 resume", string(b))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"interviewId":99}`)
	})

	id, err := c.StartInterview(context.Background(), StartRequest{
		ResumeName:     "cv.pdf",
		Resume:         strings.NewReader("%PDF-1.4 resume"),
		Position:       "Backend Engineer",
		Company:        "Acme",
		JobDescription: "Build APIs",
	})
	require.NoError(t, err)
	assert.Equal(t, "99", id)
}

func TestStartInterviewValidates(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", nil)
	_, err := c.StartInterview(context.Background(), StartRequest{Position: "x"})
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))
}

func TestStatusMapping(t *testing.T) {
	cases := map[int]utils.Code{
		http.StatusNotFound:            utils.CodeNotFound,
		http.StatusConflict:            utils.CodeSessionNotActive,
		http.StatusPreconditionFailed:  utils.CodePreconditionFailed,
		http.StatusTooEarly:            utils.CodePreconditionFailed,
		http.StatusBadRequest:          utils.CodeInvalidArgument,
		http.StatusUnprocessableEntity: utils.CodeInvalidArgument,
		http.StatusGatewayTimeout:      utils.CodeTimeout,
		http.StatusTooManyRequests:     utils.CodeUnavailable,
		http.StatusBadGateway:          utils.CodeUnavailable,
		http.StatusUnauthorized:        utils.CodeInternal,
	}
	for status, want := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":"remote says no"}`)
		})
		err := c.EndSession(context.Background(), "abc")
		require.Error(t, err)
		assert.Equal(t, want, utils.CodeOf(err), "status %d", status)
		assert.Equal(t, "remote says no", utils.Message(err))
	}
}

func TestMalformedBodyIsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"interview":`)
	})

	_, err := c.GetSession(context.Background(), "abc")
	assert.Equal(t, utils.CodeUnavailable, utils.CodeOf(err))
}

func TestDeadlineIsTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.GetSession(ctx, "abc")
	assert.Equal(t, utils.CodeTimeout, utils.CodeOf(err))
}

func TestUnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, nil)
	_, err := c.GetSession(context.Background(), "abc")
	assert.Equal(t, utils.CodeUnavailable, utils.CodeOf(err))
}
