package interview

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/yoockh/mockview/internal/models"
)

// flexID accepts ids sent either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type interviewDTO struct {
	ID             flexID     `json:"id"`
	Position       string     `json:"position"`
	Company        string     `json:"company"`
	StartedAt      *time.Time `json:"startedAt"`
	CreatedAt      *time.Time `json:"createdAt"`
	Duration       *int       `json:"duration"`
	QuestionsAsked *int       `json:"questionsAsked"`
}

func (d *interviewDTO) toModel(requestedID string) *models.Session {
	s := &models.Session{
		ID:              string(d.ID),
		Position:        d.Position,
		Company:         d.Company,
		DurationMinutes: d.Duration,
		QuestionsAsked:  d.QuestionsAsked,
	}
	if s.ID == "" {
		s.ID = requestedID
	}
	switch {
	case d.StartedAt != nil:
		s.StartedAt = d.StartedAt.UTC()
	case d.CreatedAt != nil:
		s.StartedAt = d.CreatedAt.UTC()
	}
	return s
}

type messageDTO struct {
	ID        flexID     `json:"id"`
	Role      string     `json:"role"` // USER | AI
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"createdAt"`
}

func (d *messageDTO) toTurn(fallback models.Speaker) (models.Turn, bool) {
	speaker, ok := speakerFromRole(d.Role, fallback)
	if !ok || d.ID == "" || strings.TrimSpace(d.Content) == "" {
		return models.Turn{}, false
	}
	t := models.Turn{
		ID:      string(d.ID),
		Speaker: speaker,
		Text:    d.Content,
		Status:  models.TurnCommitted,
	}
	if d.CreatedAt != nil {
		t.CreatedAt = d.CreatedAt.UTC()
	}
	return t, true
}

func speakerFromRole(role string, fallback models.Speaker) (models.Speaker, bool) {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case "":
		return fallback, fallback != ""
	case "USER", "CANDIDATE":
		return models.SpeakerCandidate, fallback == "" || fallback == models.SpeakerCandidate
	case "AI", "ASSISTANT", "INTERVIEWER":
		return models.SpeakerInterviewer, fallback == "" || fallback == models.SpeakerInterviewer
	default:
		return "", false
	}
}

type feedbackDTO struct {
	OverallRating      float64 `json:"overallRating"`
	TechnicalScore     float64 `json:"technicalScore"`
	CommunicationScore float64 `json:"communicationScore"`
	ProblemSolving     float64 `json:"problemSolving"`
	CultureFit         float64 `json:"cultureFit"`

	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	NextSteps       []string `json:"nextSteps"`
	Recommendations []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"recommendations"`
}

func (d *feedbackDTO) toModel(sessionID string) *models.Report {
	r := &models.Report{
		SessionID:          sessionID,
		OverallRating:      d.OverallRating,
		TechnicalScore:     d.TechnicalScore,
		CommunicationScore: d.CommunicationScore,
		ProblemSolving:     d.ProblemSolving,
		CultureFit:         d.CultureFit,
		Strengths:          nonNil(d.Strengths),
		Improvements:       nonNil(d.Improvements),
		NextSteps:          nonNil(d.NextSteps),
		Recommendations:    make([]models.Recommendation, 0, len(d.Recommendations)),
	}
	for _, rec := range d.Recommendations {
		r.Recommendations = append(r.Recommendations, models.Recommendation{Title: rec.Title, URL: rec.URL})
	}
	return r
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

type getInterviewResponse struct {
	Interview *interviewDTO `json:"interview"`
}

type listMessagesResponse struct {
	Messages []messageDTO `json:"messages"`
}

type postAnswerRequest struct {
	Message         string `json:"message"`
	ClientMessageID string `json:"clientMessageId,omitempty"`
}

type postAnswerResponse struct {
	UserMessage *messageDTO `json:"userMessage"`
	AIMessage   *messageDTO `json:"aiMessage"`
}

type feedbackResponse struct {
	Feedback *feedbackDTO `json:"feedback"`
}

type startResponse struct {
	InterviewID flexID `json:"interviewId"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
