package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/mockview/internal/models"
	"github.com/yoockh/mockview/internal/services"
)

type ReportHandler struct {
	sessions services.SessionService
	reports  services.ReportService
}

func NewReportHandler(sessions services.SessionService, reports services.ReportService) *ReportHandler {
	return &ReportHandler{sessions: sessions, reports: reports}
}

type ScoreView struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

type ReportResponse struct {
	Title   string          `json:"title"`
	Session *models.Session `json:"session,omitempty"`
	Report  *models.Report  `json:"report"`
	Overall ScoreView       `json:"overall"`
	Scores  []ScoreView     `json:"scores"`
}

func (h *ReportHandler) Get(c *gin.Context) {
	sess, ok := openSession(c, h.sessions)
	if !ok {
		return
	}

	rep, err := h.reports.Fetch(c.Request.Context(), sess)
	if err != nil {
		writeError(c, err)
		return
	}

	meta := sess.Session()
	c.JSON(http.StatusOK, ReportResponse{
		Title:   meta.Title(),
		Session: meta,
		Report:  rep,
		Overall: score("Overall", rep.OverallRating),
		Scores: []ScoreView{
			score("Technical Skills", rep.TechnicalScore),
			score("Communication", rep.CommunicationScore),
			score("Problem Solving", rep.ProblemSolving),
			score("Culture Fit", rep.CultureFit),
		},
	})
}

func score(name string, v float64) ScoreView {
	return ScoreView{Name: name, Score: v, Label: models.Label(v)}
}
