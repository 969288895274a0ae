package cache

import (
	"context"

	"github.com/yoockh/mockview/internal/models"
)

// ReportCache shares finished reports across gateway instances. Reports never
// change once produced, so entries are never invalidated, only expired.
type ReportCache interface {
	GetReport(ctx context.Context, sessionID string) (report *models.Report, hit bool, err error)
	SetReport(ctx context.Context, report *models.Report) error
}

// Nop is used when no shared cache is configured.
type Nop struct{}

func (Nop) GetReport(context.Context, string) (*models.Report, bool, error) { return nil, false, nil }
func (Nop) SetReport(context.Context, *models.Report) error                  { return nil }

func reportKey(sessionID string) string { return "report:" + sessionID }
