package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/expense-tracker/internal/reports"
)

// ReportGenerator builds and stores one report.
type ReportGenerator interface {
	Generate(ctx context.Context, userID, kind string) (reports.Stored, error)
}

// NewReportHandler returns a JobHandler that runs GenerateReportJobs with g
// and records where each report went.
func NewReportHandler(g ReportGenerator) JobHandler {
	return func(ctx context.Context, job Job) error {
		j, ok := job.(*GenerateReportJob)
		if !ok {
			return fmt.Errorf("unsupported job type %q", job.GetType())
		}
		st, err := g.Generate(ctx, j.UserID, j.AnalysisType)
		if err != nil {
			return err
		}
		j.Location = st.Location
		j.Score = st.Score
		return nil
	}
}
