package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/expense-tracker/internal/tracker"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the GenerateAll concurrency when none is configured.
const DefaultWorkers = 4

// InsightsSource produces the insights a report is built from.
type InsightsSource interface {
	GetInsights(ctx context.Context, userID string, req tracker.InsightsRequest) tracker.InsightsResult
}

// Stored describes one generated report.
type Stored struct {
	UserID   string `json:"user_id"`
	Kind     string `json:"kind"`
	Location string `json:"location"`
	Score    int    `json:"score"`
}

// Outcome is the per-user result of GenerateAll.
type Outcome struct {
	Stored
	Err error `json:"-"`
}

// ErrNoInsights is returned when the insights call reports a failure.
var ErrNoInsights = errors.New("insights unavailable")

// Generator builds and stores reports.
type Generator struct {
	source  InsightsSource
	sink    Sink
	log     zerolog.Logger
	workers int
	now     func() time.Time
}

// NewGenerator creates a Generator. workers bounds GenerateAll concurrency.
func NewGenerator(src InsightsSource, sink Sink, log zerolog.Logger, workers int) *Generator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Generator{source: src, sink: sink, log: log, workers: workers, now: time.Now}
}

// Generate builds the kind report for userID and stores it.
func (g *Generator) Generate(ctx context.Context, userID, kind string) (Stored, error) {
	res := g.source.GetInsights(ctx, userID, tracker.NewInsightsRequest(kind))
	if !res.Success {
		return Stored{}, fmt.Errorf("Generate %s: %w: %s", userID, ErrNoInsights, res.Message)
	}

	doc := Document{UserID: userID, Kind: kind, GeneratedAt: g.now(), Insights: res}
	data, err := BuildPDF(doc)
	if err != nil {
		return Stored{}, fmt.Errorf("Generate %s: %w", userID, err)
	}

	loc, err := g.sink.Put(ctx, objectName(userID, res), data)
	if err != nil {
		return Stored{}, fmt.Errorf("Generate %s: store report: %w", userID, err)
	}

	st := Stored{UserID: userID, Kind: string(res.Insights.Window.Kind), Location: loc}
	if res.FinancialHealth != nil {
		st.Score = res.FinancialHealth.Score
	}
	g.log.Info().
		Str("user_id", userID).
		Str("location", loc).
		Int("bytes", len(data)).
		Msg("report stored")
	return st, nil
}

// GenerateAll builds the kind report for every user, at most workers at a
// time. A failing user does not stop the others; only cancellation of ctx
// returns an error.
func (g *Generator) GenerateAll(ctx context.Context, userIDs []string, kind string) ([]Outcome, error) {
	out := make([]Outcome, len(userIDs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)

	for i, id := range userIDs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i] = Outcome{Stored: Stored{UserID: id}, Err: err}
				return err
			}
			st, err := g.Generate(ctx, id, kind)
			if err != nil {
				g.log.Error().Err(err).Str("user_id", id).Msg("report generation failed")
				st.UserID = id
			}
			out[i] = Outcome{Stored: st, Err: err}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return out, fmt.Errorf("GenerateAll: %w", err)
	}
	return out, nil
}

// objectName is <user>/<kind>-<start>.pdf with path separators in the user
// id replaced.
func objectName(userID string, res tracker.InsightsResult) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(userID)
	w := res.Insights.Window
	return fmt.Sprintf("%s/%s-%s.pdf", safe, w.Kind, w.Current.Start)
}
