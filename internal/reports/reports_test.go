package reports

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/insights"
	"github.com/dvloznov/expense-tracker/internal/period"
	"github.com/dvloznov/expense-tracker/internal/tracker"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type mockSource struct {
	GetInsightsFunc func(ctx context.Context, userID string, req tracker.InsightsRequest) tracker.InsightsResult
}

func (m *mockSource) GetInsights(ctx context.Context, userID string, req tracker.InsightsRequest) tracker.InsightsResult {
	return m.GetInsightsFunc(ctx, userID, req)
}

type memSink struct {
	mu      sync.Mutex
	objects map[string][]byte
	PutErr  error
}

func (s *memSink) Put(_ context.Context, name string, data []byte) (string, error) {
	if s.PutErr != nil {
		return "", s.PutErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[name] = data
	return "mem://" + name, nil
}

func sampleInsights() tracker.InsightsResult {
	march := period.Range{
		Start: civil.Date{Year: 2025, Month: time.March, Day: 1},
		End:   civil.Date{Year: 2025, Month: time.March, Day: 31},
	}
	upi := "UPI"
	rows := []domain.Transaction{
		{Amount: decimal.NewFromInt(50000), Kind: domain.KindIncome, CategoryName: "Income", Date: march.Start},
		{Amount: decimal.NewFromInt(1500), Kind: domain.KindExpense, CategoryName: "Food & Dining", Date: march.Start, PaymentMethod: &upi},
		{Amount: decimal.NewFromInt(12000), Kind: domain.KindExpense, CategoryName: "Housing", Date: march.Start.AddDays(4)},
	}
	cur := insights.Summarize(march, rows)
	health := insights.Score(cur)
	return tracker.InsightsResult{
		Success: true,
		Insights: &tracker.Report{
			Window:     period.Window{Kind: period.Monthly, Current: march},
			Current:    cur,
			Highlights: insights.Highlights(cur, nil),
		},
		Recommendations: insights.FallbackRecommendations[:3],
		FinancialHealth: &health,
	}
}

func TestBuildPDF(t *testing.T) {
	data, err := BuildPDF(Document{
		UserID:      "user-1",
		Kind:        "monthly",
		GeneratedAt: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
		Insights:    sampleInsights(),
	})
	if err != nil {
		t.Fatalf("BuildPDF() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("BuildPDF() output does not start with a PDF header")
	}
}

func TestBuildPDF_NoInsights(t *testing.T) {
	if _, err := BuildPDF(Document{UserID: "user-1"}); err == nil {
		t.Fatal("BuildPDF() expected error for a document without insights")
	}
}

func TestGenerator_Generate(t *testing.T) {
	dir := t.TempDir()
	var gotReq tracker.InsightsRequest
	src := &mockSource{
		GetInsightsFunc: func(_ context.Context, userID string, req tracker.InsightsRequest) tracker.InsightsResult {
			gotReq = req
			return sampleInsights()
		},
	}
	g := NewGenerator(src, DirSink{Dir: dir}, zerolog.Nop(), 2)

	st, err := g.Generate(context.Background(), "user-1", "monthly")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !gotReq.IncludeComparison || !gotReq.IncludeRecommendations {
		t.Errorf("Generate() request = %+v, want both sections enabled", gotReq)
	}
	want := filepath.Join(dir, "user-1", "monthly-2025-03-01.pdf")
	if st.Location != want {
		t.Errorf("Location = %q, want %q", st.Location, want)
	}
	if st.Kind != "monthly" {
		t.Errorf("Kind = %q, want monthly", st.Kind)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("report file not written: %v", err)
	}
}

func TestGenerator_GenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		result  tracker.InsightsResult
		putErr  error
		wantErr error
	}{
		{
			name:    "insights failure",
			result:  tracker.InsightsResult{Message: "The database is unavailable right now. Please try again later."},
			wantErr: ErrNoInsights,
		},
		{
			name:    "sink failure",
			result:  sampleInsights(),
			putErr:  errors.New("bucket missing"),
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &mockSource{
				GetInsightsFunc: func(context.Context, string, tracker.InsightsRequest) tracker.InsightsResult {
					return tt.result
				},
			}
			g := NewGenerator(src, &memSink{PutErr: tt.putErr}, zerolog.Nop(), 1)

			_, err := g.Generate(context.Background(), "user-1", "monthly")
			if err == nil {
				t.Fatal("Generate() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Generate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.putErr != nil && !errors.Is(err, tt.putErr) {
				t.Errorf("Generate() error = %v, want wrapped %v", err, tt.putErr)
			}
		})
	}
}

func TestGenerator_GenerateAll(t *testing.T) {
	src := &mockSource{
		GetInsightsFunc: func(_ context.Context, userID string, _ tracker.InsightsRequest) tracker.InsightsResult {
			if userID == "broken" {
				return tracker.InsightsResult{Message: "no data"}
			}
			return sampleInsights()
		},
	}
	sink := &memSink{}
	g := NewGenerator(src, sink, zerolog.Nop(), 2)

	users := []string{"a", "broken", "c", "d"}
	out, err := g.GenerateAll(context.Background(), users, "monthly")
	if err != nil {
		t.Fatalf("GenerateAll() error = %v", err)
	}
	if len(out) != len(users) {
		t.Fatalf("GenerateAll() returned %d outcomes, want %d", len(out), len(users))
	}
	for i, o := range out {
		if o.UserID != users[i] {
			t.Errorf("outcome %d user = %q, want %q", i, o.UserID, users[i])
		}
		if (o.Err != nil) != (users[i] == "broken") {
			t.Errorf("outcome %q err = %v", o.UserID, o.Err)
		}
	}
	if len(sink.objects) != 3 {
		t.Errorf("stored %d reports, want 3", len(sink.objects))
	}
}

func TestGenerator_GenerateAllCancelled(t *testing.T) {
	src := &mockSource{
		GetInsightsFunc: func(context.Context, string, tracker.InsightsRequest) tracker.InsightsResult {
			return sampleInsights()
		},
	}
	g := NewGenerator(src, &memSink{}, zerolog.Nop(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.GenerateAll(ctx, []string{"a", "b"}, "monthly"); !errors.Is(err, context.Canceled) {
		t.Errorf("GenerateAll() error = %v, want context.Canceled", err)
	}
}

func TestDirSink_RejectsEscapingNames(t *testing.T) {
	s := DirSink{Dir: t.TempDir()}
	for _, name := range []string{"../outside.pdf", "/abs/report.pdf"} {
		if _, err := s.Put(context.Background(), name, []byte("x")); err == nil {
			t.Errorf("Put(%q) expected error", name)
		}
	}
}

func TestObjectName(t *testing.T) {
	got := objectName("../evil/user", sampleInsights())
	if strings.Contains(got, "..") || strings.Count(got, "/") != 1 {
		t.Errorf("objectName() = %q, want a single sanitized directory", got)
	}
	if !strings.HasSuffix(got, "/monthly-2025-03-01.pdf") {
		t.Errorf("objectName() = %q", got)
	}
}
