package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/events"
	"github.com/dvloznov/expense-tracker/internal/llm"
	"github.com/dvloznov/expense-tracker/internal/reports"
	"github.com/dvloznov/expense-tracker/internal/tracker"
	"github.com/rs/zerolog"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Port:            "8080",
		StoreBackend:    config.BackendSQLite,
		SQLitePath:      filepath.Join(dir, "data", "expenses.db"),
		LLMProvider:     config.ProviderNone,
		ReportDir:       filepath.Join(dir, "reports"),
		ReportWorkers:   2,
		DefaultCurrency: "INR",
		ViewLimit:       50,
		Timezone:        "Asia/Kolkata",
	}
}

func TestNew_SQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if _, ok := a.Publisher.(events.Noop); !ok {
		t.Errorf("Publisher = %T, want events.Noop without a broker", a.Publisher)
	}
	if _, ok := a.Generator.(llm.Disabled); !ok {
		t.Errorf("Generator = %T, want llm.Disabled", a.Generator)
	}

	added := a.Tracker.AddExpense(ctx, "u1", "Spent ₹500 on lunch at Cafe Coffee Day", domain.Overrides{})
	if !added.Success {
		t.Fatalf("AddExpense() = %+v", added)
	}
	if added.SuggestedCategory != domain.CategoryFoodDining {
		t.Errorf("SuggestedCategory = %q, want %q", added.SuggestedCategory, domain.CategoryFoodDining)
	}

	view := a.Tracker.ViewExpenses(ctx, "u1", tracker.ViewFilters{})
	if !view.Success || len(view.Expenses) != 1 {
		t.Fatalf("ViewExpenses() = %+v", view)
	}

	gen, err := a.Reports(ctx)
	if err != nil {
		t.Fatalf("Reports() error = %v", err)
	}
	st, err := gen.Generate(ctx, "u1", "monthly")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := os.Stat(st.Location); err != nil {
		t.Errorf("report not written at %q: %v", st.Location, err)
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreBackend = "mysql"
	if _, err := OpenStore(context.Background(), cfg); err == nil {
		t.Fatal("OpenStore() expected error")
	}
}

func TestNewGenerator(t *testing.T) {
	cfg := testConfig(t)

	cfg.LLMProvider = config.ProviderAnthropic
	cfg.AnthropicAPIKey = "test-key"
	cfg.AnthropicModel = "claude-sonnet-4-20250514"
	cfg.LLMMaxTokens = 256
	g, err := NewGenerator(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewGenerator(anthropic) error = %v", err)
	}
	if _, ok := g.(*llm.Anthropic); !ok {
		t.Errorf("NewGenerator(anthropic) = %T", g)
	}

	cfg.LLMProvider = "markov"
	if _, err := NewGenerator(context.Background(), cfg); err == nil {
		t.Error("NewGenerator() expected error for an unknown provider")
	}
}

func TestOpenSink_LocalDir(t *testing.T) {
	cfg := testConfig(t)
	sink, err := OpenSink(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenSink() error = %v", err)
	}
	if ds, ok := sink.(reports.DirSink); !ok || ds.Dir != cfg.ReportDir {
		t.Errorf("OpenSink() = %#v", sink)
	}
}
