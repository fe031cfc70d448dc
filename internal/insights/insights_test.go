package insights

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/llm"
	"github.com/dvloznov/expense-tracker/internal/period"
	"github.com/dvloznov/expense-tracker/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var january = period.Range{
	Start: civil.Date{Year: 2025, Month: time.January, Day: 1},
	End:   civil.Date{Year: 2025, Month: time.January, Day: 31},
}

func day(d int) civil.Date {
	return civil.Date{Year: 2025, Month: time.January, Day: d}
}

func tx(kind domain.Kind, amount int64, category string, d int, method string) domain.Transaction {
	return domain.Transaction{
		Amount:        decimal.NewFromInt(amount),
		Kind:          kind,
		CategoryName:  category,
		Date:          day(d),
		PaymentMethod: domain.StringPtr(method),
	}
}

// healthyMonth has income 60000 and expense 45000 over ten distinct days,
// with the largest category at 35% of expense.
func healthyMonth() []domain.Transaction {
	rows := []domain.Transaction{
		tx(domain.KindIncome, 60000, domain.CategorySalary, 1, "Bank Transfer"),
		tx(domain.KindExpense, 15750, domain.CategoryHousing, 1, "Bank Transfer"),
	}
	// 9 more expense days, 29250 in total, none above 35%.
	amounts := []int64{5000, 4000, 4000, 3250, 3000, 3000, 3000, 2000, 2000}
	cats := []string{
		domain.CategoryFoodDining, domain.CategoryShopping, domain.CategoryTransportation,
		domain.CategoryEntertainment, domain.CategoryBillsUtilities, domain.CategoryHealthcare,
		domain.CategoryEducation, domain.CategoryTravel, domain.CategoryPersonalCare,
	}
	for i, a := range amounts {
		rows = append(rows, tx(domain.KindExpense, a, cats[i], i+2, "UPI"))
	}
	return rows
}

func TestSummarize_Empty(t *testing.T) {
	res := Summarize(january, nil)

	if !res.TotalIncome.IsZero() || !res.TotalExpense.IsZero() || res.Transactions != 0 {
		t.Errorf("totals = %s/%s/%d, want zeros", res.TotalIncome, res.TotalExpense, res.Transactions)
	}
	if res.Categories == nil || res.Daily == nil || res.PaymentMethods == nil {
		t.Fatal("breakdowns must be empty, not nil")
	}
	if len(res.Categories)+len(res.Daily)+len(res.PaymentMethods) != 0 {
		t.Errorf("breakdowns not empty: %+v", res)
	}
}

func TestSummarize_Breakdowns(t *testing.T) {
	rows := []domain.Transaction{
		tx(domain.KindExpense, 300, domain.CategoryFoodDining, 5, "UPI"),
		tx(domain.KindExpense, 200, domain.CategoryFoodDining, 3, ""),
		tx(domain.KindExpense, 500, domain.CategoryShopping, 5, "Credit Card"),
		tx(domain.KindIncome, 2000, domain.CategoryOtherIncome, 4, "UPI"),
	}
	res := Summarize(january, rows)

	if !res.TotalExpense.Equal(decimal.NewFromInt(1000)) || !res.TotalIncome.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("totals = %s expense, %s income", res.TotalExpense, res.TotalIncome)
	}

	// Equal amounts are ordered by name.
	wantCats := []CategoryTotal{
		{Category: domain.CategoryFoodDining, Amount: decimal.NewFromInt(500), Percentage: 50, Count: 2},
		{Category: domain.CategoryShopping, Amount: decimal.NewFromInt(500), Percentage: 50, Count: 1},
	}
	if len(res.Categories) != len(wantCats) {
		t.Fatalf("categories = %+v", res.Categories)
	}
	for i, want := range wantCats {
		got := res.Categories[i]
		if got.Category != want.Category || !got.Amount.Equal(want.Amount) || got.Percentage != want.Percentage || got.Count != want.Count {
			t.Errorf("categories[%d] = %+v, want %+v", i, got, want)
		}
	}

	// Ascending dates, income day 4 excluded, no zero fill.
	wantDays := []civil.Date{day(3), day(5)}
	var gotDays []civil.Date
	for _, d := range res.Daily {
		gotDays = append(gotDays, d.Date)
	}
	if !reflect.DeepEqual(gotDays, wantDays) {
		t.Errorf("daily dates = %v, want %v", gotDays, wantDays)
	}
	if !res.Daily[1].Amount.Equal(decimal.NewFromInt(800)) {
		t.Errorf("day 5 amount = %s, want 800", res.Daily[1].Amount)
	}

	wantMethods := []string{"UPI", "Credit Card", NotSpecified}
	var gotMethods []string
	for _, m := range res.PaymentMethods {
		gotMethods = append(gotMethods, m.Method)
	}
	if !reflect.DeepEqual(gotMethods, wantMethods) {
		t.Errorf("payment methods = %v, want %v", gotMethods, wantMethods)
	}
	if res.PaymentMethods[0].Count != 2 || !res.PaymentMethods[0].Amount.Equal(decimal.NewFromInt(2300)) {
		t.Errorf("UPI total = %+v", res.PaymentMethods[0])
	}
}

func TestSummarize_CategorySumEqualsExpense(t *testing.T) {
	for _, rows := range [][]domain.Transaction{nil, healthyMonth(), {tx(domain.KindIncome, 10, domain.CategorySalary, 2, "")}} {
		res := Summarize(january, rows)
		sum := decimal.Zero
		for _, c := range res.Categories {
			sum = sum.Add(c.Amount)
		}
		if !sum.Equal(res.TotalExpense) {
			t.Errorf("category sum %s != total expense %s", sum, res.TotalExpense)
		}
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		rows      []domain.Transaction
		wantScore int
		wantParts [3]int
		status    string
		areas     []string
	}{
		{
			name:      "healthy month",
			rows:      healthyMonth(),
			wantScore: 100,
			wantParts: [3]int{40, 30, 30},
			status:    StatusExcellent,
			areas:     []string{},
		},
		{
			name:      "empty period",
			wantScore: 70,
			wantParts: [3]int{20, 30, 20},
			status:    StatusGood,
			areas:     []string{AreaSavings, AreaTracking},
		},
		{
			name: "overspent and concentrated",
			rows: []domain.Transaction{
				tx(domain.KindIncome, 1000, domain.CategorySalary, 1, ""),
				tx(domain.KindExpense, 1500, domain.CategoryFoodDining, 2, ""),
				tx(domain.KindExpense, 100, domain.CategoryShopping, 3, ""),
			},
			wantScore: 30,
			wantParts: [3]int{0, 10, 20},
			status:    StatusPoor,
			areas:     []string{AreaSavings, AreaDiversify, AreaTracking},
		},
		{
			name: "modest savings, top category at 45%",
			rows: []domain.Transaction{
				tx(domain.KindIncome, 1000, domain.CategorySalary, 1, ""),
				tx(domain.KindExpense, 450, domain.CategoryFoodDining, 2, ""),
				tx(domain.KindExpense, 400, domain.CategoryShopping, 3, ""),
				tx(domain.KindExpense, 50, domain.CategoryTravel, 4, ""),
				tx(domain.KindExpense, 50, domain.CategoryTravel, 5, ""),
				tx(domain.KindExpense, 50, domain.CategoryTravel, 6, ""),
			},
			// savings 0% (1000-1000) -> 20.
			wantScore: 60,
			wantParts: [3]int{20, 20, 20},
			status:    StatusGood,
			areas:     []string{AreaSavings, AreaDiversify, AreaTracking},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Score(Summarize(january, tt.rows))
			if h.Score != tt.wantScore || h.Status != tt.status {
				t.Errorf("Score() = %d %q, want %d %q", h.Score, h.Status, tt.wantScore, tt.status)
			}
			if got := [3]int{h.Savings, h.Concentration, h.Regularity}; got != tt.wantParts {
				t.Errorf("contributions = %v, want %v", got, tt.wantParts)
			}
			if !reflect.DeepEqual(h.ImprovementAreas, tt.areas) {
				t.Errorf("areas = %v, want %v", h.ImprovementAreas, tt.areas)
			}
		})
	}
}

func TestScore_SavingsRate(t *testing.T) {
	h := Score(Summarize(january, healthyMonth()))
	if h.SavingsRate != 25 {
		t.Errorf("SavingsRate = %v, want 25", h.SavingsRate)
	}
}

func TestScore_ThresholdsUseUnroundedShares(t *testing.T) {
	contains := func(areas []string, a string) bool {
		for _, x := range areas {
			if x == a {
				return true
			}
		}
		return false
	}

	t.Run("savings rate", func(t *testing.T) {
		tests := []struct {
			name        string
			expense     int64
			wantPoints  int
			wantSavings bool
		}{
			{"exactly 20%", 80000, 40, false},
			{"19.996% rounds to 20.00 but scores below", 80004, 30, true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := Score(Summarize(january, []domain.Transaction{
					tx(domain.KindIncome, 100000, domain.CategorySalary, 1, ""),
					tx(domain.KindExpense, tt.expense, domain.CategoryShopping, 2, ""),
				}))
				if h.Savings != tt.wantPoints {
					t.Errorf("savings points = %d, want %d (rate %v)", h.Savings, tt.wantPoints, h.SavingsRate)
				}
				if got := contains(h.ImprovementAreas, AreaSavings); got != tt.wantSavings {
					t.Errorf("AreaSavings listed = %v, want %v", got, tt.wantSavings)
				}
			})
		}
	})

	t.Run("top category share", func(t *testing.T) {
		tests := []struct {
			name          string
			amounts       [3]int64
			wantPoints    int
			wantDiversify bool
			wantFoodLine  bool
		}{
			{"exactly 40%", [3]int64{40000, 30000, 30000}, 30, false, false},
			{"40.004% rounds to 40.00 but scores above", [3]int64{40004, 30000, 29996}, 20, true, true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				res := Summarize(january, []domain.Transaction{
					tx(domain.KindExpense, tt.amounts[0], domain.CategoryFoodDining, 2, ""),
					tx(domain.KindExpense, tt.amounts[1], domain.CategoryShopping, 3, ""),
					tx(domain.KindExpense, tt.amounts[2], domain.CategoryTravel, 4, ""),
				})
				if top, _ := res.TopCategory(); top.Percentage != 40 {
					t.Errorf("displayed percentage = %v, want 40", top.Percentage)
				}

				h := Score(res)
				if h.Concentration != tt.wantPoints {
					t.Errorf("concentration points = %d, want %d", h.Concentration, tt.wantPoints)
				}
				if got := contains(h.ImprovementAreas, AreaDiversify); got != tt.wantDiversify {
					t.Errorf("AreaDiversify listed = %v, want %v", got, tt.wantDiversify)
				}

				food := strings.Contains(strings.Join(Highlights(res, nil), "\n"), "Food & Dining takes")
				if food != tt.wantFoodLine {
					t.Errorf("food highlight present = %v, want %v", food, tt.wantFoodLine)
				}
			})
		}
	})
}

func TestScore_Bounds(t *testing.T) {
	cases := [][]domain.Transaction{nil, healthyMonth()}
	for i := 1; i <= 31; i++ {
		cases = append(cases, []domain.Transaction{
			tx(domain.KindIncome, int64(i*100), domain.CategorySalary, 1, ""),
			tx(domain.KindExpense, int64(i*37), domain.CategoryFoodDining, i, ""),
			tx(domain.KindExpense, 500, domain.CategoryShopping, 32-i, ""),
		})
	}
	for _, rows := range cases {
		h := Score(Summarize(january, rows))
		if h.Score < 0 || h.Score > 100 || h.Savings > 40 || h.Concentration > 30 || h.Regularity > 30 {
			t.Errorf("Score() out of bounds: %+v", h)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[int]string{100: StatusExcellent, 80: StatusExcellent, 79: StatusGood, 60: StatusGood, 59: StatusFair, 40: StatusFair, 39: StatusPoor, 0: StatusPoor}
	for score, want := range tests {
		if got := statusFor(score); got != want {
			t.Errorf("statusFor(%d) = %q, want %q", score, got, want)
		}
	}
}

func TestHighlights(t *testing.T) {
	t.Run("surplus", func(t *testing.T) {
		got := Highlights(Summarize(january, healthyMonth()), nil)
		if len(got) == 0 || got[0] != "You saved ₹15,000.00 this period, 25.0% of your income." {
			t.Errorf("Highlights() = %q", got)
		}
	})

	t.Run("deficit with food and transport flags", func(t *testing.T) {
		rows := []domain.Transaction{
			tx(domain.KindIncome, 100, domain.CategorySalary, 1, ""),
			tx(domain.KindExpense, 450, domain.CategoryFoodDining, 2, ""),
			tx(domain.KindExpense, 350, domain.CategoryTransportation, 3, ""),
			tx(domain.KindExpense, 200, domain.CategoryShopping, 4, ""),
		}
		got := Highlights(Summarize(january, rows), nil)
		want := []string{
			"You overspent by ₹900.00 this period; expenses exceeded income.",
			"Food & Dining takes 45.0% of your spending. Cooking at home more often could help.",
			"Transportation takes 35.0% of your spending. Consider public transport or pooling rides.",
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Highlights() =\n%q\nwant\n%q", got, want)
		}
	})

	t.Run("upi share and high activity", func(t *testing.T) {
		var rows []domain.Transaction
		for i := 1; i <= 21; i++ {
			method := "Google Pay UPI"
			if i > 18 {
				method = "Cash"
			}
			rows = append(rows, tx(domain.KindExpense, 10, domain.CategoryShopping, i, method))
		}
		got := strings.Join(Highlights(Summarize(january, rows), nil), "\n")
		if !strings.Contains(got, "85.7% of your transactions were paid by UPI.") {
			t.Errorf("missing UPI line in %q", got)
		}
		if !strings.Contains(got, "High activity: 21 transactions") {
			t.Errorf("missing activity line in %q", got)
		}
	})

	t.Run("empty period has no lines", func(t *testing.T) {
		if got := Highlights(Summarize(january, nil), nil); len(got) != 0 {
			t.Errorf("Highlights() = %q, want none", got)
		}
	})

	t.Run("comparison line", func(t *testing.T) {
		cur := Summarize(january, []domain.Transaction{tx(domain.KindExpense, 150, domain.CategoryShopping, 2, "")})
		prev := Summarize(january, []domain.Transaction{tx(domain.KindExpense, 100, domain.CategoryShopping, 2, "")})
		got := Highlights(cur, &prev)
		if last := got[len(got)-1]; last != "Spending is up 50.0% compared with the previous period." {
			t.Errorf("last line = %q", last)
		}
	})
}

type mockSession struct {
	ListTransactionsFunc func(ctx context.Context, f store.Filter) ([]domain.Transaction, error)
}

func (m *mockSession) InsertTransaction(context.Context, *domain.Transaction) error { return nil }
func (m *mockSession) ListTransactions(ctx context.Context, f store.Filter) ([]domain.Transaction, error) {
	return m.ListTransactionsFunc(ctx, f)
}
func (m *mockSession) FindCategoryByName(context.Context, string) (domain.Category, error) {
	return domain.Category{}, nil
}
func (m *mockSession) ListCategories(context.Context) ([]domain.Category, error) { return nil, nil }
func (m *mockSession) Release()                                                  {}

func TestAggregate(t *testing.T) {
	t.Run("scopes the query and is repeatable", func(t *testing.T) {
		sess := &mockSession{ListTransactionsFunc: func(_ context.Context, f store.Filter) ([]domain.Transaction, error) {
			if f.UserID != "u1" || *f.From != january.Start || *f.To != january.End || f.Kind != "" {
				t.Errorf("unexpected filter %+v", f)
			}
			return healthyMonth(), nil
		}}
		a, err := Aggregate(context.Background(), sess, "u1", january)
		if err != nil {
			t.Fatal(err)
		}
		b, _ := Aggregate(context.Background(), sess, "u1", january)
		if !reflect.DeepEqual(a, b) {
			t.Error("Aggregate() is not repeatable")
		}
	})

	t.Run("database failure is a dependency error", func(t *testing.T) {
		sess := &mockSession{ListTransactionsFunc: func(context.Context, store.Filter) ([]domain.Transaction, error) {
			return nil, errors.New("connection refused")
		}}
		_, err := Aggregate(context.Background(), sess, "u1", january)
		var dep *domain.DependencyError
		if !errors.As(err, &dep) {
			t.Errorf("Aggregate() error = %v, want DependencyError", err)
		}
	})
}

type mockGenerator struct {
	GenerateFunc func(ctx context.Context, req llm.Request) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	return m.GenerateFunc(ctx, req)
}

func TestAdvisor_Recommend(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
		want   []string
	}{
		{
			name:   "json array",
			output: "```json\n[\"Cut dining out\", \"Automate savings\", \"Use a budget app\", \"Cancel unused OTT\"]\n```",
			want:   []string{"Cut dining out", "Automate savings", "Use a budget app", "Cancel unused OTT"},
		},
		{
			name:   "bulleted lines",
			output: "- Cut dining out\n2. Automate savings\n* Use a budget app",
			want:   []string{"Cut dining out", "Automate savings", "Use a budget app"},
		},
		{
			name:   "too many are truncated",
			output: `["a","b","c","d","e","f","g"]`,
			want:   []string{"a", "b", "c", "d", "e"},
		},
		{
			name:   "too few are padded",
			output: `["Cut dining out"]`,
			want:   []string{"Cut dining out", FallbackRecommendations[0], FallbackRecommendations[1]},
		},
		{
			name:   "empty output",
			output: "[]",
			want:   FallbackRecommendations,
		},
		{
			name: "generator error",
			err:  errors.New("quota exceeded"),
			want: FallbackRecommendations,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			gen := &mockGenerator{GenerateFunc: func(_ context.Context, req llm.Request) (string, error) {
				if !strings.Contains(req.Prompt, "Current period") {
					t.Errorf("prompt missing summary: %q", req.Prompt)
				}
				return tt.output, tt.err
			}}
			got := NewAdvisor(gen, zerolog.New(&buf)).Recommend(context.Background(), Summarize(january, healthyMonth()), nil)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Recommend() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdvisor_DisabledUsesFallback(t *testing.T) {
	got := NewAdvisor(nil, zerolog.Nop()).Recommend(context.Background(), Summarize(january, nil), nil)
	if !reflect.DeepEqual(got, FallbackRecommendations) {
		t.Errorf("Recommend() = %q", got)
	}
}

func TestRenderSummary(t *testing.T) {
	cur := Summarize(january, healthyMonth())
	prev := Summarize(january, nil)
	text := RenderSummary(cur, &prev)
	for _, want := range []string{"Current period (2025-01-01..2025-01-31)", "Total income: ₹60,000.00", "Rent & Housing: ₹15,750.00 (35.0%, 1 transactions)", "Previous period"} {
		if !strings.Contains(text, want) {
			t.Errorf("RenderSummary() missing %q in:\n%s", want, text)
		}
	}
}
