package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/expense-tracker/internal/app"
	"github.com/dvloznov/expense-tracker/internal/config"
	"github.com/dvloznov/expense-tracker/internal/domain"
	"github.com/dvloznov/expense-tracker/internal/logger"
	"github.com/dvloznov/expense-tracker/internal/tracker"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var run func(ctx context.Context, a *app.App, args []string) error
	switch os.Args[1] {
	case "add":
		run = runAdd
	case "view":
		run = runView
	case "insights":
		run = runInsights
	case "report":
		run = runReport
	case "report-all":
		run = runReportAll
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Invalid configuration")
	}
	log, err := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to create logger")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	if err := run(ctx, a, os.Args[2:]); err != nil {
		fail(log, err)
	}
}

func printUsage() {
	fmt.Println("Expense Tracker CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  add         Record an expense from free text")
	fmt.Println("  view        List recorded expenses")
	fmt.Println("  insights    Show financial insights for a period")
	fmt.Println("  report      Generate a PDF report for one user")
	fmt.Println("  report-all  Generate PDF reports for several users")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func fail(log zerolog.Logger, err error) {
	log.Error().Err(err).Msg("Command failed")
	os.Exit(1)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// dateFlag is an optional YYYY-MM-DD flag value.
type dateFlag struct{ d *civil.Date }

func (f *dateFlag) String() string {
	if f.d == nil {
		return ""
	}
	return f.d.String()
}

func (f *dateFlag) Set(s string) error {
	d, err := domain.ParseDate(s)
	if err != nil {
		return err
	}
	f.d = &d
	return nil
}

// amountFlag is an optional decimal flag value.
type amountFlag struct{ d *decimal.Decimal }

func (f *amountFlag) String() string {
	if f.d == nil {
		return ""
	}
	return f.d.String()
}

func (f *amountFlag) Set(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q", s)
	}
	f.d = &d
	return nil
}

func runAdd(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	user := fs.String("user", "", "User ID (required)")
	var amount amountFlag
	var date dateFlag
	fs.Var(&amount, "amount", "Amount override")
	fs.Var(&date, "date", "Date override (YYYY-MM-DD)")
	category := fs.String("category", "", "Category override")
	kind := fs.String("type", "", "expense or income")
	payment := fs.String("payment-method", "", "Payment method, e.g. UPI")
	merchant := fs.String("merchant", "", "Merchant override")
	location := fs.String("location", "", "Location")
	_ = fs.Parse(args)

	if *user == "" || (fs.NArg() == 0 && amount.d == nil) {
		return fmt.Errorf("usage: cli add -user ID [options] \"spent 250 on lunch\"")
	}

	ov := domain.Overrides{
		Amount:        amount.d,
		Date:          date.d,
		Category:      *category,
		PaymentMethod: *payment,
		Merchant:      *merchant,
		Location:      *location,
	}
	if *kind != "" {
		k, err := domain.ParseKind(*kind)
		if err != nil {
			return err
		}
		ov.Kind = k
	}

	res := a.Tracker.AddExpense(ctx, *user, strings.Join(fs.Args(), " "), ov)
	if err := printJSON(res); err != nil {
		return err
	}
	if !res.Success {
		return res.Err
	}
	return nil
}

func runView(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	user := fs.String("user", "", "User ID (required)")
	var from, to dateFlag
	var minAmount, maxAmount amountFlag
	fs.Var(&from, "from", "Start date (YYYY-MM-DD)")
	fs.Var(&to, "to", "End date (YYYY-MM-DD)")
	fs.Var(&minAmount, "min", "Minimum amount")
	fs.Var(&maxAmount, "max", "Maximum amount")
	category := fs.String("category", "", "Category name")
	kind := fs.String("type", "", "expense or income")
	payment := fs.String("payment-method", "", "Payment method")
	limit := fs.Int("limit", 0, "Maximum rows (default VIEW_LIMIT)")
	_ = fs.Parse(args)

	if *user == "" {
		return fmt.Errorf("usage: cli view -user ID [filters]")
	}

	vf := tracker.ViewFilters{
		From:          from.d,
		To:            to.d,
		Category:      *category,
		PaymentMethod: *payment,
		MinAmount:     minAmount.d,
		MaxAmount:     maxAmount.d,
		Limit:         *limit,
	}
	if *kind != "" {
		k, err := domain.ParseKind(*kind)
		if err != nil {
			return err
		}
		vf.Kind = k
	}

	res := a.Tracker.ViewExpenses(ctx, *user, vf)
	if err := printJSON(res); err != nil {
		return err
	}
	if !res.Success {
		return res.Err
	}
	return nil
}

func runInsights(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("insights", flag.ExitOnError)
	user := fs.String("user", "", "User ID (required)")
	kind := fs.String("type", "monthly", "weekly, monthly, yearly or custom")
	var start, end dateFlag
	fs.Var(&start, "start", "Custom period start (YYYY-MM-DD)")
	fs.Var(&end, "end", "Custom period end (YYYY-MM-DD)")
	comparison := fs.Bool("comparison", true, "Compare with the previous period")
	recommendations := fs.Bool("recommendations", true, "Ask for recommendations")
	_ = fs.Parse(args)

	if *user == "" {
		return fmt.Errorf("usage: cli insights -user ID [-type monthly]")
	}

	req := tracker.InsightsRequest{
		Type:                   *kind,
		Start:                  start.d,
		End:                    end.d,
		IncludeComparison:      *comparison,
		IncludeRecommendations: *recommendations,
	}
	res := a.Tracker.GetInsights(ctx, *user, req)
	if err := printJSON(res); err != nil {
		return err
	}
	if !res.Success {
		return res.Err
	}
	return nil
}

func runReport(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	user := fs.String("user", "", "User ID (required)")
	kind := fs.String("type", "monthly", "weekly, monthly or yearly")
	_ = fs.Parse(args)

	if *user == "" {
		return fmt.Errorf("usage: cli report -user ID [-type monthly]")
	}

	gen, err := a.Reports(ctx)
	if err != nil {
		return err
	}
	st, err := gen.Generate(ctx, *user, *kind)
	if err != nil {
		return err
	}
	fmt.Printf("Report for %s written to %s (health score %d)\n", st.UserID, st.Location, st.Score)
	return nil
}

func runReportAll(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("report-all", flag.ExitOnError)
	users := fs.String("users", "", "Comma-separated user IDs (required)")
	kind := fs.String("type", "monthly", "weekly, monthly or yearly")
	_ = fs.Parse(args)

	var ids []string
	for _, id := range strings.Split(*users, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("usage: cli report-all -users a,b,c [-type monthly]")
	}

	gen, err := a.Reports(ctx)
	if err != nil {
		return err
	}
	out, err := gen.GenerateAll(ctx, ids, *kind)
	if err != nil {
		return err
	}

	failed := 0
	for _, o := range out {
		if o.Err != nil {
			failed++
			fmt.Printf("%-20s FAILED  %v\n", o.UserID, o.Err)
			continue
		}
		fmt.Printf("%-20s %3d     %s\n", o.UserID, o.Score, o.Location)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d reports failed", failed, len(out))
	}
	return nil
}
