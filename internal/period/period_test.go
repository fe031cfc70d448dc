package period

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/expense-tracker/internal/domain"
)

func date(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func ptr(d civil.Date) *civil.Date { return &d }

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		kind       Kind
		start, end *civil.Date
		today      civil.Date
		want       Window
	}{
		{
			name:  "weekly from a wednesday",
			kind:  Weekly,
			today: date(2024, 3, 13),
			want: Window{Kind: Weekly,
				Current:  Range{date(2024, 3, 10), date(2024, 3, 16)},
				Previous: Range{date(2024, 3, 3), date(2024, 3, 9)}},
		},
		{
			name:  "weekly on a sunday",
			kind:  Weekly,
			today: date(2024, 3, 10),
			want: Window{Kind: Weekly,
				Current:  Range{date(2024, 3, 10), date(2024, 3, 16)},
				Previous: Range{date(2024, 3, 3), date(2024, 3, 9)}},
		},
		{
			name:  "weekly across a year boundary",
			kind:  Weekly,
			today: date(2025, 1, 2),
			want: Window{Kind: Weekly,
				Current:  Range{date(2024, 12, 29), date(2025, 1, 4)},
				Previous: Range{date(2024, 12, 22), date(2024, 12, 28)}},
		},
		{
			name:  "monthly in a leap february",
			kind:  Monthly,
			today: date(2024, 2, 15),
			want: Window{Kind: Monthly,
				Current:  Range{date(2024, 2, 1), date(2024, 2, 29)},
				Previous: Range{date(2024, 1, 1), date(2024, 1, 31)}},
		},
		{
			name:  "monthly in january",
			kind:  Monthly,
			today: date(2024, 1, 31),
			want: Window{Kind: Monthly,
				Current:  Range{date(2024, 1, 1), date(2024, 1, 31)},
				Previous: Range{date(2023, 12, 1), date(2023, 12, 31)}},
		},
		{
			name:  "yearly",
			kind:  Yearly,
			today: date(2024, 7, 4),
			want: Window{Kind: Yearly,
				Current:  Range{date(2024, 1, 1), date(2024, 12, 31)},
				Previous: Range{date(2023, 1, 1), date(2023, 12, 31)}},
		},
		{
			name:  "custom eleven days",
			kind:  Custom,
			start: ptr(date(2024, 1, 10)),
			end:   ptr(date(2024, 1, 20)),
			today: date(2024, 5, 1),
			want: Window{Kind: Custom,
				Current:  Range{date(2024, 1, 10), date(2024, 1, 20)},
				Previous: Range{date(2023, 12, 30), date(2024, 1, 9)}},
		},
		{
			name:  "custom defaults to today",
			kind:  Custom,
			today: date(2024, 5, 1),
			want: Window{Kind: Custom,
				Current:  Range{date(2024, 5, 1), date(2024, 5, 1)},
				Previous: Range{date(2024, 4, 30), date(2024, 4, 30)}},
		},
		{
			name:  "custom with only a start",
			kind:  Custom,
			start: ptr(date(2024, 4, 29)),
			today: date(2024, 5, 1),
			want: Window{Kind: Custom,
				Current:  Range{date(2024, 4, 29), date(2024, 5, 1)},
				Previous: Range{date(2024, 4, 26), date(2024, 4, 28)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.kind, tt.start, tt.end, tt.today)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolve_InvalidRange(t *testing.T) {
	_, err := Resolve(Custom, ptr(date(2024, 1, 20)), ptr(date(2024, 1, 10)), date(2024, 5, 1))
	var rangeErr *domain.InvalidRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("Resolve() error = %v, want InvalidRangeError", err)
	}
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("InvalidRangeError should classify as ValidationError")
	}
}

func TestResolve_UnknownKind(t *testing.T) {
	if _, err := Resolve("quarterly", nil, nil, date(2024, 5, 1)); err == nil {
		t.Fatal("Resolve() with unknown kind should fail")
	}
}

// Non-custom windows are adjacent, disjoint and of equal length.
func TestResolve_AdjacentEqualWindows(t *testing.T) {
	start := date(2023, 1, 1)
	for _, kind := range []Kind{Weekly, Yearly} {
		for i := 0; i < 800; i += 13 {
			today := start.AddDays(i)
			w, err := Resolve(kind, nil, nil, today)
			if err != nil {
				t.Fatalf("Resolve(%s, %s) error = %v", kind, today, err)
			}
			if !w.Current.Contains(today) {
				t.Errorf("%s %s: current %s does not contain today", kind, today, w.Current)
			}
			if w.Previous.End.AddDays(1) != w.Current.Start {
				t.Errorf("%s %s: previous %s does not end the day before %s", kind, today, w.Previous, w.Current)
			}
			if kind == Weekly && (w.Current.Days() != 7 || w.Previous.Days() != 7) {
				t.Errorf("%s %s: want 7-day windows, got %d and %d", kind, today, w.Current.Days(), w.Previous.Days())
			}
		}
	}
	for i := 0; i < 800; i += 13 {
		today := start.AddDays(i)
		w, _ := Resolve(Monthly, nil, nil, today)
		if w.Previous.End.AddDays(1) != w.Current.Start {
			t.Errorf("monthly %s: previous %s does not end the day before %s", today, w.Previous, w.Current)
		}
		if w.Current.Start.Day != 1 || w.Previous.Start.Day != 1 {
			t.Errorf("monthly %s: windows should start on the first", today)
		}
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", Monthly, false},
		{"Weekly", Weekly, false},
		{"custom", Custom, false},
		{"daily", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseKind(%q) = (%q, %v), want (%q, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}
