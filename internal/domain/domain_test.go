package domain

import (
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func TestTransaction_Validate(t *testing.T) {
	valid := func() Transaction {
		return Transaction{
			Amount:     decimal.NewFromInt(500),
			Kind:       KindExpense,
			Date:       civil.Date{Year: 2024, Month: 3, Day: 14},
			CategoryID: "food-dining",
		}
	}
	badConfidence := 1.5

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{name: "valid", mutate: func(*Transaction) {}},
		{name: "zero amount", mutate: func(tx *Transaction) { tx.Amount = decimal.Zero }, wantErr: ErrInvalidAmount},
		{name: "negative amount", mutate: func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-3) }, wantErr: ErrInvalidAmount},
		{name: "bad kind", mutate: func(tx *Transaction) { tx.Kind = "transfer" }, wantErr: ErrInvalidKind},
		{name: "bad date", mutate: func(tx *Transaction) { tx.Date = civil.Date{Year: 2024, Month: 2, Day: 30} }, wantErr: ErrInvalidDate},
		{name: "missing category", mutate: func(tx *Transaction) { tx.CategoryID = "" }},
		{name: "confidence out of range", mutate: func(tx *Transaction) { tx.Confidence = &badConfidence }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid()
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.name == "valid" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want wrapping %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"expense", KindExpense, false},
		{" INCOME ", KindIncome, false},
		{"transfer", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalCategory(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Food & Dining", "Food & Dining", true},
		{"  food & dining ", "Food & Dining", true},
		{"TRANSPORTATION", "Transportation", true},
		{"Crypto", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := CanonicalCategory(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("CanonicalCategory(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFormatINR(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "₹0.00"},
		{"500", "₹500.00"},
		{"1500.5", "₹1,500.50"},
		{"123456.5", "₹1,23,456.50"},
		{"12345678", "₹1,23,45,678.00"},
		{"-15000", "-₹15,000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := FormatINR(decimal.RequireFromString(tt.in))
			if got != tt.want {
				t.Errorf("FormatINR(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestErrorTaxonomy(t *testing.T) {
	rangeErr := &InvalidRangeError{
		Start: civil.Date{Year: 2024, Month: 1, Day: 20},
		End:   civil.Date{Year: 2024, Month: 1, Day: 10},
	}
	var ve *ValidationError
	if !errors.As(rangeErr, &ve) {
		t.Errorf("InvalidRangeError should be usable as ValidationError")
	}

	base := errors.New("connection refused")
	dep := Dependency("database", base)
	var de *DependencyError
	if !errors.As(dep, &de) || !errors.Is(dep, base) {
		t.Errorf("Dependency() = %v, want DependencyError wrapping base", dep)
	}

	nf := &NotFoundError{Entity: "category", Key: "Crypto"}
	if got := Dependency("database", nf); got != nf {
		t.Errorf("Dependency() should pass NotFoundError through, got %v", got)
	}
	if Dependency("database", nil) != nil {
		t.Errorf("Dependency(nil) should be nil")
	}
}

func TestShortDescription(t *testing.T) {
	long := strings.Repeat("खाना", 30) // 120 runes, 360 bytes

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "trims whitespace", in: "  lunch at cafe \n", want: "lunch at cafe"},
		{name: "exact limit kept", in: strings.Repeat("a", MaxDescriptionLen), want: strings.Repeat("a", MaxDescriptionLen)},
		{name: "cut on rune boundary", in: long, want: string([]rune(long)[:MaxDescriptionLen])},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortDescription(tt.in); got != tt.want {
				t.Errorf("ShortDescription() = %q, want %q", got, tt.want)
			}
		})
	}
}
