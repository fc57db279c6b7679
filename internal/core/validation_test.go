package core

import (
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func validInput() TransactionInput {
	return TransactionInput{
		Type:        "expense",
		Amount:      "12.345",
		Description: "  Weekly groceries ",
		Category:    "  fOOD ",
	}
}

func TestValidateTransaction_Valid(t *testing.T) {
	d, err := ValidateTransaction(validInput(), fixedNow)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Type != Expense {
		t.Errorf("Type = %q", d.Type)
	}
	if d.Amount.Cents != 1235 {
		t.Errorf("Amount = %d, want 1235", d.Amount.Cents)
	}
	if d.Description != "Weekly groceries" {
		t.Errorf("Description = %q", d.Description)
	}
	if d.Category != "Food" {
		t.Errorf("Category = %q, want Food", d.Category)
	}
	if !d.Date.Equal(fixedNow) {
		t.Errorf("Date = %v, want default %v", d.Date, fixedNow)
	}
}

func TestValidateTransaction_Date(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
		ok   bool
	}{
		{"date only", "2024-02-29", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), true},
		{"rfc3339", "2024-06-01T10:20:30Z", time.Date(2024, 6, 1, 10, 20, 30, 0, time.UTC), true},
		{"offset", "2024-06-01T10:20:30+02:00", time.Date(2024, 6, 1, 8, 20, 30, 0, time.UTC), true},
		{"millis", "2024-06-01T10:20:30.123Z", time.Date(2024, 6, 1, 10, 20, 30, 123e6, time.UTC), true},
		{"no zone", "2024-06-01T10:20:30", time.Date(2024, 6, 1, 10, 20, 30, 0, time.UTC), true},
		{"garbage", "yesterday", time.Time{}, false},
		{"bad month", "2024-13-01", time.Time{}, false},
		{"slashes", "2024/01/01", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			in.Date = tt.in
			d, err := ValidateTransaction(in, fixedNow)
			if !tt.ok {
				ve, ok := AsValidationError(err)
				if !ok || len(ve.Fields) != 1 || ve.Fields[0].Field != "date" {
					t.Fatalf("expected single date violation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !d.Date.Equal(tt.want) {
				t.Fatalf("Date = %v, want %v", d.Date, tt.want)
			}
		})
	}
}

func TestValidateTransaction_CollectsAllViolations(t *testing.T) {
	in := TransactionInput{
		Type:        "transfer",
		Amount:      "0",
		Description: "   ",
		Category:    strings.Repeat("x", MaxCategoryLength+1),
		Date:        "not-a-date",
	}
	_, err := ValidateTransaction(in, fixedNow)
	ve, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	want := []string{"type", "amount", "description", "category", "date"}
	if len(ve.Fields) != len(want) {
		t.Fatalf("got %d violations, want %d: %v", len(ve.Fields), len(want), ve.Fields)
	}
	for i, f := range want {
		if ve.Fields[i].Field != f {
			t.Errorf("violation %d field = %q, want %q", i, ve.Fields[i].Field, f)
		}
	}
}

func TestValidateTransaction_MissingType(t *testing.T) {
	in := validInput()
	in.Type = ""
	_, err := ValidateTransaction(in, fixedNow)
	ve, ok := AsValidationError(err)
	if !ok || ve.Fields[0].Field != "type" || ve.Fields[0].Message != MsgInvalidType {
		t.Fatalf("expected type violation, got %v", err)
	}
}

func TestValidateTransaction_Lengths(t *testing.T) {
	in := validInput()
	in.Description = strings.Repeat("é", MaxDescriptionLength)
	in.Category = strings.Repeat("ü", MaxCategoryLength)
	if _, err := ValidateTransaction(in, fixedNow); err != nil {
		t.Fatalf("max lengths counted in characters should pass, got %v", err)
	}

	in.Description = strings.Repeat("a", MaxDescriptionLength+1)
	_, err := ValidateTransaction(in, fixedNow)
	ve, ok := AsValidationError(err)
	if !ok || ve.Fields[0].Field != "description" {
		t.Fatalf("expected description violation, got %v", err)
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]string{
		"food":          "Food",
		"FOOD":          "Food",
		"  eating OUT ": "Eating out",
		"élan":          "Élan",
		"":              "",
		"a":             "A",
	}
	for in, want := range cases {
		if got := NormalizeCategory(in); got != want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMonthlyTrendsAdd(t *testing.T) {
	m := MonthlyTrends{}
	m.Add("2025-01", Income, Money{Cents: 1000})
	m.Add("2025-01", Expense, Money{Cents: 250})
	m.Add("2025-01", Expense, Money{Cents: 250})
	got := m["2025-01"]
	if got.Income.Cents != 1000 || got.Expense.Cents != 500 {
		t.Fatalf("unexpected trend %+v", got)
	}
	if MonthKey(time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC)) != "2025-01" {
		t.Fatalf("unexpected month key")
	}
}
