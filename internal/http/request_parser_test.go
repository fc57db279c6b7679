package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"ledger/internal/core"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"type": "expense", "description": "Lunch", "amount": 25.505, "category": "food"}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}

	if typ := parser.Get("type"); typ != "expense" {
		t.Errorf("Get('type') = %q, want 'expense'", typ)
	}

	// The literal text must survive, not a float64 rendering of it.
	if amount := parser.Get("amount"); amount != "25.505" {
		t.Errorf("Get('amount') = %q, want '25.505'", amount)
	}

	in := parser.TransactionInput()
	if in.Description != "Lunch" || in.Category != "food" || in.Date != "" {
		t.Errorf("TransactionInput() = %+v", in)
	}
}

func TestRequestBodyParser_JSONWithCharset(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"amount": "10"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true with a charset parameter")
	}
	if amount := parser.Get("amount"); amount != "10" {
		t.Errorf("Get('amount') = %q, want '10'", amount)
	}
}

func TestRequestBodyParser_NonStringValues(t *testing.T) {
	body := `{"type": null, "description": {"a": 1}, "category": ["x"], "amount": true}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	for _, key := range []string{"type", "description", "category"} {
		if v := parser.Get(key); v != "" {
			t.Errorf("Get(%q) = %q, want empty string", key, v)
		}
	}
	if v := parser.Get("amount"); v != "true" {
		t.Errorf("Get('amount') = %q, want 'true'", v)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "type=income&description=Monthly+salary&amount=2500&category=salary"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}

	if desc := parser.Get("description"); desc != "Monthly salary" {
		t.Errorf("Get('description') = %q, want 'Monthly salary'", desc)
	}

	if amount := parser.Get("amount"); amount != "2500" {
		t.Errorf("Get('amount') = %q, want '2500'", amount)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"truncated", `{"type": "expense"`},
		{"trailing garbage", `{"type": "expense"} {"type": "income"}`},
		{"array", `[1, 2, 3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			err := NewRequestBodyParser(req).Parse()
			var reqErr *requestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("Parse() error = %v, want *requestError", err)
			}
			if reqErr.message != "Invalid JSON body" {
				t.Errorf("message = %q, want 'Invalid JSON body'", reqErr.message)
			}
		})
	}
}

func TestRequestBodyParser_StripsControlCharacters(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"description": "Cof\u0000fee\u0007 "}`))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := parser.Get("description"); got != "Coffee" {
		t.Errorf("Get('description') = %q, want 'Coffee'", got)
	}
}

func TestParseListQuery(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			t.Fatalf("bad fixture %q: %v", s, err)
		}
		return d
	}

	tests := []struct {
		name       string
		query      url.Values
		wantLimit  int
		wantOffset int
		check      func(t *testing.T, f core.TransactionFilter)
	}{
		{
			name:      "defaults",
			query:     url.Values{},
			wantLimit: DefaultLimit,
			check: func(t *testing.T, f core.TransactionFilter) {
				if f.Type != "" || f.Category != "" || f.StartDate != nil || f.EndDate != nil {
					t.Errorf("filter = %+v, want empty", f)
				}
			},
		},
		{
			name:       "paging",
			query:      url.Values{"limit": {"10"}, "offset": {"20"}},
			wantLimit:  10,
			wantOffset: 20,
		},
		{
			name:      "limit capped",
			query:     url.Values{"limit": {"1000"}},
			wantLimit: MaxLimit,
		},
		{
			name:      "type and category",
			query:     url.Values{"type": {"income"}, "category": {"  sal  "}},
			wantLimit: DefaultLimit,
			check: func(t *testing.T, f core.TransactionFilter) {
				if f.Type != core.Income {
					t.Errorf("Type = %q, want income", f.Type)
				}
				if f.Category != "sal" {
					t.Errorf("Category = %q, want 'sal'", f.Category)
				}
			},
		},
		{
			name:      "date-only end covers the whole day",
			query:     url.Values{"startDate": {"2024-01-01"}, "endDate": {"2024-01-31"}},
			wantLimit: DefaultLimit,
			check: func(t *testing.T, f core.TransactionFilter) {
				if !f.StartDate.Equal(day("2024-01-01T00:00:00Z")) {
					t.Errorf("StartDate = %v", f.StartDate)
				}
				if !f.EndDate.Equal(day("2024-01-31T23:59:59.999Z")) {
					t.Errorf("EndDate = %v", f.EndDate)
				}
			},
		},
		{
			name:      "end with time is exact",
			query:     url.Values{"endDate": {"2024-01-31T12:00:00Z"}},
			wantLimit: DefaultLimit,
			check: func(t *testing.T, f core.TransactionFilter) {
				if !f.EndDate.Equal(day("2024-01-31T12:00:00Z")) {
					t.Errorf("EndDate = %v", f.EndDate)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseListQuery(tt.query)
			if err != nil {
				t.Fatalf("ParseListQuery() error = %v", err)
			}
			if q.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", q.Limit, tt.wantLimit)
			}
			if q.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", q.Offset, tt.wantOffset)
			}
			if tt.check != nil {
				tt.check(t, q.Filter)
			}
		})
	}
}

func TestParseListQuery_Errors(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		wantField string
	}{
		{"invalid type", url.Values{"type": {"transfer"}}, "type"},
		{"invalid start date", url.Values{"startDate": {"yesterday"}}, "startDate"},
		{"invalid end date", url.Values{"endDate": {"2024-13-45"}}, "endDate"},
		{"start after end", url.Values{"startDate": {"2024-02-01"}, "endDate": {"2024-01-01"}}, "startDate"},
		{"zero limit", url.Values{"limit": {"0"}}, "limit"},
		{"non-numeric limit", url.Values{"limit": {"ten"}}, "limit"},
		{"negative offset", url.Values{"offset": {"-1"}}, "offset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseListQuery(tt.query)
			ve, ok := core.AsValidationError(err)
			if !ok {
				t.Fatalf("ParseListQuery() error = %v, want *core.ValidationError", err)
			}
			if len(ve.Fields) != 1 || ve.Fields[0].Field != tt.wantField {
				t.Errorf("Fields = %+v, want one error on %q", ve.Fields, tt.wantField)
			}
		})
	}
}

func TestParseListQuery_CollectsAllErrors(t *testing.T) {
	_, err := ParseListQuery(url.Values{"type": {"x"}, "limit": {"-5"}, "offset": {"y"}})
	ve, ok := core.AsValidationError(err)
	if !ok {
		t.Fatalf("ParseListQuery() error = %v, want *core.ValidationError", err)
	}
	if len(ve.Fields) != 3 {
		t.Errorf("got %d field errors, want 3: %+v", len(ve.Fields), ve.Fields)
	}
}
