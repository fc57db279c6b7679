package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxDescriptionLength = 255
	MaxCategoryLength    = 50
)

// Validation messages returned to clients.
const (
	MsgInvalidType        = "Type must be either income or expense"
	MsgInvalidAmount      = "Amount must be a positive number (minimum 0.01)"
	MsgAmountTooLarge     = "Amount is too large"
	MsgInvalidDescription = "Description is required and must be at most 255 characters"
	MsgInvalidCategory    = "Category is required and must be at most 50 characters"
	MsgInvalidDate        = "Date must be a valid ISO 8601 date"
)

// TransactionInput is an unvalidated payload as received from a client.
// An empty Date means the field was omitted.
type TransactionInput struct {
	Type        string
	Amount      string
	Description string
	Category    string
	Date        string
}

// dateLayouts lists the accepted ISO 8601 forms, most specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate parses an ISO 8601 date or date-time. Values without a zone are
// taken as UTC. dateOnly reports whether s carried no time component.
func ParseDate(s string) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if parsed, perr := time.Parse(layout, s); perr == nil {
			return parsed.UTC(), layout == "2006-01-02", nil
		}
	}
	return time.Time{}, false, errors.New("invalid date")
}

// ValidateTransaction checks every field of in independently and returns the
// normalized draft, or a *ValidationError listing all violations. A missing
// date defaults to now.
func ValidateTransaction(in TransactionInput, now time.Time) (Draft, error) {
	var (
		draft Draft
		verr  ValidationError
	)

	typ := TransactionType(strings.TrimSpace(in.Type))
	if !typ.IsValid() {
		verr.Add("type", MsgInvalidType, in.Type)
	}
	draft.Type = typ

	amount, err := ParseAmount(in.Amount)
	switch {
	case errors.Is(err, ErrAmountTooLarge):
		verr.Add("amount", MsgAmountTooLarge, in.Amount)
	case err != nil:
		verr.Add("amount", MsgInvalidAmount, in.Amount)
	}
	draft.Amount = amount

	desc := strings.TrimSpace(in.Description)
	if n := utf8.RuneCountInString(desc); n < 1 || n > MaxDescriptionLength {
		verr.Add("description", MsgInvalidDescription, "")
	}
	draft.Description = desc

	cat := strings.TrimSpace(in.Category)
	if n := utf8.RuneCountInString(cat); n < 1 || n > MaxCategoryLength {
		verr.Add("category", MsgInvalidCategory, in.Category)
	}
	draft.Category = NormalizeCategory(cat)

	draft.Date = now.UTC()
	if strings.TrimSpace(in.Date) != "" {
		d, _, err := ParseDate(in.Date)
		if err != nil {
			verr.Add("date", MsgInvalidDate, in.Date)
		} else {
			draft.Date = d
		}
	}

	if err := verr.Err(); err != nil {
		return Draft{}, err
	}
	return draft, nil
}
