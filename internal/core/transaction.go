package core

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	// Transaction is a single income or expense record as stored.
	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Date        time.Time       `json:"date"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt"`
	}

	// Draft holds the validated, normalized mutable fields of a transaction.
	Draft struct {
		Type        TransactionType
		Amount      Money
		Description string
		Category    string
		Date        time.Time
	}

	// TransactionFilter narrows List results. Zero values mean "no constraint".
	TransactionFilter struct {
		Type      TransactionType
		Category  string // case-insensitive substring
		StartDate *time.Time
		EndDate   *time.Time
	}
)

// IsValid reports whether t is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

func (t TransactionType) String() string {
	return string(t)
}

// NormalizeCategory trims s and upper-cases the first character, lower-casing the rest.
func NormalizeCategory(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Apply copies the draft's mutable fields onto t.
func (d Draft) Apply(t *Transaction) {
	t.Type = d.Type
	t.Amount = d.Amount
	t.Description = d.Description
	t.Category = d.Category
	t.Date = d.Date
}

// ParseID returns the canonical form of a transaction id, or ErrInvalidID
// when id is not a UUID.
func ParseID(id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", ErrInvalidID
	}
	return u.String(), nil
}
