package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

type (
	// Kind tells whether a transaction or category is income or expense.
	Kind string

	// Frequency is the repetition period of a recurring transaction.
	Frequency string

	Transaction struct {
		ID                  string    `json:"id"`
		Amount              Money     `json:"amount"`
		Kind                Kind      `json:"kind"`
		Description         string    `json:"description"`
		OccurredOn          Date      `json:"occurred_on"`
		CategoryID          string    `json:"category_id"`
		IsRecurring         bool      `json:"is_recurring"`
		RecurrenceFrequency Frequency `json:"recurrence_frequency,omitempty"`
		OwnerID             string    `json:"owner_id"`
		CreatedAt           time.Time `json:"created_at"`
		UpdatedAt           time.Time `json:"updated_at"`
	}

	Category struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Color     string    `json:"color"`
		Icon      string    `json:"icon,omitempty"`
		Kind      Kind      `json:"kind"`
		IsDefault bool      `json:"is_default"`
		OwnerID   string    `json:"owner_id"`
		CreatedAt time.Time `json:"created_at"`
	}
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidKind          = errors.New("invalid kind")
	ErrInvalidDate          = errors.New("invalid date")
	ErrDescriptionTooShort  = errors.New("description must have at least 3 characters")
	ErrDescriptionTooLong   = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory        = errors.New("empty category")
	ErrInvalidFrequency     = errors.New("invalid recurrence frequency")
	ErrUnexpectedFrequency  = errors.New("recurrence frequency set on a non recurring transaction")
	ErrEmptyOwner           = errors.New("empty owner")
	ErrCategoryNameTooShort = errors.New("category name must have at least 2 characters")
	ErrCategoryNameTooLong  = errors.New("category name too long (max 50 characters)")
	ErrInvalidColor         = errors.New("invalid color, expected #RGB or #RRGGBB")
	ErrDefaultCategory      = errors.New("default categories cannot be changed")
	ErrCategoryKindMismatch = errors.New("category kind does not match transaction kind")
	ErrEmptyUpdate          = errors.New("update has no fields")
	ErrNotFound             = errors.New("not found")
)

var colorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

const (
	minDescriptionLen  = 3
	maxDescriptionLen  = 200
	minCategoryNameLen = 2
	maxCategoryNameLen = 50
)

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

func (k Kind) Validate() error {
	switch k {
	case KindIncome, KindExpense:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (k Kind) String() string {
	return string(k)
}

// ParseFrequency accepts "weekly", "monthly" or "yearly" in any case.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

func (f Frequency) Validate() error {
	switch f {
	case Weekly, Monthly, Yearly:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if err := t.OccurredOn.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if t.IsRecurring {
		if err := t.RecurrenceFrequency.Validate(); err != nil {
			return err
		}
	} else if t.RecurrenceFrequency != "" {
		return ErrUnexpectedFrequency
	}
	if strings.TrimSpace(t.OwnerID) == "" {
		return ErrEmptyOwner
	}
	return nil
}

func (c Category) Validate() error {
	if err := validateCategoryName(c.Name); err != nil {
		return err
	}
	if err := validateColor(c.Color); err != nil {
		return err
	}
	if err := c.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.OwnerID) == "" {
		return ErrEmptyOwner
	}
	return nil
}

// Accepts reports whether a transaction of kind k may be filed under c.
func (c Category) Accepts(k Kind) bool {
	return c.Kind == k
}

func validateDescription(s string) error {
	n := len([]rune(strings.TrimSpace(s)))
	if n < minDescriptionLen {
		return ErrDescriptionTooShort
	}
	if n > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

func validateCategoryName(s string) error {
	n := len([]rune(strings.TrimSpace(s)))
	if n < minCategoryNameLen {
		return ErrCategoryNameTooShort
	}
	if n > maxCategoryNameLen {
		return ErrCategoryNameTooLong
	}
	return nil
}

func validateColor(s string) error {
	if !colorPattern.MatchString(s) {
		return ErrInvalidColor
	}
	return nil
}
