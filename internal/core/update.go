package core

// TransactionUpdate is a partial edit of a Transaction. Nil fields are left
// untouched.
type TransactionUpdate struct {
	Amount              *Money     `json:"amount,omitempty"`
	Kind                *Kind      `json:"kind,omitempty"`
	Description         *string    `json:"description,omitempty"`
	OccurredOn          *Date      `json:"occurred_on,omitempty"`
	CategoryID          *string    `json:"category_id,omitempty"`
	IsRecurring         *bool      `json:"is_recurring,omitempty"`
	RecurrenceFrequency *Frequency `json:"recurrence_frequency,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u TransactionUpdate) IsEmpty() bool {
	return u.Amount == nil && u.Kind == nil && u.Description == nil &&
		u.OccurredOn == nil && u.CategoryID == nil && u.IsRecurring == nil &&
		u.RecurrenceFrequency == nil
}

// Validate checks the fields that are present. The merged transaction is
// validated again by the caller.
func (u TransactionUpdate) Validate() error {
	if u.IsEmpty() {
		return ErrEmptyUpdate
	}
	if u.Amount != nil {
		if err := u.Amount.Validate(); err != nil {
			return err
		}
	}
	if u.Kind != nil {
		if err := u.Kind.Validate(); err != nil {
			return err
		}
	}
	if u.Description != nil {
		if err := validateDescription(*u.Description); err != nil {
			return err
		}
	}
	if u.OccurredOn != nil {
		if err := u.OccurredOn.Validate(); err != nil {
			return err
		}
	}
	if u.CategoryID != nil && *u.CategoryID == "" {
		return ErrEmptyCategory
	}
	if u.RecurrenceFrequency != nil && *u.RecurrenceFrequency != "" {
		if err := u.RecurrenceFrequency.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns t with the update merged in. Turning recurrence off clears
// the frequency.
func (u TransactionUpdate) Apply(t Transaction) Transaction {
	if u.Amount != nil {
		t.Amount = *u.Amount
	}
	if u.Kind != nil {
		t.Kind = *u.Kind
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.OccurredOn != nil {
		t.OccurredOn = *u.OccurredOn
	}
	if u.CategoryID != nil {
		t.CategoryID = *u.CategoryID
	}
	if u.IsRecurring != nil {
		t.IsRecurring = *u.IsRecurring
	}
	if u.RecurrenceFrequency != nil {
		t.RecurrenceFrequency = *u.RecurrenceFrequency
	}
	if !t.IsRecurring {
		t.RecurrenceFrequency = ""
	}
	return t
}

// CategoryUpdate is a partial edit of a Category.
type CategoryUpdate struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`
	Kind  *Kind   `json:"kind,omitempty"`
}

func (u CategoryUpdate) IsEmpty() bool {
	return u.Name == nil && u.Color == nil && u.Icon == nil && u.Kind == nil
}

func (u CategoryUpdate) Validate() error {
	if u.IsEmpty() {
		return ErrEmptyUpdate
	}
	if u.Name != nil {
		if err := validateCategoryName(*u.Name); err != nil {
			return err
		}
	}
	if u.Color != nil {
		if err := validateColor(*u.Color); err != nil {
			return err
		}
	}
	if u.Kind != nil {
		if err := u.Kind.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (u CategoryUpdate) Apply(c Category) Category {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Color != nil {
		c.Color = *u.Color
	}
	if u.Icon != nil {
		c.Icon = *u.Icon
	}
	if u.Kind != nil {
		c.Kind = *u.Kind
	}
	return c
}
