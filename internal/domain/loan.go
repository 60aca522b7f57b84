package domain

import "time"

// Loan lends a quantity of an inventory record to a borrower.
type Loan struct {
	Syncable
	InventoryID string     `json:"inventory_id"`
	BorrowerID  string     `json:"borrower_id"`
	LoanedAt    time.Time  `json:"loaned_at"`
	DueDate     *time.Time `json:"due_date"`
	ReturnedAt  *time.Time `json:"returned_at"`
	Notes       *string    `json:"notes"`
	Quantity    int        `json:"quantity"`
}

// Kind implements Entity.
func (l *Loan) Kind() EntityKind { return KindLoan }

// Apply copies every supplied field onto l. New loans default to a quantity
// of one, loaned at creation time.
func (l *Loan) Apply(f *LoanFields) {
	setValue(&l.InventoryID, f.InventoryID)
	setValue(&l.BorrowerID, f.BorrowerID)
	setValue(&l.Quantity, f.Quantity)
	if f.LoanedAt.Present() {
		l.LoanedAt = f.LoanedAt.Value.UTC().Truncate(TimestampPrecision)
	}
	setNullableTime(&l.DueDate, f.DueDate)
	setNullableTime(&l.ReturnedAt, f.ReturnedAt)
	setNullableText(&l.Notes, f.Notes)

	if l.Quantity == 0 {
		l.Quantity = 1
	}
	if l.LoanedAt.IsZero() {
		l.LoanedAt = l.CreatedAt
	}
}

// Active reports whether the loan is still out.
func (l *Loan) Active() bool {
	return l.ReturnedAt == nil
}

// LoanFields lists the client-writable loan fields.
type LoanFields struct {
	InventoryID Field[string]    `json:"inventory_id" validate:"omitempty,uuid"`
	BorrowerID  Field[string]    `json:"borrower_id" validate:"omitempty,uuid"`
	Quantity    Field[int]       `json:"quantity" validate:"omitempty,gte=1"`
	LoanedAt    Field[time.Time] `json:"loaned_at"`
	DueDate     Field[time.Time] `json:"due_date"`
	ReturnedAt  Field[time.Time] `json:"returned_at"`
	Notes       Field[string]    `json:"notes" validate:"omitempty,max=5000"`
}

// Problems implements FieldSet.
func (f *LoanFields) Problems(creating bool) Problems {
	p := Problems{}
	p.requireText("inventory_id", f.InventoryID, creating)
	p.requireText("borrower_id", f.BorrowerID, creating)
	p.notNull("quantity", f.Quantity.Set, f.Quantity.Null)
	p.notNull("loaned_at", f.LoanedAt.Set, f.LoanedAt.Null)
	if f.Quantity.Present() && f.Quantity.Value < 1 {
		p["quantity"] = "must be at least 1"
	}
	if f.LoanedAt.Present() && f.ReturnedAt.Present() && f.ReturnedAt.Value.Before(f.LoanedAt.Value) {
		p["returned_at"] = "cannot be before loaned_at"
	}
	return p
}
