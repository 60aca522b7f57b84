package domain

// Borrower is someone items can be lent to.
type Borrower struct {
	Syncable
	Name  string  `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	Notes *string `json:"notes"`
}

// Kind implements Entity.
func (b *Borrower) Kind() EntityKind { return KindBorrower }

// Apply copies every supplied field onto b.
func (b *Borrower) Apply(f *BorrowerFields) {
	setText(&b.Name, f.Name)
	setNullableEmail(&b.Email, f.Email)
	setNullableText(&b.Phone, f.Phone)
	setNullableText(&b.Notes, f.Notes)
}

// BorrowerFields lists the client-writable borrower fields.
type BorrowerFields struct {
	Name  Field[string] `json:"name" validate:"omitempty,min=1,max=200"`
	Email Field[string] `json:"email" validate:"omitempty,email,max=254"`
	Phone Field[string] `json:"phone" validate:"omitempty,max=50"`
	Notes Field[string] `json:"notes" validate:"omitempty,max=5000"`
}

// Problems implements FieldSet.
func (f *BorrowerFields) Problems(creating bool) Problems {
	p := Problems{}
	p.requireText("name", f.Name, creating)
	return p
}
