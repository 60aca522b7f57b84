package domain

// Category groups items into a hierarchy.
type Category struct {
	Syncable
	Name             string  `json:"name"`
	ParentCategoryID *string `json:"parent_category_id"`
	Description      *string `json:"description"`
}

// Kind implements Entity.
func (c *Category) Kind() EntityKind { return KindCategory }

// Apply copies every supplied field onto c.
func (c *Category) Apply(f *CategoryFields) {
	setText(&c.Name, f.Name)
	setNullable(&c.ParentCategoryID, f.ParentCategoryID)
	setNullableText(&c.Description, f.Description)
}

// CategoryFields lists the client-writable category fields.
type CategoryFields struct {
	Name             Field[string] `json:"name" validate:"omitempty,min=1,max=200"`
	ParentCategoryID Field[string] `json:"parent_category_id" validate:"omitempty,uuid"`
	Description      Field[string] `json:"description" validate:"omitempty,max=2000"`
}

// Problems implements FieldSet.
func (f *CategoryFields) Problems(creating bool) Problems {
	p := Problems{}
	p.requireText("name", f.Name, creating)
	return p
}
