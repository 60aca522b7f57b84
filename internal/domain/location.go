package domain

// Location is a physical place; locations nest via ParentLocationID.
type Location struct {
	Syncable
	Name             string  `json:"name"`
	ParentLocationID *string `json:"parent_location_id"`
	Description      *string `json:"description"`
	ShortCode        *string `json:"short_code"`
}

// Kind implements Entity.
func (l *Location) Kind() EntityKind { return KindLocation }

// Apply copies every supplied field onto l.
func (l *Location) Apply(f *LocationFields) {
	setText(&l.Name, f.Name)
	setNullable(&l.ParentLocationID, f.ParentLocationID)
	setNullableText(&l.Description, f.Description)
	setNullableCode(&l.ShortCode, f.ShortCode)
}

// LocationFields lists the client-writable location fields.
type LocationFields struct {
	Name             Field[string] `json:"name" validate:"omitempty,min=1,max=200"`
	ParentLocationID Field[string] `json:"parent_location_id" validate:"omitempty,uuid"`
	Description      Field[string] `json:"description" validate:"omitempty,max=2000"`
	ShortCode        Field[string] `json:"short_code" validate:"omitempty,max=16"`
}

// Problems implements FieldSet.
func (f *LocationFields) Problems(creating bool) Problems {
	p := Problems{}
	p.requireText("name", f.Name, creating)
	return p
}
