package domain

// Container is a box, shelf or bin held at a location.
type Container struct {
	Syncable
	Name        string  `json:"name"`
	LocationID  string  `json:"location_id"`
	Description *string `json:"description"`
	Capacity    *string `json:"capacity"`
	ShortCode   *string `json:"short_code"`
}

// Kind implements Entity.
func (c *Container) Kind() EntityKind { return KindContainer }

// Apply copies every supplied field onto c.
func (c *Container) Apply(f *ContainerFields) {
	setText(&c.Name, f.Name)
	setValue(&c.LocationID, f.LocationID)
	setNullableText(&c.Description, f.Description)
	setNullableText(&c.Capacity, f.Capacity)
	setNullableCode(&c.ShortCode, f.ShortCode)
}

// ContainerFields lists the client-writable container fields.
type ContainerFields struct {
	Name        Field[string] `json:"name" validate:"omitempty,min=1,max=200"`
	LocationID  Field[string] `json:"location_id" validate:"omitempty,uuid"`
	Description Field[string] `json:"description" validate:"omitempty,max=2000"`
	Capacity    Field[string] `json:"capacity" validate:"omitempty,max=100"`
	ShortCode   Field[string] `json:"short_code" validate:"omitempty,max=16"`
}

// Problems implements FieldSet.
func (f *ContainerFields) Problems(creating bool) Problems {
	p := Problems{}
	p.requireText("name", f.Name, creating)
	p.requireText("location_id", f.LocationID, creating)
	return p
}
