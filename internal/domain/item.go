package domain

import "github.com/stockroomapp/stockroom-server/internal/normalize"

// Item is a catalogue entry. Physical stock of an item is tracked by Inventory.
type Item struct {
	Syncable
	SKU           string  `json:"sku"`
	Name          string  `json:"name"`
	Description   *string `json:"description"`
	CategoryID    *string `json:"category_id"`
	Brand         *string `json:"brand"`
	Model         *string `json:"model"`
	SerialNumber  *string `json:"serial_number"`
	Barcode       *string `json:"barcode"`
	Notes         *string `json:"notes"`
	MinStockLevel int     `json:"min_stock_level"`
	IsInsured     bool    `json:"is_insured"`
	IsArchived    bool    `json:"is_archived"`
}

// Kind implements Entity.
func (i *Item) Kind() EntityKind { return KindItem }

// Apply copies every supplied field onto i.
func (i *Item) Apply(f *ItemFields) {
	if f.SKU.Present() {
		i.SKU = normalize.Code(f.SKU.Value)
	}
	setText(&i.Name, f.Name)
	setNullableText(&i.Description, f.Description)
	setNullable(&i.CategoryID, f.CategoryID)
	setNullableText(&i.Brand, f.Brand)
	setNullableText(&i.Model, f.Model)
	setNullableText(&i.SerialNumber, f.SerialNumber)
	setNullableText(&i.Barcode, f.Barcode)
	setNullableText(&i.Notes, f.Notes)
	setValue(&i.MinStockLevel, f.MinStockLevel)
	setValue(&i.IsInsured, f.IsInsured)
	setValue(&i.IsArchived, f.IsArchived)
}

// ItemFields lists the client-writable item fields.
type ItemFields struct {
	SKU           Field[string] `json:"sku" validate:"omitempty,min=1,max=64"`
	Name          Field[string] `json:"name" validate:"omitempty,min=1,max=200"`
	Description   Field[string] `json:"description" validate:"omitempty,max=2000"`
	CategoryID    Field[string] `json:"category_id" validate:"omitempty,uuid"`
	Brand         Field[string] `json:"brand" validate:"omitempty,max=100"`
	Model         Field[string] `json:"model" validate:"omitempty,max=100"`
	SerialNumber  Field[string] `json:"serial_number" validate:"omitempty,max=100"`
	Barcode       Field[string] `json:"barcode" validate:"omitempty,max=64"`
	Notes         Field[string] `json:"notes" validate:"omitempty,max=5000"`
	MinStockLevel Field[int]    `json:"min_stock_level" validate:"omitempty,gte=0"`
	IsInsured     Field[bool]   `json:"is_insured"`
	IsArchived    Field[bool]   `json:"is_archived"`
}

// Problems implements FieldSet.
func (f *ItemFields) Problems(creating bool) Problems {
	p := Problems{}
	p.requireText("sku", f.SKU, creating)
	p.requireText("name", f.Name, creating)
	p.notNull("min_stock_level", f.MinStockLevel.Set, f.MinStockLevel.Null)
	p.notNull("is_insured", f.IsInsured.Set, f.IsInsured.Null)
	p.notNull("is_archived", f.IsArchived.Set, f.IsArchived.Null)
	return p
}
