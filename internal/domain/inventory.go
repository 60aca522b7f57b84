package domain

// Condition of a stocked unit.
type Condition string

// Known conditions.
const (
	ConditionNew       Condition = "NEW"
	ConditionExcellent Condition = "EXCELLENT"
	ConditionGood      Condition = "GOOD"
	ConditionFair      Condition = "FAIR"
	ConditionPoor      Condition = "POOR"
	ConditionDamaged   Condition = "DAMAGED"
	ConditionForRepair Condition = "FOR_REPAIR"
)

// InventoryStatus is the availability of a stock record.
type InventoryStatus string

// Known statuses.
const (
	StatusAvailable InventoryStatus = "AVAILABLE"
	StatusInUse     InventoryStatus = "IN_USE"
	StatusReserved  InventoryStatus = "RESERVED"
	StatusOnLoan    InventoryStatus = "ON_LOAN"
	StatusInTransit InventoryStatus = "IN_TRANSIT"
	StatusDisposed  InventoryStatus = "DISPOSED"
	StatusMissing   InventoryStatus = "MISSING"
)

// Inventory records a quantity of an item at a location, optionally inside a container.
type Inventory struct {
	Syncable
	ItemID      string          `json:"item_id"`
	LocationID  string          `json:"location_id"`
	ContainerID *string         `json:"container_id"`
	Condition   *Condition      `json:"condition"`
	Status      InventoryStatus `json:"status"`
	Notes       *string         `json:"notes"`
	Quantity    int             `json:"quantity"`
}

// Kind implements Entity.
func (i *Inventory) Kind() EntityKind { return KindInventory }

// Apply copies every supplied field onto i. A new record defaults to AVAILABLE.
func (i *Inventory) Apply(f *InventoryFields) {
	setValue(&i.ItemID, f.ItemID)
	setValue(&i.LocationID, f.LocationID)
	setNullable(&i.ContainerID, f.ContainerID)
	setValue(&i.Quantity, f.Quantity)
	if f.Condition.Set {
		if f.Condition.Null {
			i.Condition = nil
		} else {
			c := Condition(f.Condition.Value)
			i.Condition = &c
		}
	}
	if f.Status.Present() {
		i.Status = InventoryStatus(f.Status.Value)
	}
	if i.Status == "" {
		i.Status = StatusAvailable
	}
	setNullableText(&i.Notes, f.Notes)
}

// InventoryFields lists the client-writable inventory fields.
type InventoryFields struct {
	ItemID      Field[string] `json:"item_id" validate:"omitempty,uuid"`
	LocationID  Field[string] `json:"location_id" validate:"omitempty,uuid"`
	ContainerID Field[string] `json:"container_id" validate:"omitempty,uuid"`
	Quantity    Field[int]    `json:"quantity" validate:"omitempty,gte=0"`
	Condition   Field[string] `json:"condition" validate:"omitempty,oneof=NEW EXCELLENT GOOD FAIR POOR DAMAGED FOR_REPAIR"`
	Status      Field[string] `json:"status" validate:"omitempty,oneof=AVAILABLE IN_USE RESERVED ON_LOAN IN_TRANSIT DISPOSED MISSING"`
	Notes       Field[string] `json:"notes" validate:"omitempty,max=5000"`
}

// Problems implements FieldSet.
func (f *InventoryFields) Problems(creating bool) Problems {
	p := Problems{}
	p.requireText("item_id", f.ItemID, creating)
	p.requireText("location_id", f.LocationID, creating)
	p.require("quantity", f.Quantity.Set, f.Quantity.Null, creating)
	p.notNull("status", f.Status.Set, f.Status.Null)
	return p
}
