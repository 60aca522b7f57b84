package sqlite

import "github.com/stockroomapp/stockroom-server/internal/domain"

var inventoryTable = &tableSpec[*domain.Inventory, *domain.InventoryFields]{
	kind:      domain.KindInventory,
	table:     "inventory",
	columns:   []string{"item_id", "location_id", "container_id", "condition", "status", "notes", "quantity"},
	newEntity: func() *domain.Inventory { return &domain.Inventory{} },
	scan:      scanInventory,
	values: func(i *domain.Inventory) []any {
		return []any{i.ItemID, i.LocationID, i.ContainerID, i.Condition, i.Status, i.Notes, i.Quantity}
	},
	apply: (*domain.Inventory).Apply,
}

func scanInventory(scanner rowScanner) (*domain.Inventory, error) {
	var i domain.Inventory
	ss := scanSync{s: &i.Syncable}
	err := scanner.Scan(ss.targets(
		&i.ItemID, &i.LocationID, &i.ContainerID, &i.Condition, &i.Status, &i.Notes, &i.Quantity,
	)...)
	if err != nil {
		return nil, err
	}
	return &i, ss.finish()
}
