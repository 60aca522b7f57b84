package sqlite

import "github.com/stockroomapp/stockroom-server/internal/domain"

// itemColumns must match the scan order in scanItem.
var itemColumns = []string{
	"sku", "name", "description", "category_id", "brand", "model",
	"serial_number", "barcode", "notes", "min_stock_level", "is_insured", "is_archived",
}

var itemTable = &tableSpec[*domain.Item, *domain.ItemFields]{
	kind:      domain.KindItem,
	table:     "items",
	columns:   itemColumns,
	newEntity: func() *domain.Item { return &domain.Item{} },
	scan:      scanItem,
	values: func(i *domain.Item) []any {
		return []any{
			i.SKU, i.Name, i.Description, i.CategoryID, i.Brand, i.Model,
			i.SerialNumber, i.Barcode, i.Notes, i.MinStockLevel, i.IsInsured, i.IsArchived,
		}
	},
	apply: (*domain.Item).Apply,
}

func scanItem(scanner rowScanner) (*domain.Item, error) {
	var i domain.Item
	ss := scanSync{s: &i.Syncable}
	err := scanner.Scan(ss.targets(
		&i.SKU,
		&i.Name,
		&i.Description,
		&i.CategoryID,
		&i.Brand,
		&i.Model,
		&i.SerialNumber,
		&i.Barcode,
		&i.Notes,
		&i.MinStockLevel,
		&i.IsInsured,
		&i.IsArchived,
	)...)
	if err != nil {
		return nil, err
	}
	return &i, ss.finish()
}
