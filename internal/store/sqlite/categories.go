package sqlite

import "github.com/stockroomapp/stockroom-server/internal/domain"

var categoryTable = &tableSpec[*domain.Category, *domain.CategoryFields]{
	kind:      domain.KindCategory,
	table:     "categories",
	columns:   []string{"name", "parent_category_id", "description"},
	newEntity: func() *domain.Category { return &domain.Category{} },
	scan:      scanCategory,
	values: func(c *domain.Category) []any {
		return []any{c.Name, c.ParentCategoryID, c.Description}
	},
	apply: (*domain.Category).Apply,
}

func scanCategory(scanner rowScanner) (*domain.Category, error) {
	var c domain.Category
	ss := scanSync{s: &c.Syncable}
	if err := scanner.Scan(ss.targets(&c.Name, &c.ParentCategoryID, &c.Description)...); err != nil {
		return nil, err
	}
	return &c, ss.finish()
}
