package sqlite

import "github.com/stockroomapp/stockroom-server/internal/domain"

var containerTable = &tableSpec[*domain.Container, *domain.ContainerFields]{
	kind:      domain.KindContainer,
	table:     "containers",
	columns:   []string{"name", "location_id", "description", "capacity", "short_code"},
	newEntity: func() *domain.Container { return &domain.Container{} },
	scan:      scanContainer,
	values: func(c *domain.Container) []any {
		return []any{c.Name, c.LocationID, c.Description, c.Capacity, c.ShortCode}
	},
	apply: (*domain.Container).Apply,
}

func scanContainer(scanner rowScanner) (*domain.Container, error) {
	var c domain.Container
	ss := scanSync{s: &c.Syncable}
	err := scanner.Scan(ss.targets(&c.Name, &c.LocationID, &c.Description, &c.Capacity, &c.ShortCode)...)
	if err != nil {
		return nil, err
	}
	return &c, ss.finish()
}
