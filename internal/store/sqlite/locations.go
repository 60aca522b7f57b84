package sqlite

import "github.com/stockroomapp/stockroom-server/internal/domain"

var locationTable = &tableSpec[*domain.Location, *domain.LocationFields]{
	kind:      domain.KindLocation,
	table:     "locations",
	columns:   []string{"name", "parent_location_id", "description", "short_code"},
	newEntity: func() *domain.Location { return &domain.Location{} },
	scan:      scanLocation,
	values: func(l *domain.Location) []any {
		return []any{l.Name, l.ParentLocationID, l.Description, l.ShortCode}
	},
	apply: (*domain.Location).Apply,
}

func scanLocation(scanner rowScanner) (*domain.Location, error) {
	var l domain.Location
	ss := scanSync{s: &l.Syncable}
	if err := scanner.Scan(ss.targets(&l.Name, &l.ParentLocationID, &l.Description, &l.ShortCode)...); err != nil {
		return nil, err
	}
	return &l, ss.finish()
}
