package sqlite

import "github.com/stockroomapp/stockroom-server/internal/domain"

var borrowerTable = &tableSpec[*domain.Borrower, *domain.BorrowerFields]{
	kind:      domain.KindBorrower,
	table:     "borrowers",
	columns:   []string{"name", "email", "phone", "notes"},
	newEntity: func() *domain.Borrower { return &domain.Borrower{} },
	scan:      scanBorrower,
	values: func(b *domain.Borrower) []any {
		return []any{b.Name, b.Email, b.Phone, b.Notes}
	},
	apply: (*domain.Borrower).Apply,
}

func scanBorrower(scanner rowScanner) (*domain.Borrower, error) {
	var b domain.Borrower
	ss := scanSync{s: &b.Syncable}
	if err := scanner.Scan(ss.targets(&b.Name, &b.Email, &b.Phone, &b.Notes)...); err != nil {
		return nil, err
	}
	return &b, ss.finish()
}
