package sqlite

import (
	"database/sql"

	"github.com/stockroomapp/stockroom-server/internal/domain"
)

var loanTable = &tableSpec[*domain.Loan, *domain.LoanFields]{
	kind:  domain.KindLoan,
	table: "loans",
	columns: []string{
		"inventory_id", "borrower_id", "loaned_at", "due_date", "returned_at", "notes", "quantity",
	},
	newEntity: func() *domain.Loan { return &domain.Loan{} },
	scan:      scanLoan,
	values: func(l *domain.Loan) []any {
		return []any{
			l.InventoryID,
			l.BorrowerID,
			formatTime(l.LoanedAt),
			nullTimeString(l.DueDate),
			nullTimeString(l.ReturnedAt),
			l.Notes,
			l.Quantity,
		}
	},
	apply: (*domain.Loan).Apply,
}

func scanLoan(scanner rowScanner) (*domain.Loan, error) {
	var (
		l          domain.Loan
		loanedAt   string
		dueDate    sql.NullString
		returnedAt sql.NullString
	)
	ss := scanSync{s: &l.Syncable}
	err := scanner.Scan(ss.targets(
		&l.InventoryID, &l.BorrowerID, &loanedAt, &dueDate, &returnedAt, &l.Notes, &l.Quantity,
	)...)
	if err != nil {
		return nil, err
	}
	if err := ss.finish(); err != nil {
		return nil, err
	}

	if l.LoanedAt, err = parseTime(loanedAt); err != nil {
		return nil, err
	}
	if l.DueDate, err = parseNullableTime(dueDate); err != nil {
		return nil, err
	}
	if l.ReturnedAt, err = parseNullableTime(returnedAt); err != nil {
		return nil, err
	}
	return &l, nil
}
