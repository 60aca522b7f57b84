package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/store"
)

func writeSession(t *testing.T, s *Store) store.Session {
	t.Helper()
	sess, err := s.BeginWrite(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { sess.Rollback() })
	return sess
}

func adapter(t *testing.T, sess store.Session, kind domain.EntityKind) store.EntityAdapter {
	t.Helper()
	a, err := sess.Entities(kind)
	require.NoError(t, err)
	return a
}

func TestEntityTable_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := writeSession(t, s)
	items := adapter(t, sess, domain.KindItem)

	created, err := items.Create(ctx, testWorkspace, &domain.ItemFields{
		SKU:           set("dr-1"),
		Name:          set("Drill"),
		Brand:         set("Makita"),
		MinStockLevel: set(3),
		IsInsured:     set(true),
	})
	require.NoError(t, err)

	item := created.(*domain.Item)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, int64(1), item.Version)
	assert.Equal(t, "DR-1", item.SKU)

	got, err := items.GetOneOrNone(ctx, item.ID, testWorkspace)
	require.NoError(t, err)
	require.NotNil(t, got)

	fetched := got.(*domain.Item)
	assert.Equal(t, "Drill", fetched.Name)
	require.NotNil(t, fetched.Brand)
	assert.Equal(t, "Makita", *fetched.Brand)
	assert.Nil(t, fetched.Description)
	assert.Equal(t, 3, fetched.MinStockLevel)
	assert.True(t, fetched.IsInsured)
	assert.True(t, fetched.ModifiedAt.Equal(item.ModifiedAt))

	require.NoError(t, sess.Commit())
}

func TestEntityTable_GetOneOrNoneScopesWorkspace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := writeSession(t, s)
	borrowers := adapter(t, sess, domain.KindBorrower)

	b, err := borrowers.Create(ctx, testWorkspace, &domain.BorrowerFields{Name: set("Alice")})
	require.NoError(t, err)

	got, err := borrowers.GetOneOrNone(ctx, b.Sync().ID, "another-workspace")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = borrowers.GetOneOrNone(ctx, "missing", testWorkspace)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEntityTable_UpdatePatchesOnlySentFields(t *testing.T) {
	s := newTestStore(t)
	s.SetClock(stepClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)))
	ctx := context.Background()
	sess := writeSession(t, s)
	locations := adapter(t, sess, domain.KindLocation)

	created, err := locations.Create(ctx, testWorkspace, &domain.LocationFields{
		Name:        set("Garage"),
		Description: set("Left side"),
		ShortCode:   set("gar 1"),
	})
	require.NoError(t, err)
	before := *created.Sync()

	current, err := locations.GetOneOrNone(ctx, before.ID, testWorkspace)
	require.NoError(t, err)

	updated, err := locations.Update(ctx, current, &domain.LocationFields{
		Name:        set("Garage North"),
		Description: null[string](),
	})
	require.NoError(t, err)

	loc := updated.(*domain.Location)
	assert.Equal(t, "Garage North", loc.Name)
	assert.Nil(t, loc.Description)
	require.NotNil(t, loc.ShortCode)
	assert.Equal(t, "GAR1", *loc.ShortCode)
	assert.Equal(t, int64(2), loc.Version)
	assert.True(t, loc.ModifiedAt.After(before.ModifiedAt))
	assert.True(t, loc.CreatedAt.Equal(before.CreatedAt))

	reread, err := locations.GetOneOrNone(ctx, before.ID, testWorkspace)
	require.NoError(t, err)
	assert.Equal(t, "Garage North", reread.(*domain.Location).Name)
	assert.Nil(t, reread.(*domain.Location).Description)
}

func TestEntityTable_UpdateStaleVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := writeSession(t, s)
	categories := adapter(t, sess, domain.KindCategory)

	created, err := categories.Create(ctx, testWorkspace, &domain.CategoryFields{Name: set("Tools")})
	require.NoError(t, err)
	id := created.Sync().ID

	first, err := categories.GetOneOrNone(ctx, id, testWorkspace)
	require.NoError(t, err)
	stale, err := categories.GetOneOrNone(ctx, id, testWorkspace)
	require.NoError(t, err)

	_, err = categories.Update(ctx, first, &domain.CategoryFields{Name: set("Hand Tools")})
	require.NoError(t, err)

	_, err = categories.Update(ctx, stale, &domain.CategoryFields{Name: set("Power Tools")})
	assert.ErrorIs(t, err, store.ErrVersionMismatch)
}

func TestEntityTable_DuplicateSKU(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := writeSession(t, s)
	items := adapter(t, sess, domain.KindItem)

	_, err := items.Create(ctx, testWorkspace, &domain.ItemFields{SKU: set("A1"), Name: set("One")})
	require.NoError(t, err)

	_, err = items.Create(ctx, testWorkspace, &domain.ItemFields{SKU: set("a1"), Name: set("Two")})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = items.Create(ctx, "other", &domain.ItemFields{SKU: set("A1"), Name: set("Three")})
	assert.NoError(t, err, "sku is unique per workspace")
}

func TestEntityTable_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := writeSession(t, s)
	containers := adapter(t, sess, domain.KindContainer)

	c, err := containers.Create(ctx, testWorkspace, &domain.ContainerFields{
		Name:       set("Bin 4"),
		LocationID: set("3f1b8f5e-4a52-4a0e-9b7e-2b0f0d0f9a11"),
	})
	require.NoError(t, err)

	require.NoError(t, containers.Delete(ctx, c.Sync().ID, testWorkspace))
	assert.ErrorIs(t, containers.Delete(ctx, c.Sync().ID, testWorkspace), store.ErrNotFound)

	got, err := containers.GetOneOrNone(ctx, c.Sync().ID, testWorkspace)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEntityTable_ListModifiedSince(t *testing.T) {
	s := newTestStore(t)
	s.SetClock(stepClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)))
	ctx := context.Background()
	sess := writeSession(t, s)
	borrowers := adapter(t, sess, domain.KindBorrower)

	var stamps []time.Time
	for _, name := range []string{"Ann", "Ben", "Cal", "Dee"} {
		b, err := borrowers.Create(ctx, testWorkspace, &domain.BorrowerFields{Name: set(name)})
		require.NoError(t, err)
		stamps = append(stamps, b.Sync().ModifiedAt)
	}
	_, err := borrowers.Create(ctx, "other", &domain.BorrowerFields{Name: set("Eve")})
	require.NoError(t, err)

	all, err := borrowers.ListModifiedSince(ctx, testWorkspace, nil, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Sync().ModifiedAt.Before(all[i-1].Sync().ModifiedAt), "ascending")
	}

	since := stamps[1]
	after, err := borrowers.ListModifiedSince(ctx, testWorkspace, &since, 10)
	require.NoError(t, err)
	require.Len(t, after, 2, "strictly after the cursor")
	assert.Equal(t, "Cal", after[0].(*domain.Borrower).Name)

	limited, err := borrowers.ListModifiedSince(ctx, testWorkspace, nil, 3)
	require.NoError(t, err)
	assert.Len(t, limited, 3)
}

func TestEntityTable_LoanTimes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := writeSession(t, s)
	loans := adapter(t, sess, domain.KindLoan)

	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	created, err := loans.Create(ctx, testWorkspace, &domain.LoanFields{
		InventoryID: set("6a0f1d0e-3c3b-4a47-8e0c-9f3e2b1a7c55"),
		BorrowerID:  set("0d4c0b5b-7f3a-4a8e-a5f1-3a1b7c9d2e10"),
		DueDate:     set(due),
	})
	require.NoError(t, err)

	got, err := loans.GetOneOrNone(ctx, created.Sync().ID, testWorkspace)
	require.NoError(t, err)
	loan := got.(*domain.Loan)

	assert.Equal(t, 1, loan.Quantity)
	require.NotNil(t, loan.DueDate)
	assert.True(t, loan.DueDate.Equal(due))
	assert.Nil(t, loan.ReturnedAt)
	assert.True(t, loan.LoanedAt.Equal(loan.CreatedAt))
}

func TestEntityTable_InventoryEnums(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := writeSession(t, s)
	inventory := adapter(t, sess, domain.KindInventory)

	created, err := inventory.Create(ctx, testWorkspace, &domain.InventoryFields{
		ItemID:     set("6a0f1d0e-3c3b-4a47-8e0c-9f3e2b1a7c55"),
		LocationID: set("0d4c0b5b-7f3a-4a8e-a5f1-3a1b7c9d2e10"),
		Quantity:   set(5),
		Condition:  set("GOOD"),
	})
	require.NoError(t, err)

	got, err := inventory.GetOneOrNone(ctx, created.Sync().ID, testWorkspace)
	require.NoError(t, err)
	inv := got.(*domain.Inventory)

	assert.Equal(t, domain.StatusAvailable, inv.Status)
	require.NotNil(t, inv.Condition)
	assert.Equal(t, domain.ConditionGood, *inv.Condition)
	assert.Nil(t, inv.ContainerID)
	assert.Equal(t, 5, inv.Quantity)
}

func TestTablesCoverEveryKind(t *testing.T) {
	for _, kind := range domain.AllKinds() {
		b, err := tables.Lookup(kind)
		require.NoError(t, err, kind)
		assert.NotEmpty(t, b.tableName())
	}
}
