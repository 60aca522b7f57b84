package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestField_UnmarshalStates(t *testing.T) {
	var f ItemFields
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Drill","description":null}`), &f))

	assert.True(t, f.Name.Present())
	assert.Equal(t, "Drill", f.Name.Value)

	assert.True(t, f.Description.Set)
	assert.True(t, f.Description.Null)
	assert.False(t, f.Description.Present())

	assert.False(t, f.Brand.Set, "absent keys stay unset")
}

func TestField_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Field[int]{Value: 3, Set: true})
	require.NoError(t, err)
	assert.JSONEq(t, `3`, string(b))

	b, err = json.Marshal(Field[int]{})
	require.NoError(t, err)
	assert.JSONEq(t, `null`, string(b))
}

func TestItem_ApplyPartial(t *testing.T) {
	desc := "old"
	item := &Item{Name: "Drill", SKU: "DR-1", Description: &desc, MinStockLevel: 2}

	var f ItemFields
	require.NoError(t, json.Unmarshal([]byte(`{"name":"  Cordless Drill ","description":null,"sku":"dr 2"}`), &f))
	item.Apply(&f)

	assert.Equal(t, "Cordless Drill", item.Name)
	assert.Equal(t, "DR2", item.SKU)
	assert.Nil(t, item.Description)
	assert.Equal(t, 2, item.MinStockLevel, "unsent fields are untouched")
}

func TestFieldSet_Problems(t *testing.T) {
	var f ItemFields
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Drill"}`), &f))

	p := f.Problems(true)
	assert.Equal(t, "is required", p["sku"])
	assert.NotContains(t, p, "name")

	assert.Empty(t, f.Problems(false), "updates need no required fields")

	var nulls ItemFields
	require.NoError(t, json.Unmarshal([]byte(`{"name":null,"is_insured":null}`), &nulls))
	p = nulls.Problems(false)
	assert.Equal(t, "cannot be null", p["name"])
	assert.Equal(t, "cannot be null", p["is_insured"])
}

func TestInventory_ApplyDefaultsStatus(t *testing.T) {
	inv := &Inventory{}
	var f InventoryFields
	require.NoError(t, json.Unmarshal([]byte(`{"quantity":4,"condition":"GOOD"}`), &f))
	inv.Apply(&f)

	assert.Equal(t, StatusAvailable, inv.Status)
	assert.Equal(t, 4, inv.Quantity)
	require.NotNil(t, inv.Condition)
	assert.Equal(t, ConditionGood, *inv.Condition)
}

func TestLoan_ApplyDefaults(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	loan := &Loan{}
	loan.InitTimestamps(created)

	loan.Apply(&LoanFields{})

	assert.Equal(t, 1, loan.Quantity)
	assert.True(t, loan.LoanedAt.Equal(created))
	assert.True(t, loan.Active())
}

func TestLoanFields_ReturnBeforeLoan(t *testing.T) {
	var f LoanFields
	require.NoError(t, json.Unmarshal([]byte(`{
		"inventory_id":"a","borrower_id":"b",
		"loaned_at":"2026-03-02T00:00:00Z","returned_at":"2026-03-01T00:00:00Z"}`), &f))

	assert.Contains(t, f.Problems(true), "returned_at")
}

func TestNewFieldSet_CoversAllKinds(t *testing.T) {
	for _, k := range AllKinds() {
		fs, ok := NewFieldSet(k)
		assert.True(t, ok, k)
		assert.NotNil(t, fs, k)
	}
	_, ok := NewFieldSet("widget")
	assert.False(t, ok)
}
