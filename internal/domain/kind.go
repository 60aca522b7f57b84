package domain

import (
	"fmt"
	"strings"
)

// EntityKind names a synchronized entity type.
type EntityKind string

// The closed set of synchronized kinds. Adding one requires a domain type,
// a field set, a table and an adapter; store.NewRegistry refuses to build
// while any of them is missing.
const (
	KindItem      EntityKind = "item"
	KindLocation  EntityKind = "location"
	KindContainer EntityKind = "container"
	KindCategory  EntityKind = "category"
	KindInventory EntityKind = "inventory"
	KindLoan      EntityKind = "loan"
	KindBorrower  EntityKind = "borrower"
)

// AllKinds returns every synchronized kind in delta response order.
func AllKinds() []EntityKind {
	return []EntityKind{
		KindItem,
		KindLocation,
		KindContainer,
		KindCategory,
		KindInventory,
		KindLoan,
		KindBorrower,
	}
}

// ParseEntityKind resolves a client-supplied kind name.
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown entity kind %q", s)
	}
	return k, nil
}

// ParseEntityKinds resolves a list of kind names, dropping duplicates.
// An empty list means every kind.
func ParseEntityKinds(names []string) ([]EntityKind, error) {
	if len(names) == 0 {
		return AllKinds(), nil
	}
	seen := make(map[EntityKind]bool, len(names))
	kinds := make([]EntityKind, 0, len(names))
	for _, name := range names {
		k, err := ParseEntityKind(name)
		if err != nil {
			return nil, err
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Valid reports whether k is one of the known kinds.
func (k EntityKind) Valid() bool {
	switch k {
	case KindItem, KindLocation, KindContainer, KindCategory, KindInventory, KindLoan, KindBorrower:
		return true
	default:
		return false
	}
}

// CollectionName is the key the kind's rows are listed under in a delta.
func (k EntityKind) CollectionName() string {
	switch k {
	case KindItem:
		return "items"
	case KindLocation:
		return "locations"
	case KindContainer:
		return "containers"
	case KindCategory:
		return "categories"
	case KindInventory:
		return "inventory"
	case KindLoan:
		return "loans"
	case KindBorrower:
		return "borrowers"
	default:
		return string(k)
	}
}

func (k EntityKind) String() string {
	return string(k)
}
