package service

import (
	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/store"
)

// SyncOptions tunes the delta engine and batch processor.
type SyncOptions struct {
	CommitMode    domain.CommitMode
	DefaultLimit  int
	MaxLimit      int
	MaxOperations int
}

func (o SyncOptions) withDefaults() SyncOptions {
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = store.DefaultPageLimit
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = store.MaxPageLimit
	}
	if o.DefaultLimit > o.MaxLimit {
		o.DefaultLimit = o.MaxLimit
	}
	if o.CommitMode == "" {
		o.CommitMode = domain.CommitPerOperation
	}
	return o
}
