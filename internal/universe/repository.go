package universe

import (
	"fmt"
	"time"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/pkg/jsonstore"
)

const universeFile = "validated_tickers.json"

// Repository persists the validated universe snapshot
type Repository struct {
	store *jsonstore.Store
}

// NewRepository creates a new Repository instance
func NewRepository(store *jsonstore.Store) *Repository {
	return &Repository{store: store}
}

// Save atomically replaces validated_tickers.json
func (r *Repository) Save(universe *contracts.ValidatedUniverse) error {
	if err := r.store.Save(universeFile, universe); err != nil {
		return fmt.Errorf("save validated universe: %w", err)
	}
	return nil
}

// Load reads the current snapshot. Returns jsonstore.ErrNotFound
// when no usable snapshot exists.
func (r *Repository) Load() (*contracts.ValidatedUniverse, error) {
	var universe contracts.ValidatedUniverse
	if err := r.store.Load(universeFile, &universe); err != nil {
		return nil, fmt.Errorf("load validated universe: %w", err)
	}
	return &universe, nil
}

// Age returns the snapshot file age, jsonstore.ErrNotFound if absent
func (r *Repository) Age() (time.Duration, error) {
	return r.store.Age(universeFile)
}
