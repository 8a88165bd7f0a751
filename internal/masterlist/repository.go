package masterlist

import (
	"errors"
	"fmt"
	"time"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/pkg/jsonstore"
)

const (
	masterListFile = "master_list.json"
	checkpointFile = "master_list_checkpoint.json"
)

// checkpoint is the partial build state saved after every batch
type checkpoint struct {
	Processed []string                    `json:"processed"`
	Entries   []contracts.MasterListEntry `json:"entries"`
}

// Repository persists the master list and its build checkpoint
type Repository struct {
	store *jsonstore.Store
}

// NewRepository creates a new Repository instance
func NewRepository(store *jsonstore.Store) *Repository {
	return &Repository{store: store}
}

// Save atomically replaces master_list.json
func (r *Repository) Save(list *contracts.MasterList) error {
	if err := r.store.Save(masterListFile, list); err != nil {
		return fmt.Errorf("save master list: %w", err)
	}
	return nil
}

// Load reads the current master list. Returns jsonstore.ErrNotFound
// when none exists.
func (r *Repository) Load() (*contracts.MasterList, error) {
	var list contracts.MasterList
	if err := r.store.Load(masterListFile, &list); err != nil {
		return nil, fmt.Errorf("load master list: %w", err)
	}
	return &list, nil
}

// Age returns the master list file age, jsonstore.ErrNotFound if absent
func (r *Repository) Age() (time.Duration, error) {
	return r.store.Age(masterListFile)
}

// loadCheckpoint reads the build checkpoint; missing means a fresh start
func (r *Repository) loadCheckpoint() (*checkpoint, error) {
	var cp checkpoint
	if err := r.store.Load(checkpointFile, &cp); err != nil {
		if errors.Is(err, jsonstore.ErrNotFound) {
			return &checkpoint{}, nil
		}
		return nil, fmt.Errorf("load master list checkpoint: %w", err)
	}
	return &cp, nil
}

// saveCheckpoint atomically replaces the build checkpoint
func (r *Repository) saveCheckpoint(cp *checkpoint) error {
	if err := r.store.Save(checkpointFile, cp); err != nil {
		return fmt.Errorf("save master list checkpoint: %w", err)
	}
	return nil
}

// clearCheckpoint removes the checkpoint after a completed build
func (r *Repository) clearCheckpoint() error {
	return r.store.Remove(checkpointFile)
}
