package screening

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/pkg/jsonstore"
)

const screeningDir = "screening_lists"

// Repository persists screening lists, one file per size
type Repository struct {
	store *jsonstore.Store
}

// NewRepository creates a new Repository instance
func NewRepository(store *jsonstore.Store) *Repository {
	return &Repository{store: store}
}

func fileName(size int) string {
	return filepath.Join(screeningDir, fmt.Sprintf("top_%d.json", size))
}

// Save atomically replaces the list file for the requested size.
// The stored Size field is the actual count, which can be smaller
// when the master list runs short.
func (r *Repository) Save(list *contracts.ScreeningList, requestedSize int) error {
	if err := r.store.Save(fileName(requestedSize), list); err != nil {
		return fmt.Errorf("save screening list: %w", err)
	}
	return nil
}

// Age returns how long ago the list for the given size was written
func (r *Repository) Age(size int) (time.Duration, error) {
	return r.store.Age(fileName(size))
}

// Load reads the list for the given size. Returns
// jsonstore.ErrNotFound when none exists.
func (r *Repository) Load(size int) (*contracts.ScreeningList, error) {
	var list contracts.ScreeningList
	if err := r.store.Load(fileName(size), &list); err != nil {
		return nil, fmt.Errorf("load screening list: %w", err)
	}
	return &list, nil
}
