package scraper

import (
	"fmt"
	"sync"

	"shopscraper/pkg/errors"
	"shopscraper/pkg/models"
)

// Aggregate maps category keys to their records. Each key is written once;
// the lock is held only for the insert.
type Aggregate struct {
	mu       sync.Mutex
	products map[string][]models.ProductRecord
	order    []string
}

// NewAggregate creates an empty aggregate
func NewAggregate() *Aggregate {
	return &Aggregate{products: make(map[string][]models.ProductRecord)}
}

// Put stores the records of one category. A second Put for the same key
// fails with errors.ErrDuplicateCategory and leaves the first write intact.
func (a *Aggregate) Put(key string, records []models.ProductRecord) error {
	if records == nil {
		records = []models.ProductRecord{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.products[key]; ok {
		return fmt.Errorf("%w: %s", errors.ErrDuplicateCategory, key)
	}
	a.products[key] = records
	a.order = append(a.order, key)
	return nil
}

// Len returns the number of categories stored
func (a *Aggregate) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.products)
}

// Keys returns category keys in the order they were stored
func (a *Aggregate) Keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	keys := make([]string, len(a.order))
	copy(keys, a.order)
	return keys
}

// Snapshot returns a copy of the category map
func (a *Aggregate) Snapshot() map[string][]models.ProductRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string][]models.ProductRecord, len(a.products))
	for k, v := range a.products {
		out[k] = v
	}
	return out
}
