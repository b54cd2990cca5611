package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-sync/internal/model"
)

// MemoryStore is an in-process Store and BackupStore. It backs dry runs
// that should exercise the full write path without a database.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*model.Product
	bySKU   map[string]int64
	backups map[string][]BackupRow
	order   []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[int64]*model.Product),
		bySKU:   make(map[string]int64),
		backups: make(map[string][]BackupRow),
	}
}

func cloneProduct(p *model.Product) *model.Product {
	cp := *p
	cp.RestrictedStates = append([]string(nil), p.RestrictedStates...)
	cp.Tags = append([]string(nil), p.Tags...)
	cp.Facets = p.Facets.Clone()
	return &cp
}

// FindBySKU implements Store.
func (m *MemoryStore) FindBySKU(_ context.Context, sku string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.bySKU[sku]
	if !ok {
		return nil, nil
	}
	return cloneProduct(m.byID[id]), nil
}

// Insert implements Store.
func (m *MemoryStore) Insert(_ context.Context, p *model.Product) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bySKU[p.SKU]; ok {
		return 0, eris.Wrapf(ErrPersistenceConflict, "catalog: insert sku %s", p.SKU)
	}
	m.nextID++
	cp := cloneProduct(p)
	cp.ID = m.nextID
	cp.UpdatedAt = time.Now().UTC()
	m.byID[cp.ID] = cp
	m.bySKU[cp.SKU] = cp.ID
	return cp.ID, nil
}

// Update implements Store.
func (m *MemoryStore) Update(_ context.Context, id int64, patch Patch) error {
	if err := patch.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return eris.Wrapf(ErrNotFound, "catalog: update product %d", id)
	}
	patch.applyTo(p)
	return nil
}

func matches(p *model.Product, filter ListFilter, want map[model.Category]bool) bool {
	if filter.ActiveOnly && !p.Active {
		return false
	}
	if filter.InactiveOnly && !filter.ActiveOnly && p.Active {
		return false
	}
	return len(want) == 0 || want[p.Category]
}

func categorySet(cats []model.Category) map[model.Category]bool {
	want := make(map[model.Category]bool, len(cats))
	for _, c := range cats {
		want[c] = true
	}
	return want
}

// Count implements Store.
func (m *MemoryStore) Count(_ context.Context, filter ListFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := categorySet(filter.Categories)
	n := 0
	for _, p := range m.byID {
		if matches(p, filter, want) {
			n++
		}
	}
	return n, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, filter ListFilter) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := categorySet(filter.Categories)
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}

	ids := make([]int64, 0, len(m.byID))
	for id := range m.byID {
		if id > filter.AfterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []model.Product
	for _, id := range ids {
		p := m.byID[id]
		if !matches(p, filter, want) {
			continue
		}
		out = append(out, *cloneProduct(p))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of stored products.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// SaveSnapshot implements BackupStore.
func (m *MemoryStore) SaveSnapshot(_ context.Context, batchID string, rows []BackupRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if _, ok := m.backups[batchID]; !ok {
		m.order = append(m.order, batchID)
	}
	existing := m.backups[batchID]
	at := make(map[int64]int, len(existing))
	for i, r := range existing {
		at[r.ProductID] = i
	}
	for _, r := range rows {
		r.BatchID = batchID
		r.CreatedAt = now
		if i, ok := at[r.ProductID]; ok {
			// keep the first pre-change state
			r.OldCategory, r.OldRegulated = existing[i].OldCategory, existing[i].OldRegulated
			existing[i] = r
			continue
		}
		at[r.ProductID] = len(existing)
		existing = append(existing, r)
	}
	m.backups[batchID] = existing
	return nil
}

// LoadSnapshot implements BackupStore.
func (m *MemoryStore) LoadSnapshot(_ context.Context, batchID string) ([]BackupRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BackupRow(nil), m.backups[batchID]...), nil
}

// Batches implements BackupStore, newest first.
func (m *MemoryStore) Batches(_ context.Context, limit int) ([]BatchInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []BatchInfo
	for i := len(m.order) - 1; i >= 0; i-- {
		rows := m.backups[m.order[i]]
		info := BatchInfo{BatchID: m.order[i], Rows: len(rows)}
		if len(rows) > 0 {
			info.CreatedAt = rows[0].CreatedAt
		}
		out = append(out, info)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
