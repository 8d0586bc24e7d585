package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sales_import/internal/models"
	"sales_import/internal/ports"
)

// Store keeps every entity in maps guarded by one mutex. A transaction holds
// the mutex for its whole closure, so concurrent check-then-write sequences
// are serialized regardless of their lock keys.
type Store struct {
	mu sync.Mutex

	stores      map[string]models.Store
	sellers     map[string]models.Seller
	assignments map[string]map[string]struct{} // store -> seller set
	sales       map[string]models.Sale         // tax id -> sale
}

func New() *Store {
	return &Store{
		stores:      make(map[string]models.Store),
		sellers:     make(map[string]models.Seller),
		assignments: make(map[string]map[string]struct{}),
		sales:       make(map[string]models.Sale),
	}
}

func (s *Store) WithTx(ctx context.Context, _ []string, fn func(ctx context.Context, tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) Close() error { return nil }

// memTx writes straight into the maps and records an undo step per write.
type memTx struct {
	s    *Store
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) GetStore(_ context.Context, id string) (models.Store, bool, error) {
	st, ok := t.s.stores[id]
	return st, ok, nil
}

func (t *memTx) UpsertStore(_ context.Context, st models.Store) error {
	prev, existed := t.s.stores[st.ID]
	next := st
	if existed {
		next.Finalized = prev.Finalized
		if next.Name == "" {
			next.Name = prev.Name
		}
	}
	t.s.stores[st.ID] = next
	t.undo = append(t.undo, func() {
		if existed {
			t.s.stores[st.ID] = prev
		} else {
			delete(t.s.stores, st.ID)
		}
	})
	return nil
}

func (t *memTx) SetStoreFinalized(_ context.Context, id string, finalized bool) error {
	prev, ok := t.s.stores[id]
	if !ok {
		return models.ErrUnknownStore
	}
	next := prev
	next.Finalized = finalized
	t.s.stores[id] = next
	t.undo = append(t.undo, func() { t.s.stores[id] = prev })
	return nil
}

func (t *memTx) ListStores(_ context.Context) ([]models.Store, error) {
	out := make([]models.Store, 0, len(t.s.stores))
	for _, st := range t.s.stores {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) GetSeller(_ context.Context, id string) (models.Seller, bool, error) {
	sl, ok := t.s.sellers[id]
	return sl, ok, nil
}

func (t *memTx) UpsertSeller(_ context.Context, sl models.Seller) error {
	prev, existed := t.s.sellers[sl.ID]
	next := sl
	if existed && next.Name == "" {
		next.Name = prev.Name
	}
	t.s.sellers[sl.ID] = next
	t.undo = append(t.undo, func() {
		if existed {
			t.s.sellers[sl.ID] = prev
		} else {
			delete(t.s.sellers, sl.ID)
		}
	})
	return nil
}

func (t *memTx) ListAssignments(_ context.Context, storeID string) ([]models.Assignment, error) {
	out := make([]models.Assignment, 0)
	for store, sellers := range t.s.assignments {
		if storeID != "" && store != storeID {
			continue
		}
		for seller := range sellers {
			out = append(out, models.Assignment{StoreID: store, SellerID: seller})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StoreID != out[j].StoreID {
			return out[i].StoreID < out[j].StoreID
		}
		return out[i].SellerID < out[j].SellerID
	})
	return out, nil
}

func (t *memTx) InsertAssignment(_ context.Context, a models.Assignment) error {
	set, ok := t.s.assignments[a.StoreID]
	if !ok {
		set = make(map[string]struct{})
		t.s.assignments[a.StoreID] = set
	}
	if _, dup := set[a.SellerID]; dup {
		return fmt.Errorf("assignment %s/%s already exists", a.StoreID, a.SellerID)
	}
	set[a.SellerID] = struct{}{}
	t.undo = append(t.undo, func() { delete(t.s.assignments[a.StoreID], a.SellerID) })
	return nil
}

func (t *memTx) DeleteAssignment(_ context.Context, a models.Assignment) (bool, error) {
	set, ok := t.s.assignments[a.StoreID]
	if !ok {
		return false, nil
	}
	if _, ok := set[a.SellerID]; !ok {
		return false, nil
	}
	delete(set, a.SellerID)
	t.undo = append(t.undo, func() { t.s.assignments[a.StoreID][a.SellerID] = struct{}{} })
	return true, nil
}

func (t *memTx) TaxIDExists(_ context.Context, taxID string) (bool, error) {
	_, ok := t.s.sales[taxID]
	return ok, nil
}

func (t *memTx) InsertSale(_ context.Context, sale models.Sale) error {
	if _, dup := t.s.sales[sale.TaxID]; dup {
		return models.ErrDuplicateTaxIdentifier
	}
	t.s.sales[sale.TaxID] = sale
	t.undo = append(t.undo, func() { delete(t.s.sales, sale.TaxID) })
	return nil
}

func (t *memTx) CountSales(_ context.Context) (int64, error) {
	return int64(len(t.s.sales)), nil
}
