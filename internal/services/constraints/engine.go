// Package constraints enforces the store/seller cardinality rule and the
// global tax id uniqueness rule inside every mutating transaction.
package constraints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"sales_import/internal/models"
	"sales_import/internal/ports"
)

type SellerPolicy string

const (
	// PolicyReject refuses a sale whose seller is not assigned to its store.
	PolicyReject SellerPolicy = "reject"
	// PolicyFallback books the sale under the store's only seller when the
	// store has exactly one assignment, and rejects otherwise.
	PolicyFallback SellerPolicy = "fallback"
)

var ErrEmptyID = errors.New("empty identifier")

func ParsePolicy(s string) (SellerPolicy, error) {
	switch SellerPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyFallback:
		return PolicyFallback, nil
	default:
		return "", fmt.Errorf("unknown seller policy %q (use reject or fallback)", s)
	}
}

type Options struct {
	Policy SellerPolicy
	Cache  ports.Cache
	Logger *log.Logger
}

type Engine struct {
	store  ports.TxRunner
	cache  ports.Cache
	policy SellerPolicy
	log    *log.Logger
}

func NewEngine(store ports.TxRunner, opts Options) *Engine {
	if opts.Policy == "" {
		opts.Policy = PolicyReject
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Engine{
		store:  store,
		cache:  opts.Cache,
		policy: opts.Policy,
		log:    opts.Logger,
	}
}

func (e *Engine) Policy() SellerPolicy { return e.policy }

func StoreKey(id string) string { return "store:" + id }

func TaxKey(taxID string) string { return "tax:" + taxID }

func (e *Engine) CreateStore(ctx context.Context, id, name string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("store: %w", ErrEmptyID)
	}
	err := e.store.WithTx(ctx, []string{StoreKey(id)}, func(ctx context.Context, tx ports.Tx) error {
		return tx.UpsertStore(ctx, models.Store{ID: id, Name: strings.TrimSpace(name)})
	})
	if err != nil {
		return e.wrap(err)
	}
	e.invalidate(ctx, id)
	return nil
}

func (e *Engine) CreateSeller(ctx context.Context, id, name string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("seller: %w", ErrEmptyID)
	}
	err := e.store.WithTx(ctx, []string{"seller:" + id}, func(ctx context.Context, tx ports.Tx) error {
		return tx.UpsertSeller(ctx, models.Seller{ID: id, Name: strings.TrimSpace(name)})
	})
	return e.wrap(err)
}

// Assign links seller to store. Re-assigning an existing pair succeeds
// without changes. The store finalizes when it reaches MaxSellersPerStore.
func (e *Engine) Assign(ctx context.Context, storeID, sellerID string, force bool) error {
	err := e.store.WithTx(ctx, []string{StoreKey(storeID)}, func(ctx context.Context, tx ports.Tx) error {
		st, err := mustStore(ctx, tx, storeID)
		if err != nil {
			return err
		}
		return assignTx(ctx, tx, st, sellerID, force)
	})
	if err != nil {
		return e.wrap(err)
	}
	e.invalidate(ctx, storeID)
	return nil
}

// Unassign removes the pair. A finalized store stays finalized.
func (e *Engine) Unassign(ctx context.Context, storeID, sellerID string, force bool) error {
	err := e.store.WithTx(ctx, []string{StoreKey(storeID)}, func(ctx context.Context, tx ports.Tx) error {
		st, err := mustStore(ctx, tx, storeID)
		if err != nil {
			return err
		}
		if st.Finalized && !force {
			return models.ErrStoreFinalized
		}
		removed, err := tx.DeleteAssignment(ctx, models.Assignment{StoreID: storeID, SellerID: sellerID})
		if err != nil {
			return err
		}
		if !removed {
			return models.ErrSellerNotAssigned
		}
		return nil
	})
	if err != nil {
		return e.wrap(err)
	}
	e.invalidate(ctx, storeID)
	return nil
}

// Reassign swaps oldSellerID for newSellerID in one transaction. Removing the
// old pair is best-effort; the limit still applies to the new one.
func (e *Engine) Reassign(ctx context.Context, storeID, oldSellerID, newSellerID string, force bool) error {
	err := e.store.WithTx(ctx, []string{StoreKey(storeID)}, func(ctx context.Context, tx ports.Tx) error {
		st, err := mustStore(ctx, tx, storeID)
		if err != nil {
			return err
		}
		if st.Finalized && !force {
			return models.ErrStoreFinalized
		}
		if _, ok, err := tx.GetSeller(ctx, newSellerID); err != nil {
			return err
		} else if !ok {
			return models.ErrUnknownSeller
		}
		if oldSellerID != newSellerID {
			if _, err := tx.DeleteAssignment(ctx, models.Assignment{StoreID: storeID, SellerID: oldSellerID}); err != nil {
				return err
			}
		}
		return assignTx(ctx, tx, st, newSellerID, true)
	})
	if err != nil {
		return e.wrap(err)
	}
	e.invalidate(ctx, storeID)
	return nil
}

// SetFinalized locks or unlocks a store. Setting the current value is a no-op.
func (e *Engine) SetFinalized(ctx context.Context, storeID string, finalized bool) error {
	err := e.store.WithTx(ctx, []string{StoreKey(storeID)}, func(ctx context.Context, tx ports.Tx) error {
		st, err := mustStore(ctx, tx, storeID)
		if err != nil {
			return err
		}
		if st.Finalized == finalized {
			return nil
		}
		return tx.SetStoreFinalized(ctx, storeID, finalized)
	})
	if err != nil {
		return e.wrap(err)
	}
	e.invalidate(ctx, storeID)
	return nil
}

// RepairFinalized finalizes every open store that already holds the maximum
// number of sellers and returns the ids it changed.
func (e *Engine) RepairFinalized(ctx context.Context) ([]string, error) {
	stores, err := e.ListStores(ctx)
	if err != nil {
		return nil, err
	}

	var fixed []string
	for _, s := range stores {
		if s.Finalized {
			continue
		}
		changed := false
		err := e.store.WithTx(ctx, []string{StoreKey(s.ID)}, func(ctx context.Context, tx ports.Tx) error {
			pairs, err := tx.ListAssignments(ctx, s.ID)
			if err != nil {
				return err
			}
			if len(pairs) != models.MaxSellersPerStore {
				return nil
			}
			changed = true
			return tx.SetStoreFinalized(ctx, s.ID, true)
		})
		if err != nil {
			return fixed, e.wrap(err)
		}
		if changed {
			e.invalidate(ctx, s.ID)
			fixed = append(fixed, s.ID)
		}
	}
	return fixed, nil
}

// RecordSale persists sale after checking, in order, tax id uniqueness and the
// store/seller assignment. It returns the sale as stored, whose seller may
// differ from the input under PolicyFallback.
func (e *Engine) RecordSale(ctx context.Context, sale models.Sale) (models.Sale, error) {
	keys := []string{TaxKey(sale.TaxID), StoreKey(sale.StoreID)}
	err := e.store.WithTx(ctx, keys, func(ctx context.Context, tx ports.Tx) error {
		dup, err := tx.TaxIDExists(ctx, sale.TaxID)
		if err != nil {
			return err
		}
		if dup {
			return models.ErrDuplicateTaxIdentifier
		}

		if _, err := mustStore(ctx, tx, sale.StoreID); err != nil {
			return err
		}
		pairs, err := tx.ListAssignments(ctx, sale.StoreID)
		if err != nil {
			return err
		}
		if !hasSeller(pairs, sale.SellerID) {
			if e.policy != PolicyFallback || len(pairs) != 1 {
				return models.ErrSellerNotAssigned
			}
			e.log.Printf("[ENGINE] seller %s not assigned to store %s, booking under %s",
				sale.SellerID, sale.StoreID, pairs[0].SellerID)
			sale.SellerID = pairs[0].SellerID
		}

		return tx.InsertSale(ctx, sale)
	})
	if err != nil {
		return sale, e.wrap(err)
	}
	return sale, nil
}

// GetStore reads through the cache when one is configured.
func (e *Engine) GetStore(ctx context.Context, id string) (models.Store, bool, error) {
	if e.cache != nil {
		if raw, ok, err := e.cache.Get(ctx, StoreKey(id)); err != nil {
			e.log.Printf("[ENGINE] cache get %s: %v", id, err)
		} else if ok {
			var st models.Store
			if err := json.Unmarshal(raw, &st); err == nil {
				return st, true, nil
			}
		}
	}

	var (
		st    models.Store
		found bool
	)
	err := e.store.WithTx(ctx, nil, func(ctx context.Context, tx ports.Tx) error {
		var err error
		st, found, err = tx.GetStore(ctx, id)
		return err
	})
	if err != nil {
		return models.Store{}, false, e.wrap(err)
	}

	if found && e.cache != nil {
		if raw, err := json.Marshal(st); err == nil {
			if err := e.cache.Set(ctx, StoreKey(id), raw); err != nil {
				e.log.Printf("[ENGINE] cache set %s: %v", id, err)
			}
		}
	}
	return st, found, nil
}

func (e *Engine) GetSeller(ctx context.Context, id string) (models.Seller, bool, error) {
	var (
		sl    models.Seller
		found bool
	)
	err := e.store.WithTx(ctx, nil, func(ctx context.Context, tx ports.Tx) error {
		var err error
		sl, found, err = tx.GetSeller(ctx, id)
		return err
	})
	if err != nil {
		return models.Seller{}, false, e.wrap(err)
	}
	return sl, found, nil
}

func (e *Engine) ListStores(ctx context.Context) ([]models.Store, error) {
	var out []models.Store
	err := e.store.WithTx(ctx, nil, func(ctx context.Context, tx ports.Tx) error {
		var err error
		out, err = tx.ListStores(ctx)
		return err
	})
	return out, e.wrap(err)
}

// ListAssignments returns the pairs of storeID, or every pair when it is empty.
func (e *Engine) ListAssignments(ctx context.Context, storeID string) ([]models.Assignment, error) {
	var out []models.Assignment
	err := e.store.WithTx(ctx, nil, func(ctx context.Context, tx ports.Tx) error {
		var err error
		out, err = tx.ListAssignments(ctx, storeID)
		return err
	})
	return out, e.wrap(err)
}

func (e *Engine) CountSales(ctx context.Context) (int64, error) {
	var n int64
	err := e.store.WithTx(ctx, nil, func(ctx context.Context, tx ports.Tx) error {
		var err error
		n, err = tx.CountSales(ctx)
		return err
	})
	return n, e.wrap(err)
}

func assignTx(ctx context.Context, tx ports.Tx, st models.Store, sellerID string, force bool) error {
	if _, ok, err := tx.GetSeller(ctx, sellerID); err != nil {
		return err
	} else if !ok {
		return models.ErrUnknownSeller
	}

	pairs, err := tx.ListAssignments(ctx, st.ID)
	if err != nil {
		return err
	}
	if hasSeller(pairs, sellerID) {
		return nil
	}
	if len(pairs) >= models.MaxSellersPerStore {
		return models.ErrAssignmentLimitExceeded
	}
	if st.Finalized && !force {
		return models.ErrStoreFinalized
	}

	if err := tx.InsertAssignment(ctx, models.Assignment{StoreID: st.ID, SellerID: sellerID}); err != nil {
		return err
	}
	if len(pairs)+1 == models.MaxSellersPerStore && !st.Finalized {
		return tx.SetStoreFinalized(ctx, st.ID, true)
	}
	return nil
}

func mustStore(ctx context.Context, tx ports.Tx, id string) (models.Store, error) {
	st, ok, err := tx.GetStore(ctx, id)
	if err != nil {
		return models.Store{}, err
	}
	if !ok {
		return models.Store{}, models.ErrUnknownStore
	}
	return st, nil
}

func hasSeller(pairs []models.Assignment, sellerID string) bool {
	for _, p := range pairs {
		if p.SellerID == sellerID {
			return true
		}
	}
	return false
}

func (e *Engine) invalidate(ctx context.Context, storeID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Delete(ctx, StoreKey(storeID)); err != nil {
		e.log.Printf("[ENGINE] cache invalidate %s: %v", storeID, err)
	}
}

func (e *Engine) wrap(err error) error {
	if err == nil || models.IsDomain(err) || errors.Is(err, ErrEmptyID) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrStorageUnavailable, err)
}
