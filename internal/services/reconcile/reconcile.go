// Package reconcile makes sure every store, seller and pairing a batch
// references exists before its sales are inserted.
package reconcile

import (
	"context"
	"errors"
	"log"
	"strings"

	"golang.org/x/text/unicode/norm"

	"sales_import/internal/models"
	"sales_import/internal/services/constraints"
)

type Result struct {
	Stores   int
	Sellers  int
	Pairs    int
	Assigned int
	Warnings int
}

func (r *Result) Add(o Result) {
	r.Stores += o.Stores
	r.Sellers += o.Sellers
	r.Pairs += o.Pairs
	r.Assigned += o.Assigned
	r.Warnings += o.Warnings
}

type Reconciler struct {
	engine *constraints.Engine
	log    *log.Logger
}

func New(engine *constraints.Engine, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{engine: engine, log: logger}
}

type entity struct {
	id   string
	name string
}

// Reconcile upserts the distinct stores and sellers of rows and then assigns
// their pairs in order of first appearance. Pairs the limit or a finalized
// store refuses are counted as warnings; only storage failures are returned.
func (r *Reconciler) Reconcile(ctx context.Context, rows []map[string]string) (Result, error) {
	var res Result

	stores, sellers, pairs := extract(rows)
	res.Stores, res.Sellers, res.Pairs = len(stores), len(sellers), len(pairs)

	for _, s := range stores {
		if err := r.engine.CreateStore(ctx, s.id, s.name); err != nil {
			return res, err
		}
	}
	for _, s := range sellers {
		if err := r.engine.CreateSeller(ctx, s.id, s.name); err != nil {
			return res, err
		}
	}

	for _, p := range pairs {
		err := r.engine.Assign(ctx, p.StoreID, p.SellerID, false)
		switch {
		case err == nil:
			res.Assigned++
		case errors.Is(err, models.ErrStorageUnavailable):
			return res, err
		default:
			res.Warnings++
			r.log.Printf("[RECON][WARN] store=%s seller=%s: %v", p.StoreID, p.SellerID, err)
		}
	}

	if res.Warnings > 0 {
		r.log.Printf("[RECON] stores=%d sellers=%d pairs=%d assigned=%d warnings=%d",
			res.Stores, res.Sellers, res.Pairs, res.Assigned, res.Warnings)
	}
	return res, nil
}

func extract(rows []map[string]string) (stores, sellers []entity, pairs []models.Assignment) {
	storeIdx := map[string]int{}
	sellerIdx := map[string]int{}
	seenPair := map[models.Assignment]struct{}{}

	add := func(list *[]entity, idx map[string]int, id, name string) {
		if i, ok := idx[id]; ok {
			if (*list)[i].name == "" {
				(*list)[i].name = name
			}
			return
		}
		idx[id] = len(*list)
		*list = append(*list, entity{id: id, name: name})
	}

	for _, row := range rows {
		storeID := strings.TrimSpace(row[models.ColStoreID])
		sellerID := strings.TrimSpace(row[models.ColSellerID])

		if storeID != "" {
			add(&stores, storeIdx, storeID, NormalizeName(row[models.ColStoreName]))
		}
		if sellerID != "" {
			add(&sellers, sellerIdx, sellerID, NormalizeName(row[models.ColSellerName]))
		}
		if storeID != "" && sellerID != "" {
			p := models.Assignment{StoreID: storeID, SellerID: sellerID}
			if _, ok := seenPair[p]; !ok {
				seenPair[p] = struct{}{}
				pairs = append(pairs, p)
			}
		}
	}
	return stores, sellers, pairs
}

// NormalizeName composes the name to NFC and collapses runs of whitespace.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
