package database

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sales_import/internal/config/connections/postgres"
	"sales_import/internal/models"
	"sales_import/internal/ports"
)

const uniqueViolation = "23505"

// Store runs constraint transactions on postgres. Lock keys become
// transaction-scoped advisory locks taken in sorted order, so two
// transactions sharing a key queue behind each other without deadlocking.
type Store struct {
	pg *postgres.Postgres
}

func NewStore(pg *postgres.Postgres) *Store {
	return &Store{pg: pg}
}

func (s *Store) WithTx(ctx context.Context, keys []string, fn func(ctx context.Context, tx ports.Tx) error) error {
	tx, err := s.pg.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, k := range lockOrder(keys) {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, k); err != nil {
			return err
		}
	}

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Close() error {
	s.pg.Close()
	return nil
}

func lockOrder(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok || k == "" {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetStore(ctx context.Context, id string) (models.Store, bool, error) {
	var st models.Store
	err := t.tx.QueryRow(ctx,
		`SELECT id, name, finalized FROM stores WHERE id = $1`, id,
	).Scan(&st.ID, &st.Name, &st.Finalized)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Store{}, false, nil
	}
	if err != nil {
		return models.Store{}, false, err
	}
	return st, true, nil
}

func (t *pgTx) UpsertStore(ctx context.Context, st models.Store) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO stores (id, name, finalized, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), stores.name),
			updated_at = NOW()
	`, st.ID, st.Name, st.Finalized)
	return err
}

func (t *pgTx) SetStoreFinalized(ctx context.Context, id string, finalized bool) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE stores SET finalized = $2, updated_at = NOW() WHERE id = $1`, id, finalized)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUnknownStore
	}
	return nil
}

func (t *pgTx) ListStores(ctx context.Context) ([]models.Store, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, name, finalized FROM stores ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Store
	for rows.Next() {
		var st models.Store
		if err := rows.Scan(&st.ID, &st.Name, &st.Finalized); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (t *pgTx) GetSeller(ctx context.Context, id string) (models.Seller, bool, error) {
	var sl models.Seller
	err := t.tx.QueryRow(ctx,
		`SELECT id, name FROM sellers WHERE id = $1`, id,
	).Scan(&sl.ID, &sl.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Seller{}, false, nil
	}
	if err != nil {
		return models.Seller{}, false, err
	}
	return sl, true, nil
}

func (t *pgTx) UpsertSeller(ctx context.Context, sl models.Seller) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO sellers (id, name, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), sellers.name),
			updated_at = NOW()
	`, sl.ID, sl.Name)
	return err
}

func (t *pgTx) ListAssignments(ctx context.Context, storeID string) ([]models.Assignment, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT store_id, seller_id FROM store_sellers
		WHERE $1 = '' OR store_id = $1
		ORDER BY store_id, seller_id
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Assignment, 0)
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.StoreID, &a.SellerID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertAssignment(ctx context.Context, a models.Assignment) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO store_sellers (store_id, seller_id, created_at) VALUES ($1, $2, NOW())`,
		a.StoreID, a.SellerID)
	return err
}

func (t *pgTx) DeleteAssignment(ctx context.Context, a models.Assignment) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM store_sellers WHERE store_id = $1 AND seller_id = $2`,
		a.StoreID, a.SellerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) TaxIDExists(ctx context.Context, taxID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sales WHERE cpf = $1)`, taxID,
	).Scan(&exists)
	return exists, err
}

func (t *pgTx) InsertSale(ctx context.Context, s models.Sale) error {
	tags := s.Errors
	if tags == nil {
		tags = []string{}
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO sales (
			cpf, customer_id, customer_name, birth_date, phone,
			store_id, seller_id, product_code, product_name,
			quantity, unit_amount, sale_date, purchase_date,
			payment_method, validation_tags, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, NOW()
		)
	`,
		s.TaxID, s.CustomerID, s.CustomerName, nullDate(s.BirthDate), s.Phone,
		s.StoreID, s.SellerID, s.ProductCode, s.ProductName,
		s.Quantity, s.UnitAmount, nullDate(s.SaleDate), nullDate(s.PurchaseDate),
		s.PaymentMethod, tags,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.TableName == "sales" {
		return models.ErrDuplicateTaxIdentifier
	}
	return err
}

func (t *pgTx) CountSales(ctx context.Context) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM sales`).Scan(&n)
	return n, err
}
