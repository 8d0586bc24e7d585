package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"sales_import/internal/models"
	"sales_import/internal/ports"
)

//go:embed schema.sql
var schemaSQL string

const dateLayout = "2006-01-02"

// Store is the embedded constraint backend. The pool holds a single
// connection opened with immediate transactions, so every WithTx call takes
// the write lock up front and writers never interleave.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	dsn := path + "?_txlock=immediate&_foreign_keys=on&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) WithTx(ctx context.Context, _ []string, fn func(ctx context.Context, tx ports.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &sqlTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) GetStore(ctx context.Context, id string) (models.Store, bool, error) {
	var st models.Store
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, name, finalized FROM stores WHERE id = ?`, id,
	).Scan(&st.ID, &st.Name, &st.Finalized)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Store{}, false, nil
	}
	if err != nil {
		return models.Store{}, false, err
	}
	return st, true, nil
}

func (t *sqlTx) UpsertStore(ctx context.Context, st models.Store) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO stores (id, name, finalized) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = COALESCE(NULLIF(excluded.name, ''), stores.name),
			updated_at = datetime('now')
	`, st.ID, st.Name, st.Finalized)
	return err
}

func (t *sqlTx) SetStoreFinalized(ctx context.Context, id string, finalized bool) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE stores SET finalized = ?, updated_at = datetime('now') WHERE id = ?`, finalized, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrUnknownStore
	}
	return nil
}

func (t *sqlTx) ListStores(ctx context.Context) ([]models.Store, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id, name, finalized FROM stores ORDER BY id`)
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

func (t *sqlTx) GetSeller(ctx context.Context, id string) (models.Seller, bool, error) {
	var sl models.Seller
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, name FROM sellers WHERE id = ?`, id,
	).Scan(&sl.ID, &sl.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Seller{}, false, nil
	}
	if err != nil {
		return models.Seller{}, false, err
	}
	return sl, true, nil
}

func (t *sqlTx) UpsertSeller(ctx context.Context, sl models.Seller) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO sellers (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = COALESCE(NULLIF(excluded.name, ''), sellers.name),
			updated_at = datetime('now')
	`, sl.ID, sl.Name)
	return err
}

func (t *sqlTx) ListAssignments(ctx context.Context, storeID string) ([]models.Assignment, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT store_id, seller_id FROM store_sellers
		WHERE ? = '' OR store_id = ?
		ORDER BY store_id, seller_id
	`, storeID, storeID)
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

func (t *sqlTx) InsertAssignment(ctx context.Context, a models.Assignment) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO store_sellers (store_id, seller_id) VALUES (?, ?)`, a.StoreID, a.SellerID)
	return err
}

func (t *sqlTx) DeleteAssignment(ctx context.Context, a models.Assignment) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM store_sellers WHERE store_id = ? AND seller_id = ?`, a.StoreID, a.SellerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (t *sqlTx) TaxIDExists(ctx context.Context, taxID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sales WHERE cpf = ?)`, taxID,
	).Scan(&exists)
	return exists, err
}

func (t *sqlTx) InsertSale(ctx context.Context, s models.Sale) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO sales (
			cpf, customer_id, customer_name, birth_date, phone,
			store_id, seller_id, product_code, product_name,
			quantity, unit_amount, sale_date, purchase_date,
			payment_method, validation_tags
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.TaxID, s.CustomerID, s.CustomerName, dateText(s.BirthDate), s.Phone,
		s.StoreID, s.SellerID, s.ProductCode, s.ProductName,
		s.Quantity, s.UnitAmount, dateText(s.SaleDate), dateText(s.PurchaseDate),
		s.PaymentMethod, strings.Join(s.Errors, ","),
	)
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) && sqErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return models.ErrDuplicateTaxIdentifier
	}
	return err
}

func (t *sqlTx) CountSales(ctx context.Context) (int64, error) {
	var n int64
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales`).Scan(&n)
	return n, err
}

func dateText(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}
