//go:build integration

package database_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sales_import/internal/config/connections/postgres"
	"sales_import/internal/models"
	"sales_import/internal/repository/database"
	"sales_import/internal/services/constraints"
	"sales_import/internal/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg     *postgres.Postgres
	engine *constraints.Engine
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgres(s.T())
	s.Require().NoError(database.Migrate(context.Background(), s.pg))
	s.engine = constraints.NewEngine(database.NewStore(s.pg), constraints.Options{})
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pg.Pool.Exec(context.Background(), `TRUNCATE sales, store_sellers, sellers, stores`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seed(stores []string, sellers []string) {
	ctx := context.Background()
	for _, id := range stores {
		s.Require().NoError(s.engine.CreateStore(ctx, id, "Loja "+id))
	}
	for _, id := range sellers {
		s.Require().NoError(s.engine.CreateSeller(ctx, id, "Vendedor "+id))
	}
}

func (s *PostgresStoreSuite) TestMigrateKeepsUnlockedStoresOpen() {
	ctx := context.Background()
	s.seed([]string{"L001"}, []string{"V001", "V002"})
	s.Require().NoError(s.engine.Assign(ctx, "L001", "V001", false))
	s.Require().NoError(s.engine.Assign(ctx, "L001", "V002", false))
	s.Require().NoError(s.engine.SetFinalized(ctx, "L001", false))

	s.Require().NoError(database.Migrate(ctx, s.pg))

	var finalized bool
	s.Require().NoError(s.pg.Pool.QueryRow(ctx, `SELECT finalized FROM stores WHERE id = 'L001'`).Scan(&finalized))
	s.False(finalized)
}

func (s *PostgresStoreSuite) TestLimitAndUnlockCycle() {
	ctx := context.Background()
	s.seed([]string{"L001"}, []string{"V001", "V002", "V003"})

	s.Require().NoError(s.engine.Assign(ctx, "L001", "V001", false))
	s.Require().NoError(s.engine.Assign(ctx, "L001", "V002", false))

	st, ok, err := s.engine.GetStore(ctx, "L001")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.True(st.Finalized)

	s.ErrorIs(s.engine.Assign(ctx, "L001", "V003", true), models.ErrAssignmentLimitExceeded)

	s.Require().NoError(s.engine.Unassign(ctx, "L001", "V002", true))
	s.Require().NoError(s.engine.SetFinalized(ctx, "L001", false))
	s.Require().NoError(s.engine.Assign(ctx, "L001", "V003", false))

	pairs, err := s.engine.ListAssignments(ctx, "L001")
	s.Require().NoError(err)
	s.Equal([]models.Assignment{
		{StoreID: "L001", SellerID: "V001"},
		{StoreID: "L001", SellerID: "V003"},
	}, pairs)
}

// TestConcurrentAssignHonoursLimit races many assigns on one store through
// separate pooled connections.
func (s *PostgresStoreSuite) TestConcurrentAssignHonoursLimit() {
	ctx := context.Background()
	const workers = 20

	sellers := make([]string, workers)
	for i := range sellers {
		sellers[i] = fmt.Sprintf("V%03d", i)
	}
	s.seed([]string{"L001"}, sellers)

	var wg sync.WaitGroup
	var ok, refused atomic.Int32
	for _, id := range sellers {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := s.engine.Assign(ctx, "L001", id, false)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, models.ErrAssignmentLimitExceeded), errors.Is(err, models.ErrStoreFinalized):
				refused.Add(1)
			default:
				s.Failf("unexpected error", "seller %s: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	s.Equal(int32(2), ok.Load())
	s.Equal(int32(workers-2), refused.Load())

	pairs, err := s.engine.ListAssignments(ctx, "L001")
	s.Require().NoError(err)
	s.Len(pairs, 2)
}

func (s *PostgresStoreSuite) TestConcurrentSalesKeepTaxIDUnique() {
	ctx := context.Background()
	s.seed([]string{"L001"}, []string{"V001"})
	s.Require().NoError(s.engine.Assign(ctx, "L001", "V001", false))

	const workers = 10
	var wg sync.WaitGroup
	var inserted, dup atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.engine.RecordSale(ctx, models.Sale{
				TaxID:        "12345678901",
				StoreID:      "L001",
				SellerID:     "V001",
				Quantity:     1,
				SaleDate:     time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
				PurchaseDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
				Errors:       []string{"invalid_phone"},
			})
			switch {
			case err == nil:
				inserted.Add(1)
			case errors.Is(err, models.ErrDuplicateTaxIdentifier):
				dup.Add(1)
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), inserted.Load())
	s.Equal(int32(workers-1), dup.Load())

	n, err := s.engine.CountSales(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}

func (s *PostgresStoreSuite) TestRepairFinalized() {
	ctx := context.Background()
	s.seed([]string{"L001", "L002"}, []string{"V001", "V002"})
	s.Require().NoError(s.engine.Assign(ctx, "L001", "V001", false))
	s.Require().NoError(s.engine.Assign(ctx, "L001", "V002", false))

	_, err := s.pg.Pool.Exec(ctx, `UPDATE stores SET finalized = FALSE WHERE id = 'L001'`)
	s.Require().NoError(err)

	fixed, err := s.engine.RepairFinalized(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"L001"}, fixed)
}
