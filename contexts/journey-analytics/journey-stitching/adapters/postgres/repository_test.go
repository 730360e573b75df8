package postgresadapter_test

import (
	"context"
	"os"
	"testing"

	postgresadapter "journeystitch/contexts/journey-analytics/journey-stitching/adapters/postgres"
	"journeystitch/contexts/journey-analytics/journey-stitching/adapters/storetest"
	"journeystitch/contexts/journey-analytics/journey-stitching/ports"
	"journeystitch/internal/platform/db"
)

// Runs against a disposable database: the documents table is truncated
// before every subtest.
func TestPostgresRepositoryContract(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	pg, err := db.Connect(ctx, dsn, db.PoolOptions{MaxOpenConns: 16, MaxIdleConns: 4})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = pg.Close() })

	repo := postgresadapter.NewRepository(pg.DB, nil)
	if err := repo.AutoMigrate(ctx); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	storetest.Run(t, func(t *testing.T) ports.DocumentStore {
		if err := pg.DB.WithContext(ctx).Exec("TRUNCATE TABLE journey_documents").Error; err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return repo
	})
}
