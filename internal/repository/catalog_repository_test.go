package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"catalog-service/internal/importer"
)

// newMockCatalogRepository creates a CatalogRepository with a mocked SQL connection
func newMockCatalogRepository(t *testing.T) (*CatalogRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewCatalogRepository(gormDB), mock, mockDB
}

func TestCatalogRepositorySaveProduct(t *testing.T) {
	upsertPattern := `INSERT INTO products.*ON CONFLICT \(brand_id, source_url\) DO UPDATE SET.*RETURNING id, \(xmax = 0\) AS created`

	write := &importer.ProductWrite{
		BrandID:   uuid.New(),
		Slug:      "navy-dress",
		Name:      "Navy Dress",
		SourceURL: "https://shop.example.com/p/1",
		Currency:  "GBP",
	}

	t.Run("creates through a single upsert statement", func(t *testing.T) {
		repo, mock, mockDB := newMockCatalogRepository(t)
		defer mockDB.Close()

		productID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(upsertPattern).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created"}).AddRow(productID, true))
		mock.ExpectExec(`DELETE FROM "product_images" WHERE product_id = \$1`).
			WithArgs(productID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM "product_tags" WHERE product_id = \$1`).
			WithArgs(productID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		created, err := repo.SaveProduct(context.Background(), write)

		require.NoError(t, err)
		assert.True(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports update for a pre-existing row", func(t *testing.T) {
		repo, mock, mockDB := newMockCatalogRepository(t)
		defer mockDB.Close()

		productID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(upsertPattern).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created"}).AddRow(productID, false))
		mock.ExpectExec(`DELETE FROM "product_images" WHERE product_id = \$1`).
			WithArgs(productID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM "product_tags" WHERE product_id = \$1`).
			WithArgs(productID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		created, err := repo.SaveProduct(context.Background(), write)

		require.NoError(t, err)
		assert.False(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps connection faults as infrastructure errors", func(t *testing.T) {
		repo, mock, mockDB := newMockCatalogRepository(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(upsertPattern).WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		_, err := repo.SaveProduct(context.Background(), write)

		assert.Error(t, err)
		assert.True(t, importer.IsInfrastructureError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
