package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-sync/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var productRowColumns = []string{
	"id", "sku", "upc", "name", "description", "category", "department_code", "manufacturer",
	"manufacturer_part_number", "model", "wholesale", "msrp", "map", "price_bronze", "price_gold",
	"price_platinum", "stock_quantity", "in_stock", "requires_regulated_transfer", "may_drop_ship",
	"ground_ship_only", "adult_signature_required", "prop65", "restricted_states", "weight", "length",
	"width", "height", "lifecycle", "image_name", "tags", "facets", "nfa_item_type", "receiver_type",
	"platform_category", "subcategory", "is_active", "updated_at",
}

func productRow(id int64, sku string, cat model.Category, facets string) []any {
	return []any{
		id, sku, "764503022616", "Glock G17 Gen5 9mm", "Striker fired pistol", string(cat), "01", "Glock",
		"PA175S203", "G17 GEN5", 499.0, 699.0, 599.0, 699.0, 599.0, 523.95,
		12, true, true, true,
		false, true, false, []string{"CA", "MA"}, 2.1, 9.5, 6.4, 2.1,
		"", "GLPA175S203.jpg", []string{"9mm", "Handguns"}, []byte(facets), "", "",
		"", "Pistols", true, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresStore(mock)
}

func TestPostgresStore_FindBySKU(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM catalog\.products WHERE sku = \$1`).
		WithArgs("GLPA175S203").
		WillReturnRows(pgxmock.NewRows(productRowColumns).
			AddRow(productRow(7, "GLPA175S203", model.CategoryHandguns, `{"caliber":"9mm"}`)...))

	p, err := store.FindBySKU(context.Background(), "GLPA175S203")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, model.CategoryHandguns, p.Category)
	assert.Equal(t, []string{"CA", "MA"}, p.RestrictedStates)
	assert.Equal(t, "9mm", p.Facets[model.FacetCaliber])
	assert.InDelta(t, 523.95, p.Prices.Platinum, 0.001)
	assert.True(t, p.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindBySKUMissing(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM catalog\.products WHERE sku = \$1`).
		WithArgs("NOPE").
		WillReturnError(pgx.ErrNoRows)

	p, err := store.FindBySKU(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPostgresStore_InsertReturnsID(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO catalog\.products \(sku, upc, .+\) VALUES \(\$1, .+\$36\) RETURNING id`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := store.Insert(context.Background(), &model.Product{SKU: "ABC", Category: model.CategoryRifles})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertUniqueViolation(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO catalog\.products`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	_, err := store.Insert(context.Background(), &model.Product{SKU: "ABC"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistenceConflict))
}

func TestPostgresStore_UpdateBuildsAssignments(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec(`UPDATE catalog\.products SET category = \$1, requires_regulated_transfer = \$2, updated_at = now\(\) WHERE id = \$3`).
		WithArgs("NFA Products", true, int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.Update(context.Background(), 9, CategoryPatch(model.CategoryNFA, true))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateMergesFacets(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec(`SET facets = \$1::jsonb \|\| COALESCE\(facets, '\{\}'::jsonb\), updated_at = now\(\) WHERE id = \$2`).
		WithArgs([]byte(`{"finish":"Black"}`), int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.Update(context.Background(), 3, FacetsPatch(model.Facets{model.FacetFinish: "Black"}))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateMissingRow(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec(`UPDATE catalog\.products`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Update(context.Background(), 99, QuantityPatch(3))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPostgresStore_UpdateRejectsUnknownColumn(t *testing.T) {
	_, store := newMockStore(t)

	err := store.Update(context.Background(), 1, Patch{}.Set("id", 5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "id" cannot be patched`)
}

func TestPostgresStore_UpdateEmptyPatchIsNoop(t *testing.T) {
	mock, store := newMockStore(t)
	require.NoError(t, store.Update(context.Background(), 1, Patch{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListFilters(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`WHERE id > \$1 AND category = ANY\(\$2\) AND is_active ORDER BY id LIMIT \$3`).
		WithArgs(int64(10), []string{"Accessories", "Handguns"}, 2).
		WillReturnRows(pgxmock.NewRows(productRowColumns).
			AddRow(productRow(11, "A", model.CategoryHandguns, `{}`)...).
			AddRow(productRow(12, "B", model.CategoryAccessories, ``)...))

	got, err := store.List(context.Background(), ListFilter{
		AfterID:    10,
		Limit:      2,
		Categories: []model.Category{model.CategoryHandguns, model.CategoryAccessories},
		ActiveOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].SKU)
	assert.Equal(t, model.CategoryAccessories, got[1].Category)
	assert.NotNil(t, got[1].Facets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListInactiveOnly(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`WHERE id > \$1 AND NOT is_active ORDER BY id LIMIT \$2`).
		WithArgs(int64(0), 50).
		WillReturnRows(pgxmock.NewRows(productRowColumns).
			AddRow(productRow(3, "GONE", model.CategoryOptics, `{}`)...))

	got, err := store.List(context.Background(), ListFilter{Limit: 50, InactiveOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "GONE", got[0].SKU)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListDefaultLimit(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`WHERE id > \$1 ORDER BY id LIMIT \$2`).
		WithArgs(int64(0), 500).
		WillReturnRows(pgxmock.NewRows(productRowColumns))

	got, err := store.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPostgresStore_Count(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM catalog\.products WHERE is_active$`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1234))

	n, err := store.Count(context.Background(), ListFilter{AfterID: 50, Limit: 5, ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1234, n)
}

func TestPostgresStore_CountByCategory(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`SELECT category, count\(\*\) FROM catalog\.products`).
		WillReturnRows(pgxmock.NewRows([]string{"category", "count"}).
			AddRow("Handguns", 120).
			AddRow("Optics", 64))

	counts, err := store.CountByCategory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, counts[model.CategoryHandguns])
	assert.Equal(t, 64, counts[model.CategoryOptics])
}

func expectBackupUpsert(mock pgxmock.PgxPoolIface, copied, merged int64) {
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE .* \(LIKE "catalog"\."category_backups"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"pg_temp", "_upsert_catalog_category_backups"}, backupColumns).
		WillReturnResult(copied)
	mock.ExpectExec(`ON CONFLICT \("batch_id", "product_id"\) DO UPDATE SET "sku" = EXCLUDED\."sku"`).
		WillReturnResult(pgxmock.NewResult("INSERT", merged))
	mock.ExpectCommit()
}

func TestPostgresBackupStore_SaveSnapshotUpserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectBackupUpsert(mock, 2, 2)

	store := NewPostgresBackupStore(mock)
	err = store.SaveSnapshot(context.Background(), "b-1", []BackupRow{
		{ProductID: 1, SKU: "A", OldCategory: model.CategoryAccessories, NewCategory: model.CategoryNFA},
		{ProductID: 2, SKU: "B", OldCategory: model.CategoryAccessories, NewCategory: model.CategoryHandguns},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackupStore_SaveSnapshotShortWrite(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectBackupUpsert(mock, 2, 1)

	store := NewPostgresBackupStore(mock)
	err = store.SaveSnapshot(context.Background(), "b-1", []BackupRow{{ProductID: 1}, {ProductID: 2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stored 1 of 2 rows")
}

func TestPostgresBackupStore_LoadSnapshot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM catalog.category_backups WHERE batch_id").
		WithArgs("b-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"batch_id", "product_id", "sku", "name", "old_category", "old_regulated", "new_category", "reason", "created_at",
		}).AddRow("b-1", int64(5), "SUP1", "Sound Suppressor", "Accessories", false, "NFA Products", "NFA indicators", created))

	rows, err := NewPostgresBackupStore(mock).LoadSnapshot(context.Background(), "b-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.CategoryAccessories, rows[0].OldCategory)
	assert.Equal(t, model.CategoryNFA, rows[0].NewCategory)
	assert.Equal(t, created, rows[0].CreatedAt)
}

func TestPostgresBackupStore_Batches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("GROUP BY batch_id").
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows([]string{"batch_id", "count", "min"}).
			AddRow("b-2", 500, time.Now()).
			AddRow("b-1", 12, time.Now()))

	batches, err := NewPostgresBackupStore(mock).Batches(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, 500, batches[0].Rows)
}
