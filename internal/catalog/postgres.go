package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/catalog-sync/internal/db"
	"github.com/sells-group/catalog-sync/internal/model"
)

const productColumns = `id, sku, upc, name, description, category, department_code, manufacturer,
	manufacturer_part_number, model, wholesale, msrp, map, price_bronze, price_gold, price_platinum,
	stock_quantity, in_stock, requires_regulated_transfer, may_drop_ship, ground_ship_only,
	adult_signature_required, prop65, restricted_states, weight, length, width, height, lifecycle,
	image_name, tags, facets, nfa_item_type, receiver_type, platform_category, subcategory,
	is_active, updated_at`

// insertColumns excludes id and updated_at, which the database assigns.
var insertColumns = []string{
	"sku", "upc", "name", "description", "category", "department_code", "manufacturer",
	"manufacturer_part_number", "model", "wholesale", "msrp", "map", "price_bronze", "price_gold",
	"price_platinum", "stock_quantity", "in_stock", "requires_regulated_transfer", "may_drop_ship",
	"ground_ship_only", "adult_signature_required", "prop65", "restricted_states", "weight",
	"length", "width", "height", "lifecycle", "image_name", "tags", "facets", "nfa_item_type",
	"receiver_type", "platform_category", "subcategory", "is_active",
}

// PostgresStore implements Store on the catalog.products table.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// FindBySKU implements Store.
func (s *PostgresStore) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM catalog.products WHERE sku = $1", sku)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "catalog: find sku %s", sku)
	}
	return p, nil
}

// Insert implements Store.
func (s *PostgresStore) Insert(ctx context.Context, p *model.Product) (int64, error) {
	facets, err := encodeFacets(p.Facets)
	if err != nil {
		return 0, err
	}

	placeholders := make([]string, len(insertColumns))
	for i := range insertColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	sql := fmt.Sprintf("INSERT INTO catalog.products (%s) VALUES (%s) RETURNING id",
		strings.Join(insertColumns, ", "), strings.Join(placeholders, ", "))

	var id int64
	err = s.pool.QueryRow(ctx, sql,
		p.SKU, p.UPC, p.Name, p.Description, string(p.Category), p.DepartmentCode, p.Manufacturer,
		p.ManufacturerPartNumber, p.Model, p.Wholesale, p.MSRP, p.MAP, p.Prices.Bronze, p.Prices.Gold,
		p.Prices.Platinum, p.StockQuantity, p.InStock, p.RequiresRegulatedTransfer, p.MayDropShip,
		p.GroundShipOnly, p.AdultSignatureRequired, p.Prop65, nonNil(p.RestrictedStates), p.Weight,
		p.Dimensions.Length, p.Dimensions.Width, p.Dimensions.Height, string(p.Lifecycle), p.ImageName,
		nonNil(p.Tags), facets, p.NFAItemType, p.ReceiverType, p.PlatformCategory, p.Subcategory,
		p.Active,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, eris.Wrapf(ErrPersistenceConflict, "catalog: insert sku %s", p.SKU)
		}
		return 0, eris.Wrapf(err, "catalog: insert sku %s", p.SKU)
	}
	return id, nil
}

// Update implements Store. Facets assignments merge into the stored
// document with stored keys taking precedence.
func (s *PostgresStore) Update(ctx context.Context, id int64, patch Patch) error {
	if patch.Empty() {
		return nil
	}
	if err := patch.validate(); err != nil {
		return err
	}

	var (
		sets []string
		args []any
	)
	for _, a := range patch.sets {
		args = append(args, a.val)
		n := len(args)
		if a.col == "facets" {
			data, err := encodeFacets(a.val.(model.Facets))
			if err != nil {
				return err
			}
			args[n-1] = data
			sets = append(sets, fmt.Sprintf("facets = $%d::jsonb || COALESCE(facets, '{}'::jsonb)", n))
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", a.col, n))
	}
	args = append(args, id)
	sql := fmt.Sprintf("UPDATE catalog.products SET %s, updated_at = now() WHERE id = $%d",
		strings.Join(sets, ", "), len(args))

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return eris.Wrapf(ErrPersistenceConflict, "catalog: update product %d", id)
		}
		return eris.Wrapf(err, "catalog: update product %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "catalog: update product %d", id)
	}
	return nil
}

// filterClause builds the WHERE conditions shared by List and Count.
func filterClause(filter ListFilter, keyset bool) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if keyset {
		args = append(args, filter.AfterID)
		where = append(where, fmt.Sprintf("id > $%d", len(args)))
	}
	if len(filter.Categories) > 0 {
		args = append(args, categoryStrings(filter.Categories))
		where = append(where, fmt.Sprintf("category = ANY($%d)", len(args)))
	}
	switch {
	case filter.ActiveOnly:
		where = append(where, "is_active")
	case filter.InactiveOnly:
		where = append(where, "NOT is_active")
	}
	return where, args
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]model.Product, error) {
	where, args := filterClause(filter, true)

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	args = append(args, limit)

	sql := fmt.Sprintf("SELECT %s FROM catalog.products WHERE %s ORDER BY id LIMIT $%d",
		productColumns, strings.Join(where, " AND "), len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: list products")
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, eris.Wrap(err, "catalog: scan product")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "catalog: iterate products")
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := filterClause(filter, false)
	sql := "SELECT count(*) FROM catalog.products"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	var n int
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "catalog: count products")
	}
	return n, nil
}

// CountByCategory returns active product counts per category.
func (s *PostgresStore) CountByCategory(ctx context.Context) (map[model.Category]int, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT category, count(*) FROM catalog.products WHERE is_active GROUP BY category")
	if err != nil {
		return nil, eris.Wrap(err, "catalog: count by category")
	}
	defer rows.Close()

	counts := make(map[model.Category]int)
	for rows.Next() {
		var (
			cat string
			n   int
		)
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, eris.Wrap(err, "catalog: scan category count")
		}
		counts[model.Category(cat)] = n
	}
	return counts, eris.Wrap(rows.Err(), "catalog: iterate category counts")
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p          model.Product
		category   string
		lifecycle  string
		facets     []byte
		updatedAt  time.Time
		restricted []string
		tags       []string
	)
	err := row.Scan(
		&p.ID, &p.SKU, &p.UPC, &p.Name, &p.Description, &category, &p.DepartmentCode, &p.Manufacturer,
		&p.ManufacturerPartNumber, &p.Model, &p.Wholesale, &p.MSRP, &p.MAP, &p.Prices.Bronze,
		&p.Prices.Gold, &p.Prices.Platinum, &p.StockQuantity, &p.InStock, &p.RequiresRegulatedTransfer,
		&p.MayDropShip, &p.GroundShipOnly, &p.AdultSignatureRequired, &p.Prop65, &restricted,
		&p.Weight, &p.Dimensions.Length, &p.Dimensions.Width, &p.Dimensions.Height, &lifecycle,
		&p.ImageName, &tags, &facets, &p.NFAItemType, &p.ReceiverType, &p.PlatformCategory,
		&p.Subcategory, &p.Active, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Category = model.Category(category)
	p.Lifecycle = model.Lifecycle(lifecycle)
	p.RestrictedStates = restricted
	p.Tags = tags
	p.UpdatedAt = updatedAt
	if p.Facets, err = decodeFacets(facets); err != nil {
		return nil, err
	}
	return &p, nil
}
