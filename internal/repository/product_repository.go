package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/Henri-Kulmala/ProductManager/internal/models"
)

var (
	ErrNotFound      = errors.New("product not found")
	ErrInvalidCursor = errors.New("invalid cursor")
)

// publicCacheKey caches the default first page of the public listing.
const publicCacheKey = "products:public:first"
const publicCacheTTL = 5 * time.Minute

const productColumns = `id, name, size, ingredients, allergens, photo_url, price, ean,
	producer, produced_in, e_codes, preservation, created_at, updated_at`

type ProductRepository struct {
	db    *sql.DB
	redis *redis.Client
}

// NewProductRepository wraps a postgres connection and an optional redis
// client. A nil redis client disables caching.
func NewProductRepository(db *sql.DB, redisClient *redis.Client) *ProductRepository {
	return &ProductRepository{db: db, redis: redisClient}
}

// EnsureSchema creates the products table and its indexes. The partial
// unique index on ean is what makes concurrent imports of the same new EAN
// collapse into a single row instead of double-creating.
func (r *ProductRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			size TEXT,
			ingredients TEXT,
			allergens TEXT,
			photo_url TEXT,
			price TEXT,
			ean TEXT,
			producer TEXT,
			produced_in TEXT,
			e_codes TEXT,
			preservation TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS products_ean_key ON products (ean) WHERE ean IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS products_created_at_idx ON products (created_at DESC, id DESC)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// List returns up to limit+1 products ordered by created_at DESC, id DESC,
// starting strictly after the row identified by cursor. The extra row lets
// the caller decide whether another page exists. A cursor pointing at a row
// that no longer exists yields ErrInvalidCursor.
func (r *ProductRepository) List(ctx context.Context, search string, limit int, cursor string) ([]models.Product, error) {
	var (
		conds []string
		args  []interface{}
	)

	if search != "" {
		pattern := "%" + escapeLike(search) + "%"
		args = append(args, pattern)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(name ILIKE $%d OR ingredients ILIKE $%d OR allergens ILIKE $%d OR ean ILIKE $%d)`,
			n, n, n, n))
	}

	if cursor != "" {
		var createdAt time.Time
		err := r.db.QueryRowContext(ctx,
			`SELECT created_at FROM products WHERE id = $1`, cursor).Scan(&createdAt)
		if err == sql.ErrNoRows {
			return nil, ErrInvalidCursor
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cursor: %w", err)
		}
		args = append(args, createdAt, cursor)
		conds = append(conds, fmt.Sprintf(`(created_at, id) < ($%d, $%d)`, len(args)-1, len(args)))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	args = append(args, limit+1)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// ListPublic is List with a redis cache in front of the default first page,
// which is what the storefront hits on every visit. Filtered and paginated
// requests go straight to the database.
func (r *ProductRepository) ListPublic(ctx context.Context, search string, limit int, cursor string) ([]models.Product, error) {
	cacheable := r.redis != nil && search == "" && cursor == ""
	cacheKey := fmt.Sprintf("%s:%d", publicCacheKey, limit)

	if cacheable {
		if cached, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var products []models.Product
			if err := json.Unmarshal([]byte(cached), &products); err == nil {
				return products, nil
			}
		}
	}

	products, err := r.List(ctx, search, limit, cursor)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if data, err := json.Marshal(products); err == nil {
			r.redis.Set(ctx, cacheKey, data, publicCacheTTL)
		}
	}
	return products, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// FindByEAN returns (nil, nil) when no product carries the EAN.
func (r *ProductRepository) FindByEAN(ctx context.Context, ean string) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE ean = $1 LIMIT 1`, ean)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product by ean: %w", err)
	}
	return p, nil
}

// FindByName matches the name exactly but case-insensitively and returns
// (nil, nil) when nothing matches.
func (r *ProductRepository) FindByName(ctx context.Context, name string) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE LOWER(name) = LOWER($1) LIMIT 1`, name)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product by name: %w", err)
	}
	return p, nil
}

// Create inserts a product. When the input carries an EAN that already
// exists the insert degrades into an update of that row, so two concurrent
// imports of the same new EAN cannot double-create.
func (r *ProductRepository) Create(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO products (id, name, size, ingredients, allergens, photo_url, price, ean,
		                      producer, produced_in, e_codes, preservation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (ean) WHERE ean IS NOT NULL DO UPDATE SET
			name = EXCLUDED.name,
			size = EXCLUDED.size,
			ingredients = EXCLUDED.ingredients,
			allergens = EXCLUDED.allergens,
			photo_url = EXCLUDED.photo_url,
			price = EXCLUDED.price,
			producer = EXCLUDED.producer,
			produced_in = EXCLUDED.produced_in,
			e_codes = EXCLUDED.e_codes,
			preservation = EXCLUDED.preservation,
			updated_at = NOW()
		RETURNING `+productColumns,
		uuid.New().String(), in.Name,
		nullString(in.Size), nullString(in.Ingredients), nullString(in.Allergens),
		nullString(in.PhotoURL), nullString(in.Price), nullString(in.EAN),
		nullString(in.Producer), nullString(in.ProducedIn), nullString(in.ECodes),
		nullString(in.Preservation))

	p, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	r.invalidateCache(ctx)
	return p, nil
}

// UpdateFields overwrites every field of an existing product with the
// candidate's values. The stored EAN is kept when the candidate has none.
func (r *ProductRepository) UpdateFields(ctx context.Context, id string, in models.ProductInput) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE products SET
			name = $2,
			size = $3,
			ingredients = $4,
			allergens = $5,
			photo_url = $6,
			price = $7,
			ean = COALESCE(NULLIF($8, ''), ean),
			producer = $9,
			produced_in = $10,
			e_codes = $11,
			preservation = $12,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+productColumns,
		id, in.Name,
		nullString(in.Size), nullString(in.Ingredients), nullString(in.Allergens),
		nullString(in.PhotoURL), nullString(in.Price), in.EAN,
		nullString(in.Producer), nullString(in.ProducedIn), nullString(in.ECodes),
		nullString(in.Preservation))

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	r.invalidateCache(ctx)
	return p, nil
}

// Patch updates only the fields present in the partial update.
func (r *ProductRepository) Patch(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id}

	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, nullString(*value))
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		args = append(args, *patch.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	add("size", patch.Size)
	add("ingredients", patch.Ingredients)
	add("allergens", patch.Allergens)
	add("photo_url", patch.PhotoURL)
	add("price", patch.Price)
	add("ean", patch.EAN)
	add("producer", patch.Producer)
	add("produced_in", patch.ProducedIn)
	add("e_codes", patch.ECodes)
	add("preservation", patch.Preservation)

	query := `UPDATE products SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + productColumns

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to patch product: %w", err)
	}
	r.invalidateCache(ctx)
	return p, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	r.invalidateCache(ctx)
	return nil
}

func (r *ProductRepository) invalidateCache(ctx context.Context) {
	if r.redis == nil {
		return
	}
	iter := r.redis.Scan(ctx, 0, publicCacheKey+":*", 0).Iterator()
	for iter.Next(ctx) {
		r.redis.Del(ctx, iter.Val())
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var size, ingredients, allergens, photoURL sql.NullString
	var price, ean, producer, producedIn sql.NullString
	var eCodes, preservation sql.NullString
	err := row.Scan(&p.ID, &p.Name, &size, &ingredients, &allergens, &photoURL,
		&price, &ean, &producer, &producedIn, &eCodes, &preservation,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Size = fromNull(size)
	p.Ingredients = fromNull(ingredients)
	p.Allergens = fromNull(allergens)
	p.PhotoURL = fromNull(photoURL)
	p.Price = fromNull(price)
	p.EAN = fromNull(ean)
	p.Producer = fromNull(producer)
	p.ProducedIn = fromNull(producedIn)
	p.ECodes = fromNull(eCodes)
	p.Preservation = fromNull(preservation)
	return &p, nil
}

// nullString maps "" to NULL so optional columns stay nullable.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
