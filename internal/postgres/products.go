package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-shop-orders/internal/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Products struct{ DB *pgxpool.Pool }

const productColumns = `id, sku, name, description, category, price::text, images, tags,
	vendor_id, stock, is_active, average_rating, created_at, updated_at`

func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var (
		p     catalog.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &price, &p.Images, &p.Tags,
		&p.VendorID, &p.Stock, &p.IsActive, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := parseDecimal(price)
	if err != nil {
		return nil, err
	}
	p.Price = d
	return &p, nil
}

func (s *Products) List(ctx context.Context, f catalog.Filter) ([]catalog.Product, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !f.IncludeInactive {
		where = append(where, "is_active")
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.VendorID != "" {
		add("vendor_id = $%d", f.VendorID)
	}
	if f.Search != "" {
		add("(name ILIKE $%[1]d OR description ILIKE $%[1]d)", "%"+f.Search+"%")
	}
	if f.MinPrice != nil {
		add("price >= $%d::numeric", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		add("price <= $%d::numeric", f.MaxPrice.String())
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	field, desc := f.SortKey()
	col, ok := catalog.SortColumns[field]
	if !ok {
		col = "created_at"
	}
	order := col
	if desc {
		order += " DESC"
	}
	args = append(args, f.Limit, f.Offset())
	q := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY %s, id LIMIT $%d OFFSET $%d`,
		productColumns, cond, order, len(args)-1, len(args))

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []catalog.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func (s *Products) Get(ctx context.Context, id string) (*catalog.Product, error) {
	p, err := scanProduct(s.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if noRows(err) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	rows, err := s.DB.Query(ctx, `SELECT user_id, rating, review, rated_at FROM product_ratings
		WHERE product_id = $1 ORDER BY rated_at`, id)
	if err != nil {
		return nil, fmt.Errorf("get ratings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r catalog.Rating
		if err := rows.Scan(&r.UserID, &r.Rating, &r.Review, &r.Date); err != nil {
			return nil, err
		}
		p.Ratings = append(p.Ratings, r)
	}
	return p, rows.Err()
}

func (s *Products) Create(ctx context.Context, p *catalog.Product) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO products (id, sku, name, description, category, price, images, tags,
			vendor_id, stock, is_active, average_rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, 0, $12, $13)`,
		p.ID, p.SKU, p.Name, p.Description, p.Category, p.Price.String(), nonNil(p.Images), nonNil(p.Tags),
		p.VendorID, p.Stock, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return catalog.ErrDuplicateSKU
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update writes everything except stock and ratings.
func (s *Products) Update(ctx context.Context, p *catalog.Product) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE products SET name = $2, description = $3, category = $4, price = $5::numeric,
			images = $6, tags = $7, is_active = $8, updated_at = $9
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Category, p.Price.String(), nonNil(p.Images), nonNil(p.Tags), p.IsActive, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *Products) Delete(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *Products) UpsertRating(ctx context.Context, productID string, r catalog.Rating) (*catalog.Product, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT true FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&exists); err != nil {
		if noRows(err) {
			return nil, catalog.ErrNotFound
		}
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO product_ratings (product_id, user_id, rating, review, rated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, user_id) DO UPDATE
		SET rating = EXCLUDED.rating, review = EXCLUDED.review, rated_at = EXCLUDED.rated_at`,
		productID, r.UserID, r.Rating, r.Review, r.Date); err != nil {
		return nil, fmt.Errorf("upsert rating: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE products SET average_rating =
			(SELECT COALESCE(AVG(rating), 0)::float8 FROM product_ratings WHERE product_id = $1)
		WHERE id = $1`, productID); err != nil {
		return nil, fmt.Errorf("update average rating: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.Get(ctx, productID)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
