package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/logistica-api/internal/domain"
	"github.com/jhoicas/logistica-api/internal/domain/entity"
	"github.com/jhoicas/logistica-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, code, name, category, unit_measure, stock_quantity, min_stock, max_stock, status, created_at, updated_at`

// ProductRepo catálogo sobre SQLite.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Pasar *sql.DB o *sql.Tx.
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create inserta el producto; un código ya existente devuelve ErrResolutionConflict.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO NOTHING`,
		p.ID, p.Code, p.Name, p.Category, p.UnitMeasure, p.StockQuantity.String(),
		fmtDecimalPtr(p.MinStock), fmtDecimalPtr(p.MaxStock), p.Status, fmtTime(p.CreatedAt), fmtTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrResolutionConflict
	}
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE code = ?`, code))
	if err != nil {
		return nil, fmt.Errorf("get product by code: %w", err)
	}
	return p, nil
}

// GetForUpdate en SQLite la transacción IMMEDIATE ya tiene el lock de escritura de la base.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *ProductRepo) UpdateStock(ctx context.Context, id string, quantity decimal.Decimal, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE products SET stock_quantity = ?, updated_at = ? WHERE id = ?`,
		quantity.String(), fmtTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("update product stock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepo) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY code LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collectProducts(rows)
}

// ListBelowMinimum filtra en Go: los decimales se guardan como TEXT y no se comparan en SQL.
func (r *ProductRepo) ListBelowMinimum(ctx context.Context, limit int) ([]*entity.Product, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE min_stock IS NOT NULL AND status = ?
		ORDER BY code`, entity.ProductStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list products below minimum: %w", err)
	}
	all, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}
	var list []*entity.Product
	for _, p := range all {
		if p.BelowMinimum() {
			list = append(list, p)
			if limit > 0 && len(list) == limit {
				break
			}
		}
	}
	return list, nil
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	var (
		p                    entity.Product
		minStock, maxStock   decimal.NullDecimal
		createdAt, updatedAt string
	)
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Category, &p.UnitMeasure, &p.StockQuantity,
		&minStock, &maxStock, &p.Status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.MinStock = decimalPtr(minStock)
	p.MaxStock = decimalPtr(maxStock)
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProducts(rows *sql.Rows) ([]*entity.Product, error) {
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
