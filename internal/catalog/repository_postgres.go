package catalog

import (
	"database/sql"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const variantColumns = `"variantID", "productName", size, color, "unitPrice", "discountPercent", stock, "isActive", "lowStockThreshold", "createdAt", "updatedAt"`

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanVariant(s interface{ Scan(...interface{}) error }) (Variant, error) {
	var v Variant
	var size, color, createdAt, updatedAt sql.NullString
	if err := s.Scan(&v.ID, &v.ProductName, &size, &color, &v.UnitPrice, &v.DiscountPct, &v.Stock, &v.IsActive, &v.LowStockAt, &createdAt, &updatedAt); err != nil {
		return Variant{}, err
	}
	v.Size = size.String
	v.Color = color.String
	v.CreatedAt = createdAt.String
	v.UpdatedAt = updatedAt.String
	return v, nil
}

func (r *PostgresRepository) List() ([]Variant, error) {
	rows, err := r.db.Query(`SELECT ` + variantColumns + ` FROM variants ORDER BY "variantID"`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Variant, 0)
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetByID(id int) (Variant, error) {
	row := r.db.QueryRow(`SELECT `+variantColumns+` FROM variants WHERE "variantID" = $1`, id)
	v, err := scanVariant(row)
	if err == sql.ErrNoRows {
		return Variant{}, ErrNotFound
	}
	return v, err
}

func (r *PostgresRepository) ListByIDs(ids []int) ([]Variant, error) {
	if len(ids) == 0 {
		return []Variant{}, nil
	}
	rows, err := r.db.Query(`SELECT `+variantColumns+` FROM variants
        WHERE "variantID" = ANY($1::int[])
        ORDER BY array_position($1::int[], "variantID")`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Variant, 0, len(ids))
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(v Variant) (Variant, error) {
	err := r.db.QueryRow(`INSERT INTO variants ("productName", size, color, "unitPrice", "discountPercent", stock, "isActive", "lowStockThreshold", "createdAt", "updatedAt")
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
        RETURNING "variantID"`,
		v.ProductName, v.Size, v.Color, v.UnitPrice, v.DiscountPct, v.Stock, v.IsActive, v.LowStockAt).Scan(&v.ID)
	if err != nil {
		return Variant{}, err
	}
	return v, nil
}

// Update rewrites the descriptive fields. Stock is deliberately absent from
// the SET list: quantities only move through the stock ledger's atomic ops.
func (r *PostgresRepository) Update(id int, v Variant) (Variant, error) {
	res, err := r.db.Exec(`UPDATE variants
        SET "productName" = $1, size = $2, color = $3, "unitPrice" = $4, "discountPercent" = $5, "isActive" = $6, "lowStockThreshold" = $7, "updatedAt" = now()
        WHERE "variantID" = $8`,
		v.ProductName, v.Size, v.Color, v.UnitPrice, v.DiscountPct, v.IsActive, v.LowStockAt, id)
	if err != nil {
		return Variant{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Variant{}, ErrNotFound
	}
	return r.GetByID(id)
}
