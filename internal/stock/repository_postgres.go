package stock

import (
	"database/sql"
	"fmt"

	"github.com/storefrontlab/storefront-backend/internal/catalog"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) journal(variantID int, typ MovementType, qty, before, after int, ref string) (Movement, error) {
	m := Movement{
		VariantID:   variantID,
		Type:        typ,
		Quantity:    qty,
		StockBefore: before,
		StockAfter:  after,
		OrderRef:    ref,
	}
	err := r.db.QueryRow(`INSERT INTO inventory_movements ("variantID", type, quantity, "stockBefore", "stockAfter", "orderRef", "createdAt")
        VALUES ($1,$2,$3,$4,$5,$6,now())
        RETURNING "movementID", "createdAt"::text`,
		variantID, string(typ), qty, before, after, ref).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		// the stock delta already applied; surface the journaling failure
		return m, fmt.Errorf("%w for variant %d: %v", ErrJournal, variantID, err)
	}
	return m, nil
}

// Reserve decrements stock only when enough remains. The check lives in the
// UPDATE's WHERE clause so concurrent server processes cannot oversell.
func (r *PostgresRepository) Reserve(variantID, qty int, ref string) (Movement, error) {
	var after int
	err := r.db.QueryRow(`UPDATE variants
        SET stock = stock - $1, "updatedAt" = now()
        WHERE "variantID" = $2 AND stock >= $1
        RETURNING stock`, qty, variantID).Scan(&after)
	if err == sql.ErrNoRows {
		// zero rows is either a missing variant or not enough stock
		var exists bool
		if err2 := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM variants WHERE "variantID" = $1)`, variantID).Scan(&exists); err2 != nil {
			return Movement{}, err2
		}
		if !exists {
			return Movement{}, ErrVariantNotFound
		}
		return Movement{}, ErrInsufficientStock
	}
	if err != nil {
		return Movement{}, err
	}
	return r.journal(variantID, MovementSale, qty, after+qty, after, ref)
}

// Release increments unconditionally (cancellation, return, restock).
func (r *PostgresRepository) Release(variantID, qty int, typ MovementType, ref string) (Movement, error) {
	var after int
	err := r.db.QueryRow(`UPDATE variants
        SET stock = stock + $1, "updatedAt" = now()
        WHERE "variantID" = $2
        RETURNING stock`, qty, variantID).Scan(&after)
	if err == sql.ErrNoRows {
		return Movement{}, ErrVariantNotFound
	}
	if err != nil {
		return Movement{}, err
	}
	return r.journal(variantID, typ, qty, after-qty, after, ref)
}

func (r *PostgresRepository) Adjust(variantID, delta int, ref string) (Movement, error) {
	var after int
	err := r.db.QueryRow(`UPDATE variants
        SET stock = stock + $1, "updatedAt" = now()
        WHERE "variantID" = $2 AND stock + $1 >= 0
        RETURNING stock`, delta, variantID).Scan(&after)
	if err == sql.ErrNoRows {
		var exists bool
		if err2 := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM variants WHERE "variantID" = $1)`, variantID).Scan(&exists); err2 != nil {
			return Movement{}, err2
		}
		if !exists {
			return Movement{}, ErrVariantNotFound
		}
		return Movement{}, ErrInsufficientStock
	}
	if err != nil {
		return Movement{}, err
	}
	qty := delta
	if qty < 0 {
		qty = -qty
	}
	return r.journal(variantID, MovementAdjustment, qty, after-delta, after, ref)
}

func (r *PostgresRepository) Available(variantID int) (int, error) {
	var stock int
	err := r.db.QueryRow(`SELECT stock FROM variants WHERE "variantID" = $1`, variantID).Scan(&stock)
	if err == sql.ErrNoRows {
		return 0, ErrVariantNotFound
	}
	return stock, err
}

func (r *PostgresRepository) Movements(variantID, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT "movementID", "variantID", type, quantity, "stockBefore", "stockAfter", "orderRef", "createdAt"::text
        FROM inventory_movements`
	args := []interface{}{}
	if variantID != 0 {
		query += ` WHERE "variantID" = $1 ORDER BY "movementID" DESC LIMIT $2`
		args = append(args, variantID, limit)
	} else {
		query += ` ORDER BY "movementID" DESC LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Movement, 0)
	for rows.Next() {
		var m Movement
		var typ string
		var ref sql.NullString
		if err := rows.Scan(&m.ID, &m.VariantID, &typ, &m.Quantity, &m.StockBefore, &m.StockAfter, &ref, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Type = MovementType(typ)
		m.OrderRef = ref.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) LowStock() ([]catalog.Variant, error) {
	rows, err := r.db.Query(`SELECT "variantID", "productName", stock, "lowStockThreshold"
        FROM variants
        WHERE "isActive" = TRUE AND stock <= "lowStockThreshold"
        ORDER BY stock ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]catalog.Variant, 0)
	for rows.Next() {
		var v catalog.Variant
		if err := rows.Scan(&v.ID, &v.ProductName, &v.Stock, &v.LowStockAt); err != nil {
			return nil, err
		}
		v.IsActive = true
		out = append(out, v)
	}
	return out, rows.Err()
}
