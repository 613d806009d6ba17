package cart

import (
	"database/sql"
	"encoding/json"
	"time"
)

type PostgresRepository struct {
	db      *sql.DB
	lockTTL time.Duration
}

func NewPostgresRepository(db *sql.DB, lockTTL time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, lockTTL: lockTTL}
}

func (r *PostgresRepository) staleCutoff() time.Time {
	return time.Now().UTC().Add(-r.lockTTL)
}

func (r *PostgresRepository) load(userID int) (Cart, error) {
	c := Cart{UserID: userID, Items: []CartItem{}}
	var itemsJSON []byte
	var lockedAt sql.NullTime
	err := r.db.QueryRow(`SELECT items, version, locked, "lockedAt" FROM carts WHERE "userID" = $1`, userID).
		Scan(&itemsJSON, &c.Version, &c.Locked, &lockedAt)
	if err != nil {
		return Cart{}, err
	}
	if lockedAt.Valid {
		t := lockedAt.Time
		c.LockedAt = &t
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
			return Cart{}, err
		}
	}
	return c, nil
}

// loadOrCreate lazily creates the cart row on first use. The INSERT is
// ON CONFLICT DO NOTHING so two concurrent first-adds race safely.
func (r *PostgresRepository) loadOrCreate(userID int) (Cart, error) {
	c, err := r.load(userID)
	if err == sql.ErrNoRows {
		if _, err := r.db.Exec(`INSERT INTO carts ("userID", items, version, "updatedAt") VALUES ($1, '[]', 0, now())
            ON CONFLICT ("userID") DO NOTHING`, userID); err != nil {
			return Cart{}, err
		}
		return r.load(userID)
	}
	return c, err
}

func (r *PostgresRepository) Get(userID int) (Cart, error) {
	c, err := r.load(userID)
	if err == sql.ErrNoRows {
		return Cart{UserID: userID, Items: []CartItem{}}, nil
	}
	if err != nil {
		return Cart{}, err
	}
	if c.Locked && lockStale(c.LockedAt, r.lockTTL, time.Now().UTC()) {
		// abandoned lock; the predicate keeps us from clobbering a fresh
		// lock taken by another process since our read
		if _, err := r.db.Exec(`UPDATE carts SET locked = FALSE, "lockedAt" = NULL
            WHERE "userID" = $1 AND locked = TRUE AND "lockedAt" < $2`, userID, r.staleCutoff()); err != nil {
			return Cart{}, err
		}
		c.Locked = false
		c.LockedAt = nil
	}
	return c, nil
}

// writeItems persists a new item list. The WHERE clause re-asserts that no
// fresh lock is held at write time, so the locked-cart check cannot be
// defeated by a lock acquired between our read and our write.
func (r *PostgresRepository) writeItems(userID int, items []CartItem) (Cart, error) {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return Cart{}, err
	}
	var version int
	err = r.db.QueryRow(`UPDATE carts
        SET items = $1::jsonb, version = version + 1, "updatedAt" = now()
        WHERE "userID" = $2 AND (locked = FALSE OR "lockedAt" IS NULL OR "lockedAt" < $3)
        RETURNING version`, itemsJSON, userID, r.staleCutoff()).Scan(&version)
	if err == sql.ErrNoRows {
		return Cart{}, ErrCartLocked
	}
	if err != nil {
		return Cart{}, err
	}
	return Cart{UserID: userID, Items: items, Version: version}, nil
}

func (r *PostgresRepository) AddItem(userID, variantID, qty int) (Cart, error) {
	c, err := r.loadOrCreate(userID)
	if err != nil {
		return Cart{}, err
	}
	if c.Locked && !lockStale(c.LockedAt, r.lockTTL, time.Now().UTC()) {
		return Cart{}, ErrCartLocked
	}
	items := append([]CartItem{}, c.Items...)
	if i := c.find(variantID); i >= 0 {
		if items[i].Quantity+qty > MaxItemQty {
			return Cart{}, ErrQuantityLimit
		}
		items[i].Quantity += qty
	} else {
		if qty > MaxItemQty {
			return Cart{}, ErrQuantityLimit
		}
		items = append(items, CartItem{VariantID: variantID, Quantity: qty})
	}
	return r.writeItems(userID, items)
}

func (r *PostgresRepository) UpdateItem(userID, variantID, qty int) (Cart, error) {
	c, err := r.load(userID)
	if err == sql.ErrNoRows {
		return Cart{}, ErrNotFound
	}
	if err != nil {
		return Cart{}, err
	}
	if c.Locked && !lockStale(c.LockedAt, r.lockTTL, time.Now().UTC()) {
		return Cart{}, ErrCartLocked
	}
	i := c.find(variantID)
	if i < 0 {
		return Cart{}, ErrItemNotFound
	}
	items := append([]CartItem{}, c.Items...)
	if qty == 0 {
		items = append(items[:i], items[i+1:]...)
	} else {
		if qty > MaxItemQty {
			return Cart{}, ErrQuantityLimit
		}
		items[i].Quantity = qty
	}
	return r.writeItems(userID, items)
}

func (r *PostgresRepository) RemoveItem(userID, variantID int) (Cart, error) {
	return r.UpdateItem(userID, variantID, 0)
}

func (r *PostgresRepository) ReplaceItems(userID int, items []CartItem) (Cart, error) {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return Cart{}, err
	}
	var version int
	err = r.db.QueryRow(`UPDATE carts
        SET items = $1::jsonb, version = version + 1, "updatedAt" = now()
        WHERE "userID" = $2
        RETURNING version`, itemsJSON, userID).Scan(&version)
	if err == sql.ErrNoRows {
		return Cart{}, ErrNotFound
	}
	if err != nil {
		return Cart{}, err
	}
	return Cart{UserID: userID, Items: items, Version: version}, nil
}

func (r *PostgresRepository) Clear(userID int) (Cart, error) {
	var version int
	err := r.db.QueryRow(`UPDATE carts
        SET items = '[]', version = version + 1, "updatedAt" = now()
        WHERE "userID" = $1 AND (locked = FALSE OR "lockedAt" IS NULL OR "lockedAt" < $2)
        RETURNING version`, userID, r.staleCutoff()).Scan(&version)
	if err == sql.ErrNoRows {
		// either no cart (nothing to clear) or a fresh lock
		var exists bool
		if err2 := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM carts WHERE "userID" = $1)`, userID).Scan(&exists); err2 != nil {
			return Cart{}, err2
		}
		if exists {
			return Cart{}, ErrCartLocked
		}
		return Cart{UserID: userID, Items: []CartItem{}}, nil
	}
	if err != nil {
		return Cart{}, err
	}
	return Cart{UserID: userID, Items: []CartItem{}, Version: version}, nil
}

// Lock wins only when no fresh lock is held. A single conditional UPDATE
// decides the race: two concurrent checkouts cannot both see a row
// affected, so at most one proceeds into the payment window.
func (r *PostgresRepository) Lock(userID int) (Cart, error) {
	var itemsJSON []byte
	var version int
	err := r.db.QueryRow(`UPDATE carts
        SET locked = TRUE, "lockedAt" = now()
        WHERE "userID" = $1 AND (locked = FALSE OR "lockedAt" IS NULL OR "lockedAt" < $2)
        RETURNING items, version`, userID, r.staleCutoff()).Scan(&itemsJSON, &version)
	if err == sql.ErrNoRows {
		var exists bool
		if err2 := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM carts WHERE "userID" = $1)`, userID).Scan(&exists); err2 != nil {
			return Cart{}, err2
		}
		if !exists {
			return Cart{}, ErrNotFound
		}
		return Cart{}, ErrCartLocked
	}
	if err != nil {
		return Cart{}, err
	}
	now := time.Now().UTC()
	c := Cart{UserID: userID, Items: []CartItem{}, Version: version, Locked: true, LockedAt: &now}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
			return Cart{}, err
		}
	}
	return c, nil
}

func (r *PostgresRepository) Unlock(userID int) error {
	_, err := r.db.Exec(`UPDATE carts SET locked = FALSE, "lockedAt" = NULL WHERE "userID" = $1`, userID)
	return err
}
