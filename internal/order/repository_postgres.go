package order

import (
	"database/sql"
	"encoding/json"

	"github.com/storefrontlab/storefront-backend/internal/payment"
	"github.com/storefrontlab/storefront-backend/internal/pricing"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orderColumns = `"orderNumber", "userID", items, status, "paymentStatus", "paymentMethod", "intentID", breakdown, "shippingAddress", "billingAddress", history, "returnReason", "refundID", "createdAt"::text, "updatedAt"::text`

func (r *PostgresRepository) Create(o Order) (Order, error) {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return Order{}, err
	}
	breakdownJSON, err := json.Marshal(o.Breakdown)
	if err != nil {
		return Order{}, err
	}
	shipJSON, _ := json.Marshal(o.ShippingAddress)
	billJSON, _ := json.Marshal(o.BillingAddress)
	historyJSON, _ := json.Marshal(o.History)

	_, err = r.db.Exec(`INSERT INTO orders ("orderNumber", "userID", items, status, "paymentStatus", "paymentMethod", "intentID", breakdown, "shippingAddress", "billingAddress", history, "createdAt", "updatedAt")
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())`,
		o.OrderNumber, o.UserID, itemsJSON, string(o.Status), string(o.PaymentStatus), o.PaymentMethod, o.IntentID,
		breakdownJSON, shipJSON, billJSON, historyJSON)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func scanOrder(s interface{ Scan(...interface{}) error }) (Order, error) {
	var o Order
	var status, paymentStatus string
	var intentID, returnReason, refundID sql.NullString
	var itemsJSON, breakdownJSON, shipJSON, billJSON, historyJSON []byte
	err := s.Scan(&o.OrderNumber, &o.UserID, &itemsJSON, &status, &paymentStatus, &o.PaymentMethod, &intentID,
		&breakdownJSON, &shipJSON, &billJSON, &historyJSON, &returnReason, &refundID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	o.PaymentStatus = payment.Status(paymentStatus)
	if intentID.Valid {
		o.IntentID = &intentID.String
	}
	o.ReturnReason = returnReason.String
	o.RefundID = refundID.String

	o.Items = []OrderItem{}
	o.History = []HistoryEntry{}
	o.Breakdown = pricing.Breakdown{}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return Order{}, err
		}
	}
	if len(breakdownJSON) > 0 {
		if err := json.Unmarshal(breakdownJSON, &o.Breakdown); err != nil {
			return Order{}, err
		}
	}
	if len(shipJSON) > 0 {
		json.Unmarshal(shipJSON, &o.ShippingAddress)
	}
	if len(billJSON) > 0 {
		json.Unmarshal(billJSON, &o.BillingAddress)
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &o.History); err != nil {
			return Order{}, err
		}
	}
	return o, nil
}

func (r *PostgresRepository) GetByNumber(number string) (Order, error) {
	row := r.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE "orderNumber" = $1`, number)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *PostgresRepository) ListByUser(userID int) ([]Order, error) {
	rows, err := r.db.Query(`SELECT `+orderColumns+` FROM orders WHERE "userID" = $1 ORDER BY "createdAt" DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) FindByIntentID(intentID string) (Order, error) {
	row := r.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE "intentID" = $1`, intentID)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	return o, err
}

// Transition is a single conditional UPDATE keyed on the status the caller
// read. Zero affected rows on an existing order means another writer moved
// the status first.
func (r *PostgresRepository) Transition(o Order, from Status) error {
	historyJSON, err := json.Marshal(o.History)
	if err != nil {
		return err
	}
	res, err := r.db.Exec(`UPDATE orders
        SET status = $1, history = $2, "returnReason" = $3, "updatedAt" = now()
        WHERE "orderNumber" = $4 AND status = $5`,
		string(o.Status), historyJSON, o.ReturnReason, o.OrderNumber, string(from))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM orders WHERE "orderNumber" = $1)`, o.OrderNumber).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrStatusChanged
		}
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Update(o Order) error {
	historyJSON, err := json.Marshal(o.History)
	if err != nil {
		return err
	}
	res, err := r.db.Exec(`UPDATE orders
        SET status = $1, "paymentStatus" = $2, history = $3, "returnReason" = $4, "refundID" = $5, "updatedAt" = now()
        WHERE "orderNumber" = $6`,
		string(o.Status), string(o.PaymentStatus), historyJSON, o.ReturnReason, o.RefundID, o.OrderNumber)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
