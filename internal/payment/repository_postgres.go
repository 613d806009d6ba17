package payment

import (
	"database/sql"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(p Payment) (Payment, error) {
	err := r.db.QueryRow(`INSERT INTO payments ("intentID", "paymentID", amount, currency, method, status, "orderNumber", "createdAt", "updatedAt")
        VALUES ($1,$2,$3,$4,$5,$6,$7,now(),now())
        RETURNING "createdAt"::text, "updatedAt"::text`,
		p.IntentID, p.PaymentID, p.Amount, p.Currency, p.Method, string(p.Status), p.OrderNumber).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (r *PostgresRepository) GetByIntentID(intentID string) (Payment, error) {
	var p Payment
	var paymentID, orderNumber sql.NullString
	var status string
	err := r.db.QueryRow(`SELECT "intentID", "paymentID", amount, currency, method, status, "orderNumber", "createdAt"::text, "updatedAt"::text
        FROM payments WHERE "intentID" = $1`, intentID).
		Scan(&p.IntentID, &paymentID, &p.Amount, &p.Currency, &p.Method, &status, &orderNumber, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return Payment{}, ErrNotFound
	}
	if err != nil {
		return Payment{}, err
	}
	p.Status = Status(status)
	if paymentID.Valid {
		p.PaymentID = &paymentID.String
	}
	if orderNumber.Valid {
		p.OrderNumber = &orderNumber.String
	}
	return p, nil
}

func (r *PostgresRepository) MarkPaid(intentID, paymentID, orderNumber string) error {
	res, err := r.db.Exec(`UPDATE payments
        SET status = $1, "paymentID" = $2, "orderNumber" = $3, "updatedAt" = now()
        WHERE "intentID" = $4`, string(StatusPaid), paymentID, orderNumber, intentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateStatus(intentID string, status Status) error {
	res, err := r.db.Exec(`UPDATE payments SET status = $1, "updatedAt" = now() WHERE "intentID" = $2`,
		string(status), intentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
