package cart

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresLock_WinsWithConditionalUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db, 5*time.Minute)

	rows := sqlmock.NewRows([]string{"items", "version"}).
		AddRow([]byte(`[{"variantID":1,"quantity":2}]`), 7)
	mock.ExpectQuery(`UPDATE carts`).
		WithArgs(42, sqlmock.AnyArg()).
		WillReturnRows(rows)

	c, err := repo.Lock(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Locked {
		t.Fatalf("expected locked cart")
	}
	if len(c.Items) != 1 || c.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", c.Items)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresLock_ConflictWhenHeld(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db, 5*time.Minute)

	// no row matched the predicate, and the cart row does exist, so the
	// lock is held fresh by someone else
	mock.ExpectQuery(`UPDATE carts`).
		WithArgs(42, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"items", "version"}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	if _, err := repo.Lock(42); err != ErrCartLocked {
		t.Fatalf("expected ErrCartLocked, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresWriteItems_LockCheckInPredicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db, 5*time.Minute)

	// read sees an unlocked cart...
	mock.ExpectQuery(`SELECT items, version, locked`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"items", "version", "locked", "lockedAt"}).
			AddRow([]byte(`[]`), 1, false, nil))
	// ...but the conditional write loses to a lock taken in between
	mock.ExpectQuery(`UPDATE carts`).
		WithArgs(sqlmock.AnyArg(), 42, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))

	if _, err := repo.AddItem(42, 1, 2); err != ErrCartLocked {
		t.Fatalf("expected ErrCartLocked, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
