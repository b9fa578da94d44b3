package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/visa-crm/internal/model"
	"github.com/jmoiron/sqlx"
)

type CustomersRepository interface {
	List(ctx context.Context) ([]model.Customer, error)
	ListExpiringOn(ctx context.Context, date string) ([]model.Customer, error)
	Insert(ctx context.Context, c model.Customer) (int64, error)
	InsertIgnoreDuplicate(ctx context.Context, c model.Customer) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type CustomersRepositoryImpl struct {
	db *sqlx.DB
}

func NewCustomersRepository(db *sqlx.DB) *CustomersRepositoryImpl {
	return &CustomersRepositoryImpl{db: db}
}

var _ CustomersRepository = (*CustomersRepositoryImpl)(nil)

const customerColumns = `id, customer_name, visa_type, visa_expiry_date, country_code, phone_number`

// List returns every customer, newest first.
func (r *CustomersRepositoryImpl) List(ctx context.Context) ([]model.Customer, error) {
	rows := []model.Customer{}
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT `+customerColumns+`
		  FROM customers
		 ORDER BY id DESC
	`); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListExpiringOn returns customers whose visa expires on date (YYYY-MM-DD), in storage order.
func (r *CustomersRepositoryImpl) ListExpiringOn(ctx context.Context, date string) ([]model.Customer, error) {
	rows := []model.Customer{}
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT `+customerColumns+`
		  FROM customers
		 WHERE visa_expiry_date = ?
	`, date); err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert adds a customer and returns its id. A (name, expiry) clash yields ErrDuplicateCustomer.
func (r *CustomersRepositoryImpl) Insert(ctx context.Context, c model.Customer) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO customers
		    (customer_name, visa_type, visa_expiry_date, country_code, phone_number)
		VALUES
		    (?, ?, ?, ?, ?)
	`, c.CustomerName, c.VisaType, dateArg(c.VisaExpiryDate), c.CountryCode, c.PhoneNumber)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicateCustomer
		}
		return 0, err
	}
	return res.LastInsertId()
}

// InsertIgnoreDuplicate inserts c unless (name, expiry) already exists; reports whether a row was added.
func (r *CustomersRepositoryImpl) InsertIgnoreDuplicate(ctx context.Context, c model.Customer) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO customers
		    (customer_name, visa_type, visa_expiry_date, country_code, phone_number)
		VALUES
		    (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = id
	`, c.CustomerName, c.VisaType, dateArg(c.VisaExpiryDate), c.CountryCode, c.PhoneNumber)
	if err != nil {
		return false, fmt.Errorf("insert customer %q: %w", c.CustomerName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *CustomersRepositoryImpl) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func dateArg(t time.Time) string {
	return t.Format(model.DateLayout)
}
