package repository

import (
	"context"
	"time"

	"github.com/jmehdipour/visa-crm/internal/model"
	"github.com/jmoiron/sqlx"
)

// SendLogsRepository is the append-only notification audit log.
type SendLogsRepository interface {
	Append(ctx context.Context, e model.SendLog) (int64, error)
	List(ctx context.Context, f SendLogFilter) ([]model.SendLog, error)
}

// SendLogFilter bounds sent_at to [From, To) when set.
type SendLogFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

type SendLogsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSendLogsRepository(db *sqlx.DB) *SendLogsRepositoryImpl {
	return &SendLogsRepositoryImpl{db: db}
}

var _ SendLogsRepository = (*SendLogsRepositoryImpl)(nil)

// Append writes a single row outside any transaction, so it is durable on return.
func (r *SendLogsRepositoryImpl) Append(ctx context.Context, e model.SendLog) (int64, error) {
	const q = `
		INSERT INTO send_logs
		    (run_id, customer_name, phone, message, status, outcome, sent_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, q,
		e.RunID, e.CustomerName, e.Phone, e.Message, e.Status, e.Outcome.String(), e.SentAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List returns the most recent rows first.
func (r *SendLogsRepositoryImpl) List(ctx context.Context, f SendLogFilter) ([]model.SendLog, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 500
	}

	q := `
		SELECT id, run_id, customer_name, phone, message, status, outcome, sent_at
		FROM send_logs
		WHERE 1 = 1
	`
	var args []any

	if f.From != nil {
		q += " AND sent_at >= ?"
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		q += " AND sent_at < ?"
		args = append(args, f.To.UTC())
	}

	q += " ORDER BY sent_at DESC, id DESC LIMIT ?"
	args = append(args, f.Limit)

	rows := []model.SendLog{}
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
