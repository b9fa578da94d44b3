package model

import "time"

// Outcome is the machine-checkable result of one notification attempt.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

func (o Outcome) String() string { return string(o) }

func (o Outcome) Valid() bool {
	return o == OutcomeSent || o == OutcomeSkipped || o == OutcomeFailed
}

// StatusNoPhone is recorded when a candidate has neither country code nor phone.
const StatusNoPhone = "No phone number available"

// SendLog is one append-only row of send_logs. Name and phone are snapshots,
// not references to the customer row.
type SendLog struct {
	ID           int64     `db:"id" json:"id"`
	RunID        string    `db:"run_id" json:"run_id"`
	CustomerName string    `db:"customer_name" json:"customer_name"`
	Phone        string    `db:"phone" json:"phone"`
	Message      string    `db:"message" json:"message"`
	Status       string    `db:"status" json:"status"`
	Outcome      Outcome   `db:"outcome" json:"outcome"`
	SentAt       time.Time `db:"sent_at" json:"sent_at"` // UTC
}
