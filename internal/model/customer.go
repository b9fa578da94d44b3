package model

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date form used in queries, templates and the API.
const DateLayout = "2006-01-02"

type Customer struct {
	ID             int64     `db:"id"`
	CustomerName   string    `db:"customer_name"`
	VisaType       string    `db:"visa_type"`
	VisaExpiryDate time.Time `db:"visa_expiry_date"` // DATE, scanned at UTC midnight
	CountryCode    *string   `db:"country_code"`     // nullable
	PhoneNumber    *string   `db:"phone_number"`     // nullable
}

// ExpiryDate returns the expiry as YYYY-MM-DD.
func (c Customer) ExpiryDate() string {
	return c.VisaExpiryDate.Format(DateLayout)
}

// Destination concatenates country code and phone number; empty when neither is set.
func (c Customer) Destination() string {
	return strings.TrimSpace(deref(c.CountryCode)) + strings.TrimSpace(deref(c.PhoneNumber))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StrPtr returns nil for blank input so optional columns are stored as NULL.
func StrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
