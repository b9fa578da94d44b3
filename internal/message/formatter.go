// Package message renders the customer-facing reminder text.
package message

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultTemplate is the reminder sent on the day a visa expires.
const DefaultTemplate = "Dear {customer_name}, your {visa_type} visa would be expired on {visa_expiry_date}, kindly renew it. Today's date: {today_date}"

var (
	ErrMissingField          = errors.New("missing template field")
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")
)

var placeholders = []string{"{customer_name}", "{visa_type}", "{visa_expiry_date}", "{today_date}"}

// Fields are the template inputs; dates are pre-formatted as YYYY-MM-DD.
type Fields struct {
	CustomerName   string
	VisaType       string
	VisaExpiryDate string
	TodayDate      string
}

// Render substitutes every placeholder of tmpl. Blank fields are rejected
// rather than rendered as empty text.
func Render(tmpl string, f Fields) (string, error) {
	values := []string{f.CustomerName, f.VisaType, f.VisaExpiryDate, f.TodayDate}

	pairs := make([]string, 0, len(placeholders)*2)
	for i, ph := range placeholders {
		v := strings.TrimSpace(values[i])
		if v == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingField, strings.Trim(ph, "{}"))
		}
		pairs = append(pairs, ph, v)
	}

	out := strings.NewReplacer(pairs...).Replace(tmpl)
	for _, ph := range placeholders {
		if strings.Contains(out, ph) {
			return "", fmt.Errorf("%w: %s", ErrUnresolvedPlaceholder, ph)
		}
	}
	return out, nil
}
