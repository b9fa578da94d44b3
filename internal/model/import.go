package model

// ImportRecord is one validated spreadsheet row, ready to be committed.
type ImportRecord struct {
	CustomerName string  `json:"customer_name"`
	VisaType     string  `json:"visa_type"`
	ExpiryDate   string  `json:"expiry_date"` // YYYY-MM-DD
	CountryCode  *string `json:"country_code"`
	PhoneNumber  *string `json:"phone_number"`
}
