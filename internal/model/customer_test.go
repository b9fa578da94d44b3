package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCustomer_Destination(t *testing.T) {
	cases := []struct {
		name string
		cc   *string
		ph   *string
		want string
	}{
		{"both", StrPtr("971"), StrPtr("501234567"), "971501234567"},
		{"phone only", nil, StrPtr("501234567"), "501234567"},
		{"country only", StrPtr("971"), nil, "971"},
		{"neither", nil, nil, ""},
		{"blank phone", nil, func() *string { s := "  "; return &s }(), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Customer{CountryCode: tc.cc, PhoneNumber: tc.ph}
			assert.Equal(t, tc.want, c.Destination())
		})
	}
}

func TestCustomer_ExpiryDate(t *testing.T) {
	c := Customer{VisaExpiryDate: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "2026-10-17", c.ExpiryDate())
}

func TestStrPtr(t *testing.T) {
	assert.Nil(t, StrPtr(""))
	assert.Nil(t, StrPtr("   "))
	if p := StrPtr(" 971 "); assert.NotNil(t, p) {
		assert.Equal(t, "971", *p)
	}
}
