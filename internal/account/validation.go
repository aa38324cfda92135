package account

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ValidationError carries one message per offending input field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

type PaymentInput struct {
	CardNumber     string `json:"card_number"`
	CardBrand      string `json:"card_brand"`
	ExpiryMonth    string `json:"expiry_month"`
	ExpiryYear     string `json:"expiry_year"`
	CardholderName string `json:"cardholder_name"`
	BillingAddress string `json:"billing_address"`
}

type ShippingInput struct {
	AddressLine1  string `json:"address_line1"`
	AddressLine2  string `json:"address_line2"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	ContactNumber string `json:"contact_number"`
}

var cardBrands = []string{"Visa", "Mastercard"}

const maxCardholderName = 100

// validatePayment returns the normalized card number on success.
func validatePayment(in PaymentInput, now time.Time) (string, error) {
	errs := fieldErrors{}

	card := strings.ReplaceAll(in.CardNumber, " ", "")
	switch {
	case card == "" || !isDigits(card):
		errs.add("card_number", "Card number must contain only digits.")
	case len(card) != 16:
		errs.add("card_number", "Card number must be 16 digits.")
	case !luhnValid(card):
		errs.add("card_number", "Card number failed validation. Please check digits.")
	}

	if !slices.Contains(cardBrands, in.CardBrand) {
		errs.add("card_brand", "Card brand must be Visa or Mastercard.")
	}

	name := strings.TrimSpace(in.CardholderName)
	if name == "" {
		errs.add("cardholder_name", "Cardholder name is required.")
	} else if utf8.RuneCountInString(name) > maxCardholderName {
		errs.add("cardholder_name", "Cardholder name is too long.")
	}

	if strings.TrimSpace(in.BillingAddress) == "" {
		errs.add("billing_address", "Billing address is required.")
	}

	validateExpiry(errs, strings.TrimSpace(in.ExpiryMonth), strings.TrimSpace(in.ExpiryYear), now)

	return card, errs.err()
}

func validateExpiry(errs fieldErrors, em, ey string, now time.Time) {
	if em == "" || ey == "" {
		errs.add("expiry_month", "Expiry month and year are required.")
		errs.add("expiry_year", "Expiry month and year are required.")
		return
	}
	m, err := strconv.Atoi(em)
	if err != nil {
		errs.add("expiry_month", "Expiry month must be a number (1-12).")
		return
	}
	y, err := strconv.Atoi(ey)
	if err != nil || !isDigits(ey) {
		errs.add("expiry_year", "Expiry year must be a number (e.g. 2026).")
		return
	}
	if len(ey) != 4 {
		errs.add("expiry_year", "Expiry year must be 4 digits, e.g. 2025.")
		return
	}
	if m < 1 || m > 12 {
		errs.add("expiry_month", "Expiry month must be between 1 and 12.")
		return
	}
	// valid through the end of the expiry month
	now = now.UTC()
	if y < now.Year() || (y == now.Year() && m < int(now.Month())) {
		errs.add("expiry_month", "Card has expired.")
	}
}

func validateShipping(in ShippingInput) error {
	errs := fieldErrors{}

	required := []struct{ field, value, label string }{
		{"address_line1", in.AddressLine1, "Address line 1"},
		{"city", in.City, "City"},
		{"state", in.State, "State"},
		{"country", in.Country, "Country"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs.add(r.field, r.label+" is required.")
		}
	}

	checkDigits(errs, "postal_code", "Postal code", strings.TrimSpace(in.PostalCode), 6)
	checkDigits(errs, "contact_number", "Contact number", strings.TrimSpace(in.ContactNumber), 8)

	return errs.err()
}

func checkDigits(errs fieldErrors, field, label, val string, n int) {
	switch {
	case val == "":
		errs.add(field, label+" is required.")
	case !isDigits(val):
		errs.add(field, label+" must contain only digits.")
	case len(val) != n:
		errs.add(field, fmt.Sprintf("%s must be %d digits.", label, n))
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func luhnValid(number string) bool {
	sum := 0
	for i := 0; i < len(number); i++ {
		d := int(number[len(number)-1-i] - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}
