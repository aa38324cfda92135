package checkout

import (
	"strconv"
	"strings"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
)

// BuildPaymentSnapshot copies the non-sensitive payment fields into an order.
func BuildPaymentSnapshot(p *domain.PaymentInformation) domain.PaymentSnapshot {
	return domain.PaymentSnapshot{
		CardLast4:      p.CardLast4,
		CardBrand:      p.CardBrand,
		ExpiryMonth:    atoiOrZero(p.ExpiryMonth),
		ExpiryYear:     atoiOrZero(p.ExpiryYear),
		CardholderName: p.CardholderName,
		BillingAddress: p.BillingAddress,
	}
}

func BuildShippingSnapshot(s *domain.ShippingInformation) domain.ShippingSnapshot {
	return domain.ShippingSnapshot{
		AddressLine1:  s.AddressLine1,
		AddressLine2:  s.AddressLine2,
		City:          s.City,
		State:         s.State,
		PostalCode:    s.PostalCode,
		Country:       s.Country,
		ContactNumber: s.ContactNumber,
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
