package domain

import "github.com/shopspring/decimal"

// CartLine is a cart item joined with the current state of its product.
type CartLine struct {
	ItemID    int64           `json:"item_id"`
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Active    bool            `json:"active"`
	Available int             `json:"available"`
}

// CartView is what the storefront renders for a cart. Subtotal covers active lines only.
type CartView struct {
	CartID    int64           `json:"cart_id"`
	UserID    int64           `json:"user_id"`
	Lines     []CartLine      `json:"lines"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"item_count"`
}

// BuildCartView joins items with products. Items whose product has disappeared are skipped.
func BuildCartView(cart *Cart, products map[int64]*Product) *CartView {
	view := &CartView{
		CartID:   cart.ID,
		UserID:   cart.UserID,
		Lines:    make([]CartLine, 0, len(cart.Items)),
		Subtotal: decimal.Zero,
	}
	for _, item := range cart.Items {
		p, ok := products[item.ProductID]
		if !ok {
			continue
		}
		line := CartLine{
			ItemID:    item.ID,
			ProductID: p.ID,
			SKU:       p.SKU,
			Name:      p.Name,
			UnitPrice: p.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: LineTotal(p.UnitPrice, item.Quantity),
			Active:    p.IsActive(),
			Available: p.QuantityOnHand,
		}
		if line.Active {
			view.Subtotal = view.Subtotal.Add(line.LineTotal)
			view.ItemCount += item.Quantity
		}
		view.Lines = append(view.Lines, line)
	}
	return view
}
