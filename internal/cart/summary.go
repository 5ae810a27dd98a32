package cart

import (
	"fmt"
	"strings"

	"order-assistant/internal/models"

	"github.com/shopspring/decimal"
)

// Summary is a display projection of a cart
type Summary struct {
	Items       []SummaryItem   `json:"items"`
	ItemCount   int             `json:"item_count"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
	IsEmpty     bool            `json:"is_empty"`
}

// SummaryItem is one cart line with names flattened for display
type SummaryItem struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Addons    string          `json:"addons,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	Total     decimal.Decimal `json:"total"`
}

// Summarize builds the display projection of a cart
func Summarize(cart *models.Cart) Summary {
	s := Summary{
		Items:       make([]SummaryItem, 0, len(cart.Items)),
		ItemCount:   cart.ItemCount,
		Subtotal:    cart.Subtotal,
		DeliveryFee: cart.DeliveryFee,
		Total:       cart.Total,
		IsEmpty:     len(cart.Items) == 0,
	}

	for _, item := range cart.Items {
		line := SummaryItem{
			ItemID:   item.ID,
			Name:     DisplayName(item),
			Quantity: item.Quantity,
			Addons:   AddonNames(item),
			Notes:    item.Notes,
			Total:    item.ItemTotal,
		}
		if item.Quantity > 0 {
			line.UnitPrice = item.ItemTotal.Div(decimal.NewFromInt(int64(item.Quantity)))
		}
		s.Items = append(s.Items, line)
	}
	return s
}

// DisplayName joins the product name with the chosen variation
func DisplayName(item models.CartItem) string {
	if item.Variation == nil || item.Variation.Name == "" {
		return item.ProductName
	}
	return fmt.Sprintf("%s (%s)", item.ProductName, item.Variation.Name)
}

// AddonNames renders addons as "2x Bacon, Cheese"
func AddonNames(item models.CartItem) string {
	names := make([]string, 0, len(item.Addons))
	for _, a := range item.Addons {
		if a.Quantity > 1 {
			names = append(names, fmt.Sprintf("%dx %s", a.Quantity, a.Name))
			continue
		}
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// String renders the summary as plain text for a chat reply
func (s Summary) String() string {
	if s.IsEmpty {
		return "Your cart is empty."
	}

	var b strings.Builder
	for _, item := range s.Items {
		fmt.Fprintf(&b, "%dx %s - %s\n", item.Quantity, item.Name, item.Total.StringFixed(2))
		if item.Addons != "" {
			fmt.Fprintf(&b, "   + %s\n", item.Addons)
		}
		if item.Notes != "" {
			fmt.Fprintf(&b, "   note: %s\n", item.Notes)
		}
	}
	fmt.Fprintf(&b, "Subtotal: %s\n", s.Subtotal.StringFixed(2))
	if !s.DeliveryFee.IsZero() {
		fmt.Fprintf(&b, "Delivery: %s\n", s.DeliveryFee.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s", s.Total.StringFixed(2))
	return b.String()
}
