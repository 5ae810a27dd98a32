package models

import (
	"time"

	"order-assistant/internal/hours"

	"github.com/shopspring/decimal"
)

// Cart is the session-scoped in-progress order
type Cart struct {
	SessionID   string          `json:"session_id"`
	TenantID    string          `json:"tenant_id"`
	Items       []CartItem      `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"item_count"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CartItem is a single line of a cart
type CartItem struct {
	ID          string             `json:"id"`
	ProductID   string             `json:"product_id"`
	ProductName string             `json:"product_name"`
	BasePrice   decimal.Decimal    `json:"base_price"`
	Quantity    int                `json:"quantity"`
	Variation   *CartItemVariation `json:"variation,omitempty"`
	Addons      []CartItemAddon    `json:"addons"`
	Notes       string             `json:"notes,omitempty"`
	ItemTotal   decimal.Decimal    `json:"item_total"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// CartItemVariation is the chosen variation of a cart item
type CartItemVariation struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

// CartItemAddon is an addon attached to a cart item
type CartItemAddon struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Clone returns a deep copy of the cart
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = make([]CartItem, len(c.Items))
	for i, item := range c.Items {
		out.Items[i] = item.clone()
	}
	return &out
}

func (i CartItem) clone() CartItem {
	out := i
	if i.Variation != nil {
		v := *i.Variation
		out.Variation = &v
	}
	out.Addons = append([]CartItemAddon(nil), i.Addons...)
	return out
}

// Tenant holds per-establishment settings
type Tenant struct {
	ID           string              `db:"id" json:"id"`
	Name         string              `db:"name" json:"name"`
	Timezone     string              `db:"timezone" json:"timezone"`
	MinimumOrder decimal.NullDecimal `db:"minimum_order" json:"minimum_order"`
	DeliveryFee  decimal.Decimal     `db:"delivery_fee" json:"delivery_fee"`
	Hours        hours.Table         `db:"business_hours" json:"business_hours"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
}

// Product represents a product in the catalog
type Product struct {
	ID          string          `db:"id" json:"id"`
	TenantID    string          `db:"tenant_id" json:"tenant_id"`
	Name        string          `db:"name" json:"name"`
	BasePrice   decimal.Decimal `db:"base_price" json:"base_price"`
	IsAvailable bool            `db:"is_available" json:"is_available"`
}

// ProductVariation is a priced variant of a product (size, crust, ...)
type ProductVariation struct {
	ID         string          `db:"id" json:"id"`
	ProductID  string          `db:"product_id" json:"product_id"`
	Name       string          `db:"name" json:"name"`
	PriceDelta decimal.Decimal `db:"price_delta" json:"price_delta"`
}

// ProductAddon is an optional extra for a product
type ProductAddon struct {
	ID          string          `db:"id" json:"id"`
	ProductID   string          `db:"product_id" json:"product_id"`
	Name        string          `db:"name" json:"name"`
	Price       decimal.Decimal `db:"price" json:"price"`
	MaxQuantity int             `db:"max_quantity" json:"max_quantity"`
}

// ProductPricing is the authoritative price table for one product
type ProductPricing struct {
	Product    Product
	Variations []ProductVariation
	Addons     []ProductAddon
}

// Variation finds a variation by id
func (p *ProductPricing) Variation(id string) (*ProductVariation, bool) {
	for i := range p.Variations {
		if p.Variations[i].ID == id {
			return &p.Variations[i], true
		}
	}
	return nil, false
}

// Addon finds an addon by id
func (p *ProductPricing) Addon(id string) (*ProductAddon, bool) {
	for i := range p.Addons {
		if p.Addons[i].ID == id {
			return &p.Addons[i], true
		}
	}
	return nil, false
}

// Customer represents a customer of a tenant
type Customer struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Phone     string    `db:"phone" json:"phone"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Order represents a placed order
type Order struct {
	ID              string          `db:"id" json:"id"`
	TenantID        string          `db:"tenant_id" json:"tenant_id"`
	OrderNumber     string          `db:"order_number" json:"order_number"`
	CustomerID      *string         `db:"customer_id" json:"customer_id,omitempty"`
	CustomerName    string          `db:"customer_name" json:"customer_name"`
	CustomerPhone   string          `db:"customer_phone" json:"customer_phone"`
	CustomerAddress *string         `db:"customer_address" json:"customer_address,omitempty"`
	Notes           *string         `db:"notes" json:"notes,omitempty"`
	PaymentMethod   *string         `db:"payment_method" json:"payment_method,omitempty"`
	Status          string          `db:"status" json:"status"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	DeliveryFee     decimal.Decimal `db:"delivery_fee" json:"delivery_fee"`
	Total           decimal.Decimal `db:"total" json:"total"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// OrderLine represents an item of an order with frozen prices
type OrderLine struct {
	ID            string          `db:"id" json:"id"`
	OrderID       string          `db:"order_id" json:"order_id"`
	ProductID     string          `db:"product_id" json:"product_id"`
	ProductName   string          `db:"product_name" json:"product_name"`
	VariationID   *string         `db:"variation_id" json:"variation_id,omitempty"`
	VariationName *string         `db:"variation_name" json:"variation_name,omitempty"`
	Quantity      int             `db:"quantity" json:"quantity"`
	UnitPrice     decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice    decimal.Decimal `db:"total_price" json:"total_price"`
	Notes         *string         `db:"notes" json:"notes,omitempty"`
}

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPreparing = "PREPARING"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)
