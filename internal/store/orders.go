package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"order-assistant/internal/apperr"
	"order-assistant/internal/models"

	"github.com/lib/pq"
)

const (
	uniqueViolation       = "23505"
	orderNumberConstraint = "orders_tenant_order_number_key"
)

// UpsertCustomer creates or refreshes the customer identified by phone and returns its id
func (s *Store) UpsertCustomer(ctx context.Context, tenantID, phone, name string) (string, error) {
	query := `
		INSERT INTO customers (tenant_id, phone, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, phone)
		DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
		RETURNING id`

	var id string
	if err := s.db.GetContext(ctx, &id, query, tenantID, phone, name); err != nil {
		return "", fmt.Errorf("failed to upsert customer: %w", err)
	}
	return id, nil
}

// InsertOrder creates the order header and fills in its id and creation time
func (s *Store) InsertOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (tenant_id, order_number, customer_id, customer_name, customer_phone,
			customer_address, notes, payment_method, status, subtotal, delivery_fee, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	row := s.db.QueryRowxContext(ctx, query,
		order.TenantID, order.OrderNumber, order.CustomerID, order.CustomerName, order.CustomerPhone,
		order.CustomerAddress, order.Notes, order.PaymentMethod, order.Status,
		order.Subtotal, order.DeliveryFee, order.Total)

	if err := row.Scan(&order.ID, &order.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == orderNumberConstraint {
			return apperr.ErrDuplicateOrderNumber
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// InsertOrderLines writes all lines of an order in a single transaction
func (s *Store) InsertOrderLines(ctx context.Context, orderID string, lines []models.OrderLine) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO order_items (order_id, product_id, product_name, variation_id, variation_name,
			quantity, unit_price, total_price, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for i, line := range lines {
		_, err := tx.ExecContext(ctx, query,
			orderID, line.ProductID, line.ProductName, line.VariationID, line.VariationName,
			line.Quantity, line.UnitPrice, line.TotalPrice, line.Notes)
		if err != nil {
			return fmt.Errorf("failed to insert order line %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order lines: %w", err)
	}
	return nil
}

// DeleteOrder removes an order and its lines. Deleting a missing order is not an error.
func (s *Store) DeleteOrder(ctx context.Context, orderID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", orderID); err != nil {
		return fmt.Errorf("failed to delete order %s: %w", orderID, err)
	}
	return nil
}

// GetOrderByID retrieves an order scoped to its tenant. Returns nil when absent.
func (s *Store) GetOrderByID(ctx context.Context, tenantID, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		SELECT id, tenant_id, order_number, customer_id, customer_name, customer_phone,
			customer_address, notes, payment_method, status, subtotal, delivery_fee, total, created_at
		FROM orders WHERE id = $1 AND tenant_id = $2`, orderID, tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	return &order, nil
}

// GetOrderLines retrieves all lines for an order
func (s *Store) GetOrderLines(ctx context.Context, orderID string) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines, `
		SELECT id, order_id, product_id, product_name, variation_id, variation_name,
			quantity, unit_price, total_price, notes
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lines for order %s: %w", orderID, err)
	}
	return lines, nil
}
