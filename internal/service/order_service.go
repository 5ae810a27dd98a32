package service

import (
	"context"
	"fmt"

	"order-assistant/internal/apperr"
	"order-assistant/internal/models"
	"order-assistant/internal/util"

	"github.com/google/uuid"
)

// OrderService reads back orders created by checkout
type OrderService struct {
	orders OrderReader
}

// NewOrderService creates a new order service
func NewOrderService(orders OrderReader) *OrderService {
	return &OrderService{orders: orders}
}

// OrderDetails is an order with its lines
type OrderDetails struct {
	Order models.Order       `json:"order"`
	Lines []models.OrderLine `json:"lines"`
}

// GetOrder retrieves an order of a tenant by ID
func (s *OrderService) GetOrder(ctx context.Context, tenantID, orderID string) (*OrderDetails, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	if _, err := uuid.Parse(orderID); err != nil {
		return nil, apperr.ErrOrderNotFound
	}

	order, err := s.orders.GetOrderByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, apperr.ErrOrderNotFound
	}

	lines, err := s.orders.GetOrderLines(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order lines: %w", err)
	}
	if lines == nil {
		lines = []models.OrderLine{}
	}

	return &OrderDetails{Order: *order, Lines: lines}, nil
}
