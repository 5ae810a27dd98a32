package service

import (
	"context"

	"order-assistant/internal/models"
)

// SettingsReader loads per-tenant settings. Returns (nil, nil) for an unknown tenant.
type SettingsReader interface {
	GetTenantSettings(ctx context.Context, tenantID string) (*models.Tenant, error)
}

// OrderRepository persists orders created by checkout
type OrderRepository interface {
	UpsertCustomer(ctx context.Context, tenantID, phone, name string) (string, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderLines(ctx context.Context, orderID string, lines []models.OrderLine) error
	DeleteOrder(ctx context.Context, orderID string) error
}

// OrderReader reads orders back. GetOrderByID returns (nil, nil) when absent.
type OrderReader interface {
	GetOrderByID(ctx context.Context, tenantID, orderID string) (*models.Order, error)
	GetOrderLines(ctx context.Context, orderID string) ([]models.OrderLine, error)
}

// EventPublisher emits domain events after an order is persisted
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
}
